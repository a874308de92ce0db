// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// plan.go - Capability plan commands.
//
// Command: aide plan [report|next|start|complete|reset]
//
// The plan is the dependency-ordered capability graph that gates task
// dispatch. Transitions are recorded here; the router reads them.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/aide/internal/audit"
	"github.com/jeranaias/aide/internal/tracker"
)

// HandlePlan dispatches plan subcommands.
func HandlePlan(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch args.Subcommand {
	case "", "report", "show":
		return printPlanReport(app, args.JSON)

	case "next", "ready":
		return printNextReady(app, args.JSON)

	case "start":
		return transition(app, args, tracker.StatusInProgress)

	case "complete", "done", "finish":
		return transition(app, args, tracker.StatusCompleted)

	case "reset":
		if len(args.Raw) == 0 {
			return fmt.Errorf("plan reset: capability id required")
		}
		id := args.Raw[0]
		err := app.Tracker.Reset(id)
		app.Audit.Log(audit.Event{
			EventType:  audit.EventReset,
			Capability: id,
			Success:    err == nil,
			Error:      errString(err),
		})
		if err != nil {
			return fmt.Errorf("plan reset %s: %w", id, err)
		}
		fmt.Printf("%s reset to pending (dependents included)\n", id)
		return nil

	default:
		return fmt.Errorf("plan: unknown subcommand %q (want report, next, start, complete, or reset)", args.Subcommand)
	}
}

// transition records one capability status change.
func transition(app *App, args Args, to tracker.Status) error {
	if len(args.Raw) == 0 {
		return fmt.Errorf("plan %s: capability id required", args.Subcommand)
	}
	id := args.Raw[0]
	err := app.Tracker.Transition(id, to)
	app.Audit.Log(audit.Event{
		EventType:  audit.EventTransition,
		Capability: id,
		Reason:     to.String(),
		Success:    err == nil,
		Error:      errString(err),
	})
	if err != nil {
		return fmt.Errorf("plan %s %s: %w", args.Subcommand, id, err)
	}
	fmt.Printf("%s is now %s\n", id, to)
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// REPORT OUTPUT
// =============================================================================

// planReportJSON is the JSON shape of the phase report.
type planReportJSON struct {
	Phases []phaseJSON `json:"phases"`
	Ready  []string    `json:"ready"`
}

type phaseJSON struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       string           `json:"status"`
	Capabilities []capabilityJSON `json:"capabilities"`
}

type capabilityJSON struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// printPlanReport renders the full phase/capability report.
func printPlanReport(app *App, asJSON bool) error {
	report, err := app.Tracker.Report()
	if err != nil {
		return err
	}
	ready, err := app.Tracker.NextReady()
	if err != nil {
		return err
	}

	if asJSON {
		out := planReportJSON{Ready: ready}
		if out.Ready == nil {
			out.Ready = []string{}
		}
		for _, ph := range report {
			pj := phaseJSON{ID: ph.ID, Name: ph.Name, Status: ph.Status.String()}
			for _, c := range ph.Capabilities {
				pj.Capabilities = append(pj.Capabilities, capabilityJSON{ID: c.ID, Status: c.Status.String()})
			}
			out.Phases = append(out.Phases, pj)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, ph := range report {
		fmt.Printf("%s %s\n",
			colorize(headerStyle, ph.Name),
			colorize(mutedStyle, "("+ph.Status.String()+")"))
		for _, c := range ph.Capabilities {
			fmt.Printf("  %s %s\n", statusMarker(c.Status), c.ID)
		}
	}

	if len(ready) > 0 {
		fmt.Printf("\n%s %s\n",
			colorize(infoStyle, "ready to start:"),
			strings.Join(ready, ", "))
	}
	return nil
}

// printNextReady lists capabilities whose dependencies are satisfied.
func printNextReady(app *App, asJSON bool) error {
	ready, err := app.Tracker.NextReady()
	if err != nil {
		return err
	}

	if asJSON {
		if ready == nil {
			ready = []string{}
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(ready)
	}

	if len(ready) == 0 {
		fmt.Println("nothing ready: every pending capability is blocked or in progress")
		return nil
	}
	for _, id := range ready {
		fmt.Println(id)
	}
	return nil
}

// statusMarker renders a capability status as a short colored marker.
func statusMarker(s tracker.Status) string {
	switch s {
	case tracker.StatusCompleted:
		return colorize(doneStyle, "[x]")
	case tracker.StatusInProgress:
		return colorize(degradedStyle, "[~]")
	default:
		return colorize(mutedStyle, "[ ]")
	}
}
