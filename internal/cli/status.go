// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - System status command.
//
// Command: aide status
//
// Shows effective configuration, pattern library size, capability plan
// progress, and recorded routing statistics in one place.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/aide/internal/tracker"
	"github.com/jeranaias/aide/internal/util"
)

// statusJSON is the machine-readable status shape.
type statusJSON struct {
	Version       string         `json:"version"`
	DefaultMode   string         `json:"default_mode"`
	ShellSigil    string         `json:"shell_sigil"`
	AISigils      []string       `json:"ai_sigils"`
	AIModel       string         `json:"ai_model"`
	AIBaseURL     string         `json:"ai_base_url"`
	Rules         int            `json:"rules"`
	Completed     int            `json:"capabilities_completed"`
	InProgress    int            `json:"capabilities_in_progress"`
	Total         int            `json:"capabilities_total"`
	Ready         []string       `json:"ready"`
	ModeDispatch  map[string]int `json:"mode_dispatches,omitempty"`
	AuditEnabled  bool           `json:"audit_enabled"`
	StatsEnabled  bool           `json:"telemetry_enabled"`
	WatchingRules bool           `json:"watching_rules"`
}

// HandleStatus shows routing, plan, and telemetry status.
func HandleStatus(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	completed, inProgress, total, err := planCounts(app)
	if err != nil {
		return err
	}
	ready, err := app.Tracker.NextReady()
	if err != nil {
		return err
	}

	if args.JSON {
		out := statusJSON{
			Version:       Version,
			DefaultMode:   app.Config.Routing.DefaultMode,
			ShellSigil:    app.Config.Routing.ShellSigil,
			AISigils:      app.Config.Routing.AISigils,
			AIModel:       app.Config.Handlers.AIModel,
			AIBaseURL:     app.Config.Handlers.AIBaseURL,
			Rules:         app.Library.Len(),
			Completed:     completed,
			InProgress:    inProgress,
			Total:         total,
			Ready:         ready,
			AuditEnabled:  app.Config.Audit.Enabled,
			StatsEnabled:  app.Config.Telemetry.Enabled,
			WatchingRules: app.Config.Patterns.WatchRules,
		}
		if out.Ready == nil {
			out.Ready = []string{}
		}
		stats := app.Stats.Snapshot()
		if len(stats.Modes) > 0 {
			out.ModeDispatch = make(map[string]int, len(stats.Modes))
			for mode, ms := range stats.Modes {
				out.ModeDispatch[mode] = ms.Count
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(colorize(headerStyle, "aide "+Version))
	fmt.Println()
	fmt.Println(colorize(infoStyle, "routing"))
	fmt.Printf("  default mode:   %s\n", app.Config.Routing.DefaultMode)
	fmt.Printf("  shell sigil:    %q\n", app.Config.Routing.ShellSigil)
	fmt.Printf("  ai sigils:      %v\n", app.Config.Routing.AISigils)
	fmt.Printf("  pattern rules:  %d\n", app.Library.Len())
	if len(app.Config.Routing.DisabledCategories) > 0 {
		fmt.Printf("  disabled:       %v\n", app.Config.Routing.DisabledCategories)
	}
	fmt.Println()
	fmt.Println(colorize(infoStyle, "model"))
	fmt.Printf("  endpoint:       %s\n", app.Config.Handlers.AIBaseURL)
	fmt.Printf("  model:          %s\n", app.Config.Handlers.AIModel)
	fmt.Println()
	fmt.Println(colorize(infoStyle, "capability plan"))
	fmt.Printf("  completed:      %d/%d\n", completed, total)
	if inProgress > 0 {
		fmt.Printf("  in progress:    %d\n", inProgress)
	}
	if len(ready) > 0 {
		fmt.Printf("  ready:          %v\n", ready)
	}

	stats := app.Stats.Snapshot()
	if len(stats.Modes) > 0 {
		fmt.Println()
		fmt.Println(colorize(infoStyle, "dispatches since "+stats.Since.Format("2006-01-02")))
		col := 0
		for mode := range stats.Modes {
			if w := util.StringWidth(mode); w > col {
				col = w
			}
		}
		for mode, ms := range stats.Modes {
			line := fmt.Sprintf("  %s %d", util.PadRight(mode, col+2), ms.Count)
			if ms.Degraded > 0 {
				line += colorize(degradedStyle, fmt.Sprintf("  (%d degraded)", ms.Degraded))
			}
			fmt.Println(line)
		}
	}
	return nil
}

// printSessionStatus is the REPL /status view: live session plus plan counts.
func printSessionStatus(app *App) {
	completed, inProgress, total, err := planCounts(app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorize(errorStyle, "[Error]"), err)
		return
	}

	fmt.Printf("session %s\n", colorize(mutedStyle, app.Session.ID()))
	fmt.Printf("  turns:       %d\n", len(app.Session.History()))
	fmt.Printf("  cwd:         %s\n", app.Session.Cwd())
	if m, ok := app.Session.PinnedMode(); ok {
		fmt.Printf("  pinned mode: %s\n", m)
	}
	fmt.Printf("  plan:        %d/%d completed", completed, total)
	if inProgress > 0 {
		fmt.Printf(", %d in progress", inProgress)
	}
	fmt.Println()
}

// planCounts tallies capability statuses across the plan.
func planCounts(app *App) (completed, inProgress, total int, err error) {
	report, err := app.Tracker.Report()
	if err != nil {
		return 0, 0, 0, err
	}
	for _, ph := range report {
		for _, c := range ph.Capabilities {
			total++
			switch c.Status {
			case tracker.StatusCompleted:
				completed++
			case tracker.StatusInProgress:
				inProgress++
			}
		}
	}
	return completed, inProgress, total, nil
}
