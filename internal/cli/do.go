// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// do.go - One-shot routing command.
//
// Command: aide do "input"
//
// Routes a single line through the same stack as the REPL and exits.
// With --json the full result is printed for scripting.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/router"
)

// doResult is the JSON shape of a one-shot routing outcome.
type doResult struct {
	Input      string   `json:"input"`
	Mode       string   `json:"mode"`
	Category   string   `json:"category,omitempty"`
	Confidence float64  `json:"confidence"`
	Rules      []string `json:"rules,omitempty"`
	Output     string   `json:"output"`
	Degraded   bool     `json:"degraded,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Capability string   `json:"capability,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// HandleDo routes one input line and exits.
func HandleDo(args Args) error {
	if args.Query == "" {
		return fmt.Errorf("do: empty input (usage: aide do \"input\")")
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	// One-shot runs never prompt; dangerous commands are refused outright.
	app.Shell.Confirm = nil

	if args.Mode != "" {
		m, err := pattern.ParseMode(args.Mode)
		if err != nil {
			return err
		}
		app.Session.Pin(m)
	}

	res := app.Router.Route(context.Background(), args.Query, app.Session)

	if args.JSON {
		return printDoJSON(args.Query, res)
	}

	if args.Verbose {
		fmt.Fprintln(os.Stderr, colorize(mutedStyle, fmt.Sprintf("[%s in %s]",
			res.Classification, res.Duration.Round(time.Millisecond))))
	}
	if res.Degraded {
		fmt.Fprintln(os.Stderr, colorize(degradedStyle, "[degraded: "+res.Reason+"]"))
	}

	out := res.Output
	if res.Classification.Mode == pattern.ModeConversational && app.Config.UI.RenderMarkdown && IsStdoutTTY() {
		out = renderMarkdown(out)
	}
	fmt.Print(ensureNewline(out))

	if res.Err != nil {
		return res.Err
	}
	return nil
}

func printDoJSON(input string, res router.HandlerResult) error {
	out := doResult{
		Input:      input,
		Mode:       res.Classification.Mode.String(),
		Confidence: res.Classification.Confidence,
		Output:     res.Output,
		Degraded:   res.Degraded,
		Reason:     res.Reason,
		Capability: res.Capability,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Classification.HasCategory {
		out.Category = res.Classification.Category.String()
	}
	for _, id := range res.Classification.MatchedRules {
		out.Rules = append(out.Rules, string(id))
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	return nil
}
