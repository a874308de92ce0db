// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Saved session management.
//
// Command: aide sessions [list|show]
//
// Sessions are JSON files written by the REPL on exit; this command
// lists and replays them without building the full routing stack.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/aide/internal/session"
)

// HandleSessions dispatches session subcommands.
func HandleSessions(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := session.NewStore(cfg.Session.StorageDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	switch args.Subcommand {
	case "", "list", "ls", "l":
		return listSessions(store, args.JSON)

	case "show":
		if len(args.Raw) == 0 {
			return fmt.Errorf("sessions show: session id required")
		}
		return showSession(store, args.Raw[0], args.JSON)

	default:
		return fmt.Errorf("sessions: unknown subcommand %q (want list or show)", args.Subcommand)
	}
}

func listSessions(store *session.Store, asJSON bool) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	if asJSON {
		if metas == nil {
			metas = []session.SessionMeta{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(metas)
	}

	if len(metas) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("%s  %s  %s\n",
			m.ID,
			colorize(mutedStyle, m.UpdatedAt.Format("2006-01-02 15:04")),
			colorize(infoStyle, fmt.Sprintf("%d turns", m.TurnCount)))
	}
	return nil
}

func showSession(store *session.Store, id string, asJSON bool) error {
	stored, err := store.Load(id)
	if err != nil {
		return fmt.Errorf("sessions show %s: %w", id, err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stored)
	}

	fmt.Printf("session %s  %s\n", stored.ID,
		colorize(mutedStyle, stored.StartedAt.Format("2006-01-02 15:04")))
	fmt.Printf("cwd: %s\n\n", stored.Cwd)
	for _, t := range stored.Turns {
		fmt.Println(formatTurnLine(t))
	}
	return nil
}
