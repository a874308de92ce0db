// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/aide/internal/pattern"
)

func TestDisabledCategories(t *testing.T) {
	got := disabledCategories([]string{"security", "bogus", "research"})
	if !got[pattern.CategorySecurity] {
		t.Error("security not disabled")
	}
	if !got[pattern.CategoryResearch] {
		t.Error("research not disabled")
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (unknown names ignored)", len(got))
	}

	if disabledCategories(nil) != nil {
		t.Error("nil input should return nil set")
	}
}

// TestNewAppWiresStack builds the full stack in a scratch HOME and routes a
// shell line end to end.
func TestNewAppWiresStack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app, err := NewApp(Args{Quiet: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	// Plan seeded from the default declaration.
	_, _, total, err := planCounts(app)
	if err != nil {
		t.Fatalf("planCounts: %v", err)
	}
	if total != 18 {
		t.Errorf("total capabilities = %d, want 18", total)
	}

	res := app.Router.Route(context.Background(), "$ echo wired", app.Session)
	if res.Err != nil {
		t.Fatalf("shell route: %v", res.Err)
	}
	if !strings.Contains(res.Output, "wired") {
		t.Errorf("output = %q, want echo result", res.Output)
	}
	if res.Classification.Mode != pattern.ModeShell {
		t.Errorf("mode = %v, want shell", res.Classification.Mode)
	}
	if len(app.Session.History()) != 1 {
		t.Errorf("history length = %d, want 1", len(app.Session.History()))
	}
}

// Close persists the session when the context has turns.
func TestAppCloseSavesSession(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	app, err := NewApp(Args{Quiet: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	app.Router.Route(context.Background(), "$ true", app.Session)
	id := app.Session.ID()
	app.Close()

	saved := filepath.Join(home, ".aide", "sessions", id+".json")
	if _, err := app.Store.Load(id); err != nil {
		t.Errorf("stored session %s not loadable: %v", saved, err)
	}
}

// SaveSession persists mid-session, not only at teardown.
func TestAppSavesSessionPerTurn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app, err := NewApp(Args{Quiet: true})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	app.Router.Route(context.Background(), "$ true", app.Session)
	app.SaveSession()

	stored, err := app.Store.Load(app.Session.ID())
	if err != nil {
		t.Fatalf("session not stored after turn: %v", err)
	}
	if len(stored.Turns) != 1 {
		t.Errorf("stored turns = %d, want 1", len(stored.Turns))
	}
}

func TestLoadConfigExplicitPathMissing(t *testing.T) {
	if _, err := loadConfig(Args{ConfigPath: "/nonexistent/aide.toml"}); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
