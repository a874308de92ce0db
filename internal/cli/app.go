// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared application wiring for CLI commands.
//
// Every command that routes input builds the same stack: config, pattern
// library, capability tracker, session context, router, handlers. App owns
// that stack and its teardown order.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/aide/internal/audit"
	"github.com/jeranaias/aide/internal/config"
	"github.com/jeranaias/aide/internal/handlers"
	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/router"
	"github.com/jeranaias/aide/internal/session"
	"github.com/jeranaias/aide/internal/telemetry"
	"github.com/jeranaias/aide/internal/tracker"
)

// App bundles the wired subsystems for one CLI invocation.
type App struct {
	Config  *config.Config
	Library *pattern.Library
	Tracker *tracker.Tracker
	Session *session.Context
	Store   *session.Store
	Router  *router.Router
	Audit   *audit.Logger
	Stats   *telemetry.Tracker
	Shell   *handlers.ShellHandler

	watcher *pattern.Watcher
}

// NewApp wires the full routing stack from configuration. A corrupt tracker
// database is fatal here: startup is the one place aide refuses to run
// rather than degrade.
func NewApp(args Args) (*App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	if args.NoColor || !cfg.UI.ColorEnabled {
		ForceColors(false)
	}

	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	lib := pattern.NewLibrary()
	rulesPath, err := config.DefaultPath(cfg.Patterns.RulesPath, "rules.toml")
	if err == nil {
		if _, statErr := os.Stat(rulesPath); statErr == nil {
			if loadErr := lib.LoadFile(rulesPath); loadErr != nil {
				fmt.Fprintf(os.Stderr, "warning: user rules not loaded: %v\n", loadErr)
			}
		}
	}

	var watcher *pattern.Watcher
	if cfg.Patterns.WatchRules && rulesPath != "" {
		watcher, err = pattern.NewWatcher(lib, rulesPath, 500*time.Millisecond)
		if err == nil {
			if err := watcher.Watch(); err != nil {
				watcher.Close()
				watcher = nil
			}
		}
	}

	dbPath, err := config.DefaultPath(cfg.Tracker.DatabasePath, "tracker.db")
	if err != nil {
		return nil, fmt.Errorf("resolving tracker path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating tracker directory: %w", err)
	}
	trk, err := tracker.Open(dbPath, tracker.DefaultPlan())
	if err != nil {
		if tracker.IsFatal(err) {
			return nil, fmt.Errorf("tracker state is corrupt, refusing to start: %w", err)
		}
		return nil, fmt.Errorf("opening tracker: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = os.TempDir()
	}
	sess := session.NewContext(cwd, cfg.Session.HistoryBound)

	store, err := session.NewStore(cfg.Session.StorageDir)
	if err != nil {
		store = nil
	} else {
		store.MaxSessions = cfg.Session.MaxStored
	}

	defaultMode := pattern.ModeConversational
	if m, perr := pattern.ParseMode(cfg.Routing.DefaultMode); perr == nil {
		defaultMode = m
	}
	classifier := router.NewClassifier(lib, cfg.Routing.ShellSigil, cfg.Routing.AISigils, defaultMode)

	rt := router.New(classifier, trk, router.Options{
		ShellTimeout:       time.Duration(cfg.Handlers.ShellTimeoutSecs) * time.Second,
		AITimeout:          time.Duration(cfg.Handlers.AITimeoutSecs) * time.Second,
		TaskTimeout:        time.Duration(cfg.Handlers.TaskTimeoutSecs) * time.Second,
		DisabledCategories: disabledCategories(cfg.Routing.DisabledCategories),
	})

	auditLog := audit.Disabled()
	if cfg.Audit.Enabled {
		logPath, perr := config.DefaultPath(cfg.Audit.LogPath, "audit.log")
		if perr == nil {
			if l, lerr := audit.New(logPath); lerr == nil {
				l.SetMaxSize(int64(cfg.Audit.MaxSizeMB) * 1024 * 1024)
				auditLog = l
			}
		}
	}
	rt.SetAudit(auditLog)

	stats := telemetry.Disabled()
	if cfg.Telemetry.Enabled {
		statsPath, perr := config.DefaultPath(cfg.Telemetry.StatsPath, "stats.json")
		if perr == nil {
			if t, terr := telemetry.NewTracker(statsPath); terr == nil {
				stats = t
			}
		}
	}
	rt.SetStats(stats)

	shell := handlers.NewShellHandler(cfg.Handlers.ConfirmDangerous)
	shell.OnChdir = func(dir string) error {
		if err := os.Chdir(dir); err != nil {
			return err
		}
		sess.SetCwd(dir)
		return nil
	}
	rt.RegisterShell(shell)

	ai := handlers.NewAIHandler(cfg.Handlers.AIBaseURL, cfg.Handlers.AIModel, cfg.Handlers.AIRequestsPerMinute)
	rt.RegisterConversational(ai)

	dataDir, err := config.ConfigDir()
	if err != nil {
		dataDir = os.TempDir()
	}
	handlers.RegisterTasks(rt, ai, dataDir)

	return &App{
		Config:  cfg,
		Library: lib,
		Tracker: trk,
		Session: sess,
		Store:   store,
		Router:  rt,
		Audit:   auditLog,
		Stats:   stats,
		Shell:   shell,
		watcher: watcher,
	}, nil
}

// SaveSession persists the current turn history. The REPL calls it after
// every routed turn so a crash loses at most the line in flight.
func (a *App) SaveSession() {
	if a.Store == nil || len(a.Session.History()) == 0 {
		return
	}
	if err := a.Store.Save(a.Session); err != nil {
		fmt.Fprintf(os.Stderr, "warning: session not saved: %v\n", err)
	}
}

// Close tears down the stack, persisting what should survive the process.
func (a *App) Close() {
	a.SaveSession()
	if err := a.Stats.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stats not saved: %v\n", err)
	}
	a.Audit.Close()
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.Tracker.Close()
}

// loadConfig loads from an explicit --config path or the default chain.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// disabledCategories converts config names to the router's category set.
// Unknown names are reported but not fatal.
func disabledCategories(names []string) map[pattern.TaskCategory]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[pattern.TaskCategory]bool, len(names))
	for _, name := range names {
		cat, err := pattern.ParseCategory(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: ignoring disabled category: %v\n", err)
			continue
		}
		out[cat] = true
	}
	return out
}
