// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestTrackerRecordAndSnapshot(t *testing.T) {
	tr, err := NewTracker(filepath.Join(t.TempDir(), "stats.json"))
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	tr.Record("shell", "", false, "", nil, 10*time.Millisecond)
	tr.Record("shell", "", false, "", errors.New("exit 1"), 20*time.Millisecond)
	tr.Record("task", "security", true, "capability-not-ready", nil, time.Millisecond)

	snap := tr.Snapshot()
	shell := snap.Modes["shell"]
	if shell.Count != 2 || shell.Errors != 1 {
		t.Errorf("unexpected shell stats: %+v", shell)
	}
	if shell.AvgDuration() != 15*time.Millisecond {
		t.Errorf("expected avg 15ms, got %v", shell.AvgDuration())
	}
	if snap.Modes["task"].Degraded != 1 {
		t.Errorf("expected 1 degraded task dispatch, got %+v", snap.Modes["task"])
	}
	if snap.Categories["security"] != 1 {
		t.Errorf("expected security category counted, got %v", snap.Categories)
	}
	if snap.DegradeReasons["capability-not-ready"] != 1 {
		t.Errorf("expected degrade reason counted, got %v", snap.DegradeReasons)
	}
}

func TestTrackerPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")

	tr, err := NewTracker(path)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tr.Record("conversational", "", false, "", nil, time.Second)
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tr2, err := NewTracker(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if tr2.Snapshot().Modes["conversational"].Count != 1 {
		t.Error("expected stats loaded from disk")
	}
}

func TestDisabledTracker(t *testing.T) {
	tr := Disabled()
	tr.Record("shell", "", false, "", nil, time.Second)
	if len(tr.Snapshot().Modes) != 0 {
		t.Error("disabled tracker should record nothing")
	}
	if err := tr.Save(); err != nil {
		t.Errorf("disabled Save should be a no-op, got %v", err)
	}
}
