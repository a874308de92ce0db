// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
)

func TestContextAppendBound(t *testing.T) {
	c := NewContext("/tmp", 5)

	for i := 0; i < 12; i++ {
		c.Append(Turn{Input: fmt.Sprintf("cmd-%d", i), Mode: pattern.ModeShell, Timestamp: time.Now()})
	}

	hist := c.History()
	if len(hist) != 5 {
		t.Fatalf("expected history bounded at 5, got %d", len(hist))
	}
	// Oldest turns are evicted; the newest survive.
	if hist[0].Input != "cmd-7" {
		t.Errorf("expected oldest retained turn cmd-7, got %q", hist[0].Input)
	}
	if hist[4].Input != "cmd-11" {
		t.Errorf("expected newest turn cmd-11, got %q", hist[4].Input)
	}
}

func TestContextDefaultBound(t *testing.T) {
	c := NewContext("/tmp", 0)
	for i := 0; i < DefaultHistoryBound+10; i++ {
		c.Append(Turn{Input: "x"})
	}
	if got := len(c.History()); got != DefaultHistoryBound {
		t.Errorf("expected default bound %d, got %d", DefaultHistoryBound, got)
	}
}

func TestContextHistoryIsCopy(t *testing.T) {
	c := NewContext("/tmp", 10)
	c.Append(Turn{Input: "original"})

	hist := c.History()
	hist[0].Input = "mutated"

	if c.History()[0].Input != "original" {
		t.Error("mutating the returned history slice leaked into the context")
	}
}

func TestContextLastTurns(t *testing.T) {
	c := NewContext("/tmp", 10)
	for i := 0; i < 6; i++ {
		c.Append(Turn{Input: fmt.Sprintf("t%d", i)})
	}

	tests := []struct {
		n     int
		want  int
		first string
	}{
		{2, 2, "t4"},
		{6, 6, "t0"},
		{100, 6, "t0"},
		{0, 0, ""},
	}

	for _, tt := range tests {
		got := c.LastTurns(tt.n)
		if len(got) != tt.want {
			t.Errorf("LastTurns(%d): expected %d turns, got %d", tt.n, tt.want, len(got))
			continue
		}
		if tt.want > 0 && got[0].Input != tt.first {
			t.Errorf("LastTurns(%d): expected first %q, got %q", tt.n, tt.first, got[0].Input)
		}
	}
}

func TestContextPinOneTurn(t *testing.T) {
	c := NewContext("/tmp", 10)

	if _, ok := c.TakePin(); ok {
		t.Fatal("expected no pin on fresh context")
	}

	c.Pin(pattern.ModeShell)

	if m, ok := c.PinnedMode(); !ok || m != pattern.ModeShell {
		t.Fatalf("expected PinnedMode to report shell pin, got %v %v", m, ok)
	}

	// TakePin consumes the pin.
	m, ok := c.TakePin()
	if !ok || m != pattern.ModeShell {
		t.Fatalf("expected TakePin to return shell pin, got %v %v", m, ok)
	}
	if _, ok := c.TakePin(); ok {
		t.Error("pin should be consumed after TakePin")
	}
}

func TestContextReset(t *testing.T) {
	c := NewContext("/tmp", 10)
	c.Append(Turn{Input: "hello"})
	c.Pin(pattern.ModeConversational)

	c.Reset()

	if len(c.History()) != 0 {
		t.Error("expected empty history after reset")
	}
	if _, ok := c.PinnedMode(); ok {
		t.Error("expected pin cleared after reset")
	}
	if c.Cwd() != "/tmp" {
		t.Errorf("expected cwd preserved across reset, got %q", c.Cwd())
	}
}

func TestContextSetCwd(t *testing.T) {
	c := NewContext("/home/user", 10)
	c.SetCwd("/home/user/project")
	if c.Cwd() != "/home/user/project" {
		t.Errorf("expected updated cwd, got %q", c.Cwd())
	}
	// Empty dir is ignored.
	c.SetCwd("")
	if c.Cwd() != "/home/user/project" {
		t.Errorf("expected cwd unchanged on empty set, got %q", c.Cwd())
	}
}

func TestSnapshotImmutable(t *testing.T) {
	c := NewContext("/tmp", 10)
	c.Append(Turn{Input: "one"})

	snap := c.Snapshot()
	c.Append(Turn{Input: "two"})

	if len(snap.History) != 1 {
		t.Errorf("snapshot should not grow with the live context, got %d turns", len(snap.History))
	}
	if snap.SessionID != c.ID() {
		t.Error("snapshot session id mismatch")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewContext("/tmp", 1).ID()
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
