// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides per-session rolling state for the router.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
)

// DefaultHistoryBound is the default maximum number of turns kept in memory.
const DefaultHistoryBound = 50

// =============================================================================
// TURN
// =============================================================================

// Turn records one processed input line and how it was classified.
type Turn struct {
	ID         string               `json:"id,omitempty"`
	Input      string               `json:"input"`
	Mode       pattern.Mode         `json:"mode"`
	Category   pattern.TaskCategory `json:"category,omitempty"`
	IsTask     bool                 `json:"is_task,omitempty"`
	Confidence float64              `json:"confidence"`
	Rules      []pattern.RuleID     `json:"rules,omitempty"`
	Degraded   bool                 `json:"degraded,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// =============================================================================
// CONTEXT
// =============================================================================

// Context is the rolling session state consulted and updated on every turn.
//
// A Context is owned by exactly one interactive turn loop for its lifetime:
// one line is processed to completion before the next is read, so there is
// no concurrent mutation and no lock. Handlers never see the live Context,
// only a Snapshot.
type Context struct {
	id        string
	startTime time.Time

	history    []Turn
	maxHistory int

	cwd string

	// pinned, when non-nil, forces the next classification to this mode.
	// Set by the REPL "mode" command, cleared after one turn or on Reset.
	pinned *pattern.Mode
}

// NewContext creates a session context rooted at cwd. A non-positive bound
// falls back to DefaultHistoryBound.
func NewContext(cwd string, maxHistory int) *Context {
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryBound
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	return &Context{
		id:         generateID(),
		startTime:  time.Now(),
		maxHistory: maxHistory,
		cwd:        cwd,
	}
}

// ID returns the session identifier.
func (c *Context) ID() string {
	return c.id
}

// StartTime returns when the session began.
func (c *Context) StartTime() time.Time {
	return c.startTime
}

// =============================================================================
// HISTORY
// =============================================================================

// Append records a turn, evicting the oldest once the bound is exceeded.
func (c *Context) Append(t Turn) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	c.history = append(c.history, t)
	if len(c.history) > c.maxHistory {
		// Bounded ring: drop from the front.
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
}

// History returns a copy of the recorded turns, oldest first.
func (c *Context) History() []Turn {
	out := make([]Turn, len(c.history))
	copy(out, c.history)
	return out
}

// LastTurns returns up to n most recent turns, oldest first.
func (c *Context) LastTurns(n int) []Turn {
	if n <= 0 || len(c.history) == 0 {
		return nil
	}
	if n > len(c.history) {
		n = len(c.history)
	}
	out := make([]Turn, n)
	copy(out, c.history[len(c.history)-n:])
	return out
}

// =============================================================================
// WORKING DIRECTORY
// =============================================================================

// Cwd returns the session working directory.
func (c *Context) Cwd() string {
	return c.cwd
}

// SetCwd updates the session working directory. An empty dir is ignored.
func (c *Context) SetCwd(dir string) {
	if dir == "" {
		return
	}
	c.cwd = dir
}

// =============================================================================
// MODE PIN
// =============================================================================

// Pin forces the next turn's classification to the given mode.
func (c *Context) Pin(m pattern.Mode) {
	c.pinned = &m
}

// TakePin returns the pinned mode and clears it. The explicit override wins
// for exactly one turn.
func (c *Context) TakePin() (pattern.Mode, bool) {
	if c.pinned == nil {
		return 0, false
	}
	m := *c.pinned
	c.pinned = nil
	return m, true
}

// PinnedMode reports the pin without consuming it (for status display).
func (c *Context) PinnedMode() (pattern.Mode, bool) {
	if c.pinned == nil {
		return 0, false
	}
	return *c.pinned, true
}

// Reset clears the pin and the in-memory history.
func (c *Context) Reset() {
	c.pinned = nil
	c.history = nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of a Context handed to handlers, so they
// cannot observe or race later session updates.
type Snapshot struct {
	SessionID string
	Cwd       string
	History   []Turn
	TakenAt   time.Time
}

// Snapshot captures the current state.
func (c *Context) Snapshot() Snapshot {
	return Snapshot{
		SessionID: c.id,
		Cwd:       c.cwd,
		History:   c.History(),
		TakenAt:   time.Now(),
	}
}

// generateID creates a unique session ID.
func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
