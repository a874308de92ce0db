// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/session"
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classification is the classifier's verdict for one input line.
type Classification struct {
	// Mode selects the execution subsystem.
	Mode pattern.Mode
	// Category is the task category; valid only when Mode is ModeTask.
	Category pattern.TaskCategory
	// HasCategory reports whether Category carries meaning.
	HasCategory bool
	// Confidence is the winning bucket's weight normalized by all buckets,
	// in [0,1]. Sigil and pin overrides score 1.0; no match scores 0.
	Confidence float64
	// MatchedRules lists the contributing rules in library order.
	MatchedRules []pattern.RuleID
	// Body is the input with any sigil prefix stripped, ready for dispatch.
	Body string
	// Pinned reports that an explicit one-turn mode override decided this.
	Pinned bool
}

// String renders the classification for logs and debug output.
func (c Classification) String() string {
	if c.HasCategory {
		return fmt.Sprintf("%s/%s (%.2f)", c.Mode, c.Category, c.Confidence)
	}
	return fmt.Sprintf("%s (%.2f)", c.Mode, c.Confidence)
}

// =============================================================================
// HANDLER INTERFACE
// =============================================================================

// Request carries one dispatch to an execution subsystem. Handlers receive a
// read-only session snapshot, never the live context.
type Request struct {
	// Input is the text to act on, sigil already stripped.
	Input string
	// Raw is the original unmodified input line.
	Raw string
	// Category is set for task dispatches.
	Category pattern.TaskCategory
	// Session is an immutable snapshot of the session at dispatch time.
	Session session.Snapshot
}

// Handler is an execution subsystem the router dispatches to. The router
// enforces a timeout around Handle; implementations should honor ctx
// cancellation but the router only stops waiting, it does not assume the
// work was torn down.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (string, error)
}

// =============================================================================
// HANDLER RESULT
// =============================================================================

// Degrade reasons carried on HandlerResult.
const (
	ReasonCapabilityNotReady = "capability-not-ready"
	ReasonCategoryDisabled   = "category-disabled"
	ReasonHandlerUnavailable = "handler-unavailable"
	ReasonTimeout            = "timeout"
)

// HandlerResult is the outcome of routing one input line. A degraded result
// is still a successful turn: the router answered with a fallback and the
// reason explains what was unavailable.
type HandlerResult struct {
	Classification Classification

	// Output is the handler's response text.
	Output string

	// Degraded marks a dispatch that fell back to conversational mode or
	// stopped waiting on a timeout.
	Degraded bool
	// Reason names why the result is degraded (one of the Reason constants).
	Reason string
	// Capability is the unready capability id when Reason is
	// capability-not-ready.
	Capability string

	// Err is a handler execution error. Degraded results have a nil Err;
	// a handler that ran and failed reports it here.
	Err error

	// Duration is the wall time of the dispatch.
	Duration time.Duration
}
