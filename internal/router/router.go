// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides which execution subsystem handles each input line.
//
// One turn flows: classify -> capability gate -> dispatch -> record. The
// router itself never executes commands, calls AI endpoints, or touches the
// filesystem; it delegates to registered handlers behind an enforced
// timeout. An unavailable capability or handler degrades to a conversational
// response flagged degraded, never a crash or a silent generic answer.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aide/internal/audit"
	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/session"
	"github.com/jeranaias/aide/internal/telemetry"
	"github.com/jeranaias/aide/internal/tracker"
)

// =============================================================================
// ROUTER
// =============================================================================

// CapabilityGate is the tracker surface the router needs: whether the
// capability gating a task category is completed.
type CapabilityGate interface {
	Status(capabilityID string) (tracker.Status, error)
}

// Options configures a Router.
type Options struct {
	// ShellTimeout bounds shell dispatches (default 2m).
	ShellTimeout time.Duration
	// AITimeout bounds conversational dispatches (default 1m).
	AITimeout time.Duration
	// TaskTimeout bounds task dispatches (default 5m).
	TaskTimeout time.Duration
	// DisabledCategories never dispatch even when their capability is ready.
	DisabledCategories map[pattern.TaskCategory]bool
}

func (o *Options) fill() {
	if o.ShellTimeout <= 0 {
		o.ShellTimeout = 2 * time.Minute
	}
	if o.AITimeout <= 0 {
		o.AITimeout = time.Minute
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 5 * time.Minute
	}
}

// Router owns the classify-gate-dispatch-record loop for one session.
type Router struct {
	classifier *Classifier
	gate       CapabilityGate
	opts       Options

	shellHandler Handler
	aiHandler    Handler
	taskHandlers map[pattern.TaskCategory]Handler

	auditLog *audit.Logger
	stats    *telemetry.Tracker
}

// New creates a router. The gate may be nil, in which case every task
// dispatch degrades as capability-not-ready.
func New(classifier *Classifier, gate CapabilityGate, opts Options) *Router {
	opts.fill()
	return &Router{
		classifier:   classifier,
		gate:         gate,
		opts:         opts,
		taskHandlers: make(map[pattern.TaskCategory]Handler),
		auditLog:     audit.Disabled(),
		stats:        telemetry.Disabled(),
	}
}

// RegisterShell sets the shell passthrough handler.
func (r *Router) RegisterShell(h Handler) { r.shellHandler = h }

// RegisterConversational sets the conversational AI handler.
func (r *Router) RegisterConversational(h Handler) { r.aiHandler = h }

// RegisterTask sets the handler for one task category.
func (r *Router) RegisterTask(cat pattern.TaskCategory, h Handler) {
	r.taskHandlers[cat] = h
}

// SetAudit attaches an audit logger.
func (r *Router) SetAudit(l *audit.Logger) {
	if l != nil {
		r.auditLog = l
	}
}

// SetStats attaches a telemetry tracker.
func (r *Router) SetStats(t *telemetry.Tracker) {
	if t != nil {
		r.stats = t
	}
}

// Classify exposes the classifier verdict without dispatching or consuming
// the session pin. Useful for dry-run and debug surfaces.
func (r *Router) Classify(input string, sess *session.Context) Classification {
	var pinned *pattern.Mode
	if m, ok := sess.PinnedMode(); ok {
		pinned = &m
	}
	return r.classifier.Classify(input, pinned)
}

// =============================================================================
// ROUTING
// =============================================================================

// Route processes one input line to completion: classify, gate, dispatch,
// and append the turn to session history. It consumes any one-turn pinned
// mode. Route never returns a nil-result panic path; every outcome is a
// HandlerResult, degraded where something was unavailable.
func (r *Router) Route(ctx context.Context, input string, sess *session.Context) HandlerResult {
	start := time.Now()

	var pinned *pattern.Mode
	if m, ok := sess.TakePin(); ok {
		pinned = &m
	}
	cls := r.classifier.Classify(input, pinned)

	res := r.dispatch(ctx, cls, input, sess)
	res.Classification = cls
	res.Duration = time.Since(start)

	turnID := uuid.NewString()
	r.record(turnID, input, cls, res, sess)
	return res
}

// dispatch selects the handler for a classification and runs it behind the
// mode's timeout.
func (r *Router) dispatch(ctx context.Context, cls Classification, raw string, sess *session.Context) HandlerResult {
	req := Request{
		Input:   cls.Body,
		Raw:     raw,
		Session: sess.Snapshot(),
	}

	switch cls.Mode {
	case pattern.ModeShell:
		if r.shellHandler == nil {
			return r.degrade(ctx, req, ReasonHandlerUnavailable, "",
				"no shell handler is available")
		}
		return r.run(ctx, r.shellHandler, req, r.opts.ShellTimeout)

	case pattern.ModeTask:
		return r.dispatchTask(ctx, cls, req)

	default:
		if r.aiHandler == nil {
			return HandlerResult{
				Degraded: true,
				Reason:   ReasonHandlerUnavailable,
				Output:   "No conversational handler is available.",
			}
		}
		return r.run(ctx, r.aiHandler, req, r.opts.AITimeout)
	}
}

// dispatchTask gates a task dispatch on the capability tracker before
// handing it to the category handler.
func (r *Router) dispatchTask(ctx context.Context, cls Classification, req Request) HandlerResult {
	req.Category = cls.Category

	if r.opts.DisabledCategories[cls.Category] {
		return r.degrade(ctx, req, ReasonCategoryDisabled, "",
			fmt.Sprintf("the %s category is disabled in configuration", cls.Category))
	}

	capID, bound := tracker.CapabilityForCategory(cls.Category)
	if !bound || r.gate == nil {
		return r.degrade(ctx, req, ReasonCapabilityNotReady, capID,
			fmt.Sprintf("no capability is registered for the %s category", cls.Category))
	}

	status, err := r.gate.Status(capID)
	if err != nil || status != tracker.StatusCompleted {
		why := fmt.Sprintf("capability %q is %s, not completed", capID, status)
		if err != nil {
			why = fmt.Sprintf("capability %q could not be checked: %v", capID, err)
		}
		res := r.degrade(ctx, req, ReasonCapabilityNotReady, capID, why)
		return res
	}

	h, ok := r.taskHandlers[cls.Category]
	if !ok {
		return r.degrade(ctx, req, ReasonHandlerUnavailable, capID,
			fmt.Sprintf("no handler is registered for the %s category", cls.Category))
	}
	return r.run(ctx, h, req, r.opts.TaskTimeout)
}

// degrade answers through the conversational handler instead of the
// requested subsystem and flags the result. The reason and capability are
// also prefixed into the output so the user always sees what was unready.
func (r *Router) degrade(ctx context.Context, req Request, reason, capability, why string) HandlerResult {
	notice := fmt.Sprintf("[degraded: %s] %s", reason, why)

	if r.aiHandler == nil {
		return HandlerResult{
			Degraded:   true,
			Reason:     reason,
			Capability: capability,
			Output:     notice,
		}
	}

	res := r.run(ctx, r.aiHandler, req, r.opts.AITimeout)
	res.Degraded = true
	res.Reason = reason
	res.Capability = capability
	if res.Output != "" {
		res.Output = notice + "\n\n" + res.Output
	} else {
		res.Output = notice
	}
	// The fallback answered; its own error would only confuse the notice.
	res.Err = nil
	return res
}

// run executes a handler with an enforced timeout. On timeout the router
// stops waiting and returns a degraded result; tearing down the in-flight
// work is the handler's responsibility via ctx.
func (r *Router) run(ctx context.Context, h Handler, req Request, timeout time.Duration) HandlerResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := h.Handle(ctx, req)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		return HandlerResult{Output: o.output, Err: o.err}
	case <-ctx.Done():
		return HandlerResult{
			Degraded: true,
			Reason:   ReasonTimeout,
			Output:   fmt.Sprintf("[degraded: %s] the %s handler did not respond within %s", ReasonTimeout, h.Name(), timeout),
		}
	}
}

// record appends the turn to session history and emits audit/telemetry.
func (r *Router) record(turnID, input string, cls Classification, res HandlerResult, sess *session.Context) {
	sess.Append(session.Turn{
		ID:         turnID,
		Input:      input,
		Mode:       cls.Mode,
		Category:   cls.Category,
		IsTask:     cls.HasCategory,
		Confidence: cls.Confidence,
		Rules:      cls.MatchedRules,
		Degraded:   res.Degraded,
		Timestamp:  time.Now(),
	})

	eventType := audit.EventRoute
	if res.Degraded {
		eventType = audit.EventDegrade
	}
	category := ""
	if cls.HasCategory {
		category = cls.Category.String()
	}
	errStr := ""
	if res.Err != nil {
		errStr = res.Err.Error()
	}
	r.auditLog.Log(audit.Event{
		EventType:  eventType,
		SessionID:  sess.ID(),
		Input:      input,
		Mode:       cls.Mode.String(),
		Category:   category,
		Capability: res.Capability,
		Degraded:   res.Degraded,
		Reason:     res.Reason,
		Success:    res.Err == nil,
		Error:      errStr,
		Metadata:   map[string]string{"turn_id": turnID},
	})

	r.stats.Record(cls.Mode.String(), category, res.Degraded, res.Reason, res.Err, res.Duration)
}
