// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/session"
	"github.com/jeranaias/aide/internal/tracker"
)

// stubHandler records the requests it receives and returns a fixed response.
type stubHandler struct {
	name  string
	calls []Request
	out   string
	err   error
	delay time.Duration
}

func (s *stubHandler) Name() string { return s.name }

func (s *stubHandler) Handle(ctx context.Context, req Request) (string, error) {
	s.calls = append(s.calls, req)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.out, s.err
}

// stubGate serves capability status from a map.
type stubGate struct {
	statuses map[string]tracker.Status
	err      error
}

func (g *stubGate) Status(id string) (tracker.Status, error) {
	if g.err != nil {
		return tracker.StatusPending, g.err
	}
	return g.statuses[id], nil
}

func newTestRouter(gate CapabilityGate, opts Options) (*Router, *stubHandler, *stubHandler) {
	shell := &stubHandler{name: "shell", out: "shell output"}
	ai := &stubHandler{name: "ai", out: "ai output"}
	r := New(newTestClassifier(), gate, opts)
	r.RegisterShell(shell)
	r.RegisterConversational(ai)
	return r, shell, ai
}

func TestRouteShellPassthrough(t *testing.T) {
	r, shell, ai := newTestRouter(&stubGate{}, Options{})
	sess := session.NewContext("/tmp", 10)

	res := r.Route(context.Background(), "$ ls -la", sess)
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %+v", res)
	}
	if res.Output != "shell output" {
		t.Errorf("expected shell output, got %q", res.Output)
	}
	if len(shell.calls) != 1 || len(ai.calls) != 0 {
		t.Fatalf("expected exactly one shell call, got shell=%d ai=%d", len(shell.calls), len(ai.calls))
	}
	if shell.calls[0].Input != "ls -la" {
		t.Errorf("expected sigil stripped from dispatch input, got %q", shell.calls[0].Input)
	}
}

func TestRouteTaskCapabilityGate(t *testing.T) {
	capID, _ := tracker.CapabilityForCategory(pattern.CategorySecurity)
	gate := &stubGate{statuses: map[string]tracker.Status{}}
	r, _, ai := newTestRouter(gate, Options{})
	secHandler := &stubHandler{name: "security", out: "scan complete"}
	r.RegisterTask(pattern.CategorySecurity, secHandler)
	sess := session.NewContext("/tmp", 10)

	input := "scan this project for vulnerabilities"

	// Capability pending: degraded conversational result naming the
	// capability, task handler never invoked.
	res := r.Route(context.Background(), input, sess)
	if !res.Degraded || res.Reason != ReasonCapabilityNotReady {
		t.Fatalf("expected capability-not-ready degrade, got %+v", res)
	}
	if res.Capability != capID {
		t.Errorf("expected capability %q named in result, got %q", capID, res.Capability)
	}
	if !strings.Contains(res.Output, capID) {
		t.Errorf("expected output to name the unready capability, got %q", res.Output)
	}
	if len(secHandler.calls) != 0 {
		t.Error("task handler must not run while its capability is pending")
	}
	if len(ai.calls) != 1 {
		t.Errorf("expected conversational fallback to run, got %d calls", len(ai.calls))
	}

	// Completed capability: the identical input dispatches to the handler.
	gate.statuses[capID] = tracker.StatusCompleted
	res = r.Route(context.Background(), input, sess)
	if res.Degraded {
		t.Fatalf("expected clean dispatch after completion, got %+v", res)
	}
	if res.Output != "scan complete" {
		t.Errorf("expected security handler output, got %q", res.Output)
	}
	if len(secHandler.calls) != 1 {
		t.Errorf("expected security handler invoked once, got %d", len(secHandler.calls))
	}
}

func TestRouteTaskHandlerUnavailable(t *testing.T) {
	capID, _ := tracker.CapabilityForCategory(pattern.CategorySecurity)
	gate := &stubGate{statuses: map[string]tracker.Status{capID: tracker.StatusCompleted}}
	r, _, _ := newTestRouter(gate, Options{})
	sess := session.NewContext("/tmp", 10)

	res := r.Route(context.Background(), "scan this project for vulnerabilities", sess)
	if !res.Degraded || res.Reason != ReasonHandlerUnavailable {
		t.Fatalf("expected handler-unavailable degrade, got %+v", res)
	}
}

func TestRouteCategoryDisabled(t *testing.T) {
	capID, _ := tracker.CapabilityForCategory(pattern.CategorySecurity)
	gate := &stubGate{statuses: map[string]tracker.Status{capID: tracker.StatusCompleted}}
	r, _, _ := newTestRouter(gate, Options{
		DisabledCategories: map[pattern.TaskCategory]bool{pattern.CategorySecurity: true},
	})
	secHandler := &stubHandler{name: "security"}
	r.RegisterTask(pattern.CategorySecurity, secHandler)
	sess := session.NewContext("/tmp", 10)

	res := r.Route(context.Background(), "scan this project for vulnerabilities", sess)
	if !res.Degraded || res.Reason != ReasonCategoryDisabled {
		t.Fatalf("expected category-disabled degrade, got %+v", res)
	}
	if len(secHandler.calls) != 0 {
		t.Error("disabled category handler must not run")
	}
}

func TestRouteTimeout(t *testing.T) {
	r, shell, _ := newTestRouter(&stubGate{}, Options{ShellTimeout: 20 * time.Millisecond})
	shell.delay = time.Second
	sess := session.NewContext("/tmp", 10)

	start := time.Now()
	res := r.Route(context.Background(), "$ sleep 5", sess)
	if !res.Degraded || res.Reason != ReasonTimeout {
		t.Fatalf("expected timeout degrade, got %+v", res)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("router should stop waiting at the timeout, not block on the handler")
	}
}

func TestRouteHandlerError(t *testing.T) {
	r, shell, _ := newTestRouter(&stubGate{}, Options{})
	shell.err = errors.New("exit status 1")
	sess := session.NewContext("/tmp", 10)

	res := r.Route(context.Background(), "$ false", sess)
	if res.Degraded {
		t.Error("a handler error is not a degraded result")
	}
	if res.Err == nil {
		t.Error("expected handler error surfaced")
	}
}

func TestRouteAppendsHistory(t *testing.T) {
	r, _, _ := newTestRouter(&stubGate{}, Options{})
	sess := session.NewContext("/tmp", 3)

	for i := 0; i < 5; i++ {
		r.Route(context.Background(), fmt.Sprintf("$ echo %d", i), sess)
	}

	hist := sess.History()
	if len(hist) != 3 {
		t.Fatalf("expected history bounded at 3, got %d", len(hist))
	}
	if hist[2].Input != "$ echo 4" {
		t.Errorf("expected newest turn last, got %q", hist[2].Input)
	}
	if hist[0].Mode != pattern.ModeShell {
		t.Errorf("expected shell mode recorded, got %s", hist[0].Mode)
	}
	if hist[0].ID == "" {
		t.Error("expected turn id assigned")
	}
}

func TestRoutePinConsumedAfterOneTurn(t *testing.T) {
	r, shell, ai := newTestRouter(&stubGate{}, Options{})
	sess := session.NewContext("/tmp", 10)

	sess.Pin(pattern.ModeShell)
	res := r.Route(context.Background(), "what time is it?", sess)
	if res.Classification.Mode != pattern.ModeShell || !res.Classification.Pinned {
		t.Fatalf("expected pinned shell classification, got %+v", res.Classification)
	}
	if len(shell.calls) != 1 {
		t.Fatalf("expected shell handler invoked under pin, got %d", len(shell.calls))
	}

	// Next turn classifies normally.
	res = r.Route(context.Background(), "what time is it?", sess)
	if res.Classification.Mode != pattern.ModeConversational {
		t.Errorf("expected pin cleared after one turn, got %s", res.Classification.Mode)
	}
	if len(ai.calls) != 1 {
		t.Errorf("expected conversational handler on second turn, got %d", len(ai.calls))
	}
}

func TestRouteGateError(t *testing.T) {
	r, _, _ := newTestRouter(&stubGate{err: errors.New("db locked")}, Options{})
	sess := session.NewContext("/tmp", 10)

	// A tracker read failure mid-session degrades, never crashes.
	res := r.Route(context.Background(), "scan this project for vulnerabilities", sess)
	if !res.Degraded || res.Reason != ReasonCapabilityNotReady {
		t.Fatalf("expected degrade on gate error, got %+v", res)
	}
	if res.Err != nil {
		t.Errorf("degraded result should carry no handler error, got %v", res.Err)
	}
}
