// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/aide/internal/router"
	"github.com/jeranaias/aide/internal/session"
)

func newChatServer(t *testing.T, reply string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if capture != nil {
			*capture = req
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: reply},
			Done:    true,
		})
	}))
}

func TestAIHandlerChat(t *testing.T) {
	var captured chatRequest
	srv := newChatServer(t, "use git rebase -i", &captured)
	defer srv.Close()

	h := NewAIHandler(srv.URL, "test-model", 0)
	out, err := h.Handle(context.Background(), router.Request{
		Input:   "how do I squash commits?",
		Session: session.Snapshot{},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != "use git rebase -i" {
		t.Errorf("unexpected reply %q", out)
	}
	if captured.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", captured.Model)
	}
	if captured.Stream {
		t.Error("expected non-streaming request")
	}
	if len(captured.Messages) < 2 || captured.Messages[0].Role != "system" {
		t.Errorf("expected system prompt first, got %+v", captured.Messages)
	}
}

func TestAIHandlerReplaysHistory(t *testing.T) {
	var captured chatRequest
	srv := newChatServer(t, "ok", &captured)
	defer srv.Close()

	h := NewAIHandler(srv.URL, "m", 0)
	snap := session.Snapshot{
		History: []session.Turn{
			{Input: "what is docker?"},
			{Input: "and compose?"},
		},
	}
	if _, err := h.Handle(context.Background(), router.Request{Input: "show an example", Session: snap}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	// system + 2 history turns + current input
	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[1].Content != "what is docker?" {
		t.Errorf("expected history replayed in order, got %+v", captured.Messages)
	}
	if captured.Messages[3].Content != "show an example" {
		t.Errorf("expected current input last, got %+v", captured.Messages)
	}
}

func TestAIHandlerEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(apiError{Error: "model not loaded"})
	}))
	defer srv.Close()

	h := NewAIHandler(srv.URL, "m", 0)
	_, err := h.Handle(context.Background(), router.Request{Input: "hi"})
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("expected endpoint error surfaced, got %v", err)
	}
}

func TestAIHandlerRateLimit(t *testing.T) {
	srv := newChatServer(t, "ok", nil)
	defer srv.Close()

	// One request per minute with burst 1: the second immediate call is
	// refused locally.
	h := NewAIHandler(srv.URL, "m", 1)
	if _, err := h.Handle(context.Background(), router.Request{Input: "first"}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}
	_, err := h.Handle(context.Background(), router.Request{Input: "second"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
