// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/aide/internal/router"
)

// =============================================================================
// AI CLIENT TYPES
// =============================================================================

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type apiError struct {
	Error string `json:"error"`
}

// ErrRateLimited is returned when the local rate limit refuses a call.
var ErrRateLimited = errors.New("ai request rate limit exceeded")

// =============================================================================
// AI HANDLER
// =============================================================================

// systemPrompt frames the model as the conversational side of the assistant.
const systemPrompt = "You are aide, a concise command-line assistant. " +
	"Answer directly; prefer short shell examples over prose where they help."

// historyTurns is how many prior turns are replayed as chat context.
const historyTurns = 10

// AIHandler answers conversational input through an Ollama-compatible chat
// endpoint, replaying recent session history as context.
type AIHandler struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewAIHandler creates a conversational handler. requestsPerMinute of 0
// disables rate limiting.
func NewAIHandler(baseURL, model string, requestsPerMinute int) *AIHandler {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
	return &AIHandler{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
		limiter: limiter,
	}
}

// Name implements router.Handler.
func (h *AIHandler) Name() string { return "ai" }

// Handle implements router.Handler.
func (h *AIHandler) Handle(ctx context.Context, req router.Request) (string, error) {
	if h.limiter != nil && !h.limiter.Allow() {
		return "", ErrRateLimited
	}

	messages := []Message{{Role: "system", Content: systemPrompt}}
	// Replay recent turns so follow-up questions have context.
	history := req.Session.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, turn := range history {
		messages = append(messages, Message{Role: "user", Content: turn.Input})
	}
	messages = append(messages, Message{Role: "user", Content: req.Input})

	return h.chat(ctx, messages)
}

// chat sends a non-streaming chat request.
func (h *AIHandler) chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    h.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ai endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("ai request failed: %s", apiErr.Error)
		}
		return "", fmt.Errorf("ai request failed: %s", resp.Status)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return result.Message.Content, nil
}
