// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides JSON-lines audit logging of routing decisions and
// tracker transitions, with secret redaction and size-based rotation.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxInputLength is the maximum length of input to log before truncation.
const MaxInputLength = 200

// DefaultMaxFileSize is the default max file size before rotation (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Event types recorded by the router and tracker.
const (
	EventRoute      = "route"
	EventDegrade    = "degrade"
	EventTransition = "transition"
	EventShellExec  = "shell_exec"
	EventReset      = "reset"
)

// =============================================================================
// EVENT
// =============================================================================

// Event is a single audit log entry.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	SessionID  string            `json:"session_id,omitempty"`
	Input      string            `json:"input,omitempty"` // Truncated/redacted
	Mode       string            `json:"mode,omitempty"`
	Category   string            `json:"category,omitempty"`
	Capability string            `json:"capability,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// =============================================================================
// SECRET REDACTION
// =============================================================================

// secretPatterns defines patterns for common API keys and secrets. Inputs are
// free-form command lines, so anything token-shaped gets scrubbed before it
// touches disk.
var secretPatterns = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "[API_KEY_REDACTED]"},
	{regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`), "[GITHUB_TOKEN_REDACTED]"},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), "[AWS_KEY_REDACTED]"},
	{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_.]+`), "Bearer [TOKEN_REDACTED]"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*\S+`), "[PASSWORD_REDACTED]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), "[JWT_REDACTED]"},
}

// Redact replaces known secret shapes in the input string.
func Redact(input string) string {
	for _, sp := range secretPatterns {
		input = sp.pattern.ReplaceAllString(input, sp.replace)
	}
	return input
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger provides thread-safe JSON-lines audit logging with rotation.
type Logger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	enabled bool
	maxSize int64
}

// New creates an audit logger appending to the given path.
func New(path string) (*Logger, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".aide", "audit.log")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		path:    path,
		file:    file,
		enabled: true,
		maxSize: DefaultMaxFileSize,
	}, nil
}

// Disabled returns a logger that drops every event.
func Disabled() *Logger {
	return &Logger{enabled: false}
}

// SetMaxSize overrides the rotation threshold.
func (l *Logger) SetMaxSize(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.maxSize = n
	}
}

// Log writes an audit event as one JSON line. The input field is redacted
// and truncated before serialization.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || l.file == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Input = truncate(Redact(event.Input), MaxInputLength)

	if err := l.maybeRotateLocked(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// maybeRotateLocked rotates the log file when it exceeds maxSize. The old
// file keeps a timestamp suffix; rotation failures are returned, not fatal.
func (l *Logger) maybeRotateLocked() error {
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxSize {
		return err
	}

	if err := l.file.Close(); err != nil {
		return err
	}

	ext := filepath.Ext(l.path)
	base := l.path[:len(l.path)-len(ext)]
	rotated := fmt.Sprintf("%s_%s%s", base, time.Now().UTC().Format("20060102T150405"), ext)
	renameErr := os.Rename(l.path, rotated)

	// Reopen the live path either way: after a failed rename the old handle
	// is already closed, and holding it would fail every later Log call.
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		l.file = nil
		return fmt.Errorf("failed to reopen audit log: %w", err)
	}
	l.file = file

	if renameErr != nil {
		return fmt.Errorf("failed to rotate audit log: %w", renameErr)
	}
	return nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
