// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package handlers provides the execution subsystems the router dispatches
// to: shell passthrough, conversational AI, and per-category task engines.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/jeranaias/aide/internal/router"
)

// =============================================================================
// DANGEROUS COMMAND GUARD
// =============================================================================

// dangerousPatterns flag commands that can destroy data or the machine.
// Matched against the lowercased command line.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-z]*[rf][a-z]*\s+)+(/|~|\$home)(\s|$)`),
	regexp.MustCompile(`\bmkfs(\.\w+)?\b`),
	regexp.MustCompile(`\bdd\b.*\bof=/dev/`),
	regexp.MustCompile(`>\s*/dev/(sd|nvme|hd)`),
	regexp.MustCompile(`:\(\)\s*\{.*\};\s*:`),
	regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`),
	regexp.MustCompile(`\bchmod\s+(-[a-z]+\s+)*777\s+/(\s|$)`),
}

// IsDangerous reports whether a command line matches a destructive pattern.
func IsDangerous(command string) bool {
	lower := strings.ToLower(command)
	for _, re := range dangerousPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// =============================================================================
// SHELL HANDLER
// =============================================================================

// ShellHandler executes input as a shell command in the session's working
// directory. A leading "cd" is intercepted and reported through OnChdir
// instead of spawning a shell, so the session can track its cwd.
type ShellHandler struct {
	// Shell is the interpreter (default "sh").
	Shell string

	// ConfirmDangerous refuses destructive commands unless Confirm approves.
	ConfirmDangerous bool
	// Confirm is asked before running a dangerous command. Nil means refuse.
	Confirm func(command string) bool

	// OnChdir is called when the user runs "cd <dir>" so the owning session
	// can update its working directory. The handler itself holds no state.
	OnChdir func(dir string) error
}

// NewShellHandler creates a shell passthrough handler.
func NewShellHandler(confirmDangerous bool) *ShellHandler {
	return &ShellHandler{
		Shell:            "sh",
		ConfirmDangerous: confirmDangerous,
	}
}

// Name implements router.Handler.
func (h *ShellHandler) Name() string { return "shell" }

// Handle runs the command and returns its combined output. A non-zero exit
// returns the output alongside the error so the caller can show both.
func (h *ShellHandler) Handle(ctx context.Context, req router.Request) (string, error) {
	command := strings.TrimSpace(req.Input)
	if command == "" {
		return "", nil
	}

	// cd never spawns a shell; it would change nothing in the parent.
	if dir, ok := chdirTarget(command); ok {
		if h.OnChdir == nil {
			return "", fmt.Errorf("cd is not supported here")
		}
		if err := h.OnChdir(dir); err != nil {
			return "", err
		}
		return "", nil
	}

	if h.ConfirmDangerous && IsDangerous(command) {
		if h.Confirm == nil || !h.Confirm(command) {
			return "", fmt.Errorf("refusing to run %q: command looks destructive", command)
		}
	}

	shell := h.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = req.Session.Cwd

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	out := buf.String()
	if err != nil {
		return out, fmt.Errorf("command failed: %w", err)
	}
	return out, nil
}

// chdirTarget extracts the destination of a bare cd command.
func chdirTarget(command string) (string, bool) {
	fields := strings.Fields(command)
	if len(fields) == 0 || fields[0] != "cd" {
		return "", false
	}
	if len(fields) == 1 {
		return "~", true
	}
	return fields[1], true
}
