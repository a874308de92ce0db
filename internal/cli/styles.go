// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Lip Gloss styles and markdown rendering for the aide CLI.
//
// All colors use AdaptiveColor so light and dark terminals both read well.
package cli

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTE
// =============================================================================

var (
	// Cyan - prompts, commands, info
	cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Emerald - success, completed capabilities, shell mode
	emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Amber - warnings, degraded results, in-progress capabilities
	amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Rose - errors
	rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Muted - timestamps, hints, pending capabilities
	muted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

	// Secondary - labels
	secondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	shellStyle = lipgloss.NewStyle().
			Foreground(emerald)

	degradedStyle = lipgloss.NewStyle().
			Foreground(amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(rose)

	infoStyle = lipgloss.NewStyle().
			Foreground(secondary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	headerStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(emerald)
)

// colorize applies a style only when colors are enabled.
func colorize(st lipgloss.Style, s string) string {
	if !ColorsEnabled() {
		return s
	}
	return st.Render(s)
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders AI responses with formatting and highlighting.
// Nil when initialization fails; callers fall back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(DefaultTerminalWidth),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display. Returns the
// original content if rendering is unavailable or fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
