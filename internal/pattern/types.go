// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pattern provides the static rule library used to classify input.
package pattern

import "fmt"

// =============================================================================
// MODE
// =============================================================================

// Mode represents the execution subsystem an input line is routed to.
type Mode int

const (
	// ModeShell passes the line to the native shell unchanged.
	ModeShell Mode = iota
	// ModeConversational sends the line to the AI responder.
	ModeConversational
	// ModeTask dispatches the line to an autonomous task engine.
	ModeTask
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeShell:
		return "Shell"
	case ModeConversational:
		return "Conversational"
	case ModeTask:
		return "Task"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// ParseMode parses a mode name as used in config files and the REPL
// "mode" command. Accepts "shell", "ai"/"conversational", "task".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "shell":
		return ModeShell, nil
	case "ai", "conversational":
		return ModeConversational, nil
	case "task":
		return ModeTask, nil
	default:
		return ModeConversational, fmt.Errorf("unknown mode %q (want shell, ai, or task)", s)
	}
}

// =============================================================================
// TASK CATEGORY
// =============================================================================

// TaskCategory identifies one autonomous task engine.
//
// The declaration order is the fixed dispatch priority: when an input matches
// more than one category with equal weight, the earlier category wins.
// Security outranks everything so destructive or compliance-sensitive intents
// are never silently downgraded to a generic handler.
type TaskCategory int

const (
	// CategorySecurity covers vulnerability scanning and compliance checks.
	CategorySecurity TaskCategory = iota
	// CategoryResearch covers web research and information synthesis.
	CategoryResearch
	// CategoryCode covers code intelligence and editing tasks.
	CategoryCode
	// CategoryDevelopment covers project scaffolding and deployment.
	CategoryDevelopment
	// CategorySystem covers local system inspection and control.
	CategorySystem
	// CategoryGeneral is the fallback autonomous category.
	CategoryGeneral

	numCategories
)

// Categories returns all task categories in priority order.
func Categories() []TaskCategory {
	out := make([]TaskCategory, 0, int(numCategories))
	for c := CategorySecurity; c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// String returns the human-readable name of the category.
func (c TaskCategory) String() string {
	switch c {
	case CategorySecurity:
		return "Security"
	case CategoryResearch:
		return "Research"
	case CategoryCode:
		return "Code"
	case CategoryDevelopment:
		return "Development"
	case CategorySystem:
		return "System"
	case CategoryGeneral:
		return "General"
	default:
		return fmt.Sprintf("TaskCategory(%d)", c)
	}
}

// ParseCategory parses a category name (case-sensitive, lowercase) as used in
// config and rules files.
func ParseCategory(s string) (TaskCategory, error) {
	switch s {
	case "security":
		return CategorySecurity, nil
	case "research":
		return CategoryResearch, nil
	case "code":
		return CategoryCode, nil
	case "development":
		return CategoryDevelopment, nil
	case "system":
		return CategorySystem, nil
	case "general":
		return CategoryGeneral, nil
	default:
		return CategoryGeneral, fmt.Errorf("unknown task category %q", s)
	}
}

// =============================================================================
// RULE ID
// =============================================================================

// RuleID identifies a single rule in the library. Builtin rule ids are stable
// across releases; user rule ids come from the rules file.
type RuleID string
