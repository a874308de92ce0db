// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pattern provides the static rule library used to classify input.
package pattern

import (
	"fmt"
	"regexp"
)

// =============================================================================
// RULE
// =============================================================================

// Rule is one classification signature. A rule that matches contributes its
// weight to the bucket identified by (Mode, Category).
type Rule struct {
	// ID identifies the rule in classification traces.
	ID RuleID

	// Mode is the bucket this rule votes for.
	Mode Mode

	// Category is set only when Mode is ModeTask.
	Category TaskCategory

	// Weight is the score contributed on match. Higher means a stronger
	// signal; weights are small integers (1-3) by convention.
	Weight int

	// Pattern is the regular expression source, matched against the
	// lowercased input line.
	Pattern string

	re *regexp.Regexp
}

// compile compiles the rule pattern. Called once at library load.
func (r *Rule) compile() error {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("rule %s: invalid pattern %q: %w", r.ID, r.Pattern, err)
	}
	r.re = re
	return nil
}

// Matches reports whether the rule matches the (already lowercased) input.
func (r *Rule) Matches(lower string) bool {
	return r.re != nil && r.re.MatchString(lower)
}

// =============================================================================
// BUILTIN RULES
// =============================================================================

// builtinRules is the static signature table. Order matters only for the
// matched-rule trace; scoring is order-independent.
//
// Shell signatures favor literal command shapes (known verbs, flag syntax,
// pipes, path tokens). Conversational signatures favor interrogatives and
// polite requests. Task signatures are per-category action phrases.
func builtinRules() []Rule {
	return []Rule{
		// --- Shell: known command verbs at start of line
		{ID: "shell-verb", Mode: ModeShell, Weight: 3,
			Pattern: `^(ls|cd|pwd|mkdir|rm|cp|mv|grep|find|cat|echo|chmod|chown|touch|head|tail|sort|uniq|wc|tar|curl|wget|ssh|kill|man)(\s|$)`},
		// --- Shell: git and package managers
		{ID: "shell-tool", Mode: ModeShell, Weight: 3,
			Pattern: `^(git|npm|pip|apt|yum|brew|go|cargo|docker|make|kubectl)\s+\S`},
		// --- Shell: system inspection commands
		{ID: "shell-sysinfo", Mode: ModeShell, Weight: 2,
			Pattern: `^(ps|top|htop|df|du|free|uname|whoami|which|whereis|env|date)(\s|$)`},
		// --- Shell: flag syntax anywhere
		{ID: "shell-flags", Mode: ModeShell, Weight: 2,
			Pattern: `\s--?[a-z]`},
		// --- Shell: pipes and logical operators
		{ID: "shell-pipe", Mode: ModeShell, Weight: 2,
			Pattern: `\|\s*\S|&&|\|\|`},
		// --- Shell: path-like leading token
		{ID: "shell-path", Mode: ModeShell, Weight: 2,
			Pattern: `^(\./|/|~/)`},
		// --- Shell: redirection
		{ID: "shell-redirect", Mode: ModeShell, Weight: 1,
			Pattern: `\s(>|>>|<)\s`},

		// --- Conversational: interrogative openers
		{ID: "chat-interrogative", Mode: ModeConversational, Weight: 3,
			Pattern: `^(what|how|why|when|where|who|which|can you|could you|would you|do you|are you|is it|should i)\b`},
		// --- Conversational: trailing question mark
		{ID: "chat-question-mark", Mode: ModeConversational, Weight: 2,
			Pattern: `\?$`},
		// --- Conversational: inquiry phrases
		{ID: "chat-inquiry", Mode: ModeConversational, Weight: 2,
			Pattern: `^(tell me|explain|describe|help me|show me|i need|i want|i would like|please)\b`},
		// --- Conversational: greetings and pleasantries
		{ID: "chat-greeting", Mode: ModeConversational, Weight: 3,
			Pattern: `^(hello|hi|hey|thanks|thank you|good (morning|afternoon|evening)|goodbye|bye)\b`},

		// --- Security
		{ID: "task-security-scan", Mode: ModeTask, Category: CategorySecurity, Weight: 3,
			Pattern: `\b(scan|audit)\b.*\b(vulnerabilit|security|compliance|secret|dependenc)`},
		{ID: "task-security-terms", Mode: ModeTask, Category: CategorySecurity, Weight: 3,
			Pattern: `\b(vulnerabilit(y|ies)|cve|pentest|exploit|security (scan|audit|review)|compliance check)`},
		{ID: "task-security-harden", Mode: ModeTask, Category: CategorySecurity, Weight: 2,
			Pattern: `\b(harden|rotate (keys|credentials)|check permissions)\b`},

		// --- Research
		{ID: "task-research-verb", Mode: ModeTask, Category: CategoryResearch, Weight: 3,
			Pattern: `^(research|investigate|look up|find out about)\b`},
		{ID: "task-research-synthesize", Mode: ModeTask, Category: CategoryResearch, Weight: 2,
			Pattern: `\b(summarize|compare)\b.*\b(article|paper|options|approaches|tools)`},

		// --- Code
		{ID: "task-code-verb", Mode: ModeTask, Category: CategoryCode, Weight: 3,
			Pattern: `\b(refactor|implement|debug)\b`},
		{ID: "task-code-write", Mode: ModeTask, Category: CategoryCode, Weight: 3,
			Pattern: `\b(write|generate|fix)\b.*\b(function|code|test|bug|class|module)`},
		{ID: "task-code-review", Mode: ModeTask, Category: CategoryCode, Weight: 2,
			Pattern: `\breview\b.*\b(code|diff|pr|pull request)`},

		// --- Development
		{ID: "task-dev-create", Mode: ModeTask, Category: CategoryDevelopment, Weight: 3,
			Pattern: `\b(create|build|make|scaffold)\b.*\b(app|application|website|web project|project|component|api|service)`},
		{ID: "task-dev-deploy", Mode: ModeTask, Category: CategoryDevelopment, Weight: 3,
			Pattern: `\bdeploy\b`},

		// --- System
		{ID: "task-system-info", Mode: ModeTask, Category: CategorySystem, Weight: 3,
			Pattern: `\b(system|disk|memory|cpu)\b.*\b(info|usage|status|space)`},
		{ID: "task-system-monitor", Mode: ModeTask, Category: CategorySystem, Weight: 2,
			Pattern: `\b(monitor|watch)\b.*\b(process|resource|system|log)`},
		{ID: "task-system-launch", Mode: ModeTask, Category: CategorySystem, Weight: 2,
			Pattern: `^(open|launch|start)\b.*\b(app|application|browser|editor|window)`},

		// --- General
		{ID: "task-general-automate", Mode: ModeTask, Category: CategoryGeneral, Weight: 2,
			Pattern: `\b(automate|workflow|schedule|remind me)\b`},
		{ID: "task-general-todo", Mode: ModeTask, Category: CategoryGeneral, Weight: 1,
			Pattern: `\b(todo|task list|track)\b`},
	}
}
