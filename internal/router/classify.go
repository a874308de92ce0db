// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"

	"github.com/jeranaias/aide/internal/pattern"
)

// MaxInputLength is the maximum accepted input line length in bytes (100KB).
// Longer input is classified conversational so the handler can say why.
const MaxInputLength = 100000

// ============================================================================
// CLASSIFIER
// ============================================================================

// Classifier scores an input line against the pattern library and picks the
// execution mode. It is a pure function of (input, pin): no I/O, no hidden
// state, identical input classifies identically.
type Classifier struct {
	lib *pattern.Library

	// shellSigil forces shell mode when the line starts with it.
	shellSigil string
	// aiSigils force conversational mode.
	aiSigils []string
	// defaultMode is the fallback when no rule matches: ModeShell or
	// ModeConversational.
	defaultMode pattern.Mode
}

// NewClassifier creates a classifier over the given pattern library.
func NewClassifier(lib *pattern.Library, shellSigil string, aiSigils []string, defaultMode pattern.Mode) *Classifier {
	if shellSigil == "" {
		shellSigil = "$"
	}
	if len(aiSigils) == 0 {
		aiSigils = []string{"ai:", "aide:"}
	}
	if defaultMode != pattern.ModeShell {
		defaultMode = pattern.ModeConversational
	}
	return &Classifier{
		lib:         lib,
		shellSigil:  shellSigil,
		aiSigils:    aiSigils,
		defaultMode: defaultMode,
	}
}

// Classify decides how one input line should be handled. Never fails:
// malformed or unmatched input falls back to the default mode with
// confidence 0. When pinned is non-nil that mode wins immediately with
// confidence 1.0; consuming the pin is the caller's job.
func (c *Classifier) Classify(input string, pinned *pattern.Mode) Classification {
	trimmed := strings.TrimSpace(input)

	// Explicit override always wins, lasts exactly one turn.
	if pinned != nil {
		cls := Classification{
			Mode:       *pinned,
			Confidence: 1.0,
			Body:       trimmed,
			Pinned:     true,
		}
		if *pinned == pattern.ModeTask {
			// A pinned task mode still needs a category; score for one and
			// fall back to General.
			cls.Category, cls.HasCategory = c.bestCategory(trimmed), true
		}
		return cls
	}

	if trimmed == "" {
		return Classification{Mode: pattern.ModeConversational, Body: trimmed}
	}

	// Reserved sigils short-circuit scoring entirely, whatever the body
	// holds or however long it is.
	if body, ok := strings.CutPrefix(trimmed, c.shellSigil); ok {
		return Classification{
			Mode:       pattern.ModeShell,
			Confidence: 1.0,
			Body:       strings.TrimSpace(body),
		}
	}
	lower := strings.ToLower(trimmed)
	for _, sigil := range c.aiSigils {
		if strings.HasPrefix(lower, sigil) {
			return Classification{
				Mode:       pattern.ModeConversational,
				Confidence: 1.0,
				Body:       strings.TrimSpace(trimmed[len(sigil):]),
			}
		}
	}

	// Only the scoring path is size-capped; oversized free text falls back
	// with confidence 0 instead of running the rule table over it.
	if len(input) > MaxInputLength {
		return Classification{Mode: pattern.ModeConversational, Body: trimmed}
	}

	return c.score(trimmed, lower)
}

// bucket identifies one scoring target: a mode, plus a category for task
// buckets.
type bucket struct {
	mode     pattern.Mode
	category pattern.TaskCategory
}

// tieOrder is the fixed bucket priority used when accumulated weights tie:
// task categories by their declared order, then shell, then conversational.
// A shell-shaped string is assumed literal before it is assumed a question.
func tieOrder() []bucket {
	order := make([]bucket, 0, 8)
	for _, cat := range pattern.Categories() {
		order = append(order, bucket{mode: pattern.ModeTask, category: cat})
	}
	order = append(order,
		bucket{mode: pattern.ModeShell},
		bucket{mode: pattern.ModeConversational},
	)
	return order
}

// score runs every library rule against the input and picks the heaviest
// bucket.
func (c *Classifier) score(trimmed, lower string) Classification {
	matched := c.lib.Match(lower)
	if len(matched) == 0 {
		return Classification{Mode: c.defaultMode, Body: trimmed}
	}

	weights := make(map[bucket]int)
	total := 0
	ruleIDs := make([]pattern.RuleID, 0, len(matched))
	for _, r := range matched {
		b := bucket{mode: r.Mode}
		if r.Mode == pattern.ModeTask {
			b.category = r.Category
		}
		weights[b] += r.Weight
		total += r.Weight
		ruleIDs = append(ruleIDs, r.ID)
	}

	// First bucket in tie order wins among equals.
	var winner bucket
	best := -1
	for _, b := range tieOrder() {
		if w := weights[b]; w > best {
			winner = b
			best = w
		}
	}

	cls := Classification{
		Mode:         winner.mode,
		Confidence:   float64(best) / float64(total),
		MatchedRules: ruleIDs,
		Body:         trimmed,
	}
	if winner.mode == pattern.ModeTask {
		cls.Category = winner.category
		cls.HasCategory = true
	}
	return cls
}

// bestCategory scores only the task buckets, defaulting to General.
func (c *Classifier) bestCategory(input string) pattern.TaskCategory {
	lower := strings.ToLower(input)
	weights := make(map[pattern.TaskCategory]int)
	for _, r := range c.lib.Match(lower) {
		if r.Mode == pattern.ModeTask {
			weights[r.Category] += r.Weight
		}
	}

	winner := pattern.CategoryGeneral
	best := 0
	for _, cat := range pattern.Categories() {
		if w := weights[cat]; w > best {
			winner = cat
			best = w
		}
	}
	return winner
}
