// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"
	"testing"

	"github.com/jeranaias/aide/internal/pattern"
)

func newTestClassifier() *Classifier {
	return NewClassifier(pattern.NewLibrary(), "$", []string{"ai:", "aide:"}, pattern.ModeConversational)
}

func TestClassifyShellSigil(t *testing.T) {
	c := newTestClassifier()

	// The sigil wins regardless of body content.
	tests := []struct {
		input string
		body  string
	}{
		{"$ ls -la", "ls -la"},
		{"$ what is the meaning of life?", "what is the meaning of life?"},
		{"$rm -rf build", "rm -rf build"},
	}
	for _, tt := range tests {
		cls := c.Classify(tt.input, nil)
		if cls.Mode != pattern.ModeShell {
			t.Errorf("Classify(%q): expected shell, got %s", tt.input, cls.Mode)
		}
		if cls.Confidence != 1.0 {
			t.Errorf("Classify(%q): expected confidence 1.0, got %v", tt.input, cls.Confidence)
		}
		if cls.Body != tt.body {
			t.Errorf("Classify(%q): expected body %q, got %q", tt.input, cls.Body, tt.body)
		}
	}
}

func TestClassifyAISigil(t *testing.T) {
	c := newTestClassifier()

	for _, input := range []string{
		"ai: how do I deploy to AWS?",
		"aide: ls -la",
		"AI: explain git rebase",
	} {
		cls := c.Classify(input, nil)
		if cls.Mode != pattern.ModeConversational {
			t.Errorf("Classify(%q): expected conversational, got %s", input, cls.Mode)
		}
		if cls.Confidence != 1.0 {
			t.Errorf("Classify(%q): expected confidence 1.0, got %v", input, cls.Confidence)
		}
	}
}

func TestClassifyModes(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		input    string
		mode     pattern.Mode
		category pattern.TaskCategory
	}{
		{"ls -la", pattern.ModeShell, 0},
		{"git status", pattern.ModeShell, 0},
		{"cd /tmp", pattern.ModeShell, 0},
		{"docker ps --all", pattern.ModeShell, 0},
		{"what is a goroutine", pattern.ModeConversational, 0},
		{"how does garbage collection work?", pattern.ModeConversational, 0},
		{"scan this project for vulnerabilities", pattern.ModeTask, pattern.CategorySecurity},
		{"research the best vector databases", pattern.ModeTask, pattern.CategoryResearch},
		{"deploy the staging environment", pattern.ModeTask, pattern.CategoryDevelopment},
	}

	for _, tt := range tests {
		cls := c.Classify(tt.input, nil)
		if cls.Mode != tt.mode {
			t.Errorf("Classify(%q): expected %s, got %s (rules %v)", tt.input, tt.mode, cls.Mode, cls.MatchedRules)
			continue
		}
		if tt.mode == pattern.ModeTask {
			if !cls.HasCategory || cls.Category != tt.category {
				t.Errorf("Classify(%q): expected category %s, got %s", tt.input, tt.category, cls.Category)
			}
		}
	}
}

func TestClassifyCategoryOnlyForTasks(t *testing.T) {
	c := newTestClassifier()
	for _, input := range []string{"ls -la", "what is docker", "$ pwd"} {
		cls := c.Classify(input, nil)
		if cls.HasCategory {
			t.Errorf("Classify(%q): category set for non-task mode %s", input, cls.Mode)
		}
	}
}

func TestClassifyUnmatchedFallsBack(t *testing.T) {
	c := newTestClassifier()

	cls := c.Classify("xyzzy plugh", nil)
	if cls.Mode != pattern.ModeConversational {
		t.Errorf("expected conversational fallback, got %s", cls.Mode)
	}
	if cls.Confidence != 0 {
		t.Errorf("expected confidence 0 for no match, got %v", cls.Confidence)
	}
	if len(cls.MatchedRules) != 0 {
		t.Errorf("expected no matched rules, got %v", cls.MatchedRules)
	}
}

func TestClassifyEmptyAndOversized(t *testing.T) {
	c := newTestClassifier()

	for _, input := range []string{"", "   ", strings.Repeat("a", MaxInputLength+1)} {
		cls := c.Classify(input, nil)
		if cls.Mode != pattern.ModeConversational {
			t.Errorf("Classify(len %d): expected conversational, got %s", len(input), cls.Mode)
		}
		if cls.Confidence != 0 {
			t.Errorf("expected confidence 0, got %v", cls.Confidence)
		}
	}
}

func TestClassifySigilWinsWhateverTheSize(t *testing.T) {
	c := newTestClassifier()

	// The sigil override holds for any body, including one past the
	// scoring size cap.
	long := "$ echo " + strings.Repeat("a", MaxInputLength)
	cls := c.Classify(long, nil)
	if cls.Mode != pattern.ModeShell {
		t.Fatalf("expected shell for oversized sigil input, got %s", cls.Mode)
	}
	if cls.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", cls.Confidence)
	}
	if !strings.HasPrefix(cls.Body, "echo ") {
		t.Errorf("expected sigil stripped from body, got prefix %q", cls.Body[:10])
	}

	cls = c.Classify("ai: summarize "+strings.Repeat("b", MaxInputLength), nil)
	if cls.Mode != pattern.ModeConversational || cls.Confidence != 1.0 {
		t.Errorf("expected conversational/1.0 for oversized ai sigil input, got %s/%v",
			cls.Mode, cls.Confidence)
	}
}

func TestClassifyPinnedModeWins(t *testing.T) {
	c := newTestClassifier()

	shell := pattern.ModeShell
	cls := c.Classify("what is the meaning of life?", &shell)
	if cls.Mode != pattern.ModeShell {
		t.Errorf("expected pinned shell mode, got %s", cls.Mode)
	}
	if cls.Confidence != 1.0 || !cls.Pinned {
		t.Errorf("expected pinned classification with confidence 1.0, got %+v", cls)
	}

	task := pattern.ModeTask
	cls = c.Classify("just do something", &task)
	if cls.Mode != pattern.ModeTask || !cls.HasCategory {
		t.Errorf("expected pinned task mode with category, got %+v", cls)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := newTestClassifier()
	input := "scan the repo for security issues and audit dependencies"

	first := c.Classify(input, nil)
	for i := 0; i < 5; i++ {
		got := c.Classify(input, nil)
		if got.Mode != first.Mode || got.Category != first.Category || got.Confidence != first.Confidence {
			t.Fatalf("classification not stable: %+v vs %+v", first, got)
		}
	}
}

func TestClassifyPriorityTieBreak(t *testing.T) {
	// Two rules with identical weight, one Security and one General: the
	// category order decides.
	lib := pattern.NewLibrary()
	c := NewClassifier(lib, "$", nil, pattern.ModeConversational)

	cls := c.Classify("harden the server and automate the backup workflow", nil)
	if cls.Mode != pattern.ModeTask {
		t.Fatalf("expected task mode, got %s (rules %v)", cls.Mode, cls.MatchedRules)
	}
	if cls.Category != pattern.CategorySecurity {
		t.Errorf("expected Security to win the tie, got %s", cls.Category)
	}
}

func TestClassifyConfidenceNormalized(t *testing.T) {
	c := newTestClassifier()

	for _, input := range []string{
		"ls -la",
		"git push --force",
		"scan for vulnerabilities in production",
		"how do I write a goroutine?",
	} {
		cls := c.Classify(input, nil)
		if cls.Confidence < 0 || cls.Confidence > 1 {
			t.Errorf("Classify(%q): confidence %v outside [0,1]", input, cls.Confidence)
		}
		if len(cls.MatchedRules) > 0 && cls.Confidence == 0 {
			t.Errorf("Classify(%q): matched rules but zero confidence", input)
		}
	}
}
