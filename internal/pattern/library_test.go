// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pattern

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestBuiltinRulesCompile guards the static table: every builtin pattern must
// compile and every rule must carry a unique id.
func TestBuiltinRulesCompile(t *testing.T) {
	rules := builtinRules()
	seen := make(map[RuleID]bool)

	for i := range rules {
		if err := rules[i].compile(); err != nil {
			t.Errorf("builtin rule %s does not compile: %v", rules[i].ID, err)
		}
		if rules[i].Weight <= 0 {
			t.Errorf("builtin rule %s has non-positive weight %d", rules[i].ID, rules[i].Weight)
		}
		if seen[rules[i].ID] {
			t.Errorf("duplicate builtin rule id %s", rules[i].ID)
		}
		seen[rules[i].ID] = true
	}
}

// TestBuiltinRulesTaskCategories verifies task rules carry a category and
// non-task rules do not rely on one.
func TestBuiltinRulesTaskCategories(t *testing.T) {
	for _, r := range builtinRules() {
		if r.Mode == ModeTask && !strings.HasPrefix(string(r.ID), "task-") {
			t.Errorf("task rule %s should use the task- id prefix", r.ID)
		}
		if r.Mode != ModeTask && strings.HasPrefix(string(r.ID), "task-") {
			t.Errorf("non-task rule %s uses the task- id prefix", r.ID)
		}
	}
}

func TestLibraryMatch(t *testing.T) {
	lib := NewLibrary()

	tests := []struct {
		name   string
		input  string
		wantID RuleID
		mode   Mode
	}{
		{"shell_verb", "ls -la /tmp", "shell-verb", ModeShell},
		{"git_command", "git status", "shell-tool", ModeShell},
		{"question", "what is a goroutine", "chat-interrogative", ModeConversational},
		{"security_scan", "scan this project for vulnerabilities", "task-security-scan", ModeTask},
		{"research", "research the best sqlite drivers", "task-research-verb", ModeTask},
		{"deploy", "deploy the staging site", "task-dev-deploy", ModeTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := lib.Match(strings.ToLower(tt.input))
			found := false
			for _, r := range matched {
				if r.ID == tt.wantID {
					found = true
					if r.Mode != tt.mode {
						t.Errorf("rule %s mode = %v, want %v", r.ID, r.Mode, tt.mode)
					}
				}
			}
			if !found {
				t.Errorf("input %q did not match rule %s (matched: %v)", tt.input, tt.wantID, ruleIDs(matched))
			}
		})
	}
}

func TestLibraryLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")

	content := `
[[rule]]
id = "my-deploys"
mode = "task"
category = "development"
pattern = "\\bship it\\b"
weight = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	builtins := lib.Len()

	if err := lib.LoadFile(path); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if lib.Len() != builtins+1 {
		t.Errorf("expected %d rules after load, got %d", builtins+1, lib.Len())
	}

	matched := lib.Match("ship it to prod")
	found := false
	for _, r := range matched {
		if r.ID == "my-deploys" {
			found = true
			if r.Category != CategoryDevelopment {
				t.Errorf("user rule category = %v, want Development", r.Category)
			}
		}
	}
	if !found {
		t.Error("user rule my-deploys did not match")
	}
}

func TestLibraryLoadFileMissing(t *testing.T) {
	lib := NewLibrary()
	builtins := lib.Len()

	if err := lib.LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err != nil {
		t.Fatalf("missing rules file should not be an error, got %v", err)
	}
	if lib.Len() != builtins {
		t.Errorf("missing file should leave builtins only, got %d rules", lib.Len())
	}
}

func TestLibraryLoadFileBadPatternKeepsTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")

	good := `
[[rule]]
id = "ok"
mode = "shell"
pattern = "^mycmd\\b"
`
	if err := os.WriteFile(path, []byte(good), 0644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	if err := lib.LoadFile(path); err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	want := lib.Len()

	bad := `
[[rule]]
id = "broken"
mode = "shell"
pattern = "([unclosed"
`
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	if err := lib.LoadFile(path); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if lib.Len() != want {
		t.Errorf("failed reload must keep previous table: got %d rules, want %d", lib.Len(), want)
	}
}

func TestParseModeAndCategory(t *testing.T) {
	if m, err := ParseMode("shell"); err != nil || m != ModeShell {
		t.Errorf("ParseMode(shell) = %v, %v", m, err)
	}
	if m, err := ParseMode("ai"); err != nil || m != ModeConversational {
		t.Errorf("ParseMode(ai) = %v, %v", m, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("ParseMode(bogus) should fail")
	}

	order := Categories()
	if len(order) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(order))
	}
	if order[0] != CategorySecurity || order[5] != CategoryGeneral {
		t.Errorf("priority order wrong: first=%v last=%v", order[0], order[5])
	}
}

func ruleIDs(rules []Rule) []RuleID {
	out := make([]RuleID, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
