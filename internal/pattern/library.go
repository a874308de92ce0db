// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pattern provides the static rule library used to classify input.
package pattern

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// LIBRARY
// =============================================================================

// Library holds the active rule set. The builtin rules are always present;
// user rules loaded from a TOML file are appended after them. Reload swaps
// the whole table atomically so a classification in flight never observes a
// half-loaded set.
type Library struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewLibrary creates a library containing only the builtin rules.
func NewLibrary() *Library {
	rules := builtinRules()
	for i := range rules {
		// Builtin patterns are fixed strings; a compile failure here is a
		// programming error, caught by TestBuiltinRulesCompile.
		if err := rules[i].compile(); err != nil {
			panic(err)
		}
	}
	return &Library{rules: rules}
}

// Match returns every rule matching the lowercased input, in table order.
func (l *Library) Match(lower string) []Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Rule
	for i := range l.rules {
		if l.rules[i].Matches(lower) {
			out = append(out, l.rules[i])
		}
	}
	return out
}

// Len returns the number of active rules.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// =============================================================================
// USER RULES FILE
// =============================================================================

// userRulesFile mirrors the TOML rules file layout:
//
//	[[rule]]
//	id = "my-deploys"
//	mode = "task"
//	category = "development"
//	pattern = "\\bship it\\b"
//	weight = 3
type userRulesFile struct {
	Rule []userRule `toml:"rule"`
}

type userRule struct {
	ID       string `toml:"id"`
	Mode     string `toml:"mode"`
	Category string `toml:"category"`
	Pattern  string `toml:"pattern"`
	Weight   int    `toml:"weight"`
}

// LoadFile reloads the library as builtin rules plus the user rules in the
// given TOML file. A missing file resets the library to builtins only. A
// malformed file leaves the current table untouched and returns the error.
func (l *Library) LoadFile(path string) error {
	merged := builtinRules()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Builtins only.
	case err != nil:
		return fmt.Errorf("failed to read rules file: %w", err)
	default:
		var file userRulesFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse rules file %s: %w", path, err)
		}
		for i, ur := range file.Rule {
			rule, err := ur.toRule(i)
			if err != nil {
				return err
			}
			merged = append(merged, rule)
		}
	}

	for i := range merged {
		if err := merged[i].compile(); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.rules = merged
	l.mu.Unlock()
	return nil
}

// toRule validates and converts a user rule entry.
func (ur userRule) toRule(idx int) (Rule, error) {
	if ur.ID == "" {
		return Rule{}, fmt.Errorf("rules file: rule %d has no id", idx)
	}
	if ur.Pattern == "" {
		return Rule{}, fmt.Errorf("rules file: rule %q has no pattern", ur.ID)
	}

	mode, err := ParseMode(ur.Mode)
	if err != nil {
		return Rule{}, fmt.Errorf("rules file: rule %q: %w", ur.ID, err)
	}

	rule := Rule{
		ID:      RuleID(ur.ID),
		Mode:    mode,
		Pattern: ur.Pattern,
		Weight:  ur.Weight,
	}
	if rule.Weight <= 0 {
		rule.Weight = 1
	}

	if mode == ModeTask {
		cat, err := ParseCategory(ur.Category)
		if err != nil {
			return Rule{}, fmt.Errorf("rules file: rule %q: %w", ur.ID, err)
		}
		rule.Category = cat
	} else if ur.Category != "" {
		return Rule{}, fmt.Errorf("rules file: rule %q: category is only valid for mode \"task\"", ur.ID)
	}

	return rule, nil
}
