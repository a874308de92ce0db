// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"fmt"

	"github.com/jeranaias/aide/internal/pattern"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is a capability's build lifecycle state. Transitions are monotonic:
// Pending -> InProgress -> Completed, with Reset as the only way back.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
)

// String returns the display name for a status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// validStatus reports whether a persisted integer maps to a known status.
func validStatus(n int) bool {
	return n >= int(StatusPending) && n <= int(StatusCompleted)
}

// =============================================================================
// PLAN DECLARATION
// =============================================================================

// Capability is one unit of autonomous functionality in the build plan.
type Capability struct {
	ID        string
	Name      string
	DependsOn []string
}

// Phase is an ordered group of capabilities. A phase is completed when every
// capability in it is completed.
type Phase struct {
	ID           string
	Name         string
	Capabilities []Capability
}

// Plan is the fixed declarative capability graph. It is created once at
// startup and never mutated; all runtime state lives in the store.
type Plan struct {
	Phases []Phase

	// caps indexes every capability by id for O(1) lookup.
	caps map[string]Capability
	// phaseOf maps capability id to its owning phase's ordinal.
	phaseOf map[string]int
	// ordinalOf maps capability id to its position within its phase.
	ordinalOf map[string]int
}

// DefaultPlan returns the assistant's build roadmap: six phases, eighteen
// capabilities, each depending on the work that precedes it.
func DefaultPlan() *Plan {
	p := &Plan{
		Phases: []Phase{
			{
				ID:   "core-infrastructure",
				Name: "Core Infrastructure",
				Capabilities: []Capability{
					{ID: "file-manager", Name: "File System Manager"},
					{ID: "content-search", Name: "Content Search", DependsOn: []string{"file-manager"}},
					{ID: "path-matching", Name: "Path Pattern Matching", DependsOn: []string{"content-search"}},
				},
			},
			{
				ID:   "code-intelligence",
				Name: "Code Intelligence",
				Capabilities: []Capability{
					{ID: "lsp-foundation", Name: "LSP Integration Foundation", DependsOn: []string{"file-manager", "content-search", "path-matching"}},
					{ID: "code-intel", Name: "Code Intelligence Core", DependsOn: []string{"lsp-foundation"}},
					{ID: "code-ops", Name: "Code Operations & Diagnostics", DependsOn: []string{"code-intel"}},
				},
			},
			{
				ID:   "web-research",
				Name: "Web & Research",
				Capabilities: []Capability{
					{ID: "web-search", Name: "Web Search", DependsOn: []string{"lsp-foundation", "code-intel", "code-ops"}},
					{ID: "web-fetch", Name: "Web Content Fetcher", DependsOn: []string{"web-search"}},
					{ID: "research", Name: "Research & Analysis", DependsOn: []string{"web-fetch"}},
				},
			},
			{
				ID:   "knowledge-management",
				Name: "Knowledge Management",
				Capabilities: []Capability{
					{ID: "knowledge-base", Name: "Knowledge Base Foundation", DependsOn: []string{"web-search", "web-fetch", "research"}},
					{ID: "knowledge-ops", Name: "Knowledge Operations", DependsOn: []string{"knowledge-base"}},
					{ID: "semantic-search", Name: "Semantic Search & Analysis", DependsOn: []string{"knowledge-ops"}},
				},
			},
			{
				ID:   "advanced-automation",
				Name: "Advanced Automation",
				Capabilities: []Capability{
					{ID: "subagent-system", Name: "Subagent System", DependsOn: []string{"knowledge-base", "knowledge-ops", "semantic-search"}},
					{ID: "task-manager", Name: "Task Management", DependsOn: []string{"subagent-system"}},
					{ID: "workflow-engine", Name: "Workflow Automation Engine", DependsOn: []string{"task-manager"}},
				},
			},
			{
				ID:   "cloud-integration",
				Name: "Cloud Integration",
				Capabilities: []Capability{
					{ID: "cloud-cli", Name: "Cloud CLI Integration", DependsOn: []string{"subagent-system", "task-manager", "workflow-engine"}},
					{ID: "infra-management", Name: "Infrastructure Management", DependsOn: []string{"cloud-cli"}},
					{ID: "security-compliance", Name: "Security & Compliance", DependsOn: []string{"infra-management"}},
				},
			},
		},
	}
	if err := p.index(); err != nil {
		// The built-in plan is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return p
}

// index builds the lookup maps and validates the declaration: unique ids,
// referential integrity of DependsOn, and acyclicity.
func (p *Plan) index() error {
	p.caps = make(map[string]Capability)
	p.phaseOf = make(map[string]int)
	p.ordinalOf = make(map[string]int)

	for pi, phase := range p.Phases {
		for ci, c := range phase.Capabilities {
			if _, dup := p.caps[c.ID]; dup {
				return fmt.Errorf("%w: duplicate capability id %q", ErrCorruptState, c.ID)
			}
			p.caps[c.ID] = c
			p.phaseOf[c.ID] = pi
			p.ordinalOf[c.ID] = ci
		}
	}

	for id, c := range p.caps {
		for _, dep := range c.DependsOn {
			if _, ok := p.caps[dep]; !ok {
				return fmt.Errorf("%w: capability %q depends on unknown %q", ErrCorruptState, id, dep)
			}
		}
	}

	return p.checkAcyclic()
}

// checkAcyclic runs a depth-first search over the dependency edges and
// reports the first cycle found.
func (p *Plan) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(p.caps))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w: dependency cycle through %q", ErrCorruptState, id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range p.caps[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, phase := range p.Phases {
		for _, c := range phase.Capabilities {
			if err := visit(c.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the declared capability for an id.
func (p *Plan) Lookup(id string) (Capability, bool) {
	c, ok := p.caps[id]
	return c, ok
}

// Ordered returns every capability id in phase-ordinal then
// capability-ordinal order.
func (p *Plan) Ordered() []string {
	ids := make([]string, 0, len(p.caps))
	for _, phase := range p.Phases {
		for _, c := range phase.Capabilities {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// =============================================================================
// CATEGORY BINDINGS
// =============================================================================

// categoryBindings maps each task category to the capability that gates it.
// The router refuses to dispatch a category whose capability is not completed.
var categoryBindings = map[pattern.TaskCategory]string{
	pattern.CategorySecurity:    "security-compliance",
	pattern.CategoryResearch:    "research",
	pattern.CategoryCode:        "code-intel",
	pattern.CategoryDevelopment: "workflow-engine",
	pattern.CategorySystem:      "file-manager",
	pattern.CategoryGeneral:     "task-manager",
}

// CapabilityForCategory returns the capability id that gates a task category.
func CapabilityForCategory(c pattern.TaskCategory) (string, bool) {
	id, ok := categoryBindings[c]
	return id, ok
}
