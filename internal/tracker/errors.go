// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import "errors"

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

var (
	// ErrUnknownCapability is returned when a capability id is not in the plan.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrDependencyUnsatisfied is returned when a capability is started while
	// one or more of its dependencies is not completed.
	ErrDependencyUnsatisfied = errors.New("dependency unsatisfied")

	// ErrInvalidRegression is returned when a transition targets a status
	// earlier than the capability's current status. Regressions go through
	// Reset, never Transition.
	ErrInvalidRegression = errors.New("invalid status regression")

	// ErrCorruptState is returned when the persisted state or the plan
	// declaration fails validation at open. It is fatal: the tracker cannot
	// safely operate on an inconsistent graph.
	ErrCorruptState = errors.New("corrupt tracker state")
)
