// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracker models the assistant's capability build lifecycle as a
// persisted dependency graph.
//
// The plan is a fixed declaration of phases and capabilities; runtime status
// lives in a SQLite database shared between the interactive session and
// external build tooling. Transitions are monotonic and dependency-gated,
// and every write is serialized through an immediate transaction so two
// processes cannot lose updates racing on the same record.
//
// The router consults the tracker before dispatching an autonomous task: a
// category whose gating capability is not completed degrades to a
// conversational response instead of failing.
package tracker
