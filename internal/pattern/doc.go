// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pattern provides the static rule library used to classify input.
//
// A Rule is a weighted regex signature tagged with the Mode (and, for task
// rules, the TaskCategory) it votes for. The builtin table covers shell
// command shapes, interrogative/conversational phrasing, and per-category
// task phrases; a user TOML file can append rules and is hot-reloaded by
// the Watcher.
//
// The library itself does no scoring; the router's classifier accumulates
// matched-rule weights into buckets and applies the fixed tie-break order.
package pattern
