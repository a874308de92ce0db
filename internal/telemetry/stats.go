// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides local routing statistics for aide.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeranaias/aide/internal/util"
)

// =============================================================================
// ROUTING STATS
// =============================================================================

// ModeStats aggregates dispatches for one routing mode.
type ModeStats struct {
	Count         int           `json:"count"`
	Degraded      int           `json:"degraded"`
	Errors        int           `json:"errors"`
	TotalDuration time.Duration `json:"total_duration_ns"`
}

// AvgDuration returns the mean dispatch duration for the mode.
func (m ModeStats) AvgDuration() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.Count)
}

// Stats is the full persisted statistics record.
type Stats struct {
	Since      time.Time            `json:"since"`
	Modes      map[string]ModeStats `json:"modes"`
	Categories map[string]int       `json:"categories"`
	// DegradeReasons counts degraded dispatches by reason.
	DegradeReasons map[string]int `json:"degrade_reasons"`
}

// Tracker records routing outcomes and persists them as JSON.
type Tracker struct {
	mu      sync.Mutex
	path    string
	enabled bool
	stats   Stats
}

// NewTracker loads or initializes statistics at the given path.
func NewTracker(path string) (*Tracker, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".aide", "stats.json")
	}

	t := &Tracker{
		path:    path,
		enabled: true,
		stats: Stats{
			Since:          time.Now().UTC(),
			Modes:          make(map[string]ModeStats),
			Categories:     make(map[string]int),
			DegradeReasons: make(map[string]int),
		},
	}

	// A missing or unreadable file starts fresh; stats are advisory.
	if data, err := os.ReadFile(path); err == nil {
		var loaded Stats
		if err := json.Unmarshal(data, &loaded); err == nil {
			if loaded.Modes == nil {
				loaded.Modes = make(map[string]ModeStats)
			}
			if loaded.Categories == nil {
				loaded.Categories = make(map[string]int)
			}
			if loaded.DegradeReasons == nil {
				loaded.DegradeReasons = make(map[string]int)
			}
			t.stats = loaded
		}
	}

	return t, nil
}

// Disabled returns a tracker that records nothing.
func Disabled() *Tracker {
	return &Tracker{enabled: false}
}

// Record adds one dispatch outcome.
func (t *Tracker) Record(mode, category string, degraded bool, reason string, err error, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}

	m := t.stats.Modes[mode]
	m.Count++
	m.TotalDuration += duration
	if degraded {
		m.Degraded++
		if reason != "" {
			t.stats.DegradeReasons[reason]++
		}
	}
	if err != nil {
		m.Errors++
	}
	t.stats.Modes[mode] = m

	if category != "" {
		t.stats.Categories[category]++
	}
}

// Snapshot returns a copy of the current statistics.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Stats{
		Since:          t.stats.Since,
		Modes:          make(map[string]ModeStats, len(t.stats.Modes)),
		Categories:     make(map[string]int, len(t.stats.Categories)),
		DegradeReasons: make(map[string]int, len(t.stats.DegradeReasons)),
	}
	for k, v := range t.stats.Modes {
		out.Modes[k] = v
	}
	for k, v := range t.stats.Categories {
		out.Categories[k] = v
	}
	for k, v := range t.stats.DegradeReasons {
		out.DegradeReasons[k] = v
	}
	return out
}

// Save persists the statistics atomically.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled || t.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(t.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return err
	}
	return util.AtomicWriteFile(t.path, data, 0600)
}
