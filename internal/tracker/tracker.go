// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS capabilities (
	id              TEXT PRIMARY KEY,
	status          INTEGER NOT NULL DEFAULT 0,
	last_transition TEXT NOT NULL DEFAULT ''
);
`

// =============================================================================
// TRACKER
// =============================================================================

// CapabilityState is a capability's current runtime state.
type CapabilityState struct {
	ID             string
	Status         Status
	LastTransition time.Time
}

// PhaseReport summarizes one phase for status output.
type PhaseReport struct {
	ID           string
	Name         string
	Status       Status
	Capabilities []CapabilityState
}

// Tracker persists the capability graph's status in SQLite. The plan
// declaration is static; only status rows are stored. Multiple processes may
// share the same database file: every transition runs inside a single
// BEGIN IMMEDIATE transaction that re-reads current status before writing,
// so racing writers cannot lose updates.
type Tracker struct {
	db   *sql.DB
	plan *Plan
}

// Open loads the tracker at the given database path, creating and seeding it
// on first use. Persisted rows that contradict the plan declaration fail
// with ErrCorruptState.
func Open(dbPath string, plan *Plan) (*Tracker, error) {
	if plan == nil {
		plan = DefaultPlan()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create tracker directory: %w", err)
	}

	// _txlock=immediate makes every transaction take the write lock up
	// front, so two writers racing the same record serialize instead of
	// both reading stale status.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	t := &Tracker{db: db, plan: plan}
	if err := t.seedAndValidate(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

// Close releases the database handle.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// Plan returns the static declaration the tracker was opened with.
func (t *Tracker) Plan() *Plan {
	return t.plan
}

// seedAndValidate inserts missing rows for declared capabilities and rejects
// rows that do not match the declaration.
func (t *Tracker) seedAndValidate() error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id, status FROM capabilities")
	if err != nil {
		return fmt.Errorf("failed to read capabilities: %w", err)
	}
	persisted := make(map[string]int)
	for rows.Next() {
		var id string
		var status int
		if err := rows.Scan(&id, &status); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan capability row: %w", err)
		}
		persisted[id] = status
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for id, status := range persisted {
		if _, ok := t.plan.Lookup(id); !ok {
			return fmt.Errorf("%w: persisted capability %q not in plan", ErrCorruptState, id)
		}
		if !validStatus(status) {
			return fmt.Errorf("%w: capability %q has invalid status %d", ErrCorruptState, id, status)
		}
	}

	// Completed dependents with incomplete dependencies mean the store was
	// edited outside the tracker.
	for id := range persisted {
		if Status(persisted[id]) == StatusPending {
			continue
		}
		for _, dep := range t.plan.caps[id].DependsOn {
			if Status(persisted[dep]) != StatusCompleted {
				return fmt.Errorf("%w: capability %q is %s but dependency %q is not completed",
					ErrCorruptState, id, Status(persisted[id]), dep)
			}
		}
	}

	for _, id := range t.plan.Ordered() {
		if _, ok := persisted[id]; ok {
			continue
		}
		if _, err := tx.Exec(
			"INSERT INTO capabilities (id, status, last_transition) VALUES (?, ?, ?)",
			id, int(StatusPending), "",
		); err != nil {
			return fmt.Errorf("failed to seed capability %q: %w", id, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Status returns the current status of a capability.
func (t *Tracker) Status(id string) (Status, error) {
	if _, ok := t.plan.Lookup(id); !ok {
		return StatusPending, fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}
	var status int
	err := t.db.QueryRow("SELECT status FROM capabilities WHERE id = ?", id).Scan(&status)
	if err != nil {
		return StatusPending, fmt.Errorf("failed to read status of %q: %w", id, err)
	}
	if !validStatus(status) {
		return StatusPending, fmt.Errorf("%w: capability %q has invalid status %d", ErrCorruptState, id, status)
	}
	return Status(status), nil
}

// Transition moves a capability to the target status. Moving forward past a
// dependency that is not completed fails with ErrDependencyUnsatisfied;
// moving backward fails with ErrInvalidRegression. Transitioning to the
// current status is a no-op. The read-check-write runs in one immediate
// transaction so concurrent writers serialize on the database lock.
func (t *Tracker) Transition(id string, to Status) error {
	decl, ok := t.plan.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to lock tracker: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRow("SELECT status FROM capabilities WHERE id = ?", id).Scan(&current); err != nil {
		return fmt.Errorf("failed to read status of %q: %w", id, err)
	}

	switch {
	case to == Status(current):
		// Idempotent; nothing to persist.
		return nil
	case to < Status(current):
		return fmt.Errorf("%w: %q is %s, cannot move to %s", ErrInvalidRegression, id, Status(current), to)
	}

	// Forward transitions from pending pass through the dependency gate,
	// including a direct pending -> completed jump.
	if Status(current) == StatusPending {
		for _, dep := range decl.DependsOn {
			var depStatus int
			if err := tx.QueryRow("SELECT status FROM capabilities WHERE id = ?", dep).Scan(&depStatus); err != nil {
				return fmt.Errorf("failed to read dependency %q: %w", dep, err)
			}
			if Status(depStatus) != StatusCompleted {
				return fmt.Errorf("%w: %q requires %q (currently %s)",
					ErrDependencyUnsatisfied, id, dep, Status(depStatus))
			}
		}
	}

	if _, err := tx.Exec(
		"UPDATE capabilities SET status = ?, last_transition = ? WHERE id = ?",
		int(to), time.Now().UTC().Format(time.RFC3339), id,
	); err != nil {
		return fmt.Errorf("failed to update %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

// NextReady returns every pending capability whose dependencies are all
// completed, in phase-ordinal then capability-ordinal order. Recomputed
// fresh from current state on each call.
func (t *Tracker) NextReady() ([]string, error) {
	states, err := t.snapshot()
	if err != nil {
		return nil, err
	}

	var ready []string
	for _, id := range t.plan.Ordered() {
		if states[id] != StatusPending {
			continue
		}
		ok := true
		for _, dep := range t.plan.caps[id].DependsOn {
			if states[dep] != StatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// Reset returns a capability and all of its transitive dependents to
// pending. This is the explicit administrative path; Transition never
// regresses.
func (t *Tracker) Reset(id string) error {
	if _, ok := t.plan.Lookup(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCapability, id)
	}

	// Dependents must fall with their dependency or the graph invariant
	// breaks.
	affected := map[string]bool{id: true}
	changed := true
	for changed {
		changed = false
		for _, cid := range t.plan.Ordered() {
			if affected[cid] {
				continue
			}
			for _, dep := range t.plan.caps[cid].DependsOn {
				if affected[dep] {
					affected[cid] = true
					changed = true
					break
				}
			}
		}
	}

	ids := make([]string, 0, len(affected))
	args := make([]any, 0, len(affected)+1)
	now := time.Now().UTC().Format(time.RFC3339)
	args = append(args, now)
	for _, cid := range t.plan.Ordered() {
		if affected[cid] {
			ids = append(ids, "?")
			args = append(args, cid)
		}
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to lock tracker: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(
		"UPDATE capabilities SET status = 0, last_transition = ? WHERE id IN (%s)",
		strings.Join(ids, ","),
	)
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to reset %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

// Report returns a full per-phase status snapshot for display.
func (t *Tracker) Report() ([]PhaseReport, error) {
	states, err := t.snapshot()
	if err != nil {
		return nil, err
	}
	times, err := t.transitionTimes()
	if err != nil {
		return nil, err
	}

	reports := make([]PhaseReport, 0, len(t.plan.Phases))
	for _, phase := range t.plan.Phases {
		pr := PhaseReport{ID: phase.ID, Name: phase.Name}
		allCompleted := true
		anyStarted := false
		for _, c := range phase.Capabilities {
			st := states[c.ID]
			pr.Capabilities = append(pr.Capabilities, CapabilityState{
				ID:             c.ID,
				Status:         st,
				LastTransition: times[c.ID],
			})
			if st != StatusCompleted {
				allCompleted = false
			}
			if st != StatusPending {
				anyStarted = true
			}
		}
		// Phase status derives from its children.
		switch {
		case allCompleted:
			pr.Status = StatusCompleted
		case anyStarted:
			pr.Status = StatusInProgress
		default:
			pr.Status = StatusPending
		}
		reports = append(reports, pr)
	}
	return reports, nil
}

// snapshot reads every capability's status in one query.
func (t *Tracker) snapshot() (map[string]Status, error) {
	rows, err := t.db.Query("SELECT id, status FROM capabilities")
	if err != nil {
		return nil, fmt.Errorf("failed to read capabilities: %w", err)
	}
	defer rows.Close()

	states := make(map[string]Status, len(t.plan.caps))
	for rows.Next() {
		var id string
		var status int
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		if !validStatus(status) {
			return nil, fmt.Errorf("%w: capability %q has invalid status %d", ErrCorruptState, id, status)
		}
		states[id] = Status(status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(states) != len(t.plan.caps) {
		return nil, fmt.Errorf("%w: expected %d capabilities, found %d", ErrCorruptState, len(t.plan.caps), len(states))
	}
	return states, nil
}

// transitionTimes reads last-transition timestamps; unparseable values are
// zero times, not errors.
func (t *Tracker) transitionTimes() (map[string]time.Time, error) {
	rows, err := t.db.Query("SELECT id, last_transition FROM capabilities")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := make(map[string]time.Time, len(t.plan.caps))
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		if raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				times[id] = ts
			}
		}
	}
	return times, rows.Err()
}

// IsFatal reports whether a tracker error means the store cannot be trusted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCorruptState)
}
