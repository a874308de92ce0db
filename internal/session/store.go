// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jeranaias/aide/internal/util"
)

// =============================================================================
// STORED SESSION
// =============================================================================

// StoredSession is the persisted form of a session's turn history.
type StoredSession struct {
	ID        string    `json:"id"`
	Cwd       string    `json:"cwd"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// SessionMeta describes a stored session for listing.
type SessionMeta struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists session histories as JSON files, one per session.
type Store struct {
	// BaseDir is the storage directory, default ~/.aide/sessions.
	BaseDir string

	// MaxSessions limits stored sessions (0 = unlimited); oldest are pruned.
	MaxSessions int
}

// NewStore creates a session store under the given directory.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, ".aide", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Store{BaseDir: baseDir, MaxSessions: 100}, nil
}

// Save persists the context's history. Called after every turn; the write is
// atomic so an interrupted save never corrupts the previous file.
func (s *Store) Save(c *Context) error {
	stored := StoredSession{
		ID:        c.ID(),
		Cwd:       c.Cwd(),
		StartedAt: c.StartTime(),
		UpdatedAt: time.Now(),
		Turns:     c.History(),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	path := filepath.Join(s.BaseDir, stored.ID+".json")
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return s.prune()
}

// Load reads a stored session by id.
func (s *Store) Load(id string) (*StoredSession, error) {
	data, err := os.ReadFile(filepath.Join(s.BaseDir, id+".json"))
	if err != nil {
		return nil, err
	}
	var stored StoredSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return &stored, nil
}

// List returns metadata for all stored sessions, most recent first.
func (s *Store) List() ([]SessionMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, err
	}

	var metas []SessionMeta
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		stored, err := s.Load(e.Name()[:len(e.Name())-len(".json")])
		if err != nil {
			continue // Skip unreadable entries
		}
		metas = append(metas, SessionMeta{
			ID:        stored.ID,
			StartedAt: stored.StartedAt,
			UpdatedAt: stored.UpdatedAt,
			TurnCount: len(stored.Turns),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// prune removes the oldest sessions beyond MaxSessions.
func (s *Store) prune() error {
	if s.MaxSessions <= 0 {
		return nil
	}
	metas, err := s.List()
	if err != nil {
		return err
	}
	for i := s.MaxSessions; i < len(metas); i++ {
		os.Remove(filepath.Join(s.BaseDir, metas[i].ID+".json"))
	}
	return nil
}
