// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for aide.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.aide/config.toml
//   - ~/.aide/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aide configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Routing configuration
	Routing RoutingConfig `toml:"routing" json:"routing"`

	// Session configuration
	Session SessionConfig `toml:"session" json:"session"`

	// Tracker configuration
	Tracker TrackerConfig `toml:"tracker" json:"tracker"`

	// Handler configuration
	Handlers HandlersConfig `toml:"handlers" json:"handlers"`

	// Pattern library configuration
	Patterns PatternsConfig `toml:"patterns" json:"patterns"`

	// Audit configuration
	Audit AuditConfig `toml:"audit" json:"audit"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// RoutingConfig controls how input lines are classified and dispatched.
type RoutingConfig struct {
	// ShellSigil forces shell mode for the current line (input prefix).
	ShellSigil string `toml:"shell_sigil" json:"shell_sigil"`
	// AISigils force conversational mode for the current line.
	AISigils []string `toml:"ai_sigils" json:"ai_sigils"`
	// DefaultMode is the classification fallback when nothing matches:
	// "shell" or "conversational".
	DefaultMode string `toml:"default_mode" json:"default_mode"`
	// DisabledCategories lists task categories that never dispatch even when
	// their capability is completed.
	DisabledCategories []string `toml:"disabled_categories" json:"disabled_categories"`
}

// SessionConfig controls turn history retention and storage.
type SessionConfig struct {
	// HistoryBound is the maximum turns kept in memory per session.
	HistoryBound int `toml:"history_bound" json:"history_bound"`
	// StorageDir is where session files are written (empty = ~/.aide/sessions).
	StorageDir string `toml:"storage_dir" json:"storage_dir"`
	// MaxStored limits persisted sessions; oldest are pruned.
	MaxStored int `toml:"max_stored" json:"max_stored"`
}

// TrackerConfig locates the capability tracker database.
type TrackerConfig struct {
	// DatabasePath is the SQLite file (empty = ~/.aide/tracker.db).
	DatabasePath string `toml:"database_path" json:"database_path"`
}

// HandlersConfig configures the execution subsystems the router dispatches to.
type HandlersConfig struct {
	// ShellTimeoutSecs bounds a single shell command execution.
	ShellTimeoutSecs int `toml:"shell_timeout_secs" json:"shell_timeout_secs"`
	// AITimeoutSecs bounds a single conversational AI call.
	AITimeoutSecs int `toml:"ai_timeout_secs" json:"ai_timeout_secs"`
	// TaskTimeoutSecs bounds a single autonomous task dispatch.
	TaskTimeoutSecs int `toml:"task_timeout_secs" json:"task_timeout_secs"`
	// AIBaseURL is the chat completion endpoint (Ollama-compatible).
	AIBaseURL string `toml:"ai_base_url" json:"ai_base_url"`
	// AIModel is the model requested from the endpoint.
	AIModel string `toml:"ai_model" json:"ai_model"`
	// AIRequestsPerMinute rate-limits outbound AI calls (0 = unlimited).
	AIRequestsPerMinute int `toml:"ai_requests_per_minute" json:"ai_requests_per_minute"`
	// ConfirmDangerous requires confirmation before destructive shell commands.
	ConfirmDangerous bool `toml:"confirm_dangerous" json:"confirm_dangerous"`
}

// PatternsConfig locates the user rule overlay.
type PatternsConfig struct {
	// RulesPath is a TOML file of extra classification rules merged over the
	// built-ins (empty = ~/.aide/rules.toml).
	RulesPath string `toml:"rules_path" json:"rules_path"`
	// WatchRules reloads the rules file on change.
	WatchRules bool `toml:"watch_rules" json:"watch_rules"`
}

// AuditConfig controls the routing decision audit log.
type AuditConfig struct {
	// Enabled turns audit logging on.
	Enabled bool `toml:"enabled" json:"enabled"`
	// LogPath is the audit log file (empty = ~/.aide/audit.log).
	LogPath string `toml:"log_path" json:"log_path"`
	// MaxSizeMB rotates the log when it exceeds this size.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb"`
}

// TelemetryConfig controls local routing statistics.
type TelemetryConfig struct {
	// Enabled records per-mode dispatch counts and latency.
	Enabled bool `toml:"enabled" json:"enabled"`
	// StatsPath is the statistics file (empty = ~/.aide/stats.json).
	StatsPath string `toml:"stats_path" json:"stats_path"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// ColorEnabled enables ANSI colors in output.
	ColorEnabled bool `toml:"color_enabled" json:"color_enabled"`
	// RenderMarkdown renders AI responses as markdown when stdout is a TTY.
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// Prompt is the REPL prompt string.
	Prompt string `toml:"prompt" json:"prompt"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0",
		Routing: RoutingConfig{
			ShellSigil:  "$",
			AISigils:    []string{"ai:", "aide:"},
			DefaultMode: "conversational",
		},
		Session: SessionConfig{
			HistoryBound: 50,
			MaxStored:    100,
		},
		Handlers: HandlersConfig{
			ShellTimeoutSecs:    120,
			AITimeoutSecs:       60,
			TaskTimeoutSecs:     300,
			AIBaseURL:           "http://localhost:11434",
			AIModel:             "qwen2.5-coder:14b",
			AIRequestsPerMinute: 30,
			ConfirmDangerous:    true,
		},
		Patterns: PatternsConfig{
			WatchRules: true,
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			ColorEnabled:   true,
			RenderMarkdown: true,
			Prompt:         "aide> ",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the aide configuration directory (~/.aide).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".aide"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DefaultPath returns the first configured-or-default path for a per-feature
// file under the config dir.
func DefaultPath(configured, name string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finalize(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			data, err := os.ReadFile(jsonPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read JSON config: %w", err)
			}
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finalize(cfg)
		}
	}

	return finalize(cfg)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	return finalize(cfg)
}

// finalize applies env overrides, fills gaps, and validates.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Routing.ShellSigil == "" {
		c.Routing.ShellSigil = defaults.Routing.ShellSigil
	}
	if len(c.Routing.AISigils) == 0 {
		c.Routing.AISigils = defaults.Routing.AISigils
	}
	if c.Routing.DefaultMode == "" {
		c.Routing.DefaultMode = defaults.Routing.DefaultMode
	}
	if c.Session.HistoryBound <= 0 {
		c.Session.HistoryBound = defaults.Session.HistoryBound
	}
	if c.Session.MaxStored <= 0 {
		c.Session.MaxStored = defaults.Session.MaxStored
	}
	if c.Handlers.ShellTimeoutSecs <= 0 {
		c.Handlers.ShellTimeoutSecs = defaults.Handlers.ShellTimeoutSecs
	}
	if c.Handlers.AITimeoutSecs <= 0 {
		c.Handlers.AITimeoutSecs = defaults.Handlers.AITimeoutSecs
	}
	if c.Handlers.TaskTimeoutSecs <= 0 {
		c.Handlers.TaskTimeoutSecs = defaults.Handlers.TaskTimeoutSecs
	}
	if c.Handlers.AIBaseURL == "" {
		c.Handlers.AIBaseURL = defaults.Handlers.AIBaseURL
	}
	if c.Handlers.AIModel == "" {
		c.Handlers.AIModel = defaults.Handlers.AIModel
	}
	if c.Audit.MaxSizeMB <= 0 {
		c.Audit.MaxSizeMB = defaults.Audit.MaxSizeMB
	}
	if c.UI.Prompt == "" {
		c.UI.Prompt = defaults.UI.Prompt
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - AIDE_MODE: overrides routing.default_mode
//   - AIDE_AI_URL: overrides handlers.ai_base_url
//   - AIDE_AI_MODEL: overrides handlers.ai_model
//   - AIDE_TRACKER_DB: overrides tracker.database_path
//   - AIDE_RULES: overrides patterns.rules_path
//   - AIDE_NO_COLOR: set to "1" or "true" to disable colors
//   - AIDE_NO_AUDIT: set to "1" or "true" to disable audit logging
//   - AIDE_HISTORY_BOUND: overrides session.history_bound
func (c *Config) ApplyEnvOverrides() {
	if mode := os.Getenv("AIDE_MODE"); mode != "" {
		c.Routing.DefaultMode = mode
	}
	if u := os.Getenv("AIDE_AI_URL"); u != "" {
		c.Handlers.AIBaseURL = u
	}
	if model := os.Getenv("AIDE_AI_MODEL"); model != "" {
		c.Handlers.AIModel = model
	}
	if db := os.Getenv("AIDE_TRACKER_DB"); db != "" {
		c.Tracker.DatabasePath = db
	}
	if rules := os.Getenv("AIDE_RULES"); rules != "" {
		c.Patterns.RulesPath = rules
	}
	if noColor := os.Getenv("AIDE_NO_COLOR"); isTruthy(noColor) {
		c.UI.ColorEnabled = false
	}
	if noAudit := os.Getenv("AIDE_NO_AUDIT"); isTruthy(noAudit) {
		c.Audit.Enabled = false
	}
	if bound := os.Getenv("AIDE_HISTORY_BOUND"); bound != "" {
		if n, err := strconv.Atoi(bound); err == nil && n > 0 {
			c.Session.HistoryBound = n
		}
	}
}

func isTruthy(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Routing.DefaultMode {
	case "shell", "conversational":
	default:
		return fmt.Errorf("routing.default_mode must be \"shell\" or \"conversational\", got %q", c.Routing.DefaultMode)
	}

	if c.Routing.ShellSigil == "" {
		return fmt.Errorf("routing.shell_sigil cannot be empty")
	}

	if _, err := url.Parse(c.Handlers.AIBaseURL); err != nil {
		return fmt.Errorf("handlers.ai_base_url is not a valid URL: %w", err)
	}

	if c.Handlers.AIRequestsPerMinute < 0 {
		return fmt.Errorf("handlers.ai_requests_per_minute cannot be negative")
	}

	if c.Session.HistoryBound < 1 {
		return fmt.Errorf("session.history_bound must be at least 1")
	}

	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the TOML config file.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
