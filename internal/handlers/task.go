// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/router"
	"github.com/jeranaias/aide/internal/util"
)

// =============================================================================
// TASK HANDLER REGISTRY
// =============================================================================

// RegisterTasks wires the built-in task engines onto a router. The AI
// handler backs the analysis-heavy categories with specialized prompts.
func RegisterTasks(r *router.Router, ai *AIHandler, dataDir string) {
	r.RegisterTask(pattern.CategorySecurity, NewSecurityHandler())
	r.RegisterTask(pattern.CategorySystem, NewSystemHandler())
	r.RegisterTask(pattern.CategoryGeneral, NewGeneralHandler(filepath.Join(dataDir, "tasks.json")))
	r.RegisterTask(pattern.CategoryResearch, NewDelegate("research", ai,
		"You are a research engine. Investigate the request, compare options, and present findings with sources where known."))
	r.RegisterTask(pattern.CategoryCode, NewDelegate("code", ai,
		"You are a code intelligence engine. Produce working code or precise diagnostics for the request."))
	r.RegisterTask(pattern.CategoryDevelopment, NewDelegate("development", ai,
		"You are a development workflow engine. Lay out the concrete build or deploy steps for the request, with commands."))
}

// =============================================================================
// DELEGATE HANDLER
// =============================================================================

// Delegate routes a task category through the AI handler with a
// category-specific system prompt.
type Delegate struct {
	name   string
	ai     *AIHandler
	prompt string
}

// NewDelegate creates an AI-backed task handler.
func NewDelegate(name string, ai *AIHandler, prompt string) *Delegate {
	return &Delegate{name: name, ai: ai, prompt: prompt}
}

// Name implements router.Handler.
func (d *Delegate) Name() string { return d.name }

// Handle implements router.Handler.
func (d *Delegate) Handle(ctx context.Context, req router.Request) (string, error) {
	if d.ai == nil {
		return "", fmt.Errorf("%s engine requires an AI endpoint", d.name)
	}
	messages := []Message{
		{Role: "system", Content: d.prompt},
		{Role: "user", Content: req.Input},
	}
	return d.ai.chat(ctx, messages)
}

// =============================================================================
// SECURITY HANDLER
// =============================================================================

// scanLimit bounds how many files one scan inspects.
const scanLimit = 2000

// maxScanFileSize skips files larger than 1MB; secrets live in small files.
const maxScanFileSize = 1 << 20

// secretSignatures are the token shapes the scanner looks for.
var secretSignatures = []struct {
	name string
	re   *regexp.Regexp
}{
	{"api key", regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
	{"github token", regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`)},
	{"aws access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"private key", regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
	{"hardcoded password", regexp.MustCompile(`(?i)password\s*[=:]\s*["'][^"']{4,}["']`)},
}

// skipDirs are never descended into during a scan.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	".venv": true, "__pycache__": true, "dist": true, "build": true,
}

// SecurityHandler runs a local secret scan over the session's working
// directory.
type SecurityHandler struct{}

// NewSecurityHandler creates the security task engine.
func NewSecurityHandler() *SecurityHandler { return &SecurityHandler{} }

// Name implements router.Handler.
func (h *SecurityHandler) Name() string { return "security" }

// Handle implements router.Handler.
func (h *SecurityHandler) Handle(ctx context.Context, req router.Request) (string, error) {
	root := req.Session.Cwd
	if root == "" {
		root = "."
	}

	type finding struct {
		path string
		line int
		kind string
	}
	var findings []finding
	scanned := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if scanned >= scanLimit {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxScanFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		scanned++
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		for i, line := range strings.Split(string(data), "\n") {
			for _, sig := range secretSignatures {
				if sig.re.MatchString(line) {
					findings = append(findings, finding{path: rel, line: i + 1, kind: sig.name})
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Security scan of %s: %d files scanned, %d findings\n", root, scanned, len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "  %s:%d  possible %s\n", f.path, f.line, f.kind)
	}
	if len(findings) == 0 {
		b.WriteString("  no secret-shaped tokens found\n")
	}
	return b.String(), nil
}

// =============================================================================
// SYSTEM HANDLER
// =============================================================================

// SystemHandler reports host and process information.
type SystemHandler struct{}

// NewSystemHandler creates the system task engine.
func NewSystemHandler() *SystemHandler { return &SystemHandler{} }

// Name implements router.Handler.
func (h *SystemHandler) Name() string { return "system" }

// Handle implements router.Handler.
func (h *SystemHandler) Handle(ctx context.Context, req router.Request) (string, error) {
	hostname, _ := os.Hostname()

	var b strings.Builder
	fmt.Fprintf(&b, "host:     %s\n", hostname)
	fmt.Fprintf(&b, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "cpus:     %d\n", runtime.NumCPU())
	fmt.Fprintf(&b, "cwd:      %s\n", req.Session.Cwd)
	fmt.Fprintf(&b, "session:  %s (%d turns)\n", req.Session.SessionID, len(req.Session.History))
	return b.String(), nil
}

// =============================================================================
// GENERAL HANDLER
// =============================================================================

// TaskItem is one tracked item in the general task list.
type TaskItem struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Done      bool      `json:"done"`
}

// GeneralHandler keeps a simple persisted task list: "remind me to X" /
// "todo X" add an item, anything else lists them.
type GeneralHandler struct {
	path string
}

// NewGeneralHandler creates the general task engine storing items at path.
func NewGeneralHandler(path string) *GeneralHandler {
	return &GeneralHandler{path: path}
}

// Name implements router.Handler.
func (h *GeneralHandler) Name() string { return "general" }

var addPrefixes = []string{"remind me to ", "remind me ", "todo ", "add task "}

// Handle implements router.Handler.
func (h *GeneralHandler) Handle(ctx context.Context, req router.Request) (string, error) {
	items, err := h.load()
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(req.Input)
	for _, prefix := range addPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text := strings.TrimSpace(req.Input[len(prefix):])
			if text == "" {
				break
			}
			items = append(items, TaskItem{Text: text, CreatedAt: time.Now().UTC()})
			if err := h.save(items); err != nil {
				return "", err
			}
			return fmt.Sprintf("added task: %s (%d open)", text, countOpen(items)), nil
		}
	}

	if len(items) == 0 {
		return "no tracked tasks", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d tracked tasks:\n", len(items))
	for i, item := range items {
		mark := " "
		if item.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %d. %s\n", mark, i+1, item.Text)
	}
	return b.String(), nil
}

func countOpen(items []TaskItem) int {
	n := 0
	for _, item := range items {
		if !item.Done {
			n++
		}
	}
	return n
}

func (h *GeneralHandler) load() ([]TaskItem, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []TaskItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("task list %s is unreadable: %w", h.path, err)
	}
	return items, nil
}

func (h *GeneralHandler) save(items []TaskItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}
	return util.AtomicWriteFile(h.path, data, 0600)
}
