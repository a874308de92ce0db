// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for aide.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdREPL Command = iota
	CmdDo
	CmdPlan
	CmdStatus
	CmdConfig
	CmdSessions
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	NoColor    bool
	ConfigPath string
	Mode       string // one-shot mode override: shell | ai | task

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `aide - command intent router for the terminal

Aide reads one line at a time and decides where it goes: straight to
your shell, to a local AI model, or to an autonomous task handler.
Task handlers are gated by a capability plan, so aide degrades to a
conversational answer instead of failing when a capability is not
ready yet.

Usage:
  aide                       Start interactive REPL (default)
  aide do "input"            Route a single input line and exit
  aide plan [subcommand]     Capability plan management
  aide status, s             Show routing and session status
  aide sessions [list|show]  Saved session management
  aide config [show|init]    Configuration
  aide version               Show version
  aide help                  Show this help

Plan Commands:
  aide plan                  Show the full phase/capability report
  aide plan next             List capabilities ready to start
  aide plan start <id>       Mark a capability in progress
  aide plan complete <id>    Mark a capability completed
  aide plan reset <id>       Reset a capability and its dependents

Session Commands:
  aide sessions list         List saved sessions, newest first
  aide sessions show <id>    Print a saved session transcript

Config Commands:
  aide config show           Show effective configuration
  aide config init           Write a default config.toml
  aide config path           Print the config file location

Input Routing:
  $ ls -la                   Leading "$" forces shell mode
  ai: what does -la mean     Leading "ai:" forces conversational mode
  git status                 Shell verbs route to your shell
  scan this repo for secrets Task phrasing routes to a task handler
  what is a symlink          Questions route to the AI model

Global Flags:
  -q, --quiet       Minimal output
  -v, --verbose     Show classification details per turn
  --json            Output in JSON format (do, plan, status)
  --no-color        Disable ANSI colors
  --config PATH     Use an explicit config file
  --mode MODE       One-shot mode override: shell, ai, or task

Examples:
  aide                              Start the REPL
  aide do "git log --oneline -5"    Route one line and exit
  aide do --mode ai "explain awk"   Force conversational mode
  aide do --json "research go generics"  Machine-readable result
  aide plan                         Show capability progress
  aide plan complete file-manager   Record a completed capability
  aide status                       Check configuration and plan health
  aide config init                  Create ~/.aide/config.toml

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("aide version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

// parse is the testable core of Parse.
func parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	// No remaining args: interactive REPL is the default.
	if len(remaining) == 0 {
		return CmdREPL, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "repl", "chat":
		return CmdREPL, args

	case "do", "run", "ask":
		args.Query = strings.Join(remaining, " ")
		return CmdDo, args

	case "plan", "tracker", "progress":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
			args.Raw = remaining[1:]
		}
		return CmdPlan, args

	case "status", "s":
		return CmdStatus, args

	case "sessions", "session":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
			args.Raw = remaining[1:]
		}
		return CmdSessions, args

	case "config":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
			args.Raw = remaining[1:]
		}
		return CmdConfig, args

	case "version", "--version":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		// Unknown word: treat the whole line as a one-shot input. This
		// makes `aide git status` work the way people expect.
		args.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		args.Raw = nil
		return CmdDo, args
	}
}

// parseGlobalFlags strips global flags from argv, returning what is left.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	i := 0
	for i < len(argv) {
		arg := argv[i]

		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--no-color":
			args.NoColor = true
		case "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case "--mode":
			if i+1 < len(argv) {
				i++
				args.Mode = strings.ToLower(argv[i])
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				args.ConfigPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--mode="):
				args.Mode = strings.ToLower(strings.TrimPrefix(arg, "--mode="))
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, args
}
