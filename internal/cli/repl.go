// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive REPL for aide.
//
// Command: aide (no arguments) or aide repl
//
// Reads one line at a time, routes it, and prints the result. Liner
// provides readline-style editing and persistent input history.
//
// Interactive Commands:
//
//	/help              Show REPL commands
//	/mode <m>          Pin shell|ai|task for the next line only
//	/status            Show session and capability status
//	/plan              Show the capability report
//	/history [n]       Show recent turns
//	/clear             Reset session history (keeps cwd)
//	/exit, /quit       Leave the REPL
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/aide/internal/config"
	"github.com/jeranaias/aide/internal/pattern"
	"github.com/jeranaias/aide/internal/router"
	"github.com/jeranaias/aide/internal/session"
	"github.com/jeranaias/aide/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &replInput{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}

	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *replInput) read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

func (in *replInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// TURN CANCELLATION
// =============================================================================

// turnCancel hands the in-flight turn's cancel func between the REPL loop
// and the signal goroutine. Both sides go through the mutex.
type turnCancel struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// set installs the cancel func for the current turn; nil clears it.
func (tc *turnCancel) set(c context.CancelFunc) {
	tc.mu.Lock()
	tc.cancel = c
	tc.mu.Unlock()
}

// fire cancels the in-flight turn, if any. Safe to call at any time.
func (tc *turnCancel) fire() {
	tc.mu.Lock()
	c := tc.cancel
	tc.cancel = nil
	tc.mu.Unlock()
	if c != nil {
		c()
	}
}

// =============================================================================
// REPL
// =============================================================================

// HandleREPL runs the interactive loop.
func HandleREPL(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	// Dangerous shell commands prompt inline.
	app.Shell.Confirm = confirmOnStdin

	if !args.Quiet {
		printWelcome(app)
	}

	input := newReplInput()
	defer input.close()

	// Ctrl+C during a dispatch cancels it instead of killing the REPL.
	var turn turnCancel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			turn.fire()
		}
	}()

	for {
		line, err := input.read(colorize(promptStyle, app.Config.UI.Prompt))
		if err != nil {
			// Ctrl+C at the prompt or EOF (Ctrl+D): exit gracefully.
			fmt.Println()
			printExitSummary(app)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing := handleReplCommand(line, app)
			if !keepGoing {
				printExitSummary(app)
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			printExitSummary(app)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		turn.set(cancel)
		res := app.Router.Route(ctx, line, app.Session)
		turn.set(nil)
		cancel()
		printResult(res, app, args.Verbose)
		app.SaveSession()
	}
}

// =============================================================================
// REPL COMMANDS
// =============================================================================

// handleReplCommand runs one slash command. Returns false to exit the loop.
func handleReplCommand(line string, app *App) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]

	switch cmd {
	case "/exit", "/quit", "/q":
		return false

	case "/help", "/h", "/?":
		printReplHelp()

	case "/mode", "/m":
		if len(rest) == 0 {
			if m, ok := app.Session.PinnedMode(); ok {
				fmt.Printf("next line is pinned to %s mode\n", m)
			} else {
				fmt.Println("no mode pinned; usage: /mode shell|ai|task")
			}
			return true
		}
		name := strings.ToLower(rest[0])
		if name == "auto" || name == "off" {
			app.Session.TakePin()
			fmt.Println("pin cleared; lines are classified automatically")
			return true
		}
		m, err := pattern.ParseMode(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, colorize(errorStyle, err.Error()))
			return true
		}
		app.Session.Pin(m)
		fmt.Printf("next line will route to %s mode\n", m)

	case "/status", "/s":
		printSessionStatus(app)

	case "/plan", "/p":
		if err := printPlanReport(app, false); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", colorize(errorStyle, "[Error]"), err)
		}

	case "/history":
		n := 10
		if len(rest) > 0 {
			if parsed, err := strconv.Atoi(rest[0]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		printHistory(app, n)

	case "/clear":
		app.Session.Reset()
		fmt.Println("session history cleared")

	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (try /help)\n", cmd)
	}
	return true
}

func printReplHelp() {
	fmt.Println(`REPL commands:
  /mode shell|ai|task   Pin a mode for the next line only (auto clears)
  /status               Show session and capability status
  /plan                 Show the capability report
  /history [n]          Show the last n turns (default 10)
  /clear                Reset session history
  /exit                 Leave the REPL

Routing:
  $ <command>           Force shell mode for this line
  ai: <question>        Force conversational mode for this line
  anything else         Classified automatically`)
}

// =============================================================================
// OUTPUT
// =============================================================================

func printWelcome(app *App) {
	fmt.Println(colorize(headerStyle, "aide "+Version))
	fmt.Println(colorize(infoStyle, "routing: $ for shell, ai: for the model, plain questions answered, tasks dispatched"))
	fmt.Println(colorize(mutedStyle, "type /help for commands, /exit to leave"))
	fmt.Println()
}

func printExitSummary(app *App) {
	turns := len(app.Session.History())
	elapsed := time.Since(app.Session.StartTime()).Round(time.Second)
	fmt.Printf("%s %d turns in %s\n", colorize(infoStyle, "session:"), turns, elapsed)
}

// printResult renders one routing outcome.
func printResult(res router.HandlerResult, app *App, verbose bool) {
	if verbose {
		fmt.Println(colorize(mutedStyle, fmt.Sprintf("[%s in %s]",
			res.Classification, res.Duration.Round(time.Millisecond))))
	}

	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorize(errorStyle, "[Error]"), res.Err)
		if res.Output != "" {
			fmt.Print(ensureNewline(res.Output))
		}
		return
	}

	if res.Degraded {
		fmt.Println(colorize(degradedStyle, "[degraded: "+res.Reason+"]"))
	}

	out := res.Output
	if res.Classification.Mode == pattern.ModeConversational || res.Degraded {
		if app.Config.UI.RenderMarkdown && IsStdoutTTY() {
			out = renderMarkdown(out)
		}
	}
	fmt.Print(ensureNewline(out))
}

func printHistory(app *App, n int) {
	turns := app.Session.LastTurns(n)
	if len(turns) == 0 {
		fmt.Println("no turns yet")
		return
	}
	for _, t := range turns {
		fmt.Println(formatTurnLine(t))
	}
}

// History table columns: "15:04:05" stamp, mode marker, then the input.
const (
	turnTimeWidth = 8
	turnModeWidth = 14
)

// formatTurnLine renders one history row. The input column is truncated to
// the terminal width so long commands stay on one line.
func formatTurnLine(t session.Turn) string {
	marker := strings.ToLower(t.Mode.String())
	st := shellStyle
	if t.Degraded {
		marker += "*"
		st = degradedStyle
	}

	inputWidth := TerminalWidth() - turnTimeWidth - turnModeWidth - 4
	if inputWidth < MinTerminalWidth/2 {
		inputWidth = MinTerminalWidth / 2
	}

	return fmt.Sprintf("%s  %s %s",
		colorize(mutedStyle, t.Timestamp.Format("15:04:05")),
		colorize(st, util.PadRight(marker, turnModeWidth)),
		util.TruncateWidth(t.Input, inputWidth))
}

// confirmOnStdin asks before running a destructive shell command.
func confirmOnStdin(command string) bool {
	fmt.Printf("%s run %q? [y/N] ", colorize(degradedStyle, "[dangerous]"), command)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// ensureNewline terminates output so the next prompt starts on its own line.
func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
