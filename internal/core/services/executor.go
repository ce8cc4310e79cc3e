package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
	"time"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

const defaultShell = "/bin/sh"

// Command describes one process to spawn. The zero values give the common
// case: default shell, normalized output, output logged.
type Command struct {
	Text      string
	Directory string

	// Input is written once to stdin before output is consumed.
	Input string

	// SuppressOutput skips the output log line, for noisy or sensitive
	// commands. The command itself is always logged.
	SuppressOutput bool

	// Shell overrides the interpreter running Text.
	Shell string

	// Raw bypasses carriage-return collapsing and returns trimmed raw text,
	// for output that is structured data rather than terminal text.
	Raw bool
}

// Executor spawns child processes and captures their terminal-visible
// output. It blocks the calling goroutine until the child exits.
type Executor struct {
	logger *slog.Logger
}

func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the command and returns its captured result. A non-zero exit
// yields a *domain.CommandError carrying the same output, the exit code and
// a stack trace of the call site; any other failure (bad directory, spawn
// error) is returned as a plain error. Timestamps are captured on both
// paths so duration is always available.
func (e *Executor) Execute(ctx context.Context, c Command) (domain.CommandResult, error) {
	shell := c.Shell
	if shell == "" {
		shell = defaultShell
	}

	e.logger.Info("executing command", "command", c.Text, "directory", c.Directory)

	cmd := exec.CommandContext(ctx, shell, "-c", c.Text)
	cmd.Dir = c.Directory

	// stderr merges into stdout through a single pipe, so interleaving
	// matches what a terminal would have shown.
	pr, pw, err := os.Pipe()
	if err != nil {
		return domain.CommandResult{}, fmt.Errorf("open output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	var stdin io.WriteCloser
	if c.Input != "" {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			pr.Close()
			pw.Close()
			return domain.CommandResult{}, fmt.Errorf("open stdin pipe: %w", err)
		}
	}

	start := time.Now().UTC()
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return domain.CommandResult{}, fmt.Errorf("start command: %w", err)
	}
	// The child now owns the write end; closing ours makes the read loop
	// see EOF once the child exits, independent of any sentinel character.
	pw.Close()

	if stdin != nil {
		if _, err := io.WriteString(stdin, c.Input); err != nil {
			e.logger.Warn("stdin write failed", "command", c.Text, "error", err)
		}
		stdin.Close()
	}

	term := &terminalOutput{}
	var raw strings.Builder
	reader := bufio.NewReader(pr)
	for {
		r, _, readErr := reader.ReadRune()
		if readErr != nil {
			break
		}
		raw.WriteRune(r)
		term.WriteRune(r)
	}
	pr.Close()

	waitErr := cmd.Wait()
	end := time.Now().UTC()

	result := domain.CommandResult{
		Command:   c.Text,
		Directory: c.Directory,
		Start:     start,
		End:       end,
		Duration:  end.Sub(start),
	}
	if c.Raw {
		result.Output = strings.TrimSpace(raw.String())
	} else {
		result.Output = term.String()
	}

	if !c.SuppressOutput {
		e.logger.Info("command output", "command", c.Text, "output", result.Output)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			result.ExitCode = &code
			return result, &domain.CommandError{
				Result:    result,
				Traceback: string(debug.Stack()),
			}
		}
		return result, fmt.Errorf("wait for command: %w", waitErr)
	}

	return result, nil
}
