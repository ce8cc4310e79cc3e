package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandResult is the outcome of one spawned command. Output holds the
// terminal-visible text after carriage-return collapsing (or trimmed raw
// text when normalization was disabled). ExitCode is set only on failure.
type CommandResult struct {
	Command   string        `json:"command"`
	Directory string        `json:"directory"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Duration  time.Duration `json:"duration"`
	Output    string        `json:"output"`
	ExitCode  *int          `json:"exit_code,omitempty"`
}

// CommandError is the canonical process-failure signal: a command exited
// non-zero. The captured output in Result stays authoritative.
type CommandError struct {
	Result    CommandResult `json:"command"`
	Traceback string        `json:"traceback"`
}

func (e *CommandError) Error() string {
	code := 0
	if e.Result.ExitCode != nil {
		code = *e.Result.ExitCode
	}
	return fmt.Sprintf("command %q in %q exited with code %d", e.Result.Command, e.Result.Directory, code)
}

// Payload is the serialized data attached to a job or step record on
// completion. Exactly one variant is populated: a command result, a captured
// stack trace, or an arbitrary serializable value. A failed command sets
// both Command and Traceback.
type Payload struct {
	Command   *CommandResult  `json:"command,omitempty"`
	Traceback string          `json:"traceback,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Invocation carries the arguments of a queued or inline operation. It
// round-trips losslessly through JSON so the values a worker sees are the
// values captured at enqueue time.
type Invocation struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}
