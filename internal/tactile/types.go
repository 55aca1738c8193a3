// Package tactile is the process layer of hdrgen. Every external program the
// generator touches (the C++ compiler probe, the history query) goes through
// an Executor so that each invocation is bounded by a timeout and reports a
// typed Outcome instead of a bare error.
//
// The Outcome separates three situations callers must treat differently:
//   - the tool could not be started at all (OutcomeNotFound, OutcomeFailed)
//   - the tool ran and answered (OutcomeExited, see ExitCode)
//   - the tool ran and was killed (OutcomeTimeout, OutcomeCanceled)
package tactile

import (
	"strings"
	"time"
)

// Outcome classifies how an execution ended.
type Outcome string

const (
	// OutcomeExited means the process ran to completion. ExitCode holds its status.
	OutcomeExited Outcome = "exited"

	// OutcomeNotFound means the binary could not be located.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeFailed means the process could not be started for another
	// reason (permission denied, bad working directory, ...).
	OutcomeFailed Outcome = "failed"

	// OutcomeTimeout means the process was killed after exceeding its timeout.
	OutcomeTimeout Outcome = "timeout"

	// OutcomeCanceled means the parent context was canceled while the process ran.
	OutcomeCanceled Outcome = "canceled"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "g++", "git").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (in KEY=VALUE format).
	// These are merged with the executor's allowed environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Timeout bounds the wall time of the process.
	// Zero means use the executor's default timeout.
	Timeout time.Duration `json:"timeout,omitempty"`

	// RequestID correlates log lines of one execution.
	RequestID string `json:"request_id,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult is the output of a single command execution.
type ExecutionResult struct {
	Outcome Outcome `json:"outcome"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	// KillReason explains why the command was killed.
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated indicates output was truncated due to size limits.
	Truncated bool `json:"truncated"`

	// Error contains the start failure for OutcomeNotFound and OutcomeFailed.
	Error string `json:"error,omitempty"`

	// Command is a copy of the command that was executed.
	Command *Command `json:"command,omitempty"`
}

// Succeeded reports whether the command ran and exited with status zero.
func (r *ExecutionResult) Succeeded() bool {
	return r.Outcome == OutcomeExited && r.ExitCode == 0
}

// Unavailable reports whether the tool itself could not be invoked.
func (r *ExecutionResult) Unavailable() bool {
	return r.Outcome == OutcomeNotFound || r.Outcome == OutcomeFailed
}

// Killed reports whether the process was terminated before it exited on its own.
func (r *ExecutionResult) Killed() bool {
	return r.Outcome == OutcomeTimeout || r.Outcome == OutcomeCanceled
}

// FirstLine returns the first non-blank line of stdout, trimmed.
func (r *ExecutionResult) FirstLine() string {
	for _, line := range strings.Split(r.Stdout, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// ExecutorConfig is the configuration for creating executors.
type ExecutorConfig struct {
	// DefaultWorkingDir is used when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeout is used when no timeout is specified.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxTimeout caps all timeout values.
	MaxTimeout time.Duration `json:"max_timeout"`

	// WaitDelay bounds how long Wait blocks for output pipes after the
	// process was killed (a compiler driver may leave children behind).
	WaitDelay time.Duration `json:"wait_delay"`

	// AllowedEnvironment lists environment variables to pass through.
	AllowedEnvironment []string `json:"allowed_environment"`

	// MaxOutputBytes caps output capture per stream.
	MaxOutputBytes int64 `json:"max_output_bytes"`
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir:  "",
		DefaultTimeout:     30 * time.Second,
		MaxTimeout:         10 * time.Minute,
		WaitDelay:          2 * time.Second,
		MaxOutputBytes:     1024 * 1024, // 1MB
		AllowedEnvironment: []string{"PATH", "HOME", "USER", "TMPDIR", "TEMP", "TMP", "SYSTEMROOT"},
	}
}

// Merge combines this config with command-specific settings.
// Command settings override config defaults.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd

	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}
	if result.Timeout <= 0 {
		result.Timeout = c.DefaultTimeout
	}
	if c.MaxTimeout > 0 && result.Timeout > c.MaxTimeout {
		result.Timeout = c.MaxTimeout
	}

	return result
}
