package tactile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hdrgen/internal/logging"
)

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	logging.ExecDebug("Creating DirectExecutor: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &DirectExecutor{config: config}
}

// Config returns a copy of the executor configuration.
func (e *DirectExecutor) Config() ExecutorConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if strings.TrimSpace(cmd.Binary) == "" {
		return &ValidationError{Reason: "binary is required"}
	}
	if cmd.Timeout < 0 {
		return &ValidationError{Reason: "timeout must not be negative"}
	}
	return nil
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := e.Validate(cmd); err != nil {
		logging.ExecWarn("Command validation failed: %s - %v", cmd.CommandString(), err)
		return nil, err
	}

	cfg := e.Config()
	cmd = cfg.Merge(cmd)
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	timer := logging.StartTimer(logging.CategoryExec, "exec "+cmd.Binary)
	defer timer.Stop()

	logging.ExecDebug("[%s] Executing: %s (dir=%q, timeout=%s, stdin=%d bytes)",
		cmd.RequestID, cmd.CommandString(), cmd.WorkingDirectory, cmd.Timeout, len(cmd.Stdin))

	result := &ExecutionResult{
		ExitCode: -1,
		Command:  &cmd,
	}

	execCtx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = e.buildEnvironment(cfg, cmd.Environment)
	execCmd.WaitDelay = cfg.WaitDelay
	setupProcessGroup(execCmd)
	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: cfg.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: cfg.MaxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Truncated = stdoutLimited.truncated || stderrLimited.truncated
	if result.Truncated {
		logging.ExecWarn("[%s] Output truncated: %d bytes discarded",
			cmd.RequestID, stdoutLimited.discarded+stderrLimited.discarded)
	}

	e.classify(result, execCtx, err)

	logging.ExecDebug("[%s] Finished: %s -> outcome=%s exit=%d duration=%s",
		cmd.RequestID, cmd.Binary, result.Outcome, result.ExitCode, result.Duration)
	return result, nil
}

// classify maps the Run error onto an Outcome. The context is checked first:
// a killed process also reports an *exec.ExitError.
func (e *DirectExecutor) classify(result *ExecutionResult, execCtx context.Context, err error) {
	cmd := result.Command
	switch {
	case err == nil:
		result.Outcome = OutcomeExited
		result.ExitCode = 0
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Outcome = OutcomeTimeout
		result.KillReason = fmt.Sprintf("timeout after %s", cmd.Timeout)
		logging.ExecWarn("[%s] Command killed (timeout): %s after %s", cmd.RequestID, cmd.Binary, cmd.Timeout)
	case errors.Is(execCtx.Err(), context.Canceled):
		result.Outcome = OutcomeCanceled
		result.KillReason = "context canceled"
		logging.ExecDebug("[%s] Command canceled: %s", cmd.RequestID, cmd.Binary)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Outcome = OutcomeExited
			result.ExitCode = exitErr.ExitCode()
			return
		}
		result.Error = err.Error()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			result.Outcome = OutcomeNotFound
			logging.ExecWarn("[%s] Binary not found: %s", cmd.RequestID, cmd.Binary)
			return
		}
		result.Outcome = OutcomeFailed
		logging.ExecWarn("[%s] Command could not start: %s - %v", cmd.RequestID, cmd.Binary, err)
	}
}

// buildEnvironment creates the environment variable list.
func (e *DirectExecutor) buildEnvironment(cfg ExecutorConfig, cmdEnv []string) []string {
	env := make([]string, 0, len(cfg.AllowedEnvironment)+len(cmdEnv))

	for _, key := range cfg.AllowedEnvironment {
		if val := os.Getenv(key); val != "" {
			env = append(env, key+"="+val)
		}
	}

	// Later entries win in os/exec, so command values override.
	return append(env, cmdEnv...)
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.max <= 0 {
		written, err := lw.w.Write(p)
		lw.written += int64(written)
		return written, err
	}

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // Report the full length so the copier keeps draining.
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
