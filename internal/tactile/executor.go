package tactile

import (
	"context"
	"fmt"
)

// Executor is the interface for command execution.
type Executor interface {
	// Execute runs a command and returns its result. A start failure or a
	// timeout is reported through ExecutionResult.Outcome, not the error;
	// the error is reserved for commands the executor refuses to run.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)

	// Validate checks if a command can be executed by this executor.
	Validate(cmd Command) error
}

// ValidationError is returned when a command is rejected before execution.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid command: %s", e.Reason)
}
