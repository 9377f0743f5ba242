package lib

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool      = errors.New("unknown diagnostic tool")
	ErrEmptyExecutable  = errors.New("command is required")
	ErrNoInvocation     = errors.New("session has no invocation")
	ErrTeardownTimeout  = errors.New("process teardown timed out")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrSessionCancelled = errors.New("invocation cancelled")
)

// SpawnError reports that the executable could not be started at all
// (not found, permission denied). It is fatal to that invocation only.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ProcessError reports a non-zero exit. The session stays reusable.
type ProcessError struct {
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.ExitCode)
}
