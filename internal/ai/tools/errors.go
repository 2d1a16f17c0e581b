package tools

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already registered")
)

// SchemaError reports arguments that don't satisfy a tool's parameter schema.
type SchemaError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for %s: %q %s", e.Tool, e.Field, e.Reason)
}

// ExecutionError wraps a failure raised by a tool executor.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("error executing %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
