package action

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when a call names an action that is not registered.
var ErrUnknownAction = errors.New("unknown action")

// ParseError reports call text that does not satisfy the call grammar or
// the declared parameters of the named action.
type ParseError struct {
	Input   string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse action call at offset %d: %s", e.Pos, e.Message)
	}
	return "parse action call: " + e.Message
}

// ExecutionError wraps a failure raised while running an action.
type ExecutionError struct {
	Action string
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Action, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }
