package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNodeID is returned when a data or function node is
	// registered with an id that already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrUnknownNode is returned when wiring references a data id that has
	// not been registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNotInitialized is returned when Dispatch is called against a
	// dispatcher that was not created with New.
	ErrNotInitialized = errors.New("dispatcher not initialized")

	// ErrInvalidRegistration is returned for malformed registrations such
	// as a nil callable, an empty output list or a negative weight.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// CallableError wraps a failure raised by a function callable during
// dispatch. It never unwinds past Dispatch: the failure is recorded in the
// workflow and the node is discarded for the rest of the run.
type CallableError struct {
	// FunctionID is the id of the function node whose callable failed
	FunctionID string

	// Err is the underlying failure
	Err error
}

func (e *CallableError) Error() string {
	return fmt.Sprintf("callable %s failed: %v", e.FunctionID, e.Err)
}

func (e *CallableError) Unwrap() error {
	return e.Err
}
