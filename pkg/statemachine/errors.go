package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrNoTransition       = errors.New("statemachine: no transition available")
	ErrTransitionRejected = errors.New("statemachine: transition rejected by guards")
	ErrActionFailed       = errors.New("statemachine: transition action failed")
)

// TransitionError reports which state and event could not be matched.
// It wraps ErrNoTransition or ErrTransitionRejected.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: state %q, event %q", e.Err, e.State, e.Event)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
