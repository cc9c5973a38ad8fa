package statemachine

import "context"

// Action runs while a transition is in progress. Returning an error aborts it
// and leaves the state unchanged.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Guard decides whether a transition may be taken for this event and data.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Observer is notified after a transition completed and the machine unlocked.
type Observer[S, E comparable] func(ctx context.Context, change Change[S, E])

// Transition is a state change triggered by an event.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // all must pass
	Actions []Action[S, E] // run in order before the state changes
}

// Change describes a completed transition. From may equal To.
type Change[S, E comparable] struct {
	From  S
	To    S
	Event E
	Data  any
}

// Changed reports whether the state differs after the transition.
func (c Change[S, E]) Changed() bool {
	return c.From != c.To
}
