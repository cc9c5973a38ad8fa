package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is an in-memory state machine with transitions indexed by
// [from][event].
type Machine[S, E comparable] struct {
	mu          sync.RWMutex
	initial     S
	current     S
	transitions map[S]map[E][]Transition[S, E]
	observers   []Observer[S, E]
}

// New creates a machine in the initial state.
func New[S, E comparable](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		initial:     initial,
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics when an option fails.
func MustNew[S, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Inspect calls fn with the current state while holding the read lock, so no
// transition or its actions can run concurrently with fn. fn must not call
// back into the machine.
func (m *Machine[S, E]) Inspect(fn func(current S)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.current)
}

// AddTransition registers t after the transitions already registered for
// the same state and event.
func (m *Machine[S, E]) AddTransition(t Transition[S, E]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[t.From]
	if !ok {
		byEvent = make(map[E][]Transition[S, E])
		m.transitions[t.From] = byEvent
	}
	byEvent[t.Event] = append(byEvent[t.Event], t)
}

// Observe registers fn to be called after every completed transition.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Fire takes the first transition for the current state and event whose
// guards pass, runs its actions and moves to its target.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) (Change[S, E], error) {
	m.mu.Lock()

	t, err := m.match(ctx, event, data)
	if err != nil {
		m.mu.Unlock()
		return Change[S, E]{}, err
	}
	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			m.mu.Unlock()
			return Change[S, E]{}, fmt.Errorf("%w: %w", ErrActionFailed, err)
		}
	}

	change := Change[S, E]{From: m.current, To: t.To, Event: event, Data: data}
	m.current = t.To
	observers := m.observers
	m.mu.Unlock()

	for _, fn := range observers {
		fn(ctx, change)
	}
	return change, nil
}

// CanFire reports whether Fire would find a transition. Actions may still fail.
func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.match(ctx, event, data)
	return err == nil
}

// Reset returns to the initial state without running any action.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

// match must be called with the lock held.
func (m *Machine[S, E]) match(ctx context.Context, event E, data any) (*Transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return nil, &TransitionError{State: fmt.Sprint(m.current), Event: fmt.Sprint(event), Err: ErrNoTransition}
	}

	for i := range candidates {
		if m.guardsPass(ctx, &candidates[i], event, data) {
			return &candidates[i], nil
		}
	}
	return nil, &TransitionError{State: fmt.Sprint(m.current), Event: fmt.Sprint(event), Err: ErrTransitionRejected}
}

func (m *Machine[S, E]) guardsPass(ctx context.Context, t *Transition[S, E], event E, data any) bool {
	for _, guard := range t.Guards {
		if guard != nil && !guard(ctx, m.current, event, data) {
			return false
		}
	}
	return true
}
