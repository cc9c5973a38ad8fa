// Package statemachine provides a small, typed finite state machine.
//
// States and events are any comparable types, usually string-based enums.
// Transitions are looked up by (current state, event); when several share a
// key, the first whose guards all pass wins, so guards can branch one event
// to different targets. Actions run in order while the machine is locked and
// any error aborts the transition, which makes them the place for side
// effects that must stay consistent with the state. Observers run after the
// lock is released.
//
//	type phase string
//	type event string
//
//	m := statemachine.MustNew[phase, event]("draft",
//	    statemachine.WithTransition[phase, event]("draft", "published", "publish",
//	        statemachine.WithAction[phase, event](func(ctx context.Context, from, to phase, ev event, data any) error {
//	            return store.Publish(ctx, data.(int))
//	        }),
//	    ),
//	)
//	change, err := m.Fire(ctx, "publish", postID)
//
// A Machine is safe for concurrent use.
package statemachine
