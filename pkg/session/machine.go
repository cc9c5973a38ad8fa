package session

import (
	"context"

	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/statemachine"
)

type event string

const (
	eventSignIn  event = "sign_in"
	eventRenewed event = "renewed"
	eventSignOut event = "sign_out"
)

// transitionData carries the target role and, for sign-in, the token to store.
type transitionData struct {
	role  rolegate.Role
	token string
}

type (
	transition = statemachine.Transition[rolegate.Role, event]
	guard      = statemachine.Guard[rolegate.Role, event]
	action     = statemachine.Action[rolegate.Role, event]
	change     = statemachine.Change[rolegate.Role, event]
)

// newMachine wires the session lifecycle. Every role may sign in or be
// renewed into any authenticated role, and every role may sign out.
func (m *Manager) newMachine() *statemachine.Machine[rolegate.Role, event] {
	sm := statemachine.MustNew[rolegate.Role, event](rolegate.Unauthenticated)

	for _, from := range rolegate.Roles() {
		for _, to := range rolegate.Roles() {
			if !to.Authenticated() {
				continue
			}
			sm.AddTransition(transition{
				From: from, To: to, Event: eventSignIn,
				Guards:  []guard{targets(to)},
				Actions: []action{m.storeToken},
			})
			sm.AddTransition(transition{
				From: from, To: to, Event: eventRenewed,
				Guards: []guard{targets(to)},
			})
		}
		sm.AddTransition(transition{
			From: from, To: rolegate.Unauthenticated, Event: eventSignOut,
			Actions: []action{m.clearToken},
		})
	}

	sm.Observe(m.observe)
	return sm
}

func targets(role rolegate.Role) guard {
	return func(_ context.Context, _ rolegate.Role, _ event, data any) bool {
		d, ok := data.(transitionData)
		return ok && d.role == role
	}
}

func (m *Manager) storeToken(ctx context.Context, _, _ rolegate.Role, _ event, data any) error {
	d, _ := data.(transitionData)
	return m.store.Set(ctx, d.token)
}

// clearToken never fails the transition: the role must reset even when the
// store cannot be cleared.
func (m *Manager) clearToken(ctx context.Context, _, _ rolegate.Role, _ event, _ any) error {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to clear access token", logger.Component("session"), logger.Error(err))
	}
	return nil
}

// observe forwards completed transitions to WithOnChange observers. A repeated
// sign-in is reported even when the role is unchanged.
func (m *Manager) observe(_ context.Context, c change) {
	if !c.Changed() && c.Event != eventSignIn {
		return
	}
	st := State{Role: c.To, HasCredential: c.To.Authenticated()}
	for _, fn := range m.onChange {
		fn(st)
	}
}
