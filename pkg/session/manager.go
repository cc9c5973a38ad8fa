package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/gradeclient/pkg/apiclient"
	"github.com/dmitrymomot/gradeclient/pkg/jar"
	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/refresh"
	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/statemachine"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

const (
	loginPath  = "/api/auth/login"
	logoutPath = "/api/auth/logout"

	maxAuthResponseSize = 64 << 10

	// clearTimeout bounds clearing the store when the session collapses,
	// independent of the context that triggered it.
	clearTimeout = 5 * time.Second
)

// State is a snapshot of the session.
type State struct {
	Role          rolegate.Role
	HasCredential bool
}

// Authenticated reports whether the snapshot represents a signed-in user.
func (s State) Authenticated() bool {
	return s.Role.Authenticated()
}

// Manager handles the client's session lifecycle.
type Manager struct {
	// machine holds the role as its state. Store writes run as transition
	// actions, so the role and the credential change in one critical section.
	machine *statemachine.Machine[rolegate.Role, event]

	baseURL        string
	store          tokenstore.Store
	http           *http.Client
	gate           *rolegate.Gate
	refreshTimeout time.Duration
	logger         *slog.Logger
	onChange       []func(State)

	renewer *refresh.Coordinator
	client  *apiclient.Client
}

// New creates a session manager for the API at baseURL.
func New(baseURL string, opts ...Option) (*Manager, error) {
	m := &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   tokenstore.NewMemoryStore(),
		gate:    rolegate.New(rolegate.DefaultRoutes()...),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.ensureJar(); err != nil {
		return nil, err
	}
	m.machine = m.newMachine()

	refreshOpts := []refresh.Option{
		refresh.WithHTTPClient(m.http),
		refresh.WithLogger(m.logger),
		refresh.WithOnRenewed(m.renewed),
		refresh.WithOnFailed(m.renewalFailed),
	}
	if m.refreshTimeout > 0 {
		refreshOpts = append(refreshOpts, refresh.WithTimeout(m.refreshTimeout))
	}
	m.renewer = refresh.New(m.baseURL, m.store, refreshOpts...)

	client, err := apiclient.New(m.baseURL, m.store, m.renewer,
		apiclient.WithHTTPClient(m.http),
		apiclient.WithLogger(m.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	m.client = client

	return m, nil
}

func (m *Manager) ensureJar() error {
	if m.http == nil {
		m.http = &http.Client{}
	}
	if m.http.Jar != nil {
		return nil
	}

	j, err := jar.New(jar.WithLogger(m.logger))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c := *m.http
	c.Jar = j
	m.http = &c
	return nil
}

// Probe recovers the session at process start. When a token is stored it is
// renewed and the server-declared role adopted; otherwise, or when renewal
// fails or declares no role, the session is unauthenticated.
func (m *Manager) Probe(ctx context.Context) rolegate.Role {
	if _, err := m.store.Get(ctx); err != nil {
		if !errors.Is(err, tokenstore.ErrNoToken) {
			m.logger.WarnContext(ctx, "failed to read stored token", logger.Component("session"), logger.Error(err))
		}
		m.collapse(ctx)
		return rolegate.Unauthenticated
	}

	grant, err := m.renewer.Renew(ctx)
	if err != nil {
		m.logger.DebugContext(ctx, "session probe failed", logger.Component("session"), logger.Error(err))
		m.collapse(ctx)
		return rolegate.Unauthenticated
	}
	if !grant.Role.Authenticated() {
		m.logger.DebugContext(ctx, "renewal declared no role", logger.Component("session"))
		m.collapse(ctx)
		return rolegate.Unauthenticated
	}

	return m.Role()
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Login exchanges credentials for a session. It reports success only; the
// reason for a failure is logged. A failed attempt leaves any existing
// session untouched.
func (m *Manager) Login(ctx context.Context, username, password string) bool {
	if strings.TrimSpace(username) == "" || password == "" {
		return false
	}

	token, role, err := m.login(ctx, username, password)
	if err != nil {
		m.logger.DebugContext(ctx, "login failed", logger.Component("session"), logger.Error(err))
		return false
	}

	if _, err := m.machine.Fire(ctx, eventSignIn, transitionData{role: role, token: token}); err != nil {
		m.logger.WarnContext(ctx, "failed to store access token", logger.Component("session"), logger.Error(err))
		return false
	}

	m.logger.InfoContext(ctx, "signed in", logger.Component("session"), logger.Role(role))
	return true
}

func (m *Manager) login(ctx context.Context, username, password string) (string, rolegate.Role, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", apiclient.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: status %d", ErrLoginRejected, resp.StatusCode)
	}

	var ar authResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAuthResponseSize)).Decode(&ar); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrLoginResponse, err)
	}
	if ar.AccessToken == "" {
		return "", "", fmt.Errorf("%w: missing access_token", ErrLoginResponse)
	}
	role, err := rolegate.Parse(ar.Role)
	if err != nil || !role.Authenticated() {
		return "", "", errors.Join(ErrLoginResponse, fmt.Errorf("role %q", ar.Role))
	}
	return ar.AccessToken, role, nil
}

// Logout asks the server to end the session and then clears local state
// regardless of the outcome.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.logout(ctx); err != nil {
		m.logger.DebugContext(ctx, "server logout failed", logger.Component("session"), logger.Error(err))
	}
	m.collapse(ctx)
	m.logger.InfoContext(ctx, "signed out", logger.Component("session"))
}

func (m *Manager) logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+logoutPath, nil)
	if err != nil {
		return err
	}
	if token, err := m.store.Get(ctx); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAuthResponseSize))
	_ = resp.Body.Close()

	m.logger.DebugContext(ctx, "server logout", logger.Component("session"), logger.Status(resp.StatusCode))
	return nil
}

// Do performs an authenticated API call. See apiclient.Client.Do.
func (m *Manager) Do(ctx context.Context, path string, opts ...apiclient.RequestOption) (*http.Response, error) {
	return m.client.Do(ctx, path, opts...)
}

// Role returns the current role.
func (m *Manager) Role() rolegate.Role {
	return m.machine.Current()
}

// State returns a snapshot of the role and whether a credential is stored.
func (m *Manager) State(ctx context.Context) State {
	var st State
	m.machine.Inspect(func(role rolegate.Role) {
		_, err := m.store.Get(ctx)
		st = State{Role: role, HasCredential: err == nil}
	})
	return st
}

func (m *Manager) IsAuthenticated() bool {
	return m.Role().Authenticated()
}

// Allowed reports whether the current role is in required.
func (m *Manager) Allowed(required ...rolegate.Role) bool {
	return rolegate.IsAllowed(m.Role(), required...)
}

// Authorize guards a route for the current role.
func (m *Manager) Authorize(path string) error {
	return m.gate.Authorize(m.Role(), path)
}

// Navigation lists the routes the current role may open.
func (m *Manager) Navigation() []rolegate.Route {
	return m.gate.Visible(m.Role())
}

// RenewalCalls reports how many renewal requests reached the server.
func (m *Manager) RenewalCalls() int64 {
	return m.renewer.Calls()
}

// renewed adopts a server-declared role. A renewal without one keeps the
// current role; Probe decides separately what an undeclared role means.
func (m *Manager) renewed(ctx context.Context, grant refresh.Grant) {
	if !grant.Role.Authenticated() {
		return
	}

	change, err := m.machine.Fire(ctx, eventRenewed, transitionData{role: grant.Role})
	if err != nil {
		m.logger.WarnContext(ctx, "failed to adopt renewed role", logger.Component("session"), logger.Error(err))
		return
	}
	if change.Changed() {
		m.logger.InfoContext(ctx, "role updated by renewal", logger.Component("session"), logger.Role(grant.Role))
	}
}

func (m *Manager) renewalFailed(ctx context.Context, err error) {
	m.logger.InfoContext(ctx, "session expired", logger.Component("session"), logger.Error(err))
	m.collapse(ctx)
}

// collapse clears the credential and the role in one transition. It runs on
// a fresh deadline: the caller's context may be the reason the session ended.
func (m *Manager) collapse(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	if _, err := m.machine.Fire(cctx, eventSignOut, transitionData{}); err != nil {
		m.logger.WarnContext(cctx, "failed to end session", logger.Component("session"), logger.Error(err))
	}
}
