package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

const (
	flightKey       = "renew"
	maxResponseSize = 64 << 10

	// cleanupTimeout bounds clearing the store after a failed renewal. The
	// flight's own deadline may be the reason it failed.
	cleanupTimeout = 5 * time.Second

	// maxRenewJoins caps how often Renew re-joins after landing on a flight
	// that made no request.
	maxRenewJoins = 3
)

// Grant is the outcome of a successful renewal. Role is empty when the
// server did not declare one.
type Grant struct {
	AccessToken string
	Role        rolegate.Role

	// Reused reports that another caller had already renewed the token and
	// no request was made. Role is always empty then.
	Reused bool
}

// Coordinator performs single-flight token renewals.
type Coordinator struct {
	baseURL  string
	endpoint string
	client   *http.Client
	store    tokenstore.Store
	timeout  time.Duration
	logger   *slog.Logger

	onRenewed []RenewedHook
	onFailed  []FailedHook

	group singleflight.Group
	calls atomic.Int64
}

// New creates a coordinator for the API at baseURL. It panics on a nil store.
func New(baseURL string, store tokenstore.Store, opts ...Option) *Coordinator {
	if store == nil {
		panic("refresh: token store is required")
	}

	c := &Coordinator{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: "/api/auth/refresh",
		client:   http.DefaultClient,
		store:    store,
		timeout:  15 * time.Second,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Renew obtains a new access token from the server, joining an in-flight
// renewal if there is one. The returned grant always comes from a response,
// so its Role is what the server declared.
func (c *Coordinator) Renew(ctx context.Context) (Grant, error) {
	var (
		grant Grant
		err   error
	)
	for range maxRenewJoins {
		grant, err = c.join(ctx, c.renew)
		if err != nil || !grant.Reused {
			return grant, err
		}
		// Joined a flight that reused a stored token and so learned no role.
	}
	return grant, err
}

// RenewExpired is Renew for a caller whose request was rejected while
// carrying expired. Inside the flight the store is consulted first: if it
// already holds another token, that token is returned without a network call;
// if expired was set and the store is now empty, the session has ended and
// ErrSessionEnded is returned.
func (c *Coordinator) RenewExpired(ctx context.Context, expired string) (Grant, error) {
	return c.join(ctx, func(ctx context.Context) (Grant, error) {
		current, err := c.store.Get(ctx)
		switch {
		case err == nil && current != expired:
			return Grant{AccessToken: current, Reused: true}, nil
		case errors.Is(err, tokenstore.ErrNoToken) && expired != "":
			return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, ErrSessionEnded)
		}
		return c.renew(ctx)
	})
}

// Calls reports how many renewal requests reached the network.
func (c *Coordinator) Calls() int64 {
	return c.calls.Load()
}

func (c *Coordinator) join(ctx context.Context, fn func(context.Context) (Grant, error)) (Grant, error) {
	// The shared call must not die with whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(shared, c.timeout)
		defer cancel()
		return fn(fctx)
	})

	select {
	case <-ctx.Done():
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, ctx.Err())
	case res := <-ch:
		c.logger.DebugContext(ctx, "renewal outcome", logger.Component("refresh"), logger.Shared(res.Shared), logger.Error(res.Err))
		if res.Err != nil {
			return Grant{}, res.Err
		}
		return res.Val.(Grant), nil
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// renew performs the network call. It runs at most once at a time.
func (c *Coordinator) renew(ctx context.Context) (Grant, error) {
	c.calls.Add(1)
	start := time.Now()

	grant, err := c.exchange(ctx)
	if err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		if clearErr := c.store.Clear(cctx); clearErr != nil {
			c.logger.WarnContext(cctx, "failed to clear token after renewal failure", logger.Component("refresh"), logger.Error(clearErr))
		}
		c.logger.InfoContext(cctx, "token renewal failed", logger.Component("refresh"), logger.Duration(time.Since(start)), logger.Error(err))
		for _, h := range c.onFailed {
			h(cctx, err)
		}
		return Grant{}, err
	}

	c.logger.DebugContext(ctx, "token renewed", logger.Component("refresh"), logger.Duration(time.Since(start)), logger.Role(grant.Role))
	for _, h := range c.onRenewed {
		h(ctx, grant)
	}
	return grant, nil
}

func (c *Coordinator) exchange(ctx context.Context) (Grant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, nil)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Grant{}, fmt.Errorf("%w: %w: status %d", ErrRenewalFailed, ErrRejected, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Grant{}, fmt.Errorf("%w: %w: %w", ErrRenewalFailed, ErrMalformedResponse, err)
	}
	if tr.AccessToken == "" {
		return Grant{}, fmt.Errorf("%w: %w: missing access_token", ErrRenewalFailed, ErrMalformedResponse)
	}

	grant := Grant{AccessToken: tr.AccessToken}
	if tr.Role != "" {
		role, err := rolegate.Parse(tr.Role)
		if err != nil {
			return Grant{}, fmt.Errorf("%w: %w: %w", ErrRenewalFailed, ErrMalformedResponse, err)
		}
		grant.Role = role
	}

	if err := c.store.Set(ctx, grant.AccessToken); err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrRenewalFailed, err)
	}
	return grant, nil
}
