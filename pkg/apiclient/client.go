package apiclient

import (
	"bytes"
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

	"github.com/google/uuid"

	"github.com/dmitrymomot/gradeclient/pkg/logger"
	"github.com/dmitrymomot/gradeclient/pkg/refresh"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

const (
	maxDrainSize = 64 << 10

	// RequestIDHeader is sent on every attempt; a retry reuses the original value.
	RequestIDHeader = "X-Request-ID"
)

// Renewer obtains a new access token after the server rejected expired.
// *refresh.Coordinator satisfies it.
type Renewer interface {
	RenewExpired(ctx context.Context, expired string) (refresh.Grant, error)
}

// Client sends authenticated requests with one renew-and-retry on 401.
type Client struct {
	base    *url.URL
	store   tokenstore.Store
	renewer Renewer
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the API at baseURL.
func New(baseURL string, store tokenstore.Store, renewer Renewer, opts ...Option) (*Client, error) {
	if store == nil {
		panic("apiclient: token store is required")
	}
	if renewer == nil {
		panic("apiclient: renewer is required")
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:    base,
		store:   store,
		renewer: renewer,
		http:    http.DefaultClient,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do performs a logical call to path. A 401 answer triggers one renewal and,
// when it succeeds, one replay of the identical request. The caller owns the
// returned response body.
func (c *Client) Do(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	r := newRequest(opts)

	target, err := c.resolve(path, r.query)
	if err != nil {
		return nil, err
	}
	body, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	resp, err := c.send(ctx, r, target, body, contentType, token, requestID, 1)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !r.retry {
		return resp, nil
	}

	grant, err := c.renewer.RenewExpired(ctx, token)
	if err != nil {
		c.logger.DebugContext(ctx, "renewal failed, returning original response",
			logger.Component("apiclient"), logger.RequestID(requestID), logger.Error(err))
		return resp, nil
	}

	drain(resp)
	return c.send(ctx, r, target, body, contentType, grant.AccessToken, requestID, 2)
}

func (c *Client) send(ctx context.Context, r *request, target string, body []byte, contentType, token, requestID string, attempt int) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Header = r.headers(contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed",
			logger.Component("apiclient"), logger.Method(r.method), logger.Path(req.URL.Path),
			logger.Attempt(attempt), logger.RequestID(requestID), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	c.logger.DebugContext(ctx, "request completed",
		logger.Component("apiclient"), logger.Method(r.method), logger.Path(req.URL.Path),
		logger.Status(resp.StatusCode), logger.Attempt(attempt), logger.RequestID(requestID),
		logger.Duration(time.Since(start)))
	return resp, nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx)
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, tokenstore.ErrNoToken):
		return "", nil
	}
	return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if ref.IsAbs() {
		return "", fmt.Errorf("%w: path must be relative to the base url: %q", ErrInvalidRequest, path)
	}

	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(ref.Path, "/")
	q := ref.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeJSON streams resp's body into v and closes the body. The body size
// is not limited; bound it with the http.Client timeout.
func DecodeJSON(resp *http.Response, v any) error {
	defer drain(resp)

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	_ = resp.Body.Close()
}
