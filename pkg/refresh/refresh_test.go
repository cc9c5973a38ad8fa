package refresh_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gradeclient/pkg/jar"
	"github.com/dmitrymomot/gradeclient/pkg/refresh"
	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
	"github.com/dmitrymomot/gradeclient/pkg/tokenstore"
)

type refreshServer struct {
	*httptest.Server
	hits     atomic.Int64
	lastAuth atomic.Value
	cookie   atomic.Value
}

func newRefreshServer(t *testing.T, handler http.HandlerFunc) *refreshServer {
	t.Helper()

	rs := &refreshServer{}
	rs.lastAuth.Store("")
	rs.cookie.Store("")
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		rs.lastAuth.Store(r.Header.Get("Authorization"))
		if c, err := r.Cookie("refresh_token"); err == nil {
			rs.cookie.Store(c.Value)
		}
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func writeToken(w http.ResponseWriter, token, role string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"role":         role,
	})
}

func TestRenew_Success(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/refresh", r.URL.Path)
		writeToken(w, "fresh", "faculty")
	})

	j, err := jar.New()
	require.NoError(t, err)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	j.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/api/auth"}})

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "expired"))

	var renewed []refresh.Grant
	c := refresh.New(srv.URL+"/", store,
		refresh.WithHTTPClient(&http.Client{Jar: j}),
		refresh.WithOnRenewed(func(_ context.Context, g refresh.Grant) { renewed = append(renewed, g) }),
	)

	grant, err := c.Renew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", grant.AccessToken)
	assert.Equal(t, rolegate.Faculty, grant.Role)

	token, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)

	assert.Empty(t, srv.lastAuth.Load(), "refresh must not send the access token")
	assert.Equal(t, "r1", srv.cookie.Load(), "renewal cookie comes from the jar")
	assert.Equal(t, int64(1), c.Calls())
	assert.Len(t, renewed, 1)
}

func TestRenew_RoleOmitted(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, "fresh", "")
	})
	c := refresh.New(srv.URL, tokenstore.NewMemoryStore())

	grant, err := c.Renew(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", grant.AccessToken)
	assert.Equal(t, rolegate.Role(""), grant.Role)
}

func TestRenew_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  error
	}{
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			},
			target: refresh.ErrRejected,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			target: refresh.ErrRejected,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			target: refresh.ErrMalformedResponse,
		},
		{
			name: "missing token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeToken(w, "", "student")
			},
			target: refresh.ErrMalformedResponse,
		},
		{
			name: "unknown role",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeToken(w, "fresh", "janitor")
			},
			target: refresh.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newRefreshServer(t, tt.handler)
			store := tokenstore.NewMemoryStore()
			require.NoError(t, store.Set(context.Background(), "expired"))

			var failures atomic.Int64
			c := refresh.New(srv.URL, store,
				refresh.WithOnFailed(func(context.Context, error) { failures.Add(1) }),
			)

			_, err := c.Renew(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, refresh.ErrRenewalFailed)
			assert.ErrorIs(t, err, tt.target)

			_, err = store.Get(context.Background())
			assert.ErrorIs(t, err, tokenstore.ErrNoToken, "a failed renewal leaves no credential behind")
			assert.Equal(t, int64(1), failures.Load())
		})
	}
}

func TestRenew_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "expired"))

	c := refresh.New(addr, store)
	_, err := c.Renew(context.Background())
	require.ErrorIs(t, err, refresh.ErrRenewalFailed)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
}

func TestRenewExpired_SingleFlight(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		writeToken(w, "fresh", "student")
	})

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "expired"))

	var renewed atomic.Int64
	c := refresh.New(srv.URL, store,
		refresh.WithOnRenewed(func(context.Context, refresh.Grant) { renewed.Add(1) }),
	)

	const callers = 25
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]string, callers)
		errs  = make([]error, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			grant, err := c.RenewExpired(context.Background(), "expired")
			got[i], errs[i] = grant.AccessToken, err
		}()
	}
	close(start)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh", got[i])
	}
	assert.Equal(t, int64(1), srv.hits.Load(), "one renewal request for all callers")
	assert.Equal(t, int64(1), c.Calls())
	assert.Equal(t, int64(1), renewed.Load())
}

func TestRenewExpired_SharedFailure(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "expired"))

	var failed atomic.Int64
	c := refresh.New(srv.URL, store,
		refresh.WithOnFailed(func(context.Context, error) { failed.Add(1) }),
	)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.RenewExpired(context.Background(), "expired")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, refresh.ErrRenewalFailed)
	}
	assert.Equal(t, int64(1), srv.hits.Load())
	assert.Equal(t, int64(1), failed.Load())
}

func TestRenewExpired_StoreAlreadyRenewed(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, "unexpected", "student")
	})

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "newer"))

	c := refresh.New(srv.URL, store)
	grant, err := c.RenewExpired(context.Background(), "expired")
	require.NoError(t, err)
	assert.Equal(t, "newer", grant.AccessToken)
	assert.True(t, grant.Reused)
	assert.Zero(t, srv.hits.Load())
	assert.Zero(t, c.Calls())
}

func TestRenewExpired_SessionEnded(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, "unexpected", "student")
	})

	c := refresh.New(srv.URL, tokenstore.NewMemoryStore())
	_, err := c.RenewExpired(context.Background(), "expired")
	require.ErrorIs(t, err, refresh.ErrSessionEnded)
	assert.ErrorIs(t, err, refresh.ErrRenewalFailed)
	assert.Zero(t, srv.hits.Load())
}

func TestRenewExpired_NoPriorToken(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, "fresh", "student")
	})

	c := refresh.New(srv.URL, tokenstore.NewMemoryStore())
	grant, err := c.RenewExpired(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", grant.AccessToken)
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestRenew_CallerCancellationDoesNotAbortSharedCall(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		entered <- struct{}{}
		<-release
		writeToken(w, "fresh", "student")
	})

	store := tokenstore.NewMemoryStore()
	c := refresh.New(srv.URL, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Renew(ctx)
		done <- err
	}()

	<-entered
	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		token, err := store.Get(context.Background())
		return err == nil && token == "fresh"
	}, time.Second, 10*time.Millisecond)
}

func TestRenewExpired_TimeoutStillClearsStore(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeToken(w, "late", "student")
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := tokenstore.NewRedisStore(client)
	require.NoError(t, store.Set(context.Background(), "stale"))

	var hookCtxErr atomic.Value
	c := refresh.New(srv.URL, store,
		refresh.WithTimeout(100*time.Millisecond),
		refresh.WithOnFailed(func(ctx context.Context, _ error) {
			hookCtxErr.Store(fmt.Sprint(ctx.Err()))
		}),
	)

	_, err := c.RenewExpired(context.Background(), "stale")
	require.ErrorIs(t, err, refresh.ErrRenewalFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNoToken)
	assert.False(t, mr.Exists(tokenstore.DefaultRedisKey))
	assert.Equal(t, "<nil>", hookCtxErr.Load(), "failure hooks get a live context")
}

// gatedStore blocks the first Get until released.
type gatedStore struct {
	tokenstore.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(ctx context.Context) (string, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Store.Get(ctx)
}

func TestRenew_DoesNotSettleForReusedToken(t *testing.T) {
	t.Parallel()

	srv := newRefreshServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeToken(w, "from-server", "faculty")
	})

	mem := tokenstore.NewMemoryStore()
	require.NoError(t, mem.Set(context.Background(), "expired"))
	store := &gatedStore{Store: mem, entered: make(chan struct{}), release: make(chan struct{})}
	c := refresh.New(srv.URL, store)

	expiredDone := make(chan refresh.Grant, 1)
	go func() {
		g, err := c.RenewExpired(context.Background(), "expired")
		assert.NoError(t, err)
		expiredDone <- g
	}()
	<-store.entered

	renewDone := make(chan refresh.Grant, 1)
	go func() {
		g, err := c.Renew(context.Background())
		assert.NoError(t, err)
		renewDone <- g
	}()

	// Give Renew time to join the blocked flight, then let that flight
	// find a token someone else stored.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, mem.Set(context.Background(), "renewed-elsewhere"))
	close(store.release)

	reused := <-expiredDone
	assert.True(t, reused.Reused)
	assert.Equal(t, "renewed-elsewhere", reused.AccessToken)

	grant := <-renewDone
	assert.False(t, grant.Reused)
	assert.Equal(t, "from-server", grant.AccessToken)
	assert.Equal(t, rolegate.Faculty, grant.Role)
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestNew_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { refresh.New("http://localhost", nil) })
}
