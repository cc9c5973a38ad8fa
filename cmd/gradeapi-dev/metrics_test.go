package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gradeclient/internal/fakeapi"
)

func TestMetricsHandler_ReportsRefreshCalls(t *testing.T) {
	t.Parallel()

	api := fakeapi.New()
	h := newHandler(api, "http://localhost:3000")

	form := url.Values{"username": {"student1"}, "password": {fakeapi.DefaultPassword}}
	login := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	login.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	require.Equal(t, http.StatusOK, rec.Code)

	refresh := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	for _, c := range rec.Result().Cookies() {
		refresh.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, refresh)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gradeapi_refresh_requests_total 1")
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newHandler(fakeapi.New(), "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}

func TestHandler_CORSAllowsCredentials(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/refresh", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newHandler(fakeapi.New(), "http://localhost:3000").ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
