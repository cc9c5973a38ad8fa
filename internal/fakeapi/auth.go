package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
)

type claims struct {
	Role       string `json:"role"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role,omitempty"`
}

type userContextKey struct{}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	s.mu.Lock()
	u, ok := s.users[username]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	now := s.now()
	if u.lockedUntil.After(now) {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "Account locked. Try again later.")
		return
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		u.failed++
		if s.maxAttempts > 0 && u.failed >= s.maxAttempts {
			u.lockedUntil = now.Add(s.lockout)
			u.failed = 0
		}
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	u.failed = 0
	access, err := s.issueAccessToken(u)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	refresh := s.issueRefreshToken(u)
	role := u.Role
	s.mu.Unlock()

	s.setRefreshCookie(w, refresh)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer", Role: string(role)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	s.mu.Lock()
	entry, ok := s.refreshTokens[cookie.Value]
	if !ok || entry.revoked || !entry.expires.After(s.now()) {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	u, ok := s.usersByID[entry.userID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	access, err := s.issueAccessToken(u)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	var rotated string
	if s.rotate {
		entry.revoked = true
		rotated = s.issueRefreshToken(u)
	}
	resp := tokenResponse{AccessToken: access, TokenType: "bearer"}
	if !s.refreshOmitsRole {
		resp.Role = string(u.Role)
	}
	s.mu.Unlock()

	if rotated != "" {
		s.setRefreshCookie(w, rotated)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		s.mu.Lock()
		if entry, ok := s.refreshTokens[cookie.Value]; ok {
			entry.revoked = true
		}
		s.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// issueAccessToken must be called with s.mu held.
func (s *Server) issueAccessToken(u *user) (string, error) {
	now := s.now()
	c := claims{
		Role:       string(u.Role),
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// issueRefreshToken must be called with s.mu held.
func (s *Server) issueRefreshToken(u *user) string {
	raw := uuid.NewString()
	s.refreshTokens[raw] = &refreshEntry{userID: u.ID, expires: s.now().Add(s.refreshTTL)}
	return raw
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

var errInvalidToken = errors.New("invalid token")

func (s *Server) parseAccessToken(raw string) (*user, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return nil, errInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Generation != s.generation {
		return nil, errInvalidToken
	}
	u, ok := s.usersByID[id]
	if !ok {
		return nil, errInvalidToken
	}
	copied := *u
	return &copied, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		u, err := s.parseAccessToken(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, u)))
	})
}

func (s *Server) requireRole(roles ...rolegate.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := currentUser(r)
			if u == nil || !rolegate.IsAllowed(u.Role, roles...) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(userContextKey{}).(*user)
	return u
}
