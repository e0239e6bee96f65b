package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiStub struct {
	hits      atomic.Int64
	statsHits atomic.Int64

	validToken string
}

func (s *apiStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "token", Value: s.validToken, Path: "/", HttpOnly: true})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Login successful",
			"user":    Identity{ID: "u1", Username: "alice", Email: "alice@example.com"},
			"token":   s.validToken,
		})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	mux.HandleFunc("POST /validate-token", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)

		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		cookie, err := r.Cookie("token")

		if err != nil || req.Token == "" || req.Token != cookie.Value || req.Token != s.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Token is valid",
			"user":    Identity{ID: "u1", Username: "alice", Email: "alice@example.com"},
		})
	})

	mux.HandleFunc("GET /uploads/stats", func(w http.ResponseWriter, r *http.Request) {
		s.statsHits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"totalUploads": 7, "uploadsToday": 2, "mostUsedModel": "MobileNet"},
		})
	})

	return mux
}

func newTestClient(t *testing.T) (*Client, *apiStub) {
	t.Helper()

	stub := &apiStub{validToken: "session-token"}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, &MemoryTokenStore{})
	require.NoError(t, err)
	return c, stub
}

func TestGuard_NoLocalToken(t *testing.T) {
	t.Parallel()

	c, stub := newTestClient(t)

	_, err := c.Guard(context.Background(), "/history")
	require.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, int64(0), stub.hits.Load(), "no network call without a local token")
	assert.Equal(t, "/history", c.PreviousPage())
}

func TestGuard_AfterLogin(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	user, err := c.Login(context.Background(), "alice", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	identity, err := c.Guard(context.Background(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
}

func TestGuard_StaleTokenClearsAuth(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	store := c.store
	require.NoError(t, store.Save("stale-token"))

	_, err := c.Guard(context.Background(), "/uploads")
	require.ErrorIs(t, err, ErrLoginRequired)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "failed validation must clear the local token")
	assert.Equal(t, "/uploads", c.PreviousPage())
}

func TestPreviousPage_Default(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	assert.Equal(t, "/dashboard", c.PreviousPage())
}

func TestLogout_ClearsLocalToken(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), "alice", "pass1234")
	require.NoError(t, err)

	require.NoError(t, c.Logout(context.Background()))

	token, err := c.store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = c.Guard(context.Background(), "/uploads")
	require.ErrorIs(t, err, ErrLoginRequired)
}

func TestStats_Cached(t *testing.T) {
	t.Parallel()

	c, stub := newTestClient(t)
	_, err := c.Login(context.Background(), "alice", "pass1234")
	require.NoError(t, err)

	first, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.TotalUploads)

	_, err = c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stub.statsHits.Load(), "second fetch must come from cache")

	c.InvalidateCache()
	_, err = c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.statsHits.Load(), "invalidation forces a refetch")
}

func TestFileTokenStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "auth", "token")
	store := NewFileTokenStore(path)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file reads as no token")

	require.NoError(t, store.Save("abc123"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Invalid credentials"})
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, &MemoryTokenStore{})
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}
