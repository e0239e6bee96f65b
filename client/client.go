// Package client is the Go consumer of the CellScope API. It carries the
// session-gate behavior of the web frontend: a locally persisted copy of
// the session token next to the httpOnly cookie, an explicit validation
// call before protected work, and a short-lived cache for dashboard
// aggregates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// ErrLoginRequired is returned by Guard when no valid session exists. The
// attempted path has been recorded so the caller can return to it after a
// fresh login.
var ErrLoginRequired = errors.New("login required")

const (
	defaultPage   = "/dashboard"
	statsCacheTTL = 5 * time.Minute
)

type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore

	mu           sync.Mutex
	previousPage string
	stats        *UploadStats
	statsAt      time.Time
}

// New builds a client rooted at baseURL (e.g. "http://localhost:9001/api").
// The cookie jar holds the httpOnly token cookie; store holds the
// client-side copy.
func New(baseURL string, store TokenStore) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		store: store,
	}, nil
}

type authResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    Identity `json:"user"`
	Token   string   `json:"token"`
}

func (c *Client) Signup(ctx context.Context, username, email, password string) (Identity, error) {
	return c.authenticate(ctx, "/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
}

func (c *Client) Login(ctx context.Context, username, password string) (Identity, error) {
	return c.authenticate(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, payload map[string]string) (Identity, error) {
	var resp authResponse
	if err := c.post(ctx, path, payload, &resp); err != nil {
		return Identity{}, err
	}

	if err := c.store.Save(resp.Token); err != nil {
		return Identity{}, fmt.Errorf("persist token: %w", err)
	}

	c.InvalidateCache()

	return resp.User, nil
}

// Logout clears both token copies. The backend call removes the httpOnly
// cookie, which local code cannot touch.
func (c *Client) Logout(ctx context.Context) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/auth/logout", struct{}{}, &resp); err != nil {
		return err
	}
	c.InvalidateCache()
	return c.store.Clear()
}

// Guard revalidates the session before protected work. Without a local
// token it fails immediately with no network call. With one, it runs the
// explicit dual-token validation; any failure clears local auth state.
// Either way the attempted path is recorded for post-login redirect.
func (c *Client) Guard(ctx context.Context, path string) (Identity, error) {
	token, err := c.store.Load()
	if err != nil || token == "" {
		c.rememberPage(path)
		return Identity{}, ErrLoginRequired
	}

	var resp authResponse
	err = c.post(ctx, "/validate-token", map[string]string{"token": token}, &resp)
	if err != nil {
		c.rememberPage(path)
		_ = c.store.Clear()
		return Identity{}, fmt.Errorf("%w: %w", ErrLoginRequired, err)
	}

	return resp.User, nil
}

func (c *Client) rememberPage(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path != "" {
		c.previousPage = path
	}
}

// PreviousPage returns the path recorded before the last redirect to the
// login view, or the dashboard default.
func (c *Client) PreviousPage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.previousPage == "" {
		return defaultPage
	}
	return c.previousPage
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token, err := c.store.Load(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token, err := c.store.Load(); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &failure)
		return &apiError{Status: resp.StatusCode, Message: failure.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
