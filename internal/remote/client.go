// Package remote implements the workspace.Store contract against the
// HTTP/JSON document service, with push notifications over SSE.
package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/magpsaad/partner-calculator/internal/models"
	"github.com/magpsaad/partner-calculator/internal/workspace"
)

// ErrAuth covers a bad workspace id or password, and expired sessions. It
// blocks entry to the workspace; other errors are transient sync failures.
var ErrAuth = errors.New("workspace authentication failed")

// Ensure Client implements the controller's store contract.
var _ workspace.Store = (*Client)(nil)

// Client talks to the document service. Create a client, then either
// CreateWorkspace or Login to obtain a session before using the document
// operations.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	cancelSub context.CancelFunc
	subActive bool
}

// New creates a client for the service at baseURL (e.g.
// "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// CreateWorkspace registers a new workspace and returns its id. The
// password travels only in the request body, never in the persisted
// document.
func (c *Client) CreateWorkspace(ctx context.Context, password string) (string, error) {
	var resp struct {
		WorkspaceID string `json:"workspaceId"`
	}
	err := c.postJSON(ctx, "/api/workspaces", map[string]string{"password": password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.WorkspaceID, nil
}

// Login authenticates against a workspace, stores the session token for
// subsequent calls, and returns the current document. Returns ErrAuth on a
// bad workspace id or password.
func (c *Client) Login(ctx context.Context, workspaceID, password string) (*models.Workspace, error) {
	var resp struct {
		Token string            `json:"token"`
		State *models.Workspace `json:"state"`
	}
	err := c.postJSON(ctx, "/api/workspaces/"+workspaceID+"/login", map[string]string{"password": password}, &resp)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return resp.State, nil
}

// GetDocument fetches the current workspace document.
func (c *Client) GetDocument(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/workspaces/"+workspaceID+"/document", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		State *models.Workspace `json:"state"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

// SetDocument overwrites the workspace document wholesale.
func (c *Client) SetDocument(ctx context.Context, workspaceID string, state *models.Workspace) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/workspaces/"+workspaceID+"/document", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Subscribe opens the SSE push channel and invokes onChange once per
// delivered snapshot, starting with the state at connect time. Only one
// subscription may be active per client; the returned function releases
// it. onChange runs on the reader goroutine.
func (c *Client) Subscribe(ctx context.Context, workspaceID string, onChange func(*models.Workspace)) (func(), error) {
	c.mu.Lock()
	if c.subActive {
		c.mu.Unlock()
		return nil, errors.New("subscription already active")
	}
	subCtx, cancel := context.WithCancel(ctx)
	c.subActive = true
	c.cancelSub = cancel
	token := c.token
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		if c.cancelSub != nil {
			c.cancelSub()
			c.cancelSub = nil
		}
		c.subActive = false
		c.mu.Unlock()
	}

	req, err := http.NewRequestWithContext(subCtx, http.MethodGet,
		c.baseURL+"/api/workspaces/"+workspaceID+"/events?token="+token, nil)
	if err != nil {
		release()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to open push channel: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		release()
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, ErrAuth
		}
		return nil, fmt.Errorf("push channel rejected: status %d", resp.StatusCode)
	}

	go c.readEvents(resp.Body, onChange)

	return release, nil
}

// readEvents consumes the SSE stream until it ends (unsubscribe cancels
// the request context, which closes the body).
func (c *Client) readEvents(body io.ReadCloser, onChange func(*models.Workspace)) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		case line == "":
			if len(data) == 0 {
				continue
			}
			state := models.NewWorkspace()
			if err := json.Unmarshal(data, state); err != nil {
				slog.Warn("Discarding undecodable push snapshot", "error", err)
			} else {
				onChange(state)
			}
			data = nil
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("request failed: %s", apiErr.Error)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
