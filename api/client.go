package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parley/domain"
	"parley/logging"
)

const (
	// Chat turns drive a coding agent end to end; the backend can legitimately
	// hold a request open for a very long time.
	defaultTimeout = 30 * time.Minute

	defaultMaxRetries = 2
	defaultRetryDelay = 500 * time.Millisecond
)

// CredentialStore is the persistent auth storage the client reads on every
// request and mutates on login, logout, and 401.
type CredentialStore interface {
	Token() string
	Save(token string, user *domain.User) error
	Clear() error
}

// Client is the single point of outbound HTTP traffic to the backend
type Client struct {
	baseURL    string
	creds      CredentialStore
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (used in tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelay sets the base delay between retry attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a backend API client
func NewClient(baseURL string, creds CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ChatRequest is the body of POST /api/chat. SessionID and WorkspacePath are
// pointers so a brand-new conversation serializes them as explicit nulls.
type ChatRequest struct {
	Message       string  `json:"message"`
	SessionID     *string `json:"session_id"`
	WorkspacePath *string `json:"workspace_path"`
}

// ChatResponse is the backend's reply to a chat turn
type ChatResponse struct {
	SessionID     string            `json:"session_id"`
	Response      string            `json:"response"`
	ToolCalls     []domain.ToolCall `json:"tool_calls,omitempty"`
	WorkspacePath string            `json:"workspace_path,omitempty"`
}

// WorkspaceFiles lists generated artifacts in a session workspace
type WorkspaceFiles struct {
	Images  []string `json:"images"`
	Reports []string `json:"reports"`
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string      `json:"access_token"`
	User        domain.User `json:"user"`
}

// SendChat issues a chat turn
func (c *Client) SendChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions fetches all sessions from the backend
func (c *Client) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var wrapper struct {
		Sessions []domain.Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, true, &wrapper); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return wrapper.Sessions, nil
}

// DeleteSession removes a session and its workspace on the backend
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := "/api/sessions/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, true, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// History fetches the full message history for a session
func (c *Client) History(ctx context.Context, id string) ([]domain.Message, error) {
	var wrapper struct {
		Messages []domain.Message `json:"messages"`
	}
	path := "/api/session/" + url.PathEscape(id) + "/history"
	if err := c.do(ctx, http.MethodGet, path, nil, true, &wrapper); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return wrapper.Messages, nil
}

// Progress fetches the progress record for a session. A missing record is
// reported as status not_found, not as an error.
func (c *Client) Progress(ctx context.Context, id string) (*domain.Progress, error) {
	var p domain.Progress
	path := "/api/progress/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, false, &p); err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}
	p.Status = p.Status.Normalize()
	return &p, nil
}

// Visualizations lists generated images and reports in a session workspace
func (c *Client) Visualizations(ctx context.Context, id string) (*WorkspaceFiles, error) {
	var files WorkspaceFiles
	path := "/api/workspace/" + url.PathEscape(id) + "/visualizations"
	if err := c.do(ctx, http.MethodGet, path, nil, true, &files); err != nil {
		return nil, fmt.Errorf("fetch visualizations: %w", err)
	}
	return &files, nil
}

// Login authenticates and persists the bearer token and user profile
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, error) {
	return c.authenticate(ctx, "/api/auth/login", username, password)
}

// Register creates an account and persists the bearer token and user profile
func (c *Client) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return c.authenticate(ctx, "/api/auth/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*domain.User, error) {
	var resp authResponse
	req := authRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, path, req, false, &resp); err != nil {
		return nil, err
	}
	if err := c.creds.Save(resp.AccessToken, &resp.User); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}
	return &resp.User, nil
}

// Ping probes backend reachability with a low-cost listing request. The
// caller bounds it with a short context deadline.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/sessions", nil, false, nil)
}

// DownloadURL builds the URL for a workspace file: backslashes are converted
// to forward slashes and a leading slash is stripped.
func (c *Client) DownloadURL(sessionID, relPath string) string {
	p := strings.ReplaceAll(relPath, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	return c.baseURL + "/api/workspace/" + url.PathEscape(sessionID) + "/files/" + p
}

// do issues one request, retrying transient failures when retryable is set.
// At most maxRetries extra attempts, exponential backoff, no jitter.
func (c *Client) do(ctx context.Context, method, path string, body any, retryable bool, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := c.retryDelay << (i - 1)
			logging.Logger.Debug("Retrying request",
				"method", method,
				"path", path,
				"attempt", i+1,
				"delay", delay.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Stale token: drop the cached auth session. Navigation back to the
		// login screen is the UI's concern, not ours.
		if err := c.creds.Clear(); err != nil {
			logging.Logger.Warn("Failed to clear credentials after 401", "error", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// parseError extracts the backend's error message. FastAPI answers
// {"detail": ...}; older deployments used {"error": ...}.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var fields struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &fields) == nil {
		if fields.Detail != "" {
			message = fields.Detail
		} else if fields.Error != "" {
			message = fields.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: message}
}
