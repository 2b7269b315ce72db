package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/domain"
)

// fakeCreds is an in-memory CredentialStore for tests
type fakeCreds struct {
	token     string
	user      *domain.User
	clearedAt int32
}

func (f *fakeCreds) Token() string { return f.token }

func (f *fakeCreds) Save(token string, user *domain.User) error {
	f.token = token
	f.user = user
	return nil
}

func (f *fakeCreds) Clear() error {
	f.token = ""
	f.user = nil
	atomic.AddInt32(&f.clearedAt, 1)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, creds *fakeCreds) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, creds, WithRetryDelay(time.Millisecond))
	return client, server
}

func TestSendChatSuccess(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_id":"abc123","response":"done","tool_calls":[{"name":"read_file","input":{"path":"main.py"}}],"workspace_path":"/tmp/ws/abc123"}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok-1"})

	sid := "old-session"
	resp, err := client.SendChat(context.Background(), ChatRequest{
		Message:   "hello",
		SessionID: &sid,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "abc123", resp.SessionID)
	assert.Equal(t, "done", resp.Response)
	assert.Equal(t, "/tmp/ws/abc123", resp.WorkspacePath)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
}

func TestSendChatNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"session_id":"s","response":"ok"}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{})

	_, err := client.SendChat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestSendChatRetriesGatewayErrors(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"upstream down"}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	_, err := client.SendChat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)

	// Initial attempt plus exactly two retries
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	assert.Equal(t, KindGateway, Classify(err))
}

func TestSendChatRecoversOnRetry(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"session_id":"s","response":"recovered"}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	resp, err := client.SendChat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Response)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestSendChatDoesNotRetryClientErrors(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"message is required"}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	_, err := client.SendChat(context.Background(), ChatRequest{Message: "hi"})
	require.Error(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	assert.Equal(t, KindGeneric, Classify(err))
	assert.Contains(t, err.Error(), "message is required")
}

func TestUnauthorizedClearsCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid token"}`))
	})

	creds := &fakeCreds{token: "stale"}
	client, _ := newTestClient(t, handler, creds)

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)

	assert.Empty(t, creds.token)
	assert.Equal(t, KindAuth, Classify(err))
}

func TestListSessions(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions", r.URL.Path)
		w.Write([]byte(`{"sessions":[{"id":"a","message_count":4},{"id":"b","workspace_path":"/tmp/b"}]}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, 4, sessions[0].MessageCount)
	assert.Equal(t, "/tmp/b", sessions[1].WorkspacePath)
}

func TestHistory(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session/sess-1/history", r.URL.Path)
		w.Write([]byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	messages, err := client.History(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestProgressNormalizesLegacyStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"processing","current_step":"Running tool","iteration":2,"max_iterations":10}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	prog, err := client.Progress(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressInProgress, prog.Status)
	assert.Equal(t, "Running tool", prog.CurrentStep)
	assert.Equal(t, 2, prog.Iteration)
}

func TestLoginPersistsCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		w.Write([]byte(`{"access_token":"fresh-token","user":{"id":"u1","username":"ren"}}`))
	})

	creds := &fakeCreds{}
	client, _ := newTestClient(t, handler, creds)

	user, err := client.Login(context.Background(), "ren", "secret")
	require.NoError(t, err)

	assert.Equal(t, "ren", user.Username)
	assert.Equal(t, "fresh-token", creds.token)
	require.NotNil(t, creds.user)
	assert.Equal(t, "u1", creds.user.ID)
}

func TestDownloadURL(t *testing.T) {
	client := NewClient("http://localhost:8000/", &fakeCreds{})

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"plain relative", "output/chart.png", "http://localhost:8000/api/workspace/sess-1/files/output/chart.png"},
		{"backslashes converted", `output\chart.png`, "http://localhost:8000/api/workspace/sess-1/files/output/chart.png"},
		{"leading slash stripped", "/reports/summary.pdf", "http://localhost:8000/api/workspace/sess-1/files/reports/summary.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, client.DownloadURL("sess-1", tt.path))
		})
	}
}

func TestPingTimeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"sessions":[]}`))
	})

	client, _ := newTestClient(t, handler, &fakeCreds{token: "tok"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := client.Ping(ctx)
	require.Error(t, err)
	assert.Equal(t, KindTimeout, Classify(err))
}
