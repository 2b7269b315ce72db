package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"parley/api"
	"parley/domain"
	"parley/logging"
	"parley/ports"
)

// ChatService is the central state machine for one conversation client. It
// exclusively owns the in-memory message list, the current session
// identifier, and the workspace path of the active conversation; the session
// list is a cache refreshed from the backend.
//
// All exported methods are safe for concurrent use, but only one send can be
// in flight at a time: a second SendMessage while the first is unresolved is
// a no-op.
type ChatService struct {
	backend ports.Backend
	cache   ports.SessionCache // may be nil (no local cache)
	creds   ports.TokenChecker
	poller  *ProgressPoller
	monitor *ConnectionMonitor

	mu             sync.Mutex
	messages       []domain.Message
	sessionID      string
	workspacePath  string
	sending        bool
	lastError      string
	sessions       []domain.Session
	workspaceFiles *api.WorkspaceFiles
}

// NewChatService wires the orchestrator with its collaborators. cache may be
// nil to run without local persistence.
func NewChatService(backend ports.Backend, cache ports.SessionCache, creds ports.TokenChecker) *ChatService {
	return &ChatService{
		backend: backend,
		cache:   cache,
		creds:   creds,
		poller:  NewProgressPoller(backend),
		monitor: NewConnectionMonitor(backend, creds),
	}
}

// Monitor exposes the connection monitor so the UI can start it and read
// reachability state.
func (s *ChatService) Monitor() *ConnectionMonitor {
	return s.monitor
}

// Progress returns the currently visible progress, or nil
func (s *ChatService) Progress() *domain.Progress {
	return s.poller.Current()
}

// Messages returns a copy of the conversation so far
func (s *ChatService) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SessionID returns the active session identifier, or "" when the next send
// will create a new session.
func (s *ChatService) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// WorkspacePath returns the active session's workspace path, or ""
func (s *ChatService) WorkspacePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspacePath
}

// Sending reports whether a send is in flight
func (s *ChatService) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// LastError returns the visible error banner text, or ""
func (s *ChatService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Sessions returns a copy of the cached session list
func (s *ChatService) Sessions() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// WorkspaceFiles returns the last fetched workspace artifact listing, or nil
func (s *ChatService) WorkspaceFiles() *api.WorkspaceFiles {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceFiles
}

// SendMessage sends one user message and resolves the assistant reply.
//
// Empty or whitespace-only text is a no-op, as is calling while another send
// is in flight. The user message is appended optimistically together with a
// pending assistant placeholder; on success the placeholder is resolved in
// place, on failure it is removed and the user message retained. Progress
// polling runs for the duration of the send and is stopped as the final
// step, success or failure.
func (s *ChatService) SendMessage(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		logging.Logger.Debug("Send already in flight, ignoring")
		return nil
	}
	s.sending = true
	s.lastError = ""

	s.messages = append(s.messages,
		domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleUser,
			Content:   trimmed,
			Timestamp: time.Now(),
		},
		domain.Message{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Lifecycle: domain.LifecyclePending,
		},
	)

	prevSessionID := s.sessionID
	workspacePath := s.workspacePath
	s.mu.Unlock()

	if prevSessionID != "" {
		s.poller.Start(prevSessionID)
	}

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
		s.poller.Stop()
	}()

	req := api.ChatRequest{Message: trimmed}
	if prevSessionID != "" {
		req.SessionID = &prevSessionID
	}
	if workspacePath != "" {
		req.WorkspacePath = &workspacePath
	}

	resp, err := s.backend.SendChat(ctx, req)
	if err != nil {
		msg := api.UserMessage(err)
		logging.Logger.Error("Chat send failed", "error", err, "classified", msg)

		s.mu.Lock()
		s.lastError = msg
		s.removePendingPlaceholderLocked()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.sessionID = resp.SessionID
	if resp.WorkspacePath != "" {
		s.workspacePath = resp.WorkspacePath
	}
	s.resolvePlaceholderLocked(domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   resp.Response,
		ToolCalls: resp.ToolCalls,
		Timestamp: time.Now(),
	})
	s.mu.Unlock()

	logging.Logger.Info("Chat turn resolved",
		"session_id", resp.SessionID,
		"tool_calls", len(resp.ToolCalls))

	s.refreshAfterSend(ctx, resp.SessionID)

	// The backend may have minted a new session for this turn; re-key the
	// poller so any remaining ticks track the right record. The deferred
	// Stop still runs last.
	if resp.SessionID != prevSessionID {
		s.poller.Start(resp.SessionID)
	}
	return nil
}

// refreshAfterSend updates the session cache and workspace listing
// concurrently. Both are best-effort.
func (s *ChatService) refreshAfterSend(ctx context.Context, sessionID string) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.RefreshSessions(gctx)
		return nil
	})
	g.Go(func() error {
		files, err := s.backend.Visualizations(gctx, sessionID)
		if err != nil {
			logging.Logger.Debug("Visualization fetch failed", "error", err)
			return nil
		}
		s.mu.Lock()
		s.workspaceFiles = files
		s.mu.Unlock()
		return nil
	})
	_ = g.Wait()
}

// StartNewChat resets local conversation state. Pure local reset: the next
// send will create a fresh session server-side.
func (s *ChatService) StartNewChat() {
	s.mu.Lock()
	s.messages = nil
	s.sessionID = ""
	s.workspacePath = ""
	s.lastError = ""
	s.workspaceFiles = nil
	s.mu.Unlock()

	s.poller.Stop()
	logging.Logger.Info("Started new chat")
}

// SwitchSession loads the message history of another session and makes it
// current. Switching to the already-current session is a no-op. On failure
// the previous session state is left untouched.
func (s *ChatService) SwitchSession(ctx context.Context, id string) error {
	s.mu.Lock()
	if id == s.sessionID {
		s.mu.Unlock()
		return nil
	}
	s.sending = true
	s.lastError = ""
	s.mu.Unlock()

	s.poller.Stop()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	history, err := s.backend.History(ctx, id)
	if err != nil {
		msg := api.UserMessage(err)
		logging.Logger.Error("Failed to load session history", "session_id", id, "error", err)

		s.mu.Lock()
		s.lastError = msg
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.messages = history
	s.sessionID = id
	s.workspaceFiles = nil
	for _, sess := range s.sessions {
		if sess.ID == id && sess.WorkspacePath != "" {
			s.workspacePath = sess.WorkspacePath
			break
		}
	}
	s.mu.Unlock()

	logging.Logger.Info("Switched session", "session_id", id, "messages", len(history))
	return nil
}

// RemoveSession deletes a session server-side, best-effort. If the deleted
// session is the current one, local state is reset as by StartNewChat. The
// cached session list is refreshed afterwards either way.
func (s *ChatService) RemoveSession(ctx context.Context, id string) {
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		logging.Logger.Warn("Failed to delete session", "session_id", id, "error", err)
	} else {
		s.mu.Lock()
		isCurrent := s.sessionID == id
		s.mu.Unlock()

		if isCurrent {
			s.StartNewChat()
		}

		if s.cache != nil {
			if err := s.cache.Remove(ctx, id); err != nil {
				logging.Logger.Warn("Failed to drop cached session", "session_id", id, "error", err)
			}
		}
	}

	s.RefreshSessions(ctx)
}

// RefreshSessions reloads the session list from the backend when
// authenticated; when not authenticated it clears the cache without a
// network call. Failures are logged only; the list is eventually
// consistent, never a blocking error.
func (s *ChatService) RefreshSessions(ctx context.Context) {
	if !s.creds.HasToken() {
		s.mu.Lock()
		s.sessions = nil
		s.mu.Unlock()

		if s.cache != nil {
			if err := s.cache.Clear(ctx); err != nil {
				logging.Logger.Warn("Failed to clear session cache", "error", err)
			}
		}
		return
	}

	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		logging.Logger.Warn("Failed to refresh sessions", "error", err)
		return
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.ReplaceAll(ctx, sessions); err != nil {
			logging.Logger.Warn("Failed to persist session cache", "error", err)
		}
	}
}

// LoadCachedSessions seeds the in-memory session list from the local cache,
// so the picker has content before the first backend round-trip.
func (s *ChatService) LoadCachedSessions(ctx context.Context) {
	if s.cache == nil {
		return
	}
	sessions, err := s.cache.List(ctx)
	if err != nil {
		logging.Logger.Warn("Failed to load cached sessions", "error", err)
		return
	}
	s.mu.Lock()
	if len(s.sessions) == 0 {
		s.sessions = sessions
	}
	s.mu.Unlock()
}

// Close stops the pollers
func (s *ChatService) Close() {
	s.poller.Stop()
	s.monitor.Stop()
}

// resolvePlaceholderLocked replaces the trailing pending placeholder with the
// finalized assistant message. The trailing message is checked to still be
// the placeholder, so the replacement stays correct even if other state
// changed underneath.
func (s *ChatService) resolvePlaceholderLocked(msg domain.Message) {
	if n := len(s.messages); n > 0 && s.messages[n-1].Pending() {
		s.messages[n-1] = msg
		return
	}
	// Placeholder is gone; append rather than lose the reply
	s.messages = append(s.messages, msg)
}

// removePendingPlaceholderLocked rolls back the optimistic placeholder while
// preserving the user's own message.
func (s *ChatService) removePendingPlaceholderLocked() {
	if n := len(s.messages); n > 0 && s.messages[n-1].Pending() {
		s.messages = s.messages[:n-1]
	}
}
