package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parley/api"
	"parley/application"
	"parley/creds"
	"parley/logging"
	"parley/storage"
	"parley/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
)

// sessionModel wraps ui.Model to handle resource cleanup
type sessionModel struct {
	*ui.Model
	sessionID string
	startTime time.Time
	svc       *application.ChatService
	store     *storage.Store
}

func (s *sessionModel) Init() tea.Cmd {
	return s.Model.Init()
}

func (s *sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Check for quit message to trigger cleanup
	if _, ok := msg.(tea.QuitMsg); ok {
		duration := time.Since(s.startTime)

		s.svc.Close()
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				logging.Logger.Error("Failed to close cache for SSH session",
					"error", err,
					"session_id", s.sessionID,
					"duration", duration.String())
			}
		}

		logging.Logger.Info("SSH session ended",
			"session_id", s.sessionID,
			"duration", duration.String())
	}

	updatedModel, cmd := s.Model.Update(msg)
	if m, ok := updatedModel.(*ui.Model); ok {
		s.Model = m
	}
	return s, cmd
}

func (s *sessionModel) View() string {
	return s.Model.View()
}

// teaHandler creates a Bubbletea model for each SSH session. Credentials are
// kept per SSH user so connecting as different users never shares a backend
// login; the session cache database is shared, WAL mode handles concurrency.
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	// Get PTY info
	pty, _, _ := sess.Pty()
	sessionID := fmt.Sprintf("%s@%s", sess.User(), sess.RemoteAddr().String())

	logging.Logger.Info("New SSH session",
		"session_id", sessionID,
		"user", sess.User(),
		"remote_addr", sess.RemoteAddr().String(),
		"term", pty.Term,
		"window", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

	credStore, err := credStoreFor(sess.User())
	if err != nil {
		logging.Logger.Error("Failed to prepare credential store for SSH session",
			"error", err,
			"session_id", sessionID)
		return errorModel{err}, nil
	}

	store, err := storage.NewStore(s.dbPath)
	if err != nil {
		logging.Logger.Error("Failed to open session cache for SSH session",
			"error", err,
			"session_id", sessionID)
		return errorModel{err}, nil
	}

	client := api.NewClient(s.baseURL, credStore)
	svc := application.NewChatService(client, store, credStore)
	model := ui.NewModel(svc, client, credStore)

	// Wrap model to handle cleanup
	wrappedModel := &sessionModel{
		Model:     model,
		sessionID: sessionID,
		startTime: time.Now(),
		svc:       svc,
		store:     store,
	}

	return wrappedModel, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// credStoreFor roots a credential file under ~/.parley/ssh/creds per SSH user
func credStoreFor(user string) (*creds.Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".parley", "ssh", "creds")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return creds.NewStoreAt(filepath.Join(dir, user+".json")), nil
}

// errorModel is a simple model that displays an error
type errorModel struct {
	err error
}

func (e errorModel) Init() tea.Cmd {
	return nil
}

func (e errorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return e, tea.Quit
}

func (e errorModel) View() string {
	return fmt.Sprintf("Error: %v\n", e.err)
}
