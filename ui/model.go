package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/api"
	"parley/application"
	"parley/domain"
	"parley/logging"
)

type uiState int

const (
	stateLogin uiState = iota
	stateChat
	stateSessions
)

// Authenticator issues login/register calls against the backend
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
	Register(ctx context.Context, username, password string) (*domain.User, error)
}

// CredentialSession is what the model needs from the credential store
type CredentialSession interface {
	HasToken() bool
	Clear() error
}

type tickMsg time.Time

type sendDoneMsg struct{ err error }
type switchDoneMsg struct{ err error }
type sessionsRefreshedMsg struct{}
type removeDoneMsg struct{}
type loginDoneMsg struct{ err error }

// refreshInterval drives repaints while a send is in flight so progress
// updates and the connection indicator stay current.
const refreshInterval = 250 * time.Millisecond

// Model is the root Bubble Tea model. All conversation state lives in the
// ChatService; the model only holds view components and the UI mode.
type Model struct {
	svc   *application.ChatService
	auth  Authenticator
	creds CredentialSession
	keys  KeyMap

	state     uiState
	chat      ChatView
	input     textarea.Model
	sessions  *SessionList
	loginForm *LoginForm

	width  int
	height int
	err    string
}

// NewModel wires the root model. The caller owns the ChatService lifecycle
// except for Close, which the model performs on quit.
func NewModel(svc *application.ChatService, auth Authenticator, creds CredentialSession) *Model {
	input := textarea.New()
	input.Placeholder = "Ask your coding agent..."
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	m := &Model{
		svc:      svc,
		auth:     auth,
		creds:    creds,
		keys:     NewKeyMap(),
		chat:     NewChatView(0, 0),
		input:    input,
		sessions: NewSessionList(),
		state:    stateChat,
	}

	if !creds.HasToken() {
		m.state = stateLogin
		m.loginForm = NewLoginForm()
	}

	return m
}

func (m *Model) Init() tea.Cmd {
	m.svc.Monitor().Start()

	cmds := []tea.Cmd{tick()}
	if m.state == stateLogin {
		cmds = append(cmds, m.loginForm.Init())
	} else {
		cmds = append(cmds, m.refreshSessionsCmd())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tickMsg:
		if m.state == stateChat && m.svc.Sending() {
			m.chat.SetMessages(m.svc.Messages(), m.svc.Progress())
		}
		return m, tick()
	}

	switch m.state {
	case stateLogin:
		return m.updateLogin(msg)
	case stateSessions:
		return m.updateSessions(msg)
	default:
		return m.updateChat(msg)
	}
}

func (m *Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.svc.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.NewChat):
			m.svc.StartNewChat()
			m.err = ""
			m.chat.SetMessages(nil, nil)
			return m, nil

		case key.Matches(msg, m.keys.Sessions):
			m.state = stateSessions
			m.sessions.SetSessions(m.svc.Sessions())
			return m, m.refreshSessionsCmd()

		case key.Matches(msg, m.keys.Logout):
			return m, m.logoutCmd()

		case key.Matches(msg, m.keys.Newline):
			m.input.InsertString("\n")
			return m, nil

		case key.Matches(msg, m.keys.Send):
			text := m.input.Value()
			if m.svc.Sending() {
				return m, nil
			}
			m.input.Reset()
			m.err = ""
			cmd := m.sendCmd(text)
			m.chat.SetMessages(m.svc.Messages(), nil)
			return m, cmd
		}

	case sendDoneMsg:
		m.err = m.svc.LastError()
		m.chat.SetMessages(m.svc.Messages(), nil)
		return m, nil

	case switchDoneMsg:
		m.err = m.svc.LastError()
		m.chat.SetMessages(m.svc.Messages(), nil)
		return m, nil

	case sessionsRefreshedMsg:
		m.sessions.SetSessions(m.svc.Sessions())
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) updateSessions(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.svc.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.state = stateChat
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if sess := m.sessions.Selected(); sess != nil {
				return m, m.removeSessionCmd(sess.ID)
			}
			return m, nil

		case key.Matches(msg, m.keys.Send):
			if sess := m.sessions.Selected(); sess != nil {
				m.state = stateChat
				return m, m.switchSessionCmd(sess.ID)
			}
			return m, nil
		}

	case sessionsRefreshedMsg:
		m.sessions.SetSessions(m.svc.Sessions())
		return m, nil

	case removeDoneMsg:
		m.sessions.SetSessions(m.svc.Sessions())
		m.chat.SetMessages(m.svc.Messages(), nil)
		return m, nil
	}

	return m, m.sessions.Update(msg)
}

func (m *Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Quit) {
		m.svc.Close()
		return m, tea.Quit
	}

	if done, ok := msg.(loginDoneMsg); ok {
		if done.err != nil {
			m.err = api.UserMessage(done.err)
			m.loginForm = NewLoginForm()
			return m, m.loginForm.Init()
		}
		m.err = ""
		m.state = stateChat
		m.loginForm = nil
		// Probe immediately so the status bar flips without the 30s wait
		m.svc.Monitor().Start()
		return m, m.refreshSessionsCmd()
	}

	cmd := m.loginForm.Update(msg)

	if m.loginForm.Completed && !m.loginForm.Authenticating {
		result := m.loginForm.Result()
		return m, tea.Batch(m.loginForm.StartAuthenticating(), m.loginCmd(result))
	}

	return m, cmd
}

func (m *Model) resize() {
	statusHeight := 1
	errHeight := 0
	if m.err != "" {
		errHeight = 1
	}
	inputHeight := m.input.Height() + 1

	chatHeight := m.height - statusHeight - errHeight - inputHeight
	if chatHeight < 1 {
		chatHeight = 1
	}
	m.chat.SetSize(m.width, chatHeight)
	m.input.SetWidth(m.width)
	m.sessions.SetSize(m.width, m.height-statusHeight)
}

func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.SendMessage(context.Background(), text)
		return sendDoneMsg{err: err}
	}
}

func (m *Model) switchSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.svc.SwitchSession(context.Background(), id)
		return switchDoneMsg{err: err}
	}
}

func (m *Model) removeSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		m.svc.RemoveSession(context.Background(), id)
		return removeDoneMsg{}
	}
}

func (m *Model) refreshSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		m.svc.LoadCachedSessions(context.Background())
		m.svc.RefreshSessions(context.Background())
		return sessionsRefreshedMsg{}
	}
}

func (m *Model) loginCmd(result LoginFormResult) tea.Cmd {
	return func() tea.Msg {
		var err error
		if result.Register {
			_, err = m.auth.Register(context.Background(), result.Username, result.Password)
		} else {
			_, err = m.auth.Login(context.Background(), result.Username, result.Password)
		}
		if err != nil {
			logging.Logger.Warn("Authentication failed", "username", result.Username, "error", err)
		}
		return loginDoneMsg{err: err}
	}
}

func (m *Model) logoutCmd() tea.Cmd {
	if err := m.creds.Clear(); err != nil {
		logging.Logger.Warn("Failed to clear credentials", "error", err)
	}
	m.svc.StartNewChat()
	m.state = stateLogin
	m.loginForm = NewLoginForm()
	m.chat.SetMessages(nil, nil)

	refresh := m.refreshSessionsCmd()
	return tea.Batch(m.loginForm.Init(), refresh)
}

func (m *Model) View() string {
	switch m.state {
	case stateLogin:
		view := m.loginForm.View()
		if m.err != "" {
			view += "\n" + errorBannerStyle.Render("Error: "+m.err)
		}
		return view

	case stateSessions:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.sessions.View(),
			renderStatusBar(m.svc.Monitor().Status(), m.svc.SessionID(), m.svc.Sending(), m.width),
		)

	default:
		sections := []string{m.chat.View()}
		if m.err != "" {
			sections = append(sections, errorBannerStyle.Render("Error: "+m.err))
		}
		sections = append(sections,
			m.input.View(),
			renderStatusBar(m.svc.Monitor().Status(), m.svc.SessionID(), m.svc.Sending(), m.width),
		)
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}
}
