package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/domain"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(1, 0)

	listNormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	listDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// SessionItem implements list.Item for one backend session
type SessionItem struct {
	Session domain.Session
}

// FilterValue implements list.Item
func (i SessionItem) FilterValue() string {
	return i.Session.ID + " " + i.Session.ActiveRepo
}

// SessionDelegate renders session entries two lines tall
type SessionDelegate struct{}

// Height implements list.ItemDelegate
func (d SessionDelegate) Height() int {
	return 2
}

// Spacing implements list.ItemDelegate
func (d SessionDelegate) Spacing() int {
	return 0
}

// Update implements list.ItemDelegate
func (d SessionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render implements list.ItemDelegate
func (d SessionDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(SessionItem)
	if !ok {
		return
	}

	cursor := " "
	if index == m.Index() {
		cursor = ">"
	}

	title := shortID(item.Session.ID)
	if item.Session.ActiveRepo != "" {
		title += " · " + item.Session.ActiveRepo
	}
	line1 := listNormalStyle.Render(fmt.Sprintf("%s %02d. %s", cursor, index+1, title))

	detail := fmt.Sprintf("     %d messages", item.Session.MessageCount)
	if !item.Session.CreatedAt.IsZero() {
		detail += " · " + item.Session.CreatedAt.Local().Format("Jan 2 15:04")
	}
	if item.Session.WorkspacePath != "" {
		detail += " · " + filepath.Base(item.Session.WorkspacePath)
	}
	line2 := listDimStyle.Render(detail)

	fmt.Fprintf(w, "%s\n%s", line1, line2)
}

// SessionList is the session picker component
type SessionList struct {
	list list.Model
}

func NewSessionList() *SessionList {
	l := list.New(nil, SessionDelegate{}, 0, 0)
	l.Title = "Sessions"
	l.Styles.Title = listTitleStyle
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return &SessionList{list: l}
}

// SetSessions replaces the visible items
func (s *SessionList) SetSessions(sessions []domain.Session) {
	items := make([]list.Item, len(sessions))
	for i, sess := range sessions {
		items[i] = SessionItem{Session: sess}
	}
	s.list.SetItems(items)
}

// SetSize resizes the list
func (s *SessionList) SetSize(width, height int) {
	s.list.SetSize(width, height)
}

// Selected returns the highlighted session, or nil
func (s *SessionList) Selected() *domain.Session {
	item, ok := s.list.SelectedItem().(SessionItem)
	if !ok {
		return nil
	}
	sess := item.Session
	return &sess
}

func (s *SessionList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return cmd
}

func (s *SessionList) View() string {
	return s.list.View()
}

// shortID truncates backend UUIDs for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
