package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"parley/application"
)

var (
	connectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("1"))

	checkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorBannerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)
)

// renderStatusBar builds the single bottom line: connection state, active
// session, and the key hints.
func renderStatusBar(status application.ConnectionStatus, sessionID string, sending bool, width int) string {
	var conn string
	switch status {
	case application.StatusConnected:
		conn = connectedStyle.Render("● connected")
	case application.StatusDisconnected:
		conn = disconnectedStyle.Render("● disconnected")
	default:
		conn = checkingStyle.Render("● checking")
	}

	parts := []string{conn}
	if sessionID != "" {
		parts = append(parts, "session "+shortID(sessionID))
	} else {
		parts = append(parts, "new session")
	}
	if sending {
		parts = append(parts, "sending...")
	}
	parts = append(parts, "ctrl+n new · ctrl+s sessions · ctrl+c quit")

	line := strings.Join(parts, "  |  ")
	if width > 0 && lipgloss.Width(line) > width {
		line = strings.Join(parts[:2], "  |  ")
	}
	return statusBarStyle.Render(line)
}
