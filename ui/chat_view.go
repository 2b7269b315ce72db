package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/domain"
	"parley/extract"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("99"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	toolCallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	artifactStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36"))
)

// ChatView is a scrollable viewport that renders the conversation history.
// Content is rebuilt from the orchestrator's message list on every refresh;
// the view itself holds no conversation state.
type ChatView struct {
	vp     viewport.Model
	width  int
	height int
}

func NewChatView(width, height int) ChatView {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return ChatView{vp: vp, width: width, height: height}
}

// SetSize resizes the underlying viewport
func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.vp.Width = width
	v.vp.Height = height
}

// SetMessages re-renders the conversation and scrolls to the bottom. progress
// may be nil; when present it annotates the trailing pending message.
func (v *ChatView) SetMessages(messages []domain.Message, progress *domain.Progress) {
	v.vp.SetContent(v.render(messages, progress))
	v.vp.GotoBottom()
}

// Update forwards scroll events to the viewport
func (v ChatView) Update(msg tea.Msg) (ChatView, tea.Cmd) {
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	return v, cmd
}

func (v ChatView) View() string {
	return v.vp.View()
}

func (v *ChatView) render(messages []domain.Message, progress *domain.Progress) string {
	if len(messages) == 0 {
		return pendingStyle.Render("  No messages yet. Type below to get started.")
	}

	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(v.renderMessage(msg, progress))
	}
	return sb.String()
}

func (v *ChatView) renderMessage(msg domain.Message, progress *domain.Progress) string {
	var sb strings.Builder

	switch msg.Role {
	case domain.RoleUser:
		sb.WriteString(userLabelStyle.Render("You"))
	default:
		sb.WriteString(assistantLabelStyle.Render("Parley"))
	}
	sb.WriteString("\n")

	if msg.Pending() {
		sb.WriteString(pendingStyle.Render(pendingLine(progress)))
		return sb.String()
	}

	sb.WriteString(msg.Content)

	for _, tc := range msg.ToolCalls {
		sb.WriteString("\n")
		sb.WriteString(toolCallStyle.Render("  ⚙ " + tc.Name))
	}

	if msg.Role == domain.RoleAssistant {
		if files := extract.Files(msg.Content); !files.Empty() {
			sb.WriteString("\n")
			sb.WriteString(renderArtifacts(files))
		}
	}

	return sb.String()
}

// pendingLine describes what the agent is doing right now, falling back to a
// plain waiting line when no progress record is visible yet.
func pendingLine(progress *domain.Progress) string {
	if progress == nil {
		return "Thinking..."
	}

	line := progress.CurrentStep
	if line == "" {
		line = "Working"
	}
	if progress.MaxIterations > 0 {
		line = fmt.Sprintf("%s (step %d/%d)", line, progress.Iteration, progress.MaxIterations)
	}
	return line
}

func renderArtifacts(files domain.ExtractedFiles) string {
	var lines []string
	appendGroup := func(label string, paths []string) {
		for _, p := range paths {
			lines = append(lines, fmt.Sprintf("  ↳ %s: %s", label, p))
		}
	}
	appendGroup("image", files.Images)
	appendGroup("report", files.Reports)
	appendGroup("data", files.Data)
	appendGroup("code", files.Code)
	appendGroup("file", files.Other)
	if n := len(files.Base64Images); n > 0 {
		lines = append(lines, fmt.Sprintf("  ↳ %d inline image(s)", n))
	}
	return artifactStyle.Render(strings.Join(lines, "\n"))
}
