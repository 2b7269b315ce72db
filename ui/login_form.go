package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// LoginFormResult contains the submitted credentials
type LoginFormResult struct {
	Username  string
	Password  string
	Register  bool
	Cancelled bool
}

// LoginForm is a Bubble Tea component collecting backend credentials
type LoginForm struct {
	Completed     bool // Exported so Model can check completion
	Authenticating bool // True while the login request is in flight
	form          *huh.Form
	result        LoginFormResult
	spinner       spinner.Model
}

// NewLoginForm creates the login/register form
func NewLoginForm() *LoginForm {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	lf := &LoginForm{spinner: s}

	lf.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&lf.result.Username).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("username required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&lf.result.Password).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Create a new account?").
				Value(&lf.result.Register).
				Affirmative("Register").
				Negative("Login"),
		),
	)

	return lf
}

// Result returns the submitted form values
func (f *LoginForm) Result() LoginFormResult {
	return f.result
}

func (f *LoginForm) Init() tea.Cmd {
	return f.form.Init()
}

func (f *LoginForm) Update(msg tea.Msg) tea.Cmd {
	if f.Authenticating {
		var cmd tea.Cmd
		f.spinner, cmd = f.spinner.Update(msg)
		return cmd
	}

	form, cmd := f.form.Update(msg)
	if fm, ok := form.(*huh.Form); ok {
		f.form = fm
	}

	if f.form.State == huh.StateCompleted {
		f.Completed = true
	}
	return cmd
}

// StartAuthenticating switches the form into its waiting state
func (f *LoginForm) StartAuthenticating() tea.Cmd {
	f.Authenticating = true
	return f.spinner.Tick
}

func (f *LoginForm) View() string {
	if f.Authenticating {
		action := "Logging in"
		if f.result.Register {
			action = "Registering"
		}
		return fmt.Sprintf("\n %s %s as %s...\n", f.spinner.View(), action, f.result.Username)
	}
	return f.form.View()
}
