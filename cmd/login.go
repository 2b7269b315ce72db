package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"parley/logging"
)

// LoginCmd authenticates against the backend and caches the bearer token
type LoginCmd struct {
	Username string `arg:"" optional:"" help:"Backend username (prompted when omitted)"`
	Register bool   `help:"Create a new account instead of logging in" short:"r"`
}

// Run executes the login command
func (l *LoginCmd) Run(cli *CLI) error {
	client, _ := cli.newClient()

	username := l.Username
	if username == "" {
		fmt.Print("Username: ")
		if _, err := fmt.Scanln(&username); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password := string(passwordBytes)
	if password == "" {
		return fmt.Errorf("password required")
	}

	ctx := context.Background()
	var action string
	if l.Register {
		action = "Registered"
		_, err = client.Register(ctx, username, password)
	} else {
		action = "Logged in"
		_, err = client.Login(ctx, username, password)
	}
	if err != nil {
		logging.Logger.Warn("Authentication failed", "username", username, "error", err)
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("✓ %s as '%s'\n", action, username)
	return nil
}

// LogoutCmd discards the cached credentials
type LogoutCmd struct{}

// Run executes the logout command
func (l *LogoutCmd) Run(cli *CLI) error {
	_, credStore := cli.newClient()

	if !credStore.HasToken() {
		fmt.Println("Not logged in")
		return nil
	}

	if err := credStore.Clear(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	fmt.Fprintln(os.Stdout, "✓ Logged out")
	return nil
}
