package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"parley/domain"
)

// SessionsCmd manages backend sessions
type SessionsCmd struct {
	List    SessionsListCmd    `cmd:"list" help:"List all sessions" default:"1"`
	Del     SessionsDelCmd     `cmd:"del" help:"Delete a session"`
	History SessionsHistoryCmd `cmd:"history" help:"Print the message history of a session"`
}

// SessionsListCmd lists all sessions
type SessionsListCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
}

// Run executes the list command
func (s *SessionsListCmd) Run(cli *CLI) error {
	client, credStore := cli.newClient()
	if !credStore.HasToken() {
		return fmt.Errorf("not logged in, run 'parley login' first")
	}

	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if s.Format == "json" {
		return printJSON(sessions)
	}
	return s.printTable(sessions)
}

func (s *SessionsListCmd) printTable(sessions []domain.Session) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMESSAGES\tREPO\tWORKSPACE\tCREATED")
	for _, sess := range sessions {
		created := ""
		if !sess.CreatedAt.IsZero() {
			created = sess.CreatedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			sess.ID,
			sess.MessageCount,
			sess.ActiveRepo,
			sess.WorkspacePath,
			created)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d sessions\n", len(sessions))
	return nil
}

// SessionsDelCmd deletes a session
type SessionsDelCmd struct {
	ID    string `arg:"" help:"ID of the session to delete"`
	Force bool   `help:"Force deletion without confirmation" short:"f"`
}

// Run executes the del command
func (s *SessionsDelCmd) Run(cli *CLI) error {
	client, credStore := cli.newClient()
	if !credStore.HasToken() {
		return fmt.Errorf("not logged in, run 'parley login' first")
	}

	// Ask for confirmation unless --force is used
	if !s.Force {
		fmt.Printf("Are you sure you want to delete session '%s'? (y/N): ", s.ID)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := client.DeleteSession(context.Background(), s.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("✓ Session '%s' deleted successfully\n", s.ID)
	return nil
}

// SessionsHistoryCmd prints the message history of a session
type SessionsHistoryCmd struct {
	ID     string `arg:"" help:"ID of the session"`
	Format string `help:"Output format: text or json" enum:"text,json" default:"text"`
}

// Run executes the history command
func (s *SessionsHistoryCmd) Run(cli *CLI) error {
	client, credStore := cli.newClient()
	if !credStore.HasToken() {
		return fmt.Errorf("not logged in, run 'parley login' first")
	}

	messages, err := client.History(context.Background(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if s.Format == "json" {
		return printJSON(messages)
	}

	for i, msg := range messages {
		if i > 0 {
			fmt.Println()
		}
		label := "You"
		if msg.Role == domain.RoleAssistant {
			label = "Parley"
		}
		fmt.Printf("[%s]\n%s\n", label, msg.Content)
		for _, tc := range msg.ToolCalls {
			fmt.Printf("  ⚙ %s\n", tc.Name)
		}
	}

	fmt.Printf("\nTotal: %d messages\n", len(messages))
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
