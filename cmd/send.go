package cmd

import (
	"context"
	"fmt"
	"strings"

	"parley/api"
	"parley/extract"
	"parley/logging"
)

// SendCmd sends one message and prints the reply, for scripting and quick
// questions without entering the TUI.
type SendCmd struct {
	Message   []string `arg:"" help:"Message to send"`
	SessionID string   `help:"Continue an existing session" short:"s"`
	Workspace string   `help:"Workspace path hint for a new session" type:"path"`
	ShowFiles bool     `help:"List file paths referenced by the reply" default:"true" negatable:""`
}

// Run executes the send command
func (s *SendCmd) Run(cli *CLI) error {
	client, credStore := cli.newClient()
	if !credStore.HasToken() {
		return fmt.Errorf("not logged in, run 'parley login' first")
	}

	message := strings.TrimSpace(strings.Join(s.Message, " "))
	if message == "" {
		return fmt.Errorf("message required")
	}

	req := api.ChatRequest{Message: message}
	if s.SessionID != "" {
		req.SessionID = &s.SessionID
	}
	if s.Workspace != "" {
		req.WorkspacePath = &s.Workspace
	}

	logging.Logger.Info("Sending one-shot message", "session_id", s.SessionID)

	resp, err := client.SendChat(context.Background(), req)
	if err != nil {
		return fmt.Errorf("%s", api.UserMessage(err))
	}

	fmt.Println(resp.Response)

	if len(resp.ToolCalls) > 0 {
		fmt.Printf("\n%d tool call(s):\n", len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			fmt.Printf("  - %s\n", tc.Name)
		}
	}

	if s.ShowFiles {
		if files := extract.Files(resp.Response); !files.Empty() {
			fmt.Printf("\nReferenced files:\n")
			for _, group := range [][]string{files.Images, files.Reports, files.Data, files.Code, files.Other} {
				for _, p := range group {
					fmt.Printf("  %s\n", client.DownloadURL(resp.SessionID, p))
				}
			}
		}
	}

	fmt.Printf("\nSession: %s\n", resp.SessionID)
	return nil
}
