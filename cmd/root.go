package cmd

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"parley/api"
	"parley/application"
	"parley/config"
	"parley/creds"
	"parley/logging"
	"parley/storage"
	"parley/ui"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`
	BaseURL     string           `help:"Backend base URL" default:"http://localhost:8000" env:"PARLEY_BASE_URL"`
	DBPath      string           `help:"Path to the local session cache" type:"path" default:"~/.parley/sessions.db" env:"PARLEY_DB_PATH"`

	Run      RunCmd      `cmd:"" help:"Start the parley TUI (default)" default:"1"`
	Login    LoginCmd    `cmd:"login" help:"Authenticate against the backend"`
	Logout   LogoutCmd   `cmd:"logout" help:"Discard the cached backend credentials"`
	Send     SendCmd     `cmd:"send" help:"Send a single message and print the reply"`
	Sessions SessionsCmd `cmd:"sessions" help:"Manage backend sessions (list, del, history)"`
	Serve    ServeCmd    `cmd:"serve" help:"Serve the parley TUI over SSH"`

	// Internal field for settings (not a flag)
	settings *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	// Apply settings with proper precedence: CLI flags > env vars > settings.json > defaults
	// Only apply if flag is at default value and env var is not set

	if c.settings != nil {
		if c.BaseURL == "http://localhost:8000" {
			if _, hasEnv := os.LookupEnv("PARLEY_BASE_URL"); !hasEnv {
				if c.settings.BaseURL != "" {
					c.BaseURL = c.settings.BaseURL
				}
			}
		}

		if c.DBPath == config.ExpandPath("~/.parley/sessions.db") {
			if _, hasEnv := os.LookupEnv("PARLEY_DB_PATH"); !hasEnv {
				if c.settings.DBPath != "" {
					c.DBPath = c.settings.DBPath
				}
			}
		}

		if c.MaxLogFiles == 1000 {
			if _, hasEnv := os.LookupEnv("PARLEY_MAX_LOG_FILES"); !hasEnv {
				if c.settings.MaxLogFiles != nil {
					c.MaxLogFiles = *c.settings.MaxLogFiles
				}
			}
		}

		if !c.Debug {
			if _, hasEnv := os.LookupEnv("PARLEY_DEBUG"); !hasEnv {
				if c.settings.Debug != nil && *c.settings.Debug {
					c.Debug = true
				}
			}
		}
	}

	// Initialize logging first and get the log file path
	logFilePath, err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
	if err != nil {
		return err
	}

	// Set environment variables AFTER initialization so child processes
	// inherit debug settings and append to the same log file
	if c.Debug || c.DebugFile != "" {
		os.Setenv("PARLEY_DEBUG", "1")
		if logFilePath != "" {
			os.Setenv("PARLEY_DEBUG_FILE", logFilePath)
		}
	}
	if c.MaxLogFiles != 1000 {
		os.Setenv("PARLEY_MAX_LOG_FILES", fmt.Sprintf("%d", c.MaxLogFiles))
	}

	return nil
}

// newClient builds the API client backed by the default credential store
func (c *CLI) newClient() (*api.Client, *creds.Store) {
	credStore := creds.NewStore()
	return api.NewClient(c.BaseURL, credStore), credStore
}

// RunCmd starts the TUI application
type RunCmd struct {
	NoCache bool `help:"Run without the local session cache"`
}

// Run executes the TUI
func (r *RunCmd) Run(cli *CLI) error {
	logging.Logger.Info("Starting parley TUI", "base_url", cli.BaseURL)

	client, credStore := cli.newClient()

	var cache *storage.Store
	if !r.NoCache {
		store, err := storage.NewStore(config.ExpandPath(cli.DBPath))
		if err != nil {
			// The cache is an accelerator, never a requirement
			logging.Logger.Warn("Failed to open session cache, continuing without", "error", err)
		} else {
			cache = store
			defer cache.Close()
		}
	}

	var svc *application.ChatService
	if cache != nil {
		svc = application.NewChatService(client, cache, credStore)
	} else {
		svc = application.NewChatService(client, nil, credStore)
	}
	defer svc.Close()

	p := tea.NewProgram(
		ui.NewModel(svc, client, credStore),
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	logging.Logger.Info("Starting TUI program")
	if _, err := p.Run(); err != nil {
		logging.Logger.Error("TUI program error", "error", err)
		return fmt.Errorf("error running program: %w", err)
	}

	logging.Logger.Info("TUI program exited normally")
	return nil
}
