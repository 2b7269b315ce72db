package cmd

import (
	"fmt"

	"parley/config"
	"parley/logging"
	"parley/server"
)

// ServeCmd starts the SSH server
type ServeCmd struct {
	Host string `help:"Host to bind to" default:"localhost"`
	Port string `help:"Port to listen on" default:"23234"`
}

// Run executes the serve command
func (s *ServeCmd) Run(cli *CLI) error {
	logging.Logger.Info("Starting parley SSH server",
		"host", s.Host,
		"port", s.Port,
		"base_url", cli.BaseURL,
		"db_path", cli.DBPath)

	srv, err := server.NewServer(s.Host, s.Port, cli.BaseURL, config.ExpandPath(cli.DBPath), cli.settings)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server (blocks until shutdown)
	return srv.Start()
}
