package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/errors"
	"github.com/DogStark/petchain-anchor/logger"
	"github.com/DogStark/petchain-anchor/server"
)

// ServeCmd starts the anchoring HTTP API.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the anchoring HTTP API",
	Long: `Start the HTTP API serving sync, verify, and status endpoints.

The server address, database path, ledger network, and IPFS endpoint all
come from configuration. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

var serveAddrFlag string

func init() {
	ServeCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	service, database, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	addr := cfg.Server.Addr
	if serveAddrFlag != "" {
		addr = serveAddrFlag
	}

	srv := server.New(service, addr, logger.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infow("Received shutdown signal", "signal", sig)
		return srv.Stop()
	}
}
