package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liverylab/easel/internal/paths"
	"github.com/liverylab/easel/internal/relay"
)

func newRelayCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the broadcast relay",
		Long: "Serve the websocket relay that fans scheme mutations out to every\n" +
			"client editing the same scheme. Shutting the relay down signals a\n" +
			"forced restart to all connected clients.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, then :8974)")
	return cmd
}

func runRelay(cmd *cobra.Command, listen string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve config directory: %s", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("load config: %s", err))
	}
	if listen == "" {
		listen = cfg.GetString(cfgKeyListen)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := relay.NewServer(listen, log)
	if err := server.Run(ctx); err != nil {
		return exitError(exitSysError, fmt.Sprintf("relay: %s", err))
	}
	return nil
}
