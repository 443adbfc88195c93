package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liverylab/easel/internal/broadcast"
	"github.com/liverylab/easel/internal/paths"
	"github.com/liverylab/easel/internal/session"
	"github.com/liverylab/easel/internal/sqlite"
	"github.com/liverylab/easel/pkg/types"
)

func newWatchCmd() *cobra.Command {
	var relayURL string

	cmd := &cobra.Command{
		Use:   "watch <scheme-id>",
		Short: "Follow live edits to a scheme",
		Long: "Open a scheme from local storage, join its relay room, and apply\n" +
			"every peer mutation as it arrives, logging each one. Runs until\n" +
			"interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], relayURL)
		},
	}
	cmd.Flags().StringVar(&relayURL, "relay-url", "", "relay endpoint (default from config)")
	return cmd
}

// parseSchemeID converts the positional scheme id argument. Entity ids are
// positive; anything else is rejected before any connection is attempted.
func parseSchemeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidID, arg)
	}
	return id, nil
}

func runWatch(cmd *cobra.Command, arg, relayURL string) error {
	schemeID, err := parseSchemeID(arg)
	if err != nil {
		return exitError(exitUserError, fmt.Sprintf("scheme id: %s", err))
	}

	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve config directory: %s", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("load config: %s", err))
	}
	if relayURL == "" {
		relayURL = cfg.GetString(cfgKeyRelayURL)
	}
	userID := cfg.GetInt64(cfgKeyUserID)

	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve data directory: %s", err))
	}
	backend, err := sqlite.Open(dataDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("open storage: %s", err))
	}
	defer backend.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch := broadcast.New(relayURL, fmt.Sprintf("scheme-%d", schemeID), userID, log)
	ch.Open(ctx)
	defer ch.Close()

	sess := session.New(session.Config{
		Persistence: backend,
		Publisher:   ch,
		UserID:      userID,
		Logger:      log,
		OnError:     func(err error) { fmt.Fprintln(os.Stderr, err) },
		OnSchemeDeleted: func(id int64) {
			log.Info("scheme deleted by peer", "scheme_id", id)
			stop()
		},
	})
	if err := sess.Load(ctx, schemeID); err != nil {
		return exitError(exitUserError, fmt.Sprintf("load scheme %d: %s", schemeID, err))
	}
	log.Info("watching scheme", "scheme_id", schemeID, "relay_url", relayURL)

	for {
		select {
		case env, ok := <-ch.Inbound():
			if !ok {
				return nil
			}
			log.Info("applying peer mutation", "event", env.Event, "user_id", env.UserID)
			sess.ApplyRemote(ctx, env)
		case <-ctx.Done():
			sess.Wait()
			return nil
		}
	}
}
