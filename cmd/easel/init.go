package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/liverylab/easel/internal/paths"
	"github.com/liverylab/easel/internal/sqlite"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize easel storage",
		Long:  "Create configuration and data directories, then initialize the SQLite database.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve config directory: %s", err))
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("load config: %s", err))
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("resolve data directory: %s", err))
	}

	// Opening the backend creates the data directory and applies the schema.
	backend, err := sqlite.Open(dataDir)
	if err != nil {
		return exitError(exitSysError, fmt.Sprintf("initialize storage: %s", err))
	}
	if err := backend.Close(); err != nil {
		return exitError(exitSysError, fmt.Sprintf("finalize storage: %s", err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Easel initialized successfully")
	return nil
}
