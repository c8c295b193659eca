// ABOUTME: Root Cobra command for the goalpro CLI.
// ABOUTME: Loads configuration and the logger in PersistentPreRunE for every subcommand.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/config"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "goalpro",
	Short: "Goal Achiever Pro backend",
	Long: `Goal Achiever Pro is the backend for a goal planning system built on
visions, power goals, MINs (most important next steps), DRIP time tracking
and KPI trees.

QUICK START:

  $ goalpro serve                          # Run the JSON API on :8080
  $ goalpro token --user <uuid>            # Mint a bearer token for testing
  $ goalpro mcp --user <uuid>              # MCP server for AI assistants
  $ goalpro install-skill                  # Teach Claude Code the MCP tools

DATA:

  $ goalpro export json --user <uuid>      # Back up one user's data
  $ goalpro import backup.json             # Restore a backup
  $ goalpro migrate --to postgres://...    # Copy SQLite data to Postgres

TOOLS:

  $ goalpro recur "FREQ=WEEKLY;BYDAY=MO,WE" --start 2026-01-05T09:00:00Z
  $ goalpro stripe setup                   # Create the paid plans' prices

CONFIGURATION:

  Settings are read from ~/.config/goalpro/config.json and overridden by
  GOALPRO_* environment variables, e.g. GOALPRO_DATABASE_URL,
  GOALPRO_JWT_SECRET, GOALPRO_REDIS_URL, GOALPRO_ANTHROPIC_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = cfg.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		return nil
	},
}

// openStore opens the configured backend.
func openStore(ctx context.Context) (*storage.DB, error) {
	db, err := cfg.OpenStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return db, nil
}

// parseUser reads the --user flag value.
func parseUser(v string) (uuid.UUID, error) {
	if v == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", v, err)
	}
	return id, nil
}
