// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server scoped to a single user for AI assistant integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/goalpro/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server acts as one user and communicates via stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "goalpro": {
        "command": "goalpro",
        "args": ["mcp", "--user", "<your user id>"]
      }
    }
  }

AVAILABLE TOOLS:

  add_vision, list_visions        Visions with clarity/belief/consistency scores
  add_power_goal, list_power_goals
  add_min, list_mins, complete_min
  add_time_block, list_time_blocks, time_summary
  log_kpi, kpi_tree
  daily_review, get_progress

AVAILABLE RESOURCES:

  goalpro://today     Today's MINs and time blocks
  goalpro://week      DRIP summary for the last seven days
  goalpro://summary   Visions, active goals and XP progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUser(mcpUser)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		server, err := mcp.NewServer(db, userID, loc)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "user id the server acts as")
	rootCmd.AddCommand(mcpCmd)
}
