// ABOUTME: CLI commands for exporting and importing goalpro data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportUser   string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export one user's data",
	Long: `Export one user's planning data in various formats.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable)
  markdown   Markdown report (visions, goals, MINs, KPIs, reviews)

OPTIONS:

  --user         User id (required)
  --output, -o   Write to file instead of stdout

EXAMPLES:

  goalpro export json --user <uuid>                 # Export as JSON
  goalpro export json --user <uuid> -o backup.json  # Save to file
  goalpro export markdown --user <uuid>             # Human-readable report`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUser(exportUser)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var data []byte
		switch args[0] {
		case "json":
			data, err = db.ExportJSON(ctx, userID)
		case "yaml":
			data, err = db.ExportYAML(ctx, userID)
		case "markdown":
			var md string
			md, err = db.ExportMarkdown(ctx, userID)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import data from a JSON export",
	Long: `Import planning data from a JSON export file.

Records keep their IDs and owner, so duplicate entries (same ID) cause an
error.

EXAMPLES:

  goalpro import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		ctx := cmd.Context()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ImportJSON(ctx, raw); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		color.Green("✓ Imported from %s", args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportUser, "user", "", "user id to export")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
