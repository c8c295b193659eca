// ABOUTME: CLI command that previews a recurrence rule.
// ABOUTME: Prints the canonical RRULE and the occurrences it produces in a window.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/goalpro/internal/recurrence"
	"github.com/spf13/cobra"
)

var (
	recurStart    string
	recurDays     int
	recurDuration time.Duration
	recurLimit    int
)

var recurCmd = &cobra.Command{
	Use:   "recur <rrule>",
	Short: "Preview a recurrence rule",
	Long: `Show the occurrences a recurrence rule generates.

Supported keys are FREQ (DAILY, WEEKLY, MONTHLY, YEARLY), INTERVAL, BYDAY,
UNTIL and COUNT.

EXAMPLES:

  goalpro recur "FREQ=WEEKLY;BYDAY=MO,WE,FR" --start 2026-01-05T09:00:00Z
  goalpro recur "FREQ=MONTHLY;COUNT=6" --days 200`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		start := time.Now().In(loc).Truncate(time.Minute)
		if recurStart != "" {
			start, err = time.Parse(time.RFC3339, recurStart)
			if err != nil {
				return fmt.Errorf("invalid --start %q (use RFC 3339)", recurStart)
			}
		}
		rule := recurrence.Parse(args[0])
		w := recurrence.Window{From: start, To: start.AddDate(0, 0, recurDays)}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", rule.String())
		times := recurrence.Expand(start.In(loc), recurDuration, rule, w, recurLimit)
		if len(times) == 0 {
			fmt.Fprintln(out, "No occurrences in window.")
			return nil
		}
		faint := color.New(color.Faint)
		for _, t := range times {
			fmt.Fprintf(out, "%s %s\n", t.Format("Mon 2006-01-02 15:04"), faint.Sprintf("(%s)", recurDuration))
		}
		return nil
	},
}

func init() {
	recurCmd.Flags().StringVar(&recurStart, "start", "", "first occurrence (RFC 3339, default now)")
	recurCmd.Flags().IntVar(&recurDays, "days", 30, "window length in days")
	recurCmd.Flags().DurationVar(&recurDuration, "duration", time.Hour, "length of each occurrence")
	recurCmd.Flags().IntVarP(&recurLimit, "limit", "n", 50, "max occurrences to show")
	rootCmd.AddCommand(recurCmd)
}
