// ABOUTME: CLI commands for Stripe billing administration.
// ABOUTME: Provisions the paid plans' products and prices idempotently.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/goalpro/internal/billing"
	"github.com/spf13/cobra"
)

var stripeCmd = &cobra.Command{
	Use:   "stripe",
	Short: "Stripe billing administration",
}

var stripeSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the paid plans' Stripe prices",
	Long: `Create the Stripe product and monthly price for each paid tier.

Prices are looked up by lookup key first, so running setup again creates
nothing new. Copy the printed price ids into GOALPRO_STRIPE_PRICE_TIERS,
e.g. price_123:pro,price_456:elite.

REQUIRES:

  GOALPRO_STRIPE_SECRET_KEY`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StripeSecretKey == "" {
			return fmt.Errorf("GOALPRO_STRIPE_SECRET_KEY is required")
		}
		results, err := billing.Setup(cmd.Context(), billing.NewStripeCatalog(cfg.StripeSecretKey))
		if err != nil {
			return err
		}
		printSetupResults(cmd, results)
		return nil
	},
}

func printSetupResults(cmd *cobra.Command, results []billing.SetupResult) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		state := color.New(color.Faint).Sprint("exists")
		if r.Created {
			state = color.GreenString("created")
		}
		fmt.Fprintf(out, "%-6s %-24s %s %s\n", r.Plan.Tier, r.Plan.LookupKey, r.PriceID, state)
	}
}

func init() {
	stripeCmd.AddCommand(stripeSetupCmd)
	rootCmd.AddCommand(stripeCmd)
}
