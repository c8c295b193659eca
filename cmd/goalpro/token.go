// ABOUTME: CLI command that mints bearer tokens.
// ABOUTME: Signs a JWT with the configured secret for local testing and scripts.
package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUser  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token",
	Long: `Sign a bearer token accepted by 'goalpro serve'.

Without --user a new random user id is used and printed to stderr.

EXAMPLES:

  goalpro token --user 6f1c... --email me@example.com
  curl -H "Authorization: Bearer $(goalpro token --user 6f1c...)" localhost:8080/api/visions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return fmt.Errorf("GOALPRO_JWT_SECRET is required")
		}
		userID := uuid.New()
		if tokenUser != "" {
			var err error
			if userID, err = parseUser(tokenUser); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "user: %s\n", userID)
		}

		token, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience).Issue(userID, tokenEmail, tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (default: random)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
