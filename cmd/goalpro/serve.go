// ABOUTME: CLI command that runs the JSON API server.
// ABOUTME: Wires storage, auth, and the optional Redis, AI, email, calendar and Stripe integrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/goalpro/internal/ai"
	"github.com/harperreed/goalpro/internal/api"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/billing"
	"github.com/harperreed/goalpro/internal/calendar"
	"github.com/harperreed/goalpro/internal/config"
	"github.com/harperreed/goalpro/internal/email"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the Goal Achiever Pro JSON API.

REQUIRED:

  GOALPRO_JWT_SECRET       HMAC secret used to verify bearer tokens

OPTIONAL INTEGRATIONS (routes answer 503 when unset):

  GOALPRO_REDIS_URL              Daily AI usage limits per tier
  GOALPRO_ANTHROPIC_KEY          AI classification, planning and insights
  GOALPRO_RESEND_KEY             Team invitation emails
  GOALPRO_GOOGLE_CLIENT_ID       Google Calendar sync
  GOALPRO_STRIPE_WEBHOOK_SECRET  Subscription webhooks

EXAMPLES:

  goalpro serve
  goalpro serve --addr 127.0.0.1:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		server, cleanup, err := buildServer(cfg, db)
		if err != nil {
			return err
		}
		defer cleanup()

		addr := cfg.GetAddr()
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.Run(ctx, addr)
	},
}

// buildServer assembles the API from c. The cleanup func releases the Redis
// client when one was opened.
func buildServer(c *config.Config, db *storage.DB) (*api.Server, func(), error) {
	cleanup := func() {}
	if c.JWTSecret == "" {
		return nil, cleanup, errors.New("GOALPRO_JWT_SECRET is required")
	}
	loc, err := c.Location()
	if err != nil {
		return nil, cleanup, err
	}

	opts := api.Options{
		Store:          db,
		Verifier:       auth.NewVerifier(c.JWTSecret, c.JWTAudience),
		Logger:         logger,
		UploadDir:      c.UploadDir(),
		Location:       loc,
		MaxOccurrences: c.MaxOccurrences,
	}

	if c.AnthropicKey != "" {
		var limiter ai.Limiter = ai.NopLimiter{}
		if c.RedisURL != "" {
			redisOpts, err := redis.ParseURL(c.RedisURL)
			if err != nil {
				return nil, cleanup, fmt.Errorf("invalid redis url: %w", err)
			}
			rdb := redis.NewClient(redisOpts)
			cleanup = func() { _ = rdb.Close() }
			limiter = ai.NewRedisLimiter(rdb, nil)
		} else {
			logger.Warn("no redis configured, AI usage is not limited")
		}
		opts.AI = ai.NewService(ai.NewClient(c.AnthropicKey, c.AnthropicModel, c.AnthropicBaseURL), limiter, db)
	}

	if c.ResendKey != "" {
		mailer, err := email.NewClient(c.ResendKey, "")
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opts.Inviter = email.NewInviteMailer(mailer, c.EmailFrom, c.AppURL)
	}

	if c.GoogleClientID != "" {
		opts.Calendar = calendar.NewService(
			calendar.OAuthConfig(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL),
			db, logger)
	}

	if c.StripeWebhookSecret != "" {
		tiers, err := c.PriceTiers()
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opts.Webhook = billing.NewWebhook(db, c.StripeWebhookSecret, tiers, logger)
	}

	return api.New(opts), cleanup, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
