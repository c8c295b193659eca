// ABOUTME: Subscription and calendar connection storage.
// ABOUTME: Users without a subscription row are reported on the free tier.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const subscriptionColumns = `user_id, stripe_customer_id, stripe_subscription_id, tier, status, price_id, current_period_end, cancel_at_period_end, updated_at`

// GetSubscription returns the user's subscription, or a free one if none is stored.
func (d *DB) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s, err := scanSubscription(d.queryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ?`, userID.String()))
	if errors.Is(err, ErrNotFound) {
		return models.FreeSubscription(userID), nil
	}
	return s, err
}

// GetSubscriptionByCustomer finds a subscription by Stripe customer ID.
func (d *DB) GetSubscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	return scanSubscription(d.queryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_customer_id = ?`, customerID))
}

// UpsertSubscription writes the user's subscription.
func (d *DB) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := d.exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = excluded.stripe_customer_id,
			stripe_subscription_id = excluded.stripe_subscription_id,
			tier = excluded.tier,
			status = excluded.status,
			price_id = excluded.price_id,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			updated_at = excluded.updated_at`,
		s.UserID.String(),
		nullString(s.StripeCustomerID),
		nullString(s.StripeSubscriptionID),
		string(s.Tier),
		s.Status,
		nullString(s.PriceID),
		nullTS(s.CurrentPeriodEnd),
		s.CancelAtPeriodEnd,
		formatTS(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", mapWriteErr(err))
	}
	return nil
}

// GetCalendarConnection returns the user's stored calendar token.
func (d *DB) GetCalendarConnection(ctx context.Context, userID uuid.UUID) (*models.CalendarConnection, error) {
	var (
		c                 models.CalendarConnection
		uid               string
		expiry, updatedAt string
		lastSynced        sql.NullString
	)
	err := d.queryRow(ctx, `
		SELECT user_id, calendar_id, access_token, refresh_token, token_type, expiry, last_synced_at, updated_at
		FROM calendar_connections
		WHERE user_id = ?`,
		userID.String()).
		Scan(&uid, &c.CalendarID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &expiry, &lastSynced, &updatedAt)
	if err != nil {
		return nil, notFound(err, "calendar connection")
	}
	c.UserID, _ = uuid.Parse(uid)
	c.Expiry = parseTS(expiry)
	c.LastSyncedAt = tsPtr(lastSynced)
	c.UpdatedAt = parseTS(updatedAt)
	return &c, nil
}

// UpsertCalendarConnection writes the user's calendar token.
func (d *DB) UpsertCalendarConnection(ctx context.Context, c *models.CalendarConnection) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := d.exec(ctx, `
		INSERT INTO calendar_connections (user_id, calendar_id, access_token, refresh_token, token_type, expiry, last_synced_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			calendar_id = excluded.calendar_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at`,
		c.UserID.String(),
		c.CalendarID,
		c.AccessToken,
		c.RefreshToken,
		c.TokenType,
		formatTS(c.Expiry),
		nullTS(c.LastSyncedAt),
		formatTS(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert calendar connection: %w", err)
	}
	return nil
}

// DeleteCalendarConnection forgets the user's calendar token.
func (d *DB) DeleteCalendarConnection(ctx context.Context, userID uuid.UUID) error {
	return d.execOne(ctx, "delete calendar connection",
		`DELETE FROM calendar_connections WHERE user_id = ?`, userID.String())
}

func scanSubscription(s scanner) (*models.Subscription, error) {
	var (
		sub                models.Subscription
		uid, tier          string
		customerID, subID  sql.NullString
		priceID, periodEnd sql.NullString
		updatedAt          string
	)
	err := s.Scan(&uid, &customerID, &subID, &tier, &sub.Status, &priceID, &periodEnd, &sub.CancelAtPeriodEnd, &updatedAt)
	if err != nil {
		return nil, notFound(err, "subscription")
	}
	sub.UserID, _ = uuid.Parse(uid)
	sub.StripeCustomerID = strPtr(customerID)
	sub.StripeSubscriptionID = strPtr(subID)
	sub.Tier = models.Tier(tier)
	sub.PriceID = strPtr(priceID)
	sub.CurrentPeriodEnd = tsPtr(periodEnd)
	sub.UpdatedAt = parseTS(updatedAt)
	return &sub, nil
}
