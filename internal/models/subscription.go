// ABOUTME: Subscription and calendar connection models.
// ABOUTME: Both are mirrored from third-party services (Stripe, Google Calendar).
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a subscription plan level.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

// Subscription mirrors a Stripe subscription for a user.
type Subscription struct {
	UserID               uuid.UUID  `json:"user_id" yaml:"user_id"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty" yaml:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty" yaml:"stripe_subscription_id,omitempty"`
	Tier                 Tier       `json:"tier" yaml:"tier"`
	Status               string     `json:"status" yaml:"status"`
	PriceID              *string    `json:"price_id,omitempty" yaml:"price_id,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty" yaml:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" yaml:"cancel_at_period_end"`
	UpdatedAt            time.Time  `json:"updated_at" yaml:"updated_at"`
}

// FreeSubscription is the implicit subscription of a user with no Stripe record.
func FreeSubscription(userID uuid.UUID) *Subscription {
	return &Subscription{UserID: userID, Tier: TierFree, Status: "active", UpdatedAt: time.Now().UTC()}
}

// EffectiveTier returns the tier that applies right now. Inactive
// subscriptions fall back to free.
func (s *Subscription) EffectiveTier() Tier {
	switch s.Status {
	case "active", "trialing", "past_due":
		return s.Tier
	}
	return TierFree
}

// CalendarConnection stores a user's Google Calendar OAuth token.
type CalendarConnection struct {
	UserID       uuid.UUID  `json:"user_id" yaml:"user_id"`
	CalendarID   string     `json:"calendar_id" yaml:"calendar_id"`
	AccessToken  string     `json:"-" yaml:"-"`
	RefreshToken string     `json:"-" yaml:"-"`
	TokenType    string     `json:"-" yaml:"-"`
	Expiry       time.Time  `json:"expiry" yaml:"expiry"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" yaml:"last_synced_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
}
