// ABOUTME: Stripe webhook handling: verifies signatures and mirrors subscriptions locally.
// ABOUTME: Tiers are derived from the subscribed price id or its lookup key.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid stripe signature")

// Store is the subset of storage used for billing.
type Store interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetSubscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, s *models.Subscription) error
}

// Webhook processes Stripe events.
type Webhook struct {
	store  Store
	secret string
	tiers  map[string]models.Tier
	logger *log.Logger
}

// NewWebhook creates a webhook processor. priceTiers maps price ids to tiers;
// prices not in the map are matched by the lookup keys of Plans.
func NewWebhook(store Store, secret string, priceTiers map[string]models.Tier, logger *log.Logger) *Webhook {
	if logger == nil {
		logger = log.Default()
	}
	if priceTiers == nil {
		priceTiers = map[string]models.Tier{}
	}
	return &Webhook{store: store, secret: secret, tiers: priceTiers, logger: logger}
}

// Handle verifies and applies one webhook delivery. It returns the stored
// subscription, or nil when the event was ignored.
func (w *Webhook) Handle(ctx context.Context, payload []byte, signature string) (*models.Subscription, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret,
		webhook.ConstructEventOptions{Tolerance: webhook.DefaultTolerance, IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		return w.linkCustomer(ctx, &session)
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return w.syncSubscription(ctx, &sub, false)
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return w.syncSubscription(ctx, &sub, true)
	default:
		w.logger.Debug("ignoring stripe event", "type", event.Type, "id", event.ID)
		return nil, nil
	}
}

// linkCustomer records which Stripe customer belongs to which user.
func (w *Webhook) linkCustomer(ctx context.Context, session *stripe.CheckoutSession) (*models.Subscription, error) {
	userID, ok := userFrom(session.ClientReferenceID, session.Metadata)
	if !ok || session.Customer == nil {
		w.logger.Warn("checkout session without user reference", "session", session.ID)
		return nil, nil
	}

	sub, err := w.store.GetSubscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("link customer: %w", err)
	}
	customerID := session.Customer.ID
	sub.StripeCustomerID = &customerID
	if session.Subscription != nil && session.Subscription.ID != "" {
		subID := session.Subscription.ID
		sub.StripeSubscriptionID = &subID
	}
	if err := w.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("link customer: %w", err)
	}
	w.logger.Info("linked stripe customer", "user_id", userID, "customer", customerID)
	return sub, nil
}

// syncSubscription mirrors a Stripe subscription onto the owning user's row.
func (w *Webhook) syncSubscription(ctx context.Context, s *stripe.Subscription, deleted bool) (*models.Subscription, error) {
	if s.Customer == nil || s.Customer.ID == "" {
		return nil, errors.New("sync subscription: event has no customer")
	}
	customerID := s.Customer.ID

	sub, err := w.store.GetSubscriptionByCustomer(ctx, customerID)
	if errors.Is(err, storage.ErrNotFound) {
		userID, ok := userFrom("", s.Metadata)
		if !ok {
			w.logger.Warn("subscription for unknown customer", "customer", customerID, "subscription", s.ID)
			return nil, nil
		}
		sub, err = w.store.GetSubscription(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("sync subscription: %w", err)
	}

	subID := s.ID
	sub.StripeCustomerID = &customerID
	sub.StripeSubscriptionID = &subID
	sub.Status = string(s.Status)
	sub.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	if s.CurrentPeriodEnd > 0 {
		end := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}

	if price := firstPrice(s); price != nil {
		priceID := price.ID
		sub.PriceID = &priceID
		sub.Tier = w.TierFor(price.ID, price.LookupKey)
	}
	if deleted {
		sub.Tier = models.TierFree
		sub.Status = string(stripe.SubscriptionStatusCanceled)
	}

	if err := w.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("sync subscription: %w", err)
	}
	w.logger.Info("synced stripe subscription", "user_id", sub.UserID, "tier", sub.Tier, "status", sub.Status)
	return sub, nil
}

// TierFor maps a price to a tier by id first, then by lookup key. Unknown
// prices are free.
func (w *Webhook) TierFor(priceID, lookupKey string) models.Tier {
	if t, ok := w.tiers[priceID]; ok {
		return t
	}
	for _, p := range Plans {
		if lookupKey != "" && p.LookupKey == lookupKey {
			return p.Tier
		}
	}
	return models.TierFree
}

func firstPrice(s *stripe.Subscription) *stripe.Price {
	if s.Items == nil {
		return nil
	}
	for _, item := range s.Items.Data {
		if item != nil && item.Price != nil {
			return item.Price
		}
	}
	return nil
}

func userFrom(reference string, metadata map[string]string) (uuid.UUID, bool) {
	for _, candidate := range []string{reference, metadata["user_id"]} {
		if id, err := uuid.Parse(candidate); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
