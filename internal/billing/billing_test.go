// ABOUTME: Tests for Stripe webhook handling and plan provisioning.
// ABOUTME: Webhook payloads are signed locally and applied to a temp SQLite database.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

const testSecret = "whsec_test"

func newTestWebhook(t *testing.T) (*Webhook, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "goalpro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tiers := map[string]models.Tier{"price_elite_custom": models.TierElite}
	return NewWebhook(db, testSecret, tiers, log.New(io.Discard)), db
}

func sign(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id": "evt_test", "object": "event", "type": %q, "data": {"object": %s}}`, eventType, object))
}

func subscriptionJSON(customer, status, priceID, lookupKey, metadata string) string {
	return fmt.Sprintf(`{
		"id": "sub_123",
		"object": "subscription",
		"customer": %q,
		"status": %q,
		"cancel_at_period_end": true,
		"current_period_end": 1775001600,
		"metadata": %s,
		"items": {"object": "list", "data": [
			{"id": "si_1", "object": "subscription_item", "price": {"id": %q, "object": "price", "lookup_key": %q}}
		]}
	}`, customer, status, metadata, priceID, lookupKey)
}

func TestHandleRejectsBadSignature(t *testing.T) {
	w, _ := newTestWebhook(t)
	payload := event("customer.subscription.updated", subscriptionJSON("cus_1", "active", "p", "", "{}"))

	_, err := w.Handle(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCheckoutThenSubscriptionUpdate(t *testing.T) {
	w, db := newTestWebhook(t)
	ctx := context.Background()
	user := uuid.New()

	checkout := event("checkout.session.completed", fmt.Sprintf(
		`{"id": "cs_1", "object": "checkout.session", "client_reference_id": %q, "customer": "cus_1", "subscription": "sub_123"}`, user))
	sub, err := w.Handle(ctx, checkout, sign(checkout))
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "cus_1", *sub.StripeCustomerID)
	assert.Equal(t, models.TierFree, sub.Tier, "tier changes only with the subscription event")

	update := event("customer.subscription.updated",
		subscriptionJSON("cus_1", "active", "price_pro_live", "goalpro_pro_monthly", "{}"))
	_, err = w.Handle(ctx, update, sign(update))
	require.NoError(t, err)

	stored, err := db.GetSubscription(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, stored.Tier)
	assert.Equal(t, models.TierPro, stored.EffectiveTier())
	assert.Equal(t, "sub_123", *stored.StripeSubscriptionID)
	assert.Equal(t, "price_pro_live", *stored.PriceID)
	assert.True(t, stored.CancelAtPeriodEnd)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.Equal(t, int64(1775001600), stored.CurrentPeriodEnd.Unix())
}

func TestSubscriptionCreatedUsesMetadataForNewCustomer(t *testing.T) {
	w, db := newTestWebhook(t)
	ctx := context.Background()
	user := uuid.New()

	created := event("customer.subscription.created", subscriptionJSON(
		"cus_new", "trialing", "price_elite_custom", "", fmt.Sprintf(`{"user_id": %q}`, user)))
	_, err := w.Handle(ctx, created, sign(created))
	require.NoError(t, err)

	stored, err := db.GetSubscriptionByCustomer(ctx, "cus_new")
	require.NoError(t, err)
	assert.Equal(t, user, stored.UserID)
	assert.Equal(t, models.TierElite, stored.Tier)
	assert.Equal(t, "trialing", stored.Status)
}

func TestSubscriptionForUnknownCustomerIsIgnored(t *testing.T) {
	w, _ := newTestWebhook(t)
	payload := event("customer.subscription.updated", subscriptionJSON("cus_ghost", "active", "p", "", "{}"))

	sub, err := w.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionDeletedDowngrades(t *testing.T) {
	w, db := newTestWebhook(t)
	ctx := context.Background()
	user := uuid.New()

	created := event("customer.subscription.created", subscriptionJSON(
		"cus_9", "active", "price_x", "goalpro_elite_monthly", fmt.Sprintf(`{"user_id": %q}`, user)))
	_, err := w.Handle(ctx, created, sign(created))
	require.NoError(t, err)

	deleted := event("customer.subscription.deleted", subscriptionJSON(
		"cus_9", "canceled", "price_x", "goalpro_elite_monthly", "{}"))
	_, err = w.Handle(ctx, deleted, sign(deleted))
	require.NoError(t, err)

	stored, err := db.GetSubscription(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, stored.Tier)
	assert.Equal(t, "canceled", stored.Status)
}

func TestUnhandledEventIsIgnored(t *testing.T) {
	w, _ := newTestWebhook(t)
	payload := event("invoice.paid", `{"id": "in_1", "object": "invoice"}`)

	sub, err := w.Handle(context.Background(), payload, sign(payload))
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestTierFor(t *testing.T) {
	w, _ := newTestWebhook(t)
	assert.Equal(t, models.TierElite, w.TierFor("price_elite_custom", ""))
	assert.Equal(t, models.TierPro, w.TierFor("price_other", "goalpro_pro_monthly"))
	assert.Equal(t, models.TierElite, w.TierFor("price_other", "goalpro_elite_monthly"))
	assert.Equal(t, models.TierFree, w.TierFor("price_other", ""))
}

type fakeCatalog struct {
	prices  map[string]*stripe.Price
	created int
}

func (f *fakeCatalog) FindPrice(_ context.Context, key string) (*stripe.Price, error) {
	return f.prices[key], nil
}

func (f *fakeCatalog) CreatePrice(_ context.Context, p Plan) (*stripe.Price, error) {
	f.created++
	price := &stripe.Price{ID: "price_" + p.LookupKey, LookupKey: p.LookupKey, UnitAmount: p.AmountCents}
	f.prices[p.LookupKey] = price
	return price, nil
}

func TestSetupIsIdempotent(t *testing.T) {
	catalog := &fakeCatalog{prices: map[string]*stripe.Price{
		"goalpro_pro_monthly": {ID: "price_existing"},
	}}
	ctx := context.Background()

	results, err := Setup(ctx, catalog)
	require.NoError(t, err)
	require.Len(t, results, len(Plans))
	assert.False(t, results[0].Created)
	assert.Equal(t, "price_existing", results[0].PriceID)
	assert.True(t, results[1].Created)
	assert.Equal(t, 1, catalog.created)

	results, err = Setup(ctx, catalog)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Created)
	}
	assert.Equal(t, 1, catalog.created)
}
