// ABOUTME: Idempotent provisioning of the paid plans' Stripe products and prices.
// ABOUTME: Prices are found by lookup key, so re-running setup creates nothing new.
package billing

import (
	"context"
	"fmt"

	"github.com/harperreed/goalpro/internal/models"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Plan describes a paid tier's Stripe product and monthly price.
type Plan struct {
	Tier        models.Tier
	Name        string
	LookupKey   string
	AmountCents int64
}

// Plans are the paid tiers sold through Stripe.
var Plans = []Plan{
	{Tier: models.TierPro, Name: "Goal Achiever Pro", LookupKey: "goalpro_pro_monthly", AmountCents: 1900},
	{Tier: models.TierElite, Name: "Goal Achiever Elite", LookupKey: "goalpro_elite_monthly", AmountCents: 4900},
}

// Catalog finds and creates prices in Stripe.
type Catalog interface {
	FindPrice(ctx context.Context, lookupKey string) (*stripe.Price, error)
	CreatePrice(ctx context.Context, p Plan) (*stripe.Price, error)
}

// SetupResult reports the price for one plan and whether it was just created.
type SetupResult struct {
	Plan    Plan
	PriceID string
	Created bool
}

// Setup makes sure every plan has a price, creating missing ones.
func Setup(ctx context.Context, catalog Catalog) ([]SetupResult, error) {
	results := make([]SetupResult, 0, len(Plans))
	for _, p := range Plans {
		price, err := catalog.FindPrice(ctx, p.LookupKey)
		if err != nil {
			return results, fmt.Errorf("find price %s: %w", p.LookupKey, err)
		}
		created := false
		if price == nil {
			price, err = catalog.CreatePrice(ctx, p)
			if err != nil {
				return results, fmt.Errorf("create price %s: %w", p.LookupKey, err)
			}
			created = true
		}
		results = append(results, SetupResult{Plan: p, PriceID: price.ID, Created: created})
	}
	return results, nil
}

// StripeCatalog is a Catalog backed by the Stripe API.
type StripeCatalog struct {
	api *client.API
}

// NewStripeCatalog creates a catalog using the given secret key.
func NewStripeCatalog(secretKey string) *StripeCatalog {
	return &StripeCatalog{api: client.New(secretKey, nil)}
}

// FindPrice returns the active price with lookupKey, or nil if there is none.
func (c *StripeCatalog) FindPrice(ctx context.Context, lookupKey string) (*stripe.Price, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}
	params.Context = ctx
	iter := c.api.Prices.List(params)
	if iter.Next() {
		return iter.Price(), nil
	}
	return nil, iter.Err()
}

// CreatePrice creates the plan's product and its recurring monthly price.
func (c *StripeCatalog) CreatePrice(ctx context.Context, p Plan) (*stripe.Price, error) {
	productParams := &stripe.ProductParams{
		Name:     stripe.String(p.Name),
		Metadata: map[string]string{"tier": string(p.Tier)},
	}
	productParams.Context = ctx
	product, err := c.api.Products.New(productParams)
	if err != nil {
		return nil, err
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(product.ID),
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		UnitAmount: stripe.Int64(p.AmountCents),
		LookupKey:  stripe.String(p.LookupKey),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	priceParams.Context = ctx
	return c.api.Prices.New(priceParams)
}
