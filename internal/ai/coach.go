// ABOUTME: AI coaching features: DRIP classification, project plans, pricing and time insights.
// ABOUTME: Every call is metered against the user's daily tier limit before the model is asked.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const jsonOnly = "Respond with a single JSON value and nothing else."

const classifySystem = `You are a productivity coach using the DRIP matrix.
Quadrants: delegation (low value, drains energy), replacement (low value, energizing),
investment (high value, energizing, pays off later), production (high value, energizing, pays now).
Energy ratings: energizing, neutral, draining. ` + jsonOnly

const planSystem = `You are a project planner. Break a goal into milestones at monthly,
weekly and daily levels, ordered by when they should happen. ` + jsonOnly

const pricingSystem = `You are a pricing strategist for solo businesses and small teams. ` + jsonOnly

const insightsSystem = `You are a time-management coach. Review a week of time blocks
categorised with the DRIP matrix and give concrete, short observations. ` + jsonOnly

// SubscriptionStore looks up a user's subscription to choose the usage limit.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// Service runs the AI features.
type Service struct {
	llm     Completer
	limiter Limiter
	subs    SubscriptionStore
}

// NewService creates an AI service. A nil limiter allows every request.
func NewService(llm Completer, limiter Limiter, subs SubscriptionStore) *Service {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	return &Service{llm: llm, limiter: limiter, subs: subs}
}

// Classification is the DRIP quadrant and energy rating suggested for an activity.
type Classification struct {
	Quadrant models.DripQuadrant `json:"quadrant"`
	Energy   models.EnergyRating `json:"energy"`
	Reason   string              `json:"reason"`
}

// Milestone is one step of a project plan.
type Milestone struct {
	Title       string             `json:"title"`
	Level       models.TargetLevel `json:"level"`
	Description string             `json:"description,omitempty"`
	WeekOffset  int                `json:"week_offset"`
}

// ProjectPlan breaks a goal into milestones.
type ProjectPlan struct {
	Summary    string      `json:"summary"`
	Milestones []Milestone `json:"milestones"`
}

// PricingTier is one suggested price point.
type PricingTier struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}

// PricingModel is a suggested pricing structure for an offer.
type PricingModel struct {
	Strategy string        `json:"strategy"`
	Tiers    []PricingTier `json:"tiers"`
}

// Insights is feedback on how a user spent their time.
type Insights struct {
	Summary         string   `json:"summary"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
}

func (s *Service) allow(ctx context.Context, userID uuid.UUID) error {
	tier := models.TierFree
	if s.subs != nil {
		sub, err := s.subs.GetSubscription(ctx, userID)
		if err != nil {
			return fmt.Errorf("load subscription: %w", err)
		}
		tier = sub.EffectiveTier()
	}
	_, err := s.limiter.Allow(ctx, userID, tier)
	return err
}

func (s *Service) ask(ctx context.Context, userID uuid.UUID, feature, system, prompt string, out any) error {
	if err := s.allow(ctx, userID); err != nil {
		return err
	}
	reply, err := s.llm.Complete(ctx, system, prompt)
	if err != nil {
		return fmt.Errorf("%s: %w", feature, err)
	}
	if err := ExtractJSON(reply, out); err != nil {
		return fmt.Errorf("%s: %w", feature, err)
	}
	return nil
}

// ClassifyActivity suggests a DRIP quadrant and energy rating for an activity.
func (s *Service) ClassifyActivity(ctx context.Context, userID uuid.UUID, title, description string) (*Classification, error) {
	prompt := fmt.Sprintf(`Classify this activity.
Title: %s
Description: %s

Return {"quadrant": "...", "energy": "...", "reason": "..."}.`, title, description)

	var c Classification
	if err := s.ask(ctx, userID, "classify activity", classifySystem, prompt, &c); err != nil {
		return nil, err
	}
	c.Quadrant = models.DripQuadrant(strings.ToLower(string(c.Quadrant)))
	c.Energy = models.EnergyRating(strings.ToLower(string(c.Energy)))
	if !models.IsValidDripQuadrant(string(c.Quadrant)) {
		return nil, fmt.Errorf("classify activity: unknown quadrant %q", c.Quadrant)
	}
	if !models.IsValidEnergyRating(string(c.Energy)) {
		c.Energy = models.EnergyNeutral
	}
	return &c, nil
}

// PlanProject breaks a goal into milestones.
func (s *Service) PlanProject(ctx context.Context, userID uuid.UUID, goal, background string, weeks int) (*ProjectPlan, error) {
	if weeks <= 0 {
		weeks = 12
	}
	prompt := fmt.Sprintf(`Goal: %s
Context: %s
Time frame: %d weeks

Return {"summary": "...", "milestones": [{"title": "...", "level": "monthly|weekly|daily", "description": "...", "week_offset": 0}]}.`,
		goal, background, weeks)

	var p ProjectPlan
	if err := s.ask(ctx, userID, "plan project", planSystem, prompt, &p); err != nil {
		return nil, err
	}
	for i := range p.Milestones {
		m := &p.Milestones[i]
		m.Level = models.TargetLevel(strings.ToLower(string(m.Level)))
		if !models.IsValidTargetLevel(string(m.Level)) {
			m.Level = models.TargetWeekly
		}
	}
	return &p, nil
}

// PricingModel suggests pricing tiers for an offer.
func (s *Service) PricingModel(ctx context.Context, userID uuid.UUID, offer, audience string) (*PricingModel, error) {
	prompt := fmt.Sprintf(`Offer: %s
Audience: %s

Return {"strategy": "...", "tiers": [{"name": "...", "price": 0, "interval": "month|year|once", "features": ["..."]}]}.`,
		offer, audience)

	var m PricingModel
	if err := s.ask(ctx, userID, "pricing model", pricingSystem, prompt, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Insights reviews a window of time block occurrences.
func (s *Service) Insights(ctx context.Context, userID uuid.UUID, summary models.DripSummary, occs []models.Occurrence) (*Insights, error) {
	type row struct {
		Title    string `json:"title"`
		Start    string `json:"start"`
		Minutes  int    `json:"minutes"`
		Quadrant string `json:"quadrant,omitempty"`
		Energy   string `json:"energy,omitempty"`
	}
	rows := make([]row, 0, len(occs))
	for _, o := range occs {
		r := row{
			Title:   o.Title,
			Start:   o.StartsAt.Format("Mon 2006-01-02 15:04"),
			Minutes: int(o.EndsAt.Sub(o.StartsAt).Minutes()),
		}
		if o.Quadrant != nil {
			r.Quadrant = string(*o.Quadrant)
		}
		if o.Energy != nil {
			r.Energy = string(*o.Energy)
		}
		rows = append(rows, r)
	}
	blocks, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	totals, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}

	prompt := fmt.Sprintf(`Totals: %s
Blocks: %s

Return {"summary": "...", "observations": ["..."], "recommendations": ["..."]}.`, totals, blocks)

	var in Insights
	if err := s.ask(ctx, userID, "insights", insightsSystem, prompt, &in); err != nil {
		return nil, err
	}
	return &in, nil
}
