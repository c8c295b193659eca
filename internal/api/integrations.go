// ABOUTME: Handlers for the AI coach, subscription status, and Stripe webhooks.
// ABOUTME: The webhook route is unauthenticated and trusts only the Stripe signature.
package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/goalpro/internal/auth"
)

// maxWebhookBytes bounds a Stripe webhook payload.
const maxWebhookBytes = 1 << 16

type classifyRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) aiClassify(c *gin.Context) {
	if s.ai == nil {
		s.fail(c, errUnavailable)
		return
	}
	var req classifyRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.ai.ClassifyActivity(c.Request.Context(), auth.UserID(c), req.Title, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type planRequest struct {
	Goal       string `json:"goal" binding:"required"`
	Background string `json:"background"`
	Weeks      int    `json:"weeks"`
}

func (s *Server) aiPlan(c *gin.Context) {
	if s.ai == nil {
		s.fail(c, errUnavailable)
		return
	}
	var req planRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Weeks < 0 || req.Weeks > 104 {
		s.fail(c, badRequest("weeks must be between 0 and 104"))
		return
	}
	out, err := s.ai.PlanProject(c.Request.Context(), auth.UserID(c), req.Goal, req.Background, req.Weeks)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type pricingRequest struct {
	Offer    string `json:"offer" binding:"required"`
	Audience string `json:"audience"`
}

func (s *Server) aiPricing(c *gin.Context) {
	if s.ai == nil {
		s.fail(c, errUnavailable)
		return
	}
	var req pricingRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.ai.PricingModel(c.Request.Context(), auth.UserID(c), req.Offer, req.Audience)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// aiInsights reviews the caller's time blocks over the from/to window,
// defaulting to the week starting today.
func (s *Server) aiInsights(c *gin.Context) {
	if s.ai == nil {
		s.fail(c, errUnavailable)
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	from, to, err := queryWindow(c, week)
	if err != nil {
		s.fail(c, err)
		return
	}
	loc, err := queryLocation(c, s.location)
	if err != nil {
		s.fail(c, err)
		return
	}
	occs, err := s.schedule.Occurrences(ctx, userID, from, to, loc)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(occs) == 0 {
		s.fail(c, badRequest("no time blocks between %s and %s", from.Format("2006-01-02"), to.Format("2006-01-02")))
		return
	}
	summary, err := s.schedule.Summary(ctx, userID, from, to, loc)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.ai.Insights(ctx, userID, summary, occs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "insights": out})
}

func (s *Server) getSubscription(c *gin.Context) {
	sub, err := s.store.GetSubscription(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "effective_tier": sub.EffectiveTier()})
}

func (s *Server) handleStripeWebhook(c *gin.Context) {
	if s.webhook == nil {
		s.fail(c, errUnavailable)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		s.fail(c, badRequest("read body: %v", err))
		return
	}
	signature := strings.TrimSpace(c.GetHeader("Stripe-Signature"))
	if signature == "" {
		s.fail(c, badRequest("missing Stripe-Signature header"))
		return
	}
	sub, err := s.webhook.Handle(c.Request.Context(), payload, signature)
	if err != nil {
		s.fail(c, err)
		return
	}
	if sub != nil {
		s.logger.Info("subscription updated", "user_id", sub.UserID, "tier", sub.Tier, "status", sub.Status)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
