// ABOUTME: HTTP server wiring: gin router, middleware, and route table.
// ABOUTME: Domain services are built from the repository; integrations are optional.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/harperreed/goalpro/internal/ai"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/billing"
	"github.com/harperreed/goalpro/internal/calendar"
	"github.com/harperreed/goalpro/internal/gamification"
	"github.com/harperreed/goalpro/internal/kpi"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/schedule"
	"github.com/harperreed/goalpro/internal/sharing"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server. Store and Verifier are required; a nil
// integration makes its routes answer 503.
type Options struct {
	Store    storage.Repository
	Verifier *auth.Verifier
	Logger   *log.Logger

	Inviter  sharing.Inviter
	AI       *ai.Service
	Webhook  *billing.Webhook
	Calendar *calendar.Service

	// UploadDir receives feedback screenshots.
	UploadDir string
	// Location is the default zone for expanding recurring time blocks.
	Location *time.Location
	// MaxOccurrences caps the occurrences generated per recurring block.
	MaxOccurrences int
	// Registry collects HTTP metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server serves the JSON API.
type Server struct {
	store     storage.Repository
	logger    *log.Logger
	sharing   *sharing.Service
	kpis      *kpi.Service
	progress  *gamification.Service
	schedule  *schedule.Service
	ai        *ai.Service
	webhook   *billing.Webhook
	calendar  *calendar.Service
	uploadDir string
	location  *time.Location
	router    *gin.Engine
}

// New builds the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	s := &Server{
		store:     opts.Store,
		logger:    logger,
		sharing:   sharing.NewService(opts.Store, opts.Inviter, logger),
		kpis:      kpi.NewService(opts.Store),
		progress:  gamification.NewService(opts.Store),
		schedule:  schedule.NewService(opts.Store, opts.MaxOccurrences),
		ai:        opts.AI,
		webhook:   opts.Webhook,
		calendar:  opts.Calendar,
		uploadDir: opts.UploadDir,
		location:  loc,
	}

	m := newMetrics(reg)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(logger), m.middleware())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.POST("/api/webhooks/stripe", s.handleStripeWebhook)

	api := r.Group("/api", auth.Middleware(opts.Verifier))
	{
		api.GET("/visions", s.listVisions)
		api.POST("/visions", s.createVision)
		api.GET("/visions/:id", s.getVision)
		api.PUT("/visions/:id", s.updateVision)
		api.DELETE("/visions/:id", s.deleteVision)
		api.GET("/visions/:id/score", s.visionScore)

		api.GET("/power-goals", s.listPowerGoals)
		api.POST("/power-goals", s.createPowerGoal)
		api.GET("/power-goals/:id", s.getPowerGoal)
		api.PUT("/power-goals/:id", s.updatePowerGoal)
		api.DELETE("/power-goals/:id", s.deletePowerGoal)

		api.GET("/targets", s.listTargets)
		api.POST("/targets", s.createTarget)
		api.PUT("/targets/:id", s.updateTarget)
		api.DELETE("/targets/:id", s.deleteTarget)

		api.GET("/mins", s.listMINs)
		api.POST("/mins", s.createMIN)
		api.PUT("/mins/:id", s.updateMIN)
		api.DELETE("/mins/:id", s.deleteMIN)
		api.POST("/mins/:id/complete", s.completeMIN)

		api.GET("/time-blocks", s.listTimeBlocks)
		api.POST("/time-blocks", s.createTimeBlock)
		api.POST("/time-blocks/categorize", s.categorizeTimeBlocks)
		api.GET("/time-blocks/summary", s.timeSummary)
		api.PUT("/time-blocks/:id", s.updateTimeBlock)
		api.DELETE("/time-blocks/:id", s.deleteTimeBlock)
		api.POST("/time-blocks/:id/push", s.pushTimeBlock)

		api.GET("/kpis", s.listKPIs)
		api.POST("/kpis", s.createKPI)
		api.GET("/kpis/:id", s.getKPI)
		api.DELETE("/kpis/:id", s.deleteKPI)
		api.GET("/kpis/:id/tree", s.kpiTree)
		api.POST("/kpis/:id/logs", s.logKPI)
		api.POST("/kpis/:id/override", s.overrideKPI)
		api.DELETE("/kpis/:id/override", s.clearKPIOverride)
		api.POST("/kpis/:id/recalculate", s.recalculateKPI)

		api.GET("/routines", s.listRoutines)
		api.POST("/routines", s.createRoutine)
		api.DELETE("/routines/:id", s.deleteRoutine)

		api.GET("/reviews", s.listReviews)
		api.GET("/reviews/:date", s.getReview)
		api.PUT("/reviews/:date", s.putReview)

		api.GET("/leverage", s.listLeverage)
		api.POST("/leverage", s.createLeverage)
		api.DELETE("/leverage/:id", s.deleteLeverage)

		api.GET("/progress", s.getProgress)

		api.GET("/team/members", s.listMembers)
		api.POST("/team/members", s.inviteMember)
		api.DELETE("/team/members/:id", s.removeMember)
		api.POST("/team/members/:id/revoke", s.revokeMember)
		api.POST("/team/accept", s.acceptInvite)
		api.PUT("/team/members/:id/tabs/:tab", s.setTabPermission)
		api.DELETE("/team/members/:id/tabs/:tab", s.deleteTabPermission)
		api.PUT("/team/members/:id/items/:type/:entityID", s.setItemPermission)
		api.DELETE("/team/members/:id/items/:type/:entityID", s.deleteItemPermission)
		api.GET("/team/members/:id/permissions", s.memberPermissions)

		api.GET("/shared/:ownerID/:tab", s.sharedList)
		api.GET("/shared/:ownerID/:tab/:id", s.sharedItem)
		api.PUT("/shared/:ownerID/:tab/:id", s.sharedUpdate)

		api.POST("/ai/classify", s.aiClassify)
		api.POST("/ai/plan", s.aiPlan)
		api.POST("/ai/pricing", s.aiPricing)
		api.POST("/ai/insights", s.aiInsights)

		api.GET("/subscription", s.getSubscription)

		api.GET("/calendar/auth-url", s.calendarAuthURL)
		api.POST("/calendar/connect", s.calendarConnect)
		api.POST("/calendar/sync", s.calendarSync)
		api.DELETE("/calendar", s.calendarDisconnect)

		api.POST("/feedback", s.submitFeedback)
		api.GET("/export", s.export)
	}

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// award grants XP for an action. Failures are logged; the triggering
// request still succeeds.
func (s *Server) award(c *gin.Context, action models.Action) {
	userID := auth.UserID(c)
	if _, err := s.progress.Award(c.Request.Context(), userID, action, time.Now().UTC()); err != nil {
		s.logger.Warn("award xp failed", "user_id", userID, "action", action, "err", err)
	}
}
