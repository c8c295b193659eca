// ABOUTME: Handlers for time blocks, DRIP summaries, and Google Calendar sync.
// ABOUTME: Listing expands recurring blocks into occurrences for the requested window.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/recurrence"
)

const week = 7 * 24 * time.Hour

type timeBlockRequest struct {
	Title      *string    `json:"title"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
	Quadrant   *string    `json:"quadrant"`
	Energy     *string    `json:"energy"`
	Recurrence *string    `json:"recurrence"`
	Notes      *string    `json:"notes"`
}

func (r *timeBlockRequest) apply(b *models.TimeBlock) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return badRequest("title is required")
		}
		b.Title = *r.Title
	}
	if r.StartsAt != nil {
		b.StartsAt = r.StartsAt.UTC()
	}
	if r.EndsAt != nil {
		b.EndsAt = r.EndsAt.UTC()
	}
	if !b.EndsAt.After(b.StartsAt) {
		return badRequest("ends_at must be after starts_at")
	}
	if r.Quadrant != nil {
		switch {
		case *r.Quadrant == "":
			b.Quadrant = nil
		case models.IsValidDripQuadrant(*r.Quadrant):
			b.WithQuadrant(models.DripQuadrant(*r.Quadrant))
		default:
			return badRequest("invalid quadrant %q", *r.Quadrant)
		}
	}
	if r.Energy != nil {
		switch {
		case *r.Energy == "":
			b.Energy = nil
		case models.IsValidEnergyRating(*r.Energy):
			b.WithEnergy(models.EnergyRating(*r.Energy))
		default:
			return badRequest("invalid energy %q", *r.Energy)
		}
	}
	if r.Recurrence != nil {
		if strings.TrimSpace(*r.Recurrence) == "" {
			b.Recurrence = nil
		} else {
			b.WithRecurrence(recurrence.Parse(*r.Recurrence).String())
		}
	}
	if r.Notes != nil {
		b.Notes = r.Notes
	}
	return nil
}

func (s *Server) listTimeBlocks(c *gin.Context) {
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
	occs, err := s.schedule.Occurrences(c.Request.Context(), auth.UserID(c), from, to, loc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, occs)
}

func (s *Server) createTimeBlock(c *gin.Context) {
	var req timeBlockRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title == nil || req.StartsAt == nil || req.EndsAt == nil {
		s.fail(c, badRequest("title, starts_at and ends_at are required"))
		return
	}
	b := models.NewTimeBlock(auth.UserID(c), "", req.StartsAt.UTC(), req.EndsAt.UTC())
	if err := req.apply(b); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.CreateTimeBlock(c.Request.Context(), b); err != nil {
		s.fail(c, err)
		return
	}
	s.award(c, models.ActionTimeBlockLogged)
	c.JSON(http.StatusCreated, b)
}

func (s *Server) updateTimeBlock(c *gin.Context) {
	ctx := c.Request.Context()
	b, err := s.store.GetTimeBlock(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req timeBlockRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := req.apply(b); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.UpdateTimeBlock(ctx, b); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) deleteTimeBlock(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	b, err := s.store.GetTimeBlock(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.calendar != nil && b.ExternalEventID != nil && c.Query("calendar") == "true" {
		if err := s.calendar.Remove(ctx, b); err != nil {
			s.logger.Warn("remove calendar event failed", "block", b.ID, "err", err)
		}
	}
	if err := s.store.DeleteTimeBlock(ctx, userID, b.ID.String()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type categorizeRequest struct {
	IDs      []string `json:"ids"`
	Quadrant *string  `json:"quadrant"`
	Energy   *string  `json:"energy"`
}

func (s *Server) categorizeTimeBlocks(c *gin.Context) {
	var req categorizeRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if len(req.IDs) == 0 {
		s.fail(c, badRequest("ids are required"))
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := parseUUID(raw, "id")
		if err != nil {
			s.fail(c, err)
			return
		}
		ids = append(ids, id)
	}

	var (
		quadrant *models.DripQuadrant
		energy   *models.EnergyRating
	)
	if req.Quadrant != nil {
		if !models.IsValidDripQuadrant(*req.Quadrant) {
			s.fail(c, badRequest("invalid quadrant %q", *req.Quadrant))
			return
		}
		q := models.DripQuadrant(*req.Quadrant)
		quadrant = &q
	}
	if req.Energy != nil {
		if !models.IsValidEnergyRating(*req.Energy) {
			s.fail(c, badRequest("invalid energy %q", *req.Energy))
			return
		}
		e := models.EnergyRating(*req.Energy)
		energy = &e
	}
	if quadrant == nil && energy == nil {
		s.fail(c, badRequest("quadrant or energy is required"))
		return
	}

	n, err := s.store.CategorizeTimeBlocks(c.Request.Context(), auth.UserID(c), ids, quadrant, energy)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) timeSummary(c *gin.Context) {
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
	summary, err := s.schedule.Summary(c.Request.Context(), auth.UserID(c), from, to, loc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) pushTimeBlock(c *gin.Context) {
	if s.calendar == nil {
		s.fail(c, errUnavailable)
		return
	}
	ctx := c.Request.Context()
	b, err := s.store.GetTimeBlock(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ev, err := s.calendar.Push(ctx, b)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) calendarAuthURL(c *gin.Context) {
	if s.calendar == nil {
		s.fail(c, errUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": s.calendar.AuthURL(c.Query("state"))})
}

type calendarConnectRequest struct {
	Code       string `json:"code" binding:"required"`
	CalendarID string `json:"calendar_id"`
}

func (s *Server) calendarConnect(c *gin.Context) {
	if s.calendar == nil {
		s.fail(c, errUnavailable)
		return
	}
	var req calendarConnectRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	conn, err := s.calendar.Connect(c.Request.Context(), auth.UserID(c), req.Code, req.CalendarID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (s *Server) calendarSync(c *gin.Context) {
	if s.calendar == nil {
		s.fail(c, errUnavailable)
		return
	}
	from, to, err := queryWindow(c, 4*week)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.calendar.Sync(c.Request.Context(), auth.UserID(c), from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) calendarDisconnect(c *gin.Context) {
	if s.calendar == nil {
		s.fail(c, errUnavailable)
		return
	}
	if err := s.calendar.Disconnect(c.Request.Context(), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
