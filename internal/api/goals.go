// ABOUTME: Handlers for visions, power goals, targets and MINs.
// ABOUTME: Request bodies use pointer fields so PUT only changes what is sent.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

type visionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TargetDate  *string `json:"target_date"`
	Clarity     *int    `json:"clarity"`
	Belief      *int    `json:"belief"`
	Consistency *int    `json:"consistency"`
	ImagePath   *string `json:"image_path"`
}

func (r *visionRequest) apply(v *models.Vision) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return badRequest("title is required")
		}
		v.Title = *r.Title
	}
	if r.Description != nil {
		v.WithDescription(*r.Description)
	}
	if r.TargetDate != nil {
		d, err := parseDate(*r.TargetDate, "target_date")
		if err != nil {
			return err
		}
		v.WithTargetDate(d)
	}
	clarity, belief, consistency := v.Clarity, v.Belief, v.Consistency
	if r.Clarity != nil {
		clarity = *r.Clarity
	}
	if r.Belief != nil {
		belief = *r.Belief
	}
	if r.Consistency != nil {
		consistency = *r.Consistency
	}
	v.WithScores(clarity, belief, consistency)
	if r.ImagePath != nil {
		v.ImagePath = r.ImagePath
	}
	return nil
}

func (s *Server) listVisions(c *gin.Context) {
	visions, err := s.store.ListVisions(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, visions)
}

func (s *Server) createVision(c *gin.Context) {
	var req visionRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title == nil {
		s.fail(c, badRequest("title is required"))
		return
	}
	v := models.NewVision(auth.UserID(c), "")
	if err := req.apply(v); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.CreateVision(c.Request.Context(), v); err != nil {
		s.fail(c, err)
		return
	}
	s.award(c, models.ActionVisionCreated)
	c.JSON(http.StatusCreated, v)
}

func (s *Server) getVision(c *gin.Context) {
	v, err := s.store.GetVision(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) updateVision(c *gin.Context) {
	ctx := c.Request.Context()
	v, err := s.store.GetVision(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req visionRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := req.apply(v); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.UpdateVision(ctx, v); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) deleteVision(c *gin.Context) {
	if err := s.store.DeleteVision(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) visionScore(c *gin.Context) {
	v, err := s.store.GetVision(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v.Score())
}

type powerGoalRequest struct {
	VisionID    *string       `json:"vision_id"`
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	SMART       *models.SMART `json:"smart"`
	Quarter     *int          `json:"quarter"`
	Year        *int          `json:"year"`
	Status      *string       `json:"status"`
	Progress    *float64      `json:"progress"`
}

func (r *powerGoalRequest) apply(g *models.PowerGoal) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return badRequest("title is required")
		}
		g.Title = *r.Title
	}
	if r.VisionID != nil {
		id, err := optionalUUID(r.VisionID, "vision_id")
		if err != nil {
			return err
		}
		g.VisionID = id
	}
	if r.Description != nil {
		g.Description = r.Description
	}
	if r.SMART != nil {
		g.SMART = *r.SMART
	}
	if r.Quarter != nil || r.Year != nil {
		year, quarter := g.Year, g.Quarter
		if r.Year != nil {
			year = *r.Year
		}
		if r.Quarter != nil {
			quarter = *r.Quarter
		}
		g.WithQuarter(year, quarter)
	}
	if r.Status != nil {
		if !models.IsValidGoalStatus(*r.Status) {
			return badRequest("invalid status %q", *r.Status)
		}
		g.Status = models.GoalStatus(*r.Status)
	}
	if r.Progress != nil {
		p := *r.Progress
		if p < 0 || p > 100 {
			return badRequest("progress must be between 0 and 100")
		}
		g.Progress = p
	}
	return nil
}

func (s *Server) listPowerGoals(c *gin.Context) {
	var f storage.PowerGoalFilter
	if v := c.Query("vision_id"); v != "" {
		id, err := parseUUID(v, "vision_id")
		if err != nil {
			s.fail(c, err)
			return
		}
		f.VisionID = &id
	}
	if v := c.Query("status"); v != "" {
		if !models.IsValidGoalStatus(v) {
			s.fail(c, badRequest("invalid status %q", v))
			return
		}
		status := models.GoalStatus(v)
		f.Status = &status
	}
	f.Year = queryInt(c, "year", 0)

	goals, err := s.store.ListPowerGoals(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (s *Server) createPowerGoal(c *gin.Context) {
	var req powerGoalRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title == nil {
		s.fail(c, badRequest("title is required"))
		return
	}
	g := models.NewPowerGoal(auth.UserID(c), "")
	if err := req.apply(g); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ownedRefs(c.Request.Context(), g.UserID, g.VisionID, nil); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.CreatePowerGoal(c.Request.Context(), g); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) getPowerGoal(c *gin.Context) {
	g, err := s.store.GetPowerGoal(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) updatePowerGoal(c *gin.Context) {
	ctx := c.Request.Context()
	g, err := s.store.GetPowerGoal(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req powerGoalRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	wasCompleted := g.Status == models.GoalCompleted
	if err := req.apply(g); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ownedRefs(ctx, g.UserID, g.VisionID, nil); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.UpdatePowerGoal(ctx, g); err != nil {
		s.fail(c, err)
		return
	}
	if !wasCompleted && g.Status == models.GoalCompleted {
		s.award(c, models.ActionPowerGoalCompleted)
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) deletePowerGoal(c *gin.Context) {
	if err := s.store.DeletePowerGoal(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type targetRequest struct {
	PowerGoalID *string `json:"power_goal_id"`
	Level       *string `json:"level"`
	Title       *string `json:"title"`
	Date        *string `json:"date"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) listTargets(c *gin.Context) {
	var (
		goalID *uuid.UUID
		level  *models.TargetLevel
	)
	if v := c.Query("power_goal_id"); v != "" {
		id, err := parseUUID(v, "power_goal_id")
		if err != nil {
			s.fail(c, err)
			return
		}
		goalID = &id
	}
	if v := c.Query("level"); v != "" {
		if !models.IsValidTargetLevel(v) {
			s.fail(c, badRequest("invalid level %q", v))
			return
		}
		l := models.TargetLevel(v)
		level = &l
	}
	targets, err := s.store.ListTargets(c.Request.Context(), auth.UserID(c), goalID, level)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

func (s *Server) createTarget(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	var req targetRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" || req.PowerGoalID == nil || req.Level == nil {
		s.fail(c, badRequest("power_goal_id, level and title are required"))
		return
	}
	if !models.IsValidTargetLevel(*req.Level) {
		s.fail(c, badRequest("invalid level %q", *req.Level))
		return
	}
	goal, err := s.store.GetPowerGoal(ctx, userID, *req.PowerGoalID)
	if err != nil {
		s.fail(c, err)
		return
	}
	day := time.Now().UTC()
	if req.Date != nil {
		if day, err = parseDate(*req.Date, "date"); err != nil {
			s.fail(c, err)
			return
		}
	}

	t := models.NewTarget(userID, goal.ID, models.TargetLevel(*req.Level), *req.Title, day)
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if err := s.store.CreateTarget(ctx, t); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTarget(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := s.store.GetTarget(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req targetRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			s.fail(c, badRequest("title is required"))
			return
		}
		t.Title = *req.Title
	}
	if req.Level != nil {
		if !models.IsValidTargetLevel(*req.Level) {
			s.fail(c, badRequest("invalid level %q", *req.Level))
			return
		}
		t.Level = models.TargetLevel(*req.Level)
		t.PeriodStart, t.PeriodEnd = models.PeriodBounds(t.Level, t.PeriodStart)
	}
	if req.Date != nil {
		day, err := parseDate(*req.Date, "date")
		if err != nil {
			s.fail(c, err)
			return
		}
		t.PeriodStart, t.PeriodEnd = models.PeriodBounds(t.Level, day)
	}
	wasCompleted := t.Completed
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if err := s.store.UpdateTarget(ctx, t); err != nil {
		s.fail(c, err)
		return
	}
	if !wasCompleted && t.Completed {
		s.award(c, models.ActionTargetCompleted)
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTarget(c *gin.Context) {
	if err := s.store.DeleteTarget(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type minRequest struct {
	Title           *string `json:"title"`
	PowerGoalID     *string `json:"power_goal_id"`
	DueDate         *string `json:"due_date"`
	Priority        *int    `json:"priority"`
	DurationMinutes *int    `json:"duration_minutes"`
}

func (r *minRequest) apply(m *models.MIN) error {
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			return badRequest("title is required")
		}
		m.Title = *r.Title
	}
	if r.PowerGoalID != nil {
		id, err := optionalUUID(r.PowerGoalID, "power_goal_id")
		if err != nil {
			return err
		}
		m.PowerGoalID = id
	}
	if r.DueDate != nil {
		d, err := parseDate(*r.DueDate, "due_date")
		if err != nil {
			return err
		}
		m.DueDate = d
	}
	if r.Priority != nil {
		m.WithPriority(*r.Priority)
	}
	if r.DurationMinutes != nil {
		if *r.DurationMinutes < 0 {
			return badRequest("duration_minutes must not be negative")
		}
		m.WithDuration(*r.DurationMinutes)
	}
	return nil
}

func (s *Server) listMINs(c *gin.Context) {
	f := storage.MINFilter{
		IncludeCompleted: c.Query("include_completed") == "true",
		Limit:            queryInt(c, "limit", 0),
	}
	if v := c.Query("due"); v != "" {
		d, err := parseDate(v, "due")
		if err != nil {
			s.fail(c, err)
			return
		}
		f.Due = &d
	}
	mins, err := s.store.ListMINs(c.Request.Context(), auth.UserID(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mins)
}

func (s *Server) createMIN(c *gin.Context) {
	var req minRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Title == nil {
		s.fail(c, badRequest("title is required"))
		return
	}
	m := models.NewMIN(auth.UserID(c), "", time.Now().UTC())
	if err := req.apply(m); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ownedRefs(c.Request.Context(), m.UserID, nil, m.PowerGoalID); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.CreateMIN(c.Request.Context(), m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (s *Server) updateMIN(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := s.store.GetMIN(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req minRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := req.apply(m); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ownedRefs(ctx, m.UserID, nil, m.PowerGoalID); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.UpdateMIN(ctx, m); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) deleteMIN(c *gin.Context) {
	if err := s.store.DeleteMIN(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) completeMIN(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := s.store.GetMIN(ctx, auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if m.Completed {
		c.JSON(http.StatusOK, m)
		return
	}
	m.Complete(time.Now().UTC())
	if err := s.store.UpdateMIN(ctx, m); err != nil {
		s.fail(c, err)
		return
	}
	s.award(c, models.ActionMINCompleted)
	c.JSON(http.StatusOK, m)
}

// ownedRefs rejects links to a vision or power goal that the user does not own.
func (s *Server) ownedRefs(ctx context.Context, userID uuid.UUID, visionID, powerGoalID *uuid.UUID) error {
	if visionID != nil {
		if _, err := s.store.GetVision(ctx, userID, visionID.String()); err != nil {
			return err
		}
	}
	if powerGoalID != nil {
		if _, err := s.store.GetPowerGoal(ctx, userID, powerGoalID.String()); err != nil {
			return err
		}
	}
	return nil
}
