// ABOUTME: Handlers for the KPI tree: nodes, logged values, overrides and recalculation.
// ABOUTME: Progress changes go through the kpi service so ancestors stay current.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/models"
)

type kpiRequest struct {
	Title       string   `json:"title"`
	Level       string   `json:"level"`
	TargetValue float64  `json:"target_value"`
	Unit        string   `json:"unit"`
	Weight      *float64 `json:"weight"`
	ParentID    *string  `json:"parent_id"`
	VisionID    *string  `json:"vision_id"`
}

type kpiView struct {
	*models.KPI
	Progress *models.KPIProgress `json:"progress,omitempty"`
}

func (s *Server) listKPIs(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	kpis, err := s.store.ListKPIs(ctx, userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]kpiView, 0, len(kpis))
	for _, k := range kpis {
		p, err := s.store.GetKPIProgress(ctx, userID, k.ID)
		if err != nil {
			p = nil
		}
		out = append(out, kpiView{KPI: k, Progress: p})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	var req kpiRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(c, badRequest("title is required"))
		return
	}
	if !models.IsValidKPILevel(req.Level) {
		s.fail(c, badRequest("invalid level %q", req.Level))
		return
	}
	if req.TargetValue < 0 {
		s.fail(c, badRequest("target_value must not be negative"))
		return
	}

	k := models.NewKPI(userID, req.Title, models.KPILevel(req.Level), req.TargetValue)
	k.Unit = req.Unit
	if req.Weight != nil {
		k.WithWeight(*req.Weight)
	}
	if req.ParentID != nil && *req.ParentID != "" {
		parent, err := s.store.GetKPI(ctx, userID, *req.ParentID)
		if err != nil {
			s.fail(c, err)
			return
		}
		k.WithParent(parent.ID)
	}
	visionID, err := optionalUUID(req.VisionID, "vision_id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.ownedRefs(ctx, userID, visionID, nil); err != nil {
		s.fail(c, err)
		return
	}
	k.VisionID = visionID

	if err := s.store.CreateKPI(ctx, k); err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.kpis.Recalculate(ctx, userID, k.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, kpiView{KPI: k, Progress: p})
}

func (s *Server) getKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.store.GetKPIProgress(ctx, userID, k.ID)
	if err != nil {
		p = nil
	}
	c.JSON(http.StatusOK, kpiView{KPI: k, Progress: p})
}

func (s *Server) deleteKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.DeleteKPI(ctx, userID, k.ID.String()); err != nil {
		s.fail(c, err)
		return
	}
	if k.ParentID != nil {
		if _, err := s.kpis.Recalculate(ctx, userID, *k.ParentID); err != nil {
			s.logger.Warn("recalculate parent after delete failed", "kpi", k.ParentID, "err", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) kpiTree(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	tree, err := s.kpis.Tree(ctx, userID, k.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

type kpiLogRequest struct {
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
	Notes string   `json:"notes"`
}

func (s *Server) logKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req kpiLogRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Value == nil {
		s.fail(c, badRequest("value is required"))
		return
	}
	var day time.Time
	if req.Date != "" {
		if day, err = parseDate(req.Date, "date"); err != nil {
			s.fail(c, err)
			return
		}
	}

	entry, p, err := s.kpis.LogValue(ctx, userID, k.ID, *req.Value, day, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.award(c, models.ActionKPILogged)
	c.JSON(http.StatusCreated, gin.H{"log": entry, "progress": p})
}

type overrideRequest struct {
	Percent *float64 `json:"percent"`
	Note    string   `json:"note"`
}

func (s *Server) overrideKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req overrideRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if req.Percent == nil {
		s.fail(c, badRequest("percent is required"))
		return
	}
	p, err := s.kpis.SetOverride(ctx, userID, k.ID, *req.Percent, req.Note)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) clearKPIOverride(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.kpis.ClearOverride(ctx, userID, k.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) recalculateKPI(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	k, err := s.store.GetKPI(ctx, userID, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.kpis.Recalculate(ctx, userID, k.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
