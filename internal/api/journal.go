// ABOUTME: Handlers for routines, daily reviews, leverage items, progress, feedback and export.
// ABOUTME: Feedback screenshots are saved best-effort; a failed write never rejects the report.
package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/recurrence"
	"github.com/harperreed/goalpro/internal/storage"
)

// maxScreenshotBytes bounds an uploaded feedback screenshot.
const maxScreenshotBytes = 10 << 20

type routineRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Steps       []string `json:"steps"`
	Recurrence  string   `json:"recurrence"`
	TimeOfDay   string   `json:"time_of_day"`
}

func (s *Server) listRoutines(c *gin.Context) {
	routines, err := s.store.ListRoutines(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, routines)
}

func (s *Server) createRoutine(c *gin.Context) {
	var req routineRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.fail(c, badRequest("name is required"))
		return
	}
	r := models.NewRoutine(auth.UserID(c), req.Name)
	r.Description = req.Description
	if req.Steps != nil {
		r.Steps = req.Steps
	}
	if req.Recurrence != "" {
		r.Recurrence = recurrence.Parse(req.Recurrence).String()
	}
	if req.TimeOfDay != "" {
		if _, err := parseClock(req.TimeOfDay); err != nil {
			s.fail(c, err)
			return
		}
		r.TimeOfDay = req.TimeOfDay
	}
	if err := s.store.CreateRoutine(c.Request.Context(), r); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) deleteRoutine(c *gin.Context) {
	if err := s.store.DeleteRoutine(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listReviews(c *gin.Context) {
	reviews, err := s.store.ListDailyReviews(c.Request.Context(), auth.UserID(c), queryInt(c, "limit", 30))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (s *Server) getReview(c *gin.Context) {
	day, err := parseDate(c.Param("date"), "date")
	if err != nil {
		s.fail(c, err)
		return
	}
	r, err := s.store.GetDailyReview(c.Request.Context(), auth.UserID(c), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type reviewRequest struct {
	Wins          []string `json:"wins"`
	Challenges    []string `json:"challenges"`
	TomorrowFocus *string  `json:"tomorrow_focus"`
	Gratitude     *string  `json:"gratitude"`
	EnergyLevel   *int     `json:"energy_level"`
}

func (s *Server) putReview(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	day, err := parseDate(c.Param("date"), "date")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}

	_, err = s.store.GetDailyReview(ctx, userID, day)
	isNew := errors.Is(err, storage.ErrNotFound)
	if err != nil && !isNew {
		s.fail(c, err)
		return
	}

	r := models.NewDailyReview(userID, day)
	if req.Wins != nil {
		r.Wins = req.Wins
	}
	if req.Challenges != nil {
		r.Challenges = req.Challenges
	}
	r.TomorrowFocus = req.TomorrowFocus
	r.Gratitude = req.Gratitude
	if req.EnergyLevel != nil {
		r.WithEnergy(*req.EnergyLevel)
	}

	saved, err := s.store.UpsertDailyReview(ctx, r)
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusOK
	if isNew {
		s.award(c, models.ActionDailyReview)
		status = http.StatusCreated
	}
	c.JSON(status, saved)
}

type leverageRequest struct {
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Description       *string `json:"description"`
	HoursSavedPerWeek float64 `json:"hours_saved_per_week"`
	Status            string  `json:"status"`
}

func (s *Server) listLeverage(c *gin.Context) {
	items, err := s.store.ListLeverageItems(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) createLeverage(c *gin.Context) {
	var req leverageRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if !models.IsValidLeverageType(req.Type) {
		s.fail(c, badRequest("invalid type %q", req.Type))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(c, badRequest("title is required"))
		return
	}
	if req.HoursSavedPerWeek < 0 {
		s.fail(c, badRequest("hours_saved_per_week must not be negative"))
		return
	}
	item := models.NewLeverageItem(auth.UserID(c), models.LeverageType(req.Type), req.Title)
	item.Description = req.Description
	item.HoursSavedPerWeek = req.HoursSavedPerWeek
	if req.Status != "" {
		item.Status = req.Status
	}
	if err := s.store.CreateLeverageItem(c.Request.Context(), item); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) deleteLeverage(c *gin.Context) {
	if err := s.store.DeleteLeverageItem(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getProgress(c *gin.Context) {
	p, err := s.store.GetUserProgress(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress":      p,
		"next_level_xp": models.XPForLevel(p.Level + 1),
	})
}

func (s *Server) submitFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)
	message := strings.TrimSpace(c.PostForm("message"))
	if message == "" {
		s.fail(c, badRequest("message is required"))
		return
	}

	fb := models.NewFeedback(userID, c.PostForm("category"), message)
	if file, err := c.FormFile("screenshot"); err == nil {
		if path, err := s.saveScreenshot(c, fb, file); err != nil {
			s.logger.Warn("feedback screenshot not saved", "user_id", userID, "err", err)
		} else {
			fb.ScreenshotPath = &path
		}
	}

	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) saveScreenshot(c *gin.Context, fb *models.Feedback, file *multipart.FileHeader) (string, error) {
	if s.uploadDir == "" {
		return "", errors.New("no upload directory configured")
	}
	if file.Size > maxScreenshotBytes {
		return "", errors.New("screenshot too large")
	}
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(s.uploadDir, fb.ID.String()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) export(c *gin.Context) {
	data, err := s.store.GetAllData(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		out, err := data.JSON()
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json", out)
	case "yaml":
		out, err := data.YAML()
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/yaml", out)
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(data.Markdown()))
	default:
		s.fail(c, badRequest("unknown format %q, want json, yaml or markdown", format))
	}
}
