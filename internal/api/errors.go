// ABOUTME: Maps domain errors to HTTP responses and parses common request values.
// ABOUTME: Server-side errors are logged in full; clients get a short message.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/ai"
	"github.com/harperreed/goalpro/internal/auth"
	"github.com/harperreed/goalpro/internal/billing"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/sharing"
	"github.com/harperreed/goalpro/internal/storage"
)

// errBadRequest marks validation failures raised by handlers.
var errBadRequest = errors.New("bad request")

// errUnavailable marks integrations that are not configured.
var errUnavailable = errors.New("not configured")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrAmbiguousPrefix),
		errors.Is(err, billing.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, sharing.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ai.ErrUsageLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, ai.ErrNoJSON):
		return http.StatusBadGateway
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. 5xx details stay in the log.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(),
			"request_id", c.GetString(requestIDKey), "err", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bind decodes the JSON body into v.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return badRequest("invalid body: %v", err)
	}
	return nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", what)
	}
	return id, nil
}

func optionalUUID(s *string, what string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := parseUUID(*s, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(s, what string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, badRequest("invalid %s, want YYYY-MM-DD", what)
	}
	return d, nil
}

// queryWindow reads from/to (RFC 3339 or dates) with a default span
// starting at the current day.
func queryWindow(c *gin.Context, defaultSpan time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if v := c.Query("from"); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest("invalid from")
		}
		from = t
	}
	to := from.Add(defaultSpan)
	if v := c.Query("to"); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest("invalid to")
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, badRequest("to must be after from")
	}
	return from, to, nil
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(models.DateLayout, s)
}

// queryLocation reads the tz query parameter, falling back to def.
func queryLocation(c *gin.Context, def *time.Location) (*time.Location, error) {
	name := c.Query("tz")
	if name == "" {
		return def, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, badRequest("unknown time zone %q", name)
	}
	return loc, nil
}

// parseClock validates an HH:MM time of day.
func parseClock(s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, badRequest("invalid time of day %q, want HH:MM", s)
	}
	return t, nil
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
