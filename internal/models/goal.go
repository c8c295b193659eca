// ABOUTME: PowerGoal, Target and MIN models for the planning cascade.
// ABOUTME: Visions break into power goals, which break into monthly/weekly/daily targets and MINs.
package models

import (
	"time"

	"github.com/google/uuid"
)

// GoalStatus is the lifecycle state of a power goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

// IsValidGoalStatus checks if a string is a valid goal status.
func IsValidGoalStatus(s string) bool {
	switch GoalStatus(s) {
	case GoalActive, GoalCompleted, GoalArchived:
		return true
	}
	return false
}

// SMART holds the five SMART criteria for a power goal.
type SMART struct {
	Specific   string `json:"specific,omitempty" yaml:"specific,omitempty"`
	Measurable string `json:"measurable,omitempty" yaml:"measurable,omitempty"`
	Achievable string `json:"achievable,omitempty" yaml:"achievable,omitempty"`
	Relevant   string `json:"relevant,omitempty" yaml:"relevant,omitempty"`
	TimeBound  string `json:"time_bound,omitempty" yaml:"time_bound,omitempty"`
}

// PowerGoal is a quarterly or annual objective linked to a vision.
type PowerGoal struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	UserID      uuid.UUID  `json:"user_id" yaml:"user_id"`
	VisionID    *uuid.UUID `json:"vision_id,omitempty" yaml:"vision_id,omitempty"`
	Title       string     `json:"title" yaml:"title"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	SMART       SMART      `json:"smart" yaml:"smart"`
	Quarter     int        `json:"quarter,omitempty" yaml:"quarter,omitempty"`
	Year        int        `json:"year" yaml:"year"`
	Status      GoalStatus `json:"status" yaml:"status"`
	Progress    float64    `json:"progress" yaml:"progress"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewPowerGoal creates an active power goal for the current year.
func NewPowerGoal(userID uuid.UUID, title string) *PowerGoal {
	now := time.Now().UTC()
	return &PowerGoal{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Year:      now.Year(),
		Status:    GoalActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithVision links the goal to a vision.
func (g *PowerGoal) WithVision(visionID uuid.UUID) *PowerGoal {
	g.VisionID = &visionID
	return g
}

// WithQuarter scopes the goal to a quarter (1-4) of a year. Out-of-range
// quarters make it an annual goal.
func (g *PowerGoal) WithQuarter(year, quarter int) *PowerGoal {
	g.Year = year
	if quarter < 1 || quarter > 4 {
		quarter = 0
	}
	g.Quarter = quarter
	return g
}

// TargetLevel is the cadence of a target.
type TargetLevel string

const (
	TargetMonthly TargetLevel = "monthly"
	TargetWeekly  TargetLevel = "weekly"
	TargetDaily   TargetLevel = "daily"
)

// IsValidTargetLevel checks if a string is a valid target level.
func IsValidTargetLevel(s string) bool {
	switch TargetLevel(s) {
	case TargetMonthly, TargetWeekly, TargetDaily:
		return true
	}
	return false
}

// Target is a monthly, weekly or daily milestone beneath a power goal.
type Target struct {
	ID          uuid.UUID   `json:"id" yaml:"id"`
	UserID      uuid.UUID   `json:"user_id" yaml:"user_id"`
	PowerGoalID uuid.UUID   `json:"power_goal_id" yaml:"power_goal_id"`
	Level       TargetLevel `json:"level" yaml:"level"`
	Title       string      `json:"title" yaml:"title"`
	PeriodStart time.Time   `json:"period_start" yaml:"period_start"`
	PeriodEnd   time.Time   `json:"period_end" yaml:"period_end"`
	Completed   bool        `json:"completed" yaml:"completed"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" yaml:"updated_at"`
}

// NewTarget creates a target whose period is derived from level and the given day.
func NewTarget(userID, powerGoalID uuid.UUID, level TargetLevel, title string, day time.Time) *Target {
	now := time.Now().UTC()
	start, end := PeriodBounds(level, day)
	return &Target{
		ID:          uuid.New(),
		UserID:      userID,
		PowerGoalID: powerGoalID,
		Level:       level,
		Title:       title,
		PeriodStart: start,
		PeriodEnd:   end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PeriodBounds returns the first and last calendar day of the period at the
// given level that contains day. Weeks start on Monday.
func PeriodBounds(level TargetLevel, day time.Time) (time.Time, time.Time) {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	switch level {
	case TargetMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	case TargetWeekly:
		offset := (int(d.Weekday()) + 6) % 7
		start := d.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6)
	default:
		return d, d
	}
}

// MIN is a "Most Important Next step": a prioritised daily task.
type MIN struct {
	ID              uuid.UUID  `json:"id" yaml:"id"`
	UserID          uuid.UUID  `json:"user_id" yaml:"user_id"`
	PowerGoalID     *uuid.UUID `json:"power_goal_id,omitempty" yaml:"power_goal_id,omitempty"`
	Title           string     `json:"title" yaml:"title"`
	DueDate         time.Time  `json:"due_date" yaml:"due_date"`
	Priority        int        `json:"priority" yaml:"priority"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	Completed       bool       `json:"completed" yaml:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewMIN creates a priority-1 MIN due on the given day.
func NewMIN(userID uuid.UUID, title string, due time.Time) *MIN {
	now := time.Now().UTC()
	return &MIN{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		DueDate:   time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
		Priority:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithPriority sets the priority, clamped to 1 (highest) through 3.
func (m *MIN) WithPriority(p int) *MIN {
	if p < 1 {
		p = 1
	}
	if p > 3 {
		p = 3
	}
	m.Priority = p
	return m
}

// WithDuration sets the expected duration in minutes.
func (m *MIN) WithDuration(minutes int) *MIN {
	m.DurationMinutes = &minutes
	return m
}

// Complete marks the MIN done at t.
func (m *MIN) Complete(t time.Time) {
	m.Completed = true
	m.CompletedAt = &t
	m.UpdatedAt = t
}
