// ABOUTME: DailyReview, Routine and LeverageItem models.
// ABOUTME: Reflection, repeatable habits, and leverage opportunities.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyReview is the end-of-day reflection. One per user per date.
type DailyReview struct {
	ID            uuid.UUID `json:"id" yaml:"id"`
	UserID        uuid.UUID `json:"user_id" yaml:"user_id"`
	ReviewDate    time.Time `json:"review_date" yaml:"review_date"`
	Wins          []string  `json:"wins" yaml:"wins"`
	Challenges    []string  `json:"challenges" yaml:"challenges"`
	TomorrowFocus *string   `json:"tomorrow_focus,omitempty" yaml:"tomorrow_focus,omitempty"`
	Gratitude     *string   `json:"gratitude,omitempty" yaml:"gratitude,omitempty"`
	EnergyLevel   *int      `json:"energy_level,omitempty" yaml:"energy_level,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewDailyReview creates an empty review for a date.
func NewDailyReview(userID uuid.UUID, day time.Time) *DailyReview {
	now := time.Now().UTC()
	return &DailyReview{
		ID:         uuid.New(),
		UserID:     userID,
		ReviewDate: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Wins:       []string{},
		Challenges: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithEnergy sets the energy level, clamped to 1-10.
func (r *DailyReview) WithEnergy(level int) *DailyReview {
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	r.EnergyLevel = &level
	return r
}

// Routine is a repeatable sequence of steps on a schedule.
type Routine struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	UserID      uuid.UUID `json:"user_id" yaml:"user_id"`
	Name        string    `json:"name" yaml:"name"`
	Description *string   `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []string  `json:"steps" yaml:"steps"`
	Recurrence  string    `json:"recurrence" yaml:"recurrence"`
	TimeOfDay   string    `json:"time_of_day" yaml:"time_of_day"`
	Active      bool      `json:"active" yaml:"active"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewRoutine creates an active daily routine at 07:00.
func NewRoutine(userID uuid.UUID, name string) *Routine {
	now := time.Now().UTC()
	return &Routine{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Steps:      []string{},
		Recurrence: "FREQ=DAILY",
		TimeOfDay:  "07:00",
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// LeverageType is one of the four kinds of leverage.
type LeverageType string

const (
	LeverageCode          LeverageType = "code"
	LeverageContent       LeverageType = "content"
	LeverageCapital       LeverageType = "capital"
	LeverageCollaboration LeverageType = "collaboration"
)

// IsValidLeverageType checks if a string is a valid leverage type.
func IsValidLeverageType(s string) bool {
	switch LeverageType(s) {
	case LeverageCode, LeverageContent, LeverageCapital, LeverageCollaboration:
		return true
	}
	return false
}

// LeverageItem is an opportunity to multiply output.
type LeverageItem struct {
	ID                uuid.UUID    `json:"id" yaml:"id"`
	UserID            uuid.UUID    `json:"user_id" yaml:"user_id"`
	Type              LeverageType `json:"type" yaml:"type"`
	Title             string       `json:"title" yaml:"title"`
	Description       *string      `json:"description,omitempty" yaml:"description,omitempty"`
	HoursSavedPerWeek float64      `json:"hours_saved_per_week" yaml:"hours_saved_per_week"`
	Status            string       `json:"status" yaml:"status"`
	CreatedAt         time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" yaml:"updated_at"`
}

// NewLeverageItem creates an item in the "idea" state.
func NewLeverageItem(userID uuid.UUID, typ LeverageType, title string) *LeverageItem {
	now := time.Now().UTC()
	return &LeverageItem{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Status:    "idea",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Feedback is a user-submitted bug report or suggestion.
type Feedback struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	UserID         uuid.UUID `json:"user_id" yaml:"user_id"`
	Category       string    `json:"category" yaml:"category"`
	Message        string    `json:"message" yaml:"message"`
	ScreenshotPath *string   `json:"screenshot_path,omitempty" yaml:"screenshot_path,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// NewFeedback creates a feedback entry; empty category becomes "general".
func NewFeedback(userID uuid.UUID, category, message string) *Feedback {
	if category == "" {
		category = "general"
	}
	return &Feedback{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
