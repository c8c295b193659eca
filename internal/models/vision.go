// ABOUTME: Vision model and the 300% Rule score.
// ABOUTME: A vision is the long-range outcome that power goals roll up to.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Vision represents a long-range outcome the user is working towards.
type Vision struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	UserID      uuid.UUID  `json:"user_id" yaml:"user_id"`
	Title       string     `json:"title" yaml:"title"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty" yaml:"target_date,omitempty"`
	Clarity     int        `json:"clarity" yaml:"clarity"`
	Belief      int        `json:"belief" yaml:"belief"`
	Consistency int        `json:"consistency" yaml:"consistency"`
	ImagePath   *string    `json:"image_path,omitempty" yaml:"image_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewVision creates a new Vision with generated UUID and current timestamps.
func NewVision(userID uuid.UUID, title string) *Vision {
	now := time.Now().UTC()
	return &Vision{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithDescription sets the vision description.
func (v *Vision) WithDescription(desc string) *Vision {
	v.Description = &desc
	return v
}

// WithTargetDate sets the date the vision should be realised by.
func (v *Vision) WithTargetDate(t time.Time) *Vision {
	v.TargetDate = &t
	return v
}

// WithScores sets clarity, belief and consistency, each clamped to 0-100.
func (v *Vision) WithScores(clarity, belief, consistency int) *Vision {
	v.Clarity = clampPercent(clarity)
	v.Belief = clampPercent(belief)
	v.Consistency = clampPercent(consistency)
	return v
}

// RuleScore is the 300% Rule breakdown for a vision.
type RuleScore struct {
	Clarity     int     `json:"clarity"`
	Belief      int     `json:"belief"`
	Consistency int     `json:"consistency"`
	Total       int     `json:"total"`
	Percent     float64 `json:"percent"`
}

// Score computes the 300% Rule: clarity + belief + consistency out of 300.
func (v *Vision) Score() RuleScore {
	c, b, s := clampPercent(v.Clarity), clampPercent(v.Belief), clampPercent(v.Consistency)
	total := c + b + s
	return RuleScore{
		Clarity:     c,
		Belief:      b,
		Consistency: s,
		Total:       total,
		Percent:     float64(total) / 300 * 100,
	}
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
