// ABOUTME: TimeBlock model with DRIP quadrant and energy rating categorisation.
// ABOUTME: Time blocks may carry an RRULE and expand into concrete occurrences.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DripQuadrant classifies an activity by the DRIP matrix.
type DripQuadrant string

const (
	DripDelegation  DripQuadrant = "delegation"
	DripReplacement DripQuadrant = "replacement"
	DripInvestment  DripQuadrant = "investment"
	DripProduction  DripQuadrant = "production"
)

// AllDripQuadrants lists the quadrants in display order.
var AllDripQuadrants = []DripQuadrant{DripDelegation, DripReplacement, DripInvestment, DripProduction}

// IsValidDripQuadrant checks if a string is a valid DRIP quadrant.
func IsValidDripQuadrant(s string) bool {
	for _, q := range AllDripQuadrants {
		if string(q) == s {
			return true
		}
	}
	return false
}

// EnergyRating records how an activity affected the user's energy.
type EnergyRating string

const (
	EnergyEnergizing EnergyRating = "energizing"
	EnergyNeutral    EnergyRating = "neutral"
	EnergyDraining   EnergyRating = "draining"
)

// IsValidEnergyRating checks if a string is a valid energy rating.
func IsValidEnergyRating(s string) bool {
	switch EnergyRating(s) {
	case EnergyEnergizing, EnergyNeutral, EnergyDraining:
		return true
	}
	return false
}

// TimeBlock is a tracked span of time, optionally recurring.
type TimeBlock struct {
	ID              uuid.UUID     `json:"id" yaml:"id"`
	UserID          uuid.UUID     `json:"user_id" yaml:"user_id"`
	Title           string        `json:"title" yaml:"title"`
	StartsAt        time.Time     `json:"starts_at" yaml:"starts_at"`
	EndsAt          time.Time     `json:"ends_at" yaml:"ends_at"`
	Quadrant        *DripQuadrant `json:"quadrant,omitempty" yaml:"quadrant,omitempty"`
	Energy          *EnergyRating `json:"energy,omitempty" yaml:"energy,omitempty"`
	Recurrence      *string       `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
	ExternalEventID *string       `json:"external_event_id,omitempty" yaml:"external_event_id,omitempty"`
	Notes           *string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" yaml:"updated_at"`
}

// NewTimeBlock creates a time block spanning [start, end).
func NewTimeBlock(userID uuid.UUID, title string, start, end time.Time) *TimeBlock {
	now := time.Now().UTC()
	return &TimeBlock{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		StartsAt:  start,
		EndsAt:    end,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithQuadrant sets the DRIP quadrant.
func (b *TimeBlock) WithQuadrant(q DripQuadrant) *TimeBlock {
	b.Quadrant = &q
	return b
}

// WithEnergy sets the energy rating.
func (b *TimeBlock) WithEnergy(e EnergyRating) *TimeBlock {
	b.Energy = &e
	return b
}

// WithRecurrence attaches an RRULE string.
func (b *TimeBlock) WithRecurrence(rule string) *TimeBlock {
	b.Recurrence = &rule
	return b
}

// Duration returns the length of the block; negative spans count as zero.
func (b *TimeBlock) Duration() time.Duration {
	if b.EndsAt.Before(b.StartsAt) {
		return 0
	}
	return b.EndsAt.Sub(b.StartsAt)
}

// Occurrence is one concrete instance of a (possibly recurring) time block.
type Occurrence struct {
	BlockID   uuid.UUID     `json:"block_id"`
	Title     string        `json:"title"`
	StartsAt  time.Time     `json:"starts_at"`
	EndsAt    time.Time     `json:"ends_at"`
	Quadrant  *DripQuadrant `json:"quadrant,omitempty"`
	Energy    *EnergyRating `json:"energy,omitempty"`
	Recurring bool          `json:"recurring"`
}

// DripSummary is the minutes spent per quadrant in a window.
type DripSummary struct {
	From          time.Time                `json:"from"`
	To            time.Time                `json:"to"`
	Minutes       map[DripQuadrant]int     `json:"minutes"`
	EnergyMinutes map[EnergyRating]int     `json:"energy_minutes"`
	Uncategorized int                      `json:"uncategorized_minutes"`
	TotalMinutes  int                      `json:"total_minutes"`
	Percent       map[DripQuadrant]float64 `json:"percent"`
}

// Summarize buckets occurrences by quadrant and energy rating.
func Summarize(from, to time.Time, occs []Occurrence) DripSummary {
	s := DripSummary{
		From:          from,
		To:            to,
		Minutes:       make(map[DripQuadrant]int),
		EnergyMinutes: make(map[EnergyRating]int),
		Percent:       make(map[DripQuadrant]float64),
	}
	for _, o := range occs {
		mins := int(o.EndsAt.Sub(o.StartsAt).Minutes())
		if mins <= 0 {
			continue
		}
		s.TotalMinutes += mins
		if o.Quadrant == nil {
			s.Uncategorized += mins
		} else {
			s.Minutes[*o.Quadrant] += mins
		}
		if o.Energy != nil {
			s.EnergyMinutes[*o.Energy] += mins
		}
	}
	if s.TotalMinutes > 0 {
		for q, m := range s.Minutes {
			s.Percent[q] = float64(m) / float64(s.TotalMinutes) * 100
		}
	}
	return s
}
