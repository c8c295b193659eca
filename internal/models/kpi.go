// ABOUTME: KPI tree models: KPI nodes, logged values, and the cached progress row.
// ABOUTME: Progress rolls up from children to parents as a weighted average.
package models

import (
	"time"

	"github.com/google/uuid"
)

// KPILevel is the cadence a KPI is measured at.
type KPILevel string

const (
	KPIAnnual    KPILevel = "annual"
	KPIQuarterly KPILevel = "quarterly"
	KPIMonthly   KPILevel = "monthly"
	KPIWeekly    KPILevel = "weekly"
	KPIDaily     KPILevel = "daily"
)

// IsValidKPILevel checks if a string is a valid KPI level.
func IsValidKPILevel(s string) bool {
	switch KPILevel(s) {
	case KPIAnnual, KPIQuarterly, KPIMonthly, KPIWeekly, KPIDaily:
		return true
	}
	return false
}

// KPI is a node in a user's KPI tree.
type KPI struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	UserID      uuid.UUID  `json:"user_id" yaml:"user_id"`
	VisionID    *uuid.UUID `json:"vision_id,omitempty" yaml:"vision_id,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Title       string     `json:"title" yaml:"title"`
	Level       KPILevel   `json:"level" yaml:"level"`
	TargetValue float64    `json:"target_value" yaml:"target_value"`
	Unit        string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Weight      float64    `json:"weight" yaml:"weight"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewKPI creates a KPI with weight 1.
func NewKPI(userID uuid.UUID, title string, level KPILevel, target float64) *KPI {
	now := time.Now().UTC()
	return &KPI{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Level:       level,
		TargetValue: target,
		Weight:      1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithParent places the KPI beneath another KPI.
func (k *KPI) WithParent(parentID uuid.UUID) *KPI {
	k.ParentID = &parentID
	return k
}

// WithWeight sets the roll-up weight.
func (k *KPI) WithWeight(w float64) *KPI {
	k.Weight = w
	return k
}

// KPILog is one recorded value against a KPI.
type KPILog struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	KPIID     uuid.UUID `json:"kpi_id" yaml:"kpi_id"`
	UserID    uuid.UUID `json:"user_id" yaml:"user_id"`
	Value     float64   `json:"value" yaml:"value"`
	LoggedOn  time.Time `json:"logged_on" yaml:"logged_on"`
	Notes     *string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewKPILog creates a log entry for the given day.
func NewKPILog(userID, kpiID uuid.UUID, value float64, day time.Time) *KPILog {
	return &KPILog{
		ID:        uuid.New(),
		KPIID:     kpiID,
		UserID:    userID,
		Value:     value,
		LoggedOn:  time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}
}

// KPIProgress is the cached progress of a KPI node.
type KPIProgress struct {
	KPIID          uuid.UUID `json:"kpi_id" yaml:"kpi_id"`
	UserID         uuid.UUID `json:"user_id" yaml:"user_id"`
	Percent        float64   `json:"percent" yaml:"percent"`
	CurrentValue   float64   `json:"current_value" yaml:"current_value"`
	ChildCount     int       `json:"child_count" yaml:"child_count"`
	ManualOverride bool      `json:"manual_override" yaml:"manual_override"`
	OverrideNote   *string   `json:"override_note,omitempty" yaml:"override_note,omitempty"`
	CalculatedAt   time.Time `json:"calculated_at" yaml:"calculated_at"`
}

// KPINode is a KPI with its cached progress and children, for tree views.
type KPINode struct {
	KPI      *KPI         `json:"kpi"`
	Progress *KPIProgress `json:"progress,omitempty"`
	Children []*KPINode   `json:"children,omitempty"`
}
