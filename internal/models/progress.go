// ABOUTME: Gamification model: XP, levels and daily activity streaks.
// ABOUTME: Defines the XP awarded for each tracked action.
package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Action is a user activity that earns XP.
type Action string

const (
	ActionMINCompleted       Action = "min_completed"
	ActionTimeBlockLogged    Action = "time_block_logged"
	ActionDailyReview        Action = "daily_review"
	ActionTargetCompleted    Action = "target_completed"
	ActionPowerGoalCompleted Action = "power_goal_completed"
	ActionKPILogged          Action = "kpi_logged"
	ActionVisionCreated      Action = "vision_created"
)

// ActionXP maps actions to the XP they award.
var ActionXP = map[Action]int{
	ActionMINCompleted:       10,
	ActionTimeBlockLogged:    5,
	ActionDailyReview:        25,
	ActionTargetCompleted:    20,
	ActionPowerGoalCompleted: 100,
	ActionKPILogged:          5,
	ActionVisionCreated:      50,
}

// UserProgress is a user's gamification state.
type UserProgress struct {
	UserID        uuid.UUID  `json:"user_id" yaml:"user_id"`
	TotalXP       int        `json:"total_xp" yaml:"total_xp"`
	Level         int        `json:"level" yaml:"level"`
	CurrentStreak int        `json:"current_streak" yaml:"current_streak"`
	LongestStreak int        `json:"longest_streak" yaml:"longest_streak"`
	LastActiveOn  *time.Time `json:"last_active_on,omitempty" yaml:"last_active_on,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewUserProgress returns level-1 progress with no XP.
func NewUserProgress(userID uuid.UUID) *UserProgress {
	return &UserProgress{UserID: userID, Level: 1, UpdatedAt: time.Now().UTC()}
}

// LevelForXP returns floor(sqrt(xp/100)) + 1.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/100))) + 1
}

// XPForLevel returns the XP needed to reach a level.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * 100
}
