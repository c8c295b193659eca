// ABOUTME: Awards XP for user actions and maintains levels and daily streaks.
// ABOUTME: Streaks count consecutive calendar days with at least one award.
package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

// Store is the subset of storage used for progress.
type Store interface {
	GetUserProgress(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error)
	SaveUserProgress(ctx context.Context, p *models.UserProgress) error
}

// Service awards XP.
type Service struct {
	store Store
}

// NewService creates a gamification service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Award adds the XP for action at time at and updates level and streak.
func (s *Service) Award(ctx context.Context, userID uuid.UUID, action models.Action, at time.Time) (*models.UserProgress, error) {
	xp, ok := models.ActionXP[action]
	if !ok {
		return nil, fmt.Errorf("award xp: unknown action %q", action)
	}

	p, err := s.store.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}
	Apply(p, xp, at)
	if err := s.store.SaveUserProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}
	return p, nil
}

// Apply adds xp to p as of at: the level is recomputed and the streak is
// unchanged on the same day, extended on the next day and reset otherwise.
func Apply(p *models.UserProgress, xp int, at time.Time) {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)

	p.TotalXP += xp
	p.Level = models.LevelForXP(p.TotalXP)

	switch {
	case p.LastActiveOn == nil:
		p.CurrentStreak = 1
	case sameDay(*p.LastActiveOn, day):
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
	case sameDay(p.LastActiveOn.AddDate(0, 0, 1), day):
		p.CurrentStreak++
	case day.Before(*p.LastActiveOn):
		// Late award for an earlier day leaves the streak alone.
		finish(p, *p.LastActiveOn)
		return
	default:
		p.CurrentStreak = 1
	}
	finish(p, day)
}

func finish(p *models.UserProgress, day time.Time) {
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	p.LastActiveOn = &day
	p.UpdatedAt = time.Now().UTC()
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
