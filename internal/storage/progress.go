// ABOUTME: Gamification progress storage.
// ABOUTME: A user with no row yet is reported as fresh level-1 progress.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

// GetUserProgress returns a user's XP, level and streaks.
func (d *DB) GetUserProgress(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error) {
	var (
		p          models.UserProgress
		uid        string
		lastActive sql.NullString
		updatedAt  string
	)
	err := d.queryRow(ctx, `
		SELECT user_id, total_xp, level, current_streak, longest_streak, last_active_on, updated_at
		FROM user_progress
		WHERE user_id = ?`,
		userID.String()).
		Scan(&uid, &p.TotalXP, &p.Level, &p.CurrentStreak, &p.LongestStreak, &lastActive, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewUserProgress(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user progress: %w", err)
	}
	p.UserID, _ = uuid.Parse(uid)
	p.LastActiveOn = datePtr(lastActive)
	p.UpdatedAt = parseTS(updatedAt)
	return &p, nil
}

// SaveUserProgress writes a user's progress.
func (d *DB) SaveUserProgress(ctx context.Context, p *models.UserProgress) error {
	_, err := d.exec(ctx, `
		INSERT INTO user_progress (user_id, total_xp, level, current_streak, longest_streak, last_active_on, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_xp = excluded.total_xp,
			level = excluded.level,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_active_on = excluded.last_active_on,
			updated_at = excluded.updated_at`,
		p.UserID.String(),
		p.TotalXP,
		p.Level,
		p.CurrentStreak,
		p.LongestStreak,
		nullDate(p.LastActiveOn),
		formatTS(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user progress: %w", err)
	}
	return nil
}
