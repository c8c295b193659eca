// ABOUTME: Tests for XP awards, levels and streak tracking.
// ABOUTME: Streak rules run on plain structs; Award runs against a temp SQLite database.
package gamification

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "goalpro-gamification-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := storage.Open(filepath.Join(tmpDir, "goalpro.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestApplyStreaks(t *testing.T) {
	p := models.NewUserProgress(uuid.New())

	steps := []struct {
		when            time.Time
		current, oldest int
	}{
		{at(2026, 3, 1, 9), 1, 1},
		{at(2026, 3, 1, 22), 1, 1},
		{at(2026, 3, 2, 7), 2, 2},
		{at(2026, 3, 3, 7), 3, 3},
		{at(2026, 3, 5, 7), 1, 3},
		{at(2026, 3, 6, 7), 2, 3},
	}
	for i, s := range steps {
		Apply(p, 10, s.when)
		if p.CurrentStreak != s.current || p.LongestStreak != s.oldest {
			t.Errorf("step %d: streak = %d (longest %d), want %d (longest %d)",
				i, p.CurrentStreak, p.LongestStreak, s.current, s.oldest)
		}
	}
	if p.TotalXP != 60 {
		t.Errorf("TotalXP = %d, want 60", p.TotalXP)
	}
	want := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if p.LastActiveOn == nil || !p.LastActiveOn.Equal(want) {
		t.Errorf("LastActiveOn = %v, want %v", p.LastActiveOn, want)
	}
}

func TestApplyAcrossYearBoundary(t *testing.T) {
	p := models.NewUserProgress(uuid.New())
	Apply(p, 5, at(2025, 12, 31, 20))
	Apply(p, 5, at(2026, 1, 1, 8))
	if p.CurrentStreak != 2 {
		t.Errorf("streak = %d, want 2", p.CurrentStreak)
	}
}

func TestApplyEarlierDayKeepsStreak(t *testing.T) {
	p := models.NewUserProgress(uuid.New())
	Apply(p, 5, at(2026, 3, 10, 8))
	Apply(p, 5, at(2026, 3, 11, 8))
	Apply(p, 5, at(2026, 3, 4, 8))
	if p.CurrentStreak != 2 {
		t.Errorf("streak = %d, want 2", p.CurrentStreak)
	}
	if !p.LastActiveOn.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastActiveOn moved back to %v", p.LastActiveOn)
	}
	if p.TotalXP != 15 {
		t.Errorf("TotalXP = %d, want 15", p.TotalXP)
	}
}

func TestAwardLevelsUp(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	svc := NewService(db)

	p, err := svc.Award(ctx, user, models.ActionPowerGoalCompleted, at(2026, 3, 1, 9))
	if err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if p.TotalXP != 100 || p.Level != 2 {
		t.Errorf("after goal: xp %d level %d, want 100 level 2", p.TotalXP, p.Level)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Award(ctx, user, models.ActionPowerGoalCompleted, at(2026, 3, 2, 9)); err != nil {
			t.Fatalf("Award failed: %v", err)
		}
	}

	stored, err := db.GetUserProgress(ctx, user)
	if err != nil {
		t.Fatalf("GetUserProgress failed: %v", err)
	}
	if stored.TotalXP != 400 || stored.Level != 3 {
		t.Errorf("stored: xp %d level %d, want 400 level 3", stored.TotalXP, stored.Level)
	}
	if stored.CurrentStreak != 2 || stored.LongestStreak != 2 {
		t.Errorf("stored streak = %d/%d, want 2/2", stored.CurrentStreak, stored.LongestStreak)
	}
}

func TestAwardXPTable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	for action, xp := range models.ActionXP {
		p, err := svc.Award(ctx, uuid.New(), action, at(2026, 3, 1, 9))
		if err != nil {
			t.Fatalf("Award(%s) failed: %v", action, err)
		}
		if p.TotalXP != xp {
			t.Errorf("Award(%s) xp = %d, want %d", action, p.TotalXP, xp)
		}
	}
}

func TestAwardUnknownAction(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewService(db).Award(context.Background(), uuid.New(), "teleport", time.Now()); err == nil {
		t.Error("Expected error for unknown action")
	}
}
