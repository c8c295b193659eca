// ABOUTME: Tests for time block occurrence expansion and DRIP summaries.
// ABOUTME: Runs against a temp SQLite database.
package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "goalpro-schedule-test-*")
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

func utc(m time.Month, d, h int) time.Time {
	return time.Date(2026, m, d, h, 0, 0, 0, time.UTC)
}

func create(t *testing.T, db *storage.DB, b *models.TimeBlock) {
	t.Helper()
	if err := db.CreateTimeBlock(context.Background(), b); err != nil {
		t.Fatalf("CreateTimeBlock(%s) failed: %v", b.Title, err)
	}
}

func TestOccurrencesMixesOneOffAndRecurring(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()

	create(t, db, models.NewTimeBlock(user, "Client call", utc(3, 3, 15), utc(3, 3, 16)))
	create(t, db, models.NewTimeBlock(user, "Last month", utc(2, 3, 15), utc(2, 3, 16)))
	create(t, db, models.NewTimeBlock(user, "Deep work", utc(3, 2, 9), utc(3, 2, 11)).
		WithRecurrence("FREQ=DAILY"))
	create(t, db, models.NewTimeBlock(user, "Next month", utc(4, 1, 9), utc(4, 1, 10)).
		WithRecurrence("FREQ=DAILY"))

	svc := NewService(db, 0)
	occs, err := svc.Occurrences(ctx, user, utc(3, 2, 0), utc(3, 5, 0), nil)
	if err != nil {
		t.Fatalf("Occurrences failed: %v", err)
	}

	var titles []string
	for _, o := range occs {
		titles = append(titles, o.Title+"@"+o.StartsAt.Format("02T15"))
	}
	want := []string{"Deep work@02T09", "Deep work@03T09", "Client call@03T15", "Deep work@04T09"}
	if len(titles) != len(want) {
		t.Fatalf("occurrences = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("occurrence %d = %s, want %s", i, titles[i], want[i])
		}
	}
	if !occs[0].Recurring || occs[2].Recurring {
		t.Error("Recurring flag not set correctly")
	}
	if got := occs[0].EndsAt.Sub(occs[0].StartsAt); got != 2*time.Hour {
		t.Errorf("occurrence duration = %v, want 2h", got)
	}
}

func TestOccurrencesKeepWallClockAcrossDST(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}

	start := time.Date(2026, 3, 6, 9, 0, 0, 0, ny)
	create(t, db, models.NewTimeBlock(user, "Standup", start.UTC(), start.Add(15*time.Minute).UTC()).
		WithRecurrence("FREQ=DAILY;COUNT=4"))

	occs, err := NewService(db, 0).Occurrences(ctx, user, utc(3, 6, 0), utc(3, 12, 0), ny)
	if err != nil {
		t.Fatalf("Occurrences failed: %v", err)
	}
	if len(occs) != 4 {
		t.Fatalf("Expected 4 occurrences, got %d", len(occs))
	}
	if occs[0].StartsAt.Hour() != 14 {
		t.Errorf("before DST: %s UTC, want 14:00", occs[0].StartsAt.Format("15:04"))
	}
	if occs[3].StartsAt.Hour() != 13 {
		t.Errorf("after DST: %s UTC, want 13:00", occs[3].StartsAt.Format("15:04"))
	}
	for _, o := range occs {
		if local := o.StartsAt.In(ny); local.Hour() != 9 {
			t.Errorf("local start = %s, want 09:00", local.Format("15:04"))
		}
	}
}

func TestOccurrencesRejectsEmptyWindow(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewService(db, 0).Occurrences(context.Background(), uuid.New(), utc(3, 2, 0), utc(3, 2, 0), nil); err == nil {
		t.Error("Expected error for empty window")
	}
}

func TestOccurrencesCapPerBlock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	create(t, db, models.NewTimeBlock(user, "Ping", utc(1, 1, 8), utc(1, 1, 9)).WithRecurrence("FREQ=DAILY"))

	occs, err := NewService(db, 5).Occurrences(ctx, user, utc(1, 1, 0), utc(12, 31, 0), nil)
	if err != nil {
		t.Fatalf("Occurrences failed: %v", err)
	}
	if len(occs) != 5 {
		t.Errorf("Expected 5 occurrences, got %d", len(occs))
	}
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()

	create(t, db, models.NewTimeBlock(user, "Build", utc(3, 2, 9), utc(3, 2, 11)).
		WithQuadrant(models.DripProduction).
		WithEnergy(models.EnergyEnergizing).
		WithRecurrence("FREQ=DAILY"))
	create(t, db, models.NewTimeBlock(user, "Invoices", utc(3, 3, 14), utc(3, 3, 15)).
		WithQuadrant(models.DripDelegation).
		WithEnergy(models.EnergyDraining))
	create(t, db, models.NewTimeBlock(user, "Inbox", utc(3, 3, 16), utc(3, 3, 17)))

	sum, err := NewService(db, 0).Summary(ctx, user, utc(3, 2, 0), utc(3, 4, 0), nil)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.TotalMinutes != 360 {
		t.Errorf("TotalMinutes = %d, want 360", sum.TotalMinutes)
	}
	if sum.Minutes[models.DripProduction] != 240 {
		t.Errorf("production = %d, want 240", sum.Minutes[models.DripProduction])
	}
	if sum.Minutes[models.DripDelegation] != 60 {
		t.Errorf("delegation = %d, want 60", sum.Minutes[models.DripDelegation])
	}
	if sum.Uncategorized != 60 {
		t.Errorf("uncategorized = %d, want 60", sum.Uncategorized)
	}
	if sum.EnergyMinutes[models.EnergyDraining] != 60 {
		t.Errorf("draining = %d, want 60", sum.EnergyMinutes[models.EnergyDraining])
	}
}
