// ABOUTME: DailyReview, Routine, LeverageItem and Feedback storage.
// ABOUTME: List-valued columns are stored as JSON arrays in TEXT columns.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const reviewColumns = `id, user_id, review_date, wins, challenges, tomorrow_focus, gratitude, energy_level, created_at, updated_at`

// UpsertDailyReview creates the review for its date or replaces the existing
// one, keeping the original ID and creation time.
func (d *DB) UpsertDailyReview(ctx context.Context, r *models.DailyReview) (*models.DailyReview, error) {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := d.exec(ctx, `
		INSERT INTO daily_reviews (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, review_date) DO UPDATE SET
			wins = excluded.wins,
			challenges = excluded.challenges,
			tomorrow_focus = excluded.tomorrow_focus,
			gratitude = excluded.gratitude,
			energy_level = excluded.energy_level,
			updated_at = excluded.updated_at`,
		r.ID.String(),
		r.UserID.String(),
		formatDate(r.ReviewDate),
		encodeList(r.Wins),
		encodeList(r.Challenges),
		nullString(r.TomorrowFocus),
		nullString(r.Gratitude),
		nullInt(r.EnergyLevel),
		formatTS(r.CreatedAt),
		formatTS(r.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert daily review: %w", mapWriteErr(err))
	}
	return d.GetDailyReview(ctx, r.UserID, r.ReviewDate)
}

// GetDailyReview returns the review for a calendar date.
func (d *DB) GetDailyReview(ctx context.Context, userID uuid.UUID, day time.Time) (*models.DailyReview, error) {
	return scanReview(d.queryRow(ctx,
		`SELECT `+reviewColumns+` FROM daily_reviews WHERE user_id = ? AND review_date = ?`,
		userID.String(), formatDate(day)))
}

// ListDailyReviews returns reviews, most recent date first.
func (d *DB) ListDailyReviews(ctx context.Context, userID uuid.UUID, limit int) ([]*models.DailyReview, error) {
	query := `SELECT ` + reviewColumns + ` FROM daily_reviews WHERE user_id = ? ORDER BY review_date DESC`
	args := []any{userID.String()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.DailyReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

const routineColumns = `id, user_id, name, description, steps, recurrence, time_of_day, active, created_at, updated_at`

// CreateRoutine stores a new routine.
func (d *DB) CreateRoutine(ctx context.Context, r *models.Routine) error {
	_, err := d.exec(ctx, `
		INSERT INTO routines (`+routineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(),
		r.UserID.String(),
		r.Name,
		nullString(r.Description),
		encodeList(r.Steps),
		r.Recurrence,
		r.TimeOfDay,
		r.Active,
		formatTS(r.CreatedAt),
		formatTS(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create routine: %w", mapWriteErr(err))
	}
	return nil
}

// GetRoutine retrieves a routine by ID or ID prefix.
func (d *DB) GetRoutine(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Routine, error) {
	id, err := d.resolveID(ctx, "routines", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanRoutine(d.queryRow(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListRoutines returns routines ordered by time of day.
func (d *DB) ListRoutines(ctx context.Context, userID uuid.UUID) ([]*models.Routine, error) {
	rows, err := d.query(ctx,
		`SELECT `+routineColumns+` FROM routines WHERE user_id = ? ORDER BY time_of_day, name`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []*models.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

// DeleteRoutine removes a routine.
func (d *DB) DeleteRoutine(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "routines", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	return d.execOne(ctx, "delete routine",
		`DELETE FROM routines WHERE id = ? AND user_id = ?`, id, userID.String())
}

const leverageColumns = `id, user_id, type, title, description, hours_saved_per_week, status, created_at, updated_at`

// CreateLeverageItem stores a new leverage item.
func (d *DB) CreateLeverageItem(ctx context.Context, l *models.LeverageItem) error {
	_, err := d.exec(ctx, `
		INSERT INTO leverage_items (`+leverageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(),
		l.UserID.String(),
		string(l.Type),
		l.Title,
		nullString(l.Description),
		l.HoursSavedPerWeek,
		l.Status,
		formatTS(l.CreatedAt),
		formatTS(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create leverage item: %w", mapWriteErr(err))
	}
	return nil
}

// GetLeverageItem retrieves a leverage item by ID or ID prefix.
func (d *DB) GetLeverageItem(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.LeverageItem, error) {
	id, err := d.resolveID(ctx, "leverage_items", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanLeverage(d.queryRow(ctx,
		`SELECT `+leverageColumns+` FROM leverage_items WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListLeverageItems returns items with the biggest weekly savings first.
func (d *DB) ListLeverageItems(ctx context.Context, userID uuid.UUID) ([]*models.LeverageItem, error) {
	rows, err := d.query(ctx,
		`SELECT `+leverageColumns+` FROM leverage_items WHERE user_id = ? ORDER BY hours_saved_per_week DESC, created_at`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list leverage items: %w", err)
	}
	defer rows.Close()

	var items []*models.LeverageItem
	for rows.Next() {
		l, err := scanLeverage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// DeleteLeverageItem removes a leverage item.
func (d *DB) DeleteLeverageItem(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "leverage_items", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete leverage item: %w", err)
	}
	return d.execOne(ctx, "delete leverage item",
		`DELETE FROM leverage_items WHERE id = ? AND user_id = ?`, id, userID.String())
}

// CreateFeedback stores a feedback submission.
func (d *DB) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	_, err := d.exec(ctx, `
		INSERT INTO feedback (id, user_id, category, message, screenshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID.String(),
		f.UserID.String(),
		f.Category,
		f.Message,
		nullString(f.ScreenshotPath),
		formatTS(f.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create feedback: %w", mapWriteErr(err))
	}
	return nil
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func decodeList(s string) []string {
	items := []string{}
	_ = json.Unmarshal([]byte(s), &items)
	return items
}

func scanReview(s scanner) (*models.DailyReview, error) {
	var (
		r                    models.DailyReview
		id, userID, day      string
		wins, challenges     string
		focus, gratitude     sql.NullString
		energy               sql.NullInt64
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &day, &wins, &challenges, &focus, &gratitude, &energy, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "daily review")
	}
	r.ID, _ = uuid.Parse(id)
	r.UserID, _ = uuid.Parse(userID)
	r.ReviewDate = parseDate(day)
	r.Wins = decodeList(wins)
	r.Challenges = decodeList(challenges)
	r.TomorrowFocus = strPtr(focus)
	r.Gratitude = strPtr(gratitude)
	r.EnergyLevel = intPtr(energy)
	r.CreatedAt = parseTS(createdAt)
	r.UpdatedAt = parseTS(updatedAt)
	return &r, nil
}

func scanRoutine(s scanner) (*models.Routine, error) {
	var (
		r                    models.Routine
		id, userID, steps    string
		desc                 sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &r.Name, &desc, &steps, &r.Recurrence, &r.TimeOfDay, &r.Active, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "routine")
	}
	r.ID, _ = uuid.Parse(id)
	r.UserID, _ = uuid.Parse(userID)
	r.Description = strPtr(desc)
	r.Steps = decodeList(steps)
	r.CreatedAt = parseTS(createdAt)
	r.UpdatedAt = parseTS(updatedAt)
	return &r, nil
}

func scanLeverage(s scanner) (*models.LeverageItem, error) {
	var (
		l                    models.LeverageItem
		id, userID, typ      string
		desc                 sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &typ, &l.Title, &desc, &l.HoursSavedPerWeek, &l.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "leverage item")
	}
	l.ID, _ = uuid.Parse(id)
	l.UserID, _ = uuid.Parse(userID)
	l.Type = models.LeverageType(typ)
	l.Description = strPtr(desc)
	l.CreatedAt = parseTS(createdAt)
	l.UpdatedAt = parseTS(updatedAt)
	return &l, nil
}
