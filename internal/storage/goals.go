// ABOUTME: PowerGoal and Target CRUD operations.
// ABOUTME: Implements the GoalStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const powerGoalColumns = `id, user_id, vision_id, title, description, specific, measurable, achievable, relevant, time_bound, quarter, year, status, progress, created_at, updated_at`

const targetColumns = `id, user_id, power_goal_id, level, title, period_start, period_end, completed, created_at, updated_at`

// CreatePowerGoal stores a new power goal.
func (d *DB) CreatePowerGoal(ctx context.Context, g *models.PowerGoal) error {
	_, err := d.exec(ctx, `
		INSERT INTO power_goals (`+powerGoalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(),
		g.UserID.String(),
		nullUUID(g.VisionID),
		g.Title,
		nullString(g.Description),
		g.SMART.Specific,
		g.SMART.Measurable,
		g.SMART.Achievable,
		g.SMART.Relevant,
		g.SMART.TimeBound,
		g.Quarter,
		g.Year,
		string(g.Status),
		g.Progress,
		formatTS(g.CreatedAt),
		formatTS(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create power goal: %w", mapWriteErr(err))
	}
	return nil
}

// GetPowerGoal retrieves a power goal by ID or ID prefix.
func (d *DB) GetPowerGoal(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.PowerGoal, error) {
	id, err := d.resolveID(ctx, "power_goals", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanPowerGoal(d.queryRow(ctx,
		`SELECT `+powerGoalColumns+` FROM power_goals WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListPowerGoals returns goals ordered by year and quarter, most recent first.
func (d *DB) ListPowerGoals(ctx context.Context, userID uuid.UUID, f PowerGoalFilter) ([]*models.PowerGoal, error) {
	query := `SELECT ` + powerGoalColumns + ` FROM power_goals WHERE user_id = ?`
	args := []any{userID.String()}

	if f.VisionID != nil {
		query += ` AND vision_id = ?`
		args = append(args, f.VisionID.String())
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	if f.Year > 0 {
		query += ` AND year = ?`
		args = append(args, f.Year)
	}
	query += ` ORDER BY year DESC, quarter DESC, created_at DESC`

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list power goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.PowerGoal
	for rows.Next() {
		g, err := scanPowerGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdatePowerGoal saves every mutable field of a power goal.
func (d *DB) UpdatePowerGoal(ctx context.Context, g *models.PowerGoal) error {
	g.UpdatedAt = time.Now().UTC()
	return d.execOne(ctx, "update power goal", `
		UPDATE power_goals
		SET vision_id = ?, title = ?, description = ?, specific = ?, measurable = ?, achievable = ?,
			relevant = ?, time_bound = ?, quarter = ?, year = ?, status = ?, progress = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullUUID(g.VisionID),
		g.Title,
		nullString(g.Description),
		g.SMART.Specific,
		g.SMART.Measurable,
		g.SMART.Achievable,
		g.SMART.Relevant,
		g.SMART.TimeBound,
		g.Quarter,
		g.Year,
		string(g.Status),
		g.Progress,
		formatTS(g.UpdatedAt),
		g.ID.String(),
		g.UserID.String(),
	)
}

// DeletePowerGoal removes a power goal and its targets.
func (d *DB) DeletePowerGoal(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "power_goals", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete power goal: %w", err)
	}
	return d.execOne(ctx, "delete power goal",
		`DELETE FROM power_goals WHERE id = ? AND user_id = ?`, id, userID.String())
}

// CreateTarget stores a new target.
func (d *DB) CreateTarget(ctx context.Context, t *models.Target) error {
	_, err := d.exec(ctx, `
		INSERT INTO targets (`+targetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(),
		t.UserID.String(),
		t.PowerGoalID.String(),
		string(t.Level),
		t.Title,
		formatDate(t.PeriodStart),
		formatDate(t.PeriodEnd),
		t.Completed,
		formatTS(t.CreatedAt),
		formatTS(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create target: %w", mapWriteErr(err))
	}
	return nil
}

// GetTarget retrieves a target by ID or ID prefix.
func (d *DB) GetTarget(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Target, error) {
	id, err := d.resolveID(ctx, "targets", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanTarget(d.queryRow(ctx,
		`SELECT `+targetColumns+` FROM targets WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListTargets returns targets ordered by period start, optionally filtered by
// goal and level.
func (d *DB) ListTargets(ctx context.Context, userID uuid.UUID, powerGoalID *uuid.UUID, level *models.TargetLevel) ([]*models.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE user_id = ?`
	args := []any{userID.String()}

	if powerGoalID != nil {
		query += ` AND power_goal_id = ?`
		args = append(args, powerGoalID.String())
	}
	if level != nil {
		query += ` AND level = ?`
		args = append(args, string(*level))
	}
	query += ` ORDER BY period_start, created_at`

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// UpdateTarget saves every mutable field of a target.
func (d *DB) UpdateTarget(ctx context.Context, t *models.Target) error {
	t.UpdatedAt = time.Now().UTC()
	return d.execOne(ctx, "update target", `
		UPDATE targets
		SET level = ?, title = ?, period_start = ?, period_end = ?, completed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Level),
		t.Title,
		formatDate(t.PeriodStart),
		formatDate(t.PeriodEnd),
		t.Completed,
		formatTS(t.UpdatedAt),
		t.ID.String(),
		t.UserID.String(),
	)
}

// DeleteTarget removes a target.
func (d *DB) DeleteTarget(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "targets", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	return d.execOne(ctx, "delete target",
		`DELETE FROM targets WHERE id = ? AND user_id = ?`, id, userID.String())
}

func scanPowerGoal(s scanner) (*models.PowerGoal, error) {
	var (
		g                    models.PowerGoal
		id, userID, status   string
		visionID, desc       sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &visionID, &g.Title, &desc,
		&g.SMART.Specific, &g.SMART.Measurable, &g.SMART.Achievable, &g.SMART.Relevant, &g.SMART.TimeBound,
		&g.Quarter, &g.Year, &status, &g.Progress, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "power goal")
	}
	g.ID, _ = uuid.Parse(id)
	g.UserID, _ = uuid.Parse(userID)
	g.VisionID = uuidPtr(visionID)
	g.Description = strPtr(desc)
	g.Status = models.GoalStatus(status)
	g.CreatedAt = parseTS(createdAt)
	g.UpdatedAt = parseTS(updatedAt)
	return &g, nil
}

func scanTarget(s scanner) (*models.Target, error) {
	var (
		t                    models.Target
		id, userID, goalID   string
		level                string
		start, end           string
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &goalID, &level, &t.Title, &start, &end, &t.Completed, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "target")
	}
	t.ID, _ = uuid.Parse(id)
	t.UserID, _ = uuid.Parse(userID)
	t.PowerGoalID, _ = uuid.Parse(goalID)
	t.Level = models.TargetLevel(level)
	t.PeriodStart = parseDate(start)
	t.PeriodEnd = parseDate(end)
	t.CreatedAt = parseTS(createdAt)
	t.UpdatedAt = parseTS(updatedAt)
	return &t, nil
}
