// ABOUTME: MIN CRUD operations.
// ABOUTME: Implements the MINStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const minColumns = `id, user_id, power_goal_id, title, due_date, priority, duration_minutes, completed, completed_at, created_at, updated_at`

// CreateMIN stores a new MIN.
func (d *DB) CreateMIN(ctx context.Context, m *models.MIN) error {
	_, err := d.exec(ctx, `
		INSERT INTO mins (`+minColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(),
		m.UserID.String(),
		nullUUID(m.PowerGoalID),
		m.Title,
		formatDate(m.DueDate),
		m.Priority,
		nullInt(m.DurationMinutes),
		m.Completed,
		nullTS(m.CompletedAt),
		formatTS(m.CreatedAt),
		formatTS(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create min: %w", mapWriteErr(err))
	}
	return nil
}

// GetMIN retrieves a MIN by ID or ID prefix.
func (d *DB) GetMIN(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.MIN, error) {
	id, err := d.resolveID(ctx, "mins", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanMIN(d.queryRow(ctx,
		`SELECT `+minColumns+` FROM mins WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListMINs returns MINs ordered by due date then priority.
func (d *DB) ListMINs(ctx context.Context, userID uuid.UUID, f MINFilter) ([]*models.MIN, error) {
	query := `SELECT ` + minColumns + ` FROM mins WHERE user_id = ?`
	args := []any{userID.String()}

	if f.Due != nil {
		query += ` AND due_date = ?`
		args = append(args, formatDate(*f.Due))
	}
	if !f.IncludeCompleted {
		query += ` AND completed = ?`
		args = append(args, false)
	}
	query += ` ORDER BY due_date, priority, created_at`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mins: %w", err)
	}
	defer rows.Close()

	var mins []*models.MIN
	for rows.Next() {
		m, err := scanMIN(rows)
		if err != nil {
			return nil, err
		}
		mins = append(mins, m)
	}
	return mins, rows.Err()
}

// UpdateMIN saves every mutable field of a MIN.
func (d *DB) UpdateMIN(ctx context.Context, m *models.MIN) error {
	m.UpdatedAt = time.Now().UTC()
	return d.execOne(ctx, "update min", `
		UPDATE mins
		SET power_goal_id = ?, title = ?, due_date = ?, priority = ?, duration_minutes = ?,
			completed = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullUUID(m.PowerGoalID),
		m.Title,
		formatDate(m.DueDate),
		m.Priority,
		nullInt(m.DurationMinutes),
		m.Completed,
		nullTS(m.CompletedAt),
		formatTS(m.UpdatedAt),
		m.ID.String(),
		m.UserID.String(),
	)
}

// DeleteMIN removes a MIN.
func (d *DB) DeleteMIN(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "mins", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete min: %w", err)
	}
	return d.execOne(ctx, "delete min",
		`DELETE FROM mins WHERE id = ? AND user_id = ?`, id, userID.String())
}

func scanMIN(s scanner) (*models.MIN, error) {
	var (
		m                    models.MIN
		id, userID, due      string
		goalID, completedAt  sql.NullString
		duration             sql.NullInt64
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &goalID, &m.Title, &due, &m.Priority, &duration,
		&m.Completed, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "min")
	}
	m.ID, _ = uuid.Parse(id)
	m.UserID, _ = uuid.Parse(userID)
	m.PowerGoalID = uuidPtr(goalID)
	m.DueDate = parseDate(due)
	m.DurationMinutes = intPtr(duration)
	m.CompletedAt = tsPtr(completedAt)
	m.CreatedAt = parseTS(createdAt)
	m.UpdatedAt = parseTS(updatedAt)
	return &m, nil
}
