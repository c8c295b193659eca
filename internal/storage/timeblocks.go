// ABOUTME: TimeBlock CRUD operations, window queries and bulk categorisation.
// ABOUTME: Implements the TimeBlockStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const timeBlockColumns = `id, user_id, title, starts_at, ends_at, quadrant, energy, recurrence, external_event_id, notes, created_at, updated_at`

// CreateTimeBlock stores a new time block.
func (d *DB) CreateTimeBlock(ctx context.Context, b *models.TimeBlock) error {
	_, err := d.exec(ctx, `
		INSERT INTO time_blocks (`+timeBlockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID.String(),
		b.UserID.String(),
		b.Title,
		formatTS(b.StartsAt),
		formatTS(b.EndsAt),
		nullQuadrant(b.Quadrant),
		nullEnergy(b.Energy),
		nullString(b.Recurrence),
		nullString(b.ExternalEventID),
		nullString(b.Notes),
		formatTS(b.CreatedAt),
		formatTS(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create time block: %w", mapWriteErr(err))
	}
	return nil
}

// GetTimeBlock retrieves a time block by ID or ID prefix.
func (d *DB) GetTimeBlock(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.TimeBlock, error) {
	id, err := d.resolveID(ctx, "time_blocks", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanTimeBlock(d.queryRow(ctx,
		`SELECT `+timeBlockColumns+` FROM time_blocks WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// GetTimeBlockByExternalID finds the block imported from a calendar event.
func (d *DB) GetTimeBlockByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*models.TimeBlock, error) {
	return scanTimeBlock(d.queryRow(ctx,
		`SELECT `+timeBlockColumns+` FROM time_blocks WHERE user_id = ? AND external_event_id = ?`,
		userID.String(), externalID))
}

// ListTimeBlocks returns the blocks that can produce an occurrence in
// [from, to): one-off blocks overlapping the window and recurring blocks that
// start before it ends. Zero bounds list everything.
func (d *DB) ListTimeBlocks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.TimeBlock, error) {
	query := `SELECT ` + timeBlockColumns + ` FROM time_blocks WHERE user_id = ?`
	args := []any{userID.String()}

	if !from.IsZero() || !to.IsZero() {
		if to.IsZero() {
			to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
		}
		query += ` AND ((recurrence IS NULL AND starts_at < ? AND ends_at > ?) OR (recurrence IS NOT NULL AND starts_at < ?))`
		args = append(args, formatTS(to), formatTS(from), formatTS(to))
	}
	query += ` ORDER BY starts_at`

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*models.TimeBlock
	for rows.Next() {
		b, err := scanTimeBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// UpdateTimeBlock saves every mutable field of a time block.
func (d *DB) UpdateTimeBlock(ctx context.Context, b *models.TimeBlock) error {
	b.UpdatedAt = time.Now().UTC()
	return d.execOne(ctx, "update time block", `
		UPDATE time_blocks
		SET title = ?, starts_at = ?, ends_at = ?, quadrant = ?, energy = ?, recurrence = ?,
			external_event_id = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Title,
		formatTS(b.StartsAt),
		formatTS(b.EndsAt),
		nullQuadrant(b.Quadrant),
		nullEnergy(b.Energy),
		nullString(b.Recurrence),
		nullString(b.ExternalEventID),
		nullString(b.Notes),
		formatTS(b.UpdatedAt),
		b.ID.String(),
		b.UserID.String(),
	)
}

// DeleteTimeBlock removes a time block.
func (d *DB) DeleteTimeBlock(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "time_blocks", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete time block: %w", err)
	}
	return d.execOne(ctx, "delete time block",
		`DELETE FROM time_blocks WHERE id = ? AND user_id = ?`, id, userID.String())
}

// CategorizeTimeBlocks sets the quadrant and/or energy rating on many blocks
// at once. Nil arguments leave that column unchanged. Returns the number of
// blocks updated; IDs belonging to other users are ignored.
func (d *DB) CategorizeTimeBlocks(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, quadrant *models.DripQuadrant, energy *models.EnergyRating) (int, error) {
	if len(ids) == 0 || (quadrant == nil && energy == nil) {
		return 0, nil
	}

	var sets []string
	var args []any
	if quadrant != nil {
		sets = append(sets, "quadrant = ?")
		args = append(args, string(*quadrant))
	}
	if energy != nil {
		sets = append(sets, "energy = ?")
		args = append(args, string(*energy))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTS(time.Now().UTC()), userID.String())

	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id.String())
	}

	result, err := d.exec(ctx,
		`UPDATE time_blocks SET `+strings.Join(sets, ", ")+
			` WHERE user_id = ? AND id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("categorize time blocks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("categorize time blocks: %w", err)
	}
	return int(affected), nil
}

func nullQuadrant(q *models.DripQuadrant) any {
	if q == nil {
		return nil
	}
	return string(*q)
}

func nullEnergy(e *models.EnergyRating) any {
	if e == nil {
		return nil
	}
	return string(*e)
}

func scanTimeBlock(s scanner) (*models.TimeBlock, error) {
	var (
		b                      models.TimeBlock
		id, userID             string
		startsAt, endsAt       string
		quadrant, energy       sql.NullString
		recurrence, externalID sql.NullString
		notes                  sql.NullString
		createdAt, updatedAt   string
	)
	err := s.Scan(&id, &userID, &b.Title, &startsAt, &endsAt, &quadrant, &energy,
		&recurrence, &externalID, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "time block")
	}
	b.ID, _ = uuid.Parse(id)
	b.UserID, _ = uuid.Parse(userID)
	b.StartsAt = parseTS(startsAt)
	b.EndsAt = parseTS(endsAt)
	if quadrant.Valid {
		q := models.DripQuadrant(quadrant.String)
		b.Quadrant = &q
	}
	if energy.Valid {
		e := models.EnergyRating(energy.String)
		b.Energy = &e
	}
	b.Recurrence = strPtr(recurrence)
	b.ExternalEventID = strPtr(externalID)
	b.Notes = strPtr(notes)
	b.CreatedAt = parseTS(createdAt)
	b.UpdatedAt = parseTS(updatedAt)
	return &b, nil
}
