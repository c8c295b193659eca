// ABOUTME: Vision CRUD operations.
// ABOUTME: Implements the VisionStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const visionColumns = `id, user_id, title, description, target_date, clarity, belief, consistency, image_path, created_at, updated_at`

// CreateVision stores a new vision.
func (d *DB) CreateVision(ctx context.Context, v *models.Vision) error {
	_, err := d.exec(ctx, `
		INSERT INTO visions (`+visionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID.String(),
		v.UserID.String(),
		v.Title,
		nullString(v.Description),
		nullDate(v.TargetDate),
		v.Clarity,
		v.Belief,
		v.Consistency,
		nullString(v.ImagePath),
		formatTS(v.CreatedAt),
		formatTS(v.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create vision: %w", mapWriteErr(err))
	}
	return nil
}

// GetVision retrieves a vision by ID or ID prefix.
func (d *DB) GetVision(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Vision, error) {
	id, err := d.resolveID(ctx, "visions", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanVision(d.queryRow(ctx,
		`SELECT `+visionColumns+` FROM visions WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListVisions returns the user's visions, newest first.
func (d *DB) ListVisions(ctx context.Context, userID uuid.UUID) ([]*models.Vision, error) {
	rows, err := d.query(ctx,
		`SELECT `+visionColumns+` FROM visions WHERE user_id = ? ORDER BY created_at DESC`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("list visions: %w", err)
	}
	defer rows.Close()

	var visions []*models.Vision
	for rows.Next() {
		v, err := scanVision(rows)
		if err != nil {
			return nil, err
		}
		visions = append(visions, v)
	}
	return visions, rows.Err()
}

// UpdateVision saves every mutable field of a vision.
func (d *DB) UpdateVision(ctx context.Context, v *models.Vision) error {
	v.UpdatedAt = time.Now().UTC()
	return d.execOne(ctx, "update vision", `
		UPDATE visions
		SET title = ?, description = ?, target_date = ?, clarity = ?, belief = ?, consistency = ?, image_path = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		v.Title,
		nullString(v.Description),
		nullDate(v.TargetDate),
		v.Clarity,
		v.Belief,
		v.Consistency,
		nullString(v.ImagePath),
		formatTS(v.UpdatedAt),
		v.ID.String(),
		v.UserID.String(),
	)
}

// DeleteVision removes a vision. Linked goals and KPIs are unlinked, not deleted.
func (d *DB) DeleteVision(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "visions", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete vision: %w", err)
	}
	return d.execOne(ctx, "delete vision",
		`DELETE FROM visions WHERE id = ? AND user_id = ?`, id, userID.String())
}

func scanVision(s scanner) (*models.Vision, error) {
	var (
		v                    models.Vision
		id, userID           string
		description, target  sql.NullString
		imagePath            sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &v.Title, &description, &target,
		&v.Clarity, &v.Belief, &v.Consistency, &imagePath, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "vision")
	}
	v.ID, _ = uuid.Parse(id)
	v.UserID, _ = uuid.Parse(userID)
	v.Description = strPtr(description)
	v.TargetDate = datePtr(target)
	v.ImagePath = strPtr(imagePath)
	v.CreatedAt = parseTS(createdAt)
	v.UpdatedAt = parseTS(updatedAt)
	return &v, nil
}
