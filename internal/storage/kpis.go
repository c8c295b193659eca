// ABOUTME: KPI node, log and progress-cache storage.
// ABOUTME: Implements the KPIStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const kpiColumns = `id, user_id, vision_id, parent_id, title, level, target_value, unit, weight, created_at, updated_at`

// CreateKPI stores a new KPI node.
func (d *DB) CreateKPI(ctx context.Context, k *models.KPI) error {
	_, err := d.exec(ctx, `
		INSERT INTO kpis (`+kpiColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID.String(),
		k.UserID.String(),
		nullUUID(k.VisionID),
		nullUUID(k.ParentID),
		k.Title,
		string(k.Level),
		k.TargetValue,
		k.Unit,
		k.Weight,
		formatTS(k.CreatedAt),
		formatTS(k.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create kpi: %w", mapWriteErr(err))
	}
	return nil
}

// GetKPI retrieves a KPI by ID or ID prefix.
func (d *DB) GetKPI(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.KPI, error) {
	id, err := d.resolveID(ctx, "kpis", userID, idOrPrefix)
	if err != nil {
		return nil, err
	}
	return scanKPI(d.queryRow(ctx,
		`SELECT `+kpiColumns+` FROM kpis WHERE id = ? AND user_id = ?`,
		id, userID.String()))
}

// ListKPIs returns every KPI node the user owns.
func (d *DB) ListKPIs(ctx context.Context, userID uuid.UUID) ([]*models.KPI, error) {
	return d.listKPIs(ctx,
		`SELECT `+kpiColumns+` FROM kpis WHERE user_id = ? ORDER BY created_at`,
		userID.String())
}

// ListChildKPIs returns the direct children of a KPI.
func (d *DB) ListChildKPIs(ctx context.Context, userID, parentID uuid.UUID) ([]*models.KPI, error) {
	return d.listKPIs(ctx,
		`SELECT `+kpiColumns+` FROM kpis WHERE user_id = ? AND parent_id = ? ORDER BY created_at`,
		userID.String(), parentID.String())
}

func (d *DB) listKPIs(ctx context.Context, query string, args ...any) ([]*models.KPI, error) {
	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kpis: %w", err)
	}
	defer rows.Close()

	var kpis []*models.KPI
	for rows.Next() {
		k, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		kpis = append(kpis, k)
	}
	return kpis, rows.Err()
}

// DeleteKPI removes a KPI together with its subtree, logs and cached progress.
func (d *DB) DeleteKPI(ctx context.Context, userID uuid.UUID, idOrPrefix string) error {
	id, err := d.resolveID(ctx, "kpis", userID, idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete kpi: %w", err)
	}
	return d.execOne(ctx, "delete kpi",
		`DELETE FROM kpis WHERE id = ? AND user_id = ?`, id, userID.String())
}

// AddKPILog records a value against a KPI.
func (d *DB) AddKPILog(ctx context.Context, l *models.KPILog) error {
	_, err := d.exec(ctx, `
		INSERT INTO kpi_logs (id, kpi_id, user_id, value, logged_on, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(),
		l.KPIID.String(),
		l.UserID.String(),
		l.Value,
		formatDate(l.LoggedOn),
		nullString(l.Notes),
		formatTS(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("add kpi log: %w", mapWriteErr(err))
	}
	return nil
}

// ListKPILogs returns a KPI's logs, most recent first.
func (d *DB) ListKPILogs(ctx context.Context, userID, kpiID uuid.UUID) ([]*models.KPILog, error) {
	rows, err := d.query(ctx, `
		SELECT id, kpi_id, user_id, value, logged_on, notes, created_at
		FROM kpi_logs
		WHERE user_id = ? AND kpi_id = ?
		ORDER BY logged_on DESC, created_at DESC`,
		userID.String(), kpiID.String())
	if err != nil {
		return nil, fmt.Errorf("list kpi logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.KPILog
	for rows.Next() {
		var (
			l                   models.KPILog
			id, kid, uid        string
			loggedOn, createdAt string
			notes               sql.NullString
		)
		if err := rows.Scan(&id, &kid, &uid, &l.Value, &loggedOn, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan kpi log: %w", err)
		}
		l.ID, _ = uuid.Parse(id)
		l.KPIID, _ = uuid.Parse(kid)
		l.UserID, _ = uuid.Parse(uid)
		l.LoggedOn = parseDate(loggedOn)
		l.Notes = strPtr(notes)
		l.CreatedAt = parseTS(createdAt)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// SumKPILogs returns the total of every value logged against a KPI.
func (d *DB) SumKPILogs(ctx context.Context, userID, kpiID uuid.UUID) (float64, error) {
	var total sql.NullFloat64
	err := d.queryRow(ctx,
		`SELECT SUM(value) FROM kpi_logs WHERE user_id = ? AND kpi_id = ?`,
		userID.String(), kpiID.String()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum kpi logs: %w", err)
	}
	return total.Float64, nil
}

// GetKPIProgress returns the cached progress of a KPI.
func (d *DB) GetKPIProgress(ctx context.Context, userID, kpiID uuid.UUID) (*models.KPIProgress, error) {
	var (
		p            models.KPIProgress
		kid, uid     string
		note         sql.NullString
		calculatedAt string
	)
	err := d.queryRow(ctx, `
		SELECT kpi_id, user_id, percent, current_value, child_count, manual_override, override_note, calculated_at
		FROM kpi_progress
		WHERE kpi_id = ? AND user_id = ?`,
		kpiID.String(), userID.String()).
		Scan(&kid, &uid, &p.Percent, &p.CurrentValue, &p.ChildCount, &p.ManualOverride, &note, &calculatedAt)
	if err != nil {
		return nil, notFound(err, "kpi progress")
	}
	p.KPIID, _ = uuid.Parse(kid)
	p.UserID, _ = uuid.Parse(uid)
	p.OverrideNote = strPtr(note)
	p.CalculatedAt = parseTS(calculatedAt)
	return &p, nil
}

// UpsertKPIProgress writes the cached progress of a KPI.
func (d *DB) UpsertKPIProgress(ctx context.Context, p *models.KPIProgress) error {
	_, err := d.exec(ctx, `
		INSERT INTO kpi_progress (kpi_id, user_id, percent, current_value, child_count, manual_override, override_note, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kpi_id) DO UPDATE SET
			percent = excluded.percent,
			current_value = excluded.current_value,
			child_count = excluded.child_count,
			manual_override = excluded.manual_override,
			override_note = excluded.override_note,
			calculated_at = excluded.calculated_at`,
		p.KPIID.String(),
		p.UserID.String(),
		p.Percent,
		p.CurrentValue,
		p.ChildCount,
		p.ManualOverride,
		nullString(p.OverrideNote),
		formatTS(p.CalculatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert kpi progress: %w", mapWriteErr(err))
	}
	return nil
}

func scanKPI(s scanner) (*models.KPI, error) {
	var (
		k                    models.KPI
		id, userID, level    string
		visionID, parentID   sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&id, &userID, &visionID, &parentID, &k.Title, &level,
		&k.TargetValue, &k.Unit, &k.Weight, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err, "kpi")
	}
	k.ID, _ = uuid.Parse(id)
	k.UserID, _ = uuid.Parse(userID)
	k.VisionID = uuidPtr(visionID)
	k.ParentID = uuidPtr(parentID)
	k.Level = models.KPILevel(level)
	k.CreatedAt = parseTS(createdAt)
	k.UpdatedAt = parseTS(updatedAt)
	return &k, nil
}
