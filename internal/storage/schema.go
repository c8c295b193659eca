// ABOUTME: Schema definition and idempotent initialization.
// ABOUTME: Portable DDL shared by SQLite and Postgres; timestamps are fixed-width UTC text.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// schemaStatements creates every table and index. Each statement is run on
// its own because pgx's extended protocol rejects multi-statement strings.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS visions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		target_date TEXT,
		clarity INTEGER NOT NULL DEFAULT 0,
		belief INTEGER NOT NULL DEFAULT 0,
		consistency INTEGER NOT NULL DEFAULT 0,
		image_path TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS power_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vision_id TEXT REFERENCES visions(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		description TEXT,
		specific TEXT NOT NULL DEFAULT '',
		measurable TEXT NOT NULL DEFAULT '',
		achievable TEXT NOT NULL DEFAULT '',
		relevant TEXT NOT NULL DEFAULT '',
		time_bound TEXT NOT NULL DEFAULT '',
		quarter INTEGER NOT NULL DEFAULT 0,
		year INTEGER NOT NULL,
		status TEXT NOT NULL,
		progress DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS targets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		power_goal_id TEXT NOT NULL REFERENCES power_goals(id) ON DELETE CASCADE,
		level TEXT NOT NULL,
		title TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS mins (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		power_goal_id TEXT REFERENCES power_goals(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		due_date TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 1,
		duration_minutes INTEGER,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS time_blocks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		starts_at TEXT NOT NULL,
		ends_at TEXT NOT NULL,
		quadrant TEXT,
		energy TEXT,
		recurrence TEXT,
		external_event_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS kpis (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vision_id TEXT REFERENCES visions(id) ON DELETE SET NULL,
		parent_id TEXT REFERENCES kpis(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		level TEXT NOT NULL,
		target_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		weight DOUBLE PRECISION NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS kpi_logs (
		id TEXT PRIMARY KEY,
		kpi_id TEXT NOT NULL REFERENCES kpis(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL,
		logged_on TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS kpi_progress (
		kpi_id TEXT PRIMARY KEY REFERENCES kpis(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
		child_count INTEGER NOT NULL DEFAULT 0,
		manual_override BOOLEAN NOT NULL DEFAULT FALSE,
		override_note TEXT,
		calculated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS routines (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		steps TEXT NOT NULL DEFAULT '[]',
		recurrence TEXT NOT NULL,
		time_of_day TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS daily_reviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		review_date TEXT NOT NULL,
		wins TEXT NOT NULL DEFAULT '[]',
		challenges TEXT NOT NULL DEFAULT '[]',
		tomorrow_focus TEXT,
		gratitude TEXT,
		energy_level INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (user_id, review_date)
	)`,

	`CREATE TABLE IF NOT EXISTS leverage_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		hours_saved_per_week DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT PRIMARY KEY,
		total_xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		last_active_on TEXT,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		member_user_id TEXT,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		invite_token TEXT NOT NULL UNIQUE,
		invited_at TEXT NOT NULL,
		accepted_at TEXT,
		UNIQUE (owner_id, email)
	)`,

	`CREATE TABLE IF NOT EXISTS tab_permissions (
		id TEXT PRIMARY KEY,
		team_member_id TEXT NOT NULL REFERENCES team_members(id) ON DELETE CASCADE,
		tab TEXT NOT NULL,
		can_view BOOLEAN NOT NULL DEFAULT FALSE,
		can_edit BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		UNIQUE (team_member_id, tab)
	)`,

	`CREATE TABLE IF NOT EXISTS item_permissions (
		id TEXT PRIMARY KEY,
		team_member_id TEXT NOT NULL REFERENCES team_members(id) ON DELETE CASCADE,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		can_view BOOLEAN NOT NULL DEFAULT FALSE,
		can_edit BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		UNIQUE (team_member_id, entity_type, entity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		user_id TEXT PRIMARY KEY,
		stripe_customer_id TEXT UNIQUE,
		stripe_subscription_id TEXT,
		tier TEXT NOT NULL,
		status TEXT NOT NULL,
		price_id TEXT,
		current_period_end TEXT,
		cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS calendar_connections (
		user_id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		token_type TEXT NOT NULL,
		expiry TEXT NOT NULL,
		last_synced_at TEXT,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		screenshot_path TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_visions_user ON visions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_power_goals_user ON power_goals(user_id, year)`,
	`CREATE INDEX IF NOT EXISTS idx_targets_goal ON targets(power_goal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_mins_user_due ON mins(user_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_time_blocks_user_start ON time_blocks(user_id, starts_at)`,
	`CREATE INDEX IF NOT EXISTS idx_time_blocks_external ON time_blocks(user_id, external_event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_kpis_parent ON kpis(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_kpi_logs_kpi ON kpi_logs(kpi_id)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_reviews_user ON daily_reviews(user_id, review_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_member ON team_members(member_user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_members_active ON team_members(owner_id, member_user_id) WHERE status = 'active'`,
}

// initSchema creates or updates the database schema.
func (d *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSuffix(strings.TrimSpace(s[:i]), "(")
	}
	return s
}
