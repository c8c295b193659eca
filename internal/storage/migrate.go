// ABOUTME: Data migration between goalpro storage backends.
// ABOUTME: Copies every user's planning data, team links, and billing state from source to destination.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Users         int
	Records       int
	TeamMembers   int
	Permissions   int
	Subscriptions int
	Calendars     int
}

// MigrateData copies all data from src to dst storage.
// It walks every user that owns data in src, importing their export into dst,
// then copies team links with their permissions, subscriptions and calendar
// connections. The destination should be empty before calling this function.
func MigrateData(ctx context.Context, src, dst Repository) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	users, err := src.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source users: %w", err)
	}

	for _, userID := range users {
		data, err := src.GetAllData(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("export user %s: %w", userID, err)
		}
		if err := dst.ImportData(ctx, data); err != nil {
			return nil, fmt.Errorf("import user %s: %w", userID, err)
		}
		summary.Users++
		summary.Records += data.Records()

		members, err := src.ListTeamMembers(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list team members for %s: %w", userID, err)
		}
		for _, m := range members {
			if err := dst.CreateTeamMember(ctx, m); err != nil {
				return nil, fmt.Errorf("create team member %s: %w", m.ID, err)
			}
			summary.TeamMembers++

			tabs, items, err := src.ListPermissions(ctx, m.ID)
			if err != nil {
				return nil, fmt.Errorf("list permissions for %s: %w", m.ID, err)
			}
			for _, p := range tabs {
				if err := dst.UpsertTabPermission(ctx, p); err != nil {
					return nil, fmt.Errorf("copy tab permission %s: %w", p.ID, err)
				}
				summary.Permissions++
			}
			for _, p := range items {
				if err := dst.UpsertItemPermission(ctx, p); err != nil {
					return nil, fmt.Errorf("copy item permission %s: %w", p.ID, err)
				}
				summary.Permissions++
			}
		}

		sub, err := src.GetSubscription(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get subscription for %s: %w", userID, err)
		}
		if sub.StripeCustomerID != nil {
			if err := dst.UpsertSubscription(ctx, sub); err != nil {
				return nil, fmt.Errorf("copy subscription for %s: %w", userID, err)
			}
			summary.Subscriptions++
		}

		conn, err := src.GetCalendarConnection(ctx, userID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("get calendar connection for %s: %w", userID, err)
		default:
			if err := dst.UpsertCalendarConnection(ctx, conn); err != nil {
				return nil, fmt.Errorf("copy calendar connection for %s: %w", userID, err)
			}
			summary.Calendars++
		}
	}

	return summary, nil
}

// userTables lists every table keyed by an owning user.
var userTables = []struct{ table, column string }{
	{"visions", "user_id"},
	{"power_goals", "user_id"},
	{"mins", "user_id"},
	{"time_blocks", "user_id"},
	{"kpis", "user_id"},
	{"routines", "user_id"},
	{"daily_reviews", "user_id"},
	{"leverage_items", "user_id"},
	{"user_progress", "user_id"},
	{"subscriptions", "user_id"},
	{"calendar_connections", "user_id"},
	{"team_members", "owner_id"},
}

// UserIDs returns every user that owns at least one row, sorted.
func (d *DB) UserIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	for _, t := range userTables {
		rows, err := d.query(ctx, `SELECT DISTINCT `+t.column+` FROM `+t.table)
		if err != nil {
			return nil, fmt.Errorf("list users in %s: %w", t.table, err)
		}
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scan user id: %w", err)
			}
			if id, err := uuid.Parse(raw); err == nil {
				seen[id] = true
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}

	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids, nil
}
