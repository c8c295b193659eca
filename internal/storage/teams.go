// ABOUTME: Team member and sharing permission storage.
// ABOUTME: Implements the TeamStore part of the Repository interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

const memberColumns = `id, owner_id, member_user_id, email, role, status, invite_token, invited_at, accepted_at`

// CreateTeamMember stores a new invitation. Inviting the same email twice
// returns ErrConflict.
func (d *DB) CreateTeamMember(ctx context.Context, m *models.TeamMember) error {
	_, err := d.exec(ctx, `
		INSERT INTO team_members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(),
		m.OwnerID.String(),
		nullUUID(m.MemberUserID),
		m.Email,
		string(m.Role),
		string(m.Status),
		m.InviteToken,
		formatTS(m.InvitedAt),
		nullTS(m.AcceptedAt),
	)
	if err != nil {
		return fmt.Errorf("create team member: %w", mapWriteErr(err))
	}
	return nil
}

// GetTeamMember returns one of the owner's team links.
func (d *DB) GetTeamMember(ctx context.Context, ownerID, memberID uuid.UUID) (*models.TeamMember, error) {
	return scanMember(d.queryRow(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE id = ? AND owner_id = ?`,
		memberID.String(), ownerID.String()))
}

// GetTeamMemberByToken looks up an invitation by its token.
func (d *DB) GetTeamMemberByToken(ctx context.Context, token string) (*models.TeamMember, error) {
	return scanMember(d.queryRow(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE invite_token = ?`, token))
}

// FindActiveMember returns the active link between an owner and a member user.
func (d *DB) FindActiveMember(ctx context.Context, ownerID, memberUserID uuid.UUID) (*models.TeamMember, error) {
	return scanMember(d.queryRow(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE owner_id = ? AND member_user_id = ? AND status = ?`,
		ownerID.String(), memberUserID.String(), string(models.MemberActive)))
}

// ListTeamMembers returns every link the owner created, newest first.
func (d *DB) ListTeamMembers(ctx context.Context, ownerID uuid.UUID) ([]*models.TeamMember, error) {
	rows, err := d.query(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE owner_id = ? ORDER BY invited_at DESC`,
		ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	var members []*models.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateTeamMember saves role, status and acceptance of a team link.
func (d *DB) UpdateTeamMember(ctx context.Context, m *models.TeamMember) error {
	return d.execOne(ctx, "update team member", `
		UPDATE team_members
		SET member_user_id = ?, role = ?, status = ?, accepted_at = ?
		WHERE id = ? AND owner_id = ?`,
		nullUUID(m.MemberUserID),
		string(m.Role),
		string(m.Status),
		nullTS(m.AcceptedAt),
		m.ID.String(),
		m.OwnerID.String(),
	)
}

// DeleteTeamMember removes a team link and its permissions.
func (d *DB) DeleteTeamMember(ctx context.Context, ownerID, memberID uuid.UUID) error {
	return d.execOne(ctx, "delete team member",
		`DELETE FROM team_members WHERE id = ? AND owner_id = ?`,
		memberID.String(), ownerID.String())
}

// UpsertTabPermission sets the view/edit flags for one tab.
func (d *DB) UpsertTabPermission(ctx context.Context, p *models.TabPermission) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := d.exec(ctx, `
		INSERT INTO tab_permissions (id, team_member_id, tab, can_view, can_edit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (team_member_id, tab) DO UPDATE SET
			can_view = excluded.can_view,
			can_edit = excluded.can_edit,
			updated_at = excluded.updated_at`,
		p.ID.String(),
		p.TeamMemberID.String(),
		string(p.Tab),
		p.CanView,
		p.CanEdit,
		formatTS(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert tab permission: %w", mapWriteErr(err))
	}
	return nil
}

// GetTabPermission returns the permission row for a tab.
func (d *DB) GetTabPermission(ctx context.Context, memberID uuid.UUID, tab models.Tab) (*models.TabPermission, error) {
	return scanTabPermission(d.queryRow(ctx, `
		SELECT id, team_member_id, tab, can_view, can_edit, updated_at
		FROM tab_permissions
		WHERE team_member_id = ? AND tab = ?`,
		memberID.String(), string(tab)))
}

// DeleteTabPermission removes a tab permission row.
func (d *DB) DeleteTabPermission(ctx context.Context, memberID uuid.UUID, tab models.Tab) error {
	return d.execOne(ctx, "delete tab permission",
		`DELETE FROM tab_permissions WHERE team_member_id = ? AND tab = ?`,
		memberID.String(), string(tab))
}

// UpsertItemPermission sets the view/edit flags for one entity.
func (d *DB) UpsertItemPermission(ctx context.Context, p *models.ItemPermission) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.UpdatedAt = time.Now().UTC()
	_, err := d.exec(ctx, `
		INSERT INTO item_permissions (id, team_member_id, entity_type, entity_id, can_view, can_edit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (team_member_id, entity_type, entity_id) DO UPDATE SET
			can_view = excluded.can_view,
			can_edit = excluded.can_edit,
			updated_at = excluded.updated_at`,
		p.ID.String(),
		p.TeamMemberID.String(),
		string(p.EntityType),
		p.EntityID.String(),
		p.CanView,
		p.CanEdit,
		formatTS(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert item permission: %w", mapWriteErr(err))
	}
	return nil
}

// GetItemPermission returns the permission row for a single entity.
func (d *DB) GetItemPermission(ctx context.Context, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) (*models.ItemPermission, error) {
	return scanItemPermission(d.queryRow(ctx, `
		SELECT id, team_member_id, entity_type, entity_id, can_view, can_edit, updated_at
		FROM item_permissions
		WHERE team_member_id = ? AND entity_type = ? AND entity_id = ?`,
		memberID.String(), string(entityType), entityID.String()))
}

// DeleteItemPermission removes an item permission row.
func (d *DB) DeleteItemPermission(ctx context.Context, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error {
	return d.execOne(ctx, "delete item permission",
		`DELETE FROM item_permissions WHERE team_member_id = ? AND entity_type = ? AND entity_id = ?`,
		memberID.String(), string(entityType), entityID.String())
}

// ListPermissions returns every tab and item permission of a team link.
func (d *DB) ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*models.TabPermission, []*models.ItemPermission, error) {
	tabRows, err := d.query(ctx, `
		SELECT id, team_member_id, tab, can_view, can_edit, updated_at
		FROM tab_permissions
		WHERE team_member_id = ?
		ORDER BY tab`,
		memberID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("list tab permissions: %w", err)
	}
	var tabs []*models.TabPermission
	for tabRows.Next() {
		p, err := scanTabPermission(tabRows)
		if err != nil {
			_ = tabRows.Close()
			return nil, nil, err
		}
		tabs = append(tabs, p)
	}
	if err := tabRows.Close(); err != nil {
		return nil, nil, err
	}

	itemRows, err := d.query(ctx, `
		SELECT id, team_member_id, entity_type, entity_id, can_view, can_edit, updated_at
		FROM item_permissions
		WHERE team_member_id = ?
		ORDER BY entity_type, entity_id`,
		memberID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("list item permissions: %w", err)
	}
	defer itemRows.Close()

	var items []*models.ItemPermission
	for itemRows.Next() {
		p, err := scanItemPermission(itemRows)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, p)
	}
	return tabs, items, itemRows.Err()
}

func scanMember(s scanner) (*models.TeamMember, error) {
	var (
		m                  models.TeamMember
		id, ownerID        string
		memberID, accepted sql.NullString
		role, status       string
		invitedAt          string
	)
	err := s.Scan(&id, &ownerID, &memberID, &m.Email, &role, &status, &m.InviteToken, &invitedAt, &accepted)
	if err != nil {
		return nil, notFound(err, "team member")
	}
	m.ID, _ = uuid.Parse(id)
	m.OwnerID, _ = uuid.Parse(ownerID)
	m.MemberUserID = uuidPtr(memberID)
	m.Role = models.MemberRole(role)
	m.Status = models.MemberStatus(status)
	m.InvitedAt = parseTS(invitedAt)
	m.AcceptedAt = tsPtr(accepted)
	return &m, nil
}

func scanTabPermission(s scanner) (*models.TabPermission, error) {
	var (
		p                 models.TabPermission
		id, memberID, tab string
		updatedAt         string
	)
	if err := s.Scan(&id, &memberID, &tab, &p.CanView, &p.CanEdit, &updatedAt); err != nil {
		return nil, notFound(err, "tab permission")
	}
	p.ID, _ = uuid.Parse(id)
	p.TeamMemberID, _ = uuid.Parse(memberID)
	p.Tab = models.Tab(tab)
	p.UpdatedAt = parseTS(updatedAt)
	return &p, nil
}

func scanItemPermission(s scanner) (*models.ItemPermission, error) {
	var (
		p                  models.ItemPermission
		id, memberID       string
		entityType, entity string
		updatedAt          string
	)
	if err := s.Scan(&id, &memberID, &entityType, &entity, &p.CanView, &p.CanEdit, &updatedAt); err != nil {
		return nil, notFound(err, "item permission")
	}
	p.ID, _ = uuid.Parse(id)
	p.TeamMemberID, _ = uuid.Parse(memberID)
	p.EntityType = models.EntityType(entityType)
	p.EntityID, _ = uuid.Parse(entity)
	p.UpdatedAt = parseTS(updatedAt)
	return &p, nil
}
