// ABOUTME: Team sharing: the owner/member permission check plus invitation lifecycle.
// ABOUTME: Item-level permissions override tab-level ones; edit implies view.
package sharing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/oklog/ulid/v2"
)

// ErrForbidden is returned when a requester lacks the access an operation needs.
var ErrForbidden = errors.New("forbidden")

// Access is the level of access a requester has to an owner's content.
type Access int

const (
	AccessNone Access = iota
	AccessView
	AccessEdit
)

func (a Access) String() string {
	switch a {
	case AccessView:
		return "view"
	case AccessEdit:
		return "edit"
	default:
		return "none"
	}
}

// Allows reports whether a satisfies want.
func (a Access) Allows(want Access) bool {
	return a >= want
}

func accessFrom(canView, canEdit bool) Access {
	switch {
	case canEdit:
		return AccessEdit
	case canView:
		return AccessView
	default:
		return AccessNone
	}
}

// Store is the subset of storage used for sharing.
type Store interface {
	CreateTeamMember(ctx context.Context, m *models.TeamMember) error
	GetTeamMember(ctx context.Context, ownerID, memberID uuid.UUID) (*models.TeamMember, error)
	GetTeamMemberByToken(ctx context.Context, token string) (*models.TeamMember, error)
	FindActiveMember(ctx context.Context, ownerID, memberUserID uuid.UUID) (*models.TeamMember, error)
	ListTeamMembers(ctx context.Context, ownerID uuid.UUID) ([]*models.TeamMember, error)
	UpdateTeamMember(ctx context.Context, m *models.TeamMember) error
	DeleteTeamMember(ctx context.Context, ownerID, memberID uuid.UUID) error

	UpsertTabPermission(ctx context.Context, p *models.TabPermission) error
	GetTabPermission(ctx context.Context, memberID uuid.UUID, tab models.Tab) (*models.TabPermission, error)
	DeleteTabPermission(ctx context.Context, memberID uuid.UUID, tab models.Tab) error
	UpsertItemPermission(ctx context.Context, p *models.ItemPermission) error
	GetItemPermission(ctx context.Context, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) (*models.ItemPermission, error)
	DeleteItemPermission(ctx context.Context, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error
	ListPermissions(ctx context.Context, memberID uuid.UUID) ([]*models.TabPermission, []*models.ItemPermission, error)
}

// Inviter delivers an invitation to the invited email address.
type Inviter interface {
	SendInvite(ctx context.Context, m *models.TeamMember) error
}

// Service checks and manages shared access.
type Service struct {
	store   Store
	inviter Inviter
	logger  *log.Logger
}

// NewService creates a sharing service. inviter may be nil, in which case
// invitations are stored but not delivered.
func NewService(store Store, inviter Inviter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, inviter: inviter, logger: logger}
}

// Check returns the access requesterID has to ownerID's content in tab. When
// entityType and entityID are set, an item-level permission takes precedence.
func (s *Service) Check(ctx context.Context, requesterID, ownerID uuid.UUID, tab models.Tab, entityType models.EntityType, entityID uuid.UUID) (Access, error) {
	if requesterID == ownerID {
		return AccessEdit, nil
	}

	member, err := s.store.FindActiveMember(ctx, ownerID, requesterID)
	if errors.Is(err, storage.ErrNotFound) {
		return AccessNone, nil
	}
	if err != nil {
		return AccessNone, fmt.Errorf("check access: %w", err)
	}

	if entityType != "" && entityID != uuid.Nil {
		item, err := s.store.GetItemPermission(ctx, member.ID, entityType, entityID)
		if err == nil {
			return accessFrom(item.CanView, item.CanEdit), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return AccessNone, fmt.Errorf("check item access: %w", err)
		}
	}

	tp, err := s.store.GetTabPermission(ctx, member.ID, tab)
	if errors.Is(err, storage.ErrNotFound) {
		return AccessNone, nil
	}
	if err != nil {
		return AccessNone, fmt.Errorf("check tab access: %w", err)
	}
	return accessFrom(tp.CanView, tp.CanEdit), nil
}

// Require returns ErrForbidden unless the requester has at least want.
func (s *Service) Require(ctx context.Context, requesterID, ownerID uuid.UUID, tab models.Tab, entityType models.EntityType, entityID uuid.UUID, want Access) error {
	got, err := s.Check(ctx, requesterID, ownerID, tab, entityType, entityID)
	if err != nil {
		return err
	}
	if !got.Allows(want) {
		return fmt.Errorf("%w: %s access to %s required", ErrForbidden, want, tab)
	}
	return nil
}

// NewInviteToken returns a random, URL-safe invitation token.
func NewInviteToken() (string, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return strings.ToLower(id.String()), nil
}

// Invite creates a pending team link for email and sends the invitation.
// A delivery failure is logged and does not undo the invitation.
func (s *Service) Invite(ctx context.Context, ownerID uuid.UUID, email string, role models.MemberRole) (*models.TeamMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invite: invalid email %q", email)
	}
	if role == "" {
		role = models.RoleViewer
	}
	if !models.IsValidMemberRole(string(role)) {
		return nil, fmt.Errorf("invite: invalid role %q", role)
	}

	token, err := NewInviteToken()
	if err != nil {
		return nil, err
	}
	m := models.NewTeamMember(ownerID, email, role, token)
	if err := s.store.CreateTeamMember(ctx, m); err != nil {
		return nil, fmt.Errorf("invite: %w", err)
	}

	if s.inviter != nil {
		if err := s.inviter.SendInvite(ctx, m); err != nil {
			s.logger.Warn("invitation email failed", "email", email, "member_id", m.ID, "err", err)
		}
	}
	return m, nil
}

// Accept activates the invitation identified by token for userID and grants
// the role's default access on every tab.
func (s *Service) Accept(ctx context.Context, token string, userID uuid.UUID) (*models.TeamMember, error) {
	m, err := s.store.GetTeamMemberByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if m.Status != models.MemberPending {
		return nil, fmt.Errorf("accept invitation: %w: invitation is %s", storage.ErrConflict, m.Status)
	}
	if m.OwnerID == userID {
		return nil, fmt.Errorf("accept invitation: %w: cannot join your own team", ErrForbidden)
	}
	existing, err := s.store.FindActiveMember(ctx, m.OwnerID, userID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("accept invitation: %w: already a member as %s", storage.ErrConflict, existing.Email)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	now := time.Now().UTC()
	m.MemberUserID = &userID
	m.Status = models.MemberActive
	m.AcceptedAt = &now
	if err := s.store.UpdateTeamMember(ctx, m); err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	for _, tab := range models.AllTabs {
		p := &models.TabPermission{
			TeamMemberID: m.ID,
			Tab:          tab,
			CanView:      true,
			CanEdit:      m.Role == models.RoleEditor,
		}
		if err := s.store.UpsertTabPermission(ctx, p); err != nil {
			return nil, fmt.Errorf("accept invitation: %w", err)
		}
	}
	return m, nil
}

// Revoke marks an owner's team link as revoked. Its permissions remain but
// are ignored because the link is no longer active.
func (s *Service) Revoke(ctx context.Context, ownerID, memberID uuid.UUID) error {
	m, err := s.store.GetTeamMember(ctx, ownerID, memberID)
	if err != nil {
		return fmt.Errorf("revoke member: %w", err)
	}
	m.Status = models.MemberRevoked
	if err := s.store.UpdateTeamMember(ctx, m); err != nil {
		return fmt.Errorf("revoke member: %w", err)
	}
	return nil
}

// Remove deletes an owner's team link together with its permissions.
func (s *Service) Remove(ctx context.Context, ownerID, memberID uuid.UUID) error {
	return s.store.DeleteTeamMember(ctx, ownerID, memberID)
}

// Members lists the owner's team links.
func (s *Service) Members(ctx context.Context, ownerID uuid.UUID) ([]*models.TeamMember, error) {
	return s.store.ListTeamMembers(ctx, ownerID)
}

// SetTabPermission sets a member's access to one of the owner's tabs.
func (s *Service) SetTabPermission(ctx context.Context, ownerID, memberID uuid.UUID, tab models.Tab, canView, canEdit bool) (*models.TabPermission, error) {
	if !models.IsValidTab(string(tab)) {
		return nil, fmt.Errorf("set tab permission: unknown tab %q", tab)
	}
	if _, err := s.store.GetTeamMember(ctx, ownerID, memberID); err != nil {
		return nil, fmt.Errorf("set tab permission: %w", err)
	}
	p := &models.TabPermission{
		TeamMemberID: memberID,
		Tab:          tab,
		CanView:      canView || canEdit,
		CanEdit:      canEdit,
	}
	if err := s.store.UpsertTabPermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetItemPermission sets a member's access to one of the owner's entities.
func (s *Service) SetItemPermission(ctx context.Context, ownerID, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID, canView, canEdit bool) (*models.ItemPermission, error) {
	if !models.IsValidEntityType(string(entityType)) {
		return nil, fmt.Errorf("set item permission: unknown entity type %q", entityType)
	}
	if _, err := s.store.GetTeamMember(ctx, ownerID, memberID); err != nil {
		return nil, fmt.Errorf("set item permission: %w", err)
	}
	p := &models.ItemPermission{
		TeamMemberID: memberID,
		EntityType:   entityType,
		EntityID:     entityID,
		CanView:      canView || canEdit,
		CanEdit:      canEdit,
	}
	if err := s.store.UpsertItemPermission(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteTabPermission removes a member's tab permission.
func (s *Service) DeleteTabPermission(ctx context.Context, ownerID, memberID uuid.UUID, tab models.Tab) error {
	if _, err := s.store.GetTeamMember(ctx, ownerID, memberID); err != nil {
		return fmt.Errorf("delete tab permission: %w", err)
	}
	return s.store.DeleteTabPermission(ctx, memberID, tab)
}

// DeleteItemPermission removes a member's item permission so the tab decides again.
func (s *Service) DeleteItemPermission(ctx context.Context, ownerID, memberID uuid.UUID, entityType models.EntityType, entityID uuid.UUID) error {
	if _, err := s.store.GetTeamMember(ctx, ownerID, memberID); err != nil {
		return fmt.Errorf("delete item permission: %w", err)
	}
	return s.store.DeleteItemPermission(ctx, memberID, entityType, entityID)
}

// Permissions lists a member's tab and item permissions.
func (s *Service) Permissions(ctx context.Context, ownerID, memberID uuid.UUID) ([]*models.TabPermission, []*models.ItemPermission, error) {
	if _, err := s.store.GetTeamMember(ctx, ownerID, memberID); err != nil {
		return nil, nil, fmt.Errorf("list permissions: %w", err)
	}
	return s.store.ListPermissions(ctx, memberID)
}
