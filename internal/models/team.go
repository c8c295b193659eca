// ABOUTME: Team sharing models: member links plus tab- and item-level permissions.
// ABOUTME: Also defines the shareable tabs and the entity types they contain.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus is the state of a team member link.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberActive  MemberStatus = "active"
	MemberRevoked MemberStatus = "revoked"
)

// MemberRole is the default role granted on invitation.
type MemberRole string

const (
	RoleViewer MemberRole = "viewer"
	RoleEditor MemberRole = "editor"
)

// IsValidMemberRole checks if a string is a valid member role.
func IsValidMemberRole(s string) bool {
	return s == string(RoleViewer) || s == string(RoleEditor)
}

// Tab is a shareable section of a user's workspace.
type Tab string

const (
	TabVisions  Tab = "visions"
	TabGoals    Tab = "goals"
	TabMINs     Tab = "mins"
	TabTime     Tab = "time"
	TabKPIs     Tab = "kpis"
	TabReviews  Tab = "reviews"
	TabRoutines Tab = "routines"
	TabLeverage Tab = "leverage"
)

// AllTabs lists every shareable tab.
var AllTabs = []Tab{TabVisions, TabGoals, TabMINs, TabTime, TabKPIs, TabReviews, TabRoutines, TabLeverage}

// IsValidTab checks if a string is a shareable tab.
func IsValidTab(s string) bool {
	for _, t := range AllTabs {
		if string(t) == s {
			return true
		}
	}
	return false
}

// EntityType names a kind of row that can carry item-level permissions.
type EntityType string

const (
	EntityVision       EntityType = "vision"
	EntityPowerGoal    EntityType = "power_goal"
	EntityTarget       EntityType = "target"
	EntityMIN          EntityType = "min"
	EntityTimeBlock    EntityType = "time_block"
	EntityKPI          EntityType = "kpi"
	EntityReview       EntityType = "review"
	EntityRoutine      EntityType = "routine"
	EntityLeverageItem EntityType = "leverage_item"
)

// TabEntity maps each tab to the entity type it lists.
var TabEntity = map[Tab]EntityType{
	TabVisions:  EntityVision,
	TabGoals:    EntityPowerGoal,
	TabMINs:     EntityMIN,
	TabTime:     EntityTimeBlock,
	TabKPIs:     EntityKPI,
	TabReviews:  EntityReview,
	TabRoutines: EntityRoutine,
	TabLeverage: EntityLeverageItem,
}

// IsValidEntityType checks if a string is a known entity type.
func IsValidEntityType(s string) bool {
	if EntityType(s) == EntityTarget {
		return true
	}
	for _, e := range TabEntity {
		if string(e) == s {
			return true
		}
	}
	return false
}

// TeamMember links a content owner to a collaborator.
type TeamMember struct {
	ID           uuid.UUID    `json:"id" yaml:"id"`
	OwnerID      uuid.UUID    `json:"owner_id" yaml:"owner_id"`
	MemberUserID *uuid.UUID   `json:"member_user_id,omitempty" yaml:"member_user_id,omitempty"`
	Email        string       `json:"email" yaml:"email"`
	Role         MemberRole   `json:"role" yaml:"role"`
	Status       MemberStatus `json:"status" yaml:"status"`
	InviteToken  string       `json:"-" yaml:"-"`
	InvitedAt    time.Time    `json:"invited_at" yaml:"invited_at"`
	AcceptedAt   *time.Time   `json:"accepted_at,omitempty" yaml:"accepted_at,omitempty"`
}

// NewTeamMember creates a pending invitation.
func NewTeamMember(ownerID uuid.UUID, email string, role MemberRole, token string) *TeamMember {
	return &TeamMember{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Email:       email,
		Role:        role,
		Status:      MemberPending,
		InviteToken: token,
		InvitedAt:   time.Now().UTC(),
	}
}

// TabPermission grants access to a whole tab.
type TabPermission struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	TeamMemberID uuid.UUID `json:"team_member_id" yaml:"team_member_id"`
	Tab          Tab       `json:"tab" yaml:"tab"`
	CanView      bool      `json:"can_view" yaml:"can_view"`
	CanEdit      bool      `json:"can_edit" yaml:"can_edit"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// ItemPermission grants access to a single entity and overrides its tab.
type ItemPermission struct {
	ID           uuid.UUID  `json:"id" yaml:"id"`
	TeamMemberID uuid.UUID  `json:"team_member_id" yaml:"team_member_id"`
	EntityType   EntityType `json:"entity_type" yaml:"entity_type"`
	EntityID     uuid.UUID  `json:"entity_id" yaml:"entity_id"`
	CanView      bool       `json:"can_view" yaml:"can_view"`
	CanEdit      bool       `json:"can_edit" yaml:"can_edit"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
}
