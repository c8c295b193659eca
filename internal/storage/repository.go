// ABOUTME: Repository interface for Goal Achiever Pro data storage.
// ABOUTME: Groups per-entity store contracts; every call is scoped to a user.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
)

// VisionStore persists visions.
type VisionStore interface {
	CreateVision(ctx context.Context, v *models.Vision) error
	GetVision(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Vision, error)
	ListVisions(ctx context.Context, userID uuid.UUID) ([]*models.Vision, error)
	UpdateVision(ctx context.Context, v *models.Vision) error
	DeleteVision(ctx context.Context, userID uuid.UUID, idOrPrefix string) error
}

// PowerGoalFilter narrows ListPowerGoals. Zero values mean "any".
type PowerGoalFilter struct {
	VisionID *uuid.UUID
	Status   *models.GoalStatus
	Year     int
}

// GoalStore persists power goals and their targets.
type GoalStore interface {
	CreatePowerGoal(ctx context.Context, g *models.PowerGoal) error
	GetPowerGoal(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.PowerGoal, error)
	ListPowerGoals(ctx context.Context, userID uuid.UUID, f PowerGoalFilter) ([]*models.PowerGoal, error)
	UpdatePowerGoal(ctx context.Context, g *models.PowerGoal) error
	DeletePowerGoal(ctx context.Context, userID uuid.UUID, idOrPrefix string) error

	CreateTarget(ctx context.Context, t *models.Target) error
	GetTarget(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Target, error)
	ListTargets(ctx context.Context, userID uuid.UUID, powerGoalID *uuid.UUID, level *models.TargetLevel) ([]*models.Target, error)
	UpdateTarget(ctx context.Context, t *models.Target) error
	DeleteTarget(ctx context.Context, userID uuid.UUID, idOrPrefix string) error
}

// MINFilter narrows ListMINs. A nil Due lists every date.
type MINFilter struct {
	Due              *time.Time
	IncludeCompleted bool
	Limit            int
}

// MINStore persists MINs.
type MINStore interface {
	CreateMIN(ctx context.Context, m *models.MIN) error
	GetMIN(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.MIN, error)
	ListMINs(ctx context.Context, userID uuid.UUID, f MINFilter) ([]*models.MIN, error)
	UpdateMIN(ctx context.Context, m *models.MIN) error
	DeleteMIN(ctx context.Context, userID uuid.UUID, idOrPrefix string) error
}

// TimeBlockStore persists time blocks.
type TimeBlockStore interface {
	CreateTimeBlock(ctx context.Context, b *models.TimeBlock) error
	GetTimeBlock(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.TimeBlock, error)
	GetTimeBlockByExternalID(ctx context.Context, userID uuid.UUID, externalID string) (*models.TimeBlock, error)
	ListTimeBlocks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.TimeBlock, error)
	UpdateTimeBlock(ctx context.Context, b *models.TimeBlock) error
	DeleteTimeBlock(ctx context.Context, userID uuid.UUID, idOrPrefix string) error
	CategorizeTimeBlocks(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, quadrant *models.DripQuadrant, energy *models.EnergyRating) (int, error)
}

// KPIStore persists KPI nodes, logs, and the progress cache.
type KPIStore interface {
	CreateKPI(ctx context.Context, k *models.KPI) error
	GetKPI(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.KPI, error)
	ListKPIs(ctx context.Context, userID uuid.UUID) ([]*models.KPI, error)
	ListChildKPIs(ctx context.Context, userID, parentID uuid.UUID) ([]*models.KPI, error)
	DeleteKPI(ctx context.Context, userID uuid.UUID, idOrPrefix string) error

	AddKPILog(ctx context.Context, l *models.KPILog) error
	ListKPILogs(ctx context.Context, userID, kpiID uuid.UUID) ([]*models.KPILog, error)
	SumKPILogs(ctx context.Context, userID, kpiID uuid.UUID) (float64, error)

	GetKPIProgress(ctx context.Context, userID, kpiID uuid.UUID) (*models.KPIProgress, error)
	UpsertKPIProgress(ctx context.Context, p *models.KPIProgress) error
}

// JournalStore persists daily reviews, routines, and leverage items.
type JournalStore interface {
	UpsertDailyReview(ctx context.Context, r *models.DailyReview) (*models.DailyReview, error)
	GetDailyReview(ctx context.Context, userID uuid.UUID, day time.Time) (*models.DailyReview, error)
	ListDailyReviews(ctx context.Context, userID uuid.UUID, limit int) ([]*models.DailyReview, error)

	CreateRoutine(ctx context.Context, r *models.Routine) error
	GetRoutine(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID uuid.UUID) ([]*models.Routine, error)
	DeleteRoutine(ctx context.Context, userID uuid.UUID, idOrPrefix string) error

	CreateLeverageItem(ctx context.Context, l *models.LeverageItem) error
	GetLeverageItem(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.LeverageItem, error)
	ListLeverageItems(ctx context.Context, userID uuid.UUID) ([]*models.LeverageItem, error)
	DeleteLeverageItem(ctx context.Context, userID uuid.UUID, idOrPrefix string) error

	CreateFeedback(ctx context.Context, f *models.Feedback) error
}

// ProgressStore persists gamification state.
type ProgressStore interface {
	GetUserProgress(ctx context.Context, userID uuid.UUID) (*models.UserProgress, error)
	SaveUserProgress(ctx context.Context, p *models.UserProgress) error
}

// TeamStore persists team links and sharing permissions.
type TeamStore interface {
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

// BillingStore persists subscriptions and calendar connections.
type BillingStore interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetSubscriptionByCustomer(ctx context.Context, customerID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, s *models.Subscription) error

	GetCalendarConnection(ctx context.Context, userID uuid.UUID) (*models.CalendarConnection, error)
	UpsertCalendarConnection(ctx context.Context, c *models.CalendarConnection) error
	DeleteCalendarConnection(ctx context.Context, userID uuid.UUID) error
}

// Repository defines the storage interface for all application data.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	VisionStore
	GoalStore
	MINStore
	TimeBlockStore
	KPIStore
	JournalStore
	ProgressStore
	TeamStore
	BillingStore

	// Export/Import
	UserIDs(ctx context.Context) ([]uuid.UUID, error)
	GetAllData(ctx context.Context, userID uuid.UUID) (*ExportData, error)
	ImportData(ctx context.Context, data *ExportData) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
