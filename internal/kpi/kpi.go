// ABOUTME: KPI progress roll-up: leaf progress from logs, parents as weighted averages.
// ABOUTME: Results are cached per node; manual overrides freeze a node but still propagate.
package kpi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

// Store is the subset of storage the roll-up needs.
type Store interface {
	GetKPI(ctx context.Context, userID uuid.UUID, idOrPrefix string) (*models.KPI, error)
	ListChildKPIs(ctx context.Context, userID, parentID uuid.UUID) ([]*models.KPI, error)
	AddKPILog(ctx context.Context, l *models.KPILog) error
	SumKPILogs(ctx context.Context, userID, kpiID uuid.UUID) (float64, error)
	GetKPIProgress(ctx context.Context, userID, kpiID uuid.UUID) (*models.KPIProgress, error)
	UpsertKPIProgress(ctx context.Context, p *models.KPIProgress) error
}

// Service recalculates and caches KPI progress.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a roll-up service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// LeafPercent is min(100, sum/target*100). A non-positive target yields 0.
func LeafPercent(sum, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return clamp(sum / target * 100)
}

// WeightedPercent averages child progress by weight. Non-positive weights count
// as zero and a zero total weight yields 0.
func WeightedPercent(children []*models.KPI, progress []*models.KPIProgress) float64 {
	var total, weighted float64
	for i, c := range children {
		w := c.Weight
		if w <= 0 {
			continue
		}
		total += w
		weighted += w * progress[i].Percent
	}
	if total == 0 {
		return 0
	}
	return clamp(weighted / total)
}

// Recalculate recomputes a KPI node, persists it, then walks up its ancestors.
func (s *Service) Recalculate(ctx context.Context, userID, kpiID uuid.UUID) (*models.KPIProgress, error) {
	k, err := s.store.GetKPI(ctx, userID, kpiID.String())
	if err != nil {
		return nil, fmt.Errorf("recalculate kpi: %w", err)
	}
	p, err := s.compute(ctx, k, map[uuid.UUID]bool{})
	if err != nil {
		return nil, err
	}
	if err := s.propagate(ctx, k); err != nil {
		return nil, err
	}
	return p, nil
}

// SetOverride pins a node's progress to percent (clamped to [0,100]) and
// propagates the change to its ancestors.
func (s *Service) SetOverride(ctx context.Context, userID, kpiID uuid.UUID, percent float64, note string) (*models.KPIProgress, error) {
	k, err := s.store.GetKPI(ctx, userID, kpiID.String())
	if err != nil {
		return nil, fmt.Errorf("set kpi override: %w", err)
	}
	children, err := s.store.ListChildKPIs(ctx, userID, k.ID)
	if err != nil {
		return nil, fmt.Errorf("set kpi override: %w", err)
	}

	percent = clamp(percent)
	p := &models.KPIProgress{
		KPIID:          k.ID,
		UserID:         userID,
		Percent:        percent,
		CurrentValue:   percent / 100 * k.TargetValue,
		ChildCount:     len(children),
		ManualOverride: true,
		CalculatedAt:   s.now(),
	}
	if note != "" {
		p.OverrideNote = &note
	}
	if err := s.store.UpsertKPIProgress(ctx, p); err != nil {
		return nil, err
	}
	if err := s.propagate(ctx, k); err != nil {
		return nil, err
	}
	return p, nil
}

// ClearOverride unpins a node, recalculates it and propagates.
func (s *Service) ClearOverride(ctx context.Context, userID, kpiID uuid.UUID) (*models.KPIProgress, error) {
	existing, err := s.store.GetKPIProgress(ctx, userID, kpiID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("clear kpi override: %w", err)
	}
	if existing != nil && existing.ManualOverride {
		existing.ManualOverride = false
		existing.OverrideNote = nil
		if err := s.store.UpsertKPIProgress(ctx, existing); err != nil {
			return nil, err
		}
	}
	return s.Recalculate(ctx, userID, kpiID)
}

// LogValue records a value against a KPI and recalculates it.
func (s *Service) LogValue(ctx context.Context, userID, kpiID uuid.UUID, value float64, day time.Time, note string) (*models.KPILog, *models.KPIProgress, error) {
	k, err := s.store.GetKPI(ctx, userID, kpiID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("log kpi value: %w", err)
	}
	if day.IsZero() {
		day = s.now()
	}
	l := models.NewKPILog(userID, k.ID, value, day)
	if note != "" {
		l.Notes = &note
	}
	if err := s.store.AddKPILog(ctx, l); err != nil {
		return nil, nil, err
	}
	p, err := s.Recalculate(ctx, userID, k.ID)
	if err != nil {
		return nil, nil, err
	}
	return l, p, nil
}

// Tree returns the KPI and its descendants with their cached progress.
func (s *Service) Tree(ctx context.Context, userID, rootID uuid.UUID) (*models.KPINode, error) {
	k, err := s.store.GetKPI(ctx, userID, rootID.String())
	if err != nil {
		return nil, fmt.Errorf("kpi tree: %w", err)
	}
	return s.tree(ctx, k, map[uuid.UUID]bool{})
}

func (s *Service) tree(ctx context.Context, k *models.KPI, seen map[uuid.UUID]bool) (*models.KPINode, error) {
	seen[k.ID] = true
	node := &models.KPINode{KPI: k}

	p, err := s.store.GetKPIProgress(ctx, k.UserID, k.ID)
	switch {
	case err == nil:
		node.Progress = p
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	children, err := s.store.ListChildKPIs(ctx, k.UserID, k.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if seen[c.ID] {
			continue
		}
		child, err := s.tree(ctx, c, seen)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// compute returns the node's progress, writing it to the cache unless the node
// is overridden. Children without a cache row are computed first.
func (s *Service) compute(ctx context.Context, k *models.KPI, visiting map[uuid.UUID]bool) (*models.KPIProgress, error) {
	existing, err := s.store.GetKPIProgress(ctx, k.UserID, k.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ManualOverride {
		return existing, nil
	}
	visiting[k.ID] = true

	children, err := s.store.ListChildKPIs(ctx, k.UserID, k.ID)
	if err != nil {
		return nil, err
	}

	p := &models.KPIProgress{
		KPIID:        k.ID,
		UserID:       k.UserID,
		ChildCount:   len(children),
		CalculatedAt: s.now(),
	}
	if len(children) == 0 {
		sum, err := s.store.SumKPILogs(ctx, k.UserID, k.ID)
		if err != nil {
			return nil, err
		}
		p.CurrentValue = sum
		p.Percent = LeafPercent(sum, k.TargetValue)
	} else {
		progress := make([]*models.KPIProgress, len(children))
		for i, c := range children {
			cp, err := s.childProgress(ctx, c, visiting)
			if err != nil {
				return nil, err
			}
			progress[i] = cp
		}
		p.Percent = WeightedPercent(children, progress)
		p.CurrentValue = p.Percent / 100 * k.TargetValue
	}

	if err := s.store.UpsertKPIProgress(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) childProgress(ctx context.Context, c *models.KPI, visiting map[uuid.UUID]bool) (*models.KPIProgress, error) {
	cp, err := s.store.GetKPIProgress(ctx, c.UserID, c.ID)
	if err == nil {
		return cp, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if visiting[c.ID] {
		return &models.KPIProgress{KPIID: c.ID, UserID: c.UserID}, nil
	}
	return s.compute(ctx, c, visiting)
}

// propagate recomputes every ancestor of k, stopping at the root or on a cycle.
func (s *Service) propagate(ctx context.Context, k *models.KPI) error {
	seen := map[uuid.UUID]bool{k.ID: true}
	parentID := k.ParentID
	for parentID != nil && !seen[*parentID] {
		seen[*parentID] = true
		parent, err := s.store.GetKPI(ctx, k.UserID, parentID.String())
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("propagate kpi progress: %w", err)
		}
		if _, err := s.compute(ctx, parent, map[uuid.UUID]bool{}); err != nil {
			return err
		}
		parentID = parent.ParentID
	}
	return nil
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
