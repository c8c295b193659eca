// ABOUTME: Tests for KPI progress roll-up, overrides and tree views.
// ABOUTME: Uses a temp SQLite database plus an in-memory store for cyclic trees.
package kpi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
)

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "goalpro-kpi-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := storage.Open(filepath.Join(tmpDir, "goalpro.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedTree creates a parent with two leaf children weighted 1 and 3.
func seedTree(t *testing.T, db *storage.DB, user uuid.UUID) (parent, a, b *models.KPI) {
	t.Helper()
	ctx := context.Background()

	parent = models.NewKPI(user, "Revenue", models.KPIAnnual, 100)
	a = models.NewKPI(user, "Calls", models.KPIWeekly, 10).WithParent(parent.ID)
	b = models.NewKPI(user, "Demos", models.KPIWeekly, 10).WithParent(parent.ID).WithWeight(3)
	for _, k := range []*models.KPI{parent, a, b} {
		if err := db.CreateKPI(ctx, k); err != nil {
			t.Fatalf("CreateKPI(%s) failed: %v", k.Title, err)
		}
	}
	return parent, a, b
}

func progressOf(t *testing.T, db *storage.DB, user, id uuid.UUID) *models.KPIProgress {
	t.Helper()
	p, err := db.GetKPIProgress(context.Background(), user, id)
	if err != nil {
		t.Fatalf("GetKPIProgress failed: %v", err)
	}
	return p
}

func TestLeafPercent(t *testing.T) {
	tests := []struct {
		sum, target, want float64
	}{
		{5, 10, 50},
		{10, 10, 100},
		{25, 10, 100},
		{0, 10, 0},
		{5, 0, 0},
		{5, -1, 0},
		{-5, 10, 0},
	}
	for _, tt := range tests {
		if got := LeafPercent(tt.sum, tt.target); got != tt.want {
			t.Errorf("LeafPercent(%v, %v) = %v, want %v", tt.sum, tt.target, got, tt.want)
		}
	}
}

func TestWeightedPercent(t *testing.T) {
	user := uuid.New()
	a := models.NewKPI(user, "a", models.KPIDaily, 1)
	b := models.NewKPI(user, "b", models.KPIDaily, 1).WithWeight(3)
	zero := models.NewKPI(user, "z", models.KPIDaily, 1).WithWeight(0)
	negative := models.NewKPI(user, "n", models.KPIDaily, 1).WithWeight(-2)

	got := WeightedPercent(
		[]*models.KPI{a, b, zero, negative},
		[]*models.KPIProgress{{Percent: 100}, {Percent: 0}, {Percent: 100}, {Percent: 100}},
	)
	if got != 25 {
		t.Errorf("WeightedPercent = %v, want 25", got)
	}

	got = WeightedPercent([]*models.KPI{zero}, []*models.KPIProgress{{Percent: 80}})
	if got != 0 {
		t.Errorf("WeightedPercent with zero total weight = %v, want 0", got)
	}
}

func TestLogValueRollsUp(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	parent, a, b := seedTree(t, db, user)
	svc := NewService(db)

	l, p, err := svc.LogValue(ctx, user, a.ID, 10, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "great week")
	if err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}
	if l.Notes == nil || *l.Notes != "great week" {
		t.Errorf("log notes = %v, want 'great week'", l.Notes)
	}
	if p.Percent != 100 || p.CurrentValue != 10 {
		t.Errorf("leaf progress = %v%% (%v), want 100%% (10)", p.Percent, p.CurrentValue)
	}

	// b had no cache row, so it is computed as 0 before the parent averages.
	if got := progressOf(t, db, user, b.ID).Percent; got != 0 {
		t.Errorf("sibling progress = %v, want 0", got)
	}
	pp := progressOf(t, db, user, parent.ID)
	if pp.Percent != 25 {
		t.Errorf("parent progress = %v, want 25", pp.Percent)
	}
	if pp.ChildCount != 2 {
		t.Errorf("parent child count = %d, want 2", pp.ChildCount)
	}
	if pp.CurrentValue != 25 {
		t.Errorf("parent current value = %v, want 25", pp.CurrentValue)
	}
}

func TestLogValueUnknownKPI(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, _, err := svc.LogValue(context.Background(), uuid.New(), uuid.New(), 1, time.Time{}, "")
	if err == nil {
		t.Fatal("Expected error for unknown KPI")
	}
}

func TestOverrideFreezesAndPropagates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	parent, a, b := seedTree(t, db, user)
	svc := NewService(db)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	if _, _, err := svc.LogValue(ctx, user, a.ID, 10, day, ""); err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}

	p, err := svc.SetOverride(ctx, user, b.ID, 50, "manager estimate")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if !p.ManualOverride || p.OverrideNote == nil || *p.OverrideNote != "manager estimate" {
		t.Errorf("override row = %+v", p)
	}
	if got := progressOf(t, db, user, parent.ID).Percent; got != 62.5 {
		t.Errorf("parent after override = %v, want 62.5", got)
	}

	// Logging against an overridden node keeps the frozen value.
	if _, _, err := svc.LogValue(ctx, user, b.ID, 10, day, ""); err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}
	if got := progressOf(t, db, user, b.ID).Percent; got != 50 {
		t.Errorf("overridden progress = %v, want 50", got)
	}
	if got := progressOf(t, db, user, parent.ID).Percent; got != 62.5 {
		t.Errorf("parent with frozen child = %v, want 62.5", got)
	}

	cleared, err := svc.ClearOverride(ctx, user, b.ID)
	if err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if cleared.ManualOverride || cleared.OverrideNote != nil {
		t.Errorf("cleared row still overridden: %+v", cleared)
	}
	if cleared.Percent != 100 {
		t.Errorf("cleared progress = %v, want 100", cleared.Percent)
	}
	if got := progressOf(t, db, user, parent.ID).Percent; got != 100 {
		t.Errorf("parent after clear = %v, want 100", got)
	}
}

func TestOverrideOnParentIsKeptOnRecalculate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	parent, a, _ := seedTree(t, db, user)
	svc := NewService(db)

	if _, err := svc.SetOverride(ctx, user, parent.ID, 90, ""); err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if _, _, err := svc.LogValue(ctx, user, a.ID, 5, time.Time{}, ""); err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}
	pp := progressOf(t, db, user, parent.ID)
	if pp.Percent != 90 || !pp.ManualOverride {
		t.Errorf("parent = %v%% override=%v, want 90%% override=true", pp.Percent, pp.ManualOverride)
	}
	if pp.OverrideNote != nil {
		t.Errorf("empty note stored as %q", *pp.OverrideNote)
	}
}

func TestSetOverrideClamps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	_, a, _ := seedTree(t, db, user)
	svc := NewService(db)

	p, err := svc.SetOverride(ctx, user, a.ID, 150, "")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if p.Percent != 100 {
		t.Errorf("percent = %v, want 100", p.Percent)
	}
	p, err = svc.SetOverride(ctx, user, a.ID, -20, "")
	if err != nil {
		t.Fatalf("SetOverride failed: %v", err)
	}
	if p.Percent != 0 {
		t.Errorf("percent = %v, want 0", p.Percent)
	}
}

func TestClearOverrideWithoutCacheRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	_, a, _ := seedTree(t, db, user)

	p, err := NewService(db).ClearOverride(ctx, user, a.ID)
	if err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if p.Percent != 0 || p.ManualOverride {
		t.Errorf("progress = %+v, want fresh 0%%", p)
	}
}

func TestTree(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	parent, a, _ := seedTree(t, db, user)
	svc := NewService(db)

	if _, _, err := svc.LogValue(ctx, user, a.ID, 4, time.Time{}, ""); err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}

	root, err := svc.Tree(ctx, user, parent.ID)
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if root.KPI.ID != parent.ID {
		t.Errorf("root = %s, want %s", root.KPI.ID, parent.ID)
	}
	if len(root.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(root.Children))
	}
	if root.Progress == nil || root.Progress.Percent != 10 {
		t.Errorf("root progress = %+v, want 10%%", root.Progress)
	}
	for _, child := range root.Children {
		if child.KPI.ID != a.ID {
			continue
		}
		if child.Progress == nil || child.Progress.Percent != 40 {
			t.Errorf("logged child progress = %+v, want 40%%", child.Progress)
		}
	}

	if _, err := svc.Tree(ctx, uuid.New(), parent.ID); err == nil {
		t.Error("Expected error reading another user's tree")
	}
}

// memStore is an in-memory Store that permits parent cycles.
type memStore struct {
	kpis     map[uuid.UUID]*models.KPI
	sums     map[uuid.UUID]float64
	progress map[uuid.UUID]*models.KPIProgress
}

func newMemStore(kpis ...*models.KPI) *memStore {
	m := &memStore{
		kpis:     map[uuid.UUID]*models.KPI{},
		sums:     map[uuid.UUID]float64{},
		progress: map[uuid.UUID]*models.KPIProgress{},
	}
	for _, k := range kpis {
		m.kpis[k.ID] = k
	}
	return m
}

func (m *memStore) GetKPI(_ context.Context, _ uuid.UUID, id string) (*models.KPI, error) {
	k, ok := m.kpis[uuid.MustParse(id)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return k, nil
}

func (m *memStore) ListChildKPIs(_ context.Context, _, parentID uuid.UUID) ([]*models.KPI, error) {
	var out []*models.KPI
	for _, k := range m.kpis {
		if k.ParentID != nil && *k.ParentID == parentID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) AddKPILog(_ context.Context, l *models.KPILog) error {
	m.sums[l.KPIID] += l.Value
	return nil
}

func (m *memStore) SumKPILogs(_ context.Context, _, kpiID uuid.UUID) (float64, error) {
	return m.sums[kpiID], nil
}

func (m *memStore) GetKPIProgress(_ context.Context, _, kpiID uuid.UUID) (*models.KPIProgress, error) {
	p, ok := m.progress[kpiID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpsertKPIProgress(_ context.Context, p *models.KPIProgress) error {
	cp := *p
	m.progress[p.KPIID] = &cp
	return nil
}

func TestRecalculateTerminatesOnCycle(t *testing.T) {
	user := uuid.New()
	a := models.NewKPI(user, "a", models.KPIMonthly, 10)
	b := models.NewKPI(user, "b", models.KPIMonthly, 10)
	a.WithParent(b.ID)
	b.WithParent(a.ID)
	store := newMemStore(a, b)
	svc := NewService(store)
	ctx := context.Background()

	if _, _, err := svc.LogValue(ctx, user, a.ID, 5, time.Time{}, ""); err != nil {
		t.Fatalf("LogValue failed: %v", err)
	}
	if _, ok := store.progress[a.ID]; !ok {
		t.Error("Expected cached progress for a")
	}
	if _, ok := store.progress[b.ID]; !ok {
		t.Error("Expected cached progress for b")
	}
	if _, err := svc.Tree(ctx, user, a.ID); err != nil {
		t.Fatalf("Tree on cycle failed: %v", err)
	}
}
