// ABOUTME: Tests for export and import of a user's planning data.
// ABOUTME: Covers JSON round trips, YAML and Markdown rendering, and KPI ordering.
package storage

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"gopkg.in/yaml.v3"
)

func seedUser(t *testing.T, db *DB, user uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	v := models.NewVision(user, "Financial freedom").WithScores(90, 80, 70)
	g := models.NewPowerGoal(user, "Launch course").WithVision(v.ID).WithQuarter(2026, 2)
	target := models.NewTarget(user, g.ID, models.TargetMonthly, "Record module 1", time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC))
	m := models.NewMIN(user, "Outline lesson", time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC))
	start := time.Date(2026, 4, 9, 8, 0, 0, 0, time.UTC)
	b := models.NewTimeBlock(user, "Filming", start, start.Add(90*time.Minute)).
		WithQuadrant(models.DripProduction).
		WithRecurrence("FREQ=WEEKLY;BYDAY=TH")
	root := models.NewKPI(user, "Course sales", models.KPIQuarterly, 100)
	leaf := models.NewKPI(user, "April sales", models.KPIMonthly, 30).WithParent(root.ID)
	review := models.NewDailyReview(user, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC))
	review.Wins = []string{"Filmed intro"}
	routine := models.NewRoutine(user, "Shutdown")
	lev := models.NewLeverageItem(user, models.LeverageContent, "Evergreen webinar")

	steps := []func() error{
		func() error { return db.CreateVision(ctx, v) },
		func() error { return db.CreatePowerGoal(ctx, g) },
		func() error { return db.CreateTarget(ctx, target) },
		func() error { return db.CreateMIN(ctx, m) },
		func() error { return db.CreateTimeBlock(ctx, b) },
		func() error { return db.CreateKPI(ctx, root) },
		func() error { return db.CreateKPI(ctx, leaf) },
		func() error { return db.AddKPILog(ctx, models.NewKPILog(user, leaf.ID, 12, time.Now())) },
		func() error {
			return db.UpsertKPIProgress(ctx, &models.KPIProgress{KPIID: leaf.ID, UserID: user, Percent: 40, CalculatedAt: time.Now()})
		},
		func() error { _, err := db.UpsertDailyReview(ctx, review); return err },
		func() error { return db.CreateRoutine(ctx, routine) },
		func() error { return db.CreateLeverageItem(ctx, lev) },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("seed step %d failed: %v", i, err)
		}
	}
}

func TestGetAllDataIsPerUser(t *testing.T) {
	db := setupTestDB(t)
	user, other := uuid.New(), uuid.New()
	seedUser(t, db, user)
	seedUser(t, db, other)

	data, err := db.GetAllData(context.Background(), user)
	if err != nil {
		t.Fatalf("GetAllData failed: %v", err)
	}
	if data.UserID != user || data.Tool != "goalpro" {
		t.Errorf("unexpected header: %+v", data)
	}
	if len(data.Visions) != 1 || len(data.KPIs) != 2 || len(data.KPILogs) != 1 || len(data.KPIProgress) != 1 {
		t.Errorf("unexpected counts: visions=%d kpis=%d logs=%d progress=%d",
			len(data.Visions), len(data.KPIs), len(data.KPILogs), len(data.KPIProgress))
	}
	if data.Records() != 11 {
		t.Errorf("Records() = %d, want 11", data.Records())
	}
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	dst := setupTestDB(t)
	ctx := context.Background()
	user := uuid.New()
	seedUser(t, src, user)

	raw, err := src.ExportJSON(ctx, user)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if decoded["version"] != "1.0" {
		t.Errorf("version = %v", decoded["version"])
	}

	if err := dst.ImportJSON(ctx, raw); err != nil {
		t.Fatalf("ImportJSON failed: %v", err)
	}

	before, _ := src.GetAllData(ctx, user)
	after, err := dst.GetAllData(ctx, user)
	if err != nil {
		t.Fatalf("GetAllData on destination failed: %v", err)
	}
	if after.Records() != before.Records() {
		t.Errorf("records: got %d, want %d", after.Records(), before.Records())
	}
	if after.TimeBlocks[0].Recurrence == nil || *after.TimeBlocks[0].Recurrence != "FREQ=WEEKLY;BYDAY=TH" {
		t.Errorf("recurrence lost in round trip")
	}
	if after.KPIProgress[0].Percent != 40 {
		t.Errorf("KPI progress lost in round trip")
	}
	if len(after.Reviews) != 1 || after.Reviews[0].Wins[0] != "Filmed intro" {
		t.Errorf("review lost in round trip: %+v", after.Reviews)
	}

	if err := dst.ImportJSON(ctx, []byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestExportYAML(t *testing.T) {
	db := setupTestDB(t)
	user := uuid.New()
	seedUser(t, db, user)

	raw, err := db.ExportYAML(context.Background(), user)
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}

	var parsed struct {
		Tool    string `yaml:"tool"`
		Visions []struct {
			Title     string `yaml:"title"`
			RuleScore int    `yaml:"rule_score"`
			Goals     []struct {
				Title   string   `yaml:"title"`
				Targets []string `yaml:"targets"`
			} `yaml:"goals"`
		} `yaml:"visions"`
		MINs map[string][]struct {
			Title string `yaml:"title"`
		} `yaml:"mins"`
	}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if parsed.Tool != "goalpro" || len(parsed.Visions) != 1 {
		t.Fatalf("unexpected YAML: %s", raw)
	}
	v := parsed.Visions[0]
	if v.RuleScore != 240 || len(v.Goals) != 1 || len(v.Goals[0].Targets) != 1 {
		t.Errorf("goals should nest under their vision: %+v", v)
	}
	if len(parsed.MINs["2026-04-09"]) != 1 {
		t.Errorf("MINs should group by due date: %+v", parsed.MINs)
	}
}

func TestExportMarkdown(t *testing.T) {
	db := setupTestDB(t)
	user := uuid.New()
	seedUser(t, db, user)

	md, err := db.ExportMarkdown(context.Background(), user)
	if err != nil {
		t.Fatalf("ExportMarkdown failed: %v", err)
	}
	for _, want := range []string{
		"# Goal Achiever Pro Export",
		"## Visions",
		"| Financial freedom | 90 | 80 | 70 | 240/300 |",
		"## Power Goals",
		"Q2 2026",
		"## Time Blocks",
		"production",
		"## KPIs",
		"### 2026-04-09",
		"- Win: Filmed intro",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportMarkdownEmpty(t *testing.T) {
	db := setupTestDB(t)
	md, err := db.ExportMarkdown(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ExportMarkdown failed: %v", err)
	}
	if strings.Contains(md, "## Visions") {
		t.Error("empty export should not render section headers")
	}
}

func TestParentsFirst(t *testing.T) {
	user := uuid.New()
	root := models.NewKPI(user, "root", models.KPIAnnual, 1)
	mid := models.NewKPI(user, "mid", models.KPIQuarterly, 1).WithParent(root.ID)
	leaf := models.NewKPI(user, "leaf", models.KPIMonthly, 1).WithParent(mid.ID)
	orphan := models.NewKPI(user, "orphan", models.KPIMonthly, 1).WithParent(uuid.New())

	ordered := parentsFirst([]*models.KPI{leaf, orphan, mid, root})
	if len(ordered) != 4 {
		t.Fatalf("got %d nodes, want 4", len(ordered))
	}
	pos := map[string]int{}
	for i, k := range ordered {
		pos[k.Title] = i
	}
	if !(pos["root"] < pos["mid"] && pos["mid"] < pos["leaf"]) {
		t.Errorf("parents must precede children: %v", pos)
	}

	a := models.NewKPI(user, "a", models.KPIAnnual, 1)
	b := models.NewKPI(user, "b", models.KPIAnnual, 1).WithParent(a.ID)
	a.WithParent(b.ID)
	if got := parentsFirst([]*models.KPI{a, b}); len(got) != 2 {
		t.Errorf("cycle should still yield every node, got %d", len(got))
	}
}
