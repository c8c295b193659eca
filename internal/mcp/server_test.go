// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Handlers are called directly against a temp SQLite database and a fixed clock.
package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// setupTestServer creates a server over a temp database with a fixed clock.
func setupTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "goalpro.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	server, err := NewServer(db, uuid.New(), time.UTC)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	server.now = func() time.Time { return fixedNow }
	return server, db
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t)

	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.repo == nil {
		t.Error("Expected non-nil repo")
	}
	if server.userID == uuid.Nil {
		t.Error("Expected a user id")
	}
}

func TestHandleAddVision(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   addVisionInput
		wantErr bool
	}{
		{"title only", addVisionInput{Title: "Write a book"}, false},
		{"with scores and date", addVisionInput{Title: "Run a marathon", TargetDate: "2027-04-01", Clarity: 80, Belief: 60, Consistency: 70}, false},
		{"missing title", addVisionInput{Title: "  "}, true},
		{"bad date", addVisionInput{Title: "x", TargetDate: "next spring"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleAddVision(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(out.ID) != 8 {
				t.Errorf("ID = %q, want an 8-character prefix", out.ID)
			}
			if _, err := db.GetVision(ctx, server.userID, out.ID); err != nil {
				t.Errorf("vision not stored: %v", err)
			}
		})
	}

	p, err := db.GetUserProgress(ctx, server.userID)
	if err != nil {
		t.Fatalf("GetUserProgress failed: %v", err)
	}
	if want := 2 * models.ActionXP[models.ActionVisionCreated]; p.TotalXP != want {
		t.Errorf("TotalXP = %d, want %d", p.TotalXP, want)
	}
}

func TestHandleListVisionsEmpty(t *testing.T) {
	server, _ := setupTestServer(t)

	_, out, err := server.handleListVisions(context.Background(), &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["message"] != "No visions found." {
		t.Errorf("got %v, want empty message", out)
	}
}

func TestHandleAddPowerGoalUnderVision(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	_, v, err := server.handleAddVision(ctx, &mcp.CallToolRequest{}, addVisionInput{Title: "Health"})
	if err != nil {
		t.Fatalf("add vision: %v", err)
	}

	_, out, err := server.handleAddPowerGoal(ctx, &mcp.CallToolRequest{}, addPowerGoalInput{Title: "Lose 5kg", VisionID: v.ID, Quarter: 2})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	g, err := db.GetPowerGoal(ctx, server.userID, out.ID)
	if err != nil {
		t.Fatalf("power goal not stored: %v", err)
	}
	if g.VisionID == nil || !strings.HasPrefix(g.VisionID.String(), v.ID) {
		t.Errorf("VisionID = %v, want prefix %s", g.VisionID, v.ID)
	}

	if _, _, err := server.handleAddPowerGoal(ctx, &mcp.CallToolRequest{}, addPowerGoalInput{Title: "x", VisionID: "ffffffff"}); err == nil {
		t.Error("Expected error for unknown vision")
	}
	if _, _, err := server.handleListPowerGoals(ctx, &mcp.CallToolRequest{}, listPowerGoalsInput{Status: "someday"}); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestMINFlow(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	_, added, err := server.handleAddMIN(ctx, &mcp.CallToolRequest{}, addMINInput{Title: "Call the bank", Priority: 2})
	if err != nil {
		t.Fatalf("add MIN: %v", err)
	}
	if !strings.Contains(added.Message, "2026-03-10") {
		t.Errorf("Message = %q, want today's date", added.Message)
	}

	_, listed, err := server.handleListMINs(ctx, &mcp.CallToolRequest{}, listMINsInput{})
	if err != nil {
		t.Fatalf("list MINs: %v", err)
	}
	mins := listed.(map[string]any)["mins"].([]*models.MIN)
	if len(mins) != 1 || mins[0].Priority != 2 {
		t.Fatalf("mins = %+v", mins)
	}

	_, done, err := server.handleCompleteMIN(ctx, &mcp.CallToolRequest{}, idInput{ID: added.ID})
	if err != nil {
		t.Fatalf("complete MIN: %v", err)
	}
	if !strings.Contains(done.Message, "XP") {
		t.Errorf("Message = %q, want XP note", done.Message)
	}
	if _, again, err := server.handleCompleteMIN(ctx, &mcp.CallToolRequest{}, idInput{ID: added.ID}); err != nil || !strings.Contains(again.Message, "already") {
		t.Errorf("second completion = %q, %v", again.Message, err)
	}

	p, err := db.GetUserProgress(ctx, server.userID)
	if err != nil {
		t.Fatalf("GetUserProgress failed: %v", err)
	}
	if p.TotalXP != models.ActionXP[models.ActionMINCompleted] {
		t.Errorf("TotalXP = %d, want one MIN completion", p.TotalXP)
	}

	_, listed, err = server.handleListMINs(ctx, &mcp.CallToolRequest{}, listMINsInput{})
	if err != nil {
		t.Fatalf("list MINs: %v", err)
	}
	if m, ok := listed.(map[string]any); !ok || m["message"] != "No MINs found." {
		t.Errorf("completed MIN still listed: %v", listed)
	}

	if _, _, err := server.handleCompleteMIN(ctx, &mcp.CallToolRequest{}, idInput{ID: "00000000"}); err == nil {
		t.Error("Expected error for unknown MIN")
	}
}

func TestTimeBlockTools(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx := context.Background()

	_, _, err := server.handleAddTimeBlock(ctx, &mcp.CallToolRequest{}, addTimeBlockInput{
		Title:      "Standup",
		Start:      "2026-03-09 09:00",
		Minutes:    30,
		Quadrant:   "production",
		Energy:     "neutral",
		Recurrence: "freq=daily",
	})
	if err != nil {
		t.Fatalf("add time block: %v", err)
	}

	_, out, err := server.handleListTimeBlocks(ctx, &mcp.CallToolRequest{}, windowInput{From: "2026-03-09", Days: 3})
	if err != nil {
		t.Fatalf("list time blocks: %v", err)
	}
	occs := out.(map[string]any)["occurrences"].([]models.Occurrence)
	if len(occs) != 3 {
		t.Fatalf("got %d occurrences, want 3", len(occs))
	}
	if !occs[0].Recurring {
		t.Error("Expected recurring occurrences")
	}

	_, out, err = server.handleTimeSummary(ctx, &mcp.CallToolRequest{}, windowInput{From: "2026-03-09", Days: 3})
	if err != nil {
		t.Fatalf("time summary: %v", err)
	}
	summary := out.(models.DripSummary)
	if summary.Minutes[models.DripProduction] != 90 {
		t.Errorf("production minutes = %d, want 90", summary.Minutes[models.DripProduction])
	}

	invalid := []addTimeBlockInput{
		{Title: "x", Start: "2026-03-09 09:00", Minutes: 0},
		{Title: "x", Start: "tomorrow", Minutes: 10},
		{Title: "x", Start: "2026-03-09 09:00", Minutes: 10, Quadrant: "fun"},
		{Title: "x", Start: "2026-03-09 09:00", Minutes: 10, Energy: "sleepy"},
	}
	for _, in := range invalid {
		if _, _, err := server.handleAddTimeBlock(ctx, &mcp.CallToolRequest{}, in); err == nil {
			t.Errorf("Expected error for %+v", in)
		}
	}
}

func TestKPITools(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	k := models.NewKPI(server.userID, "Pages written", models.KPIMonthly, 200)
	if err := db.CreateKPI(ctx, k); err != nil {
		t.Fatalf("CreateKPI failed: %v", err)
	}

	_, out, err := server.handleLogKPI(ctx, &mcp.CallToolRequest{}, logKPIInput{ID: k.ID.String()[:8], Value: 50})
	if err != nil {
		t.Fatalf("log KPI: %v", err)
	}
	p := out.(map[string]any)["progress"].(*models.KPIProgress)
	if p.Percent != 25 {
		t.Errorf("Percent = %v, want 25", p.Percent)
	}

	_, tree, err := server.handleKPITree(ctx, &mcp.CallToolRequest{}, idInput{ID: k.ID.String()})
	if err != nil {
		t.Fatalf("kpi tree: %v", err)
	}
	node := tree.(*models.KPINode)
	if node.KPI.ID != k.ID || node.Progress == nil || node.Progress.Percent != 25 {
		t.Errorf("tree = %+v", node)
	}

	if _, _, err := server.handleLogKPI(ctx, &mcp.CallToolRequest{}, logKPIInput{ID: "missing", Value: 1}); err == nil {
		t.Error("Expected error for unknown KPI")
	}
}

func TestHandleDailyReviewAwardsOnce(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()
	input := dailyReviewInput{Wins: []string{"finished draft"}, EnergyLevel: 7}

	if _, _, err := server.handleDailyReview(ctx, &mcp.CallToolRequest{}, input); err != nil {
		t.Fatalf("first review: %v", err)
	}
	input.Gratitude = "coffee"
	if _, _, err := server.handleDailyReview(ctx, &mcp.CallToolRequest{}, input); err != nil {
		t.Fatalf("second review: %v", err)
	}

	r, err := db.GetDailyReview(ctx, server.userID, fixedNow)
	if err != nil {
		t.Fatalf("GetDailyReview failed: %v", err)
	}
	if r.Gratitude == nil || *r.Gratitude != "coffee" {
		t.Errorf("Gratitude = %v, want coffee", r.Gratitude)
	}

	_, out, err := server.handleGetProgress(ctx, &mcp.CallToolRequest{}, emptyInput{})
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	progress := out.(map[string]any)["progress"].(*models.UserProgress)
	if progress.TotalXP != models.ActionXP[models.ActionDailyReview] {
		t.Errorf("TotalXP = %d, want a single review award", progress.TotalXP)
	}
}

func TestHandleTodayResource(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	if err := db.CreateMIN(ctx, models.NewMIN(server.userID, "Today", fixedNow)); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateMIN(ctx, models.NewMIN(server.userID, "Tomorrow", fixedNow.AddDate(0, 0, 1))); err != nil {
		t.Fatal(err)
	}
	b := models.NewTimeBlock(server.userID, "Focus", fixedNow.Add(-time.Hour), fixedNow)
	if err := db.CreateTimeBlock(ctx, b); err != nil {
		t.Fatal(err)
	}

	result, err := server.handleTodayResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Contents[0].URI != "goalpro://today" {
		t.Errorf("URI = %s, want goalpro://today", result.Contents[0].URI)
	}

	var body struct {
		Date   string         `json:"date"`
		Counts map[string]int `json:"counts"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Date != "2026-03-10" {
		t.Errorf("date = %s", body.Date)
	}
	if body.Counts["mins"] != 1 || body.Counts["time_blocks"] != 1 {
		t.Errorf("counts = %v", body.Counts)
	}
}

func TestHandleWeekAndSummaryResources(t *testing.T) {
	server, db := setupTestServer(t)
	ctx := context.Background()

	v := models.NewVision(server.userID, "Freedom").WithScores(90, 80, 70)
	if err := db.CreateVision(ctx, v); err != nil {
		t.Fatal(err)
	}
	g := models.NewPowerGoal(server.userID, "Launch course")
	if err := db.CreatePowerGoal(ctx, g); err != nil {
		t.Fatal(err)
	}

	week, err := server.handleWeekResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("week resource: %v", err)
	}
	if week.Contents[0].MIMEType != "application/json" {
		t.Errorf("MIMEType = %s", week.Contents[0].MIMEType)
	}

	result, err := server.handleSummaryResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("summary resource: %v", err)
	}
	var body struct {
		Summary map[string]int `json:"summary"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Summary["visions"] != 1 || body.Summary["active_goals"] != 1 {
		t.Errorf("summary = %v", body.Summary)
	}
}
