// ABOUTME: MCP tool implementations for goal planning and time tracking.
// ABOUTME: Provides visions, power goals, MINs, time blocks, KPIs and daily reviews.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/recurrence"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	// add_vision
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_vision",
		Description: "Create a long-term vision with optional clarity, belief and consistency scores (0-100)",
	}, s.handleAddVision)

	// list_visions
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_visions",
		Description: "List all visions with their scores",
	}, s.handleListVisions)

	// add_power_goal
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_power_goal",
		Description: "Create a power goal, optionally under a vision and for a year and quarter",
	}, s.handleAddPowerGoal)

	// list_power_goals
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_power_goals",
		Description: "List power goals, optionally filtered by status",
	}, s.handleListPowerGoals)

	// add_min
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_min",
		Description: "Add a Most Important Next step due on a date (default today)",
	}, s.handleAddMIN)

	// list_mins
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_mins",
		Description: "List MINs due on a date (default today)",
	}, s.handleListMINs)

	// complete_min
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "complete_min",
		Description: "Mark a MIN complete by ID or ID prefix",
	}, s.handleCompleteMIN)

	// add_time_block
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_time_block",
		Description: "Log a time block with optional DRIP quadrant, energy rating and recurrence rule",
	}, s.handleAddTimeBlock)

	// list_time_blocks
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_time_blocks",
		Description: "List time block occurrences, expanding recurring blocks, for a number of days from a date",
	}, s.handleListTimeBlocks)

	// time_summary
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "time_summary",
		Description: "Summarize minutes per DRIP quadrant and energy rating for a number of days from a date",
	}, s.handleTimeSummary)

	// log_kpi
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_kpi",
		Description: "Log a value against a KPI and recalculate its progress",
	}, s.handleLogKPI)

	// kpi_tree
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "kpi_tree",
		Description: "Get a KPI and its descendants with cached progress",
	}, s.handleKPITree)

	// daily_review
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "daily_review",
		Description: "Record or replace the daily review for a date (default today)",
	}, s.handleDailyReview)

	// get_progress
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_progress",
		Description: "Get XP, level and streak",
	}, s.handleGetProgress)
}

// Tool input/output types

type addVisionInput struct {
	Title       string `json:"title" jsonschema:"Short statement of the vision"`
	Description string `json:"description,omitempty" jsonschema:"Longer description"`
	TargetDate  string `json:"target_date,omitempty" jsonschema:"Target date (YYYY-MM-DD)"`
	Clarity     int    `json:"clarity,omitempty" jsonschema:"Clarity score 0-100"`
	Belief      int    `json:"belief,omitempty" jsonschema:"Belief score 0-100"`
	Consistency int    `json:"consistency,omitempty" jsonschema:"Consistency score 0-100"`
}

type idOutput struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type emptyInput struct{}

type addPowerGoalInput struct {
	Title    string `json:"title" jsonschema:"Goal title"`
	VisionID string `json:"vision_id,omitempty" jsonschema:"Vision ID or prefix"`
	Year     int    `json:"year,omitempty" jsonschema:"Year the goal belongs to"`
	Quarter  int    `json:"quarter,omitempty" jsonschema:"Quarter 1-4"`
}

type listPowerGoalsInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status (active, completed, archived)"`
}

type addMINInput struct {
	Title           string `json:"title" jsonschema:"What needs doing"`
	Due             string `json:"due,omitempty" jsonschema:"Due date (YYYY-MM-DD), defaults to today"`
	Priority        int    `json:"priority,omitempty" jsonschema:"Priority 1 (highest) to 3"`
	DurationMinutes int    `json:"duration_minutes,omitempty" jsonschema:"Expected duration in minutes"`
	PowerGoalID     string `json:"power_goal_id,omitempty" jsonschema:"Power goal ID or prefix"`
}

type listMINsInput struct {
	Due              string `json:"due,omitempty" jsonschema:"Due date (YYYY-MM-DD), defaults to today"`
	IncludeCompleted bool   `json:"include_completed,omitempty" jsonschema:"Include completed MINs"`
}

type idInput struct {
	ID string `json:"id" jsonschema:"ID or ID prefix"`
}

type addTimeBlockInput struct {
	Title      string `json:"title" jsonschema:"Activity title"`
	Start      string `json:"start" jsonschema:"Start time (RFC 3339 or YYYY-MM-DD HH:MM in the server zone)"`
	Minutes    int    `json:"minutes" jsonschema:"Length in minutes"`
	Quadrant   string `json:"quadrant,omitempty" jsonschema:"DRIP quadrant (delegation, replacement, investment, production)"`
	Energy     string `json:"energy,omitempty" jsonschema:"Energy rating (energizing, neutral, draining)"`
	Recurrence string `json:"recurrence,omitempty" jsonschema:"RRULE such as FREQ=WEEKLY;BYDAY=MO,WE"`
	Notes      string `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type windowInput struct {
	From string `json:"from,omitempty" jsonschema:"First day (YYYY-MM-DD), defaults to today"`
	Days int    `json:"days,omitempty" jsonschema:"Number of days (default 7)"`
}

type logKPIInput struct {
	ID    string  `json:"id" jsonschema:"KPI ID or prefix"`
	Value float64 `json:"value" jsonschema:"Value to add"`
	Date  string  `json:"date,omitempty" jsonschema:"Day of the value (YYYY-MM-DD), defaults to today"`
	Notes string  `json:"notes,omitempty" jsonschema:"Optional notes"`
}

type dailyReviewInput struct {
	Date          string   `json:"date,omitempty" jsonschema:"Review date (YYYY-MM-DD), defaults to today"`
	Wins          []string `json:"wins,omitempty" jsonschema:"Wins of the day"`
	Challenges    []string `json:"challenges,omitempty" jsonschema:"Challenges of the day"`
	TomorrowFocus string   `json:"tomorrow_focus,omitempty" jsonschema:"Focus for tomorrow"`
	Gratitude     string   `json:"gratitude,omitempty" jsonschema:"Gratitude note"`
	EnergyLevel   int      `json:"energy_level,omitempty" jsonschema:"Energy level 1-10"`
}

// parseDay reads a YYYY-MM-DD date, defaulting to today.
func (s *Server) parseDay(v string) (time.Time, error) {
	if v == "" {
		return s.today(), nil
	}
	d, err := time.ParseInLocation(models.DateLayout, v, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return d, nil
}

func (s *Server) parseWindow(in windowInput) (time.Time, time.Time, error) {
	from, err := s.parseDay(in.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	days := in.Days
	if days <= 0 {
		days = 7
	}
	return from, from.AddDate(0, 0, days), nil
}

// award grants XP; a failure does not fail the tool call.
func (s *Server) award(ctx context.Context, action models.Action) string {
	p, err := s.progress.Award(ctx, s.userID, action, s.now().UTC())
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (+%d XP, level %d)", models.ActionXP[action], p.Level)
}

// Tool handlers

func (s *Server) handleAddVision(ctx context.Context, req *mcp.CallToolRequest, input addVisionInput) (*mcp.CallToolResult, idOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, idOutput{}, errors.New("title is required")
	}
	v := models.NewVision(s.userID, input.Title)
	if input.Description != "" {
		v.WithDescription(input.Description)
	}
	if input.TargetDate != "" {
		d, err := s.parseDay(input.TargetDate)
		if err != nil {
			return nil, idOutput{}, err
		}
		v.WithTargetDate(d)
	}
	if input.Clarity != 0 || input.Belief != 0 || input.Consistency != 0 {
		v.WithScores(input.Clarity, input.Belief, input.Consistency)
	}

	if err := s.repo.CreateVision(ctx, v); err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to create vision: %w", err)
	}
	xp := s.award(ctx, models.ActionVisionCreated)

	return nil, idOutput{
		ID:      v.ID.String()[:8],
		Message: fmt.Sprintf("Added vision %q (ID: %s)%s", v.Title, v.ID.String()[:8], xp),
	}, nil
}

func (s *Server) handleListVisions(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	visions, err := s.repo.ListVisions(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list visions: %w", err)
	}
	if len(visions) == 0 {
		return nil, map[string]any{"message": "No visions found."}, nil
	}

	out := make([]map[string]any, 0, len(visions))
	for _, v := range visions {
		out = append(out, map[string]any{"vision": v, "score": v.Score()})
	}
	return nil, map[string]any{"visions": out}, nil
}

func (s *Server) handleAddPowerGoal(ctx context.Context, req *mcp.CallToolRequest, input addPowerGoalInput) (*mcp.CallToolResult, idOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, idOutput{}, errors.New("title is required")
	}
	g := models.NewPowerGoal(s.userID, input.Title)
	if input.VisionID != "" {
		v, err := s.repo.GetVision(ctx, s.userID, input.VisionID)
		if err != nil {
			return nil, idOutput{}, fmt.Errorf("vision not found: %s", input.VisionID)
		}
		g.WithVision(v.ID)
	}
	if input.Year != 0 || input.Quarter != 0 {
		year := input.Year
		if year == 0 {
			year = s.today().Year()
		}
		g.WithQuarter(year, input.Quarter)
	}

	if err := s.repo.CreatePowerGoal(ctx, g); err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to create power goal: %w", err)
	}
	return nil, idOutput{
		ID:      g.ID.String()[:8],
		Message: fmt.Sprintf("Added power goal %q (ID: %s)", g.Title, g.ID.String()[:8]),
	}, nil
}

func (s *Server) handleListPowerGoals(ctx context.Context, req *mcp.CallToolRequest, input listPowerGoalsInput) (*mcp.CallToolResult, any, error) {
	var f storage.PowerGoalFilter
	if input.Status != "" {
		if !models.IsValidGoalStatus(input.Status) {
			return nil, nil, fmt.Errorf("unknown status: %s", input.Status)
		}
		st := models.GoalStatus(input.Status)
		f.Status = &st
	}
	goals, err := s.repo.ListPowerGoals(ctx, s.userID, f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list power goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, map[string]any{"message": "No power goals found."}, nil
	}
	return nil, map[string]any{"power_goals": goals}, nil
}

func (s *Server) handleAddMIN(ctx context.Context, req *mcp.CallToolRequest, input addMINInput) (*mcp.CallToolResult, idOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, idOutput{}, errors.New("title is required")
	}
	due, err := s.parseDay(input.Due)
	if err != nil {
		return nil, idOutput{}, err
	}
	m := models.NewMIN(s.userID, input.Title, due)
	if input.Priority != 0 {
		m.WithPriority(input.Priority)
	}
	if input.DurationMinutes > 0 {
		m.WithDuration(input.DurationMinutes)
	}
	if input.PowerGoalID != "" {
		g, err := s.repo.GetPowerGoal(ctx, s.userID, input.PowerGoalID)
		if err != nil {
			return nil, idOutput{}, fmt.Errorf("power goal not found: %s", input.PowerGoalID)
		}
		m.PowerGoalID = &g.ID
	}

	if err := s.repo.CreateMIN(ctx, m); err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to create MIN: %w", err)
	}
	return nil, idOutput{
		ID:      m.ID.String()[:8],
		Message: fmt.Sprintf("Added MIN %q due %s (ID: %s)", m.Title, m.DueDate.Format(models.DateLayout), m.ID.String()[:8]),
	}, nil
}

func (s *Server) handleListMINs(ctx context.Context, req *mcp.CallToolRequest, input listMINsInput) (*mcp.CallToolResult, any, error) {
	due, err := s.parseDay(input.Due)
	if err != nil {
		return nil, nil, err
	}
	mins, err := s.repo.ListMINs(ctx, s.userID, storage.MINFilter{Due: &due, IncludeCompleted: input.IncludeCompleted})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list MINs: %w", err)
	}
	if len(mins) == 0 {
		return nil, map[string]any{"message": "No MINs found."}, nil
	}
	return nil, map[string]any{"mins": mins}, nil
}

func (s *Server) handleCompleteMIN(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, idOutput, error) {
	m, err := s.repo.GetMIN(ctx, s.userID, input.ID)
	if err != nil {
		return nil, idOutput{}, fmt.Errorf("MIN not found: %s", input.ID)
	}
	if m.Completed {
		return nil, idOutput{ID: m.ID.String()[:8], Message: fmt.Sprintf("MIN %q was already complete", m.Title)}, nil
	}
	m.Complete(s.now().UTC())
	if err := s.repo.UpdateMIN(ctx, m); err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to complete MIN: %w", err)
	}
	xp := s.award(ctx, models.ActionMINCompleted)
	return nil, idOutput{
		ID:      m.ID.String()[:8],
		Message: fmt.Sprintf("Completed MIN %q%s", m.Title, xp),
	}, nil
}

func (s *Server) handleAddTimeBlock(ctx context.Context, req *mcp.CallToolRequest, input addTimeBlockInput) (*mcp.CallToolResult, idOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, idOutput{}, errors.New("title is required")
	}
	if input.Minutes <= 0 {
		return nil, idOutput{}, errors.New("minutes must be positive")
	}
	start, err := time.Parse(time.RFC3339, input.Start)
	if err != nil {
		start, err = time.ParseInLocation("2006-01-02 15:04", input.Start, s.loc)
	}
	if err != nil {
		return nil, idOutput{}, fmt.Errorf("invalid start %q", input.Start)
	}

	b := models.NewTimeBlock(s.userID, input.Title, start.UTC(), start.UTC().Add(time.Duration(input.Minutes)*time.Minute))
	if input.Quadrant != "" {
		if !models.IsValidDripQuadrant(input.Quadrant) {
			return nil, idOutput{}, fmt.Errorf("unknown quadrant: %s", input.Quadrant)
		}
		b.WithQuadrant(models.DripQuadrant(input.Quadrant))
	}
	if input.Energy != "" {
		if !models.IsValidEnergyRating(input.Energy) {
			return nil, idOutput{}, fmt.Errorf("unknown energy rating: %s", input.Energy)
		}
		b.WithEnergy(models.EnergyRating(input.Energy))
	}
	if input.Recurrence != "" {
		b.WithRecurrence(recurrence.Parse(input.Recurrence).String())
	}
	if input.Notes != "" {
		b.Notes = &input.Notes
	}

	if err := s.repo.CreateTimeBlock(ctx, b); err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to create time block: %w", err)
	}
	xp := s.award(ctx, models.ActionTimeBlockLogged)
	return nil, idOutput{
		ID:      b.ID.String()[:8],
		Message: fmt.Sprintf("Logged %q, %d minutes (ID: %s)%s", b.Title, input.Minutes, b.ID.String()[:8], xp),
	}, nil
}

func (s *Server) handleListTimeBlocks(ctx context.Context, req *mcp.CallToolRequest, input windowInput) (*mcp.CallToolResult, any, error) {
	from, to, err := s.parseWindow(input)
	if err != nil {
		return nil, nil, err
	}
	occs, err := s.schedule.Occurrences(ctx, s.userID, from, to, s.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list time blocks: %w", err)
	}
	if len(occs) == 0 {
		return nil, map[string]any{"message": "No time blocks found."}, nil
	}
	return nil, map[string]any{"occurrences": occs}, nil
}

func (s *Server) handleTimeSummary(ctx context.Context, req *mcp.CallToolRequest, input windowInput) (*mcp.CallToolResult, any, error) {
	from, to, err := s.parseWindow(input)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.schedule.Summary(ctx, s.userID, from, to, s.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to summarize time: %w", err)
	}
	return nil, summary, nil
}

func (s *Server) handleLogKPI(ctx context.Context, req *mcp.CallToolRequest, input logKPIInput) (*mcp.CallToolResult, any, error) {
	k, err := s.repo.GetKPI(ctx, s.userID, input.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("KPI not found: %s", input.ID)
	}
	day, err := s.parseDay(input.Date)
	if err != nil {
		return nil, nil, err
	}
	_, p, err := s.kpis.LogValue(ctx, s.userID, k.ID, input.Value, day, input.Notes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to log KPI: %w", err)
	}
	xp := s.award(ctx, models.ActionKPILogged)
	return nil, map[string]any{
		"progress": p,
		"message":  fmt.Sprintf("Logged %g %s to %q, now %.1f%%%s", input.Value, k.Unit, k.Title, p.Percent, xp),
	}, nil
}

func (s *Server) handleKPITree(ctx context.Context, req *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, any, error) {
	k, err := s.repo.GetKPI(ctx, s.userID, input.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("KPI not found: %s", input.ID)
	}
	tree, err := s.kpis.Tree(ctx, s.userID, k.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load KPI tree: %w", err)
	}
	return nil, tree, nil
}

func (s *Server) handleDailyReview(ctx context.Context, req *mcp.CallToolRequest, input dailyReviewInput) (*mcp.CallToolResult, idOutput, error) {
	day, err := s.parseDay(input.Date)
	if err != nil {
		return nil, idOutput{}, err
	}
	_, err = s.repo.GetDailyReview(ctx, s.userID, day)
	isNew := errors.Is(err, storage.ErrNotFound)
	if err != nil && !isNew {
		return nil, idOutput{}, fmt.Errorf("failed to load review: %w", err)
	}

	r := models.NewDailyReview(s.userID, day)
	if input.Wins != nil {
		r.Wins = input.Wins
	}
	if input.Challenges != nil {
		r.Challenges = input.Challenges
	}
	if input.TomorrowFocus != "" {
		r.TomorrowFocus = &input.TomorrowFocus
	}
	if input.Gratitude != "" {
		r.Gratitude = &input.Gratitude
	}
	if input.EnergyLevel != 0 {
		r.WithEnergy(input.EnergyLevel)
	}

	saved, err := s.repo.UpsertDailyReview(ctx, r)
	if err != nil {
		return nil, idOutput{}, fmt.Errorf("failed to save review: %w", err)
	}
	xp := ""
	if isNew {
		xp = s.award(ctx, models.ActionDailyReview)
	}
	return nil, idOutput{
		ID:      saved.ID.String()[:8],
		Message: fmt.Sprintf("Saved review for %s%s", day.Format(models.DateLayout), xp),
	}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, any, error) {
	p, err := s.repo.GetUserProgress(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return nil, map[string]any{
		"progress":      p,
		"next_level_xp": models.XPForLevel(p.Level + 1),
	}, nil
}
