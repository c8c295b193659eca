// ABOUTME: MCP resource implementations for goal planning.
// ABOUTME: Provides goalpro://today, goalpro://week and goalpro://summary resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/goalpro/internal/models"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	// goalpro://today - today's MINs and schedule
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "goalpro://today",
		Name:        "Today",
		Description: "MINs due today and today's time blocks",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	// goalpro://week - DRIP summary for the last seven days
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "goalpro://week",
		Name:        "Last Seven Days",
		Description: "Minutes per DRIP quadrant and energy rating over the last seven days",
		MIMEType:    "application/json",
	}, s.handleWeekResource)

	// goalpro://summary - visions, active goals and progress
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "goalpro://summary",
		Name:        "Goal Summary Dashboard",
		Description: "Visions with scores, active power goals, and XP progress",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	today := s.today()

	mins, err := s.repo.ListMINs(ctx, s.userID, storage.MINFilter{Due: &today, IncludeCompleted: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list MINs: %w", err)
	}
	occs, err := s.schedule.Occurrences(ctx, s.userID, today, today.AddDate(0, 0, 1), s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to list time blocks: %w", err)
	}

	done := 0
	for _, m := range mins {
		if m.Completed {
			done++
		}
	}

	return jsonResource("goalpro://today", map[string]any{
		"date":        today.Format(models.DateLayout),
		"mins":        mins,
		"time_blocks": occs,
		"counts": map[string]int{
			"mins":           len(mins),
			"mins_completed": done,
			"time_blocks":    len(occs),
		},
	})
}

func (s *Server) handleWeekResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	to := s.today().AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -7)
	summary, err := s.schedule.Summary(ctx, s.userID, from, to, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize time: %w", err)
	}
	return jsonResource("goalpro://week", summary)
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	visions, err := s.repo.ListVisions(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visions: %w", err)
	}
	scored := make([]map[string]any, 0, len(visions))
	for _, v := range visions {
		scored = append(scored, map[string]any{
			"id":    v.ID,
			"title": v.Title,
			"score": v.Score(),
		})
	}

	active := models.GoalActive
	goals, err := s.repo.ListPowerGoals(ctx, s.userID, storage.PowerGoalFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to list power goals: %w", err)
	}

	progress, err := s.repo.GetUserProgress(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	return jsonResource("goalpro://summary", map[string]any{
		"generated_at": s.now().Format(time.RFC3339),
		"visions":      scored,
		"power_goals":  goals,
		"progress":     progress,
		"summary": map[string]int{
			"visions":      len(visions),
			"active_goals": len(goals),
		},
	})
}
