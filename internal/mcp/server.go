// ABOUTME: MCP server exposing one user's goals, MINs, time blocks and KPIs.
// ABOUTME: Wraps the MCP server with the storage Repository and domain services.
package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/goalpro/internal/gamification"
	"github.com/harperreed/goalpro/internal/kpi"
	"github.com/harperreed/goalpro/internal/schedule"
	"github.com/harperreed/goalpro/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with storage access for a single user.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	userID    uuid.UUID
	loc       *time.Location

	kpis     *kpi.Service
	progress *gamification.Service
	schedule *schedule.Service

	now func() time.Time
}

// NewServer creates a new MCP server acting as userID. A nil loc means UTC.
func NewServer(repo storage.Repository, userID uuid.UUID, loc *time.Location) (*Server, error) {
	if loc == nil {
		loc = time.UTC
	}
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "goalpro",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		userID:    userID,
		loc:       loc,
		kpis:      kpi.NewService(repo),
		progress:  gamification.NewService(repo),
		schedule:  schedule.NewService(repo, 0),
		now:       time.Now,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// today returns midnight of the current day in the server's zone.
func (s *Server) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}
