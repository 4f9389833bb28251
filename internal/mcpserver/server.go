// Package mcpserver provides an MCP (Model Context Protocol) server that lets
// an assistant open the card via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/keepsake/internal/apperr"
	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/session"
)

const guideURI = "keepsake://guide"

// Server wraps the MCP server with card tools. All calls share one lock
// session for the life of the process.
type Server struct {
	mcp     *server.MCPServer
	svc     *cardservice.Service
	session string
}

// New creates a new MCP server with all card tools registered.
func New(ctx context.Context, svc *cardservice.Service, version string) (*Server, error) {
	id, _, err := svc.EnsureSession(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("mcp: open session: %w", err)
	}
	s := &Server{svc: svc, session: id}

	s.mcp = server.NewMCPServer(
		"Keepsake",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lock_status",
		mcp.WithDescription("Show the lock's four digits and whether it is locked, unlocking or unlocked."),
	), s.lockStatus)

	s.mcp.AddTool(mcp.NewTool("turn_tumbler",
		mcp.WithDescription("Turn one tumbler of the lock by one step. Digits wrap from 9 to 0 and back."),
		mcp.WithNumber("position", mcp.Required(), mcp.Min(0), mcp.Max(3), mcp.Description("Tumbler index, 0 is leftmost")),
		mcp.WithString("direction", mcp.Required(), mcp.Enum(string(session.Up), string(session.Down)), mcp.Description("up adds one, down subtracts one")),
	), s.turnTumbler)

	s.mcp.AddTool(mcp.NewTool("list_tracks",
		mcp.WithDescription("List the card's playlist with titles and artists."),
	), s.listTracks)

	s.mcp.AddTool(mcp.NewTool("list_keepsakes",
		mcp.WithDescription("List the keepsakes inside the card. Fails while the lock is closed."),
	), s.listKeepsakes)

	s.mcp.AddTool(mcp.NewTool("read_keepsake",
		mcp.WithDescription("Read one keepsake by ID. Fails while the lock is closed."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Keepsake ID from list_keepsakes")),
	), s.readKeepsake)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Card Guide",
			mcp.WithResourceDescription("How to open the card and what the tools do."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuide,
	)

	return s, nil
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) lockStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.LockStatus(ctx, s.session)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%s)", st.Combination, st.State)), nil
}

func (s *Server) turnTumbler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pos, err := req.RequireInt("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := session.ParseDirection(raw)
	if err != nil {
		return toolError(err), nil
	}
	st, err := s.svc.Turn(ctx, s.session, pos, dir)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%s)", st.Combination, st.State)), nil
}

func (s *Server) listTracks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.svc.Playlist(ctx)
	if snap.Loading {
		return mcp.NewToolResultText("playlist is still loading"), nil
	}
	if len(snap.Tracks) == 0 {
		return mcp.NewToolResultText("no tracks"), nil
	}
	lines := make([]string, len(snap.Tracks))
	for i, t := range snap.Tracks {
		lines[i] = fmt.Sprintf("%d. %s by %s", i+1, t.Title, t.Artist)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listKeepsakes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Keepsakes(ctx, s.session)
	if err != nil {
		return toolError(err), nil
	}
	lines := make([]string, len(items))
	for i, k := range items {
		lines[i] = fmt.Sprintf("%s [%s] %s", k.ID, k.Kind, k.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readKeepsake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	k, err := s.svc.Keepsake(ctx, s.session, id)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(k, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     Guide,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrLocked):
		return mcp.NewToolResultError("the card is still locked")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrRateLimited):
		return mcp.NewToolResultError("too many turns, slow down")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
