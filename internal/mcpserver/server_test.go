package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/keepsake/internal/cardservice"
	"github.com/starford/keepsake/internal/keepsake"
	"github.com/starford/keepsake/internal/lock"
	"github.com/starford/keepsake/internal/logging"
	"github.com/starford/keepsake/internal/playlist"
	"github.com/starford/keepsake/internal/session"
)

type scheduler struct {
	pending []func()
}

func (s *scheduler) AfterFunc(_ time.Duration, f func()) lock.Timer {
	s.pending = append(s.pending, f)
	return time.NewTimer(time.Hour)
}

func testServer(t *testing.T, pl *playlist.Playlist) (*Server, *scheduler) {
	t.Helper()
	sc := &scheduler{}
	digits := []int{1, 0, 2, 2}
	i := 0
	reg := session.NewRegistry(session.Config{Target: lock.Combination{1, 0, 2, 3}},
		session.WithLogger(logging.Discard()),
		session.WithLockOptions(
			lock.WithRand(func(n int) int { d := digits[i%4]; i++; return d % n }),
			lock.WithAfterFunc(sc.AfterFunc),
		),
	)
	t.Cleanup(reg.Close)

	ks, err := keepsake.NewCollection(keepsake.Defaults())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(context.Background(), cardservice.NewService(reg, pl, ks), "test")
	if err != nil {
		t.Fatal(err)
	}
	return srv, sc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "lock_status":
		result, err = srv.lockStatus(ctx, req)
	case "turn_tumbler":
		result, err = srv.turnTumbler(ctx, req)
	case "list_tracks":
		result, err = srv.listTracks(ctx, req)
	case "list_keepsakes":
		result, err = srv.listKeepsakes(ctx, req)
	case "read_keepsake":
		result, err = srv.readKeepsake(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestOpenTheCard(t *testing.T) {
	srv, sc := testServer(t, playlist.New())

	if got := resultText(callTool(t, srv, "lock_status", nil)); got != "1022 (locked)" {
		t.Fatalf("status = %q", got)
	}

	r := callTool(t, srv, "list_keepsakes", nil)
	if !r.IsError || !strings.Contains(resultText(r), "locked") {
		t.Errorf("list while locked = %+v", r)
	}

	r = callTool(t, srv, "turn_tumbler", map[string]interface{}{"position": float64(3), "direction": "up"})
	if got := resultText(r); got != "1023 (unlocking)" {
		t.Fatalf("turn = %q", got)
	}

	for _, f := range sc.pending {
		f()
	}

	if got := resultText(callTool(t, srv, "lock_status", nil)); got != "1023 (unlocked)" {
		t.Fatalf("status after delay = %q", got)
	}

	r = callTool(t, srv, "list_keepsakes", nil)
	if r.IsError || !strings.Contains(resultText(r), "ticket [ticket]") {
		t.Errorf("list = %q", resultText(r))
	}

	r = callTool(t, srv, "read_keepsake", map[string]interface{}{"id": "ticket"})
	if r.IsError || !strings.Contains(resultText(r), "No. 1023") {
		t.Errorf("read = %q", resultText(r))
	}
}

func TestTurnTumblerRejectsBadInput(t *testing.T) {
	srv, _ := testServer(t, playlist.New())

	cases := []map[string]interface{}{
		{"position": float64(7), "direction": "up"},
		{"position": float64(0), "direction": "left"},
		{"direction": "up"},
	}
	for _, args := range cases {
		if r := callTool(t, srv, "turn_tumbler", args); !r.IsError {
			t.Errorf("turn_tumbler(%v) should fail", args)
		}
	}
}

func TestReadKeepsakeMissing(t *testing.T) {
	srv, sc := testServer(t, playlist.New())
	callTool(t, srv, "turn_tumbler", map[string]interface{}{"position": float64(3), "direction": "up"})
	for _, f := range sc.pending {
		f()
	}

	r := callTool(t, srv, "read_keepsake", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing keepsake")
	}
}

func TestListTracks(t *testing.T) {
	pl := playlist.New()
	srv, _ := testServer(t, pl)

	if got := resultText(callTool(t, srv, "list_tracks", nil)); got != "playlist is still loading" {
		t.Errorf("loading = %q", got)
	}

	loader := playlist.NewLoader(staticFetcher{}, readyExtractor{}, playlist.WithLogger(logging.Discard()))
	if err := pl.Resolve(context.Background(), loader, []string{"/music/first-song.mp3"}); err != nil {
		t.Fatal(err)
	}

	got := resultText(callTool(t, srv, "list_tracks", nil))
	if got != "1. first-song by "+playlist.UnknownArtist {
		t.Errorf("tracks = %q", got)
	}
}

type staticFetcher struct{}

func (staticFetcher) Fetch(context.Context, string) ([]byte, error) { return []byte("x"), nil }

type readyExtractor struct{}

func (readyExtractor) Ready() bool { return true }

func (readyExtractor) Extract(context.Context, string, []byte) (*playlist.Tags, error) {
	return &playlist.Tags{}, nil
}
