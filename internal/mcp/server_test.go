package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"adsconsole/internal/app"
	"adsconsole/internal/content"
	"adsconsole/internal/dbclient"
	"adsconsole/internal/domain"
	"adsconsole/internal/prompt"
	"adsconsole/internal/service"
	"adsconsole/internal/storage"
)

func newServer(t *testing.T) (*Server, *app.Console) {
	t.Helper()
	db, err := storage.Open(context.Background(), dbclient.Conn{Driver: dbclient.DriverSQLite, DSN: ":memory:"}, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := app.New(app.Deps{
		Repo:   storage.NewAdStore(db),
		Gate:   service.AuthGate{AllowedRoles: []string{domain.RoleAdmin}},
		Sites:  []app.SiteOption{{Label: "A1 Satta", Value: "a1satta.pro"}},
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, c.Open(context.Background(), domain.Principal{Authenticated: true, Role: domain.RoleAdmin}, ""))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		c.Close(context.Background())
	})
	s := New(ctx, Deps{Console: c, Logger: zaptest.NewLogger(t), Wait: 500 * time.Millisecond})
	return s, c
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "result is not text")
	var v T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &v))
	return v
}

// settle polls an operation until it leaves the running state.
func settle(t *testing.T, s *Server, id string) Operation {
	t.Helper()
	var op Operation
	require.Eventually(t, func() bool {
		var err error
		op, err = s.ops.Get(id)
		require.NoError(t, err)
		return op.State != OpRunning
	}, 2*time.Second, 10*time.Millisecond)
	return op
}

// nextPrompt waits for a question of kind.
func nextPrompt(t *testing.T, c *app.Console, kind prompt.Kind) prompt.Request {
	t.Helper()
	var req prompt.Request
	require.Eventually(t, func() bool {
		r, ok := c.PendingPrompt()
		req = r
		return ok && r.Kind == kind
	}, 2*time.Second, 5*time.Millisecond)
	return req
}

func addBlock(t *testing.T, s *Server, zone, html string) string {
	t.Helper()
	ctx := context.Background()
	res, err := s.handleAddBlock(ctx, call(map[string]any{"zone": zone}))
	require.NoError(t, err)
	b := decode[app.BlockView](t, res)
	_, err = s.handleSetContent(ctx, call(map[string]any{"zone": zone, "key": b.Key, "html": html}))
	require.NoError(t, err)
	return b.Key
}

func TestAddBlockAndView(t *testing.T) {
	s, _ := newServer(t)
	key := addBlock(t, s, "top", "<p>hello</p>")

	res, err := s.handleGetView(context.Background(), call(nil))
	require.NoError(t, err)
	v := decode[app.View](t, res)
	assert.Equal(t, domain.Site("a1satta.pro"), v.Site)
	require.Len(t, v.Zones[domain.ZoneTop], 1)
	assert.Equal(t, key, v.Zones[domain.ZoneTop][0].Key)
	assert.Equal(t, "<p>hello</p>", v.Zones[domain.ZoneTop][0].Content)
}

func TestBadArguments(t *testing.T) {
	s, _ := newServer(t)
	ctx := context.Background()

	_, err := s.handleAddBlock(ctx, call(map[string]any{"zone": "side"}))
	assert.ErrorIs(t, err, domain.ErrUnknownZone)

	_, err = s.handleSetContent(ctx, call(map[string]any{"zone": "top", "html": "<p>x</p>"}))
	assert.Error(t, err)

	_, err = s.handleSelectText(ctx, call(map[string]any{"key": "k", "startPath": "0,-1"}))
	assert.Error(t, err)

	_, err = s.handleGetOperation(ctx, call(map[string]any{"operationId": "nope"}))
	assert.ErrorIs(t, err, ErrNoSuchOperation)
}

func TestSaveZoneFinishesWithoutQuestions(t *testing.T) {
	s, _ := newServer(t)
	addBlock(t, s, "middle", "<p>buy now</p>")

	res, err := s.handleSaveZone(context.Background(), call(map[string]any{"zone": "middle"}))
	require.NoError(t, err)
	op := settle(t, s, decode[Operation](t, res).ID)
	assert.Equal(t, OpDone, op.State)

	v := s.console.View()
	require.Len(t, v.Zones[domain.ZoneMiddle], 1)
	assert.True(t, v.Zones[domain.ZoneMiddle][0].Persisted)
}

func TestSaveEmptyZoneWaitsForConfirmation(t *testing.T) {
	s, c := newServer(t)
	addBlock(t, s, "bottom", "<p></p>")

	res, err := s.handleSaveZone(context.Background(), call(map[string]any{"zone": "bottom"}))
	require.NoError(t, err)
	op := decode[Operation](t, res)
	assert.Equal(t, OpRunning, op.State)
	require.NotNil(t, op.Prompt)
	assert.Equal(t, prompt.KindConfirm, op.Prompt.Kind)

	_, err = s.handleAnswerPrompt(context.Background(), call(map[string]any{"promptId": op.Prompt.ID, "value": prompt.Yes}))
	require.NoError(t, err)
	assert.Equal(t, OpDone, settle(t, s, op.ID).State)
	assert.True(t, c.View().Zones[domain.ZoneBottom][0].Persisted)
}

func TestAttachLinkThroughPrompts(t *testing.T) {
	s, c := newServer(t)
	ctx := context.Background()
	key := addBlock(t, s, "top", `<p>call us<img src="x.png"></p>`)

	res, err := s.handleAttachLink(ctx, call(map[string]any{"key": key}))
	require.NoError(t, err)
	op := decode[Operation](t, res)
	assert.Equal(t, OpRunning, op.State)
	require.NotNil(t, op.Prompt)
	assert.Equal(t, prompt.KindChoice, op.Prompt.Kind)

	_, err = s.handleAnswerPrompt(ctx, call(map[string]any{"promptId": op.Prompt.ID, "value": "2"}))
	require.NoError(t, err)
	req := nextPrompt(t, c, prompt.KindText)
	_, err = s.handleAnswerPrompt(ctx, call(map[string]any{"promptId": req.ID, "value": "adsdesk"}))
	require.NoError(t, err)

	done := settle(t, s, op.ID)
	require.Equal(t, OpDone, done.State, done.Error)
	assert.Equal(t, map[string]any{"applied": true, "key": key}, done.Result)
	assert.Contains(t, c.View().Zones[domain.ZoneTop][0].Content, `<a href="https://t.me/adsdesk" target="_blank"><img src="x.png"`)
}

func TestDismissedQuestionAbandonsEdit(t *testing.T) {
	s, c := newServer(t)
	ctx := context.Background()
	key := addBlock(t, s, "top", "<p>hello</p>")
	_, err := s.handleSelectText(ctx, call(map[string]any{"key": key, "startPath": "0,0", "endPath": "0,0", "endOffset": 5}))
	require.NoError(t, err)

	res, err := s.handleSetColor(ctx, call(map[string]any{"key": key}))
	require.NoError(t, err)
	op := decode[Operation](t, res)
	require.NotNil(t, op.Prompt)

	_, err = s.handleDismissPrompt(ctx, call(map[string]any{"promptId": op.Prompt.ID}))
	require.NoError(t, err)
	done := settle(t, s, op.ID)
	assert.Equal(t, OpDone, done.State)
	assert.Equal(t, false, done.Result.(map[string]any)["applied"])
	assert.Equal(t, "<p>hello</p>", c.View().Zones[domain.ZoneTop][0].Content)
}

func TestDeclinedDeleteIsAborted(t *testing.T) {
	s, c := newServer(t)
	ctx := context.Background()
	addBlock(t, s, "top", "<p>keep me</p>")
	res, err := s.handleSaveZone(ctx, call(map[string]any{"zone": "top"}))
	require.NoError(t, err)
	settle(t, s, decode[Operation](t, res).ID)
	key := c.View().Zones[domain.ZoneTop][0].Key

	res, err = s.handleDeleteBlock(ctx, call(map[string]any{"zone": "top", "key": key}))
	require.NoError(t, err)
	op := decode[Operation](t, res)
	require.NotNil(t, op.Prompt)
	assert.Equal(t, "Delete this ad permanently from database?", op.Prompt.Message)

	_, err = s.handleAnswerPrompt(ctx, call(map[string]any{"promptId": op.Prompt.ID, "value": prompt.No}))
	require.NoError(t, err)
	assert.Equal(t, OpAborted, settle(t, s, op.ID).State)
	assert.Len(t, c.View().Zones[domain.ZoneTop], 1)

	res, err = s.handleListOperations(ctx, call(nil))
	require.NoError(t, err)
	assert.Len(t, decode[[]Operation](t, res), 2)
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    content.Path
		wantErr bool
	}{
		{"", nil, false},
		{"0", content.Path{0}, false},
		{" 0, 2 ,1", content.Path{0, 2, 1}, false},
		{"a", nil, true},
		{"1,-2", nil, true},
	}
	for _, tt := range tests {
		got, err := parsePath(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
