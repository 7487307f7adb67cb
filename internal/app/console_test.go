package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

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

var admin = domain.Principal{Authenticated: true, Role: domain.RoleAdmin}

func newConsole(t *testing.T) (*app.Console, *storage.AdStore) {
	t.Helper()
	db, err := storage.Open(context.Background(), dbclient.Conn{Driver: dbclient.DriverSQLite, DSN: ":memory:"}, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := storage.NewAdStore(db)
	c := app.New(app.Deps{
		Repo:   repo,
		Gate:   service.AuthGate{AllowedRoles: []string{domain.RoleAdmin}},
		Sites:  []app.SiteOption{{Label: "A1 Satta", Value: "a1satta.pro"}, {Label: "B7 Satta", Value: "b7satta.pro"}},
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, c.Open(context.Background(), admin, ""))
	t.Cleanup(func() { c.Close(context.Background()) })
	return c, repo
}

// answer waits for a prompt of kind and submits value.
func answer(t *testing.T, c *app.Console, kind prompt.Kind, value string) prompt.Request {
	t.Helper()
	var req prompt.Request
	require.Eventually(t, func() bool {
		r, ok := c.PendingPrompt()
		if !ok || r.Kind != kind {
			return false
		}
		req = r
		return true
	}, 2*time.Second, 5*time.Millisecond, "no %s prompt", kind)
	require.NoError(t, c.AnswerPrompt(context.Background(), req.ID, value))
	return req
}

type result struct {
	ok  bool
	err error
}

func async(fn func() (bool, error)) <-chan result {
	done := make(chan result, 1)
	go func() {
		ok, err := fn()
		done <- result{ok, err}
	}()
	return done
}

func wait(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not finish")
		return result{}
	}
}

func addBlock(t *testing.T, c *app.Console, zone domain.Zone, html string) string {
	t.Helper()
	b, err := c.Add(zone)
	require.NoError(t, err)
	require.NoError(t, c.SetContent(zone, b.Key, html))
	return b.Key
}

func contentOf(t *testing.T, c *app.Console, zone domain.Zone, key string) string {
	t.Helper()
	for _, b := range c.View().Zones[zone] {
		if b.Key == key {
			return b.Content
		}
	}
	t.Fatalf("block %s not in %s", key, zone)
	return ""
}

func TestOpenRequiresAllowedRole(t *testing.T) {
	c := app.New(app.Deps{
		Gate:  service.AuthGate{AllowedRoles: []string{domain.RoleAdmin}},
		Sites: []app.SiteOption{{Value: "a1satta.pro"}},
	})
	err := c.Open(context.Background(), domain.Principal{Authenticated: true, Role: "viewer"}, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = c.Open(context.Background(), domain.Principal{}, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = c.Add(domain.ZoneTop)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSaveTopZone(t *testing.T) {
	ctx := context.Background()
	c, repo := newConsole(t)
	assert.Equal(t, domain.Site("a1satta.pro"), c.View().Site)

	addBlock(t, c, domain.ZoneTop, "<p>hi</p>")
	require.NoError(t, c.Save(ctx, domain.ZoneTop))

	v := c.View()
	require.Len(t, v.Zones[domain.ZoneTop], 1)
	saved := v.Zones[domain.ZoneTop][0]
	assert.True(t, saved.Persisted)
	assert.Equal(t, "<p>hi</p>", saved.Content)
	require.NotNil(t, v.Prompt)
	assert.Equal(t, "Top ads saved successfully!", v.Prompt.Message)

	stored, err := repo.List(ctx, "a1satta.pro")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, saved.Key, stored[0].Identity.ID())
}

func TestAttachLinkFallbackAndSelectionAgree(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	first := addBlock(t, c, domain.ZoneTop, `<p>a<img src="one.png"></p>`)
	second := addBlock(t, c, domain.ZoneTop, `<p><img src="two.png">b<img src="three.png"></p>`)

	// No selection: the last image of the block is used.
	done := async(func() (bool, error) { return c.AttachLink(ctx, first) })
	answer(t, c, prompt.KindChoice, "1")
	answer(t, c, prompt.KindText, "+91 12345")
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.True(t, r.ok)

	// Selection on the first image of the second block.
	require.NoError(t, c.Select(second, content.Path{0, 0}, 0, nil, 0))
	done = async(func() (bool, error) { return c.AttachLink(ctx, second) })
	answer(t, c, prompt.KindChoice, "1")
	answer(t, c, prompt.KindText, "+91 12345")
	r = wait(t, done)
	require.NoError(t, r.err)

	assert.Contains(t, contentOf(t, c, domain.ZoneTop, first), `<a href="https://wa.me/9112345" target="_blank"><img src="one.png"`)
	got := contentOf(t, c, domain.ZoneTop, second)
	assert.Contains(t, got, `<a href="https://wa.me/9112345" target="_blank"><img src="two.png"`)
	assert.Contains(t, got, `b<img src="three.png"/>`)
}

func TestAttachLinkReplaceNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	key := addBlock(t, c, domain.ZoneMiddle, `<a href="https://t.me/old" target="_blank"><img src="x.png"></a>`)

	done := async(func() (bool, error) { return c.AttachLink(ctx, key) })
	answer(t, c, prompt.KindChoice, "2")
	answer(t, c, prompt.KindText, "fresh")
	req := answer(t, c, prompt.KindConfirm, prompt.No)
	assert.Equal(t, "Replace existing link?", req.Message)
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.False(t, r.ok)
	assert.Contains(t, contentOf(t, c, domain.ZoneMiddle, key), "https://t.me/old")

	done = async(func() (bool, error) { return c.AttachLink(ctx, key) })
	answer(t, c, prompt.KindChoice, "2")
	answer(t, c, prompt.KindText, " fresh ")
	answer(t, c, prompt.KindConfirm, prompt.Yes)
	r = wait(t, done)
	require.NoError(t, r.err)
	assert.True(t, r.ok)

	got := contentOf(t, c, domain.ZoneMiddle, key)
	assert.Contains(t, got, `<a href="https://t.me/fresh" target="_blank"><img src="x.png"`)
	assert.NotContains(t, got, "old")
	assert.Equal(t, 1, strings.Count(got, "<a "))
}

func TestAttachLinkBlankOrDismissedChangesNothing(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	key := addBlock(t, c, domain.ZoneTop, `<img src="x.png">`)
	before := contentOf(t, c, domain.ZoneTop, key)

	done := async(func() (bool, error) { return c.AttachLink(ctx, key) })
	answer(t, c, prompt.KindChoice, "1")
	answer(t, c, prompt.KindText, "   ")
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.False(t, r.ok)

	done = async(func() (bool, error) { return c.AttachLink(ctx, key) })
	var req prompt.Request
	require.Eventually(t, func() bool {
		var ok bool
		req, ok = c.PendingPrompt()
		return ok && req.Kind == prompt.KindChoice
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.DismissPrompt(ctx, req.ID))
	r = wait(t, done)
	require.NoError(t, r.err)
	assert.False(t, r.ok)

	assert.Equal(t, before, contentOf(t, c, domain.ZoneTop, key))
}

func TestFlowOnRemovedBlockIsStale(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	gone := addBlock(t, c, domain.ZoneTop, `<img src="a.png">`)
	other := addBlock(t, c, domain.ZoneTop, `<img src="b.png">`)

	done := async(func() (bool, error) { return c.AttachLink(ctx, gone) })
	answer(t, c, prompt.KindChoice, "1")
	require.NoError(t, c.Remove(domain.ZoneTop, gone))
	answer(t, c, prompt.KindText, "123")
	r := wait(t, done)
	assert.ErrorIs(t, r.err, domain.ErrNothingSelected)
	assert.Equal(t, domain.KindStale, domain.KindOf(r.err))
	assert.NotContains(t, contentOf(t, c, domain.ZoneTop, other), "<a ")
}

func TestFlowOnReplacedContentIsStale(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	key := addBlock(t, c, domain.ZoneTop, `<img src="a.png"><img src="b.png">`)
	require.NoError(t, c.Select(key, content.Path{0}, 0, nil, 0))

	done := async(func() (bool, error) { return c.AttachLink(ctx, key) })
	answer(t, c, prompt.KindChoice, "1")
	require.NoError(t, c.SetContent(domain.ZoneTop, key, `<img src="c.png"><img src="d.png">`))
	answer(t, c, prompt.KindText, "123")
	r := wait(t, done)
	assert.False(t, r.ok)
	assert.ErrorIs(t, r.err, domain.ErrNothingSelected)
	assert.Equal(t, domain.KindStale, domain.KindOf(r.err))

	got := contentOf(t, c, domain.ZoneTop, key)
	assert.Contains(t, got, "d.png")
	assert.NotContains(t, got, "<a ")
}

func TestInsertImage(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	key := addBlock(t, c, domain.ZoneBottom, "<p>hi</p>")

	done := async(func() (bool, error) { return c.InsertImage(ctx, key, "data:image/png;base64,AAA") })
	req := answer(t, c, prompt.KindConfirm, prompt.No)
	assert.Equal(t, "Add link to this image?", req.Message)
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.True(t, r.ok)
	assert.Equal(t,
		`<p>hi</p><img src="data:image/png;base64,AAA" style="width:200px;height:auto;max-width:none;border-radius:4px;" draggable="false"/>`,
		contentOf(t, c, domain.ZoneBottom, key))

	done = async(func() (bool, error) { return c.InsertImage(ctx, key, "pic.png") })
	answer(t, c, prompt.KindConfirm, prompt.Yes)
	answer(t, c, prompt.KindChoice, "1")
	answer(t, c, prompt.KindText, "123")
	r = wait(t, done)
	require.NoError(t, r.err)
	assert.Contains(t, contentOf(t, c, domain.ZoneBottom, key), `<a href="https://wa.me/123" target="_blank"><img src="pic.png"`)
}

func TestResizeImage(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	bare := addBlock(t, c, domain.ZoneTop, "<p>no pictures</p>")
	key := addBlock(t, c, domain.ZoneTop, `<img src="a.png" style="width:200px;height:auto;">`)

	err := c.ResizeImage(ctx, bare, 150)
	assert.ErrorIs(t, err, domain.ErrNothingSelected)
	req, ok := c.PendingPrompt()
	require.True(t, ok)
	assert.Equal(t, "No image to resize", req.Message)

	require.NoError(t, c.ResizeImage(ctx, key, 150))
	assert.Contains(t, contentOf(t, c, domain.ZoneTop, key), "width:150px;height:auto;max-width:none;")

	err = c.ResizeImage(ctx, key, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestSetColorAndEmoji(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	key := addBlock(t, c, domain.ZoneTop, "<p>hello world</p>")

	require.NoError(t, c.Select(key, content.Path{0, 0}, 0, content.Path{0, 0}, 5))
	done := async(func() (bool, error) { return c.SetColor(ctx, key) })
	answer(t, c, prompt.KindText, "red")
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.True(t, r.ok)
	assert.Equal(t, `<p><span style="color:red;">hello</span> world</p>`, contentOf(t, c, domain.ZoneTop, key))

	done = async(func() (bool, error) { return c.SetColor(ctx, key) })
	answer(t, c, prompt.KindText, "red;background:url(x)")
	r = wait(t, done)
	assert.Equal(t, domain.KindValidation, domain.KindOf(r.err))

	emojiKey := addBlock(t, c, domain.ZoneTop, "<p>hi</p>")
	require.NoError(t, c.Select(emojiKey, content.Path{0, 0}, 1, nil, 0))
	done = async(func() (bool, error) { return c.InsertEmoji(ctx, emojiKey) })
	answer(t, c, prompt.KindText, "😀")
	r = wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, "<p>h😀i</p>", contentOf(t, c, domain.ZoneTop, emojiKey))
}

func TestQuickAdd(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)

	done := make(chan error, 1)
	go func() {
		_, _, err := c.QuickAdd(ctx)
		done <- err
	}()
	answer(t, c, prompt.KindText, " Middle ")
	require.NoError(t, <-done)
	assert.Len(t, c.View().Zones[domain.ZoneMiddle], 1)

	go func() {
		_, _, err := c.QuickAdd(ctx)
		done <- err
	}()
	answer(t, c, prompt.KindText, "side")
	assert.ErrorIs(t, <-done, domain.ErrUnknownZone)
	req, ok := c.PendingPrompt()
	require.True(t, ok)
	assert.Equal(t, "Invalid Section", req.Title)
}

func TestSaveAllAndDelete(t *testing.T) {
	ctx := context.Background()
	c, repo := newConsole(t)
	addBlock(t, c, domain.ZoneTop, "<p>top</p>")
	addBlock(t, c, domain.ZoneMiddle, "<p>middle</p>")

	done := async(func() (bool, error) { return true, c.SaveAll(ctx) })
	answer(t, c, prompt.KindConfirm, prompt.Yes)
	require.NoError(t, wait(t, done).err)

	stored, err := repo.List(ctx, "a1satta.pro")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	top := c.View().Zones[domain.ZoneTop][0]
	require.True(t, top.Persisted)
	done = async(func() (bool, error) { return true, c.Delete(ctx, domain.ZoneTop, top.Key) })
	answer(t, c, prompt.KindConfirm, prompt.Yes)
	require.NoError(t, wait(t, done).err)

	assert.Empty(t, c.View().Zones[domain.ZoneTop])
	stored, err = repo.List(ctx, "a1satta.pro")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSwitchSiteDropsUnsavedBlocks(t *testing.T) {
	ctx := context.Background()
	c, _ := newConsole(t)
	addBlock(t, c, domain.ZoneTop, "<p>draft</p>")

	require.NoError(t, c.SwitchSite(ctx, "b7satta.pro"))
	v := c.View()
	assert.Equal(t, domain.Site("b7satta.pro"), v.Site)
	assert.True(t, v.Loaded)
	assert.Empty(t, v.Zones[domain.ZoneTop])
}
