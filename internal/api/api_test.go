package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"adsconsole/internal/dbclient"
	"adsconsole/internal/domain"
	"adsconsole/internal/remote"
	"adsconsole/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := storage.Open(context.Background(), dbclient.Conn{Driver: dbclient.DriverSQLite, DSN: ":memory:"}, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := NewServer(storage.NewAdStore(db), map[string]string{
		"admin-token":  "admin",
		"viewer-token": "viewer",
	}, []string{"admin"}, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func clientFor(ts *httptest.Server, token string) *remote.Client {
	return remote.NewClient(ts.URL+"/api", remote.WithToken(func() string { return token }))
}

func TestSaveListDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := clientFor(ts, "admin-token")

	saved, err := c.UpsertBatch(ctx, "a1satta.pro", domain.ZoneTop, []domain.Block{
		{Identity: domain.Ephemeral("tmp-top-1-aaaa"), Content: `<p data-ad-focus="true">hi</p>`},
		{Identity: domain.Ephemeral("tmp-top-2-bbbb"), Content: "<p>there</p>"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.True(t, saved[0].Identity.IsPersisted())
	assert.Equal(t, "<p>hi</p>", saved[0].Content)
	assert.Equal(t, 1, saved[1].Order)

	listed, err := c.List(ctx, "a1satta.pro")
	require.NoError(t, err)
	assert.Equal(t, saved, listed)

	require.NoError(t, c.Delete(ctx, saved[0].Identity.ID()))
	err = c.Delete(ctx, saved[0].Identity.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmptyBatchClearsNamedZone(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := clientFor(ts, "admin-token")

	_, err := c.UpsertBatch(ctx, "a1satta.pro", domain.ZoneBottom, []domain.Block{{Content: "x"}})
	require.NoError(t, err)
	out, err := c.UpsertBatch(ctx, "a1satta.pro", domain.ZoneBottom, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAuthentication(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	_, err := clientFor(ts, "").List(ctx, "a1satta.pro")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = clientFor(ts, "viewer-token").List(ctx, "a1satta.pro")
	require.NoError(t, err)

	_, err = clientFor(ts, "viewer-token").UpsertBatch(ctx, "a1satta.pro", domain.ZoneTop, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	do := func(method, path, body string) int {
		req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer admin-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, do("GET", "/api/ads", ""))
	assert.Equal(t, http.StatusBadRequest, do("POST", "/api/ads?site=s", "not json"))
	assert.Equal(t, http.StatusBadRequest, do("POST", "/api/ads?site=s", "[]"))
	assert.Equal(t, http.StatusBadRequest, do("POST", "/api/ads?site=s&position=side", "[]"))
	assert.Equal(t, http.StatusBadRequest, do("POST", "/api/ads?site=s&position=top",
		`[{"content":"a","position":"top"},{"content":"b","position":"bottom"}]`))
	assert.Equal(t, http.StatusOK, do("GET", "/api/health", ""))
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(nil, nil, nil, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
