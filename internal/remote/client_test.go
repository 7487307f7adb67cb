package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsconsole/internal/domain"
	"adsconsole/internal/remote"
)

func TestListNormalizesIdentities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/ads", r.URL.Path)
		assert.Equal(t, "a1satta.pro", r.URL.Query().Get("site"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id":"m1","content":"<p>a</p>","position":"top","order":0,"site":"a1satta.pro"},
			{"id":"s2","content":"<p>b</p>","position":"middle","order":0,"site":"a1satta.pro"}
		]`))
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL+"/api", remote.WithToken(func() string { return "tok" }))
	blocks, err := c.List(context.Background(), "a1satta.pro")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, domain.Persisted("m1"), blocks[0].Identity)
	assert.Equal(t, domain.ZoneTop, blocks[0].Zone)
	assert.Equal(t, domain.Persisted("s2"), blocks[1].Identity)
}

func TestUpsertBatchSendsZone(t *testing.T) {
	var got []domain.AdRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "top", r.URL.Query().Get("position"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"ads": []map[string]any{
			{"_id": "new-1", "content": "<p>hi</p>", "position": "top", "order": 0, "site": "a1satta.pro"},
			{"_id": "old-1", "content": "<p>yo</p>", "position": "top", "order": 1, "site": "a1satta.pro"},
		}})
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL)
	out, err := c.UpsertBatch(context.Background(), "a1satta.pro", domain.ZoneTop, []domain.Block{
		{Identity: domain.Ephemeral("tmp-top-1-abcd"), Content: "<p>hi</p>"},
		{Identity: domain.Persisted("old-1"), Content: "<p>yo</p>"},
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].MongoID)
	assert.Equal(t, "old-1", got[1].MongoID)
	assert.Equal(t, 1, got[1].Order)
	assert.Equal(t, domain.ZoneTop, got[0].Position)
	assert.Equal(t, domain.Site("a1satta.pro"), got[0].Site)

	require.Len(t, out, 2)
	assert.Equal(t, "new-1", out[0].Identity.ID())
}

func TestUpsertBatchRejectsMissingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := remote.NewClient(srv.URL).UpsertBatch(context.Background(), "s", domain.ZoneTop, nil)
	require.Error(t, err)
}

func TestDeleteStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/ads/gone":
			http.Error(w, "not found", http.StatusNotFound)
		case "/ads/ok":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL)
	require.NoError(t, c.Delete(context.Background(), "ok"))

	err := c.Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = c.Delete(context.Background(), "other")
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Body)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := remote.NewClient(srv.URL, remote.WithTimeout(50*time.Millisecond))
	_, err := c.List(context.Background(), "s")
	require.Error(t, err)
}
