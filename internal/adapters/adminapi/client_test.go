package adminapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/adapters/adminapi"
	"karoo_lodge/internal/domain"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...adminapi.Option) *adminapi.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := adminapi.New(ts.URL, "admin-jwt", 100, opts...)
	require.NoError(t, err)
	return c
}

func TestReorder_SendsOrderWithBearer(t *testing.T) {
	var got map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/rooms/reorder", r.URL.Path)
		assert.Equal(t, "Bearer admin-jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	err := c.Reorder(context.Background(), domain.Rooms, []domain.RankAssignment{{ID: "b", SortOrder: 1}, {ID: "a", SortOrder: 2}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"order": []any{
		map[string]any{"id": "b", "sort_order": float64(1)},
		map[string]any{"id": "a", "sort_order": float64(2)},
	}}, got)
}

func TestWrites_AreNotRetried(t *testing.T) {
	var hits int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.UpsertSection(context.Background(), domain.HeroSection{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestReads_RetryOnce(t *testing.T) {
	var hits int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"r1","name":"Aloe Ferox"}],"source":"store"}`)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	page, err := adminapi.Collection[domain.Room](ctx, c, domain.Rooms)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Aloe Ferox", page.Data[0].Name)
	assert.EqualValues(t, "store", page.Source)
}

func TestErrors_MapToDomain(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:   domain.ErrInvalid,
		http.StatusUnauthorized: domain.ErrForbidden,
		http.StatusNotFound:     domain.ErrNotFound,
		http.StatusConflict:     domain.ErrBusy,
	}
	for status, want := range cases {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"nope"}`)
		})
		err := c.DeleteItem(context.Background(), domain.Wines, "w1")
		assert.ErrorIs(t, err, want, status)
		var ae *adminapi.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "nope", ae.Message)
	}
}

func TestDedupe_UsesMaintenanceToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer maint", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"ok":true,"removed":{"rooms":2,"events":0,"wines":1}}`)
	}, adminapi.WithMaintenanceToken("maint"))

	rep, err := c.Dedupe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Rooms)
	assert.Equal(t, 1, rep.Wines)
}
