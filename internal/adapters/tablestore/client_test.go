package tablestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/adapters/tablestore"
	"karoo_lodge/internal/domain"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...tablestore.Option) *tablestore.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cl, err := tablestore.New(ts.URL, "anon-key", 1000, opts...) // high RPS for tests
	require.NoError(t, err)
	return cl
}

func TestNew_RequiresKeyAndURL(t *testing.T) {
	_, err := tablestore.New("https://x.supabase.co", "", 1)
	assert.Error(t, err)
	_, err = tablestore.New("not a url", "k", 1)
	assert.Error(t, err)
}

func TestSelect_EncodesQuery(t *testing.T) {
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rooms", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "id,name", q.Get("select"))
		assert.Equal(t, `in.("a","b")`, q.Get("id"))
		assert.Equal(t, "sort_order.asc.nullslast,name.asc.nullslast", q.Get("order"))
		assert.Equal(t, "5", q.Get("limit"))
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "a", "name": "Aloe Ferox", "sort_order": 1}})
	})

	rows, err := cl.Select(context.Background(), "rooms", domain.Query{
		Columns: []string{"id", "name"},
		Filters: []domain.Filter{domain.In("id", []string{"a", "b"})},
		Orders:  []domain.Order{domain.Asc("sort_order"), domain.Asc("name")},
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Aloe Ferox", rows[0]["name"])
	assert.Equal(t, json.Number("1"), rows[0]["sort_order"])
}

func TestSelect_RetriesThenSuccess(t *testing.T) {
	var hits int32
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := cl.Select(ctx, "events", domain.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestSelect_ReadAttemptsCapsRetries(t *testing.T) {
	var hits int32
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, tablestore.WithReadAttempts(1))

	_, err := cl.Select(context.Background(), "rooms", domain.Query{})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestWrites_AreNotRetried(t *testing.T) {
	var hits int32
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	})

	err := cl.Insert(context.Background(), "contacts", domain.Row{"id": "1", "name": "Sam"})
	require.Error(t, err)
	var se *domain.StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "insert", se.Op)
	assert.Contains(t, err.Error(), "upstream down")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestUpsert_MergesDuplicatesOnID(t *testing.T) {
	var body []map[string]any
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &body))
		w.WriteHeader(http.StatusCreated)
	})

	err := cl.Upsert(context.Background(), "rooms", []domain.Row{
		{"id": "b", "sort_order": 1},
		{"id": "a", "sort_order": 2},
	})
	require.NoError(t, err)
	require.Len(t, body, 2)
	assert.Equal(t, "b", body[0]["id"])

	err = cl.Upsert(context.Background(), "rooms", []domain.Row{{"sort_order": 1}})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}

func TestUpdateAndDelete_RequireFilters(t *testing.T) {
	var method, filter string
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, filter = r.Method, r.URL.Query().Get("id")
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	assert.ErrorIs(t, cl.Delete(ctx, "rooms"), domain.ErrInvalid)
	assert.ErrorIs(t, cl.Update(ctx, "rooms", domain.Row{"name": "x"}), domain.ErrInvalid)

	require.NoError(t, cl.Update(ctx, "rooms", domain.Row{"name": "x"}, domain.Eq("id", "r1")))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "eq.r1", filter)

	require.NoError(t, cl.Delete(ctx, "rooms", domain.Eq("id", "r1")))
	assert.Equal(t, http.MethodDelete, method)
}

func TestForbiddenMapsToSentinel(t *testing.T) {
	cl := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table rooms"}`))
	})
	err := cl.Delete(context.Background(), "rooms", domain.Eq("id", "x"))
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Contains(t, err.Error(), "42501")
}
