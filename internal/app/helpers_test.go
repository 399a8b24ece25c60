package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/storage/sqlstore"
)

// ---- fakes ----

// flakyGateway fails the first n selects with err, then delegates.
type flakyGateway struct {
	domain.Gateway
	mu    sync.Mutex
	fails int
	err   error
	calls int
}

func (f *flakyGateway) Select(ctx context.Context, table string, q domain.Query) ([]domain.Row, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fails > 0
	if fail {
		f.fails--
	}
	f.mu.Unlock()
	if fail {
		return nil, f.err
	}
	return f.Gateway.Select(ctx, table, q)
}

// recordingGateway counts deletes so tests can assert nothing was removed.
type recordingGateway struct {
	domain.Gateway
	deletes int
}

func (r *recordingGateway) Delete(ctx context.Context, table string, fs ...domain.Filter) error {
	r.deletes++
	return r.Gateway.Delete(ctx, table, fs...)
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrBusy
}

// ---- helpers ----

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func at(min int) time.Time {
	return time.Date(2024, 3, 1, 12, min, 0, 0, time.UTC)
}

func ids(t *testing.T, gw domain.Gateway, table string) []string {
	t.Helper()
	rows, err := gw.Select(context.Background(), table, domain.Query{
		Columns: []string{"id"},
		Orders:  []domain.Order{domain.Asc("created_at"), domain.Asc("id")},
	})
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["id"].(string))
	}
	return out
}
