package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "karoo_lodge/internal/adapters/redis"
	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
)

var (
	_ domain.Locker = (*redisad.Locker)(nil)
	_ domain.Locker = (*app.MemoryLocker)(nil)
)

func newLocker(t *testing.T) (*redisad.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()
	require.NoError(t, l.Ping(ctx))

	release, err := l.Acquire(ctx, "rooms", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lodge:lock:rooms"))

	_, err = l.Acquire(ctx, "rooms", time.Minute)
	assert.ErrorIs(t, err, domain.ErrBusy)

	// other tables are independent
	releaseEvents, err := l.Acquire(ctx, "events", time.Minute)
	require.NoError(t, err)
	releaseEvents()

	release()
	assert.False(t, mr.Exists("lodge:lock:rooms"))
	release2, err := l.Acquire(ctx, "rooms", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestLocker_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "wines", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "wines", time.Minute)
	require.NoError(t, err)
	stale()
	assert.True(t, mr.Exists("lodge:lock:wines"), "stale release must not drop the new holder's lock")
	fresh()
}
