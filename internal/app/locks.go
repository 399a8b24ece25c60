package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

// MemoryLocker is the single-process Locker used when no Redis is
// configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
}

func NewMemoryLocker() *MemoryLocker { return &MemoryLocker{held: map[string]time.Time{}} }

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if exp, ok := m.held[key]; ok && now.Before(exp) {
		observability.ObserveLock("busy")
		return nil, fmt.Errorf("%w: %s", domain.ErrBusy, key)
	}
	exp := now.Add(ttl)
	m.held[key] = exp
	observability.ObserveLock("acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.held[key].Equal(exp) {
				delete(m.held, key)
			}
			observability.ObserveLock("released")
		})
	}, nil
}

const lockTTL = 2 * time.Minute

// lockTable takes the maintenance lock for one table.
func lockTable(ctx context.Context, l domain.Locker, table string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	return l.Acquire(ctx, table, lockTTL)
}
