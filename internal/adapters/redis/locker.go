package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

const keyPrefix = "lodge:lock:"

// unlock deletes the key only while it still holds our token, so an expired
// lock taken over by another run is never released by us.
var unlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a domain.Locker backed by SET NX with a TTL.
type Locker struct{ c *redis.Client }

func New(addr, pass string, db int) *Locker {
	return &Locker{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.c.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		observability.ObserveLock("busy")
		return nil, fmt.Errorf("%w: %s", domain.ErrBusy, key)
	}
	observability.ObserveLock("acquired")

	return func() {
		// the caller's ctx may already be done
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlock.Run(rctx, l.c, []string{keyPrefix + key}, token).Err(); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to release lock")
			return
		}
		observability.ObserveLock("released")
	}, nil
}

func (l *Locker) Ping(ctx context.Context) error { return l.c.Ping(ctx).Err() }

func (l *Locker) Close() error { return l.c.Close() }
