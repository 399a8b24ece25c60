package domain

import (
	"context"
	"time"
)

// Gateway is a table-oriented persistence client. Implementations must be
// safe for concurrent use.
type Gateway interface {
	Select(ctx context.Context, table string, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) error
	Update(ctx context.Context, table string, values Row, filters ...Filter) error
	// Upsert inserts rows or, when the id already exists, updates only the
	// columns present in the row.
	Upsert(ctx context.Context, table string, rows []Row) error
	Delete(ctx context.Context, table string, filters ...Filter) error
}

// Locker guards a key for the duration of a maintenance operation. Acquire
// never blocks: a held key yields ErrBusy.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
