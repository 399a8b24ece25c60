package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	redisad "karoo_lodge/internal/adapters/redis"
	"karoo_lodge/internal/adapters/tablestore"
	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/shared"
	"karoo_lodge/internal/storage/sqlstore"
)

// Pair holds both privilege variants. Elevated is never nil: when it could
// not be built it is Unavailable and ElevatedErr says why.
type Pair struct {
	Restricted  domain.Gateway
	Elevated    domain.Gateway
	ElevatedErr error
	// SQL is set for the SQL drivers, for migrations.
	SQL   *sqlstore.Store
	close func() error
}

func (p *Pair) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// Open builds the gateway pair for the configured driver. It is called once
// per process and the result is passed to whatever needs it.
func Open(ctx context.Context, cfg shared.Config) (*Pair, error) {
	switch cfg.StoreDriver {
	case "rest":
		return openREST(cfg)
	case "mysql":
		return openSQL(ctx, sqlstore.MySQL, cfg.MySQLDSN)
	case "sqlite":
		return openSQL(ctx, sqlstore.SQLite, cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q (want rest, mysql or sqlite)", cfg.StoreDriver)
}

func openREST(cfg shared.Config) (*Pair, error) {
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required for the rest driver")
	}
	// content readers retry once themselves
	public, err := tablestore.New(cfg.BackendURL, cfg.AnonKey, cfg.GatewayRPS, tablestore.WithReadAttempts(1))
	if err != nil {
		return nil, fmt.Errorf("public table store client: %w", err)
	}
	p := &Pair{Restricted: Restricted(public)}

	svc, err := tablestore.New(cfg.BackendURL, cfg.ServiceKey, cfg.GatewayRPS)
	if err != nil {
		p.ElevatedErr = fmt.Errorf("%w: BACKEND_SERVICE_KEY missing", domain.ErrNotConfigured)
		p.Elevated = Unavailable(p.ElevatedErr)
		log.Warn().Err(p.ElevatedErr).Msg("elevated gateway disabled")
		return p, nil
	}
	p.Elevated = svc
	return p, nil
}

func openSQL(ctx context.Context, d sqlstore.Dialect, dsn string) (*Pair, error) {
	st, err := sqlstore.Open(ctx, d, dsn)
	if err != nil {
		return nil, err
	}
	return &Pair{
		Restricted: Restricted(st),
		Elevated:   st,
		SQL:        st,
		close:      st.Close,
	}, nil
}

// OpenLocker returns the Redis maintenance lock when REDIS_ADDR is set and
// an in-process lock otherwise.
func OpenLocker(ctx context.Context, cfg shared.Config) (domain.Locker, func() error, error) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; maintenance lock is process-local")
		return app.NewMemoryLocker(), func() error { return nil }, nil
	}
	l := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := l.Ping(ctx); err != nil {
		_ = l.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return l, l.Close, nil
}
