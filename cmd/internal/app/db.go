package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbPingTimeout = 3 * time.Second

// NewDBPool opens the pgx pool backing the identity store and verifies
// connectivity before handing it out. Schema migrations have already been
// applied at this point (see migrate.go), so a reachable database is a
// fully provisioned one.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, dbPingTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB verifies the pool can reach the database within timeout. Used at
// startup and by the /readyz probe.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return pool.Ping(ctx)
}
