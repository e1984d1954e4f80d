package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig parses dsn for the given environment. Local development
// connects without SSL unless the DSN says otherwise. Other environments sit
// behind a transaction pooler, which cannot hold server-side prepared
// statements, so they use the simple protocol.
func PoolConfig(dsn, environment string) (*pgxpool.Config, error) {
	if environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = withParam(dsn, "sslmode=disable")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	if environment != "development" {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	cfg.MaxConns = 25
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

// NewPool opens a pool and checks that the database answers.
func NewPool(ctx context.Context, dsn, environment string) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(dsn, environment)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func withParam(dsn, param string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " " + param
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
