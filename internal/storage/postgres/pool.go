// Package postgres is the production Store implementation, backed by
// pgx/pgxpool. Its connection pool is a plain bounded pool (min_idle,
// max_size) rather than the teacher's role-aware pool — this catalog has
// no per-transaction database-role concept, so the SET LOCAL ROLE layer
// the teacher's pool carries has no job to do here (see DESIGN.md).
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig bounds the shared connection pool per the concurrency
// model's resource constraints (min_idle >= 1, max_size >= min_idle).
type PoolConfig struct {
	MinIdle           int32
	MaxSize           int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultPoolConfig returns the defaults named in the external interface
// contract: min_idle=5, max_size=30.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinIdle:           5,
		MaxSize:           30,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
	}
}

func newPool(ctx context.Context, connString string, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = cfg.MinIdle
	poolCfg.MaxConns = cfg.MaxSize
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}
