// Package postgres implements the shared cache store on PostgreSQL.
// Instances pointed at one database share warm cache rows.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"transit-synth/internal/observability"
)

const (
	applicationName = "transit-synth"
	connectTimeout  = 5 * time.Second
)

// Pool is the pgx pool shared by the stores of this package.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings it within connectTimeout. Connections are
// tagged with application_name unless the DSN sets one.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// observe records the duration and outcome of one query.
func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}
