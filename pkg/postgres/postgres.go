package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Option configures the pool.
type Option func(*pgxpool.Config)

// WithPoolSize sets the max and min number of pooled connections.
func WithPoolSize(maxConns, minConns int32) Option {
	return func(c *pgxpool.Config) {
		if maxConns > 0 {
			c.MaxConns = maxConns
		}
		if minConns >= 0 {
			c.MinConns = minConns
		}
	}
}

// WithConnLifetimes sets idle and total connection lifetimes.
func WithConnLifetimes(idle, total time.Duration) Option {
	return func(c *pgxpool.Config) {
		if idle > 0 {
			c.MaxConnIdleTime = idle
		}
		if total > 0 {
			c.MaxConnLifetime = total
		}
	}
}

// Connect opens a pgx pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return p, nil
}

// Migrate applies idempotent DDL statements in order.
func Migrate(ctx context.Context, p *pgxpool.Pool, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
