package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database manages the PostgreSQL connection pool shared by the stores.
// Each store operation acquires from and releases to the pool on its own;
// no session is held across messages.
type Database struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for the given DSN and verifies connectivity.
func New(ctx context.Context, dsn string) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Database{pool: pool}, nil
}

// Pool exposes the underlying pool for the stores.
func (d *Database) Pool() *pgxpool.Pool { return d.pool }

func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Database) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}
