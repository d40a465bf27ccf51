package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store-level sentinel errors.
var (
	// ErrTaskExists means the alert already produced a generated task;
	// the unique constraint on generated_tasks.alert_id tripped.
	ErrTaskExists = errors.New("task already exists for alert")
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
