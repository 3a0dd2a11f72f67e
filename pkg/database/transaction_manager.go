package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresTransactionManager opens transactions with a bounded lock wait.
type PostgresTransactionManager struct {
	db          Beginner
	lockTimeout time.Duration
}

// NewPostgresTransactionManager caps every statement's row lock wait at
// lockTimeout. Zero leaves the server default.
func NewPostgresTransactionManager(db Beginner, lockTimeout time.Duration) *PostgresTransactionManager {
	return &PostgresTransactionManager{db: db, lockTimeout: lockTimeout}
}

func (m *PostgresTransactionManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if m.lockTimeout <= 0 {
		return tx, nil
	}

	// set_config with is_local=true behaves like SET LOCAL but takes a bind
	// parameter.
	timeout := fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return tx, nil
}

// RunInTx runs fn inside a transaction from tm and commits when fn returns
// nil. Any error from fn rolls the transaction back and is returned as is.
func RunInTx(ctx context.Context, tm TransactionManager, fn func(tx pgx.Tx) error) error {
	tx, err := tm.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
