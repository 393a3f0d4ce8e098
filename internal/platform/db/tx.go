package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ReadCommitted starts statements on a fresh snapshot each time. Ledger
// writers rely on it to observe rows committed while they waited on a lock.
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Serializable is used where several dependent reads and writes must commit
// as one or not at all.
var Serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

// WithTx executes fn within a transaction using the supplied options.
// Serialization failures are translated by Translate before returning.
func WithTx(ctx context.Context, pool Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return Translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Translate(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}
