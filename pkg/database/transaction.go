package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const txKey = txContextKey("tx-context-key")

// Tx is a transaction that tolerates repeated Commit/Rollback calls, so
// callers can always `defer tx.Rollback(ctx)` after a successful commit.
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

// Transaction wraps sqlx.Tx and tracks whether it has been closed
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
	// owned is false when the transaction was joined from ctx; only the
	// caller that began it may commit or roll it back.
	owned bool
}

// NewTx wraps a freshly begun sqlx transaction
func NewTx(tx *sqlx.Tx, logger ectologger.Logger) *Transaction {
	return &Transaction{Tx: tx, logger: logger, owned: true}
}

// WithTx stores tx in ctx so nested repository calls join it
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTx joins the open transaction carried by ctx, or begins a new one
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(*Transaction); ok && existing != nil && existing.IsOpen() {
		return ctx, &Transaction{Tx: existing.Tx, logger: logger, owned: false}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := NewTx(tx, logger)
	return WithTx(ctx, newTx), newTx, nil
}

// IsOpen reports whether the transaction can still be used
func (t *Transaction) IsOpen() bool {
	return !t.closed
}

// Rollback aborts the transaction; a no-op once closed or when joined
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.closed || !t.owned {
		return nil
	}

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction: %w", err)
	}

	t.closed = true
	return nil
}

// Commit commits the transaction; a no-op once closed or when joined
func (t *Transaction) Commit(ctx context.Context) error {
	if t.closed || !t.owned {
		return nil
	}

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}

	t.closed = true
	return nil
}
