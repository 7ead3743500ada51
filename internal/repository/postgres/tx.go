package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

// psql builds statements with PostgreSQL placeholders ($1, $2, ...).
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// executor is the common subset of *sql.DB and *sql.Tx used by the repositories.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txCtxKey struct{}

// querier returns the transaction stored in ctx, or db when there is none.
func querier(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

type txManager struct {
	db *sql.DB
}

// NewTxManager creates a transaction manager on top of db
func NewTxManager(db *sql.DB) repository.TxManager {
	return &txManager{db: db}
}

// RunInTx executes fn within a transaction. A call made while a transaction
// is already active in ctx joins it instead of opening a second one.
// On error from fn the transaction is rolled back; on panic it is rolled back
// and the panic is re-raised.
func (m *txManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
