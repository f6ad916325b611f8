// Package dbx provides the tiny database/sql abstraction shared by the
// relational store: DBTX is implemented by both *sql.DB and *sql.Tx, so
// statements can run against the pool or inside a transaction unchanged.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our stores.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
