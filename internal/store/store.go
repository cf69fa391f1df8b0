// Package store persists validated buildings and units in PostgreSQL.
//
// Each building is saved in its own transaction so that one failing building
// does not roll back the rest of an import. Saving a building replaces its
// units: the import is the source of truth for what a building offers.
package store

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested building does not exist.
var ErrNotFound = errors.New("building not found")

// DBTX is the subset of a pgx connection the store runs queries on.
// Satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// DB is a DBTX that can also open transactions.
type DB interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store reads and writes listings.
type Store struct {
	db DB
}

// New creates a Store over db.
func New(db DB) *Store {
	return &Store{db: db}
}

func exec(ctx context.Context, q DBTX, b sq.Sqlizer) (pgconn.CommandTag, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("build query: %w", err)
	}
	return q.Exec(ctx, stmt, args...)
}

func query(ctx context.Context, q DBTX, b sq.Sqlizer) (pgx.Rows, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.Query(ctx, stmt, args...)
}
