// Package postgres is the production PersistencePort implementation:
// a pgx-backed store for the catalog, mapping, pricing, and AI-budget
// queries the matching engine and orchestrator need, plus the export
// bookkeeping tables. It mirrors the pack's advisor-extraction store in
// shape (a thin Pool interface over *pgxpool.Pool so tests can swap in
// a pgxmock double, query-per-method, pgx.ErrNoRows mapped to a typed
// not-found) but carries OrderFlow's own schema and queries.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the narrow subset of *pgxpool.Pool the stores call, so unit
// tests can substitute a hand-rolled fake without a live database.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store bundles every query group (catalog, mapping, pricing, AI
// budget, export bookkeeping) behind one pgx connection pool, the same
// "one store, many narrow interfaces satisfied" shape as the in-memory
// double in internal/store/memstore.
type Store struct {
	pool Pool
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgxpool against connString and verifies connectivity.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
