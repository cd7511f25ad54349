// Package pgx provides Postgres connectivity built on loom endpoints.
//
// In tests, construct from a resolved environment endpoint:
//
//	pool, err := pgx.Connect(ctx, env.Endpoint("db"))
//	defer pool.Close()
//
// In service code, construct from parsed wiring:
//
//	w, _ := connect.ParseWiring(ctx)
//	pool, err := pgx.Connect(ctx, w.Egress("db"))
package pgx

import (
	"context"
	"database/sql"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" database/sql driver

	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/loomerr"
)

// DSN builds a Postgres connection string from endpoint attributes.
// Uses PGHOST/PGPORT/PGUSER/PGPASSWORD/PGDATABASE with sslmode=disable.
func DSN(ep connect.Endpoint) string {
	return connect.PostgresDSN(ep)
}

// Connect returns a pgx connection pool from a loom Postgres endpoint.
func Connect(ctx context.Context, ep connect.Endpoint) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN(ep))
}

// OpenDB returns a *sql.DB backed by the pgx driver.
func OpenDB(ep connect.Endpoint) (*sql.DB, error) {
	return sql.Open("pgx", DSN(ep))
}

// Querier is the slice of *pgxpool.Pool that AuthorStore depends on,
// narrowed so AuthorStore can be driven by a fake in tests without a
// live Postgres instance.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row
}

// AuthorStore looks up the display name backing the /authors/:[uint]id
// route from a Postgres `authors` table — loomd prefers this over echoing
// the route parameter back verbatim whenever a Postgres resource is
// configured.
//
// Errors are translated into the router's canonical error taxonomy here,
// at the connector boundary, rather than leaking a raw driver error up to
// the handler: a missing row becomes loomerr.NotFound (the same 404 an
// unmatched route would produce), and any other query failure becomes
// loomerr.Unavailable (503), since a broken connection pool is a
// transient backend failure rather than a bug in loomd itself.
type AuthorStore struct {
	q Querier
}

// NewAuthorStore wraps q, typically a *pgxpool.Pool returned by Connect.
func NewAuthorStore(q Querier) *AuthorStore {
	return &AuthorStore{q: q}
}

// Name returns the display name of the author with the given id.
func (s *AuthorStore) Name(ctx context.Context, id int64) (string, error) {
	var name string
	err := s.q.QueryRow(ctx, "SELECT name FROM authors WHERE id = $1", id).Scan(&name)
	switch {
	case err == nil:
		return name, nil
	case errors.Is(err, pgxv5.ErrNoRows):
		return "", loomerr.New(loomerr.NotFound, "author %d not found", id)
	default:
		return "", loomerr.Wrap(loomerr.Unavailable, "query author", err)
	}
}
