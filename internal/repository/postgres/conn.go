// Package postgres implements the only fully wired backend for every
// pluggable contract in internal/domain: connections, pool management
// (C7), schema discovery (C3), and the SQL authentication, session and
// role backends (C8).
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// Conn adapts a pgxpool.Pool to domain.Connection, decoding rows into
// domain.Row by column name rather than into a fixed struct, since the
// queries it runs are authored per-endpoint and not known at compile
// time.
type Conn struct {
	pool *pgxpool.Pool
}

func NewConn(pool *pgxpool.Pool) *Conn {
	return &Conn{pool: pool}
}

func (c *Conn) Exec(ctx context.Context, query string, args []any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *Conn) Query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Row
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(domain.Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (c *Conn) QueryRow(ctx context.Context, query string, args []any) (domain.Row, bool, error) {
	rows, err := c.Query(ctx, query, args)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// IsNotFound reports whether err is pgx's no-rows sentinel, wrapped or
// bare.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// errNotFound builds the client-facing 404 every SQL backend returns
// when a lookup comes back empty.
func errNotFound(what string) error {
	return corerr.Expectedf(404, "%s not found", what)
}
