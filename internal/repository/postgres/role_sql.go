package postgres

import (
	"context"
	"fmt"

	"github.com/waveless-run/waveless/internal/domain"
)

// RoleBackend is the SQL variant of domain.RoleBackend: a table of
// (user_id, role) rows, per spec.md §4.8.
type RoleBackend struct {
	Table string
}

func NewRoleBackend(cfg domain.SQLRoleBackend) *RoleBackend {
	return &RoleBackend{Table: cfg.Table}
}

func (RoleBackend) Name() string { return "sql" }

func (r *RoleBackend) Get(ctx context.Context, conn domain.Connection, userID int64) (string, bool, error) {
	query := fmt.Sprintf("SELECT role FROM %s WHERE user_id = $1", r.Table)
	row, ok, err := conn.QueryRow(ctx, query, []any{userID})
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	role, _ := row["role"].(string)
	return role, true, nil
}

func (r *RoleBackend) Set(ctx context.Context, conn domain.Connection, userID int64, role string) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role",
		r.Table,
	)
	_, err := conn.Exec(ctx, query, []any{userID, role})
	return err
}

func (r *RoleBackend) Remove(ctx context.Context, conn domain.Connection, userID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", r.Table)
	_, err := conn.Exec(ctx, query, []any{userID})
	return err
}
