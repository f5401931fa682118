package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/pkg/password"
)

// AuthMethod is the SQL variant of domain.AuthenticationMethod: it
// checks credentials against a single table with a name/password/user
// id column triple, per spec.md §4.8.
type AuthMethod struct {
	Table         string
	NameField     string
	PasswordField string
	UserField     string
}

func NewAuthMethod(cfg domain.SQLAuthMethod) *AuthMethod {
	return &AuthMethod{
		Table:         cfg.Table,
		NameField:     cfg.NameField,
		PasswordField: cfg.PasswordField,
		UserField:     cfg.UserField,
	}
}

func (AuthMethod) Name() string { return "sql" }

func (a *AuthMethod) Check(ctx context.Context, conn domain.Connection, entries map[string]string) (int64, bool, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = $1", a.UserField, a.PasswordField, a.Table, a.NameField)
	row, ok, err := conn.QueryRow(ctx, query, []any{entries["name"]})
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	stored, _ := row[a.PasswordField].(string)
	if !password.Verify(stored, entries["password"]) {
		return 0, false, nil
	}
	userID, err := toInt64(row[a.UserField])
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// Signup inserts a new credential row and returns an opaque receipt.
// The source leaves this operation's reference behaviour unspecified
// (spec.md §9 open question a); this mints a random receipt token
// rather than handing the caller the new row's user id directly, since
// nothing about signup's contract promises that id is safe to expose.
func (a *AuthMethod) Signup(ctx context.Context, conn domain.Connection, entries map[string]string) (string, error) {
	hashed, err := password.Hash(entries["password"])
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES ($1, $2) RETURNING %s", a.Table, a.NameField, a.PasswordField, a.UserField)
	row, ok, err := conn.QueryRow(ctx, query, []any{entries["name"], hashed})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", corerr.Expected(500, "signup did not return the new user id")
	}
	if _, err := toInt64(row[a.UserField]); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func (a *AuthMethod) Delete(ctx context.Context, conn domain.Connection, userID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", a.Table, a.UserField)
	_, err := conn.Exec(ctx, query, []any{userID})
	return err
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer user id, got %T", v)
	}
}
