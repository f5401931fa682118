package postgres

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/waveless-run/waveless/internal/domain"
)

const sessionTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SessionBackend is the SQL variant of domain.SessionBackend: a table
// of (token, user_id, created_at) rows, freshness judged by
// created_at + max_age > now >= created_at, per spec.md §4.8.
type SessionBackend struct {
	Table   string
	MaxAgeS int64
}

func NewSessionBackend(cfg domain.SQLSessionBackend) *SessionBackend {
	return &SessionBackend{Table: cfg.Table, MaxAgeS: cfg.MaxAgeSeconds}
}

func (SessionBackend) Name() string { return "sql" }

func (s *SessionBackend) MaxAge() int64 { return s.MaxAgeS }

func (s *SessionBackend) Check(ctx context.Context, conn domain.Connection, token string) (int64, bool, error) {
	query := fmt.Sprintf("SELECT user_id, created_at FROM %s WHERE token = $1", s.Table)
	row, ok, err := conn.QueryRow(ctx, query, []any{token})
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	createdAt, err := toTime(row["created_at"])
	if err != nil {
		return 0, false, err
	}

	now := time.Now()
	expiresAt := createdAt.Add(time.Duration(s.MaxAgeS) * time.Second)
	if !now.Before(expiresAt) || now.Before(createdAt) {
		return 0, false, nil
	}

	userID, err := toInt64(row["user_id"])
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (s *SessionBackend) New(ctx context.Context, conn domain.Connection, userID int64) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf("INSERT INTO %s (token, user_id, created_at) VALUES ($1, $2, NOW())", s.Table)
	if _, err := conn.Exec(ctx, query, []any{token, userID}); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionBackend) Invalidate(ctx context.Context, conn domain.Connection, userID int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", s.Table)
	_, err := conn.Exec(ctx, query, []any{userID})
	return err
}

func (s *SessionBackend) RemoveExpired(ctx context.Context, conn domain.Connection) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE created_at + make_interval(secs => $1) <= NOW()", s.Table)
	_, err := conn.Exec(ctx, query, []any{s.MaxAgeS})
	return err
}

// generateSessionToken draws a 32-character alphanumeric token from
// crypto/rand. No library in the dependency set generates bounded
// alphabet-constrained random strings, so this one case falls back to
// the standard library (see DESIGN.md).
func generateSessionToken() (string, error) {
	const length = 32
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = sessionTokenAlphabet[int(b)%len(sessionTokenAlphabet)]
	}
	return string(out), nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("expected a timestamp, got %T", v)
	}
}
