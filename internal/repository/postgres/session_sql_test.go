package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveless-run/waveless/internal/domain"
)

// fixedRowConn always answers QueryRow with the same row, regardless of
// the query text, so the session backend's freshness arithmetic can be
// exercised without a real database.
type fixedRowConn struct {
	row domain.Row
}

func (c *fixedRowConn) Exec(ctx context.Context, query string, args []any) (int64, error) {
	return 0, nil
}

func (c *fixedRowConn) Query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	return []domain.Row{c.row}, nil
}

func (c *fixedRowConn) QueryRow(ctx context.Context, query string, args []any) (domain.Row, bool, error) {
	return c.row, true, nil
}

func TestSessionCheckAcceptsFreshToken(t *testing.T) {
	backend := &SessionBackend{Table: "sessions", MaxAgeS: 3600}
	conn := &fixedRowConn{row: domain.Row{
		"user_id":    int64(7),
		"created_at": time.Now().Add(-time.Minute),
	}}

	userID, ok, err := backend.Check(context.Background(), conn, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), userID)
}

func TestSessionCheckRejectsExpiredToken(t *testing.T) {
	backend := &SessionBackend{Table: "sessions", MaxAgeS: 60}
	conn := &fixedRowConn{row: domain.Row{
		"user_id":    int64(7),
		"created_at": time.Now().Add(-2 * time.Hour),
	}}

	_, ok, err := backend.Check(context.Background(), conn, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionCheckRejectsFutureCreatedAt(t *testing.T) {
	backend := &SessionBackend{Table: "sessions", MaxAgeS: 3600}
	conn := &fixedRowConn{row: domain.Row{
		"user_id":    int64(7),
		"created_at": time.Now().Add(time.Hour),
	}}

	_, ok, err := backend.Check(context.Background(), conn, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}
