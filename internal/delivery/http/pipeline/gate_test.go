package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

type stubSession struct {
	userID int64
	ok     bool
}

func (s *stubSession) Name() string { return "stub" }
func (s *stubSession) Check(ctx context.Context, conn domain.Connection, token string) (int64, bool, error) {
	return s.userID, s.ok, nil
}
func (s *stubSession) New(ctx context.Context, conn domain.Connection, userID int64) (string, error) {
	return "", nil
}
func (s *stubSession) Invalidate(ctx context.Context, conn domain.Connection, userID int64) error {
	return nil
}
func (s *stubSession) RemoveExpired(ctx context.Context, conn domain.Connection) error { return nil }
func (s *stubSession) MaxAge() int64                                                   { return 3600 }

func TestGateRejectsMissingCredentialsBeforeSessionCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	endpoint := domain.Endpoint{ID: "secure", RequireAuth: true}

	// A session backend that would panic if called proves the gate
	// short-circuits on the missing-token path before ever reaching it.
	var called bool
	session := &spySession{onCheck: func() { called = true }}

	_, err := runGate(context.Background(), req, session, nil, nil, nil, endpoint, domain.ExecuteInput{})
	require.Error(t, err)
	expected, ok := corerr.AsExpected(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, expected.Status)
	assert.False(t, called)
}

type spySession struct {
	onCheck func()
}

func (s *spySession) Name() string { return "spy" }
func (s *spySession) Check(ctx context.Context, conn domain.Connection, token string) (int64, bool, error) {
	if s.onCheck != nil {
		s.onCheck()
	}
	return 0, false, nil
}
func (s *spySession) New(ctx context.Context, conn domain.Connection, userID int64) (string, error) {
	return "", nil
}
func (s *spySession) Invalidate(ctx context.Context, conn domain.Connection, userID int64) error {
	return nil
}
func (s *spySession) RemoveExpired(ctx context.Context, conn domain.Connection) error { return nil }
func (s *spySession) MaxAge() int64                                                   { return 3600 }

func TestGateAcceptsTokenFromAuthorizationHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "abc123")
	endpoint := domain.Endpoint{ID: "secure", RequireAuth: true}
	session := &stubSession{userID: 9, ok: true}

	out, err := runGate(context.Background(), req, session, nil, nil, nil, endpoint, domain.ExecuteInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Params)
}

func TestGateInjectsUserIDWhenRequested(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "abc123")
	endpoint := domain.Endpoint{ID: "secure", RequireAuth: true, InjectUserID: true}
	session := &stubSession{userID: 9, ok: true}

	out, err := runGate(context.Background(), req, session, nil, nil, nil, endpoint, domain.ExecuteInput{})
	require.NoError(t, err)
	require.Contains(t, out.Params, "user_id")
	assert.True(t, out.Params["user_id"].IsInternal())
	assert.Equal(t, "9", out.Params["user_id"].Internal())
}

func TestGateRejectsEmptyAuthorizationHeaderAsMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "")
	endpoint := domain.Endpoint{ID: "secure", RequireAuth: true}

	_, err := runGate(context.Background(), req, &stubSession{}, nil, nil, nil, endpoint, domain.ExecuteInput{})
	require.Error(t, err)
	expected, ok := corerr.AsExpected(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, expected.Status)
}
