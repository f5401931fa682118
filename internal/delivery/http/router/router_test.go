package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveless-run/waveless/internal/domain"
)

func TestLookupExactLiteralRoute(t *testing.T) {
	r := New()
	endpoint := domain.Endpoint{ID: "ping", Route: "ping", Method: domain.MethodGet}
	r.Insert(domain.MethodGet, "ping", endpoint)

	match, ok := r.Lookup(domain.MethodGet, "/ping")
	require.True(t, ok)
	assert.Equal(t, endpoint, match.Endpoint)
	assert.Empty(t, match.Params)
}

func TestLookupCapturesParam(t *testing.T) {
	r := New()
	endpoint := domain.Endpoint{ID: "users.get_one", Route: "users/{id}", Method: domain.MethodGet}
	r.Insert(domain.MethodGet, "users/{id}", endpoint)

	match, ok := r.Lookup(domain.MethodGet, "/users/42")
	require.True(t, ok)
	assert.Equal(t, endpoint, match.Endpoint)
	assert.Equal(t, map[string]string{"id": "42"}, match.Params)
}

func TestLookupPrefersLiteralOverParam(t *testing.T) {
	r := New()
	literal := domain.Endpoint{ID: "users.me", Route: "users/me", Method: domain.MethodGet}
	byID := domain.Endpoint{ID: "users.get_one", Route: "users/{id}", Method: domain.MethodGet}
	r.Insert(domain.MethodGet, "users/me", literal)
	r.Insert(domain.MethodGet, "users/{id}", byID)

	match, ok := r.Lookup(domain.MethodGet, "/users/me")
	require.True(t, ok)
	assert.Equal(t, literal, match.Endpoint)

	match, ok = r.Lookup(domain.MethodGet, "/users/99")
	require.True(t, ok)
	assert.Equal(t, byID, match.Endpoint)
	assert.Equal(t, "99", match.Params["id"])
}

func TestLookupMissesWrongMethod(t *testing.T) {
	r := New()
	r.Insert(domain.MethodGet, "ping", domain.Endpoint{ID: "ping", Route: "ping", Method: domain.MethodGet})

	_, ok := r.Lookup(domain.MethodPost, "/ping")
	assert.False(t, ok)
}

func TestBuildInstallsLoginEndpointWhenAuthConfigured(t *testing.T) {
	r := Build("api", nil, true)
	match, ok := r.Lookup(domain.MethodPost, "/api/internal/login")
	require.True(t, ok)
	assert.Equal(t, LoginEndpointID, match.Endpoint.ID)
}

func TestBuildOmitsLoginEndpointWithoutAuth(t *testing.T) {
	r := Build("api", nil, false)
	_, ok := r.Lookup(domain.MethodPost, "/api/internal/login")
	assert.False(t, ok)
}
