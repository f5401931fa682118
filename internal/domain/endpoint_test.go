package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicateID(t *testing.T) {
	set := NewEndpoints()
	require.NoError(t, set.Add(Endpoint{ID: "a", Route: "a", Method: MethodGet}))

	err := set.Add(Endpoint{ID: "a", Route: "somewhere-else", Method: MethodPost})
	assert.Error(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestAddRejectsSameMethodRouteVersion(t *testing.T) {
	v1 := "v1"
	set := NewEndpoints()
	require.NoError(t, set.Add(Endpoint{ID: "first", Route: "/things/", Version: &v1, Method: MethodGet}))

	err := set.Add(Endpoint{ID: "second", Route: "things", Version: &v1, Method: MethodGet})
	assert.Error(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestAddAllowsDistinctVersions(t *testing.T) {
	v1, v2 := "v1", "v2"
	set := NewEndpoints()
	require.NoError(t, set.Add(Endpoint{ID: "first", Route: "things", Version: &v1, Method: MethodGet}))
	require.NoError(t, set.Add(Endpoint{ID: "second", Route: "things", Version: &v2, Method: MethodGet}))
	assert.Equal(t, 2, set.Len())
}

func TestMergeDropsCollisionsInsteadOfFailing(t *testing.T) {
	base := NewEndpoints()
	require.NoError(t, base.Add(Endpoint{ID: "a", Route: "a", Method: MethodGet}))

	incoming := NewEndpoints()
	require.NoError(t, incoming.Add(Endpoint{ID: "a", Route: "a", Method: MethodGet}))
	require.NoError(t, incoming.Add(Endpoint{ID: "b", Route: "b", Method: MethodGet}))

	base.Merge(incoming, nil)

	assert.Equal(t, 2, base.Len())
	ids := make([]string, 0, base.Len())
	for _, e := range base.All() {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
