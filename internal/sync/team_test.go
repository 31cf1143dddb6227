package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

func TestTeamManagerSyncSavesOnlyNewTeams(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	api := &stubClient{teams: []store.Record{
		{"team": "SEA", "fullname": "Seattle Seahawks"},
		{"team": "CHI", "fullname": "Chicago Bears"},
	}}
	mgr := NewTeamManager(mem, api, logging.NewNop())

	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	// Upstream unchanged: the subset diff finds nothing new.
	written, err = mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, written)

	api.teams = append(api.teams, store.Record{"team": "GB", "fullname": "Green Bay Packers"})
	written, err = mgr.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "GB", written[0]["team"])

	all, err := mgr.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
