package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

func newProfileFixture() (*PlayerProfileManager, *stubClient, *store.Memory) {
	mem := store.NewMemory()
	api := &stubClient{}
	teams := NewTeamManager(mem, api, logging.NewNop())
	rosters := NewRosterManager(mem, api, teams, logging.NewNop())
	return NewPlayerProfileManager(mem, api, rosters, logging.NewNop()), api, mem
}

func TestPlayerProfileSyncSkipsUnchangedRosters(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newProfileFixture()

	_, err := mem.Save(ctx, entity.Roster, []store.Record{
		rosterRec(1, "Chris", "Wollam", "SEA"),
		rosterRec(2, "Russell", "Wilson", "SEA"),
	})
	require.NoError(t, err)
	_, err = mem.Save(ctx, entity.PlayerProfile, []store.Record{
		{"profile_id": 1, "last_name": "Wollam", "team": "SEA"},
	})
	require.NoError(t, err)

	api.profiles = []store.Record{{"profile_id": 2, "last_name": "Wilson", "team": "SEA"}}

	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, 2, written[0]["profile_id"])
}

func TestPlayerProfileSyncNoopWhenNothingChanged(t *testing.T) {
	ctx := context.Background()
	mgr, _, mem := newProfileFixture()

	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	_, err = mem.Save(ctx, entity.PlayerProfile, []store.Record{
		{"profile_id": 1, "last_name": "Wollam", "team": "SEA"},
	})
	require.NoError(t, err)

	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestPlayerProfileSyncAllForcesRefresh(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newProfileFixture()

	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	_, err = mem.Save(ctx, entity.PlayerProfile, []store.Record{
		{"profile_id": 1, "last_name": "Wollam", "team": "SEA", "weight": 250},
	})
	require.NoError(t, err)

	api.profiles = []store.Record{{"profile_id": 1, "last_name": "Wollam", "team": "SEA", "weight": 255}}

	written, err := mgr.SyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, 255, written[0]["weight"])

	all, err := mgr.Find(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlayerProfileCarriesRosterHistory(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newProfileFixture()

	mover := rosterRec(1, "Golden", "Tate", "NYG")
	mover["previous_teams"] = []string{"DET", "SEA"}
	_, err := mem.Save(ctx, entity.Roster, []store.Record{mover})
	require.NoError(t, err)

	api.profiles = []store.Record{{"profile_id": 1, "last_name": "Tate", "team": "NYG"}}

	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.ElementsMatch(t, []string{"DET", "SEA"}, toStringSlice(written[0]["previous_teams"]))
}
