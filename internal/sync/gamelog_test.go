package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

func newGamelogFixture() (*PlayerGamelogManager, *stubClient, *store.Memory) {
	mem := store.NewMemory()
	api := &stubClient{}
	teams := NewTeamManager(mem, api, logging.NewNop())
	rosters := NewRosterManager(mem, api, teams, logging.NewNop())
	return NewPlayerGamelogManager(mem, api, rosters, logging.NewNop()), api, mem
}

func gamelogRec(profileID, seasonYear, week int, team string) store.Record {
	return store.Record{
		"profile_id":  profileID,
		"season":      seasonYear,
		"season_type": "regular_season",
		"wk":          week,
		"team":        team,
	}
}

func TestGamelogSyncSkippedOutsideSeasonWindow(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newGamelogFixture()
	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	api.gamelogs = []store.Record{gamelogRec(1, 2019, 1, "SEA")}

	// May sits between March 1 and August 1: logs cannot go stale there.
	mgr.now = fixedNow(2019, time.May, 15)
	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, written)

	stored, err := mem.Find(ctx, entity.PlayerGamelog, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGamelogSyncRunsOnColdStartInWindow(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newGamelogFixture()
	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	api.gamelogs = []store.Record{gamelogRec(1, 2019, 1, "SEA")}

	mgr.now = fixedNow(2019, time.October, 9)
	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, written, 1)

	cursor, err := mem.Find(ctx, entity.PlayerGamelogProcess, nil, nil)
	require.NoError(t, err)
	require.Len(t, cursor, 1)
}

func TestGamelogSyncCooldownWithinWeek(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newGamelogFixture()
	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	api.gamelogs = []store.Record{gamelogRec(1, 2019, 1, "SEA")}

	// Wednesday run, then a retry on Friday of the same week: still fresh.
	mgr.now = fixedNow(2019, time.October, 9)
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	mgr.now = fixedNow(2019, time.October, 11)
	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestGamelogSyncTuesdayCadence(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newGamelogFixture()
	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	api.gamelogs = []store.Record{gamelogRec(1, 2019, 1, "SEA")}

	// Wednesday Oct 9 run, next Tuesday Oct 15 is under a week later but
	// crosses the weekly cadence point.
	mgr.now = fixedNow(2019, time.October, 9)
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	mgr.now = fixedNow(2019, time.October, 15)
	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestGamelogSyncWeekElapsed(t *testing.T) {
	ctx := context.Background()
	mgr, api, mem := newGamelogFixture()
	_, err := mem.Save(ctx, entity.Roster, []store.Record{rosterRec(1, "Chris", "Wollam", "SEA")})
	require.NoError(t, err)
	api.gamelogs = []store.Record{gamelogRec(1, 2019, 1, "SEA")}

	mgr.now = fixedNow(2019, time.October, 9)
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	mgr.now = fixedNow(2019, time.October, 17)
	written, err := mgr.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, written, 1)
}

func TestGamelogPreviousTeamsFromOtherWeeks(t *testing.T) {
	ctx := context.Background()
	mgr, _, mem := newGamelogFixture()

	_, err := mem.Save(ctx, entity.PlayerGamelog, []store.Record{
		gamelogRec(1, 2019, 1, "DET"),
		gamelogRec(1, 2019, 2, "DET"),
	})
	require.NoError(t, err)

	written, err := mgr.Save(ctx, []store.Record{gamelogRec(1, 2019, 8, "NYG")})
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.ElementsMatch(t, []string{"DET"}, toStringSlice(written[0]["previous_teams"]))
}
