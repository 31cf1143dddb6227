package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

func rosterRec(profileID int, first, last, team string) store.Record {
	return store.Record{
		"profile_id": profileID,
		"first_name": first,
		"last_name":  last,
		"team":       team,
		"position":   "WR",
	}
}

func newRosterFixture() (*RosterManager, *stubClient, *store.Memory) {
	mem := store.NewMemory()
	api := &stubClient{teams: []store.Record{{"team": "SEA"}, {"team": "CHI"}}}
	teams := NewTeamManager(mem, api, logging.NewNop())
	return NewRosterManager(mem, api, teams, logging.NewNop()), api, mem
}

func TestRosterManagerPreviousTeamsHistory(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newRosterFixture()

	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T1")}
	_, err := mgr.Sync(ctx)
	require.NoError(t, err)

	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T2")}
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T3")}
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	all, err := mgr.Find(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "T3", all[0]["team"])
	assert.ElementsMatch(t, []string{"T1", "T2"}, toStringSlice(all[0]["previous_teams"]))
}

func TestRosterManagerUnchangedTeamKeepsHistory(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newRosterFixture()

	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T1")}
	_, err := mgr.Sync(ctx)
	require.NoError(t, err)

	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T2")}
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	// Same team again: history survives the re-save.
	api.rosters = []store.Record{rosterRec(100, "Chris", "Wollam", "T2")}
	_, err = mgr.Sync(ctx)
	require.NoError(t, err)

	all, err := mgr.Find(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.ElementsMatch(t, []string{"T1"}, toStringSlice(all[0]["previous_teams"]))
}

func TestFindPlayersByAbbreviation(t *testing.T) {
	ctx := context.Background()
	mgr, _, mem := newRosterFixture()

	_, err := mem.Save(ctx, "roster", []store.Record{
		rosterRec(1, "Chris", "Wollam", "SEA"),
		rosterRec(2, "Russell", "Wilson", "SEA"),
		rosterRec(3, "Tarik", "Cohen", "CHI"),
	})
	require.NoError(t, err)

	got, err := mgr.FindPlayers(ctx, PlayerFilter{
		Teams:         []string{"SEA"},
		Abbreviations: []string{"C.Wollam"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0]["profile_id"])

	// Unparseable abbreviation matches nothing rather than everything.
	got, err = mgr.FindPlayers(ctx, PlayerFilter{
		Teams:         []string{"SEA"},
		Abbreviations: []string{"Wollam"},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindPlayersPreviousTeamsWidening(t *testing.T) {
	ctx := context.Background()
	mgr, _, mem := newRosterFixture()

	moved := rosterRec(4, "Golden", "Tate", "NYG")
	moved["previous_teams"] = []string{"SEA", "DET"}
	_, err := mem.Save(ctx, "roster", []store.Record{moved})
	require.NoError(t, err)

	got, err := mgr.FindPlayers(ctx, PlayerFilter{Teams: []string{"SEA"}})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = mgr.FindPlayers(ctx, PlayerFilter{Teams: []string{"SEA"}, IncludePreviousTeams: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0]["profile_id"])
}

func TestAbbreviationPatterns(t *testing.T) {
	cases := []struct {
		in        string
		wantFirst string
		wantLast  string
		wantOK    bool
	}{
		{"C.Wollam", "^c", "^wollam", true},
		{"T.Smith Jr.", "^t", "^smith( jr\\.)?", true},
		{"D.Van Noy", "^d", "^van( noy)?", true},
		{"  R.Wilson ", "^r", "^wilson", true},
		{"Wollam", "", "", false},
		{".Wollam", "", "", false},
		{"C.", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			first, last, ok := abbreviationPatterns(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantFirst, first)
				assert.Equal(t, tc.wantLast, last)
			}
		})
	}
}

func TestPlayerConstraintComposition(t *testing.T) {
	c := playerConstraint(PlayerFilter{Teams: []string{"SEA"}, IncludePreviousTeams: true})
	assert.Equal(t, query.M{"$or": []query.M{
		{"team": query.M{"$in": []string{"SEA"}}},
		{"previous_teams": query.M{"$in": []string{"SEA"}}},
	}}, c)
}
