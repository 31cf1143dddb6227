package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/cache"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

func TestOrchestratorSyncAll(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	logger := logging.NewNop()

	api := &stubClient{
		teams:   []store.Record{{"team": "SEA"}, {"team": "CHI"}},
		rosters: []store.Record{rosterRec(42, "Chris", "Wollam", "SEA")},
		profiles: []store.Record{
			{"profile_id": 42, "last_name": "Wollam", "first_name": "Chris", "team": "SEA"},
		},
		gamelogs: []store.Record{gamelogRec(42, 2019, 1, "SEA")},
		schedulesFn: func(f ScheduleFilter) []store.Record {
			if f.WholeSeason() && f.Season == 2019 {
				return []store.Record{scheduleRec("2019090800", 2019, "regular_season", 1, true)}
			}
			return nil
		},
		summaries: []store.Record{{"gsis_id": "2019090800", abbrevField: "C.Wollam", "team": "SEA"}},
		scores:    []store.Record{{"gsis_id": "2019090800", "home_score_q1": 7}},
		drives:    []store.Record{{"gsis_id": "2019090800", "drive_id": 1}},
		plays: []store.Record{
			{"gsis_id": "2019090800", "drive_id": 1, "play_id": 1, "sequence": 1, abbrevField: "C.Wollam", "team": "SEA"},
		},
	}

	teams := NewTeamManager(mem, api, logger)
	rosters := NewRosterManager(mem, api, teams, logger)
	profiles := NewPlayerProfileManager(mem, api, rosters, logger)
	gamelogs := NewPlayerGamelogManager(mem, api, rosters, logger)
	gamelogs.now = fixedNow(2019, time.October, 9)
	schedules := NewScheduleManager(mem, api, logger)
	schedules.now = fixedNow(2019, time.October, 9)

	lookupCache := cache.NewStore(time.Minute)
	resolver := NewResolver(rosters, lookupCache, logger)

	orch := NewOrchestrator(OrchestratorConfig{
		Teams:       teams,
		Rosters:     rosters,
		Profiles:    profiles,
		Gamelogs:    gamelogs,
		Schedules:   schedules,
		Summaries:   NewGameSummaryManager(mem, api, schedules, resolver, logger),
		Scores:      NewGameScoreManager(mem, api, schedules, logger),
		Drives:      NewGameDriveManager(mem, api, schedules, logger),
		Plays:       NewGamePlayManager(mem, api, schedules, resolver, logger),
		Resolver:    resolver,
		LookupCache: lookupCache,
		Workers:     2,
		Logger:      logger,
	})

	results, err := orch.SyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 9)

	byEntity := make(map[string]SyncResult, len(results))
	for _, row := range results {
		require.NoError(t, row.Err, row.Entity)
		byEntity[row.Entity] = row
	}
	assert.Equal(t, 2, byEntity["team"].Written)
	assert.Equal(t, 1, byEntity["roster"].Written)
	assert.Equal(t, 1, byEntity["schedule"].Written)
	assert.Equal(t, 1, byEntity["game_summary"].Written)
	assert.Equal(t, 1, byEntity["game_play"].Written)

	plays, err := mem.Find(ctx, entity.GamePlay, nil, nil)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, 42, plays[0]["profile_id"])

	assert.Empty(t, resolver.Misses())
	assert.Empty(t, resolver.Ambiguous())
}
