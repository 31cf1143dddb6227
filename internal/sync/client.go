package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/store"
)

// ScheduleFilter selects one upstream fetch window. A filter without a
// season type requests the whole season.
type ScheduleFilter struct {
	Season     int
	SeasonType string
	Week       int
}

func (f ScheduleFilter) WholeSeason() bool { return f.SeasonType == "" }

// Client is the upstream statistics feed as the sync managers consume it:
// one fetch method per entity type, each taking the minimal subset filter
// and returning plain field-mapping records.
type Client interface {
	Teams(ctx context.Context) ([]store.Record, error)
	Schedules(ctx context.Context, filter ScheduleFilter) ([]store.Record, error)
	Rosters(ctx context.Context, teams []store.Record) ([]store.Record, error)
	PlayerProfiles(ctx context.Context, rosters []store.Record) ([]store.Record, error)
	PlayerGamelogs(ctx context.Context, rosters []store.Record, season int) ([]store.Record, error)
	GameSummaries(ctx context.Context, schedules []store.Record) ([]store.Record, error)
	GameScores(ctx context.Context, schedules []store.Record) ([]store.Record, error)
	GameDrives(ctx context.Context, schedules []store.Record) ([]store.Record, error)
	GamePlays(ctx context.Context, schedules []store.Record) ([]store.Record, error)
}
