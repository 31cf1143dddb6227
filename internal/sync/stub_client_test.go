package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/store"
)

// stubClient scripts upstream responses per entity and records the filters
// it was called with.
type stubClient struct {
	teams    []store.Record
	rosters  []store.Record
	profiles []store.Record
	gamelogs []store.Record

	schedulesFn   func(filter ScheduleFilter) []store.Record
	scheduleCalls []ScheduleFilter

	summaries []store.Record
	scores    []store.Record
	drives    []store.Record
	plays     []store.Record

	summaryCalls [][]store.Record
	playCalls    [][]store.Record
}

var _ Client = (*stubClient)(nil)

func (s *stubClient) Teams(context.Context) ([]store.Record, error) {
	return cloneRecords(s.teams), nil
}

func (s *stubClient) Schedules(_ context.Context, filter ScheduleFilter) ([]store.Record, error) {
	s.scheduleCalls = append(s.scheduleCalls, filter)
	if s.schedulesFn == nil {
		return nil, nil
	}
	return cloneRecords(s.schedulesFn(filter)), nil
}

func (s *stubClient) Rosters(context.Context, []store.Record) ([]store.Record, error) {
	return cloneRecords(s.rosters), nil
}

func (s *stubClient) PlayerProfiles(context.Context, []store.Record) ([]store.Record, error) {
	return cloneRecords(s.profiles), nil
}

func (s *stubClient) PlayerGamelogs(context.Context, []store.Record, int) ([]store.Record, error) {
	return cloneRecords(s.gamelogs), nil
}

func (s *stubClient) GameSummaries(_ context.Context, schedules []store.Record) ([]store.Record, error) {
	s.summaryCalls = append(s.summaryCalls, schedules)
	return cloneRecords(s.summaries), nil
}

func (s *stubClient) GameScores(context.Context, []store.Record) ([]store.Record, error) {
	return cloneRecords(s.scores), nil
}

func (s *stubClient) GameDrives(context.Context, []store.Record) ([]store.Record, error) {
	return cloneRecords(s.drives), nil
}

func (s *stubClient) GamePlays(_ context.Context, schedules []store.Record) ([]store.Record, error) {
	s.playCalls = append(s.playCalls, schedules)
	return cloneRecords(s.plays), nil
}

func cloneRecords(records []store.Record) []store.Record {
	out := make([]store.Record, 0, len(records))
	for _, rec := range records {
		clone := make(store.Record, len(rec))
		for k, v := range rec {
			clone[k] = v
		}
		out = append(out, clone)
	}
	return out
}
