package sync

import (
	"context"
	"time"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/season"
	"github.com/gridstats/nfldb/internal/store"
)

// ScheduleManager syncs the schedule collection and owns the season/week
// watermark persisted in the schedule_process collection.
//
// The fetch plan layers four cases: a cold start pulls every season from the
// floor through the current one as whole-season windows; a store missing the
// current season pulls that season whole; stored windows that still contain
// unfinished games are re-fetched; finally the tail is extended window by
// window from the watermark until the feed returns an empty or not yet
// finished window.
type ScheduleManager struct {
	manager
	now func() time.Time
}

func NewScheduleManager(st store.Store, api Client, logger *logging.Logger) *ScheduleManager {
	return &ScheduleManager{
		manager: newManager(entity.Schedule, st, api, logger),
		now:     time.Now,
	}
}

func (s *ScheduleManager) Sync(ctx context.Context) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, "sync.ScheduleManager.Sync")
	defer span.End()

	currentSeason := season.SeasonOf(s.now())
	stored, err := s.Find(ctx, nil, query.New().
		Include("gsis_id", "season", "season_type", "week", "finished").Select())
	if err != nil {
		return nil, err
	}

	var written []store.Record

	if len(stored) == 0 {
		for year := season.MinSeason; year <= currentSeason; year++ {
			saved, err := s.fetchAndSave(ctx, ScheduleFilter{Season: year})
			if err != nil {
				return nil, err
			}
			written = append(written, saved...)
		}
		if err := s.writeCursor(ctx, lastWindowOf(written)); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "schedule bootstrap complete", "written", len(written))
		return written, nil
	}

	if !hasSeason(stored, currentSeason) {
		saved, err := s.fetchAndSave(ctx, ScheduleFilter{Season: currentSeason})
		if err != nil {
			return nil, err
		}
		written = append(written, saved...)
		stored = append(stored, saved...)
	}

	for _, w := range unfinishedWindows(stored) {
		saved, err := s.fetchAndSave(ctx, ScheduleFilter{
			Season:     w.Season,
			SeasonType: string(w.Type),
			Week:       w.Week,
		})
		if err != nil {
			return nil, err
		}
		written = append(written, saved...)
	}

	tail, err := s.extendTail(ctx, stored, currentSeason)
	if err != nil {
		return nil, err
	}
	written = append(written, tail...)

	cursor := lastWindowOf(append(stored, written...))
	if err := s.writeCursor(ctx, cursor); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "schedule sync complete", "written", len(written))
	return written, nil
}

// extendTail walks forward from the watermark, fetching one window at a
// time. An empty window means the feed has nothing further; a window with
// unfinished games is saved and then stops the walk.
func (s *ScheduleManager) extendTail(ctx context.Context, stored []store.Record, currentSeason int) ([]store.Record, error) {
	last, err := s.readCursor(ctx)
	if err != nil {
		return nil, err
	}
	if storedLast := lastWindowOf(stored); storedLast != nil {
		if last == nil || windowLess(*last, *storedLast) {
			last = storedLast
		}
	}

	var written []store.Record
	for {
		w := season.NextWindow(last)
		if w.Season > currentSeason+1 {
			break
		}

		fetched, err := s.api.Schedules(ctx, ScheduleFilter{
			Season:     w.Season,
			SeasonType: string(w.Type),
			Week:       w.Week,
		})
		if err != nil {
			return nil, err
		}
		if len(fetched) == 0 {
			break
		}

		saved, err := s.saveSchedules(ctx, fetched)
		if err != nil {
			return nil, err
		}
		written = append(written, saved...)

		if !allFinished(saved) {
			break
		}
		last = &w
	}
	return written, nil
}

func (s *ScheduleManager) fetchAndSave(ctx context.Context, filter ScheduleFilter) ([]store.Record, error) {
	fetched, err := s.api.Schedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.saveSchedules(ctx, fetched)
}

// saveSchedules derives the teams field before upserting so downstream
// managers can query by participating team.
func (s *ScheduleManager) saveSchedules(ctx context.Context, records []store.Record) ([]store.Record, error) {
	for _, rec := range records {
		if _, ok := rec["teams"]; ok {
			continue
		}
		teams := unionTeams(nil, stringField(rec, "home_team"), stringField(rec, "away_team"))
		if len(teams) > 0 {
			rec["teams"] = teams
		}
	}
	return s.Save(ctx, records)
}

// FindLast returns every schedule record in the most-future stored window,
// where future is ordered by the numeric part of the game identifier.
func (s *ScheduleManager) FindLast(ctx context.Context) ([]store.Record, error) {
	return s.findWindowByGsis(ctx, nil, func(a, b int64) bool { return a > b })
}

// FindNext returns every schedule record in the earliest window that still
// has unfinished games.
func (s *ScheduleManager) FindNext(ctx context.Context) ([]store.Record, error) {
	unfinished := query.New().Start("finished", false).Constraint()
	return s.findWindowByGsis(ctx, unfinished, func(a, b int64) bool { return a < b })
}

func (s *ScheduleManager) findWindowByGsis(ctx context.Context, constraint query.M, better func(a, b int64) bool) ([]store.Record, error) {
	candidates, err := s.Find(ctx, constraint, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	pick := candidates[0]
	pickN := gsisNumber(pick)
	for _, rec := range candidates[1:] {
		if n := gsisNumber(rec); better(n, pickN) {
			pick = rec
			pickN = n
		}
	}
	w, ok := windowOf(pick)
	if !ok {
		return []store.Record{pick}, nil
	}

	return s.Find(ctx, query.New().
		Start("season", w.Season).
		And("season_type", string(w.Type)).
		And("week", w.Week).
		Constraint(), nil)
}

func (s *ScheduleManager) readCursor(ctx context.Context) (*season.Window, error) {
	docs, err := s.store.Find(ctx, entity.ScheduleProcess, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	w, ok := windowOf(docs[0])
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// writeCursor overwrites the singleton watermark document.
func (s *ScheduleManager) writeCursor(ctx context.Context, w *season.Window) error {
	if w == nil {
		return nil
	}
	if _, err := s.store.Delete(ctx, entity.ScheduleProcess, nil); err != nil {
		return err
	}
	_, err := s.store.Save(ctx, entity.ScheduleProcess, []store.Record{{
		"season":       w.Season,
		"season_type":  string(w.Type),
		"week":         w.Week,
		"process_date": s.now().UTC(),
	}})
	return err
}

func windowOf(rec store.Record) (season.Window, bool) {
	yr, ok := intField(rec, "season")
	if !ok {
		return season.Window{}, false
	}
	wk, ok := intField(rec, "week")
	if !ok {
		return season.Window{}, false
	}
	st := season.Type(stringField(rec, "season_type"))
	if seasonTypeRank(st) < 0 {
		return season.Window{}, false
	}
	return season.Window{Season: yr, Type: st, Week: wk}, true
}

func seasonTypeRank(t season.Type) int {
	switch t {
	case season.Preseason:
		return 0
	case season.RegularSeason:
		return 1
	case season.Postseason:
		return 2
	default:
		return -1
	}
}

func windowLess(a, b season.Window) bool {
	if a.Season != b.Season {
		return a.Season < b.Season
	}
	if ra, rb := seasonTypeRank(a.Type), seasonTypeRank(b.Type); ra != rb {
		return ra < rb
	}
	return a.Week < b.Week
}

func lastWindowOf(records []store.Record) *season.Window {
	var last *season.Window
	for _, rec := range records {
		w, ok := windowOf(rec)
		if !ok {
			continue
		}
		if last == nil || windowLess(*last, w) {
			window := w
			last = &window
		}
	}
	return last
}

func hasSeason(records []store.Record, year int) bool {
	for _, rec := range records {
		if yr, ok := intField(rec, "season"); ok && yr == year {
			return true
		}
	}
	return false
}

// unfinishedWindows returns the distinct windows that still contain at
// least one unfinished game, in progression order.
func unfinishedWindows(records []store.Record) []season.Window {
	seen := make(map[season.Window]struct{})
	var out []season.Window
	for _, rec := range records {
		if boolField(rec, "finished") {
			continue
		}
		w, ok := windowOf(rec)
		if !ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && windowLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func allFinished(records []store.Record) bool {
	for _, rec := range records {
		if !boolField(rec, "finished") {
			return false
		}
	}
	return true
}
