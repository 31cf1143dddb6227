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

// PlayerGamelogManager syncs per-week game logs. Syncing is gated on a
// staleness window: logs refresh only between August 1 and the following
// March 1, and only when at least a week has passed since the last run or
// the weekly Tuesday cadence point has been crossed.
type PlayerGamelogManager struct {
	manager
	rosters *RosterManager
	now     func() time.Time
}

func NewPlayerGamelogManager(st store.Store, api Client, rosters *RosterManager, logger *logging.Logger) *PlayerGamelogManager {
	return &PlayerGamelogManager{
		manager: newManager(entity.PlayerGamelog, st, api, logger),
		rosters: rosters,
		now:     time.Now,
	}
}

func (g *PlayerGamelogManager) Sync(ctx context.Context) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, "sync.PlayerGamelogManager.Sync")
	defer span.End()

	stale, err := g.isStale(ctx)
	if err != nil {
		return nil, err
	}
	if !stale {
		g.logger.InfoContext(ctx, "player gamelog data fresh, skipping sync")
		return nil, nil
	}

	rosters, err := g.rosters.Find(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(rosters) == 0 {
		return nil, nil
	}

	fetched, err := g.api.PlayerGamelogs(ctx, rosters, season.SeasonOf(g.now()))
	if err != nil {
		return nil, err
	}

	saved, err := g.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	if err := g.writeCursor(ctx); err != nil {
		return nil, err
	}
	g.logger.InfoContext(ctx, "player gamelog sync complete", "written", len(saved))
	return saved, nil
}

// Save derives each record's previous teams from the player's other stored
// game logs: every team the player has logged games for, other than the
// incoming record's own, joins the history.
func (g *PlayerGamelogManager) Save(ctx context.Context, records []store.Record) ([]store.Record, error) {
	ids := make([]any, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		key, ok := profileKey(rec)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, rec["profile_id"])
	}

	if len(ids) > 0 {
		existing, err := g.Find(ctx,
			query.New().Start("profile_id", ids, query.In).Constraint(),
			query.New().Include("profile_id", "team", "previous_teams").Select())
		if err != nil {
			return nil, err
		}

		teamsByProfile := make(map[string][]string, len(existing))
		for _, rec := range existing {
			key, ok := profileKey(rec)
			if !ok {
				continue
			}
			teamsByProfile[key] = unionTeams(
				append(teamsByProfile[key], toStringSlice(rec["previous_teams"])...),
				stringField(rec, "team"))
		}

		for _, rec := range records {
			key, ok := profileKey(rec)
			if !ok {
				continue
			}
			var history []string
			own := stringField(rec, "team")
			for _, team := range teamsByProfile[key] {
				if team != own {
					history = append(history, team)
				}
			}
			history = unionTeams(toStringSlice(rec["previous_teams"]), history...)
			if len(history) > 0 {
				rec["previous_teams"] = history
			}
		}
	}

	return g.manager.Save(ctx, records)
}

// isStale reports whether game logs are eligible for refresh.
func (g *PlayerGamelogManager) isStale(ctx context.Context) (bool, error) {
	now := g.now().UTC()
	year := season.SeasonOf(now)
	windowStart := time.Date(year, time.August, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(year+1, time.March, 1, 0, 0, 0, 0, time.UTC)
	if now.Before(windowStart) || !now.Before(windowEnd) {
		return false, nil
	}

	lastProc, err := g.readCursor(ctx)
	if err != nil {
		return false, err
	}
	if lastProc == nil {
		return true, nil
	}

	if now.Sub(*lastProc) >= 7*24*time.Hour {
		return true, nil
	}
	if lastProc.Weekday() != time.Tuesday && now.Weekday() == time.Tuesday {
		return true, nil
	}
	return false, nil
}

func (g *PlayerGamelogManager) readCursor(ctx context.Context) (*time.Time, error) {
	docs, err := g.store.Find(ctx, entity.PlayerGamelogProcess, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	switch v := docs[0]["process_date"].(type) {
	case time.Time:
		return &v, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, nil
		}
		return &parsed, nil
	default:
		return nil, nil
	}
}

// writeCursor overwrites the singleton process document.
func (g *PlayerGamelogManager) writeCursor(ctx context.Context) error {
	if _, err := g.store.Delete(ctx, entity.PlayerGamelogProcess, nil); err != nil {
		return err
	}
	_, err := g.store.Save(ctx, entity.PlayerGamelogProcess, []store.Record{{
		"process_date": g.now().UTC(),
	}})
	return err
}
