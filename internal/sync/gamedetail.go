package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

// scheduleDependent is the shared core of the game-detail managers. The
// fetch filter is "every finished schedule entry whose game is not already
// present in this entity's own collection"; an empty own collection means
// all finished games.
type scheduleDependent struct {
	manager
	schedules *ScheduleManager
	fetch     func(ctx context.Context, schedules []store.Record) ([]store.Record, error)
}

func (d *scheduleDependent) pendingSchedules(ctx context.Context) ([]store.Record, error) {
	present, err := d.Find(ctx, nil, query.New().Include("gsis_id").Select())
	if err != nil {
		return nil, err
	}

	qm := query.New().Start("finished", true)
	if len(present) > 0 {
		ids := make([]any, 0, len(present))
		seen := make(map[string]struct{}, len(present))
		for _, rec := range present {
			id := stringField(rec, "gsis_id")
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			qm.And("gsis_id", ids, query.Nin)
		}
	}
	return d.schedules.Find(ctx, qm.Constraint(), nil)
}

func (d *scheduleDependent) sync(ctx context.Context, spanName string) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, spanName)
	defer span.End()

	pending, err := d.pendingSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		d.logger.InfoContext(ctx, "game detail sync complete", "written", 0)
		return nil, nil
	}

	fetched, err := d.fetch(ctx, pending)
	if err != nil {
		return nil, err
	}

	saved, err := d.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	d.logger.InfoContext(ctx, "game detail sync complete",
		"pending_games", len(pending), "written", len(saved))
	return saved, nil
}

// GameScoreManager syncs per-quarter scoring lines for finished games.
type GameScoreManager struct {
	scheduleDependent
}

func NewGameScoreManager(st store.Store, api Client, schedules *ScheduleManager, logger *logging.Logger) *GameScoreManager {
	m := &GameScoreManager{scheduleDependent{
		manager:   newManager(entity.GameScore, st, api, logger),
		schedules: schedules,
	}}
	m.fetch = api.GameScores
	return m
}

func (m *GameScoreManager) Sync(ctx context.Context) ([]store.Record, error) {
	return m.sync(ctx, "sync.GameScoreManager.Sync")
}

// GameDriveManager syncs drive charts for finished games.
type GameDriveManager struct {
	scheduleDependent
}

func NewGameDriveManager(st store.Store, api Client, schedules *ScheduleManager, logger *logging.Logger) *GameDriveManager {
	m := &GameDriveManager{scheduleDependent{
		manager:   newManager(entity.GameDrive, st, api, logger),
		schedules: schedules,
	}}
	m.fetch = api.GameDrives
	return m
}

func (m *GameDriveManager) Sync(ctx context.Context) ([]store.Record, error) {
	return m.sync(ctx, "sync.GameDriveManager.Sync")
}

// playerScheduleDependent extends the schedule-dependent core with profile
// id resolution: incoming records are resolved before persisting, and
// records saved unresolved by earlier runs are swept again at the start of
// every sync as roster data improves.
type playerScheduleDependent struct {
	scheduleDependent
	resolver *Resolver
}

func (d *playerScheduleDependent) sync(ctx context.Context, spanName string) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, spanName)
	defer span.End()

	if err := d.sweepUnresolved(ctx); err != nil {
		return nil, err
	}

	pending, err := d.pendingSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		d.logger.InfoContext(ctx, "game detail sync complete", "written", 0)
		return nil, nil
	}

	fetched, err := d.fetch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if err := d.resolveBatch(ctx, fetched); err != nil {
		return nil, err
	}

	saved, err := d.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	d.logger.InfoContext(ctx, "game detail sync complete",
		"pending_games", len(pending), "written", len(saved))
	return saved, nil
}

func (d *playerScheduleDependent) resolveBatch(ctx context.Context, records []store.Record) error {
	for _, rec := range records {
		if _, err := d.resolver.Resolve(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// sweepUnresolved retries resolution for stored records still missing a
// profile id and re-saves the ones that now resolve.
func (d *playerScheduleDependent) sweepUnresolved(ctx context.Context) error {
	unresolved, err := d.Find(ctx,
		query.New().Start("profile_id", nil, query.Eq).Constraint(),
		query.New().IncludeID().Select())
	if err != nil {
		return err
	}
	if len(unresolved) == 0 {
		return nil
	}

	resolved := make([]store.Record, 0, len(unresolved))
	for _, rec := range unresolved {
		ok, err := d.resolver.Resolve(ctx, rec)
		if err != nil {
			return err
		}
		if ok {
			resolved = append(resolved, rec)
		}
	}
	if len(resolved) == 0 {
		return nil
	}

	if _, err := d.Save(ctx, resolved); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "unresolved sweep complete",
		"swept", len(unresolved), "resolved", len(resolved))
	return nil
}

// GameSummaryManager syncs box-score summaries, resolving each stat line's
// player abbreviation to a profile id.
type GameSummaryManager struct {
	playerScheduleDependent
}

func NewGameSummaryManager(st store.Store, api Client, schedules *ScheduleManager, resolver *Resolver, logger *logging.Logger) *GameSummaryManager {
	m := &GameSummaryManager{playerScheduleDependent{
		scheduleDependent: scheduleDependent{
			manager:   newManager(entity.GameSummary, st, api, logger),
			schedules: schedules,
		},
		resolver: resolver,
	}}
	m.fetch = api.GameSummaries
	return m
}

func (m *GameSummaryManager) Sync(ctx context.Context) ([]store.Record, error) {
	return m.sync(ctx, "sync.GameSummaryManager.Sync")
}

// GamePlayManager syncs play-by-play rows, resolving each play's player
// abbreviation to a profile id.
type GamePlayManager struct {
	playerScheduleDependent
}

func NewGamePlayManager(st store.Store, api Client, schedules *ScheduleManager, resolver *Resolver, logger *logging.Logger) *GamePlayManager {
	m := &GamePlayManager{playerScheduleDependent{
		scheduleDependent: scheduleDependent{
			manager:   newManager(entity.GamePlay, st, api, logger),
			schedules: schedules,
		},
		resolver: resolver,
	}}
	m.fetch = api.GamePlays
	return m
}

func (m *GamePlayManager) Sync(ctx context.Context) ([]store.Record, error) {
	return m.sync(ctx, "sync.GamePlayManager.Sync")
}
