package sync

import (
	"context"
	stdsync "sync"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/gridstats/nfldb/internal/platform/cache"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

// SyncResult is one entity's outcome within a full sync run.
type SyncResult struct {
	Entity  string
	Written int
	Err     error
}

// Orchestrator runs the per-entity managers in dependency order: team,
// roster, profile and gamelog, then schedule, then the four game-detail
// managers. The detail managers own disjoint collections, so the final
// stage runs on a bounded worker pool; everything before it is strictly
// sequential.
type Orchestrator struct {
	teams     *TeamManager
	rosters   *RosterManager
	profiles  *PlayerProfileManager
	gamelogs  *PlayerGamelogManager
	schedules *ScheduleManager
	summaries *GameSummaryManager
	scores    *GameScoreManager
	drives    *GameDriveManager
	plays     *GamePlayManager

	resolver    *Resolver
	lookupCache *cache.Store
	workers     int
	logger      *logging.Logger
}

type OrchestratorConfig struct {
	Teams     *TeamManager
	Rosters   *RosterManager
	Profiles  *PlayerProfileManager
	Gamelogs  *PlayerGamelogManager
	Schedules *ScheduleManager
	Summaries *GameSummaryManager
	Scores    *GameScoreManager
	Drives    *GameDriveManager
	Plays     *GamePlayManager

	Resolver    *Resolver
	LookupCache *cache.Store
	Workers     int
	Logger      *logging.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		teams:       cfg.Teams,
		rosters:     cfg.Rosters,
		profiles:    cfg.Profiles,
		gamelogs:    cfg.Gamelogs,
		schedules:   cfg.Schedules,
		summaries:   cfg.Summaries,
		scores:      cfg.Scores,
		drives:      cfg.Drives,
		plays:       cfg.Plays,
		resolver:    cfg.Resolver,
		lookupCache: cfg.LookupCache,
		workers:     workers,
		logger:      logger,
	}
}

// SyncAll runs every manager once. The first error in the sequential stages
// aborts the run; game-detail stage errors are collected and combined.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]SyncResult, error) {
	ctx, span := startSyncSpan(ctx, "sync.Orchestrator.SyncAll")
	defer span.End()

	if o.lookupCache != nil {
		o.lookupCache.Purge(ctx)
	}

	var results []SyncResult
	sequential := []struct {
		entity string
		run    func(context.Context) ([]store.Record, error)
	}{
		{"team", o.teams.Sync},
		{"roster", o.rosters.Sync},
		{"player_profile", o.profiles.Sync},
		{"player_gamelog", o.gamelogs.Sync},
		{"schedule", o.schedules.Sync},
	}
	for _, stage := range sequential {
		written, err := stage.run(ctx)
		results = append(results, SyncResult{Entity: stage.entity, Written: len(written), Err: err})
		if err != nil {
			return results, crerr.Wrapf(err, "sync %s", stage.entity)
		}
	}

	detail := []struct {
		entity string
		run    func(context.Context) ([]store.Record, error)
	}{
		{"game_summary", o.summaries.Sync},
		{"game_score", o.scores.Sync},
		{"game_drive", o.drives.Sync},
		{"game_play", o.plays.Sync},
	}

	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return results, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	out := make(chan SyncResult, len(detail))
	var workers stdsync.WaitGroup
	for _, stage := range detail {
		stage := stage
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			written, runErr := stage.run(ctx)
			out <- SyncResult{Entity: stage.entity, Written: len(written), Err: runErr}
		}); err != nil {
			workers.Done()
			return results, crerr.Wrap(err, "submit sync task to worker pool")
		}
	}
	workers.Wait()
	close(out)

	var combined error
	for row := range out {
		results = append(results, row)
		if row.Err != nil {
			combined = crerr.CombineErrors(combined, crerr.Wrapf(row.Err, "sync %s", row.Entity))
		}
	}

	o.reportResolution(ctx)
	return results, combined
}

// reportResolution logs the accumulated name-resolution failure sets for
// offline review.
func (o *Orchestrator) reportResolution(ctx context.Context) {
	if o.resolver == nil {
		return
	}
	for key := range o.resolver.Misses() {
		o.logger.WarnContext(ctx, "unresolved player abbreviation", "key", key)
	}
	for key := range o.resolver.Ambiguous() {
		o.logger.WarnContext(ctx, "ambiguous player abbreviation", "key", key)
	}
}
