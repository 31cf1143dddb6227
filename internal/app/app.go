package app

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gridstats/nfldb/external/nflapi"
	"github.com/gridstats/nfldb/internal/config"
	"github.com/gridstats/nfldb/internal/platform/cache"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/platform/resilience"
	"github.com/gridstats/nfldb/internal/store"
	"github.com/gridstats/nfldb/internal/sync"
)

// App holds the fully wired sync engine. All collaborators are constructed
// here and injected explicitly; nothing builds its own dependencies lazily.
type App struct {
	Store        store.Store
	Teams        *sync.TeamManager
	Rosters      *sync.RosterManager
	Profiles     *sync.PlayerProfileManager
	Gamelogs     *sync.PlayerGamelogManager
	Schedules    *sync.ScheduleManager
	Summaries    *sync.GameSummaryManager
	Scores       *sync.GameScoreManager
	Drives       *sync.GameDriveManager
	Plays        *sync.GamePlayManager
	Resolver     *sync.Resolver
	Orchestrator *sync.Orchestrator

	close func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	st, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	api := nflapi.NewClient(nflapi.ClientConfig{
		BaseURL:    cfg.FeedBaseURL,
		Token:      cfg.FeedToken,
		Timeout:    cfg.FeedTimeout,
		MaxRetries: cfg.FeedMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FeedCircuitEnabled,
			FailureThreshold: cfg.FeedCircuitFailureCount,
			OpenTimeout:      cfg.FeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FeedCircuitHalfOpenMaxReq,
		},
	})

	teams := sync.NewTeamManager(st, api, logger)
	rosters := sync.NewRosterManager(st, api, teams, logger)
	profiles := sync.NewPlayerProfileManager(st, api, rosters, logger)
	gamelogs := sync.NewPlayerGamelogManager(st, api, rosters, logger)
	schedules := sync.NewScheduleManager(st, api, logger)

	lookupCache := cache.NewStore(cfg.LookupCacheTTL)
	resolver := sync.NewResolver(rosters, lookupCache, logger)

	summaries := sync.NewGameSummaryManager(st, api, schedules, resolver, logger)
	scores := sync.NewGameScoreManager(st, api, schedules, logger)
	drives := sync.NewGameDriveManager(st, api, schedules, logger)
	plays := sync.NewGamePlayManager(st, api, schedules, resolver, logger)

	orchestrator := sync.NewOrchestrator(sync.OrchestratorConfig{
		Teams:       teams,
		Rosters:     rosters,
		Profiles:    profiles,
		Gamelogs:    gamelogs,
		Schedules:   schedules,
		Summaries:   summaries,
		Scores:      scores,
		Drives:      drives,
		Plays:       plays,
		Resolver:    resolver,
		LookupCache: lookupCache,
		Workers:     cfg.SyncWorkers,
		Logger:      logger,
	})

	return &App{
		Store:        st,
		Teams:        teams,
		Rosters:      rosters,
		Profiles:     profiles,
		Gamelogs:     gamelogs,
		Schedules:    schedules,
		Summaries:    summaries,
		Scores:       scores,
		Drives:       drives,
		Plays:        plays,
		Resolver:     resolver,
		Orchestrator: orchestrator,
		close:        closeStore,
	}, nil
}

// Close releases the store connection.
func (a *App) Close(ctx context.Context) error {
	if a.close == nil {
		return nil
	}
	return a.close(ctx)
}

func newStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (store.Store, func(context.Context) error, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return store.NewMemory(), nil, nil
	case config.StoreBackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return nil, nil, crerr.Wrap(err, "connect document store")
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, crerr.Wrap(err, "ping document store")
		}

		db := client.Database(cfg.MongoDB)
		return store.NewMongo(db, logger), client.Disconnect, nil
	default:
		return nil, nil, crerr.Newf("unknown store backend %q", cfg.StoreBackend)
	}
}
