// Command nfldb is the NFL statistics sync CLI.
//
// Usage:
//
//	nfldb sync all
//	nfldb sync schedule
//	nfldb sync player_profile --all
//	nfldb find roster --team SEA
//	nfldb drop game_play
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gridstats/nfldb/internal/app"
	"github.com/gridstats/nfldb/internal/config"
	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/observability"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "nfldb",
		Short:         "NFL statistics sync and query CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(syncCmd())
	root.AddCommand(findCmd())
	root.AddCommand(dropCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func syncCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sync [entity|all]",
		Short: "Sync one entity, or everything in dependency order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "all"
			if len(args) == 1 {
				target = args[0]
			}
			return run(func(ctx context.Context, application *app.App, logger *logging.Logger) error {
				start := time.Now()

				if target == "all" {
					results, err := application.Orchestrator.SyncAll(ctx)
					for _, row := range results {
						if row.Err != nil {
							logger.Error("entity sync failed", "entity", row.Entity, "error", row.Err)
							continue
						}
						logger.Info("entity sync done", "entity", row.Entity, "written", row.Written)
					}
					logger.Info("full sync finished", "duration", time.Since(start).Round(time.Second))
					return err
				}

				written, err := runSingle(ctx, application, target, all)
				if err != nil {
					return err
				}
				reportResolution(application, logger)
				logger.Info("sync finished",
					"entity", target, "written", len(written),
					"duration", time.Since(start).Round(time.Second))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Force full refresh (player_profile only)")
	return cmd
}

func runSingle(ctx context.Context, application *app.App, target string, all bool) ([]store.Record, error) {
	switch target {
	case entity.Team:
		return application.Teams.Sync(ctx)
	case entity.Roster:
		return application.Rosters.Sync(ctx)
	case entity.PlayerProfile:
		if all {
			return application.Profiles.SyncAll(ctx)
		}
		return application.Profiles.Sync(ctx)
	case entity.PlayerGamelog:
		return application.Gamelogs.Sync(ctx)
	case entity.Schedule:
		return application.Schedules.Sync(ctx)
	case entity.GameSummary:
		return application.Summaries.Sync(ctx)
	case entity.GameScore:
		return application.Scores.Sync(ctx)
	case entity.GameDrive:
		return application.Drives.Sync(ctx)
	case entity.GamePlay:
		return application.Plays.Sync(ctx)
	default:
		return nil, fmt.Errorf("unknown entity %q", target)
	}
}

func findCmd() *cobra.Command {
	var team string
	var limit int
	cmd := &cobra.Command{
		Use:   "find <entity>",
		Short: "Print matching records as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, application *app.App, logger *logging.Logger) error {
				qm := query.New()
				if team != "" {
					qm.Start("team", team)
				}
				records, err := application.Store.Find(ctx, args[0], qm.Constraint(), query.New().Select())
				if err != nil {
					return err
				}
				if limit > 0 && len(records) > limit {
					records = records[:limit]
				}
				for _, rec := range records {
					line, err := sonic.Marshal(rec)
					if err != nil {
						return err
					}
					fmt.Println(string(line))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Filter by team code")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum records to print (0 = all)")
	return cmd
}

func dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <entity>",
		Short: "Drop an entity's whole collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, application *app.App, logger *logging.Logger) error {
				if err := application.Store.Drop(ctx, args[0]); err != nil {
					return err
				}
				logger.Info("collection dropped", "entity", args[0])
				return nil
			})
		},
	}
}

func reportResolution(application *app.App, logger *logging.Logger) {
	for key := range application.Resolver.Misses() {
		logger.Warn("unresolved player abbreviation", "key", key)
	}
	for key := range application.Resolver.Ambiguous() {
		logger.Warn("ambiguous player abbreviation", "key", key)
	}
}

// run handles config loading, logging, profiling, store connection and
// signal cancellation around one command.
func run(fn func(ctx context.Context, application *app.App, logger *logging.Logger) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return fmt.Errorf("init profiling: %w", err)
	}
	defer func() { _ = stopProfiler() }()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Close(closeCtx)
	}()

	return fn(ctx, application, logger)
}
