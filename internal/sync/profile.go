package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

// PlayerProfileManager syncs the full profile documents behind the roster
// rows. By default only profiles whose roster team changed since the last
// sync are re-fetched; SyncAll forces a full refresh.
type PlayerProfileManager struct {
	manager
	rosters *RosterManager
}

func NewPlayerProfileManager(st store.Store, api Client, rosters *RosterManager, logger *logging.Logger) *PlayerProfileManager {
	return &PlayerProfileManager{
		manager: newManager(entity.PlayerProfile, st, api, logger),
		rosters: rosters,
	}
}

func (p *PlayerProfileManager) Sync(ctx context.Context) ([]store.Record, error) {
	return p.sync(ctx, false)
}

func (p *PlayerProfileManager) SyncAll(ctx context.Context) ([]store.Record, error) {
	return p.sync(ctx, true)
}

func (p *PlayerProfileManager) sync(ctx context.Context, all bool) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, "sync.PlayerProfileManager.Sync")
	defer span.End()

	rosters, err := p.rosters.Find(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if !all {
		if rosters, err = p.filterUnchanged(ctx, rosters); err != nil {
			return nil, err
		}
	}
	if len(rosters) == 0 {
		p.logger.InfoContext(ctx, "player profile sync complete", "written", 0)
		return nil, nil
	}

	fetched, err := p.api.PlayerProfiles(ctx, rosters)
	if err != nil {
		return nil, err
	}
	p.addRosterData(rosters, fetched)

	saved, err := p.Save(ctx, fetched)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "player profile sync complete", "written", len(saved))
	return saved, nil
}

// Save carries team history enrichment like the roster manager.
func (p *PlayerProfileManager) Save(ctx context.Context, records []store.Record) ([]store.Record, error) {
	if err := applyPreviousTeams(ctx, p.store, p.entity, records); err != nil {
		return nil, err
	}
	return p.manager.Save(ctx, records)
}

// filterUnchanged drops roster rows whose team matches the stored profile,
// keeping new players and team movers.
func (p *PlayerProfileManager) filterUnchanged(ctx context.Context, rosters []store.Record) ([]store.Record, error) {
	if len(rosters) == 0 {
		return nil, nil
	}

	stored, err := p.Find(ctx, nil, query.New().Include("profile_id", "team").Select())
	if err != nil {
		return nil, err
	}
	teamByProfile := make(map[string]string, len(stored))
	for _, rec := range stored {
		if key, ok := profileKey(rec); ok {
			teamByProfile[key] = stringField(rec, "team")
		}
	}

	out := make([]store.Record, 0, len(rosters))
	for _, rec := range rosters {
		key, ok := profileKey(rec)
		if !ok {
			continue
		}
		if team, known := teamByProfile[key]; known && team == stringField(rec, "team") {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// addRosterData copies the roster's team history onto the fetched profiles
// so a profile refresh never loses previous teams.
func (p *PlayerProfileManager) addRosterData(rosters, profiles []store.Record) {
	historyByProfile := make(map[string][]string, len(rosters))
	for _, rec := range rosters {
		if key, ok := profileKey(rec); ok {
			historyByProfile[key] = toStringSlice(rec["previous_teams"])
		}
	}
	for _, rec := range profiles {
		key, ok := profileKey(rec)
		if !ok {
			continue
		}
		history := unionTeams(toStringSlice(rec["previous_teams"]), historyByProfile[key]...)
		if len(history) > 0 {
			rec["previous_teams"] = history
		}
	}
}
