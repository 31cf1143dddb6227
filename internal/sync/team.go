package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/store"
)

// TeamManager syncs the team collection. Teams carry no declared key, so
// dedup is a field-subset diff against what is already stored.
type TeamManager struct {
	manager
}

func NewTeamManager(st store.Store, api Client, logger *logging.Logger) *TeamManager {
	return &TeamManager{manager: newManager(entity.Team, st, api, logger)}
}

// Sync fetches the upstream team list and saves only the records not yet
// present. It returns the records actually written this call.
func (t *TeamManager) Sync(ctx context.Context) ([]store.Record, error) {
	ctx, span := startSyncSpan(ctx, "sync.TeamManager.Sync")
	defer span.End()

	fetched, err := t.api.Teams(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := t.Find(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	fresh := make([]store.Record, 0, len(fetched))
	for _, rec := range fetched {
		if !containsSubset(existing, rec) {
			fresh = append(fresh, rec)
		}
	}

	saved, err := t.Save(ctx, fresh)
	if err != nil {
		return nil, err
	}
	t.logger.InfoContext(ctx, "team sync complete", "fetched", len(fetched), "written", len(saved))
	return saved, nil
}

// containsSubset reports whether any stored record carries every field of
// the candidate with an equal value.
func containsSubset(stored []store.Record, candidate store.Record) bool {
	for _, rec := range stored {
		if isSubset(candidate, rec) {
			return true
		}
	}
	return false
}

func isSubset(subset, superset store.Record) bool {
	for k, v := range subset {
		other, ok := superset[k]
		if !ok || !equalFieldValues(v, other) {
			return false
		}
	}
	return true
}
