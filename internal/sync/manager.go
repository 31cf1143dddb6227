package sync

import (
	"context"

	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
	"github.com/gridstats/nfldb/internal/store"
)

// manager is the shared save/find/delete/drop core every per-entity sync
// manager embeds. Each manager privately owns its entity's collection for
// the duration of a call; there is no cross-manager locking.
type manager struct {
	entity string
	store  store.Store
	api    Client
	logger *logging.Logger
}

func newManager(entityName string, st store.Store, api Client, logger *logging.Logger) manager {
	if logger == nil {
		logger = logging.Default()
	}
	return manager{
		entity: entityName,
		store:  st,
		api:    api,
		logger: logger.With("entity", entityName),
	}
}

func (m *manager) Save(ctx context.Context, records []store.Record) ([]store.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	return m.store.Save(ctx, m.entity, records)
}

func (m *manager) Find(ctx context.Context, constraint, projection query.M) ([]store.Record, error) {
	return m.store.Find(ctx, m.entity, constraint, projection)
}

func (m *manager) Delete(ctx context.Context, constraint query.M) (int64, error) {
	return m.store.Delete(ctx, m.entity, constraint)
}

func (m *manager) Drop(ctx context.Context) error {
	return m.store.Drop(ctx, m.entity)
}
