package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/id"
	"github.com/gridstats/nfldb/internal/query"
)

// Memory is an in-process document store implementing the same contract as
// the Mongo gateway: lazy collections, upsert by natural key, constraint
// trees evaluated against records. It backs the test suite and the
// STORE_BACKEND=memory configuration.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Record
	ids         id.Generator
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Record),
		ids:         id.NewRandomGenerator(),
	}
}

func (m *Memory) Save(ctx context.Context, entityName string, records []Record) ([]Record, error) {
	desc := entity.Lookup(entityName)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := applyColumnTypes(rec, desc); err != nil {
			return nil, err
		}

		var key []string
		if desc != nil {
			key = desc.Key
		}
		filter := keyFilter(rec, key)

		col := m.collections[entityName]
		replaced := false
		for i, existing := range col {
			if !matches(existing, filter) {
				continue
			}
			stored := cloneRecord(rec)
			stored[idField] = existing[idField]
			col[i] = stored
			out = append(out, cloneRecord(stored))
			replaced = true
			break
		}
		if !replaced {
			stored := cloneRecord(rec)
			newID, err := m.ids.NewID()
			if err != nil {
				return nil, errors.Wrap(err, "generate record id")
			}
			stored[idField] = newID
			m.collections[entityName] = append(col, stored)
			out = append(out, cloneRecord(stored))
			continue
		}
		m.collections[entityName] = col
	}

	return out, nil
}

func (m *Memory) Find(ctx context.Context, entityName string, constraint, projection query.M) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.collections[entityName] {
		if matches(rec, constraint) {
			out = append(out, project(rec, projection))
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, entityName string, constraint query.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collections[entityName]
	kept := col[:0]
	var removed int64
	for _, rec := range col {
		if matches(rec, constraint) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.collections[entityName] = kept
	return removed, nil
}

func (m *Memory) Drop(ctx context.Context, entityName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, entityName)
	return nil
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// project applies a projection map. Any true field besides the identifier
// switches to inclusive mode, mirroring the store's semantics.
func project(rec Record, projection query.M) Record {
	if len(projection) == 0 {
		return cloneRecord(rec)
	}

	includeID := true
	if v, ok := projection[idField]; ok {
		includeID = v == true
	}

	inclusive := false
	for field, v := range projection {
		if field != idField && v == true {
			inclusive = true
			break
		}
	}

	out := make(Record, len(rec))
	if inclusive {
		for field, v := range projection {
			if field == idField || v != true {
				continue
			}
			if val, ok := rec[field]; ok {
				out[field] = val
			}
		}
	} else {
		for k, v := range rec {
			if excluded, ok := projection[k]; ok && excluded == false {
				continue
			}
			if k == idField {
				continue
			}
			out[k] = v
		}
	}
	if includeID {
		if v, ok := rec[idField]; ok {
			out[idField] = v
		}
	}
	return out
}
