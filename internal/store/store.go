package store

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/gridstats/nfldb/internal/query"
)

// Record is one row of an entity collection: field name to value. Records
// are mutated in place during enrichment and replaced wholesale on upsert.
type Record = map[string]any

// ErrCoerce marks a value that failed coercion to its declared column type.
// It aborts the enclosing Save call and is never swallowed.
var ErrCoerce = errors.New("column type coercion failed")

// Store is the sole gateway to the document store. Collections are named by
// entity and created lazily, with a unique index over the entity's declared
// primary key and secondary indexes over its indexed fields.
type Store interface {
	// Save coerces each record's values per the entity's metadata, derives
	// its natural key and upserts. It returns the post-upsert records,
	// including any store-generated identifier. Saving a record twice with
	// the same natural-key values updates rather than duplicates.
	Save(ctx context.Context, entityName string, records []Record) ([]Record, error)
	// Find returns all records matching the constraint, honoring the
	// projection. A nil or empty constraint matches everything.
	Find(ctx context.Context, entityName string, constraint, projection query.M) ([]Record, error)
	// Delete removes matching records and returns the count removed.
	Delete(ctx context.Context, entityName string, constraint query.M) (int64, error)
	// Drop removes the whole collection.
	Drop(ctx context.Context, entityName string) error
}

const idField = "_id"

// keyFilter builds the upsert match filter for one record from its natural
// key fields. Key fields missing from the record are skipped; when none are
// present the record's own identifier is the key if it carries one, else
// the record's own fields form the key (sorted for determinism).
func keyFilter(rec Record, key []string) query.M {
	fields := make([]string, 0, len(key))
	for _, k := range key {
		if _, ok := rec[k]; ok {
			fields = append(fields, k)
		}
	}
	if len(fields) == 0 {
		if id, ok := rec[idField]; ok && id != nil {
			return query.M{idField: id}
		}
		for k := range rec {
			if k == idField {
				continue
			}
			fields = append(fields, k)
		}
		sort.Strings(fields)
	}

	if len(fields) == 1 {
		return query.M{fields[0]: rec[fields[0]]}
	}
	parts := make([]query.M, 0, len(fields))
	for _, k := range fields {
		parts = append(parts, query.M{k: rec[k]})
	}
	return query.M{"$and": parts}
}
