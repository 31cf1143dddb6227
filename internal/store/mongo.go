package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gridstats/nfldb/internal/entity"
	"github.com/gridstats/nfldb/internal/platform/logging"
	"github.com/gridstats/nfldb/internal/query"
)

// Mongo is the document-store gateway backed by a live database. Each entity
// maps to one collection, created on first touch together with a unique
// index over the entity's primary key and secondary indexes over its indexed
// fields.
type Mongo struct {
	db     *mongo.Database
	logger *logging.Logger

	mu   sync.Mutex
	cols map[string]*collectionState
}

type collectionState struct {
	col *mongo.Collection
	key []string
}

func NewMongo(db *mongo.Database, logger *logging.Logger) *Mongo {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mongo{
		db:     db,
		logger: logger,
		cols:   make(map[string]*collectionState),
	}
}

func (m *Mongo) Save(ctx context.Context, entityName string, records []Record) ([]Record, error) {
	state, err := m.collection(ctx, entityName)
	if err != nil {
		return nil, err
	}

	desc := entity.Lookup(entityName)
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.After)

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if err := applyColumnTypes(rec, desc); err != nil {
			return nil, err
		}

		var saved Record
		res := state.col.FindOneAndReplace(ctx, keyFilter(rec, state.key), rec, opts)
		if err := res.Decode(&saved); err != nil {
			return nil, errors.Wrapf(err, "upsert %s record", entityName)
		}
		out = append(out, saved)
	}
	return out, nil
}

func (m *Mongo) Find(ctx context.Context, entityName string, constraint, projection query.M) ([]Record, error) {
	state, err := m.collection(ctx, entityName)
	if err != nil {
		return nil, err
	}

	if constraint == nil {
		constraint = query.M{}
	}
	findOpts := options.Find()
	if len(projection) > 0 {
		findOpts.SetProjection(projection)
	}

	cur, err := state.col.Find(ctx, constraint, findOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s records", entityName)
	}
	defer cur.Close(ctx)

	var out []Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s records", entityName)
	}
	return out, nil
}

func (m *Mongo) Delete(ctx context.Context, entityName string, constraint query.M) (int64, error) {
	state, err := m.collection(ctx, entityName)
	if err != nil {
		return 0, err
	}

	if constraint == nil {
		constraint = query.M{}
	}
	res, err := state.col.DeleteMany(ctx, constraint)
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s records", entityName)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) Drop(ctx context.Context, entityName string) error {
	state, err := m.collection(ctx, entityName)
	if err != nil {
		return err
	}
	if err := state.col.Drop(ctx); err != nil {
		return errors.Wrapf(err, "drop %s collection", entityName)
	}

	m.mu.Lock()
	delete(m.cols, entityName)
	m.mu.Unlock()
	return nil
}

// collection lazily ensures the physical collection, its indexes and the
// cached natural key for one entity.
func (m *Mongo) collection(ctx context.Context, entityName string) (*collectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.cols[entityName]; ok {
		return state, nil
	}

	names, err := m.db.ListCollectionNames(ctx, bson.M{"name": entityName})
	if err != nil {
		return nil, errors.Wrapf(err, "list collections for %s", entityName)
	}

	col := m.db.Collection(entityName)
	if len(names) == 0 {
		if err := m.createIndexes(ctx, col, entity.Lookup(entityName)); err != nil {
			return nil, err
		}
		m.logger.InfoContext(ctx, "collection created", "entity", entityName)
	}

	key, err := discoverPrimaryKey(ctx, col)
	if err != nil {
		return nil, err
	}

	state := &collectionState{col: col, key: key}
	m.cols[entityName] = state
	return state, nil
}

func (m *Mongo) createIndexes(ctx context.Context, col *mongo.Collection, desc *entity.Descriptor) error {
	if desc == nil {
		return nil
	}

	models := make([]mongo.IndexModel, 0, 1+len(desc.Indexed))
	if len(desc.Key) > 0 {
		keys := bson.D{}
		for _, k := range desc.Key {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
	}
	for _, field := range desc.Indexed {
		models = append(models, mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
		})
	}

	if len(models) == 0 {
		return nil
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Wrapf(err, "create %s indexes", desc.Name)
	}
	return nil
}

// discoverPrimaryKey inspects the index catalog for the natural key: the
// identifier index and unique indexes are candidates; a single candidate
// wins outright, otherwise the first whose field set is not just the
// identifier. Catalog order is preserved, never re-sorted.
func discoverPrimaryKey(ctx context.Context, col *mongo.Collection) ([]string, error) {
	cur, err := col.Indexes().List(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s indexes", col.Name())
	}
	defer cur.Close(ctx)

	var candidates [][]string
	for cur.Next(ctx) {
		var spec struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cur.Decode(&spec); err != nil {
			return nil, errors.Wrapf(err, "decode %s index spec", col.Name())
		}
		if spec.Name != "_id_" && !spec.Unique {
			continue
		}
		fields := make([]string, 0, len(spec.Key))
		for _, e := range spec.Key {
			fields = append(fields, e.Key)
		}
		candidates = append(candidates, fields)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s index specs", col.Name())
	}

	switch {
	case len(candidates) == 1:
		return candidates[0], nil
	case len(candidates) > 1:
		for _, fields := range candidates {
			if len(fields) != 1 || fields[0] != idField {
				return fields, nil
			}
		}
	}
	return []string{idField}, nil
}
