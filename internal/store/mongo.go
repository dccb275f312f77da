package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Gateway with one MongoDB collection per table.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) col(table string) *mongo.Collection { return m.db.Collection(table) }

// EnsureUnique creates (idempotently) a unique index over fields.
func (m *MongoStore) EnsureUnique(ctx context.Context, table string, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	name := "uniq_" + strings.Join(fields, "_")
	idx := mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
	if _, err := m.col(table).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("ensure index %s.%s: %w", table, name, err)
	}
	return nil
}

func (m *MongoStore) Find(ctx context.Context, table string, f Filter) ([]Record, error) {
	opts := options.Find()
	if s := sortDoc(f); len(s) > 0 {
		opts.SetSort(s)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := m.col(table).Find(ctx, filterDoc(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	defer cur.Close(ctx)
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}
	return out, nil
}

func (m *MongoStore) FindOne(ctx context.Context, table string, f Filter) (Record, error) {
	opts := options.FindOne()
	if s := sortDoc(f); len(s) > 0 {
		opts.SetSort(s)
	}
	var rec Record
	if err := m.col(table).FindOne(ctx, filterDoc(f), opts).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find one %s: %w", table, err)
	}
	return rec, nil
}

func (m *MongoStore) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	doc, err := withID(rec)
	if err != nil {
		return nil, err
	}
	if _, err := m.col(table).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return doc, nil
}

func (m *MongoStore) InsertMany(ctx context.Context, table string, recs []Record) ([]int, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, r := range recs {
		d, err := withID(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	_, err := m.col(table).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return insertedIndexes(len(docs), nil), nil
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil {
		for _, we := range bwe.WriteErrors {
			if we.Code != 11000 {
				return nil, fmt.Errorf("insert many %s: %w", table, err)
			}
		}
		return insertedIndexes(len(docs), bwe.WriteErrors), nil
	}
	return nil, fmt.Errorf("insert many %s: %w", table, err)
}

// insertedIndexes lists the positions of an unordered bulk insert that did
// not fail.
func insertedIndexes(total int, failed []mongo.BulkWriteError) []int {
	skip := make(map[int]bool, len(failed))
	for _, we := range failed {
		skip[we.Index] = true
	}
	out := make([]int, 0, total-len(skip))
	for i := 0; i < total; i++ {
		if !skip[i] {
			out = append(out, i)
		}
	}
	return out
}

func (m *MongoStore) Update(ctx context.Context, table string, f Filter, patch Record) (int64, error) {
	res, err := m.col(table).UpdateMany(ctx, filterDoc(f), bson.M{"$set": patch})
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.MatchedCount, nil
}

func (m *MongoStore) Delete(ctx context.Context, table string, f Filter) (int64, error) {
	res, err := m.col(table).DeleteMany(ctx, filterDoc(f))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return res.DeletedCount, nil
}

// Upsert relies on the unique index over the key fields: when a record
// exists for key but fails guard, the upsert attempts an insert and the index
// rejects it, which is reported as ErrConflict.
func (m *MongoStore) Upsert(ctx context.Context, table string, key, guard Filter, set, setOnInsert Record) (Record, error) {
	onInsert := bson.M{}
	if !keyedByID(key) {
		onInsert["_id"] = NewID()
	}
	for k, v := range setOnInsert {
		onInsert[k] = v
	}
	update := bson.M{"$set": set, "$setOnInsert": onInsert}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var rec Record
	err := m.col(table).FindOneAndUpdate(ctx, filterDoc(key.And(guard)), update, opts).Decode(&rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}
	return rec, nil
}

func keyedByID(f Filter) bool {
	for _, p := range f.Preds {
		if p.Field == "_id" && p.op == opEq {
			return true
		}
	}
	return false
}

func withID(rec Record) (Record, error) {
	doc, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	if id, _ := doc["_id"].(string); id == "" {
		doc["_id"] = NewID()
	}
	return doc, nil
}

// filterDoc translates a Filter into a MongoDB query document.
func filterDoc(f Filter) bson.D {
	d := bson.D{}
	for _, p := range f.Preds {
		switch p.op {
		case opEq:
			d = append(d, bson.E{Key: p.Field, Value: p.Value})
		case opIn:
			d = append(d, bson.E{Key: p.Field, Value: bson.M{"$in": p.Values}})
		case opNotNull:
			d = append(d, bson.E{Key: p.Field, Value: bson.M{"$ne": nil}})
		case opIsNull:
			d = append(d, bson.E{Key: p.Field, Value: nil})
		}
	}
	return d
}

func sortDoc(f Filter) bson.D {
	d := bson.D{}
	for _, s := range f.Sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}
