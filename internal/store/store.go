// Package store is the generic record gateway used by every workflow.
//
// Records are BSON documents keyed by "_id". Callers express reads and
// writes as tables plus Filters (field equality, membership, null checks and
// ordering); no backend-specific query language leaks out of this package.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned by Upsert when a record exists for the key but fails the guard.
	ErrConflict = errors.New("record does not satisfy guard")
)

// Record is a single stored row.
type Record = bson.M

// Gateway is the persistence port of the portal.
type Gateway interface {
	Find(ctx context.Context, table string, f Filter) ([]Record, error)
	FindOne(ctx context.Context, table string, f Filter) (Record, error)
	// Insert assigns an "_id" when missing and returns the stored record.
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	// InsertMany stores recs, silently skipping unique-key collisions, and
	// returns the positions in recs that were written, in order.
	InsertMany(ctx context.Context, table string, recs []Record) ([]int, error)
	// Update applies patch to every record matching f and returns the match count.
	Update(ctx context.Context, table string, f Filter, patch Record) (int64, error)
	Delete(ctx context.Context, table string, f Filter) (int64, error)
	// Upsert atomically updates the record identified by key when it also
	// matches guard, or inserts set+setOnInsert+key when no record exists.
	// An existing record failing guard yields ErrConflict. key must be
	// covered by a unique index (see EnsureUnique).
	Upsert(ctx context.Context, table string, key, guard Filter, set, setOnInsert Record) (Record, error)
	EnsureUnique(ctx context.Context, table string, fields ...string) error
}

// NewID returns a new record identifier.
func NewID() string { return uuid.NewString() }

// Encode converts a tagged struct into a Record.
func Encode(v interface{}) (Record, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := bson.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return rec, nil
}

// Decode fills v from rec.
func Decode(rec Record, v interface{}) error {
	b, err := bson.Marshal(rec)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := bson.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// DecodeAll decodes every record into a new T.
func DecodeAll[T any](recs []Record) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for _, r := range recs {
		v := new(T)
		if err := Decode(r, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
