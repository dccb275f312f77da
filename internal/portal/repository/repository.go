// Package repository maps portal entities onto store.Gateway tables.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

// Table names.
const (
	Documents           = "documents"
	Submissions         = "submission_progress"
	Assignments         = "document_assignments"
	HRRecords           = "hr_records"
	TrainingModules     = "training_modules"
	TrainingProgress    = "training_progress"
	TrainingAssignments = "training_assignments"
	VideoProgress       = "video_progress"
)

// uniqueKeys lists every natural key the workflows rely on for atomic upserts.
var uniqueKeys = []struct {
	table  string
	fields []string
}{
	{Submissions, []string{"documentId", "userId"}},
	{Assignments, []string{"documentId", "userId"}},
	{TrainingProgress, []string{"moduleId", "userId"}},
	{TrainingAssignments, []string{"moduleId", "userId", "department"}},
	{VideoProgress, []string{"moduleId", "userId"}},
}

type Repository struct {
	gw store.Gateway
}

func New(gw store.Gateway) *Repository {
	return &Repository{gw: gw}
}

// EnsureIndexes creates the unique indexes. It is idempotent.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	for _, k := range uniqueKeys {
		if err := r.gw.EnsureUnique(ctx, k.table, k.fields...); err != nil {
			return fmt.Errorf("ensure index on %s: %w", k.table, err)
		}
	}
	return nil
}

// Transition moves the record identified by key into status to with a
// single guarded upsert. The guard admits only the lifecycle's source
// statuses for to, so a concurrent writer can never overwrite a state the
// transition may not start from. A missing record is inserted; callers
// must only use Transition when the initial status may reach to.
func Transition[S ~string](ctx context.Context, gw store.Gateway, table string, lc *portal.Lifecycle[S], key store.Filter, to S, set, onInsert store.Record) (store.Record, error) {
	guard := store.All().In("status", store.Strings(lc.Sources(to)...)...)
	patch := store.Record{"status": string(to)}
	for k, v := range set {
		patch[k] = v
	}
	return gw.Upsert(ctx, table, key, guard, patch, onInsert)
}

// Advance is the update-only form of Transition: it never inserts and
// reports whether a record in a source status was moved.
func Advance[S ~string](ctx context.Context, gw store.Gateway, table string, lc *portal.Lifecycle[S], key store.Filter, to S, set store.Record) (bool, error) {
	guard := store.All().In("status", store.Strings(lc.Sources(to)...)...)
	patch := store.Record{"status": string(to)}
	for k, v := range set {
		patch[k] = v
	}
	n, err := gw.Update(ctx, table, key.And(guard), patch)
	return n > 0, err
}

func one[T any](ctx context.Context, gw store.Gateway, table string, f store.Filter) (*T, error) {
	rec, err := gw.FindOne(ctx, table, f)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := store.Decode(rec, v); err != nil {
		return nil, err
	}
	return v, nil
}

// optional is one() with a missing record reported as nil, nil.
func optional[T any](ctx context.Context, gw store.Gateway, table string, f store.Filter) (*T, error) {
	v, err := one[T](ctx, gw, table, f)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func many[T any](ctx context.Context, gw store.Gateway, table string, f store.Filter) ([]*T, error) {
	recs, err := gw.Find(ctx, table, f)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[T](recs)
}

func insert(ctx context.Context, gw store.Gateway, table string, v interface{}) error {
	rec, err := store.Encode(v)
	if err != nil {
		return err
	}
	_, err = gw.Insert(ctx, table, rec)
	return err
}
