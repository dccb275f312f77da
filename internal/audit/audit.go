// Package audit keeps the append-only record of admin decisions.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/staffhub/portal/internal/store"
)

const Table = "audit_logs"

type Entry struct {
	ID          string            `bson:"_id,omitempty" json:"id"`
	ActorID     string            `bson:"actorId" json:"actorId"`
	Action      string            `bson:"action" json:"action"`
	SubjectType string            `bson:"subjectType" json:"subjectType"`
	SubjectID   string            `bson:"subjectId" json:"subjectId"`
	Metadata    map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
}

func (e *Entry) validate() error {
	switch {
	case e.ActorID == "":
		return errors.New("audit entry: actor is required")
	case e.Action == "":
		return errors.New("audit entry: action is required")
	case e.SubjectType == "" || e.SubjectID == "":
		return errors.New("audit entry: subject is required")
	}
	return nil
}

// Recorder appends audit entries. Entries are never updated or deleted.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Reader lists the trail recorded for one subject.
type Reader interface {
	ForSubject(ctx context.Context, subjectType, subjectID string) ([]*Entry, error)
}

type StoreRecorder struct {
	gw  store.Gateway
	now func() time.Time
}

func NewStoreRecorder(gw store.Gateway) *StoreRecorder {
	return &StoreRecorder{gw: gw, now: time.Now}
}

func (r *StoreRecorder) Record(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	e.ID = ""
	e.CreatedAt = r.now().UTC()
	rec, err := store.Encode(e)
	if err != nil {
		return err
	}
	if _, err := r.gw.Insert(ctx, Table, rec); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ForSubject returns the entries recorded for a subject, oldest first.
func (r *StoreRecorder) ForSubject(ctx context.Context, subjectType, subjectID string) ([]*Entry, error) {
	recs, err := r.gw.Find(ctx, Table, store.Eq("subjectType", subjectType).Eq("subjectId", subjectID).OrderBy("createdAt", false))
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[Entry](recs)
}
