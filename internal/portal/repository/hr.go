package repository

import (
	"context"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

func (r *Repository) InsertHRRecord(ctx context.Context, rec *portal.HRRecord) error {
	if rec.ID == "" {
		rec.ID = store.NewID()
	}
	return insert(ctx, r.gw, HRRecords, rec)
}

// OwnedHRRecord returns the record only when it belongs to userID.
func (r *Repository) OwnedHRRecord(ctx context.Context, id, userID string) (*portal.HRRecord, error) {
	return one[portal.HRRecord](ctx, r.gw, HRRecords, store.ByID(id).Eq("userId", userID))
}

func (r *Repository) HRRecordsFor(ctx context.Context, userID string) ([]*portal.HRRecord, error) {
	return many[portal.HRRecord](ctx, r.gw, HRRecords, store.Eq("userId", userID).OrderBy("createdAt", true))
}

func (r *Repository) AcknowledgedHRRecords(ctx context.Context) ([]*portal.HRRecord, error) {
	return many[portal.HRRecord](ctx, r.gw, HRRecords, store.All().NotNull("acknowledgedAt").OrderBy("acknowledgedAt", true))
}

// AcknowledgeHRRecord stamps an unacknowledged record owned by userID. It
// reports false when the record was already acknowledged.
func (r *Repository) AcknowledgeHRRecord(ctx context.Context, id, userID string, set store.Record) (bool, error) {
	n, err := r.gw.Update(ctx, HRRecords, store.ByID(id).Eq("userId", userID).IsNull("acknowledgedAt"), set)
	return n > 0, err
}
