package repository

import (
	"context"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

func (r *Repository) InsertDocument(ctx context.Context, d *portal.Document) error {
	if d.ID == "" {
		d.ID = store.NewID()
	}
	return insert(ctx, r.gw, Documents, d)
}

func (r *Repository) Document(ctx context.Context, id string) (*portal.Document, error) {
	return one[portal.Document](ctx, r.gw, Documents, store.ByID(id))
}

// Documents lists documents of kind (all kinds when empty) by orderIndex.
func (r *Repository) Documents(ctx context.Context, kind portal.DocumentKind) ([]*portal.Document, error) {
	f := store.All()
	if kind != "" {
		f = f.Eq("kind", string(kind))
	}
	return many[portal.Document](ctx, r.gw, Documents, f.OrderBy("orderIndex", false).OrderBy("createdAt", false))
}

func (r *Repository) DocumentsByID(ctx context.Context, ids []string) (map[string]*portal.Document, error) {
	out := map[string]*portal.Document{}
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := many[portal.Document](ctx, r.gw, Documents, store.All().In("_id", store.Strings(ids...)...))
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

func (r *Repository) UpdateDocument(ctx context.Context, id string, patch store.Record) error {
	n, err := r.gw.Update(ctx, Documents, store.ByID(id), patch)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document and its assignments.
func (r *Repository) DeleteDocument(ctx context.Context, id string) error {
	n, err := r.gw.Delete(ctx, Documents, store.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	_, err = r.gw.Delete(ctx, Assignments, store.Eq("documentId", id))
	return err
}

// AssignDocument stores one assignment; an existing mapping yields store.ErrDuplicate.
func (r *Repository) AssignDocument(ctx context.Context, a *portal.Assignment) error {
	if a.ID == "" {
		a.ID = store.NewID()
	}
	return insert(ctx, r.gw, Assignments, a)
}

// AssignDocuments stores as, skipping existing mappings, and returns the
// assignments that were actually written.
func (r *Repository) AssignDocuments(ctx context.Context, as []*portal.Assignment) ([]*portal.Assignment, error) {
	recs := make([]store.Record, 0, len(as))
	for _, a := range as {
		if a.ID == "" {
			a.ID = store.NewID()
		}
		rec, err := store.Encode(a)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	written, err := r.gw.InsertMany(ctx, Assignments, recs)
	out := make([]*portal.Assignment, 0, len(written))
	for _, i := range written {
		out = append(out, as[i])
	}
	return out, err
}

func (r *Repository) AssignmentsFor(ctx context.Context, userID string) ([]*portal.Assignment, error) {
	return many[portal.Assignment](ctx, r.gw, Assignments, store.Eq("userId", userID).OrderBy("assignedAt", false))
}

// AssignedUsers returns the set of users a document is assigned to.
func (r *Repository) AssignedUsers(ctx context.Context, documentID string) (map[string]bool, error) {
	as, err := many[portal.Assignment](ctx, r.gw, Assignments, store.Eq("documentId", documentID))
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(as))
	for _, a := range as {
		out[a.UserID] = true
	}
	return out, nil
}
