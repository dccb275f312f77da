package repository

import (
	"context"
	"time"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

func progressKey(moduleID, userID string) store.Filter {
	return store.Eq("moduleId", moduleID).Eq("userId", userID)
}

func (r *Repository) InsertModule(ctx context.Context, m *portal.TrainingModule) error {
	if m.ID == "" {
		m.ID = store.NewID()
	}
	return insert(ctx, r.gw, TrainingModules, m)
}

func (r *Repository) Module(ctx context.Context, id string) (*portal.TrainingModule, error) {
	return one[portal.TrainingModule](ctx, r.gw, TrainingModules, store.ByID(id))
}

func (r *Repository) Modules(ctx context.Context) ([]*portal.TrainingModule, error) {
	return many[portal.TrainingModule](ctx, r.gw, TrainingModules, store.All().OrderBy("title", false))
}

func (r *Repository) ModulesByID(ctx context.Context, ids []string) (map[string]*portal.TrainingModule, error) {
	out := map[string]*portal.TrainingModule{}
	if len(ids) == 0 {
		return out, nil
	}
	ms, err := many[portal.TrainingModule](ctx, r.gw, TrainingModules, store.All().In("_id", store.Strings(ids...)...))
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		out[m.ID] = m
	}
	return out, nil
}

func (r *Repository) UpdateModule(ctx context.Context, id string, patch store.Record) error {
	n, err := r.gw.Update(ctx, TrainingModules, store.ByID(id), patch)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteModule removes the module and its assignments.
func (r *Repository) DeleteModule(ctx context.Context, id string) error {
	n, err := r.gw.Delete(ctx, TrainingModules, store.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	_, err = r.gw.Delete(ctx, TrainingAssignments, store.Eq("moduleId", id))
	return err
}

// HasTrainingProgress reports whether any progress references the module.
func (r *Repository) HasTrainingProgress(ctx context.Context, moduleID string) (bool, error) {
	recs, err := r.gw.Find(ctx, TrainingProgress, store.Eq("moduleId", moduleID).Take(1))
	return len(recs) > 0, err
}

// ProgressFor returns the user's progress on a module, or nil when none exists.
func (r *Repository) ProgressFor(ctx context.Context, moduleID, userID string) (*portal.TrainingProgress, error) {
	return optional[portal.TrainingProgress](ctx, r.gw, TrainingProgress, progressKey(moduleID, userID))
}

func (r *Repository) ProgressOf(ctx context.Context, userID string) ([]*portal.TrainingProgress, error) {
	return many[portal.TrainingProgress](ctx, r.gw, TrainingProgress, store.Eq("userId", userID))
}

// TransitionTraining moves the user's progress on a module to status to,
// creating it when absent.
func (r *Repository) TransitionTraining(ctx context.Context, moduleID, userID string, to portal.TrainingStatus, set store.Record, now time.Time) (*portal.TrainingProgress, error) {
	set["updatedAt"] = now
	rec, err := Transition(ctx, r.gw, TrainingProgress, portal.TrainingLifecycle, progressKey(moduleID, userID), to, set, store.Record{})
	if err != nil {
		return nil, err
	}
	p := new(portal.TrainingProgress)
	return p, store.Decode(rec, p)
}

// CompletedWithExpiry lists completed progress that carries an expiry date.
func (r *Repository) CompletedWithExpiry(ctx context.Context) ([]*portal.TrainingProgress, error) {
	f := store.Eq("status", string(portal.TrainingCompleted)).NotNull("expiresAt").OrderBy("expiresAt", false)
	return many[portal.TrainingProgress](ctx, r.gw, TrainingProgress, f)
}

// Expire moves one completed progress record to expired.
func (r *Repository) Expire(ctx context.Context, id string, now time.Time) (bool, error) {
	return Advance(ctx, r.gw, TrainingProgress, portal.TrainingLifecycle, store.ByID(id), portal.TrainingExpired, store.Record{"updatedAt": now})
}

// AssignTraining stores one assignment; an existing one yields store.ErrDuplicate.
func (r *Repository) AssignTraining(ctx context.Context, a *portal.TrainingAssignment) error {
	if a.ID == "" {
		a.ID = store.NewID()
	}
	return insert(ctx, r.gw, TrainingAssignments, a)
}

// TrainingAssignmentsFor returns direct assignments plus those targeting department.
func (r *Repository) TrainingAssignmentsFor(ctx context.Context, userID, department string) ([]*portal.TrainingAssignment, error) {
	out, err := many[portal.TrainingAssignment](ctx, r.gw, TrainingAssignments, store.Eq("userId", userID).OrderBy("assignedAt", false))
	if err != nil || department == "" {
		return out, err
	}
	byDept, err := many[portal.TrainingAssignment](ctx, r.gw, TrainingAssignments, store.Eq("department", department).OrderBy("assignedAt", false))
	if err != nil {
		return nil, err
	}
	return append(out, byDept...), nil
}

func (r *Repository) VideoProgressFor(ctx context.Context, moduleID, userID string) (*portal.VideoProgress, error) {
	return optional[portal.VideoProgress](ctx, r.gw, VideoProgress, progressKey(moduleID, userID))
}

// SaveVideoProgress upserts the user's watch position on a module.
func (r *Repository) SaveVideoProgress(ctx context.Context, moduleID, userID string, set store.Record) (*portal.VideoProgress, error) {
	rec, err := r.gw.Upsert(ctx, VideoProgress, progressKey(moduleID, userID), store.All(), set, store.Record{})
	if err != nil {
		return nil, err
	}
	v := new(portal.VideoProgress)
	return v, store.Decode(rec, v)
}
