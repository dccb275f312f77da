package repository

import (
	"context"
	"time"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

func submissionKey(documentID, userID string) store.Filter {
	return store.Eq("documentId", documentID).Eq("userId", userID)
}

func (r *Repository) Submission(ctx context.Context, id string) (*portal.Submission, error) {
	return one[portal.Submission](ctx, r.gw, Submissions, store.ByID(id))
}

// SubmissionFor returns the user's progress on a document, or nil when none exists.
func (r *Repository) SubmissionFor(ctx context.Context, documentID, userID string) (*portal.Submission, error) {
	return optional[portal.Submission](ctx, r.gw, Submissions, submissionKey(documentID, userID))
}

func (r *Repository) SubmissionsFor(ctx context.Context, userID string) ([]*portal.Submission, error) {
	return many[portal.Submission](ctx, r.gw, Submissions, store.Eq("userId", userID))
}

// SubmissionsIn lists progress in any of statuses, most recently completed first.
func (r *Repository) SubmissionsIn(ctx context.Context, statuses ...portal.Status) ([]*portal.Submission, error) {
	f := store.All().In("status", store.Strings(statuses...)...).OrderBy("completedAt", true)
	return many[portal.Submission](ctx, r.gw, Submissions, f)
}

// HasSubmissions reports whether any progress references the document.
func (r *Repository) HasSubmissions(ctx context.Context, documentID string) (bool, error) {
	recs, err := r.gw.Find(ctx, Submissions, store.Eq("documentId", documentID).Take(1))
	return len(recs) > 0, err
}

// TransitionSubmission moves the user's progress on a document to status to,
// creating it when absent. store.ErrConflict means the current status may
// not reach to.
func (r *Repository) TransitionSubmission(ctx context.Context, documentID, userID string, to portal.Status, set store.Record, now time.Time) (*portal.Submission, error) {
	set["updatedAt"] = now
	onInsert := store.Record{"createdAt": now}
	rec, err := Transition(ctx, r.gw, Submissions, portal.SubmissionLifecycle, submissionKey(documentID, userID), to, set, onInsert)
	if err != nil {
		return nil, err
	}
	s := new(portal.Submission)
	return s, store.Decode(rec, s)
}

// ReviewSubmission moves an existing submission to status to. It reports
// false when the record was not in a source status of to.
func (r *Repository) ReviewSubmission(ctx context.Context, id string, to portal.Status, set store.Record) (bool, error) {
	return Advance(ctx, r.gw, Submissions, portal.SubmissionLifecycle, store.ByID(id), to, set)
}
