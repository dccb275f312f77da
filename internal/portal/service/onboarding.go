package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/store"
)

const workflowOnboarding = "onboarding"

// DraftInput is a partial save of a staff member's work on a document.
type DraftInput struct {
	FormData     *portal.FormData `json:"formData"`
	Notes        string           `json:"notes"`
	SignatureRef string           `json:"signatureRef"`
}

// SubmitInput hands a completed document in for review.
type SubmitInput struct {
	FileRef          string `json:"uploadedFileRef"`
	OriginalFilename string `json:"originalFilename"`
	Notes            string `json:"notes"`
	SignatureRef     string `json:"signatureRef"`
}

// submissionRefusal explains why from may not move to to, or returns nil.
func submissionRefusal(from, to portal.Status) error {
	if portal.SubmissionLifecycle.CanTransition(from, to) {
		return nil
	}
	switch {
	case to == portal.StatusApproved || to == portal.StatusRejected:
		return portal.Errorf(portal.KindInvalidState, "only submitted documents can be reviewed")
	case from == portal.StatusApproved:
		return portal.Errorf(portal.KindAlreadyApproved, "this document has already been approved")
	case from == portal.StatusSubmitted && to == portal.StatusDraft:
		return portal.Errorf(portal.KindInvalidState, "cannot modify a submitted document")
	}
	return portal.Errorf(portal.KindInvalidState, "cannot move a %s document to %s", from, to)
}

// transition performs a guarded submission write for the caller. A guard
// conflict re-reads the record so the refusal names the status that won.
func (s *Service) transition(ctx context.Context, documentID, userID string, to portal.Status, set store.Record) (*portal.Submission, error) {
	cur, err := s.repo.SubmissionFor(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		if err := submissionRefusal(cur.Status, to); err != nil {
			return nil, s.refused(workflowOnboarding, err)
		}
	}
	sub, err := s.repo.TransitionSubmission(ctx, documentID, userID, to, set, s.now())
	if errors.Is(err, store.ErrConflict) {
		if cur, _ = s.repo.SubmissionFor(ctx, documentID, userID); cur != nil {
			if rerr := submissionRefusal(cur.Status, to); rerr != nil {
				return nil, s.refused(workflowOnboarding, rerr)
			}
		}
		return nil, s.refused(workflowOnboarding, portal.Errorf(portal.KindInvalidState, "the document changed while saving, please retry"))
	}
	if err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	s.transitioned(workflowOnboarding, string(to))
	return sub, nil
}

// SaveDraft stores work in progress without notifying anyone.
func (s *Service) SaveDraft(ctx context.Context, p *access.Principal, documentID string, in DraftInput) (*portal.Submission, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	if in.FormData != nil {
		if err := in.FormData.Validate(); err != nil {
			return nil, err
		}
	}
	if _, err := s.repo.Document(ctx, documentID); err != nil {
		return nil, documentNotFound(err)
	}
	set := store.Record{"lastSavedAt": s.now()}
	if in.FormData != nil {
		set["formData"] = in.FormData
	}
	if in.Notes != "" {
		set["notes"] = in.Notes
	}
	if in.SignatureRef != "" {
		set["signatureRef"] = in.SignatureRef
	}
	sub, err := s.transition(ctx, documentID, p.ID, portal.StatusDraft, set)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, revalidate.StaffOnboarding)
	return sub, nil
}

// Submit hands the document in for review and notifies every active admin.
// Resubmitting after a rejection clears the previous review.
func (s *Service) Submit(ctx context.Context, p *access.Principal, documentID string, in SubmitInput) (*portal.Submission, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FileRef) == "" {
		return nil, s.refused(workflowOnboarding, portal.Errorf(portal.KindValidation, "please upload the completed document before submitting"))
	}
	doc, err := s.repo.Document(ctx, documentID)
	if err != nil {
		return nil, documentNotFound(err)
	}
	now := s.now()
	set := store.Record{
		"completedAt":   now,
		"lastSavedAt":   now,
		"formData":      portal.UploadForm(in.FileRef, in.OriginalFilename, now),
		"notes":         in.Notes,
		"reviewedAt":    nil,
		"reviewedBy":    "",
		"adminComments": "",
	}
	if in.SignatureRef != "" {
		set["signatureRef"] = in.SignatureRef
	}
	sub, err := s.transition(ctx, documentID, p.ID, portal.StatusSubmitted, set)
	if err != nil {
		return nil, err
	}

	staff := s.nameOf(ctx, p)
	s.notifyAdmins(ctx, func(admin *models.User) notify.Notification {
		return notify.Notification{
			UserID:              admin.ID,
			Title:               "Document submitted for review",
			Message:             fmt.Sprintf("%s submitted %q for review.", staff, doc.Title),
			Type:                notify.TypeInfo,
			RelatedResourceType: "submission",
			RelatedResourceID:   sub.ID,
		}
	})
	s.invalidate(ctx, revalidate.StaffOnboarding, revalidate.AdminSubmissions)
	return sub, nil
}

func (s *Service) nameOf(ctx context.Context, p *access.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return s.displayName(ctx, p.ID)
}
