package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/audit"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/store"
)

// Audit actions recorded for review decisions.
const (
	ActionApproveDocument = "approve_document"
	ActionRejectDocument  = "reject_document"
)

const noComments = "No comments provided"

// Review approves or rejects a submitted document. Rejections must carry a
// reason. The submitter is notified and the decision is audited; neither
// side effect can undo the decision.
func (s *Service) Review(ctx context.Context, p *access.Principal, submissionID string, approved bool, comments string) (*portal.Submission, error) {
	if err := s.require(p, access.ReviewSubmissions); err != nil {
		return nil, err
	}
	comments = strings.TrimSpace(comments)
	if !approved && comments == "" {
		return nil, s.refused(workflowOnboarding, portal.Errorf(portal.KindValidation, "please provide a reason for rejecting this document"))
	}
	sub, err := s.repo.Submission(ctx, submissionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, portal.Errorf(portal.KindNotFound, "submission not found")
	}
	if err != nil {
		return nil, err
	}
	to := portal.StatusRejected
	if approved {
		to = portal.StatusApproved
	}
	if err := submissionRefusal(sub.Status, to); err != nil {
		return nil, s.refused(workflowOnboarding, err)
	}

	now := s.now()
	set := store.Record{"reviewedBy": p.ID, "reviewedAt": now, "adminComments": comments, "updatedAt": now}
	ok, err := s.repo.ReviewSubmission(ctx, submissionID, to, set)
	if err != nil {
		return nil, fmt.Errorf("review submission: %w", err)
	}
	if !ok {
		return nil, s.refused(workflowOnboarding, portal.Errorf(portal.KindInvalidState, "this submission was already reviewed"))
	}
	s.transitioned(workflowOnboarding, string(to))
	sub.Status, sub.ReviewedBy, sub.ReviewedAt, sub.AdminComments, sub.UpdatedAt = to, p.ID, &now, comments, now

	title := "your document"
	if doc, err := s.repo.Document(ctx, sub.DocumentID); err == nil {
		title = doc.Title
	}
	n := notify.Notification{
		UserID:              sub.UserID,
		RelatedResourceType: "submission",
		RelatedResourceID:   sub.ID,
	}
	action, outcome := ActionRejectDocument, "rejected"
	if approved {
		action, outcome = ActionApproveDocument, "approved"
		n.Title, n.Type = "Document approved", notify.TypeSuccess
		n.Message = fmt.Sprintf("Your submission of %q has been approved.", title)
		if comments != "" {
			n.Message += " Comments: " + comments
		}
	} else {
		n.Title, n.Type = "Document needs changes", notify.TypeWarning
		reason := comments
		if reason == "" {
			reason = noComments
		}
		n.Message = fmt.Sprintf("Your submission of %q was rejected. Reason: %s", title, reason)
	}
	s.notifyUser(ctx, n)
	s.record(ctx, audit.Entry{
		ActorID:     p.ID,
		Action:      action,
		SubjectType: "submission_progress",
		SubjectID:   sub.ID,
		Metadata:    map[string]string{"outcome": outcome, "adminComments": comments, "documentTitle": title},
	})
	s.invalidate(ctx, revalidate.AdminSubmissions, revalidate.StaffOnboarding)
	return sub, nil
}

// AuditTrail returns the decisions recorded against a subject, oldest first.
func (s *Service) AuditTrail(ctx context.Context, p *access.Principal, subjectType, subjectID string) ([]*audit.Entry, error) {
	if err := s.require(p, access.ViewAuditLog); err != nil {
		return nil, err
	}
	if strings.TrimSpace(subjectType) == "" || strings.TrimSpace(subjectID) == "" {
		return nil, portal.Errorf(portal.KindValidation, "subjectType and subjectId are required")
	}
	entries, err := s.auditLog.ForSubject(ctx, subjectType, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// PendingReviews lists submissions awaiting a decision, newest first.
func (s *Service) PendingReviews(ctx context.Context, p *access.Principal) ([]portal.FeedEntry, error) {
	if err := s.require(p, access.ReviewSubmissions); err != nil {
		return nil, err
	}
	subs, err := s.repo.SubmissionsIn(ctx, portal.StatusSubmitted)
	if err != nil {
		return nil, err
	}
	entries, err := s.submissionEntries(ctx, subs, newNameCache(s))
	if err != nil {
		return nil, err
	}
	portal.SortFeed(entries)
	return entries, nil
}

// Feed merges onboarding submissions and HR acknowledgments into one list
// ordered by completion time, newest first.
func (s *Service) Feed(ctx context.Context, p *access.Principal) ([]portal.FeedEntry, error) {
	if err := s.require(p, access.ViewSubmissionFeed); err != nil {
		return nil, err
	}
	names := newNameCache(s)
	subs, err := s.repo.SubmissionsIn(ctx, portal.StatusSubmitted, portal.StatusApproved, portal.StatusRejected)
	if err != nil {
		return nil, err
	}
	entries, err := s.submissionEntries(ctx, subs, names)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.AcknowledgedHRRecords(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		entries = append(entries, portal.FeedEntry{
			Kind:      portal.FeedHRRecord,
			ID:        r.ID,
			UserID:    r.UserID,
			UserName:  names.get(ctx, r.UserID),
			Title:     r.Title,
			Status:    string(r.Status()),
			FileRef:   r.AcknowledgmentFileRef,
			Notes:     r.AcknowledgmentNotes,
			Timestamp: r.AcknowledgedAt,
		})
	}
	portal.SortFeed(entries)
	return entries, nil
}

func (s *Service) submissionEntries(ctx context.Context, subs []*portal.Submission, names *nameCache) ([]portal.FeedEntry, error) {
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.DocumentID)
	}
	docs, err := s.repo.DocumentsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]portal.FeedEntry, 0, len(subs))
	for _, sub := range subs {
		e := portal.FeedEntry{
			Kind:      portal.FeedOnboarding,
			ID:        sub.ID,
			UserID:    sub.UserID,
			UserName:  names.get(ctx, sub.UserID),
			Status:    string(sub.Status),
			Notes:     sub.Notes,
			Timestamp: sub.CompletedAt,
		}
		if d, ok := docs[sub.DocumentID]; ok {
			e.Title = d.Title
		}
		if f := sub.FormData; f != nil && f.Upload != nil {
			e.FileRef, e.Filename = f.Upload.FileRef, f.Upload.OriginalFilename
		}
		out = append(out, e)
	}
	return out, nil
}

type nameCache struct {
	s     *Service
	names map[string]string
}

func newNameCache(s *Service) *nameCache {
	return &nameCache{s: s, names: map[string]string{}}
}

func (c *nameCache) get(ctx context.Context, userID string) string {
	if n, ok := c.names[userID]; ok {
		return n
	}
	n := c.s.displayName(ctx, userID)
	c.names[userID] = n
	return n
}
