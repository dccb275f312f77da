package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/store"
)

func TestSaveDraft_CreatesAndUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Tax form")

	sub, err := f.svc.SaveDraft(ctx, f.staff, doc.ID, DraftInput{FormData: portal.FieldsForm(map[string]string{"taxCode": "1257L"})})
	require.NoError(t, err)
	require.Equal(t, portal.StatusDraft, sub.Status)
	require.NotNil(t, sub.LastSavedAt)
	require.Equal(t, "1257L", sub.FormData.Fields["taxCode"])

	f.clock.Advance(time.Minute)
	again, err := f.svc.SaveDraft(ctx, f.staff, doc.ID, DraftInput{Notes: "half done"})
	require.NoError(t, err)
	require.Equal(t, sub.ID, again.ID)
	require.Equal(t, "half done", again.Notes)
	require.True(t, again.LastSavedAt.After(*sub.LastSavedAt))

	// drafts never notify
	require.Empty(t, f.notifications(t, f.admin.ID))
}

func TestSaveDraft_Refusals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Contract")

	_, err := f.svc.SaveDraft(ctx, f.staff, "missing", DraftInput{})
	requireKind(t, err, portal.KindNotFound)

	_, err = f.svc.SaveDraft(ctx, f.staff, doc.ID, DraftInput{FormData: &portal.FormData{Kind: portal.FormUpload}})
	requireKind(t, err, portal.KindValidation)

	sub := f.submit(t, f.staff, doc.ID, "uploads/contract.pdf")
	_, err = f.svc.SaveDraft(ctx, f.staff, doc.ID, DraftInput{Notes: "edit"})
	requireKind(t, err, portal.KindInvalidState)
	require.Equal(t, "cannot modify a submitted document", err.Error())

	_, err = f.svc.Review(ctx, f.admin, sub.ID, true, "")
	require.NoError(t, err)
	_, err = f.svc.SaveDraft(ctx, f.staff, doc.ID, DraftInput{Notes: "edit"})
	requireKind(t, err, portal.KindAlreadyApproved)
	require.True(t, errors.Is(err, portal.ErrInvalidState))
}

func TestSubmit_RequiresFile(t *testing.T) {
	f := newFixture(t)
	doc := f.document(t, "Contract")
	_, err := f.svc.Submit(context.Background(), f.staff, doc.ID, SubmitInput{FileRef: "  "})
	requireKind(t, err, portal.KindValidation)
	require.Zero(t, f.count(t, "submission_progress", store.All()))
}

func TestSubmit_FreshKeepsOriginalFilenameAndNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addUser(t, "admin-2", "Bo Admin", "admin", "")
	doc := f.document(t, "Right to work")

	sub, err := f.svc.Submit(ctx, f.staff, doc.ID, SubmitInput{FileRef: "uploads/rtw.pdf", OriginalFilename: "passport scan.pdf", Notes: "front page only"})
	require.NoError(t, err)
	require.Equal(t, portal.StatusSubmitted, sub.Status)
	require.NotNil(t, sub.CompletedAt)
	require.Equal(t, portal.FormUpload, sub.FormData.Kind)
	require.Equal(t, "uploads/rtw.pdf", sub.FormData.Upload.FileRef)
	require.Equal(t, "passport scan.pdf", sub.FormData.Upload.OriginalFilename)

	for _, id := range []string{f.admin.ID, second.ID} {
		ns := f.notifications(t, id)
		require.Len(t, ns, 1)
		require.Contains(t, ns[0].Message, "Sam Staff")
		require.Contains(t, ns[0].Message, "Right to work")
		require.Equal(t, sub.ID, ns[0].RelatedResourceID)
	}
	require.Empty(t, f.notifications(t, f.staff.ID))
}

func TestApprovedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Handbook sign-off")
	sub := f.submit(t, f.staff, doc.ID, "uploads/a.pdf")
	_, err := f.svc.Review(ctx, f.admin, sub.ID, true, "")
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.staff, doc.ID, SubmitInput{FileRef: "uploads/b.pdf"})
	requireKind(t, err, portal.KindAlreadyApproved)
	_, err = f.svc.Review(ctx, f.admin, sub.ID, false, "changed my mind")
	requireKind(t, err, portal.KindInvalidState)

	got, err := f.svc.repo.Submission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusApproved, got.Status)
	require.Equal(t, "uploads/a.pdf", got.FormData.Upload.FileRef)
}

func TestResubmitAfterRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Bank details")
	first := f.submit(t, f.staff, doc.ID, "uploads/v1.pdf")
	_, err := f.svc.Review(ctx, f.admin, first.ID, false, "Sort code missing")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second := f.submit(t, f.staff, doc.ID, "uploads/v2.pdf")
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, portal.StatusSubmitted, second.Status)
	require.True(t, second.CompletedAt.After(*first.CompletedAt))
	require.WithinDuration(t, f.clock.Now(), *second.CompletedAt, time.Second)
	require.Empty(t, second.AdminComments)
	require.Nil(t, second.ReviewedAt)
}

func TestConcurrentSubmitAndReviewNeverReopensApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Policy")
	sub := f.submit(t, f.staff, doc.ID, "uploads/p.pdf")
	_, err := f.svc.Review(ctx, f.admin, sub.ID, true, "ok")
	require.NoError(t, err)

	// A writer that read the record before approval must still be refused.
	_, err = f.svc.repo.TransitionSubmission(ctx, doc.ID, f.staff.ID, portal.StatusDraft, store.Record{}, f.clock.Now())
	require.Error(t, err)
	got, err := f.svc.repo.Submission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, portal.StatusApproved, got.Status)
}

func TestMyDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.CreateDocument(ctx, f.admin, DocumentInput{Title: "B", Description: "b", OrderIndex: 2})
	require.NoError(t, err)
	b, err := f.svc.CreateDocument(ctx, f.admin, DocumentInput{Title: "A", Description: "a", OrderIndex: 1})
	require.NoError(t, err)
	for _, d := range []string{a.ID, b.ID} {
		_, err := f.svc.AssignToUser(ctx, f.admin, d, f.staff.ID)
		require.NoError(t, err)
	}
	f.submit(t, f.staff, a.ID, "uploads/x.pdf")

	mine, err := f.svc.MyDocuments(ctx, f.staff)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, b.ID, mine[0].Document.ID)
	require.Equal(t, portal.StatusNotStarted, mine[0].Status)
	require.Equal(t, portal.StatusSubmitted, mine[1].Status)
}
