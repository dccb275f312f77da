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

const workflowHR = "hr_acknowledgment"

type HRRecordInput struct {
	UserID                 string `json:"userId"`
	RecordType             string `json:"recordType"`
	Title                  string `json:"title"`
	Description            string `json:"description"`
	FileRef                string `json:"fileRef"`
	RequiresAcknowledgment bool   `json:"requiresAcknowledgment"`
}

type AcknowledgeInput struct {
	FileRef      string `json:"uploadedFileRef"`
	SignatureRef string `json:"signatureRef"`
	Notes        string `json:"notes"`
}

// CreateHRRecord files a record against a staff member and tells them about it.
func (s *Service) CreateHRRecord(ctx context.Context, p *access.Principal, in HRRecordInput) (*portal.HRRecord, error) {
	if err := s.require(p, access.ManageHRRecords); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.RecordType = strings.TrimSpace(in.RecordType)
	switch {
	case in.Title == "":
		return nil, portal.Errorf(portal.KindValidation, "title is required")
	case in.RecordType == "":
		return nil, portal.Errorf(portal.KindValidation, "record type is required")
	}
	owner, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, portal.Errorf(portal.KindNotFound, "staff member not found")
	}
	rec := &portal.HRRecord{
		UserID:                 owner.ID,
		RecordType:             in.RecordType,
		Title:                  in.Title,
		Description:            in.Description,
		FileRef:                in.FileRef,
		RequiresAcknowledgment: in.RequiresAcknowledgment,
		CreatedBy:              p.ID,
		CreatedAt:              s.now(),
	}
	if err := s.repo.InsertHRRecord(ctx, rec); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("A new %s, %q, has been added to your HR records.", portal.HumanizeRecordType(rec.RecordType), rec.Title)
	if rec.RequiresAcknowledgment {
		msg += " Please review and acknowledge it."
	}
	s.notifyUser(ctx, notify.Notification{
		UserID:              owner.ID,
		Title:               "New HR record",
		Message:             msg,
		Type:                notify.TypeInfo,
		RelatedResourceType: "hr_record",
		RelatedResourceID:   rec.ID,
	})
	s.invalidate(ctx, revalidate.AdminHRRecords, revalidate.StaffHRRecords)
	return rec, nil
}

func (s *Service) MyHRRecords(ctx context.Context, p *access.Principal) ([]*portal.HRRecord, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	return s.repo.HRRecordsFor(ctx, p.ID)
}

func (s *Service) HRRecordsOf(ctx context.Context, p *access.Principal, userID string) ([]*portal.HRRecord, error) {
	if err := s.require(p, access.ManageHRRecords); err != nil {
		return nil, err
	}
	return s.repo.HRRecordsFor(ctx, userID)
}

// Acknowledge records the caller's signed acknowledgment of their own HR
// record. Records of other users are reported as not found.
func (s *Service) Acknowledge(ctx context.Context, p *access.Principal, recordID string, in AcknowledgeInput) (*portal.HRRecord, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	rec, err := s.repo.OwnedHRRecord(ctx, recordID, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.refused(workflowHR, portal.Errorf(portal.KindNotFound, "HR record not found"))
	}
	if err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(in.FileRef) == "":
		return nil, s.refused(workflowHR, portal.Errorf(portal.KindValidation, "please upload the signed document"))
	case strings.TrimSpace(in.SignatureRef) == "":
		return nil, s.refused(workflowHR, portal.Errorf(portal.KindValidation, "a signature is required"))
	}
	alreadyDone := portal.Errorf(portal.KindInvalidState, "this record has already been acknowledged")
	if !portal.HRLifecycle.CanTransition(rec.Status(), portal.HRAcknowledged) {
		return nil, s.refused(workflowHR, alreadyDone)
	}

	now := s.now()
	set := store.Record{
		"acknowledgedAt":        now,
		"acknowledgmentFileRef": in.FileRef,
		"signatureRef":          in.SignatureRef,
		"acknowledgmentNotes":   in.Notes,
	}
	ok, err := s.repo.AcknowledgeHRRecord(ctx, rec.ID, p.ID, set)
	if err != nil {
		return nil, fmt.Errorf("acknowledge hr record: %w", err)
	}
	if !ok {
		return nil, s.refused(workflowHR, alreadyDone)
	}
	s.transitioned(workflowHR, string(portal.HRAcknowledged))
	rec.AcknowledgedAt, rec.AcknowledgmentFileRef, rec.SignatureRef, rec.AcknowledgmentNotes = &now, in.FileRef, in.SignatureRef, in.Notes

	staff := s.nameOf(ctx, p)
	kind := portal.HumanizeRecordType(rec.RecordType)
	s.notifyAdmins(ctx, func(admin *models.User) notify.Notification {
		return notify.Notification{
			UserID:              admin.ID,
			Title:               "HR record acknowledged",
			Message:             fmt.Sprintf("%s acknowledged their %s.", staff, kind),
			Type:                notify.TypeInfo,
			RelatedResourceType: "hr_record",
			RelatedResourceID:   rec.ID,
		}
	})
	s.invalidate(ctx, revalidate.StaffHRRecords, revalidate.AdminHRRecords, revalidate.AdminSubmissions)
	return rec, nil
}
