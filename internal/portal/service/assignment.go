package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/store"
)

type TrainingAssignmentInput struct {
	ModuleID    string     `json:"moduleId"`
	UserID      string     `json:"userId"`
	Department  string     `json:"department"`
	IsMandatory bool       `json:"isMandatory"`
	Deadline    *time.Time `json:"deadline"`
	Notes       string     `json:"notes"`
}

func documentAssigned(u *models.User, doc *portal.Document) notify.Notification {
	return notify.Notification{
		UserID:              u.ID,
		Title:               "New document assigned",
		Message:             fmt.Sprintf("%q has been assigned to you.", doc.Title),
		Type:                notify.TypeInfo,
		RelatedResourceType: "document",
		RelatedResourceID:   doc.ID,
	}
}

// AssignToUser maps a document to one staff member. It reports false when
// the mapping already existed; that outcome is not an error.
func (s *Service) AssignToUser(ctx context.Context, p *access.Principal, documentID, userID string) (bool, error) {
	if err := s.require(p, access.AssignDocuments); err != nil {
		return false, err
	}
	doc, err := s.repo.Document(ctx, documentID)
	if err != nil {
		return false, documentNotFound(err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u == nil {
		return false, portal.Errorf(portal.KindNotFound, "staff member not found")
	}
	err = s.repo.AssignDocument(ctx, &portal.Assignment{DocumentID: doc.ID, UserID: u.ID, AssignedBy: p.ID, AssignedAt: s.now()})
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("assign document: %w", err)
	}
	s.notifyUser(ctx, documentAssigned(u, doc))
	s.invalidate(ctx, revalidate.AdminDocuments, revalidate.StaffOnboarding)
	return true, nil
}

// AssignToAllActiveStaff assigns the document to every active staff member
// who does not have it yet and returns how many were newly assigned.
func (s *Service) AssignToAllActiveStaff(ctx context.Context, p *access.Principal, documentID string) (int, error) {
	if err := s.require(p, access.AssignDocuments); err != nil {
		return 0, err
	}
	doc, err := s.repo.Document(ctx, documentID)
	if err != nil {
		return 0, documentNotFound(err)
	}
	staff, err := s.users.ActiveStaff(ctx)
	if err != nil {
		return 0, err
	}
	assigned, err := s.repo.AssignedUsers(ctx, doc.ID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	byID := make(map[string]*models.User, len(staff))
	var batch []*portal.Assignment
	for _, u := range staff {
		if assigned[u.ID] {
			continue
		}
		byID[u.ID] = u
		batch = append(batch, &portal.Assignment{DocumentID: doc.ID, UserID: u.ID, AssignedBy: p.ID, AssignedAt: now})
	}
	if len(batch) == 0 {
		return 0, nil
	}
	// rows that lost a race to another assignment are skipped by the unique key
	written, err := s.repo.AssignDocuments(ctx, batch)
	if err != nil {
		return len(written), fmt.Errorf("assign document to staff: %w", err)
	}
	if len(written) == 0 {
		return 0, nil
	}
	fresh := make([]*models.User, len(written))
	for i, a := range written {
		fresh[i] = byID[a.UserID]
	}
	s.notifyEach(ctx, fresh, func(u *models.User) notify.Notification { return documentAssigned(u, doc) })
	s.invalidate(ctx, revalidate.AdminDocuments, revalidate.StaffOnboarding)
	return len(written), nil
}

// AssignTraining targets a module at one user or a whole department. It
// reports false when an identical assignment already existed.
func (s *Service) AssignTraining(ctx context.Context, p *access.Principal, in TrainingAssignmentInput) (bool, error) {
	if err := s.require(p, access.ManageTraining); err != nil {
		return false, err
	}
	in.UserID, in.Department = strings.TrimSpace(in.UserID), strings.TrimSpace(in.Department)
	if (in.UserID == "") == (in.Department == "") {
		return false, portal.Errorf(portal.KindValidation, "assign to either a user or a department")
	}
	m, err := s.repo.Module(ctx, in.ModuleID)
	if err != nil {
		return false, moduleNotFound(err)
	}
	var recipients []*models.User
	if in.UserID != "" {
		u, err := s.users.GetByID(ctx, in.UserID)
		if err != nil {
			return false, err
		}
		if u == nil {
			return false, portal.Errorf(portal.KindNotFound, "staff member not found")
		}
		recipients = []*models.User{u}
	}
	a := &portal.TrainingAssignment{
		ModuleID:    m.ID,
		UserID:      in.UserID,
		Department:  in.Department,
		IsMandatory: in.IsMandatory || m.IsMandatory,
		Deadline:    in.Deadline,
		Notes:       in.Notes,
		AssignedBy:  p.ID,
		AssignedAt:  s.now(),
	}
	err = s.repo.AssignTraining(ctx, a)
	if errors.Is(err, store.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("assign training: %w", err)
	}
	if in.Department != "" {
		staff, err := s.users.ActiveStaff(ctx)
		if err != nil {
			return true, err
		}
		for _, u := range staff {
			if u.Department == in.Department {
				recipients = append(recipients, u)
			}
		}
	}
	msg := fmt.Sprintf("%q has been assigned to you.", m.Title)
	if a.Deadline != nil {
		msg += " Please complete it by " + a.Deadline.Format("2 January 2006") + "."
	}
	s.notifyEach(ctx, recipients, func(u *models.User) notify.Notification {
		return notify.Notification{
			UserID:              u.ID,
			Title:               "New training assigned",
			Message:             msg,
			Type:                notify.TypeInfo,
			RelatedResourceType: "training_module",
			RelatedResourceID:   m.ID,
		}
	})
	s.invalidate(ctx, revalidate.AdminTraining, revalidate.StaffTraining)
	return true, nil
}

// TrainingForUser lists the modules assigned to a user directly or through
// their department, one entry per module. Staff may only list their own.
func (s *Service) TrainingForUser(ctx context.Context, p *access.Principal, userID string) ([]*portal.AssignedTraining, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	if userID != p.ID {
		if err := s.require(p, access.ManageTraining); err != nil {
			return nil, err
		}
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, portal.Errorf(portal.KindNotFound, "staff member not found")
	}
	as, err := s.repo.TrainingAssignmentsFor(ctx, u.ID, u.Department)
	if err != nil {
		return nil, err
	}
	var order []string
	byModule := map[string]*portal.TrainingAssignment{}
	for _, a := range as {
		if prev, ok := byModule[a.ModuleID]; ok {
			prev.IsMandatory = prev.IsMandatory || a.IsMandatory
			continue
		}
		byModule[a.ModuleID] = a
		order = append(order, a.ModuleID)
	}
	modules, err := s.repo.ModulesByID(ctx, order)
	if err != nil {
		return nil, err
	}
	progress, err := s.repo.ProgressOf(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	byProgress := make(map[string]*portal.TrainingProgress, len(progress))
	for _, prog := range progress {
		byProgress[prog.ModuleID] = prog
	}
	out := make([]*portal.AssignedTraining, 0, len(order))
	for _, id := range order {
		m, ok := modules[id]
		if !ok {
			continue
		}
		at := &portal.AssignedTraining{Module: m, Assignment: byModule[id], Progress: byProgress[id], Status: portal.TrainingNotStarted}
		if at.Progress != nil {
			at.Status = at.Progress.Status
		}
		out = append(out, at)
	}
	return out, nil
}

// MyTraining is TrainingForUser for the caller.
func (s *Service) MyTraining(ctx context.Context, p *access.Principal) ([]*portal.AssignedTraining, error) {
	if p == nil {
		return nil, s.require(p, access.CompleteOwnWork)
	}
	return s.TrainingForUser(ctx, p, p.ID)
}
