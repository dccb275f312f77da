package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/store"
)

type DocumentInput struct {
	Kind        portal.DocumentKind `json:"kind"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Content     string              `json:"content"`
	FileRef     string              `json:"fileRef"`
	IsRequired  bool                `json:"isRequired"`
	OrderIndex  int                 `json:"orderIndex"`
	Metadata    map[string]string   `json:"metadata"`
}

func (in *DocumentInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Kind == "" {
		in.Kind = portal.DocOnboarding
	}
	switch {
	case in.Title == "":
		return portal.Errorf(portal.KindValidation, "title is required")
	case in.Description == "":
		return portal.Errorf(portal.KindValidation, "description is required")
	case !in.Kind.Valid():
		return portal.Errorf(portal.KindValidation, "unknown document kind %q", in.Kind)
	}
	return nil
}

func documentNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return portal.Errorf(portal.KindNotFound, "document not found")
	}
	return err
}

func (s *Service) CreateDocument(ctx context.Context, p *access.Principal, in DocumentInput) (*portal.Document, error) {
	if err := s.require(p, access.ManageDocuments); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now()
	d := &portal.Document{
		Kind:        in.Kind,
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		FileRef:     in.FileRef,
		IsRequired:  in.IsRequired,
		OrderIndex:  in.OrderIndex,
		Metadata:    in.Metadata,
		CreatedBy:   p.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertDocument(ctx, d); err != nil {
		return nil, err
	}
	s.invalidate(ctx, revalidate.AdminDocuments)
	return d, nil
}

func (s *Service) UpdateDocument(ctx context.Context, p *access.Principal, id string, in DocumentInput) (*portal.Document, error) {
	if err := s.require(p, access.ManageDocuments); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	patch := store.Record{
		"kind":        string(in.Kind),
		"title":       in.Title,
		"description": in.Description,
		"content":     in.Content,
		"fileRef":     in.FileRef,
		"isRequired":  in.IsRequired,
		"orderIndex":  in.OrderIndex,
		"metadata":    in.Metadata,
		"updatedAt":   s.now(),
	}
	if err := s.repo.UpdateDocument(ctx, id, patch); err != nil {
		return nil, documentNotFound(err)
	}
	s.invalidate(ctx, revalidate.AdminDocuments, revalidate.StaffOnboarding)
	return s.GetDocument(ctx, p, id)
}

func (s *Service) GetDocument(ctx context.Context, p *access.Principal, id string) (*portal.Document, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	d, err := s.repo.Document(ctx, id)
	if err != nil {
		return nil, documentNotFound(err)
	}
	return d, nil
}

func (s *Service) ListDocuments(ctx context.Context, p *access.Principal, kind portal.DocumentKind) ([]*portal.Document, error) {
	if err := s.require(p, access.ManageDocuments); err != nil {
		return nil, err
	}
	return s.repo.Documents(ctx, kind)
}

// DeleteDocument refuses while any progress references the document so
// submission history is never orphaned.
func (s *Service) DeleteDocument(ctx context.Context, p *access.Principal, id string) error {
	if err := s.require(p, access.ManageDocuments); err != nil {
		return err
	}
	used, err := s.repo.HasSubmissions(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return portal.Errorf(portal.KindInvalidState, "this document has submissions and cannot be deleted")
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return documentNotFound(err)
	}
	s.invalidate(ctx, revalidate.AdminDocuments, revalidate.StaffOnboarding)
	return nil
}

// MyDocuments joins the caller's assignments with their progress, ordered
// like the document list.
func (s *Service) MyDocuments(ctx context.Context, p *access.Principal) ([]*portal.AssignedDocument, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	as, err := s.repo.AssignmentsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(as))
	for _, a := range as {
		ids = append(ids, a.DocumentID)
	}
	docs, err := s.repo.DocumentsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.SubmissionsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	byDoc := make(map[string]*portal.Submission, len(subs))
	for _, sub := range subs {
		byDoc[sub.DocumentID] = sub
	}
	out := make([]*portal.AssignedDocument, 0, len(docs))
	for _, id := range ids {
		d, ok := docs[id]
		if !ok {
			continue
		}
		ad := &portal.AssignedDocument{Document: d, Submission: byDoc[id], Status: portal.StatusNotStarted}
		if ad.Submission != nil {
			ad.Status = ad.Submission.Status
		}
		out = append(out, ad)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Document.OrderIndex < out[j].Document.OrderIndex
	})
	return out, nil
}
