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
	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/metrics"
)

const workflowTraining = "training"

type ModuleInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Content      string `json:"content"`
	VideoURL     string `json:"videoUrl"`
	IsMandatory  bool   `json:"isMandatory"`
	ExpiryMonths int    `json:"expiryMonths"`
	PassingScore int    `json:"passingScore"`
}

func (in *ModuleInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return portal.Errorf(portal.KindValidation, "title is required")
	case in.ExpiryMonths < 0:
		return portal.Errorf(portal.KindValidation, "expiry months cannot be negative")
	case in.PassingScore < 0 || in.PassingScore > 100:
		return portal.Errorf(portal.KindValidation, "passing score must be between 0 and 100")
	}
	return nil
}

func moduleNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return portal.Errorf(portal.KindNotFound, "training module not found")
	}
	return err
}

func (s *Service) CreateModule(ctx context.Context, p *access.Principal, in ModuleInput) (*portal.TrainingModule, error) {
	if err := s.require(p, access.ManageTraining); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now()
	m := &portal.TrainingModule{
		Title:        in.Title,
		Description:  in.Description,
		Content:      in.Content,
		VideoURL:     in.VideoURL,
		IsMandatory:  in.IsMandatory,
		ExpiryMonths: in.ExpiryMonths,
		PassingScore: in.PassingScore,
		CreatedBy:    p.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertModule(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, revalidate.AdminTraining)
	return m, nil
}

func (s *Service) UpdateModule(ctx context.Context, p *access.Principal, id string, in ModuleInput) (*portal.TrainingModule, error) {
	if err := s.require(p, access.ManageTraining); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	patch := store.Record{
		"title":        in.Title,
		"description":  in.Description,
		"content":      in.Content,
		"videoUrl":     in.VideoURL,
		"isMandatory":  in.IsMandatory,
		"expiryMonths": in.ExpiryMonths,
		"passingScore": in.PassingScore,
		"updatedAt":    s.now(),
	}
	if err := s.repo.UpdateModule(ctx, id, patch); err != nil {
		return nil, moduleNotFound(err)
	}
	s.invalidate(ctx, revalidate.AdminTraining, revalidate.StaffTraining)
	return s.Module(ctx, p, id)
}

// DeleteModule refuses while any user has progress on the module.
func (s *Service) DeleteModule(ctx context.Context, p *access.Principal, id string) error {
	if err := s.require(p, access.ManageTraining); err != nil {
		return err
	}
	used, err := s.repo.HasTrainingProgress(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return portal.Errorf(portal.KindInvalidState, "this module has progress recorded and cannot be deleted")
	}
	if err := s.repo.DeleteModule(ctx, id); err != nil {
		return moduleNotFound(err)
	}
	s.invalidate(ctx, revalidate.AdminTraining, revalidate.StaffTraining)
	return nil
}

func (s *Service) Module(ctx context.Context, p *access.Principal, id string) (*portal.TrainingModule, error) {
	if err := s.require(p, access.CompleteOwnWork); err != nil {
		return nil, err
	}
	m, err := s.repo.Module(ctx, id)
	if err != nil {
		return nil, moduleNotFound(err)
	}
	return m, nil
}

func (s *Service) Modules(ctx context.Context, p *access.Principal) ([]*portal.TrainingModule, error) {
	if err := s.require(p, access.ManageTraining); err != nil {
		return nil, err
	}
	return s.repo.Modules(ctx)
}

// Start marks the module in progress. Completed progress is returned
// unchanged; expired progress starts over.
func (s *Service) Start(ctx context.Context, p *access.Principal, moduleID string) (*portal.TrainingProgress, error) {
	m, err := s.Module(ctx, p, moduleID)
	if err != nil {
		return nil, err
	}
	cur, err := s.repo.ProgressFor(ctx, m.ID, p.ID)
	if err != nil {
		return nil, err
	}
	if cur != nil && cur.Status == portal.TrainingCompleted {
		return cur, nil
	}
	now := s.now()
	set := store.Record{"startedAt": now}
	if cur != nil && cur.Status == portal.TrainingExpired {
		set["completedAt"], set["expiresAt"], set["score"] = nil, nil, nil
	}
	prog, err := s.repo.TransitionTraining(ctx, m.ID, p.ID, portal.TrainingInProgress, set, now)
	if errors.Is(err, store.ErrConflict) {
		// completed concurrently
		return s.repo.ProgressFor(ctx, m.ID, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("start training: %w", err)
	}
	s.transitioned(workflowTraining, string(portal.TrainingInProgress))
	s.invalidate(ctx, revalidate.StaffTraining)
	return prog, nil
}

// RecordVideoProgress stores the caller's watch position and the highest
// percentage watched so far. Ticks inside the debounce window are dropped
// unless they reach the end of the video. It reports whether the tick was
// persisted.
func (s *Service) RecordVideoProgress(ctx context.Context, p *access.Principal, moduleID string, currentTime, duration float64) (*portal.VideoProgress, bool, error) {
	if duration <= 0 {
		return nil, false, portal.Errorf(portal.KindValidation, "video duration must be positive")
	}
	m, err := s.Module(ctx, p, moduleID)
	if err != nil {
		return nil, false, err
	}
	if !m.HasVideo() {
		return nil, false, portal.Errorf(portal.KindValidation, "this module has no video")
	}
	ended := currentTime >= duration
	if !ended {
		allowed, err := s.debounce.Allow(ctx, p.ID+":"+m.ID)
		if err != nil {
			logger.Warnf("video debounce unavailable, persisting tick: %v", err)
			allowed = true
		}
		if !allowed {
			metrics.VideoProgressWrites.WithLabelValues("debounced").Inc()
			return nil, false, nil
		}
	}
	prev, err := s.repo.VideoProgressFor(ctx, m.ID, p.ID)
	if err != nil {
		return nil, false, err
	}
	// Seeking backwards moves the position but never lowers the watched
	// percentage or clears completion.
	watched := portal.WatchedPercentage(currentTime, duration)
	if prev != nil && prev.WatchedPercentage > watched {
		watched = prev.WatchedPercentage
	}
	set := store.Record{
		"currentTimeSeconds": currentTime,
		"durationSeconds":    duration,
		"watchedPercentage":  watched,
		"updatedAt":          s.now(),
	}
	if ended {
		set["videoCompleted"] = true
	}
	vp, err := s.repo.SaveVideoProgress(ctx, m.ID, p.ID, set)
	if err != nil {
		return nil, false, fmt.Errorf("save video progress: %w", err)
	}
	metrics.VideoProgressWrites.WithLabelValues("persisted").Inc()
	return vp, true, nil
}

// Complete finishes the module for the caller. Modules with a video require
// the gate percentage to have been watched; a passing score, when defined,
// gates any score given.
func (s *Service) Complete(ctx context.Context, p *access.Principal, moduleID string, score *int) (*portal.TrainingProgress, error) {
	m, err := s.Module(ctx, p, moduleID)
	if err != nil {
		return nil, err
	}
	if m.HasVideo() {
		vp, err := s.repo.VideoProgressFor(ctx, m.ID, p.ID)
		if err != nil {
			return nil, err
		}
		if vp == nil || (vp.WatchedPercentage < s.gate && !vp.VideoCompleted) {
			return nil, s.refused(workflowTraining, portal.Errorf(portal.KindVideoNotWatched, "please watch at least %.0f%% of the video before completing this module", s.gate))
		}
	}
	if score != nil {
		switch {
		case *score < 0 || *score > 100:
			return nil, s.refused(workflowTraining, portal.Errorf(portal.KindValidation, "score must be between 0 and 100"))
		case m.PassingScore > 0 && *score < m.PassingScore:
			return nil, s.refused(workflowTraining, portal.Errorf(portal.KindValidation, "a score of at least %d is required to pass", m.PassingScore))
		}
	}
	cur, err := s.repo.ProgressFor(ctx, m.ID, p.ID)
	if err != nil {
		return nil, err
	}
	alreadyDone := portal.Errorf(portal.KindInvalidState, "this module is already completed")
	if cur != nil && !portal.TrainingLifecycle.CanTransition(cur.Status, portal.TrainingCompleted) {
		return nil, s.refused(workflowTraining, alreadyDone)
	}

	now := s.now()
	set := store.Record{"completedAt": now, "score": score, "expiresAt": nil}
	if m.ExpiryMonths > 0 {
		set["expiresAt"] = portal.AddMonths(now, m.ExpiryMonths)
	}
	if cur == nil || cur.StartedAt == nil {
		set["startedAt"] = now
	}
	prog, err := s.repo.TransitionTraining(ctx, m.ID, p.ID, portal.TrainingCompleted, set, now)
	if errors.Is(err, store.ErrConflict) {
		return nil, s.refused(workflowTraining, alreadyDone)
	}
	if err != nil {
		return nil, fmt.Errorf("complete training: %w", err)
	}
	s.transitioned(workflowTraining, string(portal.TrainingCompleted))
	s.invalidate(ctx, revalidate.StaffTraining, revalidate.AdminTraining)
	return prog, nil
}

// SweepExpired moves completed progress whose expiry has passed to expired
// and tells each affected user. It returns how many records expired.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.CompletedWithExpiry(ctx)
	if err != nil {
		return 0, err
	}
	var expired []*portal.TrainingProgress
	ids := []string{}
	for _, prog := range due {
		if prog.ExpiresAt.After(now) {
			continue
		}
		ok, err := s.repo.Expire(ctx, prog.ID, now.UTC())
		if err != nil {
			return len(expired), fmt.Errorf("expire training %s: %w", prog.ID, err)
		}
		if ok {
			expired = append(expired, prog)
			ids = append(ids, prog.ModuleID)
			s.transitioned(workflowTraining, string(portal.TrainingExpired))
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	modules, err := s.repo.ModulesByID(ctx, ids)
	if err != nil {
		logger.Warnf("could not load modules for expiry notices: %v", err)
		modules = map[string]*portal.TrainingModule{}
	}
	recipients := make([]*models.User, len(expired))
	byUser := make(map[*models.User]*portal.TrainingProgress, len(expired))
	for i, prog := range expired {
		recipients[i] = &models.User{ID: prog.UserID}
		byUser[recipients[i]] = prog
	}
	s.notifyEach(ctx, recipients, func(u *models.User) notify.Notification {
		prog := byUser[u]
		title := "a training module"
		if m, ok := modules[prog.ModuleID]; ok {
			title = fmt.Sprintf("%q", m.Title)
		}
		return notify.Notification{
			UserID:              u.ID,
			Title:               "Training expired",
			Message:             fmt.Sprintf("Your completion of %s has expired. Please complete it again.", title),
			Type:                notify.TypeWarning,
			RelatedResourceType: "training_module",
			RelatedResourceID:   prog.ModuleID,
		}
	})
	s.invalidate(ctx, revalidate.StaffTraining, revalidate.AdminTraining)
	logger.Infof("expired %d training completions", len(expired))
	return len(expired), nil
}
