package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/portal/repository"
	"github.com/staffhub/portal/internal/store"
)

func TestAssignToUser_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Contract")

	created, err := f.svc.AssignToUser(ctx, f.admin, doc.ID, f.staff.ID)
	require.NoError(t, err)
	require.True(t, created)
	created, err = f.svc.AssignToUser(ctx, f.admin, doc.ID, f.staff.ID)
	require.NoError(t, err)
	require.False(t, created)

	require.Equal(t, 1, f.count(t, repository.Assignments, store.Eq("documentId", doc.ID)))
	require.Len(t, f.notifications(t, f.staff.ID), 1)

	_, err = f.svc.AssignToUser(ctx, f.admin, doc.ID, "nobody")
	requireKind(t, err, portal.KindNotFound)
	_, err = f.svc.AssignToUser(ctx, f.staff, doc.ID, f.staff.ID)
	requireKind(t, err, portal.KindForbidden)
}

func TestAssignToUser_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.document(t, "Contract")

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.AssignToUser(ctx, f.admin, doc.ID, f.staff.ID)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, results[0], results[1], "exactly one call creates the assignment")
	require.Equal(t, 1, f.count(t, repository.Assignments, store.Eq("documentId", doc.ID)))
}

func TestAssignToAllActiveStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addUser(t, "staff-2", "Olly Other", "staff", "")
	gone := f.addUser(t, "staff-3", "Gail Gone", "staff", "")
	require.NoError(t, f.users.Deactivate(ctx, gone.ID))
	doc := f.document(t, "Handbook")

	n, err := f.svc.AssignToAllActiveStaff(ctx, f.admin, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, f.notifications(t, f.staff.ID), 1)
	require.Len(t, f.notifications(t, second.ID), 1)
	require.Empty(t, f.notifications(t, gone.ID))
	require.Empty(t, f.notifications(t, f.admin.ID))

	n, err = f.svc.AssignToAllActiveStaff(ctx, f.admin, doc.ID)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 2, f.count(t, repository.Assignments, store.Eq("documentId", doc.ID)))
	require.Len(t, f.notifications(t, f.staff.ID), 1)
}

// interleavingGateway runs before once, just ahead of the next bulk insert.
type interleavingGateway struct {
	*store.MemoryStore
	before func()
}

func (g *interleavingGateway) InsertMany(ctx context.Context, table string, recs []store.Record) ([]int, error) {
	if hook := g.before; hook != nil {
		g.before = nil
		hook()
	}
	return g.MemoryStore.InsertMany(ctx, table, recs)
}

func TestAssignToAllActiveStaff_NotifiesOnlyRowsItWrote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addUser(t, "staff-2", "Olly Other", "staff", "")
	doc := f.document(t, "Handbook")

	gw := &interleavingGateway{MemoryStore: f.gw}
	f.svc = New(Deps{Store: gw, Users: f.users, Notifier: f.outbox, Audit: f.audit, Clock: f.clock.Now})
	gw.before = func() {
		created, err := f.svc.AssignToUser(ctx, f.admin, doc.ID, f.staff.ID)
		require.NoError(t, err)
		require.True(t, created)
	}

	n, err := f.svc.AssignToAllActiveStaff(ctx, f.admin, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 2, f.count(t, repository.Assignments, store.Eq("documentId", doc.ID)))
	require.Len(t, f.notifications(t, f.staff.ID), 1)
	require.Len(t, f.notifications(t, second.ID), 1)
}

func TestAssignTraining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	colleague := f.addUser(t, "staff-2", "Kit Chen", "staff", "kitchen")
	outsider := f.addUser(t, "staff-3", "Fran Front", "staff", "front-of-house")
	m := f.module(t, ModuleInput{Title: "Allergens", IsMandatory: true})
	opt := f.module(t, ModuleInput{Title: "Barista basics"})

	_, err := f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: m.ID})
	requireKind(t, err, portal.KindValidation)
	_, err = f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: m.ID, UserID: f.staff.ID, Department: "kitchen"})
	requireKind(t, err, portal.KindValidation)

	deadline := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	created, err := f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: m.ID, Department: "kitchen", Deadline: &deadline})
	require.NoError(t, err)
	require.True(t, created)
	created, err = f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: m.ID, Department: "kitchen"})
	require.NoError(t, err)
	require.False(t, created)
	// a direct assignment of the same module is listed once
	_, err = f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: m.ID, UserID: f.staff.ID})
	require.NoError(t, err)
	_, err = f.svc.AssignTraining(ctx, f.admin, TrainingAssignmentInput{ModuleID: opt.ID, UserID: f.staff.ID})
	require.NoError(t, err)

	require.Len(t, f.notifications(t, colleague.ID), 1)
	require.Contains(t, f.notifications(t, colleague.ID)[0].Message, "1 March 2024")
	require.Empty(t, f.notifications(t, outsider.ID))

	mine, err := f.svc.MyTraining(ctx, f.staff)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	titles := map[string]portal.TrainingStatus{}
	for _, at := range mine {
		titles[at.Module.Title] = at.Status
	}
	require.Equal(t, map[string]portal.TrainingStatus{"Allergens": portal.TrainingNotStarted, "Barista basics": portal.TrainingNotStarted}, titles)

	_, err = f.svc.TrainingForUser(ctx, f.staff, colleague.ID)
	requireKind(t, err, portal.KindForbidden)
	theirs, err := f.svc.TrainingForUser(ctx, f.admin, colleague.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	require.True(t, theirs[0].Assignment.IsMandatory)
}
