package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/portal"
)

func (f *fixture) module(t *testing.T, in ModuleInput) *portal.TrainingModule {
	t.Helper()
	m, err := f.svc.CreateModule(context.Background(), f.admin, in)
	require.NoError(t, err)
	return m
}

func TestVideoGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "Fire safety", VideoURL: "https://videos.example.com/fire.mp4"})

	_, err := f.svc.Complete(ctx, f.staff, m.ID, nil)
	requireKind(t, err, portal.KindVideoNotWatched)

	_, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 50, 100)
	require.NoError(t, err)
	require.True(t, persisted)
	_, err = f.svc.Complete(ctx, f.staff, m.ID, nil)
	requireKind(t, err, portal.KindVideoNotWatched)

	f.clock.Advance(6 * time.Second)
	vp, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 91, 100)
	require.NoError(t, err)
	require.True(t, persisted)
	require.InDelta(t, 91.0, vp.WatchedPercentage, 0.001)
	require.False(t, vp.VideoCompleted)

	prog, err := f.svc.Complete(ctx, f.staff, m.ID, nil)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingCompleted, prog.Status)
	require.NotNil(t, prog.CompletedAt)
}

func TestRecordVideoProgress_Debounce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "Manual handling", VideoURL: "https://videos.example.com/lift.mp4"})

	_, err := f.svc.Start(ctx, f.staff, m.ID)
	require.NoError(t, err)

	_, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 10, 120)
	require.NoError(t, err)
	require.True(t, persisted)

	f.clock.Advance(time.Second)
	_, persisted, err = f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 11, 120)
	require.NoError(t, err)
	require.False(t, persisted)

	// reaching the end always persists
	f.clock.Advance(time.Second)
	vp, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 120, 120)
	require.NoError(t, err)
	require.True(t, persisted)
	require.True(t, vp.VideoCompleted)
	require.InDelta(t, 100.0, vp.WatchedPercentage, 0.001)

	_, _, err = f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 5, 0)
	requireKind(t, err, portal.KindValidation)

	// other users are not debounced by this user's ticks
	other := f.addUser(t, "staff-2", "Olly Other", "staff", "")
	_, persisted, err = f.svc.RecordVideoProgress(ctx, other, m.ID, 1, 120)
	require.NoError(t, err)
	require.True(t, persisted)
}

func TestRecordVideoProgress_SeekBackKeepsHighestWatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "Food hygiene", VideoURL: "https://videos.example.com/hygiene.mp4"})

	vp, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 95, 100)
	require.NoError(t, err)
	require.True(t, persisted)
	require.InDelta(t, 95.0, vp.WatchedPercentage, 0.001)

	f.clock.Advance(6 * time.Second)
	vp, persisted, err = f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 10, 100)
	require.NoError(t, err)
	require.True(t, persisted)
	require.InDelta(t, 10.0, vp.CurrentTimeSeconds, 0.001)
	require.InDelta(t, 95.0, vp.WatchedPercentage, 0.001)

	prog, err := f.svc.Complete(ctx, f.staff, m.ID, nil)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingCompleted, prog.Status)
}

func TestRecordVideoProgress_CompletionIsSticky(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "Allergens", VideoURL: "https://videos.example.com/allergens.mp4"})

	vp, _, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 60, 60)
	require.NoError(t, err)
	require.True(t, vp.VideoCompleted)

	f.clock.Advance(6 * time.Second)
	vp, persisted, err := f.svc.RecordVideoProgress(ctx, f.staff, m.ID, 3, 60)
	require.NoError(t, err)
	require.True(t, persisted)
	require.True(t, vp.VideoCompleted)
	require.InDelta(t, 100.0, vp.WatchedPercentage, 0.001)
}

func TestComplete_ExpiryAndScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "Food hygiene", ExpiryMonths: 1, PassingScore: 80})

	low := 60
	_, err := f.svc.Complete(ctx, f.staff, m.ID, &low)
	requireKind(t, err, portal.KindValidation)

	score := 85
	prog, err := f.svc.Complete(ctx, f.staff, m.ID, &score)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingCompleted, prog.Status)
	require.Equal(t, 85, *prog.Score)
	// completed 31 January 2024; one calendar month later clamps to 29 February
	require.True(t, prog.ExpiresAt.Equal(time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC)), "got %v", prog.ExpiresAt)

	_, err = f.svc.Complete(ctx, f.staff, m.ID, &score)
	requireKind(t, err, portal.KindInvalidState)

	// restarting completed training is a no-op
	again, err := f.svc.Start(ctx, f.staff, m.ID)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingCompleted, again.Status)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.module(t, ModuleInput{Title: "First aid", ExpiryMonths: 12})
	forever := f.module(t, ModuleInput{Title: "Induction"})

	_, err := f.svc.Complete(ctx, f.staff, m.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, f.staff, forever.ID, nil)
	require.NoError(t, err)

	n, err := f.svc.SweepExpired(ctx, f.clock.Now().AddDate(0, 6, 0))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = f.svc.SweepExpired(ctx, f.clock.Now().AddDate(1, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	prog, err := f.svc.repo.ProgressFor(ctx, m.ID, f.staff.ID)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingExpired, prog.Status)
	kept, err := f.svc.repo.ProgressFor(ctx, forever.ID, f.staff.ID)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingCompleted, kept.Status)

	ns := f.notifications(t, f.staff.ID)
	require.Len(t, ns, 1)
	require.Contains(t, ns[0].Message, "First aid")

	// expired training starts over
	restarted, err := f.svc.Start(ctx, f.staff, m.ID)
	require.NoError(t, err)
	require.Equal(t, portal.TrainingInProgress, restarted.Status)
	require.Nil(t, restarted.CompletedAt)
	require.Nil(t, restarted.ExpiresAt)
}

func TestDeleteModule_BlockedByProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	used := f.module(t, ModuleInput{Title: "Used"})
	unused := f.module(t, ModuleInput{Title: "Unused"})
	_, err := f.svc.Start(ctx, f.staff, used.ID)
	require.NoError(t, err)

	requireKind(t, f.svc.DeleteModule(ctx, f.admin, used.ID), portal.KindInvalidState)
	require.NoError(t, f.svc.DeleteModule(ctx, f.admin, unused.ID))
	_, err = f.svc.Module(ctx, f.admin, unused.ID)
	requireKind(t, err, portal.KindNotFound)
}
