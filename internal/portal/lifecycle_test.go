package portal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionLifecycle(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{"", StatusDraft, true},
		{StatusNotStarted, StatusSubmitted, true},
		{StatusDraft, StatusDraft, true},
		{StatusRejected, StatusDraft, true},
		{StatusRejected, StatusSubmitted, true},
		{StatusSubmitted, StatusSubmitted, true},
		{StatusSubmitted, StatusDraft, false},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusDraft, StatusApproved, false},
		{StatusRejected, StatusRejected, false},
		{StatusApproved, StatusDraft, false},
		{StatusApproved, StatusSubmitted, false},
		{StatusApproved, StatusRejected, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, SubmissionLifecycle.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
	require.True(t, SubmissionLifecycle.IsTerminal(StatusApproved))
	require.ElementsMatch(t, []Status{StatusSubmitted}, SubmissionLifecycle.Sources(StatusApproved))
}

func TestTrainingLifecycle(t *testing.T) {
	require.True(t, TrainingLifecycle.CanTransition(TrainingExpired, TrainingInProgress))
	require.False(t, TrainingLifecycle.CanTransition(TrainingCompleted, TrainingInProgress))
	require.False(t, TrainingLifecycle.CanTransition(TrainingCompleted, TrainingCompleted))
	require.True(t, TrainingLifecycle.CanTransition(TrainingCompleted, TrainingExpired))
	require.False(t, TrainingLifecycle.CanTransition(TrainingInProgress, TrainingExpired))
}

func TestHRLifecycle(t *testing.T) {
	rec := &HRRecord{}
	require.True(t, HRLifecycle.CanTransition(rec.Status(), HRAcknowledged))
	require.False(t, HRLifecycle.CanTransition(HRAcknowledged, HRAcknowledged))
}

func TestSourcesIsACopy(t *testing.T) {
	src := SubmissionLifecycle.Sources(StatusDraft)
	src[0] = StatusApproved
	require.NotContains(t, SubmissionLifecycle.Sources(StatusDraft), StatusApproved)
}
