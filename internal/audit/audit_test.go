package audit

import (
	"context"
	"testing"

	"github.com/staffhub/portal/internal/store"
	"github.com/stretchr/testify/require"
)

func TestStoreRecorder_RecordAndList(t *testing.T) {
	r := NewStoreRecorder(store.NewMemoryStore())
	ctx := context.Background()

	err := r.Record(ctx, Entry{
		ActorID:     "admin-1",
		Action:      "approve_document",
		SubjectType: "submission",
		SubjectID:   "s-1",
		Metadata:    map[string]string{"outcome": "approved"},
	})
	require.NoError(t, err)

	got, err := r.ForSubject(ctx, "submission", "s-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "approve_document", got[0].Action)
	require.Equal(t, "approved", got[0].Metadata["outcome"])
	require.False(t, got[0].CreatedAt.IsZero())
}

func TestStoreRecorder_Validation(t *testing.T) {
	r := NewStoreRecorder(store.NewMemoryStore())
	ctx := context.Background()
	require.Error(t, r.Record(ctx, Entry{Action: "x", SubjectType: "s", SubjectID: "1"}))
	require.Error(t, r.Record(ctx, Entry{ActorID: "a", SubjectType: "s", SubjectID: "1"}))
	require.Error(t, r.Record(ctx, Entry{ActorID: "a", Action: "x"}))
}
