package notify

import (
	"context"
	"testing"
	"time"

	"github.com/staffhub/portal/internal/store"
	"github.com/stretchr/testify/require"
)

func TestOutbox_NotifyAndList(t *testing.T) {
	gw := store.NewMemoryStore()
	o := NewOutbox(gw)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	ctx := context.Background()

	require.NoError(t, o.Notify(ctx, Notification{UserID: "u1", Title: "first", Message: "m1"}))
	require.NoError(t, o.Notify(ctx, Notification{UserID: "u1", Title: "second", Message: "m2", Type: TypeSuccess}))
	require.NoError(t, o.Notify(ctx, Notification{UserID: "u2", Title: "other", Message: "m3"}))

	got, err := o.ForUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "second", got[0].Title)
	require.Equal(t, TypeSuccess, got[0].Type)
	require.Equal(t, TypeInfo, got[1].Type)
	require.NotEmpty(t, got[0].ID)
}

func TestOutbox_RejectsMissingRecipient(t *testing.T) {
	o := NewOutbox(store.NewMemoryStore())
	require.Error(t, o.Notify(context.Background(), Notification{Title: "x"}))
}
