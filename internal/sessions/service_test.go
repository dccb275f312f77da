package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/store"
)

func TestCreateAndValidateSession(t *testing.T) {
	repo := NewStoreRepository(store.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))
	svc := NewService(repo)

	r, err := svc.CreateSession(ctx, "user-1", time.Hour)
	require.NoError(t, err)
	require.Len(t, r, 64)

	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "user-1", sess.UserID)

	require.NoError(t, svc.DeleteRefresh(ctx, r))
	sess, err = svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess)

	sess, err = svc.ValidateRefresh(ctx, "")
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestValidateRefresh_DropsExpiredSession(t *testing.T) {
	gw := store.NewMemoryStore()
	svc := NewService(NewStoreRepository(gw))
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	r, err := svc.CreateSession(ctx, "user-2", time.Minute)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	sess, err := svc.ValidateRefresh(ctx, r)
	require.NoError(t, err)
	require.Nil(t, sess)

	recs, err := gw.Find(ctx, Table, store.All())
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestRevokeUser(t *testing.T) {
	svc := NewService(NewStoreRepository(store.NewMemoryStore()))
	ctx := context.Background()

	a1, err := svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	b1, err := svc.CreateSession(ctx, "bob", time.Hour)
	require.NoError(t, err)

	n, err := svc.RevokeUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	sess, err := svc.ValidateRefresh(ctx, a1)
	require.NoError(t, err)
	require.Nil(t, sess)
	sess, err = svc.ValidateRefresh(ctx, b1)
	require.NoError(t, err)
	require.NotNil(t, sess)
}
