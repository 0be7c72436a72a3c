package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"StillHere/internal/model"
	pkgerrors "StillHere/pkg/errors"
)

func seedContactRow(t *testing.T, db *gorm.DB, userID int64, email string, messageID *int64) *model.TrustedContact {
	t.Helper()
	c := &model.TrustedContact{UserID: userID, MessageID: messageID, Name: "n", Email: email}
	require.NoError(t, NewContactStore(db).Create(context.Background(), c))
	return c
}

func TestResolveForUserPrefersMessageScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewContactStore(db)

	msgID := int64(77)
	seedContactRow(t, db, 1, "fallback@example.com", nil)
	seedContactRow(t, db, 1, "scoped@example.com", &msgID)

	got, err := store.ResolveForUser(ctx, 1, []int64{77})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "scoped@example.com", got[0].Email)
}

func TestResolveForUserFallsBackToProfileLevel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewContactStore(db)

	otherMsg := int64(99)
	seedContactRow(t, db, 1, "fallback@example.com", nil)
	seedContactRow(t, db, 1, "scoped@example.com", &otherMsg)

	// 放行集合里没有绑定联系人的留言，退回档案级
	got, err := store.ResolveForUser(ctx, 1, []int64{77})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "fallback@example.com", got[0].Email)

	// 没有待放行留言时同样退回档案级
	got, err = store.ResolveForUser(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestResolveForUserDedupesByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewContactStore(db)

	msgA, msgB := int64(10), int64(11)
	seedContactRow(t, db, 1, "same@example.com", &msgA)
	seedContactRow(t, db, 1, "same@example.com", &msgB)

	got, err := store.ResolveForUser(ctx, 1, []int64{10, 11})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestContactDeleteIsUserScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store := NewContactStore(db)

	c := seedContactRow(t, db, 1, "a@example.com", nil)

	err := store.Delete(ctx, 2, c.ID)
	require.ErrorIs(t, err, pkgerrors.ContactNotFound)

	require.NoError(t, store.Delete(ctx, 1, c.ID))

	count, err := store.CountByUser(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, count)
}
