package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"StillHere/internal/model"
	pkgerrors "StillHere/pkg/errors"
)

func newMessageFixture(t *testing.T, db *gorm.DB, now time.Time) *MessageService {
	t.Helper()
	checkin := NewCheckinService(db, newTestEvents(db), WithCheckinClock(fixedClock(now)))
	return NewMessageService(db, checkin)
}

func TestCreateCheckinMessageEnrollsTimer(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	msg, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title:          "If you are reading this",
		Body:           "Take care of the garden.",
		RecipientName:  "Jamie",
		RecipientEmail: "jamie@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusDraft, msg.Status)
	require.NotEmpty(t, msg.PublicID)

	// 首条 checkin 留言建立计时器
	var checkin model.Checkin
	require.NoError(t, db.Where("user_id = ?", 1).First(&checkin).Error)
	require.Equal(t, "owner@example.com", checkin.UserEmail)
	require.Equal(t, 30, checkin.IntervalDays)

	// 投递规则随留言落库
	var rule model.DeliveryRule
	require.NoError(t, db.Where("message_id = ?", msg.ID).First(&rule).Error)
	require.Equal(t, model.DeliveryModeCheckin, rule.Mode)
}

func TestCreateDateMessageSkipsTimer(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	deliverOn := now.Add(30 * 24 * time.Hour)
	_, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title:     "Birthday note",
		Body:      "Happy birthday!",
		Mode:      model.DeliveryModeDate,
		DeliverOn: &deliverOn,
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.Checkin{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestScheduleRequiresRecipient(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	msg, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title: "No recipient yet",
		Body:  "draft",
	})
	require.NoError(t, err)

	_, err = svc.Schedule(ctx, 1, msg.PublicID)
	require.ErrorIs(t, err, pkgerrors.MessageRecipientMissing)

	// 补上地址后可以排期
	_, err = svc.UpdateDraft(ctx, 1, msg.PublicID, MessageInput{
		Title:          "No recipient yet",
		Body:           "draft",
		RecipientEmail: "jamie@example.com",
	})
	require.NoError(t, err)

	scheduled, err := svc.Schedule(ctx, 1, msg.PublicID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusScheduled, scheduled.Status)
}

func TestScheduledMessageIsFrozen(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	msg, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title:          "Final words",
		Body:           "original",
		RecipientEmail: "jamie@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Schedule(ctx, 1, msg.PublicID)
	require.NoError(t, err)

	// 已排期的留言不可编辑也不可重复排期
	_, err = svc.UpdateDraft(ctx, 1, msg.PublicID, MessageInput{Body: "edited"})
	require.ErrorIs(t, err, pkgerrors.MessageNotDraft)

	_, err = svc.Schedule(ctx, 1, msg.PublicID)
	require.ErrorIs(t, err, pkgerrors.MessageNotDraft)
}

func TestMessagesAreUserScoped(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	msg, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title: "Mine",
		Body:  "secret",
	})
	require.NoError(t, err)

	// 别的用户拿着同一个 public_id 也查不到
	_, err = svc.Get(ctx, 2, msg.PublicID)
	require.ErrorIs(t, err, pkgerrors.MessageNotFound)

	err = svc.Delete(ctx, 2, msg.PublicID)
	require.ErrorIs(t, err, pkgerrors.MessageNotFound)
}

func TestDeleteMessageRemovesFromListing(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newMessageFixture(t, db, now)

	msg, err := svc.Create(ctx, 1, "owner@example.com", model.PlanFree, MessageInput{
		Title: "Ephemeral",
		Body:  "soon gone",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, msg.PublicID))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.Get(ctx, 1, msg.PublicID)
	require.ErrorIs(t, err, pkgerrors.MessageNotFound)
}
