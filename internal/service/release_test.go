package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StillHere/internal/model"
	"StillHere/internal/repository"
	"StillHere/pkg/mailer"
)

func TestReleaseForDeliversScheduledMessages(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedScheduledMessage(t, db, 1, "msg-1", "one@example.com")
	seedScheduledMessage(t, db, 1, "msg-2", "two@example.com")
	// 别人的留言不动
	seedScheduledMessage(t, db, 2, "msg-3", "other@example.com")

	mock := mailer.NewMockClient()
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)), WithReleaseBaseURL("https://stillhere.test"))

	result := svc.ReleaseFor(ctx, 1)
	require.Empty(t, result.Errors)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 2, result.Sent)

	require.Equal(t, 1, mock.SentTo("one@example.com"))
	require.Equal(t, 1, mock.SentTo("two@example.com"))
	require.Equal(t, 0, mock.SentTo("other@example.com"))
}

func TestReleaseForIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	msg := seedScheduledMessage(t, db, 1, "msg-1", "one@example.com")

	mock := mailer.NewMockClient()
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)))

	first := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 1, first.Sent)

	// 已投递的留言第二轮不再入选
	second := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 0, second.Processed)
	require.Equal(t, 0, second.Sent)

	require.Equal(t, 1, mock.SentTo("one@example.com"))

	got, err := repository.NewMessageStore(db).FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusDelivered, got.Status)
	require.NotEmpty(t, got.DeliveredMessageID)
}

func TestReleaseForMissingRecipientStaysScheduled(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	msg := seedScheduledMessage(t, db, 1, "msg-1", "")

	mock := mailer.NewMockClient()
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)))

	result := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 0, result.Sent)
	require.Len(t, result.Errors, 1)
	require.Empty(t, mock.Calls)

	store := repository.NewMessageStore(db)
	got, err := store.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusScheduled, got.Status)

	// 地址补上后下一轮正常放行
	got.RecipientEmail = "fixed@example.com"
	require.NoError(t, store.Update(ctx, got))

	retry := svc.ReleaseFor(ctx, 1)
	require.Empty(t, retry.Errors)
	require.Equal(t, 1, retry.Sent)
}

func TestReleaseForMailFailureKeepsMessageScheduled(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	msg := seedScheduledMessage(t, db, 1, "msg-1", "one@example.com")

	mock := mailer.NewMockClient()
	mock.FailNext = true
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)))

	result := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 0, result.Sent)
	require.Len(t, result.Errors, 1)

	got, err := repository.NewMessageStore(db).FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusScheduled, got.Status)

	retry := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 1, retry.Sent)
}

func TestReleaseForMediaMessageSendsExpiringLink(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	msg := &model.Message{
		PublicID:       "msg-media",
		UserID:         1,
		Title:          "One last recording",
		Kind:           model.MessageKindAudio,
		MediaKey:       "audio/2026/farewell.ogg",
		RecipientEmail: "one@example.com",
		Status:         model.MessageStatusScheduled,
	}
	rule := &model.DeliveryRule{Mode: model.DeliveryModeCheckin}
	require.NoError(t, repository.NewMessageStore(db).CreateWithRule(ctx, msg, rule))

	mock := mailer.NewMockClient()
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)), WithReleaseBaseURL("https://stillhere.test"))

	result := svc.ReleaseFor(ctx, 1)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, result.Sent)

	require.Len(t, mock.Calls, 1)
	require.Equal(t, "One last recording", mock.Calls[0].Subject)
	require.Contains(t, mock.Calls[0].Body, "https://stillhere.test/v1/media/audio/2026/farewell.ogg?expires=")
}

func TestReleaseForSkipsDateModeMessages(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	deliverOn := now.Add(365 * 24 * time.Hour)
	msg := &model.Message{
		PublicID:       "msg-date",
		UserID:         1,
		Title:          "Happy birthday",
		Body:           "See you next year.",
		Kind:           model.MessageKindText,
		RecipientEmail: "one@example.com",
		Status:         model.MessageStatusScheduled,
	}
	rule := &model.DeliveryRule{Mode: model.DeliveryModeDate, DeliverOn: &deliverOn}
	require.NoError(t, repository.NewMessageStore(db).CreateWithRule(ctx, msg, rule))

	mock := mailer.NewMockClient()
	svc := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)))

	// 断联放行只碰 checkin 模式的留言
	result := svc.ReleaseFor(ctx, 1)
	require.Equal(t, 0, result.Processed)
	require.Empty(t, mock.Calls)
}
