package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"StillHere/internal/model"
	"StillHere/internal/repository"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/mailer"
)

func newVerificationFixture(t *testing.T, db *gorm.DB, now time.Time, mock *mailer.MockClient) *VerificationService {
	t.Helper()

	events := newTestEvents(db)
	release := NewReleaseService(db, mock, WithReleaseClock(fixedClock(now)), WithReleaseBaseURL("https://stillhere.test"))
	return NewVerificationService(db, events, release,
		WithVerificationClock(fixedClock(now)),
		WithVerificationTTL(48*time.Hour),
	)
}

func rawTokenFromLink(t *testing.T, link string) string {
	t.Helper()
	_, raw, found := strings.Cut(link, "token=")
	require.True(t, found)
	return raw
}

func TestIssueTokenStoresOnlyHash(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	svc := newVerificationFixture(t, db, now, mailer.NewMockClient())

	link, token, err := svc.IssueToken(context.Background(), 1, "contact@example.com")
	require.NoError(t, err)

	raw := rawTokenFromLink(t, link)
	require.NotEmpty(t, raw)
	require.NotContains(t, token.TokenHash, raw)
	require.WithinDuration(t, now.Add(48*time.Hour), token.ExpiresAt, time.Second)

	outstanding, err := svc.HasOutstandingToken(context.Background(), 1, "contact@example.com")
	require.NoError(t, err)
	require.True(t, outstanding)
}

func TestDecideConfirmReleasesMessages(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:    1,
		Status:    model.CheckinStatusConfirmedAbsent,
		NextDueAt: now.Add(-72 * time.Hour),
		Attempts:  3,
	})
	msg := seedScheduledMessage(t, db, 1, "msg-1", "recipient@example.com")

	mock := mailer.NewMockClient()
	svc := newVerificationFixture(t, db, now, mock)

	link, _, err := svc.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)

	result, err := svc.Decide(ctx, rawTokenFromLink(t, link), DecisionConfirm, "203.0.113.7", "curl/8.0")
	require.NoError(t, err)
	require.Equal(t, DecisionConfirm, result.Decision)
	require.Equal(t, 1, result.Released.Sent)

	require.Equal(t, 1, mock.SentTo("recipient@example.com"))

	got, err := repository.NewMessageStore(db).FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)

	require.EqualValues(t, 1, countEvents(t, db, 1, model.EventDecisionConfirm))

	// 令牌已被认领，留有请求指纹
	var token model.VerificationToken
	require.NoError(t, db.First(&token).Error)
	require.NotNil(t, token.UsedAt)
	require.Equal(t, model.TokenUsedReasonDecision, token.UsedReason)
	require.Equal(t, "203.0.113.7", token.UsedIP)
}

func TestDecideDenyResetsTimerWithGrace(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:       1,
		Status:       model.CheckinStatusConfirmedAbsent,
		NextDueAt:    now.Add(-72 * time.Hour),
		Attempts:     3,
		IntervalDays: 30,
	})
	seedScheduledMessage(t, db, 1, "msg-1", "recipient@example.com")

	mock := mailer.NewMockClient()
	svc := newVerificationFixture(t, db, now, mock)

	link, _, err := svc.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)

	result, err := svc.Decide(ctx, rawTokenFromLink(t, link), DecisionDeny, "", "")
	require.NoError(t, err)
	require.Equal(t, DecisionDeny, result.Decision)
	require.Equal(t, 0, result.Released.Sent)

	// 否认不放行任何留言
	require.Empty(t, mock.Calls)

	// 计时器归零，下个到期点包含 48 小时缓冲
	got, err := repository.NewCheckinStore(db).FindByUserID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.CheckinStatusActive, got.Status)
	require.Equal(t, 0, got.Attempts)
	require.WithinDuration(t, now.Add(30*24*time.Hour).Add(48*time.Hour), got.NextDueAt, time.Second)

	require.EqualValues(t, 1, countEvents(t, db, 1, model.EventDecisionDeny))
}

func TestDecideRejectsBadTokens(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	svc := newVerificationFixture(t, db, now, mailer.NewMockClient())

	_, err := svc.Decide(ctx, "", DecisionConfirm, "", "")
	require.ErrorIs(t, err, pkgerrors.TokenInvalid)

	_, err = svc.Decide(ctx, "no-such-token", DecisionConfirm, "", "")
	require.ErrorIs(t, err, pkgerrors.TokenInvalid)
}

func TestDecideSecondUseConflicts(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:    1,
		Status:    model.CheckinStatusConfirmedAbsent,
		NextDueAt: now.Add(-time.Hour),
	})

	svc := newVerificationFixture(t, db, now, mailer.NewMockClient())
	link, _, err := svc.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)
	raw := rawTokenFromLink(t, link)

	_, err = svc.Decide(ctx, raw, DecisionConfirm, "", "")
	require.NoError(t, err)

	_, err = svc.Decide(ctx, raw, DecisionConfirm, "", "")
	require.ErrorIs(t, err, pkgerrors.TokenAlreadyUsed)
}

func TestDecideExpiredTokenGone(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := newVerificationFixture(t, db, now, mailer.NewMockClient())
	link, _, err := svc.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)

	// 49 小时后才点开链接
	late := NewVerificationService(db, newTestEvents(db),
		NewReleaseService(db, mailer.NewMockClient(), WithReleaseClock(fixedClock(now))),
		WithVerificationClock(fixedClock(now.Add(49*time.Hour))),
	)
	_, err = late.Decide(ctx, rawTokenFromLink(t, link), DecisionConfirm, "", "")
	require.ErrorIs(t, err, pkgerrors.TokenExpired)
}

func TestDecideConcurrentSingleWinner(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:    1,
		Status:    model.CheckinStatusConfirmedAbsent,
		NextDueAt: now.Add(-time.Hour),
	})
	seedScheduledMessage(t, db, 1, "msg-1", "recipient@example.com")

	mock := mailer.NewMockClient()
	svc := newVerificationFixture(t, db, now, mock)

	link, _, err := svc.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)
	raw := rawTokenFromLink(t, link)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Decide(ctx, raw, DecisionConfirm, "", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			// 输家只允许这两种结果
			if err != pkgerrors.TokenAlreadyUsed && err != pkgerrors.TokenConcurrentUse {
				t.Errorf("unexpected decide error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	// 留言至多投递一次
	require.Equal(t, 1, mock.SentTo("recipient@example.com"))
}

func TestSweepExpiredClaimsAndReleases(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:    1,
		Status:    model.CheckinStatusConfirmedAbsent,
		NextDueAt: now.Add(-96 * time.Hour),
	})
	msg := seedScheduledMessage(t, db, 1, "msg-1", "recipient@example.com")

	mock := mailer.NewMockClient()
	issuer := newVerificationFixture(t, db, now.Add(-50*time.Hour), mock)
	_, _, err := issuer.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)

	// 48 小时有效期已过，沉默即确认
	sweeper := newVerificationFixture(t, db, now, mock)
	result := sweeper.SweepExpired(ctx)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Released)

	got, err := repository.NewMessageStore(db).FindByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, model.MessageStatusDelivered, got.Status)

	var token model.VerificationToken
	require.NoError(t, db.First(&token).Error)
	require.NotNil(t, token.UsedAt)
	require.Equal(t, model.TokenUsedReasonExpiredAuto, token.UsedReason)

	require.EqualValues(t, 1, countEvents(t, db, 1, model.EventTokenExpired))
	require.EqualValues(t, 1, countEvents(t, db, 1, model.EventMessagesReleasedAuto))
}

func TestSweepExpiredIgnoresDecidedTokens(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:       1,
		Status:       model.CheckinStatusConfirmedAbsent,
		NextDueAt:    now.Add(-96 * time.Hour),
		IntervalDays: 30,
	})

	mock := mailer.NewMockClient()
	issuer := newVerificationFixture(t, db, now.Add(-50*time.Hour), mock)
	link, _, err := issuer.IssueToken(ctx, 1, "contact@example.com")
	require.NoError(t, err)

	// 联系人赶在过期前做了决定
	_, err = issuer.Decide(ctx, rawTokenFromLink(t, link), DecisionDeny, "", "")
	require.NoError(t, err)

	sweeper := newVerificationFixture(t, db, now, mock)
	result := sweeper.SweepExpired(ctx)
	require.Equal(t, 0, result.Processed)
	require.Equal(t, 0, result.Released)
}

func TestParseDecision(t *testing.T) {
	got, err := ParseDecision("confirm")
	require.NoError(t, err)
	require.Equal(t, DecisionConfirm, got)

	got, err = ParseDecision("deny")
	require.NoError(t, err)
	require.Equal(t, DecisionDeny, got)

	_, err = ParseDecision("maybe")
	require.ErrorIs(t, err, pkgerrors.DecisionInvalid)
}
