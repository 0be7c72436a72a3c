package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StillHere/internal/model"
	pkgerrors "StillHere/pkg/errors"
)

func TestEnsureEnrolledCreatesTimerOnce(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	svc := NewCheckinService(db, newTestEvents(db), WithCheckinClock(fixedClock(now)))

	created, err := svc.EnsureEnrolled(ctx, 1, "owner@example.com", model.PlanFree, 0)
	require.NoError(t, err)
	require.Equal(t, model.CheckinStatusActive, created.Status)
	require.Equal(t, 30, created.IntervalDays)
	require.WithinDuration(t, now.Add(30*24*time.Hour), created.NextDueAt, time.Second)

	// 再次报名返回同一条记录
	again, err := svc.EnsureEnrolled(ctx, 1, "owner@example.com", model.PlanFree, 0)
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&model.Checkin{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnsureEnrolledRejectsIntervalOutsidePlan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewCheckinService(db, newTestEvents(db))

	_, err := svc.EnsureEnrolled(ctx, 1, "owner@example.com", model.PlanFree, 60)
	require.ErrorIs(t, err, pkgerrors.CheckinIntervalInvalid)

	// pro 档放得开
	_, err = svc.EnsureEnrolled(ctx, 2, "pro@example.com", model.PlanPro, 90)
	require.NoError(t, err)
}

func TestConfirmResetsTimer(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:       1,
		Status:       model.CheckinStatusPending,
		NextDueAt:    now.Add(-time.Hour),
		Attempts:     2,
		IntervalDays: 30,
	})

	svc := NewCheckinService(db, newTestEvents(db), WithCheckinClock(fixedClock(now)))

	got, err := svc.Confirm(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.CheckinStatusActive, got.Status)
	require.Equal(t, 0, got.Attempts)
	require.WithinDuration(t, now.Add(30*24*time.Hour), got.NextDueAt, time.Second)

	require.EqualValues(t, 1, countEvents(t, db, 1, model.EventCheckinConfirmed))
}

func TestConfirmUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckinService(db, newTestEvents(db))

	_, err := svc.Confirm(context.Background(), 404)
	require.ErrorIs(t, err, pkgerrors.CheckinNotFound)
}

func TestUpdateSettingsReanchorsFromLastConfirmation(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	lastConfirmed := now.Add(-10 * 24 * time.Hour)
	seedCheckin(t, db, &model.Checkin{
		UserID:          1,
		Status:          model.CheckinStatusActive,
		LastConfirmedAt: &lastConfirmed,
		NextDueAt:       lastConfirmed.Add(30 * 24 * time.Hour),
		IntervalDays:    30,
		Plan:            model.PlanPro,
	})

	svc := NewCheckinService(db, newTestEvents(db), WithCheckinClock(fixedClock(now)))

	got, err := svc.UpdateSettings(ctx, 1, 60)
	require.NoError(t, err)
	require.Equal(t, 60, got.IntervalDays)
	require.WithinDuration(t, lastConfirmed.Add(60*24*time.Hour), got.NextDueAt, time.Second)
}

func TestUpdateSettingsPlanGated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedCheckin(t, db, &model.Checkin{
		UserID:    1,
		Status:    model.CheckinStatusActive,
		NextDueAt: time.Now().Add(24 * time.Hour),
		Plan:      model.PlanFree,
	})

	svc := NewCheckinService(db, newTestEvents(db))

	_, err := svc.UpdateSettings(ctx, 1, 60)
	require.ErrorIs(t, err, pkgerrors.CheckinIntervalInvalid)
}

func TestUpdateSettingsNeverSchedulesInThePast(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// 上次确认太久远，按旧锚点重算会落到过去
	lastConfirmed := now.Add(-100 * 24 * time.Hour)
	seedCheckin(t, db, &model.Checkin{
		UserID:          1,
		Status:          model.CheckinStatusActive,
		LastConfirmedAt: &lastConfirmed,
		NextDueAt:       now.Add(24 * time.Hour),
		IntervalDays:    90,
		Plan:            model.PlanPro,
	})

	svc := NewCheckinService(db, newTestEvents(db), WithCheckinClock(fixedClock(now)))

	got, err := svc.UpdateSettings(ctx, 1, 30)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(30*24*time.Hour), got.NextDueAt, time.Second)
}
