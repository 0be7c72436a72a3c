package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"StillHere/internal/model"
	"StillHere/internal/repository"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/logger"
)

// CheckinService 用户侧的存活计时器操作
type CheckinService struct {
	checkins *repository.CheckinStore
	events   *EventService
	now      func() time.Time
}

type CheckinOption func(*CheckinService)

// WithCheckinClock 注入时间源
func WithCheckinClock(clock func() time.Time) CheckinOption {
	return func(s *CheckinService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func NewCheckinService(db *gorm.DB, events *EventService, opts ...CheckinOption) *CheckinService {
	s := &CheckinService{
		checkins: repository.NewCheckinStore(db),
		events:   events,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureEnrolled 用户首次选择 checkin 投递模式时建立计时器
// 已存在则直接返回现有记录
func (s *CheckinService) EnsureEnrolled(
	ctx context.Context,
	userID int64,
	userEmail string,
	plan model.Plan,
	intervalDays int,
) (*model.Checkin, error) {
	existing, err := s.checkins.FindByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pkgerrors.CheckinNotFound) {
		return nil, err
	}

	limits := model.LimitsFor(plan)
	if intervalDays == 0 {
		intervalDays = limits.IntervalDays[0]
	}
	if !limits.AllowsInterval(intervalDays) {
		return nil, pkgerrors.CheckinIntervalInvalid
	}

	now := s.now()
	checkin := &model.Checkin{
		UserID:          userID,
		UserEmail:       userEmail,
		Status:          model.CheckinStatusActive,
		LastConfirmedAt: &now,
		NextDueAt:       now.Add(time.Duration(intervalDays) * 24 * time.Hour),
		IntervalDays:    intervalDays,
		Plan:            plan,
	}
	if err := s.checkins.Create(ctx, checkin); err != nil {
		return nil, err
	}

	logger.Logger.Info("Check-in timer enrolled",
		zap.Int64("user_id", userID),
		zap.Int("interval_days", intervalDays),
		zap.String("plan", string(plan)),
	)
	return checkin, nil
}

// Confirm 用户确认存活：attempts 归零、status 回 active、计时顺延一个周期
func (s *CheckinService) Confirm(ctx context.Context, userID int64) (*model.Checkin, error) {
	checkin, err := s.checkins.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	nextDue := now.Add(time.Duration(checkin.IntervalDays) * 24 * time.Hour)
	if err := s.checkins.ResetToActive(ctx, checkin.ID, now, nextDue); err != nil {
		return nil, err
	}

	s.events.Append(ctx, &model.ConfirmationEvent{
		UserID: userID,
		Type:   model.EventCheckinConfirmed,
	})

	checkin.Status = model.CheckinStatusActive
	checkin.Attempts = 0
	checkin.LastConfirmedAt = &now
	checkin.NextDueAt = nextDue
	return checkin, nil
}

// Status 查询当前计时器状态
func (s *CheckinService) Status(ctx context.Context, userID int64) (*model.Checkin, error) {
	return s.checkins.FindByUserID(ctx, userID)
}

// UpdateSettings 调整打卡间隔，档位限制 30/60/90
func (s *CheckinService) UpdateSettings(ctx context.Context, userID int64, intervalDays int) (*model.Checkin, error) {
	checkin, err := s.checkins.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !model.LimitsFor(checkin.Plan).AllowsInterval(intervalDays) {
		return nil, pkgerrors.CheckinIntervalInvalid
	}

	// 从上次确认点按新间隔重算，没有确认过就从现在起算
	base := s.now()
	if checkin.LastConfirmedAt != nil {
		base = *checkin.LastConfirmedAt
	}
	nextDue := base.Add(time.Duration(intervalDays) * 24 * time.Hour)
	if nextDue.Before(s.now()) {
		nextDue = s.now().Add(time.Duration(intervalDays) * 24 * time.Hour)
	}

	if err := s.checkins.UpdateSettings(ctx, checkin.ID, intervalDays, nextDue); err != nil {
		return nil, err
	}

	checkin.IntervalDays = intervalDays
	checkin.NextDueAt = nextDue
	return checkin, nil
}
