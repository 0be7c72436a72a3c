package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"StillHere/config"
	"StillHere/internal/model"
	"StillHere/internal/repository"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/logger"
	"StillHere/pkg/metrics"
	"StillHere/utils"
)

const (
	verifyTokenBytes = 32
	sweepBatchSize   = 500
)

// Decision 受托联系人的裁决
type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionDeny    Decision = "deny"
)

// ParseDecision 校验裁决取值
func ParseDecision(raw string) (Decision, error) {
	switch Decision(raw) {
	case DecisionConfirm, DecisionDeny:
		return Decision(raw), nil
	default:
		return "", pkgerrors.DecisionInvalid
	}
}

// DecisionResult 对外返回的裁决结果
type DecisionResult struct {
	Decision Decision      `json:"decision"`
	Released ReleaseResult `json:"released"`
}

// SweepResult 过期令牌清扫的汇总
type SweepResult struct {
	Processed int      `json:"processed"`
	Released  int      `json:"released"`
	Errors    []string `json:"errors"`
}

// VerificationService 令牌签发、裁决处理和过期清扫
// used_at 从 null 到非 null 的条件翻转是唯一的并发裁判，
// 人和 sweeper 抢同一张令牌时先写者赢
type VerificationService struct {
	tokens   *repository.TokenStore
	checkins *repository.CheckinStore
	events   *EventService
	release  *ReleaseService

	now      func() time.Time
	tokenTTL time.Duration
	baseURL  string
}

type VerificationOption func(*VerificationService)

// WithVerificationClock 注入时间源
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerificationTTL 覆盖令牌有效期
func WithVerificationTTL(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

func NewVerificationService(
	db *gorm.DB,
	events *EventService,
	release *ReleaseService,
	opts ...VerificationOption,
) *VerificationService {
	s := &VerificationService{
		tokens:   repository.NewTokenStore(db),
		checkins: repository.NewCheckinStore(db),
		events:   events,
		release:  release,
		now:      time.Now,
		tokenTTL: time.Duration(config.Cfg.VerifyTokenTTLHours) * time.Hour,
		baseURL:  strings.TrimRight(config.Cfg.PublicBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken 为一个联系人铸造一次性核验令牌
// 返回带明文 secret 的链接，明文只在这里出现一次，落库的只有哈希
func (s *VerificationService) IssueToken(
	ctx context.Context,
	userID int64,
	contactEmail string,
) (string, *model.VerificationToken, error) {
	secret, err := utils.GenerateTokenSecret(verifyTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	token := &model.VerificationToken{
		UserID:       userID,
		ContactEmail: contactEmail,
		TokenHash:    utils.HashToken(secret),
		Action:       model.TokenActionVerifyStatus,
		ExpiresAt:    s.now().Add(s.tokenTTL),
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return "", nil, err
	}

	if m := metrics.Get(); m != nil {
		m.TokensIssuedTotal.Add(ctx, 1)
	}

	link := fmt.Sprintf("%s/verify-status?token=%s", s.baseURL, secret)
	return link, token, nil
}

// HasOutstandingToken 判断该联系人是否已有有效令牌在途
func (s *VerificationService) HasOutstandingToken(ctx context.Context, userID int64, contactEmail string) (bool, error) {
	return s.tokens.HasOutstanding(ctx, userID, contactEmail, s.now())
}

// Decide 处理联系人的 confirm / deny 裁决
// 失败分四类且对外可区分：token 无效(400)、已使用(409)、过期(410)、并发竞争(409)
func (s *VerificationService) Decide(
	ctx context.Context,
	rawToken string,
	decision Decision,
	ip, userAgent string,
) (*DecisionResult, error) {
	if rawToken == "" {
		return nil, pkgerrors.TokenInvalid
	}

	token, err := s.tokens.FindByHash(ctx, utils.HashToken(rawToken))
	if err != nil {
		return nil, err
	}

	now := s.now()

	if token.IsUsed() {
		return nil, pkgerrors.TokenAlreadyUsed
	}
	if token.IsExpired(now) {
		return nil, pkgerrors.TokenExpired
	}

	claimed, err := s.tokens.Claim(ctx, token.ID, now, model.TokenUsedReasonDecision, ip, userAgent)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// 另一个请求（多开的标签页，或者 sweeper）抢先翻转了 used_at
		return nil, pkgerrors.TokenConcurrentUse
	}

	metrics.AddTokensClaimed(ctx, model.TokenUsedReasonDecision, 1)

	decisionStr := string(decision)
	eventType := model.EventDecisionConfirm
	if decision == DecisionDeny {
		eventType = model.EventDecisionDeny
	}
	s.events.Append(ctx, &model.ConfirmationEvent{
		UserID:           token.UserID,
		ContactEmail:     token.ContactEmail,
		TokenID:          &token.ID,
		Type:             eventType,
		Decision:         &decisionStr,
		RequestIP:        ip,
		RequestUserAgent: userAgent,
	})

	result := &DecisionResult{Decision: decision, Released: ReleaseResult{Errors: []string{}}}

	switch decision {
	case DecisionConfirm:
		result.Released = s.release.ReleaseFor(ctx, token.UserID)
	case DecisionDeny:
		// 误报：计时器归零，外加 48 小时缓冲期再进入下一轮
		checkin, err := s.checkins.FindByUserID(ctx, token.UserID)
		if err != nil {
			return nil, err
		}
		nextDue := now.
			Add(time.Duration(checkin.IntervalDays) * 24 * time.Hour).
			Add(time.Duration(config.Cfg.DenyGraceHours) * time.Hour)
		if err := s.checkins.ResetToActive(ctx, checkin.ID, now, nextDue); err != nil {
			return nil, err
		}
	}

	logger.Logger.Info("Verification decision applied",
		zap.Int64("user_id", token.UserID),
		zap.String("decision", decisionStr),
		zap.Int("released", result.Released.Sent),
	)

	return result, nil
}

// SweepExpired 清扫逾期未决的令牌
// 沉默即确认：过期令牌被自动认领并触发放行，而不是永远挂起
func (s *VerificationService) SweepExpired(ctx context.Context) SweepResult {
	start := s.now()
	result := SweepResult{Errors: []string{}}

	expired, err := s.tokens.FindExpiredUnclaimed(ctx, start, sweepBatchSize)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		metrics.RecordSweep(ctx, "expiry", start, len(result.Errors))
		return result
	}

	for _, token := range expired {
		claimed, err := s.tokens.Claim(ctx, token.ID, s.now(), model.TokenUsedReasonExpiredAuto, "", "")
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("token %d: %v", token.ID, err))
			continue
		}
		if !claimed {
			// 人赶在最后一刻做了决定，让给他
			continue
		}

		result.Processed++
		metrics.AddTokensClaimed(ctx, model.TokenUsedReasonExpiredAuto, 1)

		tokenID := token.ID
		s.events.Append(ctx, &model.ConfirmationEvent{
			UserID:       token.UserID,
			ContactEmail: token.ContactEmail,
			TokenID:      &tokenID,
			Type:         model.EventTokenExpired,
		})

		released := s.release.ReleaseFor(ctx, token.UserID)
		result.Released += released.Sent
		result.Errors = append(result.Errors, released.Errors...)

		if released.Sent > 0 {
			s.events.Append(ctx, &model.ConfirmationEvent{
				UserID:       token.UserID,
				ContactEmail: token.ContactEmail,
				TokenID:      &tokenID,
				Type:         model.EventMessagesReleasedAuto,
				Detail:       model.JSONB{"released": released.Sent},
			})
		}
	}

	metrics.RecordSweep(ctx, "expiry", start, len(result.Errors))

	logger.Logger.Info("Expiry sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("released", result.Released),
		zap.Int("error_count", len(result.Errors)),
	)

	return result
}
