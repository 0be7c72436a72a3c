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
	"StillHere/pkg/mailer"
	"StillHere/pkg/metrics"
	pkgerrors "StillHere/pkg/errors"
	"StillHere/pkg/logger"
)

// ReleaseResult 一次放行的汇总
type ReleaseResult struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Errors    []string `json:"errors"`
}

// ReleaseService 放行引擎
// 对判定缺席的用户，把所有 checkin 模式的待投递留言逐条投出，
// 每条至多一次：发送前重读状态，发送后条件翻转 scheduled → delivered
type ReleaseService struct {
	messages *repository.MessageStore
	mail     mailer.Client
	now      func() time.Time

	baseURL      string
	mediaLinkTTL time.Duration
}

type ReleaseOption func(*ReleaseService)

// WithReleaseClock 注入时间源
func WithReleaseClock(clock func() time.Time) ReleaseOption {
	return func(s *ReleaseService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithReleaseBaseURL 覆盖媒体链接的基础地址
func WithReleaseBaseURL(url string) ReleaseOption {
	return func(s *ReleaseService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

func NewReleaseService(db *gorm.DB, mail mailer.Client, opts ...ReleaseOption) *ReleaseService {
	s := &ReleaseService{
		messages:     repository.NewMessageStore(db),
		mail:         mail,
		now:          time.Now,
		baseURL:      strings.TrimRight(config.Cfg.PublicBaseURL, "/"),
		mediaLinkTTL: time.Duration(config.Cfg.MediaLinkTTLHours) * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReleaseFor 放行指定用户的全部待投递留言
// 单条失败记入错误列表并继续，留言保持 scheduled 等下次重试
func (s *ReleaseService) ReleaseFor(ctx context.Context, userID int64) ReleaseResult {
	result := ReleaseResult{Errors: []string{}}

	candidates, err := s.messages.FindReleasable(ctx, userID)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, candidate := range candidates {
		result.Processed++

		if err := s.releaseOne(ctx, candidate.ID); err != nil {
			if err == errSkippedNotScheduled {
				// 并发放行已经处理过这条，不算错误
				result.Processed--
				continue
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("message %s: %v", candidate.PublicID, err))
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 {
		if m := metrics.Get(); m != nil {
			m.MessagesReleasedTotal.Add(ctx, int64(result.Sent))
		}
	}

	logger.Logger.Info("Release run finished",
		zap.Int64("user_id", userID),
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("error_count", len(result.Errors)),
	)

	return result
}

var errSkippedNotScheduled = fmt.Errorf("message no longer scheduled")

func (s *ReleaseService) releaseOne(ctx context.Context, id int64) error {
	// 发送前重读，挡住并发放行撞同一条留言的窗口
	msg, err := s.messages.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.Status != model.MessageStatusScheduled {
		return errSkippedNotScheduled
	}

	if msg.RecipientEmail == "" {
		// 留在 scheduled，等配置修好后的下一轮
		return pkgerrors.MessageRecipientMissing
	}

	body := s.renderBody(msg)

	subject := msg.Title
	if subject == "" {
		subject = "A message was left for you"
	}

	channelID, err := s.mail.Send(ctx, mailer.Message{
		To:      msg.RecipientEmail,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("notifier send failed: %w", err)
	}

	flipped, err := s.messages.MarkDelivered(ctx, msg.ID, s.now(), channelID)
	if err != nil {
		return err
	}
	if !flipped {
		// 已被并发流程翻转，邮件重复发出但状态一致
		logger.Logger.Warn("Message already delivered by concurrent release",
			zap.String("public_id", msg.PublicID),
		)
		return errSkippedNotScheduled
	}

	logger.Logger.Info("Message released",
		zap.String("public_id", msg.PublicID),
		zap.String("kind", string(msg.Kind)),
		zap.String("channel_message_id", channelID),
	)
	return nil
}

// renderBody 文本内联，音视频给一个限时下载链接
func (s *ReleaseService) renderBody(msg *model.Message) string {
	greeting := "Hello"
	if msg.RecipientName != "" {
		greeting = "Hello " + msg.RecipientName
	}

	switch msg.Kind {
	case model.MessageKindAudio, model.MessageKindVideo:
		expiresAt := s.now().Add(s.mediaLinkTTL)
		link := fmt.Sprintf("%s/v1/media/%s?expires=%d",
			s.baseURL, msg.MediaKey, expiresAt.Unix())
		return fmt.Sprintf("%s,\n\nA %s message was left for you: %s\n\nThe link expires at %s.\n",
			greeting, msg.Kind, link, expiresAt.Format(time.RFC1123))
	default:
		return fmt.Sprintf("%s,\n\n%s\n", greeting, msg.Body)
	}
}
