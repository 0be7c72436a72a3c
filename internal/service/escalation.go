package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"StillHere/internal/cache"
	"StillHere/internal/model"
	"StillHere/internal/queue"
	"StillHere/internal/repository"
	"StillHere/pkg/logger"
	"StillHere/pkg/mailer"
	"StillHere/pkg/metrics"
)

const escalationBatchSize = 500

// EscalationSummary 一次提醒/升级扫描的汇总
type EscalationSummary struct {
	Processed        int      `json:"processed"`
	RemindersSent    int      `json:"reminders_sent"`
	ContactsNotified int      `json:"contacts_notified"`
	Errors           []string `json:"errors"`
}

// EscalationService 提醒与升级状态机
// 逾期先提醒用户本人，提醒预算（档位决定）耗尽后升级：
// 给受托联系人逐一铸造核验令牌并发信，打卡行翻到 confirmed_absent
type EscalationService struct {
	checkins *repository.CheckinStore
	messages *repository.MessageStore
	contacts *repository.ContactStore
	verify   *VerificationService
	events   *EventService
	mail     mailer.Client

	now      func() time.Time
	dispatch func(model.ReminderDispatchMessage) error
	// dedupe 返回 true 表示本次提醒首次投放，false 表示已投放过
	dedupe func(ctx context.Context, userID int64, attempt int) (bool, error)
}

type EscalationOption func(*EscalationService)

// WithEscalationClock 注入时间源
func WithEscalationClock(clock func() time.Time) EscalationOption {
	return func(s *EscalationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithReminderDispatch 替换提醒投放函数，测试时注入捕获器
func WithReminderDispatch(fn func(model.ReminderDispatchMessage) error) EscalationOption {
	return func(s *EscalationService) {
		s.dispatch = fn
	}
}

// WithReminderDedupe 替换提醒去重检查，测试时关闭 redis 依赖
func WithReminderDedupe(fn func(ctx context.Context, userID int64, attempt int) (bool, error)) EscalationOption {
	return func(s *EscalationService) {
		s.dedupe = fn
	}
}

func NewEscalationService(
	db *gorm.DB,
	verify *VerificationService,
	events *EventService,
	mail mailer.Client,
	opts ...EscalationOption,
) *EscalationService {
	s := &EscalationService{
		checkins: repository.NewCheckinStore(db),
		messages: repository.NewMessageStore(db),
		contacts: repository.NewContactStore(db),
		verify:   verify,
		events:   events,
		mail:     mail,
		now:      time.Now,
		dispatch: queue.PublishReminderDispatch,
		dedupe:   redisReminderDedupe,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// redis SETNX 风格的提醒去重：标记成功即首次
func redisReminderDedupe(ctx context.Context, userID int64, attempt int) (bool, error) {
	sent, err := cache.IsReminderSent(ctx, userID, attempt)
	if err != nil {
		return false, err
	}
	if sent {
		return false, nil
	}
	if err := cache.MarkReminderSent(ctx, userID, attempt); err != nil {
		return false, err
	}
	return true, nil
}

// RunSweep 扫描全部逾期打卡并逐个提醒或升级
// 单个用户失败只记入错误列表，批处理不中断；
// 每个用户的副作用成对落地：提醒配推进，或升级配状态翻转
func (s *EscalationService) RunSweep(ctx context.Context) EscalationSummary {
	start := s.now()
	summary := EscalationSummary{Errors: []string{}}

	due, err := s.checkins.FindDue(ctx, start, escalationBatchSize)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		metrics.RecordSweep(ctx, "escalation", start, len(summary.Errors))
		return summary
	}

	for _, checkin := range due {
		summary.Processed++

		limits := model.LimitsFor(checkin.Plan)
		if checkin.Attempts < limits.MaxReminders {
			sent, err := s.remind(ctx, checkin)
			if err != nil {
				summary.Errors = append(summary.Errors,
					fmt.Sprintf("user %d: %v", checkin.UserID, err))
				continue
			}
			if sent {
				summary.RemindersSent++
			}
			continue
		}

		notified, err := s.escalate(ctx, checkin)
		if err != nil {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("user %d: %v", checkin.UserID, err))
			continue
		}
		summary.ContactsNotified += notified
	}

	metrics.RecordSweep(ctx, "escalation", start, len(summary.Errors))

	logger.Logger.Info("Escalation sweep finished",
		zap.Int("processed", summary.Processed),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("contacts_notified", summary.ContactsNotified),
		zap.Int("error_count", len(summary.Errors)),
	)

	return summary
}

// remind 提醒路径：attempts+1，next_due_at 顺延一天，状态转 pending
func (s *EscalationService) remind(ctx context.Context, checkin model.Checkin) (bool, error) {
	first, err := s.dedupe(ctx, checkin.UserID, checkin.Attempts+1)
	if err != nil {
		return false, fmt.Errorf("reminder dedupe check failed: %w", err)
	}
	if !first {
		return false, nil
	}

	now := s.now()
	advanced, err := s.checkins.AdvanceReminder(ctx, checkin.ID, checkin.Attempts, now.Add(24*time.Hour))
	if err != nil {
		return false, err
	}
	if !advanced {
		// 并发扫描抢先推进了这一行
		return false, nil
	}

	err = s.dispatch(model.ReminderDispatchMessage{
		UserID:      checkin.UserID,
		Email:       checkin.UserEmail,
		Attempt:     checkin.Attempts + 1,
		DueAt:       checkin.NextDueAt.Format(time.RFC3339),
		ScheduledAt: now.Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("failed to dispatch reminder: %w", err)
	}

	if m := metrics.Get(); m != nil {
		m.RemindersSentTotal.Add(ctx, 1)
	}
	return true, nil
}

// escalate 升级路径：状态翻转加联系人通知成对落地
func (s *EscalationService) escalate(ctx context.Context, checkin model.Checkin) (int, error) {
	contacts, err := s.resolveContacts(ctx, checkin.UserID)
	if err != nil {
		return 0, err
	}
	if len(contacts) == 0 {
		// 没有联系人就没人能核验，保持现状等用户补录，每轮都会重报
		return 0, fmt.Errorf("no trusted contacts on file")
	}

	notified := make([]string, 0, len(contacts))
	var firstErr error
	for _, contact := range contacts {
		if err := s.notifyContact(ctx, checkin.UserID, contact); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logger.Logger.Error("Failed to notify trusted contact",
				zap.Int64("user_id", checkin.UserID),
				zap.String("contact_email", contact.Email),
				zap.Error(err),
			)
			continue
		}
		notified = append(notified, contact.Email)
	}

	if len(notified) == 0 {
		if firstErr != nil {
			return 0, firstErr
		}
		return 0, fmt.Errorf("no trusted contact could be notified")
	}

	// 先铸令牌后翻状态：中途挂掉时下一轮还能重试，
	// 已持有令牌的联系人由上面的在途检查挡住重复铸造
	flipped, err := s.checkins.MarkConfirmedAbsent(ctx, checkin.ID, checkin.Attempts)
	if err != nil {
		return 0, err
	}
	if !flipped {
		// 并发扫描已经完成了升级
		return 0, nil
	}

	s.events.Append(ctx, &model.ConfirmationEvent{
		UserID: checkin.UserID,
		Type:   model.EventTrustedContactNotified,
		Detail: model.JSONB{"contacts": notified},
	})

	if m := metrics.Get(); m != nil {
		m.ContactsNotifiedTotal.Add(ctx, int64(len(notified)))
	}

	return len(notified), nil
}

// resolveContacts 两级解析：先取 checkin 模式留言绑定的联系人，再退回档案级
func (s *EscalationService) resolveContacts(ctx context.Context, userID int64) ([]model.TrustedContact, error) {
	releasable, err := s.messages.FindReleasable(ctx, userID)
	if err != nil {
		return nil, err
	}
	messageIDs := make([]int64, 0, len(releasable))
	for _, m := range releasable {
		messageIDs = append(messageIDs, m.ID)
	}
	return s.contacts.ResolveForUser(ctx, userID, messageIDs)
}

func (s *EscalationService) notifyContact(ctx context.Context, userID int64, contact model.TrustedContact) error {
	// 部分失败重试时不再给已持有有效令牌的联系人重复铸造
	outstanding, err := s.verify.HasOutstandingToken(ctx, userID, contact.Email)
	if err != nil {
		return err
	}
	if outstanding {
		return nil
	}

	link, _, err := s.verify.IssueToken(ctx, userID, contact.Email)
	if err != nil {
		return err
	}

	greeting := "Hello"
	if contact.Name != "" {
		greeting = "Hello " + contact.Name
	}
	body := fmt.Sprintf(
		"%s,\n\nSomeone who trusts you has stopped responding to our check-in reminders.\n"+
			"Please confirm or deny their absence using the link below. The link is valid for 48 hours;\n"+
			"if nobody responds, their pre-written messages will be delivered automatically.\n\n%s\n",
		greeting, link)

	_, err = s.mail.Send(ctx, mailer.Message{
		To:      contact.Email,
		Subject: "Please verify a check-in status",
		Body:    body,
	})
	return err
}
