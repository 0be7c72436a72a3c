package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"StillHere/internal/model"
	"StillHere/internal/repository"
	pkgerrors "StillHere/pkg/errors"
)

// MessageInput 留言创建/更新入参
type MessageInput struct {
	Title          string
	Body           string
	Kind           model.MessageKind
	MediaKey       string
	RecipientName  string
	RecipientEmail string

	Mode                model.DeliveryMode
	DeliverOn           *time.Time
	CheckinIntervalDays int
}

// MessageService 留言与投递规则的薄 CRUD 层
// 放行资格只看 status 和规则 mode，写入路径在这里守住枚举合法性
type MessageService struct {
	messages *repository.MessageStore
	checkin  *CheckinService
}

func NewMessageService(db *gorm.DB, checkin *CheckinService) *MessageService {
	return &MessageService{
		messages: repository.NewMessageStore(db),
		checkin:  checkin,
	}
}

func (s *MessageService) Create(
	ctx context.Context,
	userID int64,
	userEmail string,
	plan model.Plan,
	in MessageInput,
) (*model.Message, error) {
	if in.Kind == "" {
		in.Kind = model.MessageKindText
	}
	if in.Mode == "" {
		in.Mode = model.DeliveryModeCheckin
	}

	msg := &model.Message{
		PublicID:       uuid.NewString(),
		UserID:         userID,
		Title:          in.Title,
		Body:           in.Body,
		Kind:           in.Kind,
		MediaKey:       in.MediaKey,
		RecipientName:  in.RecipientName,
		RecipientEmail: in.RecipientEmail,
		Status:         model.MessageStatusDraft,
	}
	rule := &model.DeliveryRule{
		Mode:                in.Mode,
		DeliverOn:           in.DeliverOn,
		CheckinIntervalDays: in.CheckinIntervalDays,
	}

	if err := s.messages.CreateWithRule(ctx, msg, rule); err != nil {
		return nil, err
	}

	// checkin 模式的留言共享用户唯一的计时器，首条留言建立它
	if in.Mode == model.DeliveryModeCheckin {
		if _, err := s.checkin.EnsureEnrolled(ctx, userID, userEmail, plan, in.CheckinIntervalDays); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, userID int64, publicID string) (*model.Message, error) {
	return s.messages.FindByPublicID(ctx, userID, publicID)
}

func (s *MessageService) List(ctx context.Context, userID int64) ([]model.Message, error) {
	return s.messages.ListByUser(ctx, userID)
}

// UpdateDraft 只有草稿可以编辑
func (s *MessageService) UpdateDraft(ctx context.Context, userID int64, publicID string, in MessageInput) (*model.Message, error) {
	msg, err := s.messages.FindByPublicID(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if msg.Status != model.MessageStatusDraft {
		return nil, pkgerrors.MessageNotDraft
	}

	msg.Title = in.Title
	msg.Body = in.Body
	if in.Kind != "" {
		msg.Kind = in.Kind
	}
	msg.MediaKey = in.MediaKey
	msg.RecipientName = in.RecipientName
	msg.RecipientEmail = in.RecipientEmail

	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Schedule 草稿转入待投递
// 收件人地址必须就位，否则放行时只会空转报错
func (s *MessageService) Schedule(ctx context.Context, userID int64, publicID string) (*model.Message, error) {
	msg, err := s.messages.FindByPublicID(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if msg.RecipientEmail == "" {
		return nil, pkgerrors.MessageRecipientMissing
	}

	scheduled, err := s.messages.Schedule(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if !scheduled {
		return nil, pkgerrors.MessageNotDraft
	}

	msg.Status = model.MessageStatusScheduled
	return msg, nil
}

func (s *MessageService) Delete(ctx context.Context, userID int64, publicID string) error {
	msg, err := s.messages.FindByPublicID(ctx, userID, publicID)
	if err != nil {
		return err
	}
	return s.messages.Delete(ctx, userID, msg.ID)
}
