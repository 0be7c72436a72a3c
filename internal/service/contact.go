package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"StillHere/internal/model"
	"StillHere/internal/repository"
	pkgerrors "StillHere/pkg/errors"
)

// 每个用户最多登记的联系人数量
const maxContactsPerUser = 10

// ContactService 受托联系人的薄 CRUD 层
type ContactService struct {
	contacts *repository.ContactStore
	messages *repository.MessageStore
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{
		contacts: repository.NewContactStore(db),
		messages: repository.NewMessageStore(db),
	}
}

// Add 登记联系人，messagePublicID 为空表示档案级兜底联系人
func (s *ContactService) Add(
	ctx context.Context,
	userID int64,
	name, email, messagePublicID string,
) (*model.TrustedContact, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.ContactEmailInvalid
	}

	count, err := s.contacts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= maxContactsPerUser {
		return nil, pkgerrors.ContactLimitReached
	}

	contact := &model.TrustedContact{
		UserID: userID,
		Name:   name,
		Email:  email,
	}

	if messagePublicID != "" {
		msg, err := s.messages.FindByPublicID(ctx, userID, messagePublicID)
		if err != nil {
			return nil, err
		}
		contact.MessageID = &msg.ID
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, userID int64) ([]model.TrustedContact, error) {
	return s.contacts.ListByUser(ctx, userID)
}

func (s *ContactService) Remove(ctx context.Context, userID, contactID int64) error {
	return s.contacts.Delete(ctx, userID, contactID)
}
