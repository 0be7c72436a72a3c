package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"StillHere/internal/model"
	"StillHere/internal/repository"
)

// 单连接内存库，所有会话落在同一个连接上，省掉 sqlite 的锁竞争
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&model.Checkin{},
		&model.Message{},
		&model.DeliveryRule{},
		&model.TrustedContact{},
		&model.VerificationToken{},
		&model.ConfirmationEvent{},
	))
	return db
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// 测试里事件只落库，不上事件总线
func newTestEvents(db *gorm.DB) *EventService {
	return NewEventService(db, WithEventPublisher(nil))
}

func seedCheckin(t *testing.T, db *gorm.DB, c *model.Checkin) *model.Checkin {
	t.Helper()
	if c.UserEmail == "" {
		c.UserEmail = "owner@example.com"
	}
	if c.Plan == "" {
		c.Plan = model.PlanFree
	}
	if c.IntervalDays == 0 {
		c.IntervalDays = 30
	}
	require.NoError(t, repository.NewCheckinStore(db).Create(context.Background(), c))
	return c
}

func seedScheduledMessage(t *testing.T, db *gorm.DB, userID int64, publicID, recipient string) *model.Message {
	t.Helper()
	msg := &model.Message{
		PublicID:       publicID,
		UserID:         userID,
		Title:          "Goodbye",
		Body:           "Some words I wanted you to have.",
		Kind:           model.MessageKindText,
		RecipientName:  "Jamie",
		RecipientEmail: recipient,
		Status:         model.MessageStatusScheduled,
	}
	rule := &model.DeliveryRule{Mode: model.DeliveryModeCheckin}
	require.NoError(t, repository.NewMessageStore(db).CreateWithRule(context.Background(), msg, rule))
	return msg
}

func seedContact(t *testing.T, db *gorm.DB, userID int64, email string, messageID *int64) *model.TrustedContact {
	t.Helper()
	c := &model.TrustedContact{
		UserID:    userID,
		MessageID: messageID,
		Name:      "Alex",
		Email:     email,
	}
	require.NoError(t, repository.NewContactStore(db).Create(context.Background(), c))
	return c
}

func countEvents(t *testing.T, db *gorm.DB, userID int64, eventType model.EventType) int64 {
	t.Helper()
	n, err := repository.NewEventStore(db).CountByType(context.Background(), userID, eventType)
	require.NoError(t, err)
	return n
}

// dedupe 直通版本，测试里默认每次提醒都是首投
func alwaysFirstDedupe(context.Context, int64, int) (bool, error) {
	return true, nil
}
