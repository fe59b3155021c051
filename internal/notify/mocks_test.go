package notify_test

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// MockSender is a mock implementation of the Sender interface.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

// MockLocator is a mock implementation of the QueueLocator interface.
type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) AttachQueueLocation(ctx context.Context, caseID uint, chatID, messageID int64) error {
	args := m.Called(ctx, caseID, chatID, messageID)
	return args.Error(0)
}

// MockKV is a mock implementation of the debounce KV interface.
type MockKV struct {
	mock.Mock
}

func (m *MockKV) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}
