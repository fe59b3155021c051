package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/config"
	"modqueue/backend/internal/debounce"
	"modqueue/backend/internal/models"
	"modqueue/backend/internal/notify"
	"modqueue/backend/internal/sla"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testChatID int64 = -100500

func testEscalation() sla.Escalation {
	return sla.Escalation{
		CaseID:          42,
		Ref:             "appeal-42",
		SubmitterUserID: 1001,
		Status:          models.StatusOpen,
		SLADeadlineAt:   time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		EscalatedAt:     time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		EscalationLevel: 1,
	}
}

// TestNotifyEscalation_SendsOnce verifies the notice goes out when the gate
// grants the window.
func TestNotifyEscalation_SendsOnce(t *testing.T) {
	// Arrange
	ctx := context.Background()
	kv := new(MockKV)
	kv.On("SetIfAbsent", ctx, "escalation:42:1", "1", config.EscalationDebounceWindow).Return(true, nil).Once()

	sender := new(MockSender)
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 7}, nil).Once()

	svc := &notify.Service{
		Bot:              sender,
		Gate:             debounce.NewGate(kv, true),
		ModerationChatID: testChatID,
	}

	// Act
	err := svc.NotifyEscalation(ctx, testEscalation())

	// Assert
	assert.NoError(t, err)
	sender.AssertExpectations(t)
	kv.AssertExpectations(t)
}

// TestNotifyEscalation_SuppressedByGate verifies no message is sent inside
// the debounce window.
func TestNotifyEscalation_SuppressedByGate(t *testing.T) {
	ctx := context.Background()
	kv := new(MockKV)
	kv.On("SetIfAbsent", ctx, "escalation:42:1", "1", config.EscalationDebounceWindow).Return(false, nil).Once()

	sender := new(MockSender)
	svc := &notify.Service{
		Bot:              sender,
		Gate:             debounce.NewGate(kv, true),
		ModerationChatID: testChatID,
	}

	err := svc.NotifyEscalation(ctx, testEscalation())

	assert.NoError(t, err)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func testCase() *models.Case {
	return &models.Case{
		Kind:            models.KindAppeal,
		Ref:             "appeal-42",
		SubmitterUserID: 1001,
		Status:          models.StatusOpen,
	}
}

// TestPostQueueCard_AttachesSentLocation verifies the card lands in the
// moderation chat and the case records where it went.
func TestPostQueueCard_AttachesSentLocation(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 314}, nil).Once()

	locator := new(MockLocator)
	locator.On("AttachQueueLocation", ctx, uint(42), testChatID, int64(314)).Return(nil).Once()

	svc := &notify.Service{Bot: sender, Cases: locator, ModerationChatID: testChatID}
	c := testCase()
	c.ID = 42

	err := svc.PostQueueCard(ctx, c)

	assert.NoError(t, err)
	sender.AssertExpectations(t)
	locator.AssertExpectations(t)
}

// TestPostQueueCard_FailedSendStaysRetryable verifies a send failure attaches
// nothing and leaves the next attempt free to post.
func TestPostQueueCard_FailedSendStaysRetryable(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{}, errors.New("telegram: 502")).Once()
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 315}, nil).Once()

	locator := new(MockLocator)
	locator.On("AttachQueueLocation", ctx, uint(42), testChatID, int64(315)).Return(nil).Once()

	svc := &notify.Service{Bot: sender, Cases: locator, ModerationChatID: testChatID}
	c := testCase()
	c.ID = 42

	err := svc.PostQueueCard(ctx, c)
	assert.Error(t, err)
	locator.AssertNotCalled(t, "AttachQueueLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	err = svc.PostQueueCard(ctx, c)
	assert.NoError(t, err)
	sender.AssertExpectations(t)
	locator.AssertExpectations(t)
}

// TestPostQueueCard_LocationAlreadySet verifies losing the set-once race is
// not an error: the duplicate card stands, the stored location wins.
func TestPostQueueCard_LocationAlreadySet(t *testing.T) {
	ctx := context.Background()
	sender := new(MockSender)
	sender.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 316}, nil).Once()

	locator := new(MockLocator)
	locator.On("AttachQueueLocation", ctx, uint(42), testChatID, int64(316)).Return(casestore.ErrQueueLocationSet).Once()

	svc := &notify.Service{Bot: sender, Cases: locator, ModerationChatID: testChatID}
	c := testCase()
	c.ID = 42

	err := svc.PostQueueCard(ctx, c)

	assert.NoError(t, err)
	locator.AssertExpectations(t)
}

// TestDeliver_FeedbackApproved verifies the feedback.approved outbox event
// produces a chat announcement.
func TestDeliver_FeedbackApproved(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == testChatID
	})).Return(tgbotapi.Message{MessageID: 9}, nil).Once()

	svc := &notify.Service{Bot: sender, ModerationChatID: testChatID}
	entry := &models.OutboxEntry{
		EventType: "feedback.approved",
		Payload:   []byte(`{"case_id":7}`),
		DedupeKey: "feedback:7:github-issue",
	}

	err := svc.Deliver(context.Background(), entry)

	assert.NoError(t, err)
	sender.AssertExpectations(t)
}

// TestDeliver_UnknownEventType verifies unrecognized events error so the
// dispatcher retries them instead of dropping them.
func TestDeliver_UnknownEventType(t *testing.T) {
	sender := new(MockSender)
	svc := &notify.Service{Bot: sender, ModerationChatID: testChatID}

	err := svc.Deliver(context.Background(), &models.OutboxEntry{EventType: "mystery.event"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mystery.event")
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

// TestDeliver_MalformedPayload verifies a broken payload errors instead of
// announcing garbage.
func TestDeliver_MalformedPayload(t *testing.T) {
	sender := new(MockSender)
	svc := &notify.Service{Bot: sender, ModerationChatID: testChatID}

	err := svc.Deliver(context.Background(), &models.OutboxEntry{
		EventType: "feedback.approved",
		Payload:   []byte(`{broken`),
	})

	assert.Error(t, err)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}
