// Package notify posts moderator-facing messages into the moderation chat:
// queue cards for new cases, escalation notices, and delivered outbox
// events. It is the messaging collaborator the core services only know
// through interfaces.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/config"
	"modqueue/backend/internal/debounce"
	"modqueue/backend/internal/models"
	"modqueue/backend/internal/outbox"
	"modqueue/backend/internal/sla"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Telegram client the service uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// QueueLocator records where a case's moderator card was posted. The case
// store implements it with a set-once update.
type QueueLocator interface {
	AttachQueueLocation(ctx context.Context, caseID uint, chatID, messageID int64) error
}

// Service posts into the moderation chat and records queue locations.
type Service struct {
	Bot              Sender
	Cases            QueueLocator
	Gate             *debounce.Gate
	ModerationChatID int64
}

// NewService creates the notifier over an authorized bot client.
func NewService(token string, cases QueueLocator, gate *debounce.Gate, moderationChatID int64) (*Service, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("INFO: Authorized on account %s", bot.Self.UserName)

	return &Service{
		Bot:              bot,
		Cases:            cases,
		Gate:             gate,
		ModerationChatID: moderationChatID,
	}, nil
}

// PostQueueCard surfaces a newly submitted case in the moderation chat and
// attaches the resulting queue location to the case. Duplicate posts are
// prevented by the set-once location, not the debounce gate: a failed send
// must stay retryable, since queue surfacing drives the attach.
func (s *Service) PostQueueCard(ctx context.Context, c *models.Case) error {
	msg := tgbotapi.NewMessage(s.ModerationChatID, RenderQueueCard(c))
	sent, err := s.Bot.Send(msg)
	if err != nil {
		return fmt.Errorf("queue card send failed: %w", err)
	}

	err = s.Cases.AttachQueueLocation(ctx, c.ID, s.ModerationChatID, int64(sent.MessageID))
	if err == casestore.ErrQueueLocationSet {
		// Another replica posted first; the duplicate card stands, the
		// stored location stays the original.
		return nil
	}
	return err
}

// NotifyEscalation implements sla.EscalationSink. Debounced per case and
// escalation level so replica races or quick re-scans cannot spam the chat.
func (s *Service) NotifyEscalation(ctx context.Context, esc sla.Escalation) error {
	subject := fmt.Sprintf("%d:%d", esc.CaseID, esc.EscalationLevel)
	if !s.Gate.Acquire(ctx, "escalation", subject, config.EscalationDebounceWindow) {
		return nil
	}

	msg := tgbotapi.NewMessage(s.ModerationChatID, RenderEscalation(esc))
	if _, err := s.Bot.Send(msg); err != nil {
		return fmt.Errorf("escalation notice send failed: %w", err)
	}
	return nil
}

// Deliver implements outbox.Deliverer. Unknown event types error so the
// entry retries instead of being silently dropped.
func (s *Service) Deliver(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.EventType {
	case outbox.EventFeedbackApproved:
		var payload struct {
			CaseID uint `json:"case_id"`
		}
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return fmt.Errorf("outbox payload has no valid case_id: %w", err)
		}
		text := fmt.Sprintf("Feedback #%d approved, external issue requested (event %s)", payload.CaseID, entry.DedupeKey)
		if _, err := s.Bot.Send(tgbotapi.NewMessage(s.ModerationChatID, text)); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported outbox event type: %s", entry.EventType)
	}
}
