// Package events публикует доменные события гейта (профиль обновлён, онбординг
// пройден, подписка активирована, выход из аккаунта) в RabbitMQ.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// Publisher публикует событие.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// New создаёт событие с новым идентификатором и текущим временем.
func New(eventType models.EventType, userID string, payload map[string]any) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Channel канал публикации RabbitMQ.
type Channel = rabbitmq.Channel

// AMQPPublisher публикует события в exchange; routing key — тип события.
type AMQPPublisher struct {
	ch       Channel
	exchange string
	log      *slog.Logger
}

// NewAMQPPublisher создаёт публикатор поверх канала.
func NewAMQPPublisher(ch Channel, exchange string, log *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, log: log}
}

// Publish сериализует событие в JSON и отправляет его как persistent-сообщение.
func (p *AMQPPublisher) Publish(ctx context.Context, event models.Event) error {
	const op = "events.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, string(event.Type), event.ID, event.OccurredAt, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("event published", slog.String("type", string(event.Type)), slog.String("id", event.ID))
	return nil
}

// Discard отбрасывает события. Используется клиентом и при пустом адресе RabbitMQ.
type Discard struct{}

// Publish ничего не делает.
func (Discard) Publish(context.Context, models.Event) error { return nil }

// Emit публикует событие после успешной записи. Ошибка публикации только логируется.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, event models.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		log.Warn("failed to publish event", slog.String("type", string(event.Type)), sl.Err(err))
	}
}
