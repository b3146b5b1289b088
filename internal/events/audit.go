package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
)

// AuditHandler пишет в лог каждое событие из rabbitmq.AuditQueue.
// Нечитаемое сообщение отклоняется без возврата в очередь.
func AuditHandler(log *slog.Logger) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		const op = "events.AuditHandler"
		var event models.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrReject, err)
		}
		if event.Type == "" {
			return fmt.Errorf("%s: %w: event without type", op, rabbitmq.ErrReject)
		}
		log.InfoContext(ctx, "domain event",
			slog.String("id", event.ID),
			slog.String("type", string(event.Type)),
			slog.String("user_id", event.UserID),
			slog.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
