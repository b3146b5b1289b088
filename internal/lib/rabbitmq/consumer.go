package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/kuitter-gate/internal/lib/sl"
)

// ErrReject обработчик отказывается от сообщения навсегда: оно не возвращается в очередь.
var ErrReject = errors.New("reject message")

// Consumer часть *amqp.Channel, нужная для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Handler обрабатывает тело сообщения.
type Handler func(ctx context.Context, body []byte) error

// ConsumeMessages читает очередь, пока ctx не отменён или канал доставок не закрыт,
// обрабатывая не больше workers сообщений одновременно, и дожидается начатых обработчиков.
// Ошибка обработчика возвращает сообщение в очередь, кроме ErrReject.
func ConsumeMessages(ctx context.Context, ch Consumer, queueName string, workers int, log *slog.Logger, handler Handler) error {
	const op = "rabbitmq.ConsumeMessages"
	log = log.With(sl.Op(op), slog.String("queue", queueName))

	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				log.Info("delivery channel closed")
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Warn("failed to nack message", sl.Err(err))
				}
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(ctx, d, handler, log)
			}(d)
		case <-ctx.Done():
			return nil
		}
	}
}

func settle(ctx context.Context, d amqp.Delivery, handler Handler, log *slog.Logger) {
	err := handler(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			log.Warn("failed to ack message", sl.Err(ackErr))
		}
		return
	}

	requeue := !errors.Is(err, ErrReject)
	log.Warn("message handling failed", slog.String("message_id", d.MessageId), slog.Bool("requeue", requeue), sl.Err(err))
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		log.Warn("failed to nack message", sl.Err(nackErr))
	}
}
