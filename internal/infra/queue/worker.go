package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type SyncRequestPayload struct {
	Origin      string    `json:"origin"`
	RequestedAt time.Time `json:"requested_at"`
}

// SyncRunner runs one sync pass and reports the counts.
type SyncRunner interface {
	Run(ctx context.Context) (synced, failed int, err error)
}

type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Runner  SyncRunner
}

func NewWorker(ch Consumer, runner SyncRunner) *Worker {
	return &Worker{
		Channel: ch,
		Runner:  runner,
	}
}

// Start consumes sync requests until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("Sync request worker waiting", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sync request worker stopping")
			return nil
		case d, ok := <-msgs:
			if !ok {
				slog.Warn("Sync request channel closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var payload SyncRequestPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		slog.Error("Invalid sync request", "error", err)
		// malformed; dead-letter it instead of blocking the queue
		_ = d.Nack(false, false)
		return
	}

	slog.Info("📥 Sync requested", "origin", payload.Origin)

	synced, failed, err := w.Runner.Run(ctx)
	if err != nil {
		slog.Error("Sync request failed", "origin", payload.Origin, "error", err)
		_ = d.Nack(false, false)
		return
	}

	slog.Info("Sync request handled", "origin", payload.Origin, "synced", synced, "failed", failed)
	_ = d.Ack(false)
}
