package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncEventPayload is published once per user a sync run has settled.
type SyncEventPayload struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	CRMID      string    `json:"crm_id,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is the slice of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishSyncEvent(ctx context.Context, payload SyncEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode sync event: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		eventRoutingKey(payload.Status),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    payload.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish sync event: %w", err)
	}

	return nil
}

// RequestSync asks whichever worker consumes the request queue to run a sync.
func (p *RabbitMQProducer) RequestSync(ctx context.Context, origin string) error {
	body, err := json.Marshal(SyncRequestPayload{Origin: origin, RequestedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode sync request: %w", err)
	}

	return p.Ch.PublishWithContext(ctx, ExchangeName, RequestRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

func eventRoutingKey(status string) string {
	if status == "synced" {
		return SyncedRoutingKey
	}
	return FailedRoutingKey
}
