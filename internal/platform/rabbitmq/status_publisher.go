package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"clonehub/internal/model"
)

// StatusPublisher queues document status events for the status worker.
type StatusPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewStatusPublisher(conn *amqp.Connection, queueName string) *StatusPublisher {
	return &StatusPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *StatusPublisher) PublishStatus(ctx context.Context, event model.DocumentStatusEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.DocumentID,
			Timestamp:    event.ReportedAt,
		},
	); err != nil {
		return fmt.Errorf("publish status event failed: %w", err)
	}
	return nil
}
