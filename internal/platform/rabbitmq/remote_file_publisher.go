package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReleaseMessage asks the cleanup worker to delete a remote file.
type ReleaseMessage struct {
	Name string `json:"name"`
}

// RemoteFilePublisher enqueues remote file names for deletion.
type RemoteFilePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRemoteFilePublisher(conn *amqp.Connection, queueName string) *RemoteFilePublisher {
	return &RemoteFilePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RemoteFilePublisher) Release(ctx context.Context, name string) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(ReleaseMessage{Name: name})
	if err != nil {
		return fmt.Errorf("marshal release payload failed: %w", err)
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
		},
	); err != nil {
		return fmt.Errorf("publish release message failed: %w", err)
	}
	return nil
}
