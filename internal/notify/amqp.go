// Package notify delivers ledger events to the messaging transport over
// RabbitMQ. The bot process consumes these queues and renders the chat
// messages; this side only guarantees the event is durably queued.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/asikdev/shopledger/internal/config"
	"github.com/asikdev/shopledger/internal/services/ledger"
)

const dialAttempts = 10

type AmqpNotifier struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queues  map[string]string // topic -> declared queue
}

var _ ledger.Notifier = (*AmqpNotifier)(nil)

// NewAmqpNotifier connects, retrying while the broker boots, and
// declares one durable queue per topic.
func NewAmqpNotifier(cfg config.AmqpConfig) (*AmqpNotifier, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}

		slog.Warn("amqp dial failed, retrying", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	queues := map[string]string{
		ledger.TopicAdminAlerts: cfg.AdminQueue,
		ledger.TopicUserEvents:  cfg.UserQueue,
	}

	for _, queue := range queues {
		_, err = ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
	}

	return &AmqpNotifier{conn: conn, channel: ch, queues: queues}, nil
}

func (n *AmqpNotifier) Publish(ctx context.Context, id string, topic string, payload []byte) error {
	queue, ok := n.queues[topic]
	if !ok {
		return fmt.Errorf("unknown topic: %s", topic)
	}

	err := n.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    id,
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	return nil
}

func (n *AmqpNotifier) Close() error {
	cerr := n.channel.Close()

	err := n.conn.Close()
	if err != nil {
		return fmt.Errorf("close amqp connection: %w", err)
	}

	return cerr
}
