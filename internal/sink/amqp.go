package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"eventstream/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the part of *amqp.Channel the sink publishes through
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes events to a topic exchange with routing key
// "events.<type>" and waits for the broker confirm of each message
type AMQPSink struct {
	mu       sync.Mutex
	ch       amqpChannel
	confirms <-chan amqp.Confirmation
	exchange string
	tag      uint64 // delivery tag of the last publish on ch
}

// NewAMQPSink opens a confirm mode channel on conn and declares the exchange
func NewAMQPSink(conn *amqp.Connection, exchange string) (*AMQPSink, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return newAMQPSink(ch, confirms, exchange), nil
}

func newAMQPSink(ch amqpChannel, confirms <-chan amqp.Confirmation, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, confirms: confirms, exchange: exchange}
}

// RoutingKey returns the routing key of an event type
func RoutingKey(t models.EventType) string {
	return "events." + string(t)
}

// Write publishes the record and blocks until the broker acknowledges it.
// Confirms left over from a write abandoned on ctx are skipped by tag.
func (s *AMQPSink) Write(ctx context.Context, record models.EventRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", record.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ch.PublishWithContext(
		ctx,
		s.exchange,
		RoutingKey(record.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			MessageId:    record.ID,
			Type:         string(record.Type),
			Timestamp:    record.LedgerClosedAt,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("amqp publish failed: %w", err)
	}
	s.tag++

	if s.confirms == nil {
		return nil
	}

	for {
		select {
		case confirm, ok := <-s.confirms:
			if !ok {
				return errors.New("amqp channel closed before confirm")
			}
			if confirm.DeliveryTag < s.tag {
				continue
			}
			if !confirm.Ack {
				return fmt.Errorf("amqp broker rejected event %s", record.ID)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Name returns the sink name
func (s *AMQPSink) Name() string {
	return "amqp"
}

// Close closes the channel
func (s *AMQPSink) Close() error {
	return s.ch.Close()
}
