package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"github.com/m4n5ter/ownership-cache-killer/notification"
)

// SingleHandler handles one unconditional deletion request.
type SingleHandler interface {
	HandleSingle(ctx context.Context, raw []byte) error
}

// channel is the part of *amqp091.Channel the consume loop needs.
type channel interface {
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

type Subscriber struct {
	conn    *amqp091.Connection
	ch      channel
	queue   string
	handler SingleHandler
	log     *slog.Logger
}

func NewSubscriber(url, queue string, prefetch int, handler SingleHandler, logger *slog.Logger) (*Subscriber, error) {
	if handler == nil {
		return nil, errors.New("single-event handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Subscriber{
		conn:    conn,
		ch:      ch,
		queue:   queue,
		handler: handler,
		log:     logger,
	}, nil
}

// Run consumes deletion requests one at a time until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs, err := s.ch.ConsumeWithContext(ctx, s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.queue, err)
	}
	s.log.Info("Consuming deletion requests", "queue", s.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("amqp delivery channel closed")
			}
			s.deliver(ctx, d)
		}
	}
}

// Invalid requests are dropped, anything else unexpected goes back to the queue.
func (s *Subscriber) deliver(ctx context.Context, d amqp091.Delivery) {
	err := s.handler.HandleSingle(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	var verr *notification.ValidationError
	if errors.As(err, &verr) {
		s.log.Error("Rejecting invalid deletion request", "delivery_tag", d.DeliveryTag, "error", err)
		_ = d.Nack(false, false)
		return
	}
	s.log.Error("Failed to handle deletion request, requeueing", "delivery_tag", d.DeliveryTag, "error", err)
	_ = d.Nack(false, true)
}

func (s *Subscriber) Close() error {
	_ = s.ch.Close()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
