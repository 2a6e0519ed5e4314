package amqp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4n5ter/ownership-cache-killer/notification"
)

type acknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *acknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *acknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *acknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type handlerFunc func(ctx context.Context, raw []byte) error

func (f handlerFunc) HandleSingle(ctx context.Context, raw []byte) error {
	return f(ctx, raw)
}

func newSubscriber(h SingleHandler) *Subscriber {
	return &Subscriber{handler: h, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestDeliver(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantAcked   []uint64
		wantNacked  []uint64
		wantRequeue []bool
	}{
		{name: "handled request is acked", wantAcked: []uint64{7}},
		{
			name:        "invalid request is dropped",
			err:         &notification.ValidationError{Reason: "missing customerId"},
			wantNacked:  []uint64{7},
			wantRequeue: []bool{false},
		},
		{
			name:        "unexpected error is requeued",
			err:         errors.New("shutting down"),
			wantNacked:  []uint64{7},
			wantRequeue: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &acknowledger{}
			var body []byte
			s := newSubscriber(handlerFunc(func(_ context.Context, raw []byte) error {
				body = raw
				return tt.err
			}))

			s.deliver(context.Background(), amqp091.Delivery{
				Acknowledger: ack,
				DeliveryTag:  7,
				Body:         []byte(`{"customerId":"A1B2C3"}`),
			})

			assert.Equal(t, `{"customerId":"A1B2C3"}`, string(body))
			assert.Equal(t, tt.wantAcked, ack.acked)
			assert.Equal(t, tt.wantNacked, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

type fakeChannel struct {
	deliveries chan amqp091.Delivery
	err        error
}

func (c *fakeChannel) ConsumeWithContext(context.Context, string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return c.deliveries, c.err
}

func (c *fakeChannel) Close() error { return nil }

func TestRun(t *testing.T) {
	t.Run("acks handled requests until cancelled", func(t *testing.T) {
		ack := &acknowledger{}
		ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 2)}
		ch.deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"customerId":"A"}`)}
		ch.deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"customerId":"B"}`)}

		logs := &bytes.Buffer{}
		s := &Subscriber{ch: ch, queue: "deletions", log: slog.New(slog.NewTextHandler(logs, nil)),
			handler: handlerFunc(func(context.Context, []byte) error { return nil })}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		assert.Eventually(t, func() bool {
			ack.mu.Lock()
			defer ack.mu.Unlock()
			return len(ack.acked) == 2
		}, time.Second, 10*time.Millisecond)
		cancel()

		require.ErrorIs(t, <-done, context.Canceled)
		assert.Equal(t, []uint64{1, 2}, ack.acked)
		assert.Contains(t, logs.String(), "Consuming deletion requests")
	})

	t.Run("closed delivery channel is an error", func(t *testing.T) {
		ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
		close(ch.deliveries)
		s := newSubscriber(handlerFunc(func(context.Context, []byte) error { return nil }))
		s.ch = ch

		err := s.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delivery channel closed")
	})

	t.Run("consume failure is returned", func(t *testing.T) {
		s := newSubscriber(handlerFunc(func(context.Context, []byte) error { return nil }))
		s.ch = &fakeChannel{err: errors.New("channel/connection is not open")}
		s.queue = "deletions"

		err := s.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consume deletions")
	})
}

func TestDeliverLogsFailures(t *testing.T) {
	logs := &bytes.Buffer{}
	s := &Subscriber{log: slog.New(slog.NewTextHandler(logs, nil)),
		handler: handlerFunc(func(context.Context, []byte) error { return errors.New("redis down") })}

	s.deliver(context.Background(), amqp091.Delivery{Acknowledger: &acknowledger{}, DeliveryTag: 3})

	assert.Contains(t, logs.String(), "Failed to handle deletion request")
	assert.Contains(t, logs.String(), "delivery_tag=3")
	assert.Contains(t, logs.String(), "error=\"redis down\"")
}
