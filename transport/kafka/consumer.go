package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// BatchHandler handles every message of a polled batch. It never fails.
type BatchHandler interface {
	HandleBatch(ctx context.Context, raws [][]byte)
}

type Options struct {
	Brokers        []string
	Topic          string
	Group          string
	MaxPollRecords int
}

// groupClient is the part of *kgo.Client the poll loop needs.
type groupClient interface {
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	Close()
}

// Consumer delivers notification batches from a Kafka consumer group.
// Offsets are committed only after a batch has been handled.
type Consumer struct {
	client  groupClient
	admin   *kadm.Client
	handler BatchHandler
	maxPoll int
	topic   string
	logger  *slog.Logger
}

func New(opts Options, handler BatchHandler, logger *slog.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("batch handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(opts.Brokers...),
		kgo.ConsumerGroup(opts.Group),
		kgo.ConsumeTopics(opts.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	maxPoll := opts.MaxPollRecords
	if maxPoll <= 0 {
		maxPoll = 100
	}
	return &Consumer{
		client:  client,
		admin:   kadm.NewClient(client),
		handler: handler,
		maxPoll: maxPoll,
		topic:   opts.Topic,
		logger:  logger,
	}, nil
}

// EnsureTopic creates the notification topic unless it already exists.
func (c *Consumer) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	resp, err := c.admin.CreateTopic(ctx, partitions, replication, nil, c.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", c.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", c.topic, resp.Err)
	}
	return nil
}

// Run polls until ctx is done or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consuming notification batches", "topic", c.topic)
	for {
		fetches := c.client.PollRecords(ctx, c.maxPoll)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("Failed to fetch notifications", "topic", topic, "partition", partition, "error", err)
		})

		records := fetches.Records()
		if len(records) == 0 {
			continue
		}

		c.handler.HandleBatch(ctx, values(records))

		if err := c.client.CommitRecords(ctx, records...); err != nil {
			c.logger.Error("Failed to commit offsets, batch may be redelivered", "records", len(records), "error", err)
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}

func values(records []*kgo.Record) [][]byte {
	raws := make([][]byte, 0, len(records))
	for _, r := range records {
		raws = append(raws, r.Value)
	}
	return raws
}
