// Package consumer wraps franz-go group consumption behind a small Handler
// interface so downstream code never touches client internals.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one record delivered to a Handler.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler processes consumed messages. Returning an error blocks offset
// progress and the record is retried, so handlers must tolerate duplicates
// and treat malformed input as handled.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// Config carries group consumption settings.
type Config struct {
	Brokers  []string
	Group    string
	Topics   []string
	ClientID string
}

// Consumer polls a consumer group and feeds records to a Handler with
// at-least-once delivery: offsets commit only after the whole poll is
// handled. Handlers must tolerate duplicates.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// New connects the group consumer and verifies connectivity with a ping.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: no brokers configured")
	}
	if cfg.Group == "" {
		return nil, errors.New("kafka consumer: no group configured")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka consumer: no topics configured")
	}
	if handler == nil {
		return nil, errors.New("kafka consumer: nil handler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka brokers: %w", err)
	}

	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is canceled or the client closes. Records whose
// handling fails are retried with backoff, so offsets never advance past an
// unhandled record.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		if err := c.handleAll(ctx, fetches.Records()); err != nil {
			return err
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.ErrorContext(ctx, "offset commit failed", "error", err)
		}
	}
}

// handleAll feeds records to the handler in order. A failed record is retried
// until it is handled or the context ends; committing past it would drop it.
func (c *Consumer) handleAll(ctx context.Context, records []*kgo.Record) error {
	const maxBackoff = 30 * time.Second

	backoff := time.Second
	for i := 0; i < len(records); {
		record := records[i]
		msg := &Message{Topic: record.Topic, Key: record.Key, Value: record.Value}
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			i++
			backoff = time.Second
			continue
		}

		c.logger.ErrorContext(ctx, "message handling failed, retrying",
			"topic", record.Topic,
			"partition", record.Partition,
			"offset", record.Offset,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return nil
}

// Close releases the client. Run returns once the close is observed.
func (c *Consumer) Close() {
	c.client.Close()
}
