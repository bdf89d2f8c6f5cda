package stream

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer reads marketplace domain events and hands them to the handler.
// A handler failure never stops the loop; the handler owns retries/DLQ.
type Consumer struct {
	reader  *kafkago.Reader
	handler *Handler
	logger  *zap.SugaredLogger
}

func NewConsumer(brokers []string, topic, groupID string, handler *Handler, logger *zap.SugaredLogger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, handler: handler, logger: logger}
}

func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warnw("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if err := c.handler.HandleEvent(ctx, m.Value); err != nil {
			c.logger.Warnw("domain event handling failed", "offset", m.Offset, "err", err)
		}
	}
}
