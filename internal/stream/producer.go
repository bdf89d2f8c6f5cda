package stream

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// DLQProducer writes exhausted or unprocessable domain events to the
// dead-letter topic.
type DLQProducer struct {
	writer *kafkago.Writer
}

func NewDLQProducer(brokers []string, topic string) *DLQProducer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
	}
	return &DLQProducer{writer: w}
}

func (p *DLQProducer) Publish(ctx context.Context, raw []byte) error {
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Value: raw,
		Time:  time.Now(),
	})
}

func (p *DLQProducer) Close() error {
	return p.writer.Close()
}
