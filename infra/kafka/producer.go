package kafka

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes raw tape frames to a topic, one frame per
// message, so a Source on the other side can replay them in order.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// SendFrame publishes one frame keyed by its big-endian sequence
// number, keeping partition order aligned with tape order.
func (p *Producer) SendFrame(ctx context.Context, seq uint64, frame []byte) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: frame,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
