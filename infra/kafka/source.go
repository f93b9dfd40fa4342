// Package kafka adapts a Kafka topic into a tape source. Each message
// carries one or more complete frames; Source glues them back into the
// byte stream the decoder expects.
package kafka

import (
	"context"
	"io"

	"github.com/segmentio/kafka-go"
)

type Source struct {
	ctx    context.Context
	reader *kafka.Reader
	buf    []byte
}

func NewSource(ctx context.Context, brokers []string, topic, group string) *Source {
	return &Source{
		ctx: ctx,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 10 << 20,
		}),
	}
}

// Read implements io.Reader over the message stream. A cancelled
// context surfaces as EOF so the decoder loop ends cleanly.
func (s *Source) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		msg, err := s.reader.ReadMessage(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return 0, io.EOF
			}
			return 0, err
		}
		s.buf = msg.Value
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *Source) Close() error {
	return s.reader.Close()
}
