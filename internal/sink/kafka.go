package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// KafkaSink publishes one message per canonical record. Keys are
// "<session>-<stream>" so a stream's records land on one partition in order.
type KafkaSink struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewKafkaSink creates a Kafka producer for the configured topic.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaSink{writer: w, logger: logger}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, out Output) error {
	if len(out.Records) == 0 {
		return nil
	}

	key := []byte(fmt.Sprintf("%s-%d", out.Session.ID, out.Stream.StreamID))
	headers := []kafkago.Header{
		{Key: "sensor_name", Value: []byte(out.Stream.SensorName)},
		{Key: "sensor_unit", Value: []byte(out.Stream.SensorUnit)},
		{Key: "discovered_via", Value: []byte(out.Session.DiscoveredVia)},
	}

	msgs := make([]kafkago.Message, len(out.Records))
	for i, rec := range out.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("serialize record: %w", err)
		}
		msgs[i] = kafkago.Message{Key: key, Value: data, Headers: headers}
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish records: %w", err)
	}
	s.logger.Info("records published", "topic", s.writer.Topic, "count", len(msgs))
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
