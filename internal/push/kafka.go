package push

import (
	"context"

	"github.com/segmentio/kafka-go"

	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/models"
)

// KafkaSource consumes alert events from a Kafka topic for deployments
// where the backend publishes push events to a broker instead of (or in
// addition to) the websocket channel. Messages use the same envelope.
type KafkaSource struct {
	reader *kafka.Reader
	logger *logging.Logger
	events chan models.Event
}

func NewKafkaSource(cfg config.Config, logger *logging.Logger) *KafkaSource {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Kafka.Broker},
		Topic:    cfg.Kafka.Topic,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &KafkaSource{
		reader: reader,
		logger: logger,
		events: make(chan models.Event, 64),
	}
}

func (s *KafkaSource) Events() <-chan models.Event {
	return s.events
}

// Run reads messages until ctx is cancelled, then closes the reader.
func (s *KafkaSource) Run(ctx context.Context) {
	defer func() {
		if err := s.reader.Close(); err != nil {
			s.logger.Errorf("Kafka reader close failed: %v", err)
		}
	}()

	s.logger.Infof("Kafka push source started on topic %s", s.reader.Config().Topic)
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("Kafka read failed: %v", err)
			continue
		}

		ev, err := parseEvent(msg.Value)
		if err != nil {
			s.logger.Errorf("Dropping Kafka message at offset %d: %v", msg.Offset, err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
