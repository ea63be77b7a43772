package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"wallet-transfers/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by receiver channel, so all
// events for one receiver land on the same partition in commit order.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.TransferCompleted) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	p.logger.Debug("Published transfer notification",
		"channel", event.Channel(),
		"transaction_id", event.TransactionID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func newMessage(event *domain.TransferCompleted) (kafka.Message, error) {
	data, err := encode(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Channel()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(domain.EventTransactionProcessed)},
			{Key: "transaction_id", Value: []byte(event.TransactionID.String())},
		},
		Time: event.CreatedAt,
	}, nil
}
