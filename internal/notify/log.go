package notify

import (
	"context"
	"log/slog"

	"wallet-transfers/internal/domain"
)

// LogPublisher writes events to the structured log. It is the default when no
// broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event *domain.TransferCompleted) error {
	p.logger.InfoContext(ctx, "Transfer notification",
		"event", domain.EventTransactionProcessed,
		"channel", event.Channel(),
		"transaction_id", event.TransactionID,
		"sender_id", event.SenderID,
		"receiver_id", event.ReceiverID,
		"amount", event.Amount.StringFixed(domain.MonetaryPlaces))
	return nil
}
