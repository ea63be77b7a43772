// Package notify delivers TransferCompleted events to external transports.
package notify

import (
	"encoding/json"

	"wallet-transfers/internal/domain"
)

// Envelope is the wire form of a completion event on every transport.
type Envelope struct {
	Event       string                    `json:"event"`
	Channel     string                    `json:"channel"`
	Transaction *domain.TransferCompleted `json:"transaction"`
}

func encode(event *domain.TransferCompleted) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:       domain.EventTransactionProcessed,
		Channel:     event.Channel(),
		Transaction: event,
	})
}
