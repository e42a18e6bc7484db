// Package alerts formats scored candidates and delivers them to notification channels.
package alerts

import (
	"context"

	"mint-watch/internal/domain"
)

// Payload is what a Sender delivers: the alert plus its rendered text.
type Payload struct {
	Message domain.AlertMessage
	Text    string
	TxURL   string
}

// Sender defines the interface for alert senders.
type Sender interface {
	Send(ctx context.Context, payload *Payload) error
}
