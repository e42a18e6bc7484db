package solana

import (
	"context"
	"errors"
)

// ErrMalformedMessage is returned by LogsSession.Next for a frame that could
// not be decoded into a logs notification. The session stays usable.
var ErrMalformedMessage = errors.New("malformed logs notification")

// ErrSessionClosed is returned by Next after Close or context cancellation.
var ErrSessionClosed = errors.New("logs session closed")

// LogsDialer opens logs subscriptions.
type LogsDialer interface {
	// DialLogs connects to endpoint and issues exactly one logsSubscribe request.
	// The returned session is bound to ctx: cancelling ctx closes it.
	DialLogs(ctx context.Context, endpoint string, filter LogsFilter) (LogsSession, error)
}

// LogsSession is one live logsSubscribe subscription on one connection.
type LogsSession interface {
	// Next blocks until the next notification arrives.
	// Transport errors are terminal for the session; ErrMalformedMessage is not.
	Next() (LogNotification, error)

	// Close closes the underlying connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	// Empty subscribes to all transactions.
	Mentions []string
	// Commitment level, "confirmed" when empty.
	Commitment string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
