package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for the subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSClient implements LogsDialer using gorilla/websocket.
// It holds no connection state; every DialLogs call opens a new connection.
type WSClient struct {
	config WSClientConfig
}

// NewWSClient creates a new WebSocket dialer.
func NewWSClient(config *WSClientConfig) *WSClient {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSClient{config: cfg}
}

// Compile-time interface check.
var _ LogsDialer = (*WSClient)(nil)

// DialLogs connects and subscribes to program logs matching the filter.
func (c *WSClient) DialLogs(ctx context.Context, endpoint string, filter LogsFilter) (LogsSession, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &wsSession{
		conn:   conn,
		config: c.config,
		done:   make(chan struct{}),
	}

	// Cancellation must also interrupt the wait for the subscription ack.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	err = s.subscribe(ctx, filter)
	if !stop() {
		conn.Close()
		return nil, fmt.Errorf("subscribe: %w", ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Closing the connection is the only way to unblock a pending read.
	s.wg.Add(2)
	go s.watch(ctx)
	go s.pingLoop()

	return s, nil
}

// wsSession is a single subscribed connection.
type wsSession struct {
	conn   *websocket.Conn
	config WSClientConfig

	writeMu sync.Mutex
	subID   int64

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// subscribe sends logsSubscribe and waits for the subscription id.
// The wait ends at SubscribeTimeout or the ctx deadline, whichever is first.
func (s *wsSession) subscribe(ctx context.Context, filter LogsFilter) error {
	// Build subscription request
	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter = nil
	}

	commitment := filter.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	var first interface{} = "all"
	if mentionsFilter != nil {
		first = mentionsFilter
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			first,
			map[string]string{"commitment": commitment},
		},
	}

	if err := s.writeJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(s.config.SubscribeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	for {
		s.conn.SetReadDeadline(deadline)
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await subscription: %w", err)
		}

		var resp wsResponse
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID != req.ID {
			// Not our response; providers may push other frames first.
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("subscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
		}
		var subID int64
		if err := json.Unmarshal(resp.Result, &subID); err != nil {
			return fmt.Errorf("decode subscription id: %w", err)
		}
		s.subID = subID
		return nil
	}
}

// Next reads the next logs notification.
func (s *wsSession) Next() (LogNotification, error) {
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return LogNotification{}, ErrSessionClosed
			default:
			}
			return LogNotification{}, fmt.Errorf("read: %w", err)
		}

		notif, ok, err := decodeNotification(message)
		if err != nil {
			return LogNotification{}, err
		}
		if !ok {
			continue
		}
		return notif, nil
	}
}

// Close closes the WebSocket connection.
func (s *wsSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()

		s.conn.Close()
	})
	s.wg.Wait()
	return nil
}

func (s *wsSession) watch(ctx context.Context) {
	defer s.wg.Done()
	select {
	case <-ctx.Done():
		s.closeOnce.Do(func() {
			close(s.done)
			s.conn.Close()
		})
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *wsSession) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			// A dead connection surfaces as a read error in Next.
			_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
		}
	}
}

func (s *wsSession) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteJSON(v)
}

// decodeNotification parses a frame. ok is false for frames that are not
// logs notifications (late responses, other methods).
func decodeNotification(message []byte) (LogNotification, bool, error) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return LogNotification{}, false, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if notif.Method != "logsNotification" {
		return LogNotification{}, false, nil
	}
	if notif.Params == nil || notif.Params.Result.Value.Signature == "" {
		return LogNotification{}, false, fmt.Errorf("%w: missing signature", ErrMalformedMessage)
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}
	return out, true, nil
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
