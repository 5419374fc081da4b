// Package cable is a minimal ActionCable/AnyCable client: one websocket
// connection carrying a single channel subscription. A connection lost to a
// read error or to a server disconnect that allows reconnecting is redialed
// with exponential backoff and subscribed again.
package cable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/qrave1/eyeson-go/internal/application/constant"
)

const Subprotocol = "actioncable-v1-json"

// Disconnect reasons reported to Handler.OnDisconnect. Reasons sent by the
// server in a disconnect frame are passed through unchanged.
const (
	ReasonUnauthorized    = "unauthorized"
	ReasonRejected        = "subscription_rejected"
	ReasonTransportClosed = "transport_closed"
	ReasonClosed          = "closed"
	ReasonServerShutdown  = "server_disconnect"
)

const (
	defaultStaleTimeout      = 30 * time.Second
	defaultReconnectDelay    = time.Second
	defaultReconnectAttempts = 10
	maxReconnectDelay        = 30 * time.Second
	writeTimeout             = 5 * time.Second
)

var errClosed = errors.New("cable: connection closed")

// Handler receives channel notifications. Methods are called from the
// connection's goroutine, one at a time. After a reconnect OnConnect fires
// again.
type Handler interface {
	OnConnect()
	OnDisconnect(reason string)
	OnMessage(data json.RawMessage)
}

type Options struct {
	URL     string
	Header  http.Header
	Channel string
	// Dialer defaults to websocket.DefaultDialer settings.
	Dialer *websocket.Dialer
	// StaleTimeout is how long the connection may stay silent (the server
	// pings every few seconds) before it is considered dead.
	StaleTimeout time.Duration
	// ReconnectDelay is the first wait before redialing; it doubles per
	// failed attempt up to 30s. Defaults to 1s.
	ReconnectDelay time.Duration
	// ReconnectAttempts bounds the redials per outage. Zero means 10,
	// negative disables reconnecting.
	ReconnectAttempts int
	Logger            zerolog.Logger
}

// HandshakeError is returned by Dial when the server refused the upgrade.
type HandshakeError struct {
	StatusCode int
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("cable: handshake failed with %d: %v", e.StatusCode, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

func isUnauthorized(err error) bool {
	var hsErr *HandshakeError
	return errors.As(err, &hsErr) && hsErr.StatusCode == http.StatusUnauthorized
}

// Cable is an open connection with one channel subscription.
type Cable struct {
	url               string
	header            http.Header
	dialer            websocket.Dialer
	identifier        string
	handler           Handler
	stale             time.Duration
	reconnectDelay    time.Duration
	reconnectAttempts int
	logger            zerolog.Logger

	// ctx lives until Disconnect and bounds redials.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	done chan struct{}
}

// Dial opens the websocket and starts the read loop. The subscription is
// requested once the server sends its welcome frame; OnConnect fires when
// the server confirms it. ctx bounds only this first handshake.
func Dial(ctx context.Context, opts Options, h Handler) (*Cable, error) {
	if opts.Channel == "" {
		return nil, errors.New("cable: channel is required")
	}

	identifier, err := json.Marshal(map[string]string{"channel": opts.Channel})
	if err != nil {
		return nil, fmt.Errorf("cable: marshal identifier: %w", err)
	}

	c := &Cable{
		url:               opts.URL,
		header:            opts.Header,
		identifier:        string(identifier),
		handler:           h,
		stale:             opts.StaleTimeout,
		reconnectDelay:    opts.ReconnectDelay,
		reconnectAttempts: opts.ReconnectAttempts,
		logger:            opts.Logger.With().Str(constant.Component, "cable").Logger(),
		done:              make(chan struct{}),
	}

	dialer := websocket.DefaultDialer
	if opts.Dialer != nil {
		dialer = opts.Dialer
	}
	c.dialer = *dialer
	c.dialer.Subprotocols = []string{Subprotocol}

	if c.stale <= 0 {
		c.stale = defaultStaleTimeout
	}
	if c.reconnectDelay <= 0 {
		c.reconnectDelay = defaultReconnectDelay
	}
	if c.reconnectAttempts == 0 {
		c.reconnectAttempts = defaultReconnectAttempts
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	c.conn = conn
	c.ctx, c.cancel = context.WithCancel(context.Background())

	go c.run(conn)

	return c, nil
}

// Disconnect closes the connection and stops any pending reconnect. Safe to
// call more than once and from inside handler callbacks.
func (c *Cable) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	c.cancel()
	closeConn(c.conn)
}

// Done is closed once the cable gave up: after a local Disconnect, a
// terminal server disconnect, or exhausted reconnect attempts.
func (c *Cable) Done() <-chan struct{} {
	return c.done
}

func (c *Cable) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

type command struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type frame struct {
	Type       string          `json:"type"`
	Identifier string          `json:"identifier"`
	Message    json.RawMessage `json:"message"`
	Reason     string          `json:"reason"`
	Reconnect  *bool           `json:"reconnect"`
}

func (c *Cable) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("cable: dial: %w", err)
	}

	return conn, nil
}

func (c *Cable) send(conn *websocket.Conn, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(v)
}

// closeConn must be called with c.mu held.
func closeConn(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	_ = conn.Close()
}

func (c *Cable) run(conn *websocket.Conn) {
	defer close(c.done)
	defer c.Disconnect()

	for {
		reason, reconnect := c.readLoop(conn)

		c.mu.Lock()
		if c.closed {
			reason, reconnect = ReasonClosed, false
		} else {
			closeConn(conn)
		}
		c.mu.Unlock()

		c.handler.OnDisconnect(reason)

		if !reconnect || c.reconnectAttempts < 0 || c.isClosed() {
			return
		}

		next, err := c.redial()
		switch {
		case err == nil:
			conn = next
		case isUnauthorized(err):
			c.handler.OnDisconnect(ReasonUnauthorized)
			return
		case errors.Is(err, errClosed), errors.Is(err, context.Canceled):
			return
		default:
			c.logger.Warn().Err(err).Msg("cable: giving up reconnecting")
			return
		}
	}
}

// redial waits out the backoff and dials again until it succeeds, the
// server refuses the key, the attempts run out or Disconnect is called.
func (c *Cable) redial() (*websocket.Conn, error) {
	backoff := retry.NewExponential(c.reconnectDelay)
	backoff = retry.WithCappedDuration(maxReconnectDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(c.reconnectAttempts-1), backoff)

	select {
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	var (
		conn    *websocket.Conn
		attempt int
	)
	err := retry.Do(c.ctx, backoff, func(ctx context.Context) error {
		attempt++

		next, err := c.dial(ctx)
		if err != nil {
			if isUnauthorized(err) {
				return err
			}
			c.logger.Debug().Err(err).Int("attempt", attempt).Msg("cable: redial failed")
			return retry.RetryableError(err)
		}

		conn = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		_ = conn.Close()
		return nil, errClosed
	}
	c.conn = conn

	c.logger.Info().Int("attempt", attempt).Msg("cable: reconnected")

	return conn, nil
}

// readLoop serves one websocket connection. It returns the disconnect
// reason and whether the outage may be recovered by redialing.
func (c *Cable) readLoop(conn *websocket.Conn) (string, bool) {
	for {
		if c.isClosed() {
			return ReasonClosed, false
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.stale)); err != nil {
			return ReasonTransportClosed, true
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				c.logger.Debug().Err(err).Msg("cable read error")
			}
			return ReasonTransportClosed, true
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn().Err(err).Msg("cable: malformed frame")
			continue
		}

		switch f.Type {
		case "welcome":
			if err := c.send(conn, command{Command: "subscribe", Identifier: c.identifier}); err != nil {
				c.logger.Error().Err(err).Msg("cable: subscribe")
				return ReasonTransportClosed, true
			}

		case "ping":

		case "confirm_subscription":
			if f.Identifier == c.identifier {
				c.handler.OnConnect()
			}

		case "reject_subscription":
			if f.Identifier == c.identifier {
				return ReasonRejected, false
			}

		case "disconnect":
			reason := f.Reason
			if reason == "" {
				reason = ReasonServerShutdown
			}
			reconnect := reason != ReasonUnauthorized && (f.Reconnect == nil || *f.Reconnect)
			return reason, reconnect

		case "":
			if f.Identifier == c.identifier && len(f.Message) > 0 {
				c.handler.OnMessage(f.Message)
			}

		default:
			c.logger.Debug().Str(constant.EventType, f.Type).Msg("cable: unhandled frame")
		}
	}
}
