package eyeson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/application/metric"
	"github.com/qrave1/eyeson-go/internal/domain/events"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/cable"
)

const roomChannel = "RoomChannel"

// ReasonUnauthorized is the disconnect reason after the server rejected the
// API key. The connection closes itself in that case.
const ReasonUnauthorized = cable.ReasonUnauthorized

type ConnectionState string

const (
	StateInit         ConnectionState = "init"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

// Handlers are called from the connection's read goroutine, one at a time.
// Nil handlers are skipped.
type Handlers struct {
	Connected    func()
	Disconnected func(reason string)
	// Event receives every channel message unchanged.
	Event func(Message)
}

// Observer opens real-time connections to rooms.
type Observer struct {
	url    url.URL
	apiKey string
	dialer *websocket.Dialer
	logger zerolog.Logger

	// zero uses the transport default
	reconnectDelay time.Duration
}

func newObserver(baseURL, apiKey string, dialer *websocket.Dialer, logger zerolog.Logger) (*Observer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	u.Path = "/rt"

	return &Observer{
		url:    *u,
		apiKey: apiKey,
		dialer: dialer,
		logger: logger.With().Str(constant.Component, "observer").Logger(),
	}, nil
}

// URL returns the websocket address for roomID.
func (o *Observer) URL(roomID string) string {
	u := o.url
	u.RawQuery = url.Values{"room_id": {roomID}}.Encode()
	return u.String()
}

// Connect subscribes to the events of roomID. It returns immediately in state
// init; ctx only bounds the first websocket handshake. A lost connection is
// redialed by the transport: Disconnected is reported, then Connected again
// once resubscribed. An unauthorized disconnect closes the connection for
// good, and Done is closed when the transport gives up.
func (o *Observer) Connect(ctx context.Context, roomID string, h Handlers) *Connection {
	dialCtx, cancel := context.WithCancel(ctx)

	c := &Connection{
		roomID:   roomID,
		handlers: h,
		logger:   o.logger.With().Str(constant.RoomID, roomID).Logger(),
		state:    StateInit,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	header := http.Header{}
	header.Set("Authorization", o.apiKey)

	opts := cable.Options{
		URL:     o.URL(roomID),
		Header:  header,
		Channel: roomChannel,
		Dialer:  o.dialer,
		Logger:  c.logger,

		ReconnectDelay: o.reconnectDelay,
	}

	metric.IncrementObserverConnections()
	go c.run(dialCtx, opts)

	return c
}

// Connection is one observer subscription. Its ready flag follows room_update
// events and is unrelated to Room.Ready.
type Connection struct {
	roomID   string
	handlers Handlers
	logger   zerolog.Logger

	mu     sync.Mutex
	state  ConnectionState
	ready  bool
	closed bool
	cable  *cable.Cable
	cancel context.CancelFunc

	done chan struct{}
}

func (c *Connection) RoomID() string {
	return c.roomID
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Connection) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ready
}

// Done is closed once the underlying transport is gone and will not be
// redialed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. It may be called any number of times,
// from any state and from within handlers.
func (c *Connection) Close() {
	c.mu.Lock()
	c.ready = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cb, cancel := c.cable, c.cancel
	c.mu.Unlock()

	c.logger.Debug().Msg("closing observer connection")

	if cancel != nil {
		cancel()
	}
	if cb != nil {
		cb.Disconnect()
	}
}

func (c *Connection) run(ctx context.Context, opts cable.Options) {
	defer close(c.done)
	defer metric.DecrementObserverConnections()
	defer c.cancel()

	cb, err := cable.Dial(ctx, opts, cableHandler{c})
	if err != nil {
		c.logger.Warn().Err(err).Msg("observer dial failed")
		c.onDisconnect(c.dialFailureReason(err))
		c.Close()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cb.Disconnect()
		<-cb.Done()
		return
	}
	c.cable = cb
	c.mu.Unlock()

	<-cb.Done()
}

func (c *Connection) dialFailureReason(err error) string {
	var hsErr *cable.HandshakeError
	if errors.As(err, &hsErr) && hsErr.StatusCode == http.StatusUnauthorized {
		return cable.ReasonUnauthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return cable.ReasonClosed
	}
	return cable.ReasonTransportClosed
}

func (c *Connection) onConnect() {
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info().Msg("observer connected")

	if c.handlers.Connected != nil {
		c.handlers.Connected()
	}
}

func (c *Connection) onDisconnect(reason string) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()

	c.logger.Info().Str(constant.Reason, reason).Msg("observer disconnected")

	if c.handlers.Disconnected != nil {
		c.handlers.Disconnected(reason)
	}

	if reason == cable.ReasonUnauthorized {
		c.Close()
	}
}

func (c *Connection) onMessage(data json.RawMessage) {
	msg, err := events.ParseMessage(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping malformed observer message")
		return
	}

	metric.RecordObserverEvent(msg.Type)

	if c.handlers.Event != nil {
		c.handlers.Event(msg)
	}

	if msg.Type != TypeRoomUpdate {
		return
	}

	update, err := msg.RoomUpdate()
	if err != nil {
		c.logger.Warn().Err(err).Msg("malformed room_update content")
		return
	}

	c.mu.Lock()
	if update.Ready && !c.ready {
		c.ready = true
	}
	shutdown := update.Shutdown && c.ready
	if shutdown {
		c.ready = false
	}
	c.mu.Unlock()

	if shutdown {
		c.logger.Info().Msg("room shut down")
		c.Close()
	}
}

// cableHandler keeps the transport callbacks off Connection's method set.
type cableHandler struct {
	c *Connection
}

func (h cableHandler) OnConnect()                     { h.c.onConnect() }
func (h cableHandler) OnDisconnect(reason string)     { h.c.onDisconnect(reason) }
func (h cableHandler) OnMessage(data json.RawMessage) { h.c.onMessage(data) }
