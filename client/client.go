// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicecode-project/voicecode/lib/clock"
	"github.com/voicecode-project/voicecode/wire"
)

// State is the connection lifecycle phase.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"

	// StateGaveUp means the reconnect attempt budget is exhausted. The
	// client stays down until the user asks for a fresh Connect.
	StateGaveUp State = "gave_up"
)

// ErrNotConnected is returned by Send when no socket is open.
var ErrNotConnected = errors.New("client: not connected")

// Defaults for zero-valued Config fields.
const (
	DefaultPingInterval = 30 * time.Second
	DefaultMaxAttempts  = 20
	DefaultMaxDelay     = 30 * time.Second
)

// Config configures a Client. URL is required; everything else has a
// usable default.
type Config struct {
	// URL is the backend WebSocket endpoint, e.g. ws://host:port/ws.
	URL string

	// Router receives decoded inbound messages. A nil Router drops
	// everything, which only makes sense in tests.
	Router *Router

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock drives keepalive and reconnect timers. Defaults to the real
	// clock.
	Clock clock.Clock

	// PingInterval is the keepalive cadence while connected.
	PingInterval time.Duration

	// MaxAttempts is the consecutive-failure budget before the client
	// gives up. Negative means retry forever.
	MaxAttempts int

	// MaxDelay caps the reconnect backoff.
	MaxDelay time.Duration

	// OnState, when set, observes every state transition. Called from
	// client goroutines; keep it fast.
	OnState func(State)
}

// Client is the connection manager. Safe for concurrent use.
type Client struct {
	url          string
	router       *Router
	logger       *slog.Logger
	clock        clock.Clock
	pingInterval time.Duration
	maxAttempts  int
	backoff      backoff
	onState      func(State)
	dialer       *websocket.Dialer

	// writeMu serializes frame writes; gorilla allows one concurrent
	// writer.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	ctx       context.Context
	epoch     uint64
	attempt   int
	lastError error
	pingStop  chan struct{}
	retry     *clock.Timer
}

// New creates a Client. It does not dial; call Connect.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("client: Config.URL is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := config.Clock
	if c == nil {
		c = clock.Real()
	}
	pingInterval := config.PingInterval
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	maxDelay := config.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	router := config.Router
	if router == nil {
		router = &Router{}
	}
	if router.Logger == nil {
		router.Logger = logger
	}
	return &Client{
		url:          config.URL,
		router:       router,
		logger:       logger,
		clock:        c,
		pingInterval: pingInterval,
		maxAttempts:  maxAttempts,
		backoff:      newBackoff(maxDelay),
		onState:      config.OnState,
		dialer:       websocket.DefaultDialer,
		state:        StateDisconnected,
	}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connection failure, or nil.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Connect establishes the connection. Any existing connection and its
// pending timers are torn down first, so Connect doubles as a manual
// "reconnect now". The first dial happens synchronously; on failure the
// error is returned and the usual backoff retry is already scheduled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.teardownLocked()
	c.epoch++
	epoch := c.epoch
	c.attempt = 0
	c.lastError = nil
	c.ctx = ctx
	c.mu.Unlock()

	return c.dial(ctx, epoch)
}

// Disconnect closes the connection and cancels all pending reconnect
// and keepalive timers. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.teardownLocked()
	c.epoch++
	c.attempt = 0
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	onState := c.onState
	c.mu.Unlock()

	if changed && onState != nil {
		onState(StateDisconnected)
	}
}

// Send encodes and writes one envelope. Fails with ErrNotConnected when
// no socket is open.
func (c *Client) Send(envelope wire.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := wire.Encode(envelope)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("client: writing %s frame: %w", envelope.Type, err)
	}
	return nil
}

// dial attempts one connection for the given epoch. Failures schedule
// the next retry before returning.
func (c *Client) dial(ctx context.Context, epoch uint64) error {
	if !c.transition(epoch, StateConnecting) {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		err = fmt.Errorf("client: dialing %s: %w", c.url, err)
		c.connectionLost(epoch, err)
		return err
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempt = 0
	c.lastError = nil
	c.startPingLocked(epoch)
	c.mu.Unlock()

	c.transition(epoch, StateConnected)
	c.logger.Info("connected", "url", c.url)

	if err := c.Send(wire.Connect()); err != nil {
		c.logger.Warn("handshake send failed", "error", err)
	}

	go c.readLoop(conn, epoch)
	return nil
}

// readLoop pumps inbound frames until the socket dies.
func (c *Client) readLoop(conn *websocket.Conn, epoch uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(epoch, fmt.Errorf("client: reading frame: %w", err))
			return
		}

		envelope, err := wire.Decode(data)
		if err != nil {
			// A malformed frame is the sender's problem, not a reason
			// to drop the connection.
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		c.router.Dispatch(envelope)
	}
}

// connectionLost records a failure, tears down the socket, and either
// schedules the next dial or gives up.
func (c *Client) connectionLost(epoch uint64, cause error) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.closeConnLocked()
	c.lastError = cause
	c.attempt++
	attempt := c.attempt

	if c.maxAttempts > 0 && attempt > c.maxAttempts {
		c.mu.Unlock()
		c.transition(epoch, StateGaveUp)
		c.logger.Error("giving up on reconnection",
			"attempts", attempt-1,
			"error", cause,
		)
		return
	}

	delay := c.backoff.delay(attempt - 1)
	ctx := c.ctx
	c.retry = c.clock.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := epoch != c.epoch
		c.mu.Unlock()
		if stale {
			return
		}
		// dial reschedules on failure; nothing to do with the error
		// here.
		_ = c.dial(ctx, epoch)
	})
	c.mu.Unlock()

	c.transition(epoch, StateDisconnected)
	c.logger.Warn("connection lost",
		"attempt", attempt,
		"retry_in", delay,
		"error", cause,
	)
}

// startPingLocked begins the keepalive loop for the current socket.
// Caller holds c.mu.
func (c *Client) startPingLocked(epoch uint64) {
	ticker := c.clock.NewTicker(c.pingInterval)
	stop := make(chan struct{})
	c.pingStop = stop

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Send(wire.Ping()); err != nil {
					c.logger.Warn("keepalive send failed", "error", err)
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

// closeConnLocked shuts the socket and keepalive down. Caller holds
// c.mu.
func (c *Client) closeConnLocked() {
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// teardownLocked additionally cancels any pending reconnect timer.
// Caller holds c.mu.
func (c *Client) teardownLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.closeConnLocked()
}

// transition moves to the given state if the epoch is still current.
// Reports whether the transition applied.
func (c *Client) transition(epoch uint64, state State) bool {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return false
	}
	changed := c.state != state
	c.state = state
	onState := c.onState
	c.mu.Unlock()

	if changed && onState != nil {
		onState(state)
	}
	return true
}
