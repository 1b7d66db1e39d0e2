// Package ws maintains the single WebSocket connection to the poker hub:
// request/response invocations correlated by call id, server-pushed event
// dispatch, and automatic reconnection with a backoff schedule.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/matthiasburger/planningpoker-go/internal/proto"
	"github.com/matthiasburger/planningpoker-go/internal/utils"
)

var (
	// ErrNotConnected is returned by Invoke while no connection is live,
	// including the window between a drop and a successful reconnect.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("connection closed")
	// ErrConnectionLost fails invocations that were in flight when the
	// connection dropped.
	ErrConnectionLost = errors.New("connection lost")
)

// Handler consumes the data payload of one pushed event. Handlers run on the
// connection's read goroutine and must not synchronously wait on Invoke.
type Handler = func(data json.RawMessage)

// Options configures a Conn.
type Options struct {
	URL           string
	DialTimeout   time.Duration
	InvokeTimeout time.Duration
	// Reconnect is the backoff schedule tried after a mid-session drop.
	// Empty disables automatic reconnection. The initial dial is never
	// retried automatically.
	Reconnect []time.Duration
	Logger    *zerolog.Logger
}

// DefaultReconnect is the standard backoff schedule: immediate, then 2s,
// 10s and 30s before giving up.
func DefaultReconnect() []time.Duration {
	return []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}
}

type pendingCall struct {
	ch chan callResult
}

type callResult struct {
	env proto.Envelope
	err error
}

// Conn is the client side of the hub protocol. Exactly one underlying
// WebSocket is live at a time.
type Conn struct {
	opts Options
	log  *zerolog.Logger

	// dispatchMu serializes event delivery and handler replacement, so a
	// Bind never races a handler invocation.
	dispatchMu sync.Mutex
	handlers   map[string]Handler

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]pendingCall
	closed  bool

	onReconnecting func()
	onReconnected  func()
	onDisconnected func()
}

// NewConn builds a connection with the given options. Call Start to dial.
func NewConn(opts Options) *Conn {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.InvokeTimeout == 0 {
		opts.InvokeTimeout = 10 * time.Second
	}
	return &Conn{
		opts:     opts,
		log:      opts.Logger,
		handlers: make(map[string]Handler),
		pending:  make(map[string]pendingCall),
	}
}

// Bind replaces the whole handler set atomically with respect to inbound
// delivery. Previously bound handlers are dropped, never accumulated.
func (c *Conn) Bind(handlers map[string]Handler) {
	next := make(map[string]Handler, len(handlers))
	for event, h := range handlers {
		next[event] = h
	}

	c.dispatchMu.Lock()
	c.handlers = next
	c.dispatchMu.Unlock()
}

// OnReconnecting registers the callback fired when a live connection drops
// and the reconnect schedule starts. Must be set before Start.
func (c *Conn) OnReconnecting(fn func()) {
	c.mu.Lock()
	c.onReconnecting = fn
	c.mu.Unlock()
}

// OnReconnected registers the callback fired after a successful reconnect.
// Must be set before Start.
func (c *Conn) OnReconnected(fn func()) {
	c.mu.Lock()
	c.onReconnected = fn
	c.mu.Unlock()
}

// OnDisconnected registers the callback fired when the connection is gone
// for good: reconnection disabled or the schedule exhausted.
func (c *Conn) OnDisconnected(fn func()) {
	c.mu.Lock()
	c.onDisconnected = fn
	c.mu.Unlock()
}

// Start dials the hub once. A dial failure is returned to the caller and not
// retried here; only drops of an established connection trigger the
// reconnect schedule.
func (c *Conn) Start(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "closed")
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	return conn, nil
}

// Invoke sends a call and waits for the hub's reply. The wait is bounded by
// ctx or, when ctx carries no deadline, by the configured invoke timeout.
func (c *Conn) Invoke(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	rawArgs, err := proto.MarshalArgs(args...)
	if err != nil {
		return nil, err
	}

	id := utils.NewCallID()
	ch := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.pending[id] = pendingCall{ch: ch}
	c.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.InvokeTimeout)
		defer cancel()
	}

	call := proto.Call{Type: proto.TypeCall, ID: id, Method: method, Args: rawArgs}
	if err := wsjson.Write(ctx, conn, call); err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("invoke %s: %w", method, res.err)
		}
		if res.env.Error != nil {
			return nil, fmt.Errorf("invoke %s: %w", method, res.env.Error)
		}
		return res.env.Result, nil
	case <-ctx.Done():
		c.dropPending(id)
		return nil, fmt.Errorf("invoke %s: %w", method, ctx.Err())
	}
}

// Close shuts the connection down for good.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.failPendingLocked(ErrClosed)
	c.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	for {
		var env proto.Envelope
		if err := wsjson.Read(context.Background(), conn, &env); err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch env.Type {
		case proto.TypeResult:
			c.resolve(env)
		case proto.TypeEvent:
			c.dispatch(env.Event, env.Data)
		default:
			c.log.Debug().Str("type", env.Type).Msg("unknown frame type")
		}
	}
}

func (c *Conn) resolve(env proto.Envelope) {
	c.mu.Lock()
	call, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debug().Str("id", env.ID).Msg("reply for unknown call")
		return
	}
	call.ch <- callResult{env: env}
}

func (c *Conn) dispatch(event string, data json.RawMessage) {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if h, ok := c.handlers[event]; ok {
		h(data)
		return
	}
	c.log.Debug().Str("event", event).Msg("unhandled event")
}

func (c *Conn) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failPendingLocked resolves every in-flight call with err. Caller holds mu.
func (c *Conn) failPendingLocked(err error) {
	for id, call := range c.pending {
		delete(c.pending, id)
		call.ch <- callResult{err: err}
	}
}

func (c *Conn) handleDisconnect(old *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != old {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.failPendingLocked(ErrConnectionLost)
	closed := c.closed
	reconnecting := c.onReconnecting
	disconnected := c.onDisconnected
	c.mu.Unlock()

	if closed {
		return
	}

	if len(c.opts.Reconnect) == 0 {
		c.log.Warn().Err(cause).Msg("connection lost, reconnection disabled")
		if disconnected != nil {
			disconnected()
		}
		return
	}

	c.log.Warn().Err(cause).Msg("connection lost, reconnecting")
	if reconnecting != nil {
		reconnecting()
	}
	c.reconnect(disconnected)
}

func (c *Conn) reconnect(disconnected func()) {
	for attempt, delay := range c.opts.Reconnect {
		time.Sleep(delay)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(context.Background())
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("reconnect failed")
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		}
		c.conn = conn
		reconnected := c.onReconnected
		c.mu.Unlock()

		go c.readLoop(conn)

		c.log.Info().Int("attempt", attempt+1).Msg("reconnected")
		if reconnected != nil {
			reconnected()
		}
		return
	}

	c.log.Error().Msg("reconnect schedule exhausted, giving up")
	if disconnected != nil {
		disconnected()
	}
}
