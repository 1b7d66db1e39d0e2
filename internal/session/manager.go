// Package session is the client-side core of the planning poker tool: it
// owns the hub connection lifecycle, the durable identity, the current room
// membership and the reconciliation of server-pushed room snapshots.
// Presentation layers read its observable state and call its command
// surface; they never touch the connection or persisted keys directly.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matthiasburger/planningpoker-go/internal/identity"
	"github.com/matthiasburger/planningpoker-go/internal/proto"
)

// Transport is the persistent bidirectional channel to the hub. Implemented
// by transport/ws.Conn; tests inject a fake.
type Transport interface {
	Start(ctx context.Context) error
	Invoke(ctx context.Context, method string, args ...any) (json.RawMessage, error)
	// Bind replaces the full event handler set atomically. Handlers are
	// never appended to an existing set, so a rebind after reconnect
	// cannot cause duplicate delivery.
	Bind(handlers map[string]func(data json.RawMessage))
	OnReconnecting(fn func())
	OnReconnected(fn func())
	OnDisconnected(fn func())
	Close() error
}

// Session is the client's intended membership and vote.
type Session struct {
	RoomID      string
	DisplayName string
	ChosenCard  string
}

// Manager is the session manager: the single owner of connection, identity
// and room state. Safe for concurrent use.
type Manager struct {
	tr  Transport
	ids *identity.Store
	log *zerolog.Logger

	ready     chan struct{}
	startOnce sync.Once
	startErr  error

	mu           sync.Mutex
	state        ConnectionState
	reconnecting bool
	userID       string
	roomID       string
	displayName  string
	chosenCard   string
	snapshot     *Snapshot

	updates chan struct{}
	notices chan string
}

// New constructs a manager around the given transport and identity store.
func New(tr Transport, ids *identity.Store, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		tr:      tr,
		ids:     ids,
		log:     logger,
		ready:   make(chan struct{}),
		state:   StateDisconnected,
		updates: make(chan struct{}, 1),
		notices: make(chan string, 8),
	}
}

// Start establishes the connection. It is idempotent: concurrent and
// repeated calls share the single connection attempt and return its
// outcome. A failed initial dial is surfaced and not retried here.
func (m *Manager) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		m.setState(StateConnecting)
		m.bindHandlers()
		m.tr.OnReconnecting(m.handleReconnecting)
		m.tr.OnReconnected(m.handleReconnected)
		m.tr.OnDisconnected(m.handleDisconnected)

		if err := m.tr.Start(ctx); err != nil {
			m.startErr = err
			m.setState(StateDisconnected)
			close(m.ready)
			return
		}

		uid := m.ids.UserID()
		m.mu.Lock()
		m.userID = uid
		m.mu.Unlock()

		m.setState(StateConnected)
		close(m.ready)
	})

	select {
	case <-m.ready:
		return m.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the connection down for good.
func (m *Manager) Close() error {
	m.setState(StateClosed)
	return m.tr.Close()
}

// await blocks until the one-time connection attempt has settled. Every
// command passes through this gate, so nothing is dispatched before the
// initial connect resolves.
func (m *Manager) await(ctx context.Context) error {
	select {
	case <-m.ready:
		return m.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bindHandlers installs the complete handler set, replacing whatever was
// bound before. Called on start and again after every reconnect.
func (m *Manager) bindHandlers() {
	m.tr.Bind(map[string]func(data json.RawMessage){
		proto.EventPresence:     m.applySnapshot,
		proto.EventState:        m.applySnapshot,
		proto.EventVoteProgress: m.applySnapshot,
		proto.EventRevealed:     m.applySnapshot,
		proto.EventRoomDeleted:  m.handleRoomDeleted,
		proto.EventKicked:       m.handleKicked,
	})
}

// applySnapshot replaces the room state wholesale. The server is the single
// source of truth; there is no field-level merging.
func (m *Manager) applySnapshot(data json.RawMessage) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.log.Warn().Err(err).Msg("decode snapshot")
		return
	}

	m.mu.Lock()
	m.snapshot = &snap
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) handleRoomDeleted(data json.RawMessage) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil {
		m.log.Warn().Err(err).Msg("decode roomDeleted")
		return
	}

	m.mu.Lock()
	if m.roomID == "" || m.roomID != roomID {
		// Stale event from a room we already left.
		m.mu.Unlock()
		m.log.Debug().Str("room_id", roomID).Msg("ignoring roomDeleted for inactive room")
		return
	}
	m.clearRoomLocked()
	m.mu.Unlock()

	m.ids.ClearSession()
	m.notify("room deleted")
	m.signal()
}

func (m *Manager) handleKicked(data json.RawMessage) {
	var msg string
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Warn().Err(err).Msg("decode kicked")
		return
	}
	m.notify(msg)

	m.mu.Lock()
	roomID := m.roomID
	if roomID == "" {
		// Already out of the room; nothing to tear down.
		m.mu.Unlock()
		return
	}
	m.clearRoomLocked()
	m.mu.Unlock()

	// Tell the server we left as well. It already removed us, so this is
	// best effort and must not block the event dispatch goroutine.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := m.tr.Invoke(ctx, proto.MethodLeaveRoom, roomID); err != nil {
			m.log.Debug().Err(err).Msg("leave after kick")
		}
	}()

	m.ids.ClearSession()
	m.signal()
}

func (m *Manager) handleReconnecting() {
	m.mu.Lock()
	m.reconnecting = true
	m.state = StateReconnecting
	m.mu.Unlock()
	m.signal()
}

// handleReconnected replays the rejoin protocol: re-assert membership with
// the persisted session (not the in-memory one, to tolerate a reload racing
// the reconnect) and re-assert an already chosen card, which the server
// drops with the old connection.
func (m *Manager) handleReconnected() {
	m.bindHandlers()

	last, ok := m.ids.LastSession()
	if ok {
		uid := m.UserID()
		ctx := context.Background()
		if _, err := m.tr.Invoke(ctx, proto.MethodJoinRoom, last.RoomID, last.DisplayName, uid); err != nil {
			m.log.Warn().Err(err).Str("room_id", last.RoomID).Msg("rejoin failed")
		} else {
			m.mu.Lock()
			card := m.chosenCard
			m.mu.Unlock()
			if card != "" {
				if _, err := m.tr.Invoke(ctx, proto.MethodChooseCard, last.RoomID, card); err != nil {
					m.log.Warn().Err(err).Str("card", card).Msg("re-assert vote failed")
				}
			}
		}
	}

	m.mu.Lock()
	m.reconnecting = false
	m.state = StateConnected
	m.mu.Unlock()
	m.signal()
}

func (m *Manager) handleDisconnected() {
	m.mu.Lock()
	m.reconnecting = false
	m.state = StateDisconnected
	m.mu.Unlock()
	m.notify("connection lost")
	m.signal()
}

// clearRoomLocked resets membership state. Caller holds mu. The display name
// is kept in memory so a later join can reuse it.
func (m *Manager) clearRoomLocked() {
	m.roomID = ""
	m.chosenCard = ""
	m.snapshot = nil
}

// signal coalesces change notifications for observers.
func (m *Manager) signal() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// notify queues a user-visible message. Drops if nobody is draining.
func (m *Manager) notify(msg string) {
	select {
	case m.notices <- msg:
	default:
	}
}

// === Observable state ===

// State reports the connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnecting reports whether a reconnect is in progress, for UI banners.
func (m *Manager) Reconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnecting
}

// UserID returns the durable client identity, creating it on first use.
func (m *Manager) UserID() string {
	m.mu.Lock()
	if m.userID != "" {
		id := m.userID
		m.mu.Unlock()
		return id
	}
	m.mu.Unlock()

	id := m.ids.UserID()
	m.mu.Lock()
	m.userID = id
	m.mu.Unlock()
	return id
}

// Session returns the current membership and vote.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Session{RoomID: m.roomID, DisplayName: m.displayName, ChosenCard: m.chosenCard}
}

// Snapshot returns a copy of the last pushed room state, if any.
func (m *Manager) Snapshot() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return Snapshot{}, false
	}
	return m.snapshot.clone(), true
}

// IsCardSelected reports whether card is the client's current pick.
func (m *Manager) IsCardSelected(card string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot != nil && m.chosenCard == card
}

// IsCurrentUser reports whether the participant is this client.
func (m *Manager) IsCurrentUser(p Participant) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID != "" && p.UserID == m.userID
}

// Updates signals after state changes; observers re-read and redraw.
func (m *Manager) Updates() <-chan struct{} {
	return m.updates
}

// Notices delivers user-visible messages (kicked, room deleted).
func (m *Manager) Notices() <-chan string {
	return m.notices
}

func (m *Manager) setState(s ConnectionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.signal()
}
