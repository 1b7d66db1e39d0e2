package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matthiasburger/planningpoker-go/internal/proto"
)

// CreateRoom creates a room on the hub, joins it and returns the new room
// id. Local and persisted session state change only on success.
func (m *Manager) CreateRoom(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if err := m.await(ctx); err != nil {
		return "", err
	}

	raw, err := m.tr.Invoke(ctx, proto.MethodCreateAndJoin, name, m.UserID())
	if err != nil {
		return "", err
	}
	var roomID string
	if err := json.Unmarshal(raw, &roomID); err != nil {
		return "", fmt.Errorf("decode room id: %w", err)
	}

	m.mu.Lock()
	m.roomID = roomID
	m.displayName = name
	m.mu.Unlock()

	m.ids.SaveSession(roomID, name)
	m.signal()
	return roomID, nil
}

// JoinRoom joins an existing room. Local and persisted session state change
// only on success.
func (m *Manager) JoinRoom(ctx context.Context, roomID, name string) error {
	roomID = strings.TrimSpace(roomID)
	name = strings.TrimSpace(name)
	if roomID == "" {
		return ErrEmptyRoomID
	}
	if name == "" {
		return ErrEmptyName
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	if _, err := m.tr.Invoke(ctx, proto.MethodJoinRoom, roomID, name, m.UserID()); err != nil {
		return err
	}

	m.mu.Lock()
	m.roomID = roomID
	m.displayName = name
	m.mu.Unlock()

	m.ids.SaveSession(roomID, name)
	m.signal()
	return nil
}

// Resume silently rejoins the persisted session, if one exists. Returns
// false when there is nothing to resume.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	last, ok := m.ids.LastSession()
	if !ok {
		return false, nil
	}
	if err := m.JoinRoom(ctx, last.RoomID, last.DisplayName); err != nil {
		return false, err
	}
	return true, nil
}

// LeaveRoom leaves the active room. Local and persisted state are cleared
// even when the remote call fails: the client must never stay stuck
// believing it is a member of a room it tried to leave.
func (m *Manager) LeaveRoom(ctx context.Context) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	_, invokeErr := m.tr.Invoke(ctx, proto.MethodLeaveRoom, roomID)

	m.mu.Lock()
	m.clearRoomLocked()
	m.mu.Unlock()
	m.ids.ClearSession()
	m.signal()

	return invokeErr
}

// SetStory updates the story under estimation. No local mutation; the
// server pushes the resulting snapshot back.
func (m *Manager) SetStory(ctx context.Context, title string) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	_, err = m.tr.Invoke(ctx, proto.MethodSetStory, roomID, title)
	return err
}

// ChooseCard casts the client's vote. The card is recorded locally only on
// success, so it can be re-asserted after a reconnect.
func (m *Manager) ChooseCard(ctx context.Context, card string) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	if _, err := m.tr.Invoke(ctx, proto.MethodChooseCard, roomID, card); err != nil {
		return err
	}

	m.mu.Lock()
	m.chosenCard = card
	m.mu.Unlock()
	m.signal()
	return nil
}

// Reveal discloses all votes.
func (m *Manager) Reveal(ctx context.Context) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	_, err = m.tr.Invoke(ctx, proto.MethodReveal, roomID)
	return err
}

// ResetRound clears all votes for a new round. The local card is forgotten
// on success.
func (m *Manager) ResetRound(ctx context.Context) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	if _, err := m.tr.Invoke(ctx, proto.MethodResetRound, roomID); err != nil {
		return err
	}

	m.mu.Lock()
	m.chosenCard = ""
	m.mu.Unlock()
	m.signal()
	return nil
}

// KickUser removes another participant, identified by durable user id. The
// outcome arrives via pushed events; nothing changes locally.
func (m *Manager) KickUser(ctx context.Context, targetUserID string) error {
	roomID, err := m.activeRoom()
	if err != nil {
		return err
	}
	if err := m.await(ctx); err != nil {
		return err
	}

	_, err = m.tr.Invoke(ctx, proto.MethodKickUser, roomID, targetUserID, m.UserID())
	return err
}

// activeRoom gates room-scoped commands on membership.
func (m *Manager) activeRoom() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomID == "" {
		return "", ErrNoRoom
	}
	return m.roomID, nil
}
