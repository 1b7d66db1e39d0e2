package session

import "errors"

var (
	// ErrNoRoom rejects room-scoped commands issued while not in a room.
	ErrNoRoom = errors.New("not in a room")
	// ErrEmptyName rejects join/create without a display name.
	ErrEmptyName = errors.New("display name required")
	// ErrEmptyRoomID rejects join without a room id.
	ErrEmptyRoomID = errors.New("room id required")
)
