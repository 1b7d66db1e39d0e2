// Package identity owns the durable client identity and the last known
// session, persisted so a restart can silently rejoin the previous room.
package identity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matthiasburger/planningpoker-go/internal/store"
)

// Persisted keys.
const (
	keyUserID      = "user_id"
	keyLastRoomID  = "last_room_id"
	keyDisplayName = "display_name"
)

// Session is the persisted membership the client tries to re-establish on
// reload or reconnect.
type Session struct {
	RoomID      string
	DisplayName string
}

// Store hands out a stable user id and remembers the last session. A nil
// key-value store disables persistence: the id is then minted per process
// and recall never succeeds, which callers treat as "no previous session".
type Store struct {
	kv  store.Store
	log *zerolog.Logger

	mu     sync.Mutex
	userID string
}

// New wraps the given key-value store. kv may be nil.
func New(kv store.Store, logger *zerolog.Logger) *Store {
	return &Store{kv: kv, log: logger}
}

// UserID returns the durable client identifier, generating and persisting a
// fresh one on first use. An existing id is never overwritten.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID != "" {
		return s.userID
	}

	if s.kv != nil {
		if id, ok, err := s.kv.Get(keyUserID); err != nil {
			s.log.Warn().Err(err).Msg("read persisted user id")
		} else if ok && id != "" {
			s.userID = id
			return id
		}
	}

	id := uuid.NewString()
	if s.kv != nil {
		if err := s.kv.Set(keyUserID, id); err != nil {
			s.log.Warn().Err(err).Msg("persist user id")
		}
	}
	s.userID = id
	return id
}

// LastSession recalls the persisted room membership, if any.
func (s *Store) LastSession() (Session, bool) {
	if s.kv == nil {
		return Session{}, false
	}

	roomID, ok, err := s.kv.Get(keyLastRoomID)
	if err != nil || !ok || roomID == "" {
		return Session{}, false
	}
	name, _, err := s.kv.Get(keyDisplayName)
	if err != nil || name == "" {
		return Session{}, false
	}
	return Session{RoomID: roomID, DisplayName: name}, true
}

// SaveSession records the session after a successful join or create.
func (s *Store) SaveSession(roomID, displayName string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(keyLastRoomID, roomID); err != nil {
		s.log.Warn().Err(err).Msg("persist room id")
	}
	if err := s.kv.Set(keyDisplayName, displayName); err != nil {
		s.log.Warn().Err(err).Msg("persist display name")
	}
}

// ClearSession drops the persisted session on leave, kick or room deletion.
// The user id is kept.
func (s *Store) ClearSession() {
	if s.kv == nil {
		return
	}
	if err := s.kv.Delete(keyLastRoomID); err != nil {
		s.log.Warn().Err(err).Msg("clear room id")
	}
	if err := s.kv.Delete(keyDisplayName); err != nil {
		s.log.Warn().Err(err).Msg("clear display name")
	}
}
