package identity

import (
	"testing"

	"github.com/matthiasburger/planningpoker-go/internal/log"
	"github.com/matthiasburger/planningpoker-go/internal/store"
)

func TestUserIDIsStable(t *testing.T) {
	kv := store.NewMemory()
	s := New(kv, log.Nop())

	first := s.UserID()
	second := s.UserID()
	if first == "" {
		t.Fatal("expected a generated user id")
	}
	if first != second {
		t.Fatalf("user id changed: %q vs %q", first, second)
	}

	// A fresh wrapper over the same storage sees the same id.
	again := New(kv, log.Nop()).UserID()
	if again != first {
		t.Fatalf("user id not persisted: %q vs %q", again, first)
	}
}

func TestUserIDNeverOverwritten(t *testing.T) {
	kv := store.NewMemory()
	if err := kv.Set("user_id", "original"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if got := New(kv, log.Nop()).UserID(); got != "original" {
		t.Fatalf("existing id overwritten: %q", got)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := New(store.NewMemory(), log.Nop())

	if _, ok := s.LastSession(); ok {
		t.Fatal("expected no session initially")
	}

	s.SaveSession("R1", "Alice")
	last, ok := s.LastSession()
	if !ok || last.RoomID != "R1" || last.DisplayName != "Alice" {
		t.Fatalf("unexpected session: %+v ok=%v", last, ok)
	}

	s.ClearSession()
	if _, ok := s.LastSession(); ok {
		t.Fatal("session not cleared")
	}
	// Identity survives session teardown.
	if s.UserID() == "" {
		t.Fatal("user id lost on clear")
	}
}

func TestNoPersistenceMode(t *testing.T) {
	s := New(nil, log.Nop())

	if s.UserID() == "" {
		t.Fatal("expected an ephemeral user id")
	}
	if s.UserID() != s.UserID() {
		t.Fatal("ephemeral id must be stable within the process")
	}

	s.SaveSession("R1", "Alice")
	if _, ok := s.LastSession(); ok {
		t.Fatal("recall must never succeed without storage")
	}
	s.ClearSession()
}
