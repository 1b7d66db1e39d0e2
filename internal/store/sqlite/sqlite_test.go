package sqlite

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()

	s, err := New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "state.db"))

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}

	if err := s.Set("user_id", "u1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("user_id", "u2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	v, ok, err := s.Get("user_id")
	if err != nil || !ok || v != "u2" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}

	if err := s.Delete("user_id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get("user_id"); ok {
		t.Fatal("key survived delete")
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first := newTestStore(t, path)
	if err := first.Set("last_room_id", "R1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := newTestStore(t, path)
	v, ok, err := second.Get("last_room_id")
	if err != nil || !ok || v != "R1" {
		t.Fatalf("got %q ok=%v err=%v after reopen", v, ok, err)
	}
}
