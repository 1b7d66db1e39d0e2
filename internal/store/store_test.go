package store

import "testing"

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()

	if _, ok, err := m.Get("missing"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}

	if err := m.Set("k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.Set("k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, ok, err := m.Get("k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}

	if err := m.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.Get("k"); ok {
		t.Fatal("key survived delete")
	}
}
