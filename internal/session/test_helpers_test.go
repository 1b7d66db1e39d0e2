package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/matthiasburger/planningpoker-go/internal/identity"
	"github.com/matthiasburger/planningpoker-go/internal/log"
	"github.com/matthiasburger/planningpoker-go/internal/store"
)

type fakeCall struct {
	Method string
	Args   []any
}

// fakeTransport is an in-memory Transport: canned results per method, a
// recorded call log, and direct access to the bound handler set so tests
// can push events and fire reconnect callbacks.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]func(json.RawMessage)
	calls    []fakeCall
	results  map[string]json.RawMessage
	errs     map[string]error
	binds    int
	starts   int
	startErr error

	onReconnecting func()
	onReconnected  func()
	onDisconnected func()
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		results: make(map[string]json.RawMessage),
		errs:    make(map[string]error),
	}
}

func (f *fakeTransport) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeTransport) Invoke(_ context.Context, method string, args ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Method: method, Args: args})
	res := f.results[method]
	err := f.errs[method]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakeTransport) Bind(handlers map[string]func(data json.RawMessage)) {
	f.mu.Lock()
	f.handlers = handlers
	f.binds++
	f.mu.Unlock()
}

func (f *fakeTransport) OnReconnecting(fn func()) { f.onReconnecting = fn }
func (f *fakeTransport) OnReconnected(fn func())  { f.onReconnected = fn }
func (f *fakeTransport) OnDisconnected(fn func()) { f.onDisconnected = fn }
func (f *fakeTransport) Close() error             { return nil }

// push delivers an event to the currently bound handler, like the read
// goroutine would.
func (f *fakeTransport) push(t *testing.T, event string, v any) {
	t.Helper()

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}

	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()

	if h == nil {
		t.Fatalf("no handler bound for event %q", event)
	}
	h(raw)
}

// dropAndReconnect simulates a connection drop followed by a successful
// reconnect.
func (f *fakeTransport) dropAndReconnect() {
	f.onReconnecting()
	f.onReconnected()
}

func (f *fakeTransport) callLog() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeTransport) resetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// waitForCall polls until a call with the given method shows up.
func (f *fakeTransport) waitForCall(t *testing.T, method string) fakeCall {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range f.callLog() {
			if c.Method == method {
				return c
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected call to %s not observed", method)
	return fakeCall{}
}

func newTestManager(t *testing.T) (*Manager, *fakeTransport, *identity.Store) {
	t.Helper()

	tr := newFakeTransport()
	ids := identity.New(store.NewMemory(), log.Nop())
	m := New(tr, ids, log.Nop())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return m, tr, ids
}

// mustNotice drains one user-visible message with a deadline.
func mustNotice(t *testing.T, m *Manager) string {
	t.Helper()

	select {
	case msg := <-m.Notices():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notice")
		return ""
	}
}
