package proto

import (
	"encoding/json"
	"fmt"
)

// Call is the envelope for an invocation sent to the hub. The hub answers
// with an Envelope of type "result" carrying the same ID.
type Call struct {
	Type   string            `json:"type"`
	ID     string            `json:"id"`
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args,omitempty"`
}

// Envelope is the wire frame for everything the hub sends back: invocation
// results and server-pushed events.
type Envelope struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

const (
	TypeCall   = "call"
	TypeResult = "result"
	TypeEvent  = "event"
)

// Hub methods the client invokes.
const (
	MethodCreateAndJoin = "CreateAndJoin"
	MethodJoinRoom      = "JoinRoom"
	MethodLeaveRoom     = "LeaveRoom"
	MethodSetStory      = "SetStory"
	MethodChooseCard    = "ChooseCard"
	MethodReveal        = "Reveal"
	MethodResetRound    = "ResetRound"
	MethodKickUser      = "KickUser"
)

// Events the hub pushes. All but roomDeleted and kicked carry a full room
// snapshot as data.
const (
	EventPresence     = "presence"
	EventState        = "state"
	EventVoteProgress = "voteProgress"
	EventRevealed     = "revealed"
	EventRoomDeleted  = "roomDeleted"
	EventKicked       = "kicked"
)

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// MarshalArgs encodes positional invocation arguments.
func MarshalArgs(args ...any) ([]json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("marshal arg %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}
