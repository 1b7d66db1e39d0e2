package proto

import (
	"encoding/json"
	"testing"
)

func TestMarshalArgs(t *testing.T) {
	raw, err := MarshalArgs("R1", 42)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) != 2 || string(raw[0]) != `"R1"` || string(raw[1]) != `42` {
		t.Fatalf("unexpected args: %v", raw)
	}

	raw, err = MarshalArgs()
	if err != nil || raw != nil {
		t.Fatalf("expected nil args, got %v err=%v", raw, err)
	}
}

func TestEnvelopeDecodesEventAndResult(t *testing.T) {
	frame := []byte(`{"type":"event","event":"state","data":{"roomId":"R1"}}`)
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != TypeEvent || env.Event != EventState || len(env.Data) == 0 {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	frame = []byte(`{"type":"result","id":"abc","error":{"code":"room_not_found","msg":"nope"}}`)
	env = Envelope{}
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Error == nil || env.Error.Code != "room_not_found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Error.Error() != "room_not_found: nope" {
		t.Fatalf("error string %q", env.Error.Error())
	}
}
