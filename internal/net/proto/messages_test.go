package proto

import (
	"encoding/json"
	"testing"

	"project-hunter/server/internal/journal"
	"project-hunter/server/internal/session"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/vec"
)

func TestClientCommand(t *testing.T) {
	t.Run("move command", func(t *testing.T) {
		pos := vec.New(1.5, -0.25, 0)
		fwd := vec.New(0, 1, 0)
		cmd, ok := ClientCommand(ClientMessage{Type: TypeMove, Position: &pos, Forward: &fwd})
		if !ok {
			t.Fatalf("expected move command to be recognized")
		}
		if cmd.Type != sim.CommandMove || cmd.Move == nil {
			t.Fatalf("expected move payload, got %+v", cmd)
		}
		if !cmd.Move.Position.Equal(pos) || !cmd.Move.Forward.Equal(fwd) {
			t.Fatalf("unexpected move payload: %+v", cmd.Move)
		}
	})

	t.Run("move without position", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeMove}); ok {
			t.Fatalf("expected move without a position to be rejected")
		}
	})

	t.Run("aim without forward detaches the camera", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeAim})
		if !ok || cmd.Aim == nil {
			t.Fatalf("expected aim command, got %+v", cmd)
		}
		if !cmd.Aim.Forward.IsZero() {
			t.Fatalf("expected zero forward, got %+v", cmd.Aim.Forward)
		}
	})

	t.Run("edge commands", func(t *testing.T) {
		cases := map[string]sim.CommandType{
			TypePress:     sim.CommandPress,
			TypeRelease:   sim.CommandRelease,
			TypeCancel:    sim.CommandCancel,
			TypePickupAll: sim.CommandPickupAll,
		}
		for msgType, want := range cases {
			cmd, ok := ClientCommand(ClientMessage{Type: msgType})
			if !ok || cmd.Type != want {
				t.Fatalf("%s: expected %s, got %+v", msgType, want, cmd)
			}
		}
	})

	t.Run("heartbeat is not a command", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeHeartbeat}); ok {
			t.Fatalf("expected heartbeat to be handled by the transport")
		}
	})
}

func TestDecodeClientMessageVersion(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"press"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected default version %d, got %d", Version, msg.Ver)
	}
	if _, err := DecodeClientMessage([]byte(`{"ver":9,"type":"press"}`)); err == nil {
		t.Fatalf("expected unsupported version to fail")
	}
	if _, err := DecodeClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected malformed payload to fail")
	}
}

func TestEncodeCommandReject(t *testing.T) {
	data, err := EncodeCommandReject(CommandReject{Seq: 7, Reason: "queue_limit", Retry: true})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame["type"] != typeCommandReject || frame["reason"] != "queue_limit" || frame["retry"] != true {
		t.Fatalf("unexpected reject frame %s", data)
	}
	if _, ok := frame["tick"]; ok {
		t.Fatalf("expected zero tick to be omitted, got %s", data)
	}
}

func TestEncodeUpdate(t *testing.T) {
	update := Update{
		Tick:    12,
		Notices: []session.Notice{{Kind: session.NoticeFocus, TargetID: 3, Text: "Open"}},
		Patches: []journal.Patch{{Kind: journal.PatchGroundItemRemoved, EntityID: 9}},
	}
	if update.Empty() {
		t.Fatalf("expected update to carry content")
	}
	data, err := EncodeUpdate(update)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var frame struct {
		Ver     int              `json:"ver"`
		Type    string           `json:"type"`
		Tick    uint64           `json:"tick"`
		Notices []session.Notice `json:"notices"`
		Patches []journal.Patch  `json:"patches"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if frame.Type != TypeUpdate || frame.Tick != 12 || frame.Ver != Version {
		t.Fatalf("unexpected header %+v", frame)
	}
	if len(frame.Notices) != 1 || frame.Notices[0].Text != "Open" {
		t.Fatalf("unexpected notices %+v", frame.Notices)
	}
	if len(frame.Patches) != 1 || frame.Patches[0].EntityID != 9 {
		t.Fatalf("unexpected patches %+v", frame.Patches)
	}
	if !(Update{Tick: 1}).Empty() {
		t.Fatalf("expected update without notices or patches to be empty")
	}
}

func TestEncodeWelcomeAlwaysCarriesGroundArray(t *testing.T) {
	data, err := EncodeWelcome(Welcome{PlayerID: "p1", Tick: 4})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	ground, ok := frame["ground"].([]any)
	if !ok || len(ground) != 0 {
		t.Fatalf("expected empty ground array, got %v", frame["ground"])
	}
	if frame["playerId"] != "p1" || frame["type"] != TypeWelcome {
		t.Fatalf("unexpected welcome frame %s", data)
	}
}
