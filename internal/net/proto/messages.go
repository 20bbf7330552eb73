package proto

import (
	"encoding/json"
	"fmt"

	"project-hunter/server/internal/journal"
	"project-hunter/server/internal/session"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/vec"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeWelcome       = "welcome"
	typeUpdate        = "update"
)

// Client message type identifiers.
const (
	TypeMove      = "move"
	TypeAim       = "aim"
	TypePress     = "press"
	TypeRelease   = "release"
	TypeCancel    = "cancel"
	TypePickupAll = "pickupAll"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeWelcome = typeWelcome
	TypeUpdate  = typeUpdate
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int       `json:"ver,omitempty"`
	Type       string    `json:"type"`
	Position   *vec.Vec3 `json:"position,omitempty"`
	Origin     *vec.Vec3 `json:"origin,omitempty"`
	Forward    *vec.Vec3 `json:"forward,omitempty"`
	SentAt     int64     `json:"sentAt"`
	CommandSeq *uint64   `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the structured simulation command carried by a
// websocket message. Origin metadata is populated when the command is staged.
// Heartbeats are not commands; the transport turns them into one after
// measuring the round trip.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeMove:
		if msg.Position == nil {
			return sim.Command{}, false
		}
		move := &sim.MoveCommand{Position: *msg.Position}
		if msg.Forward != nil {
			move.Forward = *msg.Forward
		}
		return sim.Command{Type: sim.CommandMove, Move: move}, true
	case TypeAim:
		aim := &sim.AimCommand{}
		if msg.Origin != nil {
			aim.Origin = *msg.Origin
		}
		if msg.Forward != nil {
			aim.Forward = *msg.Forward
		}
		return sim.Command{Type: sim.CommandAim, Aim: aim}, true
	case TypePress:
		return sim.Command{Type: sim.CommandPress}, true
	case TypeRelease:
		return sim.Command{Type: sim.CommandRelease}, true
	case TypeCancel:
		return sim.Command{Type: sim.CommandCancel}, true
	case TypePickupAll:
		return sim.Command{Type: sim.CommandPickupAll}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// GroundItem is one ground item in the welcome snapshot.
type GroundItem struct {
	ID       uint64   `json:"id"`
	ItemID   string   `json:"itemId"`
	Type     string   `json:"type"`
	Rarity   string   `json:"rarity"`
	Quantity int      `json:"qty"`
	Position vec.Vec3 `json:"position"`
}

// Welcome is the first frame sent after the socket opens.
type Welcome struct {
	PlayerID string
	Tick     uint64
	Ground   []GroundItem
}

// EncodeWelcome renders the join payload.
func EncodeWelcome(msg Welcome) ([]byte, error) {
	ground := msg.Ground
	if ground == nil {
		ground = []GroundItem{}
	}
	frame := struct {
		Ver      int          `json:"ver"`
		Type     string       `json:"type"`
		PlayerID string       `json:"playerId"`
		Tick     uint64       `json:"tick"`
		Ground   []GroundItem `json:"ground"`
	}{
		Ver:      Version,
		Type:     typeWelcome,
		PlayerID: msg.PlayerID,
		Tick:     msg.Tick,
		Ground:   ground,
	}
	return json.Marshal(frame)
}

// Update carries one tick's session notices and ground patches for a player.
type Update struct {
	Tick    uint64
	Notices []session.Notice
	Patches []journal.Patch
}

// Empty reports whether the update has nothing to send.
func (u Update) Empty() bool {
	return len(u.Notices) == 0 && len(u.Patches) == 0
}

// EncodeUpdate renders a per-tick update payload.
func EncodeUpdate(msg Update) ([]byte, error) {
	frame := struct {
		Ver     int              `json:"ver"`
		Type    string           `json:"type"`
		Tick    uint64           `json:"tick"`
		Notices []session.Notice `json:"notices,omitempty"`
		Patches []journal.Patch  `json:"patches,omitempty"`
	}{
		Ver:     Version,
		Type:    typeUpdate,
		Tick:    msg.Tick,
		Notices: msg.Notices,
		Patches: msg.Patches,
	}
	return json.Marshal(frame)
}
