package sim

import (
	"time"

	"project-hunter/server/internal/vec"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandMove      CommandType = "Move"
	CommandAim       CommandType = "Aim"
	CommandPress     CommandType = "Press"
	CommandRelease   CommandType = "Release"
	CommandCancel    CommandType = "Cancel"
	CommandPickupAll CommandType = "PickupAll"
	CommandHeartbeat CommandType = "Heartbeat"
)

// MoveCommand places the pawn and sets its facing.
type MoveCommand struct {
	Position vec.Vec3 `json:"position"`
	Forward  vec.Vec3 `json:"forward"`
}

// AimCommand carries the client camera. A zero forward detaches the camera so
// detection falls back to the pawn.
type AimCommand struct {
	Origin  vec.Vec3 `json:"origin"`
	Forward vec.Vec3 `json:"forward"`
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	ActorID    string            `json:"actorId"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Move       *MoveCommand      `json:"move,omitempty"`
	Aim        *AimCommand       `json:"aim,omitempty"`
	Heartbeat  *HeartbeatCommand `json:"heartbeat,omitempty"`
}
