package intake

import (
	"time"

	"project-hunter/server/internal/net/proto"
	"project-hunter/server/internal/sim"
)

const (
	// CommandRejectInvalidAction marks a message that maps to no command.
	CommandRejectInvalidAction = "invalid_action"
	// CommandRejectUnknownActor marks a command from a player not in the world.
	CommandRejectUnknownActor = "unknown_actor"
)

// Enqueuer stages commands for the next tick. *sim.Loop satisfies it.
type Enqueuer interface {
	Enqueue(cmd sim.Command) (bool, string)
}

type CommandContext struct {
	Engine    Enqueuer
	HasPlayer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

func StageClientCommand(ctx CommandContext, playerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, CommandRejectInvalidAction
	}
	return stage(ctx, playerID, command)
}

// StageHeartbeat stages the round-trip measurement for playerID.
func StageHeartbeat(ctx CommandContext, playerID string, clientSent int64, rtt time.Duration) (sim.Command, bool, string) {
	now := time.Now()
	if ctx.Now != nil {
		now = ctx.Now()
	}
	return stage(ctx, playerID, sim.Command{
		Type: sim.CommandHeartbeat,
		Heartbeat: &sim.HeartbeatCommand{
			ReceivedAt: now,
			ClientSent: clientSent,
			RTT:        rtt,
		},
	})
}

func stage(ctx CommandContext, playerID string, command sim.Command) (sim.Command, bool, string) {
	var zero sim.Command

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, CommandRejectUnknownActor
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
