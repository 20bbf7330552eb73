package intake

import (
	"testing"
	"time"

	"project-hunter/server/internal/net/proto"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/vec"
)

type fakeEngine struct {
	enqueueOK     bool
	enqueueReason string
	commands      []sim.Command
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	f.commands = append(f.commands, cmd)
	if f.enqueueOK {
		return true, ""
	}
	if f.enqueueReason == "" {
		f.enqueueReason = sim.CommandRejectQueueLimit
	}
	return false, f.enqueueReason
}

func TestStageClientCommandAcceptsMove(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{
		Engine:    engine,
		HasPlayer: func(id string) bool { return id == "player-1" },
		Tick:      func() uint64 { return 42 },
		Now:       func() time.Time { return issuedAt },
	}

	pos := vec.New(10, 20, 0)
	msg := proto.ClientMessage{Type: proto.TypeMove, Position: &pos}
	cmd, ok, reason := StageClientCommand(ctx, "player-1", msg)
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.ActorID != "player-1" {
		t.Fatalf("expected ActorID to be set, got %q", cmd.ActorID)
	}
	if cmd.OriginTick != 42 {
		t.Fatalf("expected OriginTick to be 42, got %d", cmd.OriginTick)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if cmd.Move == nil || !cmd.Move.Position.Equal(pos) {
		t.Fatalf("expected move payload at %+v, got %+v", pos, cmd.Move)
	}
	if len(engine.commands) != 1 {
		t.Fatalf("expected engine to record command, got %d", len(engine.commands))
	}
}

func TestStageClientCommandRejectsUnknownPlayer(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	ctx := CommandContext{
		Engine:    engine,
		HasPlayer: func(string) bool { return false },
		Tick:      func() uint64 { return 1 },
		Now:       func() time.Time { return time.Unix(0, 0) },
	}

	_, ok, reason := StageClientCommand(ctx, "missing", proto.ClientMessage{Type: proto.TypePress})
	if ok {
		t.Fatalf("expected rejection for missing player")
	}
	if reason != CommandRejectUnknownActor {
		t.Fatalf("expected reason %q, got %q", CommandRejectUnknownActor, reason)
	}
	if len(engine.commands) != 0 {
		t.Fatalf("expected nothing staged, got %d", len(engine.commands))
	}
}

func TestStageClientCommandRejectsInvalidAction(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	ctx := CommandContext{
		Engine:    engine,
		HasPlayer: func(string) bool { return true },
	}

	for _, msg := range []proto.ClientMessage{
		{Type: "dance"},
		{Type: proto.TypeMove},
	} {
		_, ok, reason := StageClientCommand(ctx, "player-1", msg)
		if ok {
			t.Fatalf("expected rejection for %+v", msg)
		}
		if reason != CommandRejectInvalidAction {
			t.Fatalf("expected reason %q, got %q", CommandRejectInvalidAction, reason)
		}
	}
}

func TestStageClientCommandPropagatesEngineReason(t *testing.T) {
	engine := &fakeEngine{enqueueOK: false, enqueueReason: sim.CommandRejectQueueLimit}
	ctx := CommandContext{
		Engine:    engine,
		HasPlayer: func(string) bool { return true },
	}

	_, ok, reason := StageClientCommand(ctx, "player-1", proto.ClientMessage{Type: proto.TypeRelease})
	if ok {
		t.Fatalf("expected rejection from engine")
	}
	if reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected engine reason %q, got %q", sim.CommandRejectQueueLimit, reason)
	}
}

func TestStageClientCommandHandlesNilEngine(t *testing.T) {
	ctx := CommandContext{HasPlayer: func(string) bool { return true }}

	_, ok, reason := StageClientCommand(ctx, "player-1", proto.ClientMessage{Type: proto.TypeCancel})
	if ok {
		t.Fatalf("expected rejection when engine is nil")
	}
	if reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected reason %q, got %q", sim.CommandRejectQueueFull, reason)
	}
}

func TestStageHeartbeatCarriesRTT(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	received := time.Unix(50, 0)
	ctx := CommandContext{
		Engine: engine,
		Now:    func() time.Time { return received },
	}

	cmd, ok, _ := StageHeartbeat(ctx, "player-1", 49_900, 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected heartbeat to be staged")
	}
	if cmd.Type != sim.CommandHeartbeat || cmd.Heartbeat == nil {
		t.Fatalf("expected heartbeat command, got %+v", cmd)
	}
	if cmd.Heartbeat.RTT != 100*time.Millisecond || cmd.Heartbeat.ClientSent != 49_900 {
		t.Fatalf("unexpected heartbeat payload %+v", cmd.Heartbeat)
	}
	if !cmd.Heartbeat.ReceivedAt.Equal(received) {
		t.Fatalf("expected ReceivedAt %v, got %v", received, cmd.Heartbeat.ReceivedAt)
	}
}

func TestStageClientCommandMapsInteractionMessages(t *testing.T) {
	origin := vec.New(0, 0, 1.7)
	forward := vec.New(0, 1, 0)
	cases := []struct {
		msg  proto.ClientMessage
		want sim.CommandType
	}{
		{proto.ClientMessage{Type: proto.TypeAim, Origin: &origin, Forward: &forward}, sim.CommandAim},
		{proto.ClientMessage{Type: proto.TypePress}, sim.CommandPress},
		{proto.ClientMessage{Type: proto.TypeRelease}, sim.CommandRelease},
		{proto.ClientMessage{Type: proto.TypeCancel}, sim.CommandCancel},
		{proto.ClientMessage{Type: proto.TypePickupAll}, sim.CommandPickupAll},
	}
	for _, tc := range cases {
		engine := &fakeEngine{enqueueOK: true}
		cmd, ok, reason := StageClientCommand(CommandContext{Engine: engine}, "player-1", tc.msg)
		if !ok || reason != "" {
			t.Fatalf("%s: expected staged command, got reason %q", tc.msg.Type, reason)
		}
		if cmd.Type != tc.want || cmd.ActorID != "player-1" {
			t.Fatalf("%s: unexpected command %+v", tc.msg.Type, cmd)
		}
	}

	engine := &fakeEngine{enqueueOK: true}
	cmd, _, _ := StageClientCommand(CommandContext{Engine: engine}, "player-1", cases[0].msg)
	if cmd.Aim == nil || !cmd.Aim.Origin.Equal(origin) || !cmd.Aim.Forward.Equal(forward) {
		t.Fatalf("expected aim payload, got %+v", cmd.Aim)
	}

	if _, ok, reason := StageClientCommand(CommandContext{Engine: engine}, "player-1", proto.ClientMessage{Type: proto.TypeMove}); ok || reason != CommandRejectInvalidAction {
		t.Fatalf("expected move without position rejected, got %v %q", ok, reason)
	}
}

func TestStagedAimFramesCoalesceInLoop(t *testing.T) {
	world := sim.NewWorld(sim.DefaultWorldConfig(), sim.Deps{})
	loop := sim.NewLoop(world, sim.LoopConfig{CommandCapacity: 4, PerActorLimit: 1}, sim.LoopHooks{})
	ctx := CommandContext{Engine: loop}

	for i := 0; i < 3; i++ {
		forward := vec.New(float64(i), 1, 0)
		msg := proto.ClientMessage{Type: proto.TypeAim, Forward: &forward}
		if _, ok, reason := StageClientCommand(ctx, "player-1", msg); !ok {
			t.Fatalf("aim %d rejected: %q", i, reason)
		}
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected aim frames collapsed into one command, got %d", loop.Pending())
	}
	if _, ok, reason := StageClientCommand(ctx, "player-1", proto.ClientMessage{Type: proto.TypePress}); ok || reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected press throttled, got %v %q", ok, reason)
	}
}
