package ws

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"project-hunter/server/internal/net/intake"
	"project-hunter/server/internal/net/proto"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/telemetry"
)

const maxMessageBytes = 4096

type subscription interface {
	WriteMessage(messageType int, data []byte) error
	LastCommandSeq() uint64
	StoreLastCommandSeq(seq uint64)
}

type HandlerConfig struct {
	World  *sim.World
	Loop   *sim.Loop
	Hub    *Hub
	Logger telemetry.Logger
	// Spawn places every joining player.
	Spawn sim.PlayerConfig
	Now   func() time.Time
}

// Handler upgrades interaction sockets and feeds their input into the loop.
type Handler struct {
	world    *sim.World
	loop     *sim.Loop
	hub      *Hub
	logger   telemetry.Logger
	spawn    sim.PlayerConfig
	now      func() time.Time
	upgrader websocket.Upgrader
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(logger, nil)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		world:    cfg.World,
		loop:     cfg.Loop,
		hub:      hub,
		logger:   logger,
		spawn:    cfg.Spawn,
		now:      now,
		upgrader: upgrader,
	}
}

// Hub returns the broadcaster the loop should feed.
func (h *Handler) Hub() *Hub { return h.hub }

// Handle joins the caller as a player and serves its socket. The optional id
// query parameter picks the player id; otherwise a ULID is assigned.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.world == nil {
		nethttp.Error(w, "world unavailable", nethttp.StatusServiceUnavailable)
		return
	}
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		playerID = ulid.Make().String()
	}

	if _, err := h.world.AddPlayer(playerID, h.spawn); err != nil {
		if errors.Is(err, sim.ErrDuplicatePlayer) {
			nethttp.Error(w, "player already connected", nethttp.StatusConflict)
			return
		}
		nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		h.world.RemovePlayer(ctx, playerID)
		return
	}
	conn.SetReadLimit(maxMessageBytes)

	sub := h.hub.attach(playerID, conn)
	defer func() {
		h.hub.detach(playerID, sub)
		h.world.RemovePlayer(ctx, playerID)
		conn.Close()
	}()

	data, err := proto.EncodeWelcome(h.welcome(playerID))
	if err != nil {
		h.logger.Printf("failed to marshal welcome for %s: %v", playerID, err)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}

	h.serve(playerID, conn, sub)
}

func (h *Handler) welcome(playerID string) proto.Welcome {
	msg := proto.Welcome{PlayerID: playerID, Tick: h.world.Tick()}
	for _, entry := range h.world.Ground().Entries() {
		item := proto.GroundItem{ID: uint64(entry.ID), Position: entry.Location}
		if entry.Item != nil {
			item.ItemID = entry.Item.ID
			item.Type = string(entry.Item.Type)
			item.Rarity = entry.Item.Rarity.String()
			item.Quantity = entry.Item.Stack
		}
		msg.Ground = append(msg.Ground, item)
	}
	return msg
}

func (h *Handler) serve(playerID string, conn *websocket.Conn, session subscription) {
	stage := intake.CommandContext{
		Engine: h.loop,
		HasPlayer: func(id string) bool {
			_, ok := h.world.Player(id)
			return ok
		},
		Tick: h.world.Tick,
		Now:  h.now,
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		normalizedSeq := uint64(0)
		if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
			normalizedSeq = *msg.CommandSeq
		}

		writeFrame := func(data []byte, err error) bool {
			if err != nil {
				h.logger.Printf("failed to marshal response for %s: %v", playerID, err)
				return true
			}
			return session.WriteMessage(websocket.TextMessage, data) == nil
		}

		if msg.Type == proto.TypeHeartbeat {
			now := h.now()
			var rtt time.Duration
			if msg.SentAt > 0 {
				rtt = now.Sub(time.UnixMilli(msg.SentAt))
				if rtt < 0 {
					rtt = 0
				}
			}
			if rtt > 0 {
				if _, ok, reason := intake.StageHeartbeat(stage, playerID, msg.SentAt, rtt); !ok {
					h.logger.Printf("heartbeat dropped for %s: %s", playerID, reason)
				}
			}
			ack := proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			}
			if !writeFrame(proto.EncodeHeartbeat(ack)) {
				return
			}
			continue
		}

		if normalizedSeq > 0 {
			if last := session.LastCommandSeq(); last > 0 && normalizedSeq <= last {
				if !writeFrame(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq})) {
					return
				}
				continue
			}
		}

		cmd, ok, reason := intake.StageClientCommand(stage, playerID, msg)
		if !ok {
			switch reason {
			case intake.CommandRejectInvalidAction:
				h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
			case intake.CommandRejectUnknownActor:
				h.logger.Printf("command ignored for unknown player %s", playerID)
			}
		}
		if normalizedSeq == 0 {
			continue
		}
		if ok {
			if !writeFrame(proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq, Tick: cmd.OriginTick})) {
				return
			}
			session.StoreLastCommandSeq(normalizedSeq)
			continue
		}
		retry := reason == sim.CommandRejectQueueLimit || reason == sim.CommandRejectQueueFull
		if !writeFrame(proto.EncodeCommandReject(proto.CommandReject{Seq: normalizedSeq, Reason: reason, Retry: retry})) {
			return
		}
	}
}
