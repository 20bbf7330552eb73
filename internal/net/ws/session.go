package ws

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"project-hunter/server/internal/net/proto"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/telemetry"
)

const writeWait = 5 * time.Second

// subscriber serialises writes to one player's socket.
type subscriber struct {
	conn *websocket.Conn

	mu             sync.Mutex
	lastCommandSeq atomic.Uint64
}

func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *subscriber) LastCommandSeq() uint64 { return s.lastCommandSeq.Load() }

func (s *subscriber) StoreLastCommandSeq(seq uint64) { s.lastCommandSeq.Store(seq) }

// Hub fans tick results out to connected players.
type Hub struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewHub builds an empty hub.
func NewHub(logger telemetry.Logger, metrics telemetry.Metrics) *Hub {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Hub{logger: logger, metrics: metrics, subs: make(map[string]*subscriber)}
}

func (h *Hub) attach(playerID string, conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subs[playerID] = sub
	h.metrics.Store("ws_subscribers", uint64(len(h.subs)))
	h.mu.Unlock()
	return sub
}

func (h *Hub) detach(playerID string, sub *subscriber) {
	h.mu.Lock()
	if current, ok := h.subs[playerID]; ok && current == sub {
		delete(h.subs, playerID)
	}
	h.metrics.Store("ws_subscribers", uint64(len(h.subs)))
	h.mu.Unlock()
}

// Count reports the number of connected players.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast sends every player its own notices plus the tick's ground
// patches. A failed write closes the socket; the read loop then cleans up.
func (h *Hub) Broadcast(result sim.LoopStepResult) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	subs := make(map[string]*subscriber, len(h.subs))
	for id, sub := range h.subs {
		subs[id] = sub
	}
	h.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		update := proto.Update{
			Tick:    result.Tick,
			Notices: result.Step.Notices[id],
			Patches: result.Step.Patches,
		}
		if update.Empty() {
			continue
		}
		data, err := proto.EncodeUpdate(update)
		if err != nil {
			h.logger.Printf("failed to marshal update for %s: %v", id, err)
			continue
		}
		sub := subs[id]
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("dropping subscriber %s: %v", id, err)
			sub.conn.Close()
			continue
		}
		h.metrics.Add("ws_updates_sent_total", 1)
		h.metrics.Add("ws_bytes_sent_total", uint64(len(data)))
	}
}
