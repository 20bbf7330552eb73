package net

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"project-hunter/server/internal/loot"
	"project-hunter/server/internal/lootsys"
	"project-hunter/server/internal/net/ws"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/telemetry"
	"project-hunter/server/logging"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// RecentEvents exposes the most recent gameplay events.
type RecentEvents interface {
	Events() []logging.Event
}

type HTTPHandlerConfig struct {
	World    *sim.World
	Loop     *sim.Loop
	Loot     *lootsys.Subsystem
	Router   *logging.Router
	Metrics  *logging.Metrics
	WS       *ws.Handler
	Recent   RecentEvents
	Logger   telemetry.Logger
	TickRate int
	// EnablePprof mounts net/http/pprof under /debug/pprof/.
	EnablePprof bool
	Now         func() time.Time
}

// generateRequest is the JSON form of lootsys.Request. Only the override fields
// present in the body replace source settings.
type generateRequest struct {
	SourceID    string          `json:"sourceId"`
	Seed        uint64          `json:"seed"`
	Overrides   json.RawMessage `json:"overrides"`
	Luck        float64         `json:"luck"`
	MagicFind   float64         `json:"magicFind"`
	PlayerCount int             `json:"playerCount"`
	Spawn       json.RawMessage `json:"spawn"`
}

func (g generateRequest) request() (lootsys.Request, error) {
	req := lootsys.Request{
		SourceID:    g.SourceID,
		Seed:        g.Seed,
		Luck:        g.Luck,
		MagicFind:   g.MagicFind,
		PlayerCount: g.PlayerCount,
	}
	if len(g.Overrides) > 0 && string(g.Overrides) != "null" {
		var overrides loot.DropOverrides
		if err := json.Unmarshal(g.Overrides, &overrides); err != nil {
			return req, err
		}
		req.Overrides = &overrides
	}
	return req, nil
}

func NewHTTPHandler(cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string `json:"status"`
			ServerTime  int64  `json:"serverTime"`
			TickRate    int    `json:"tickRate"`
			Tick        uint64 `json:"tick"`
			Pending     int    `json:"pendingCommands"`
			Subscribers int    `json:"subscribers"`
			Players     any    `json:"players"`
			Ground      int    `json:"groundItems"`
			Loot        any    `json:"loot,omitempty"`
			Logging     any    `json:"logging,omitempty"`
			Telemetry   any    `json:"telemetry,omitempty"`
			Recent      any    `json:"recentEvents,omitempty"`
		}{
			Status:     "ok",
			ServerTime: now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Pending:    cfg.Loop.Pending(),
			Players:    map[string]any{},
		}
		if cfg.World != nil {
			payload.Tick = cfg.World.Tick()
			payload.Players = cfg.World.Diagnostics()
			payload.Ground = cfg.World.Ground().Len()
		}
		if cfg.WS != nil {
			payload.Subscribers = cfg.WS.Hub().Count()
		}
		if cfg.Loot != nil {
			payload.Loot = struct {
				Sources int `json:"sources"`
				Cache   any `json:"cache"`
			}{
				Sources: len(cfg.Loot.SourceIDs()),
				Cache:   cfg.Loot.CacheStats(),
			}
		}
		if cfg.Router != nil {
			payload.Logging = cfg.Router.Stats()
		}
		if cfg.Metrics != nil {
			payload.Telemetry = cfg.Metrics.Snapshot()
		}
		if cfg.Recent != nil {
			payload.Recent = cfg.Recent.Events()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/loot/generate", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Loot == nil {
			httpError(w, "loot unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		body, ok := decodeGenerate(w, r)
		if !ok {
			return
		}
		req, err := body.request()
		if err != nil {
			httpError(w, "invalid overrides", nethttp.StatusBadRequest)
			return
		}
		batch := cfg.Loot.Generate(r.Context(), req)
		writeJSON(w, nethttp.StatusOK, struct {
			Batch loot.Batch `json:"batch"`
		}{Batch: batch})
	})

	mux.HandleFunc("/loot/spawn", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Loot == nil {
			httpError(w, "loot unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		body, ok := decodeGenerate(w, r)
		if !ok {
			return
		}
		req, err := body.request()
		if err != nil {
			httpError(w, "invalid overrides", nethttp.StatusBadRequest)
			return
		}
		spawn := cfg.Loot.Config().Spawn
		if len(body.Spawn) > 0 && string(body.Spawn) != "null" {
			if err := json.Unmarshal(body.Spawn, &spawn); err != nil {
				httpError(w, "invalid spawn settings", nethttp.StatusBadRequest)
				return
			}
		}
		batch, spawned := cfg.Loot.GenerateAndSpawn(r.Context(), req, spawn)
		if spawned == nil {
			spawned = []lootsys.Spawned{}
		}
		writeJSON(w, nethttp.StatusOK, struct {
			Batch   loot.Batch        `json:"batch"`
			Spawned []lootsys.Spawned `json:"spawned"`
		}{Batch: batch, Spawned: spawned})
	})

	mux.HandleFunc("/loot/sources", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		ids := []string{}
		if cfg.Loot != nil {
			if listed := cfg.Loot.SourceIDs(); listed != nil {
				ids = listed
			}
		}
		writeJSON(w, nethttp.StatusOK, struct {
			Sources []string `json:"sources"`
		}{Sources: ids})
	})

	mux.HandleFunc("/loot/sources/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Loot == nil {
			httpError(w, "loot unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		entry, ok := cfg.Loot.SourceEntry(r.PathValue("id"))
		if !ok {
			httpError(w, "unknown source", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, nethttp.StatusOK, entry)
	})

	mux.HandleFunc("/loot/preload", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Loot == nil {
			httpError(w, "loot unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		var req struct {
			Sources []string `json:"sources"`
		}
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
			if err := decoder.Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		ids := req.Sources
		if len(ids) == 0 {
			ids = cfg.Loot.SourceIDs()
		}
		response := struct {
			Status  string `json:"status"`
			Sources int    `json:"sources"`
			Error   string `json:"error,omitempty"`
			Cache   any    `json:"cache"`
		}{Status: "ok", Sources: len(ids)}
		status := nethttp.StatusOK
		if err := cfg.Loot.Preload(ids); err != nil {
			logger.Printf("loot preload: %v", err)
			response.Status = "error"
			response.Error = err.Error()
			status = nethttp.StatusUnprocessableEntity
		}
		response.Cache = cfg.Loot.CacheStats()
		writeJSON(w, status, response)
	})

	mux.HandleFunc("/loot/cache/clear", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		if cfg.Loot == nil {
			httpError(w, "loot unavailable", nethttp.StatusServiceUnavailable)
			return
		}
		cfg.Loot.ClearCache()
		writeJSON(w, nethttp.StatusOK, struct {
			Status string `json:"status"`
			Cache  any    `json:"cache"`
		}{Status: "ok", Cache: cfg.Loot.CacheStats()})
	})

	if cfg.WS != nil {
		mux.HandleFunc("/ws", cfg.WS.Handle)
	}

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func decodeGenerate(w nethttp.ResponseWriter, r *nethttp.Request) (generateRequest, bool) {
	var body generateRequest
	if r.Body == nil {
		httpError(w, "missing payload", nethttp.StatusBadRequest)
		return body, false
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return body, false
	}
	if body.SourceID == "" {
		httpError(w, "missing sourceId", nethttp.StatusBadRequest)
		return body, false
	}
	return body, true
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
