package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"project-hunter/server/internal/items"
	"project-hunter/server/internal/lootdb"
	"project-hunter/server/internal/lootsys"
	servernet "project-hunter/server/internal/net"
	"project-hunter/server/internal/net/ws"
	"project-hunter/server/internal/sim"
	"project-hunter/server/internal/telemetry"
	"project-hunter/server/internal/vec"
	"project-hunter/server/logging"
	loggingSinks "project-hunter/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Server is the assembled process: event router, world, tick loop, loot
// subsystem and HTTP surface.
type Server struct {
	cfg     Config
	logger  telemetry.Logger
	router  *logging.Router
	metrics *logging.Metrics
	world   *sim.World
	loop    *sim.Loop
	loot    *lootsys.Subsystem
	watcher *lootdb.Watcher
	handler http.Handler
	closers []io.Closer
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	if w == nil {
		w = os.Stdout
	}
	logger.SetOutput(w)
	logger.SetLevel(cfg.logLevel())
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// New wires every component. Nothing runs until Run.
func New(cfg Config, base *logrus.Logger) (*Server, error) {
	if base == nil {
		base = NewLogger(cfg, nil)
	}
	entry := base.WithField("component", "server")
	if cfg.Observability.ServiceName != "" {
		entry = entry.WithField("service", cfg.Observability.ServiceName)
	}
	logger := telemetry.WrapLogrus(entry)

	s := &Server{cfg: cfg, logger: logger, metrics: logging.NewMetrics()}

	logCfg := cfg.loggingConfig()
	var sinks []logging.NamedSink
	if logCfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logCfg.Console)})
	}
	if logCfg.HasSink("json") {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %s: %w", logCfg.JSON.FilePath, err)
		}
		s.closers = append(s.closers, file)
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logCfg.JSON)})
	}
	var recent *loggingSinks.MemorySink
	if logCfg.HasSink("memory") {
		recent = loggingSinks.NewBoundedMemorySink(loggingSinks.DefaultRecentEvents)
		sinks = append(sinks, logging.NamedSink{Name: "memory", Sink: recent})
	}
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logCfg, sinks,
		logging.WithFallback(logger),
		logging.WithMetrics(s.metrics),
	)
	if err != nil {
		s.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	s.router = router
	metrics := telemetry.WrapMetrics(s.metrics)

	s.world = sim.NewWorld(sim.DefaultWorldConfig(), sim.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Clock:     logging.ClockFunc(time.Now),
		Publisher: router,
	})

	loader := lootdb.NewDirLoader(cfg.LootDir)
	registry := lootdb.NewRegistry(loader, cfg.LootRegistry)
	cache := lootdb.NewCache(loader)
	s.loot = lootsys.New(lootsys.DefaultConfig(), registry, cache, items.DefaultCatalog(), s.world.Ground(),
		lootsys.WithPublisher(router),
		lootsys.WithLogger(logger),
		lootsys.WithMetrics(metrics),
		lootsys.WithTick(s.world.Tick),
	)
	if doc, err := registry.Document(); err != nil {
		logger.Printf("loot registry %s: %v", cfg.LootRegistry, err)
	} else if err := lootdb.ValidateDocument(doc, cache); err != nil {
		logger.Printf("loot documents invalid: %v", err)
	}
	if cfg.LootWatchInterval > 0 {
		s.watcher = lootdb.NewWatcher(cfg.LootDir, cfg.LootWatchInterval, s.loot.DocumentChanged)
	}

	hub := ws.NewHub(logger, metrics)
	loopCfg := sim.DefaultLoopConfig()
	loopCfg.TickRate = cfg.TickRate
	s.loop = sim.NewLoop(s.world, loopCfg, sim.LoopHooks{
		AfterStep: hub.Broadcast,
		OnQueueWarning: func(length int) {
			logger.Printf("[backpressure] command queue length=%d", length)
		},
	})

	wsHandler := ws.NewHandler(ws.HandlerConfig{
		World:  s.world,
		Loop:   s.loop,
		Hub:    hub,
		Logger: logger,
		Spawn:  sim.PlayerConfig{Forward: vec.New(1, 0, 0), EyeHeight: 60},
	})
	httpCfg := servernet.HTTPHandlerConfig{
		World:       s.world,
		Loop:        s.loop,
		Loot:        s.loot,
		Router:      router,
		Metrics:     s.metrics,
		WS:          wsHandler,
		Logger:      logger,
		TickRate:    cfg.TickRate,
		EnablePprof: cfg.Observability.EnablePprof,
	}
	if recent != nil {
		httpCfg.Recent = recent
	}
	s.handler = servernet.NewHTTPHandler(httpCfg)
	return s, nil
}

// Handler returns the HTTP surface.
func (s *Server) Handler() http.Handler { return s.handler }

// World returns the simulation world.
func (s *Server) World() *sim.World { return s.world }

// Loot returns the loot subsystem.
func (s *Server) Loot() *lootsys.Subsystem { return s.loot }

// SpawnInitialLoot drops every configured startup source at the origin.
func (s *Server) SpawnInitialLoot(ctx context.Context) int {
	spawn := s.loot.Config().Spawn
	total := 0
	for i, id := range s.cfg.InitialLoot {
		req := lootsys.Request{SourceID: id}
		if s.cfg.WorldSeed != 0 {
			req.Seed = s.cfg.WorldSeed + uint64(i)
		}
		_, spawned := s.loot.GenerateAndSpawn(ctx, req, spawn)
		total += len(spawned)
	}
	if total > 0 {
		s.logger.Printf("spawned %d startup loot items", total)
	}
	return total
}

// Run starts the tick loop, the document watcher and the HTTP server, and
// blocks until ctx is done or the server fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.SpawnInitialLoot(ctx)
	go s.loop.Run(ctx)
	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.handler}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.router.Close(ctx); err != nil {
		s.logger.Printf("failed to close logging router: %v", err)
	}
	s.closeFiles()
}

func (s *Server) closeFiles() {
	for _, c := range s.closers {
		c.Close()
	}
	s.closers = nil
}

// Run loads configuration from the environment and serves until ctx is done.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	srv, err := New(cfg, NewLogger(cfg, os.Stdout))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
