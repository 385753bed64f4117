// Package service is the recognition gateway: the REST surface and the
// WebSocket ingress of the sign-language recognition service.
//
// One shared Recognizer backs every connection. Recognition sockets feed
// frames in and get one event back per message; monitor sockets get a
// read-only copy of every recognition reply and reset acknowledgement.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/signstream/go-signstream/pkg/monitor"
	"github.com/signstream/go-signstream/pkg/recognition"
	"github.com/signstream/go-signstream/pkg/recognizer"
)

// clientConn tracks one connected recognition socket.
type clientConn struct {
	ID        string
	Connected time.Time
}

// Server is the recognition gateway.
type Server struct {
	cfg     *Config
	logger  *slog.Logger
	app     *fiber.App
	rec     *recognizer.Recognizer
	monitor *monitor.Hub

	mu      sync.RWMutex
	clients map[string]clientConn

	// Stats
	framesProcessed atomic.Uint64
	eventsSent      atomic.Uint64
	resets          atomic.Uint64
}

// New creates the gateway around a shared recognizer.
func New(rec *recognizer.Recognizer, opts ...Option) (*Server, error) {
	if rec == nil {
		return nil, ErrNilRecognizer
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "service"),
		rec:     rec,
		monitor: monitor.New(cfg.Logger),
		clients: make(map[string]clientConn),
	}

	app := fiber.New(fiber.Config{
		AppName:               "asl-service",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Get("/status", s.handleStatus)
	app.Post("/reset", s.handleReset)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Post("/upload-video", s.handleUploadVideo)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get(recognition.Path, websocket.New(s.handleRecognition))
	app.Get(recognition.MonitorPath, fiberws.New(s.handleMonitor))

	s.app = app
	return s, nil
}

// Start runs the monitor hub and listens. It blocks until the server
// stops.
func (s *Server) Start() error {
	go s.monitor.Run()
	s.logger.Info("listening", "port", s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ClientCount returns the number of connected recognition clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// MonitorCount returns the number of connected observers.
func (s *Server) MonitorCount() int {
	return s.monitor.ClientCount()
}

// Stats contains service counters.
type Stats struct {
	Clients         int    `json:"clients"`
	Monitors        int    `json:"monitors"`
	FramesProcessed uint64 `json:"frames_processed"`
	EventsSent      uint64 `json:"events_sent"`
	Resets          uint64 `json:"resets"`
}

// GetStats returns a stats snapshot.
func (s *Server) GetStats() Stats {
	return Stats{
		Clients:         s.ClientCount(),
		Monitors:        s.MonitorCount(),
		FramesProcessed: s.framesProcessed.Load(),
		EventsSent:      s.eventsSent.Load(),
		Resets:          s.resets.Load(),
	}
}
