// Package web exposes the avatar engine over HTTP and websocket: a
// small REST surface for triggering actions and a status stream for
// dashboards.
package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/carl0967/vrm-chat-space/internal/log"
	"github.com/carl0967/vrm-chat-space/pkg/behavior"
	"github.com/carl0967/vrm-chat-space/pkg/hub"
)

// Engine is the slice of the behavior engine the web layer drives.
type Engine interface {
	ExecuteAction(id string) error
	ExecuteNeck(deg float64) float64
	StartWander()
	StartIdle()
	State() behavior.Snapshot
}

// stateInterval is how often the state snapshot goes out over the
// status stream.
const stateInterval = 100 * time.Millisecond

// Server is the HTTP and websocket front end.
type Server struct {
	app    *fiber.App
	port   string
	engine Engine

	statusHub *hub.Hub

	// log buffer of recent status lines, served on GET /api/status
	lines   []statusLine
	linesMu sync.RWMutex
}

type statusLine struct {
	Time    string `json:"time"`
	Message string `json:"message"`
}

// NewServer creates the web server around an engine.
func NewServer(port string, engine Engine) *Server {
	s := &Server{
		port:      port,
		engine:    engine,
		statusHub: hub.New("status"),
		lines:     make([]statusLine, 0, 200),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Avatar Control",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/status", s.handleStatusLog)
	api.Get("/actions", s.handleListActions)
	api.Post("/action/:id", s.handleAction)
	api.Post("/neck", s.handleNeck)
	api.Post("/mode/:mode", s.handleMode)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// PushStatus records a status line and broadcasts it. Wire this as the
// engine's status sink.
func (s *Server) PushStatus(msg string) {
	s.linesMu.Lock()
	s.lines = append(s.lines, statusLine{
		Time:    time.Now().Format("15:04:05"),
		Message: msg,
	})
	if len(s.lines) > 200 {
		s.lines = s.lines[len(s.lines)-200:]
	}
	s.linesMu.Unlock()

	s.statusHub.BroadcastStatus(msg)
}

// Start runs the hub, the state broadcaster and the listener. It
// blocks until the listener fails or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.broadcastState(ctx)

	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	log.Component("web").Info("listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// broadcastState streams engine snapshots to connected clients.
func (s *Server) broadcastState(ctx context.Context) {
	ticker := time.NewTicker(stateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			data, err := json.Marshal(s.engine.State())
			if err != nil {
				continue
			}
			_ = s.statusHub.Broadcast(hub.StateEvent(data))
		}
	}
}
