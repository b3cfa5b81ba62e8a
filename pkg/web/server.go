// Package web exposes the session controller over HTTP.
//
// Delivery is polling only: the remote controller sits behind an
// intermittent tunnel, so there is no WebSocket push here. GET /api/frame
// returns the newest annotated frame on demand.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/posekit/posecam/internal/log"
	"github.com/posekit/posecam/pkg/session"
)

// Server is the HTTP command surface for one device.
type Server struct {
	app  *fiber.App
	ctrl *session.Controller
	port string
}

// NewServer builds the fiber app and routes. Each endpoint maps 1:1 to a
// controller operation or a delivery-buffer read.
func NewServer(port string, ctrl *session.Controller) *Server {
	s := &Server{ctrl: ctrl, port: port}

	app := fiber.New(fiber.Config{
		AppName:               "posecam",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/session/start", s.handleStart)
	api.Post("/session/stop", s.handleStop)
	api.Post("/recording/start", s.handleStartRecording)
	api.Post("/recording/stop", s.handleStopRecording)
	api.Post("/export", s.handleExport)
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app = app
	return s
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("http server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync serves in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("http server", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
