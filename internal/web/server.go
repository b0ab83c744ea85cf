// Package web exposes a read-only HTTP API over the local attendance data
// plus a sync trigger. It replaces the desktop viewer windows of earlier
// deployments; sessions themselves stay on the CLI.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/syncer"
)

// Server serves the attendance API.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	roster     *store.Roster
	sync       *syncer.Syncer
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, host string, port int, roster *store.Roster, sync *syncer.Syncer) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
		roster: roster,
		sync:   sync,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/v1/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/students", s.handleStudents)
		r.Get("/attendance", s.handleAttendanceSubjects)
		r.Get("/attendance/{subject}", s.handleAttendanceList)
		r.Get("/attendance/{subject}/{file}", s.handleAttendanceFile)
		r.Get("/sync/pending", s.handleSyncPending)
		r.Post("/sync", s.handleSyncRun)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	log.Printf("Starting attendance API on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down attendance API...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
