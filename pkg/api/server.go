// Package api is the HTTP surface: the chat endpoint that runs the
// pipeline over an SSE stream, plus session and health endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appforge/forge/pkg/config"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// Server wires the router to the pipeline's collaborators.
type Server struct {
	cfg        *config.Config
	store      *workspace.Store
	provider   llm.Provider
	devServers *proc.DevServerManager
	httpServer *http.Server

	mu     sync.Mutex
	active map[string]*events.Bus // in-flight generation per session
}

// NewServer builds the server and its routes.
func NewServer(cfg *config.Config, store *workspace.Store, provider llm.Provider, devServers *proc.DevServerManager) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		provider:   provider,
		devServers: devServers,
		active:     make(map[string]*events.Bus),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(Recovery(), RequestLogger(), CORS(cfg.Server.AllowedOrigins))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", s.handleHealth)
		apiGroup.POST("/chat", s.handleChat)
		apiGroup.GET("/sessions", s.handleListSessions)
		apiGroup.GET("/sessions/:id/files", s.handleSessionFiles)
		apiGroup.GET("/sessions/:id/file", s.handleSessionFile)
		apiGroup.DELETE("/sessions/:id", s.handleDeleteSession)
		apiGroup.POST("/sessions/:id/stop", s.handleStopSession)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// registerBus records the session's in-flight event stream so a stop
// request can interrupt it. A second chat on the same session replaces
// the entry; the previous stream keeps running but can no longer be
// stopped remotely.
func (s *Server) registerBus(sessionID string, bus *events.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sessionID] = bus
}

func (s *Server) unregisterBus(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
}

func (s *Server) activeBus(sessionID string) (*events.Bus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bus, ok := s.active[sessionID]
	return bus, ok
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the dev servers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.devServers.StopAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	return nil
}
