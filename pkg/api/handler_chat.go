package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/pipeline/phases"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// handleChat validates the request, opens the event stream, and runs
// the pipeline to completion. All failures after the stream opens are
// delivered as error records, never as HTTP statuses.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := ValidateChatRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !workspace.ValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	dir, isNew, err := s.store.Ensure(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare workspace"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	bus := events.NewBus(c.Writer)
	defer bus.Close()
	s.registerBus(sessionID, bus)
	defer s.unregisterBus(sessionID)
	bus.Session(sessionID)

	history, err := workspace.LoadHistory(dir)
	if err != nil {
		slog.Warn("Failed to load chat history", "session_id", sessionID, "error", err)
	}

	pc := &pipeline.Context{
		SessionID:    sessionID,
		WorkspaceDir: dir,
		IsNewSession: isNew,
		Messages:     req.Messages,
		History:      history,
		Events:       bus,
		Store:        s.store,
		Serializer:   workspace.NewSerializer(),
		Memory:       workspace.NewMemory(dir),
		Runner:       proc.Runner{},
		DevServers:   s.devServers,
		Provider:     s.provider,
		Executor:     agent.NewExecutor(s.provider, s.cfg.Pipeline.ExecutorTimeout),
		Config:       s.cfg,
	}

	engine := pipeline.NewEngine(phases.All()...)
	if err := engine.Run(c.Request.Context(), pc); err != nil {
		slog.Error("Pipeline ended with error", "session_id", sessionID, "error", err)
	}
}
