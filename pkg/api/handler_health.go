package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/appforge/forge/pkg/version"
)

// handleHealth reports service liveness plus the state of the two
// dependencies every request needs: the workspace root and the LLM
// provider.
func (s *Server) handleHealth(c *gin.Context) {
	workspaceOK := true
	if _, err := os.Stat(s.store.Root()); err != nil {
		workspaceOK = false
	}

	status := "ok"
	code := http.StatusOK
	if !workspaceOK || s.provider == nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":              status,
		"version":             version.Full(),
		"workspace_root":      workspaceOK,
		"provider_configured": s.provider != nil,
	})
}
