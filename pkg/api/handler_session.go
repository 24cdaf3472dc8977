package api

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/appforge/forge/pkg/workspace"
)

// SessionInfo is one entry of the session listing.
type SessionInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// handleListSessions lists sessions from their metadata files, newest
// first. Directories without metadata (never completed a turn) still
// appear with an empty title.
func (s *Server) handleListSessions(c *gin.Context) {
	entries, err := os.ReadDir(s.store.Root())
	if os.IsNotExist(err) {
		c.JSON(http.StatusOK, gin.H{"sessions": []SessionInfo{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read workspace root"})
		return
	}

	sessions := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !workspace.ValidSessionID(entry.Name()) {
			continue
		}
		info := SessionInfo{ID: entry.Name()}
		if meta, _ := workspace.LoadMetadata(filepath.Join(s.store.Root(), entry.Name())); meta != nil {
			info.Title = meta.Title
			info.Timestamp = meta.Timestamp
		}
		sessions = append(sessions, info)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Timestamp > sessions[j].Timestamp })
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// handleSessionFiles lists the session's files.
func (s *Server) handleSessionFiles(c *gin.Context) {
	id := c.Param("id")
	if !workspace.ValidSessionID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	files, err := s.store.ListFiles(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// handleSessionFile returns one file's text content.
func (s *Server) handleSessionFile(c *gin.Context) {
	id := c.Param("id")
	rel := c.Query("path")
	if !workspace.ValidSessionID(id) || rel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id or path"})
		return
	}
	content, found, err := s.store.ReadFile(id, rel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": rel, "content": content})
}

// handleStopSession interrupts the session's in-flight generation. The
// pipeline notices the dead bus between phases and stops; files already
// written stay on disk.
func (s *Server) handleStopSession(c *gin.Context) {
	id := c.Param("id")
	if !workspace.ValidSessionID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	bus, ok := s.activeBus(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active generation for session"})
		return
	}
	bus.Interrupt(id)
	c.JSON(http.StatusOK, gin.H{"stopped": id})
}

// handleDeleteSession stops the session's dev server and removes its
// workspace.
func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !workspace.ValidSessionID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	s.devServers.Stop(id)
	if err := s.store.Remove(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
