package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/appforge/forge/pkg/models"
)

// Per-session bookkeeping filenames.
const (
	HistoryFilename  = "chat_history.json"
	MetadataFilename = "metadata.json"
)

// SessionMetadata is persisted to metadata.json.
type SessionMetadata struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// LoadHistory reads the session's chat history. A missing file is an
// empty history, not an error.
func LoadHistory(sessionDir string) ([]models.StoredMessage, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, HistoryFilename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	var messages []models.StoredMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse chat history: %w", err)
	}
	return messages, nil
}

// SaveHistory rewrites the chat history atomically.
func SaveHistory(sessionDir string, messages []models.StoredMessage) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	return atomicWrite(filepath.Join(sessionDir, HistoryFilename), data)
}

// LoadMetadata reads metadata.json, nil when absent.
func LoadMetadata(sessionDir string) (*SessionMetadata, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, MetadataFilename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &meta, nil
}

// SaveMetadata writes metadata.json, preserving an existing title when
// the new one is empty.
func SaveMetadata(sessionDir, sessionID, title string) error {
	if title == "" {
		if existing, _ := LoadMetadata(sessionDir); existing != nil {
			title = existing.Title
		}
	}
	meta := SessionMetadata{ID: sessionID, Title: title, Timestamp: time.Now().UnixMilli()}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return atomicWrite(filepath.Join(sessionDir, MetadataFilename), data)
}
