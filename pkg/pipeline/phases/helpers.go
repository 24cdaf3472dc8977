package phases

import (
	"encoding/base64"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
)

func newID() string { return uuid.NewString() }

func nowMillis() int64 { return time.Now().UnixMilli() }

// toStoredMessages converts the client's conversation to the persisted
// shape. The history file is rewritten wholesale each turn.
func toStoredMessages(messages []models.ClientMessage) []models.StoredMessage {
	out := make([]models.StoredMessage, 0, len(messages))
	for _, m := range messages {
		ts := m.Timestamp
		if ts == 0 {
			ts = nowMillis()
		}
		id := m.ID
		if id == "" {
			id = newID()
		}
		out = append(out, models.StoredMessage{
			ID:          id,
			Role:        m.Role,
			Content:     m.Content,
			Attachments: m.Attachments,
			Timestamp:   ts,
		})
	}
	return out
}

// saveAttachments decodes the last user message's image attachments,
// stores them under uploads/, and returns them as inline images for
// multimodal calls. Undecodable attachments are skipped.
func saveAttachments(pc *pipeline.Context) []llm.InlineImage {
	last := models.LastUserMessage(pc.Messages)
	if last == nil {
		return nil
	}
	var images []llm.InlineImage
	for _, att := range last.Attachments {
		if att.Type != models.AttachmentTypeImg {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			slog.Warn("Skipping undecodable attachment",
				"session_id", pc.SessionID, "attachment_id", att.ID, "error", err)
			continue
		}
		name := att.Name
		if name == "" {
			name = att.ID
		}
		if _, err := pc.Store.SaveUpload(pc.SessionID, name, data); err != nil {
			slog.Warn("Failed to store attachment",
				"session_id", pc.SessionID, "attachment_id", att.ID, "error", err)
		}
		images = append(images, llm.InlineImage{MimeType: att.MimeType, Data: data})
	}
	return images
}

// languageFor maps a file extension to the display language tag carried
// on file-action events.
func languageFor(filepath string) string {
	switch path.Ext(filepath) {
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".css", ".scss", ".less":
		return "css"
	case ".html":
		return "html"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".svg":
		return "svg"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return "image"
	default:
		return "text"
	}
}

// describeTask renders a plan task for the transparency breakdown.
func describeTask(t models.Task) string {
	switch t.Type {
	case models.TaskCreateFile:
		return "Create " + t.Filepath
	case models.TaskEditFile:
		return "Edit " + t.Filepath
	case models.TaskDeleteFile:
		return "Delete " + t.Filepath
	case models.TaskGenerateImage:
		return "Generate " + t.Filepath
	case models.TaskGitAction:
		return "Run " + t.Command
	default:
		return strings.TrimSpace(t.Type + " " + t.Filepath)
	}
}
