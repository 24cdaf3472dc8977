package api

import (
	"fmt"

	"github.com/appforge/forge/pkg/models"
)

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Messages  []models.ClientMessage `json:"messages"`
	SessionID string                 `json:"sessionId"`
}

// ValidateChatRequest enforces the request limits before any event
// stream is opened: 1..200 messages, each with a known role and content
// of 1..32000 characters.
func ValidateChatRequest(req *ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	if len(req.Messages) > models.MaxMessages {
		return fmt.Errorf("too many messages: %d (max %d)", len(req.Messages), models.MaxMessages)
	}
	for i, m := range req.Messages {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
		if len(m.Content) == 0 {
			return fmt.Errorf("message %d has empty content", i)
		}
		if len(m.Content) > models.MaxContentLength {
			return fmt.Errorf("message %d content exceeds %d characters", i, models.MaxContentLength)
		}
	}
	if models.LastUserMessage(req.Messages) == nil {
		return fmt.Errorf("conversation contains no user message")
	}
	return nil
}
