package models

// Message roles accepted from the client.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request limits enforced before the event stream is opened.
const (
	MaxMessages       = 200
	MaxContentLength  = 32_000
	AttachmentTypeImg = "image"
)

// Attachment is an inline image attached to a chat message.
// Data is base64-encoded; MimeType identifies the encoding (e.g. image/png).
type Attachment struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	Name     string `json:"name,omitempty"`
}

// ClientMessage is a single chat turn sent by the browser client.
type ClientMessage struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Status      string       `json:"status,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
}

// StoredMessage is the shape persisted to chat_history.json at end of turn.
// Assistant turns carry the structured artifacts the client replays on reload.
type StoredMessage struct {
	ID                string             `json:"id"`
	Role              string             `json:"role"`
	Content           string             `json:"content"`
	Attachments       []Attachment       `json:"attachments,omitempty"`
	Timestamp         int64              `json:"timestamp"`
	Transparency      []TransparencyTask `json:"transparency,omitempty"`
	ServerFileActions []FileAction       `json:"serverFileActions,omitempty"`
	GitActions        []GitResult        `json:"gitActions,omitempty"`
	Summary           string             `json:"summary,omitempty"`
}

// LastUserContent returns the content of the most recent user message,
// or "" if the conversation contains none.
func LastUserContent(messages []ClientMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// LastUserMessage returns the most recent user message, or nil.
func LastUserMessage(messages []ClientMessage) *ClientMessage {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return &messages[i]
		}
	}
	return nil
}
