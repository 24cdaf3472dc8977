package events

import "github.com/appforge/forge/pkg/models"

// SessionPayload is the payload for session records.
// Emitted first so the client learns its session ID.
type SessionPayload struct {
	Type      string `json:"type"` // always EventTypeSession
	SessionID string `json:"sessionId"`
}

// PhasePayload is the payload for phase records.
// Published on every phase transition, before the first downstream event
// of the new phase.
type PhasePayload struct {
	Type      string `json:"type"`  // always EventTypePhase
	Phase     string `json:"phase"` // thinking, planning, installing, ...
	Detail    string `json:"detail,omitempty"`
	Thought   string `json:"thought,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Agent     string `json:"agent,omitempty"`
}

// DeltaPayload is a chunk of prose streamed to the chat transcript.
type DeltaPayload struct {
	Type  string `json:"type"` // always EventTypeDelta
	Text  string `json:"text"`
	Agent string `json:"agent,omitempty"`
}

// TransparencyPayload carries the full task breakdown. Re-emitted on
// every status change; the client replaces its copy wholesale.
type TransparencyPayload struct {
	Type string                    `json:"type"` // always EventTypeTransparency
	Data []models.TransparencyTask `json:"data"`
}

// FileActionPayload wraps a file mutation record.
type FileActionPayload struct {
	Type string `json:"type"` // always EventTypeFileAction
	models.FileAction
}

// GitResultPayload wraps a terminal command result.
type GitResultPayload struct {
	Type string `json:"type"` // always EventTypeGitResult
	models.GitResult
}

// PreviewPayload announces the dev-server URL.
type PreviewPayload struct {
	Type string `json:"type"` // always EventTypePreview
	URL  string `json:"url"`
}

// MetadataPayload carries session metadata updates (currently the title).
type MetadataPayload struct {
	Type string       `json:"type"` // always EventTypeMetadata
	Data MetadataData `json:"data"`
}

// MetadataData is the inner metadata object.
type MetadataData struct {
	Title string `json:"title,omitempty"`
}

// SummaryPayload is the end-of-turn summary text.
type SummaryPayload struct {
	Type  string `json:"type"` // always EventTypeSummary
	Text  string `json:"text"`
	Agent string `json:"agent,omitempty"`
}

// AgentStartPayload marks the start of a named agent's turn.
type AgentStartPayload struct {
	Type  string `json:"type"` // always EventTypeAgentStart
	Agent string `json:"agent"`
	Name  string `json:"name"`
}

// AgentEndPayload closes a named agent's turn.
type AgentEndPayload struct {
	Type  string `json:"type"` // always EventTypeAgentEnd
	Agent string `json:"agent"`
}

// ErrorPayload is the terminal error record.
type ErrorPayload struct {
	Type    string `json:"type"` // always EventTypeError
	Message string `json:"message"`
}

// DonePayload is the terminal success record.
type DonePayload struct {
	Type      string `json:"type"` // always EventTypeDone
	Usage     Usage  `json:"usage"`
	SessionID string `json:"sessionId"`
}

// Usage reports aggregate token consumption for the request.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}
