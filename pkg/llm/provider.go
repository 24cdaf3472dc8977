// Package llm wraps the language-model provider behind a narrow
// interface so the pipeline and its tests never touch the SDK directly.
package llm

import "context"

// Conversation roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one prior conversation turn sent as context.
type Message struct {
	Role    string
	Content string
}

// InlineImage is an attachment forwarded to multimodal calls.
type InlineImage struct {
	MimeType string
	Data     []byte
}

// Request describes one text-generation call.
type Request struct {
	System   string    // system instruction, may be empty
	History  []Message // prior turns, oldest first
	Prompt   string    // the final user turn
	Images   []InlineImage
	JSONMode bool // demand application/json output
	Thinking bool // enable extended thinking for analysis calls
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the provider's text output plus usage.
type Response struct {
	Text  string
	Usage Usage
}

// ImageResult is a generated image decoded from inline data.
type ImageResult struct {
	Data     []byte
	MimeType string
	Usage    Usage
}

// Provider is the opaque LLM the orchestrator drives. Implementations
// must be safe for concurrent use; the execute pool issues up to five
// calls at once.
type Provider interface {
	// Generate sends a conversation to the model and returns its text.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GenerateImage produces an image for the prompt.
	GenerateImage(ctx context.Context, prompt string) (*ImageResult, error)

	// Close releases the underlying client.
	Close() error
}
