package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiConfig selects the models used for each call class.
type GeminiConfig struct {
	APIKey        string
	Model         string // text + JSON generation
	ThinkingModel string // extended-thinking analysis calls
	ImageModel    string // image generation
}

// GeminiProvider implements Provider on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiProvider creates a provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.ThinkingModel == "" {
		cfg.ThinkingModel = cfg.Model
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.0-flash-preview-image-generation"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiProvider{client: client, cfg: cfg}, nil
}

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	model := p.cfg.Model
	if req.Thinking {
		model = p.cfg.ThinkingModel
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: false}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	out := &Response{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.Usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// GenerateImage implements Provider. The image arrives as an inline-data
// part; any text parts in the same candidate are ignored.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.cfg.ImageModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini image generation failed: %w", err)
	}

	result := &ImageResult{}
	if resp.UsageMetadata != nil {
		result.Usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.Usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				result.Data = part.InlineData.Data
				result.MimeType = part.InlineData.MIMEType
				return result, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini returned no image data")
}

// Close implements Provider. The genai client holds no connection
// state that needs releasing, so this is a no-op kept for the
// interface contract.
func (p *GeminiProvider) Close() error { return nil }
