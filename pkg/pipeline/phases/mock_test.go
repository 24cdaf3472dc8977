package phases

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/config"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// mockProvider routes calls by the request's system instruction instead
// of call order, so tests stay stable when optional calls are skipped.
type mockProvider struct {
	mu       sync.Mutex
	requests []*llm.Request

	thinkingResp string
	pmResp       string
	planResp     string
	codeResp     map[string]string // filepath → source
	summaryResp  string

	imageData []byte
}

func (m *mockProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	text := ""
	switch {
	case req.Thinking:
		text = m.thinkingResp
	case strings.Contains(req.System, "product manager"):
		text = m.pmResp
	case strings.Contains(req.System, "build orchestrator"):
		text = m.planResp
	case strings.Contains(req.System, "frontend engineer"):
		for path, code := range m.codeResp {
			if strings.Contains(req.Prompt, "`"+path+"`") {
				text = code
				break
			}
		}
	default:
		text = m.summaryResp
	}
	return &llm.Response{Text: text, Usage: llm.Usage{InputTokens: 5, OutputTokens: 7}}, nil
}

func (m *mockProvider) GenerateImage(context.Context, string) (*llm.ImageResult, error) {
	return &llm.ImageResult{Data: m.imageData, MimeType: "image/png"}, nil
}

func (m *mockProvider) Close() error { return nil }

type recordingSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.WriteString(string(p))
}

func (s *recordingSink) Flush() {}

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// newPhaseContext builds a ready pipeline context over a fresh session
// workspace with node_modules pre-created so no installer runs.
func newPhaseContext(t *testing.T, provider llm.Provider, userMessage string) (*pipeline.Context, *recordingSink) {
	t.Helper()

	root := t.TempDir()
	store := workspace.NewStore(root, "")
	dir, isNew, err := store.Ensure("test-session")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	cfg, err := config.Load(filepath.Join(root, "absent.yaml"))
	require.NoError(t, err)

	sink := &recordingSink{}
	pc := &pipeline.Context{
		SessionID:    "test-session",
		WorkspaceDir: dir,
		IsNewSession: isNew,
		Messages:     userMessages(userMessage),
		Events:       events.NewBus(sink),
		Store:        store,
		Serializer:   workspace.NewSerializer(),
		Memory:       workspace.NewMemory(dir),
		Runner:       proc.Runner{},
		DevServers:   proc.NewDevServerManager(0),
		Provider:     provider,
		Executor:     agent.NewExecutor(provider, cfg.Pipeline.ExecutorTimeout),
		Config:       cfg,
	}
	return pc, sink
}

func userMessages(content string) []models.ClientMessage {
	return []models.ClientMessage{{ID: "m1", Role: "user", Content: content}}
}

func loadHistoryForTest(pc *pipeline.Context) ([]models.StoredMessage, error) {
	return workspace.LoadHistory(pc.WorkspaceDir)
}
