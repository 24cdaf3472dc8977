package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/forge/pkg/config"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// stubProvider satisfies llm.Provider for handler tests that never
// reach a model call.
type stubProvider struct{}

func (stubProvider) Generate(context.Context, *llm.Request) (*llm.Response, error) {
	return &llm.Response{Text: "{}"}, nil
}

func (stubProvider) GenerateImage(context.Context, string) (*llm.ImageResult, error) {
	return nil, errors.New("not implemented")
}

func (stubProvider) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Load(filepath.Join(root, "absent.yaml"))
	require.NoError(t, err)
	cfg.Workspace.Root = root

	store := workspace.NewStore(root, "")
	return NewServer(cfg, store, stubProvider{}, proc.NewDevServerManager(cfg.DevServer.BasePort))
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(t), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["provider_configured"])
}

func TestChat_EmptyContentRejectedBeforeStream(t *testing.T) {
	w := do(newTestServer(t), http.MethodPost, "/api/chat",
		`{"messages": [{"id": "1", "role": "user", "content": ""}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "data: ")
}

func TestChat_InvalidBodyRejected(t *testing.T) {
	w := do(newTestServer(t), http.MethodPost, "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_InvalidSessionIDRejected(t *testing.T) {
	w := do(newTestServer(t), http.MethodPost, "/api/chat",
		`{"sessionId": "../escape", "messages": [{"id": "1", "role": "user", "content": "make it"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_ClarificationStream(t *testing.T) {
	w := do(newTestServer(t), http.MethodPost, "/api/chat",
		`{"sessionId": "sess-1", "messages": [{"id": "1", "role": "user", "content": "make it"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Contains(t, out, `"type":"session"`)
	assert.Contains(t, out, `"sessionId":"sess-1"`)
	assert.Contains(t, out, "I'd love to help!")
	assert.Contains(t, out, `"type":"done"`)
}

func TestSessions_ListAndDelete(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.store.Ensure("sess-a")
	require.NoError(t, err)
	require.NoError(t, workspace.SaveMetadata(s.store.SessionDir("sess-a"), "sess-a", "My App"))

	w := do(s, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "My App")

	w = do(s, http.MethodDelete, "/api/sessions/sess-a", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/api/sessions", "")
	assert.NotContains(t, w.Body.String(), "sess-a")
}

type flushBuffer struct{ strings.Builder }

func (*flushBuffer) Flush() {}

func TestStopSession(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodPost, "/api/sessions/sess-d/stop", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	sink := &flushBuffer{}
	bus := events.NewBus(sink)
	s.registerBus("sess-d", bus)

	w = do(s, http.MethodPost, "/api/sessions/sess-d/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, bus.IsActive())
	assert.Contains(t, sink.String(), "Generation stopped")
}

func TestSessionFile_ReadAndTraversalRejected(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.store.Ensure("sess-b")
	require.NoError(t, err)
	_, err = s.store.WriteFile("sess-b", "src/App.tsx", "export function App() {}\n")
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/api/sessions/sess-b/file?path=src/App.tsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "export function App")

	w = do(s, http.MethodGet, "/api/sessions/sess-b/file?path=../../etc/passwd", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodGet, "/api/sessions/sess-b/file?path=src/Missing.tsx", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionFiles_Listing(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.store.Ensure("sess-c")
	require.NoError(t, err)
	_, err = s.store.WriteFile("sess-c", "src/main.tsx", "export {}\n")
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/api/sessions/sess-c/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "src/main.tsx")
}
