package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/forge/pkg/models"
)

// bufferSink collects framed records in memory.
type bufferSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *bufferSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *bufferSink) Flush() {}

func (s *bufferSink) records(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(s.buf.String(), "\n\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "record missing data: prefix: %q", line)
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &obj))
		out = append(out, obj)
	}
	return out
}

// failingSink errors on every write.
type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (failingSink) Flush()                    {}

func TestBus_FramingAndOrder(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.Session("sess-1")
	bus.Phase(PhaseThinking)
	bus.Delta("hello")
	bus.Done("sess-1")

	recs := sink.records(t)
	require.Len(t, recs, 4)
	assert.Equal(t, "session", recs[0]["type"])
	assert.Equal(t, "sess-1", recs[0]["sessionId"])
	assert.Equal(t, "phase", recs[1]["type"])
	assert.Equal(t, "thinking", recs[1]["phase"])
	assert.Equal(t, "delta", recs[2]["type"])
	assert.Equal(t, "done", recs[3]["type"])
}

func TestBus_EmitAfterCloseIsNoop(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.Delta("before")
	bus.Close()
	bus.Delta("after")
	bus.Done("sess-1")

	recs := sink.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "before", recs[0]["text"])
	assert.False(t, bus.IsActive())
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus(&bufferSink{})
	bus.Close()
	bus.Close()
	assert.False(t, bus.IsActive())
}

func TestBus_InterruptEmitsTerminalSequence(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.Interrupt("sess-9")

	recs := sink.records(t)
	require.Len(t, recs, 3)
	assert.Equal(t, "delta", recs[0]["type"])
	assert.Equal(t, "phase", recs[1]["type"])
	assert.Equal(t, "ready", recs[1]["phase"])
	assert.Equal(t, "done", recs[2]["type"])
	assert.Equal(t, "sess-9", recs[2]["sessionId"])
	assert.False(t, bus.IsActive())
}

func TestBus_InterruptIsIdempotent(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.Interrupt("sess-9")
	bus.Interrupt("sess-9")

	assert.Len(t, sink.records(t), 3)
}

func TestBus_WriteFailureMarksClosed(t *testing.T) {
	bus := NewBus(failingSink{})

	bus.Delta("lost")
	assert.False(t, bus.IsActive())

	// Subsequent emits must not panic and stay silent.
	bus.Delta("also lost")
	bus.Done("sess-1")
}

func TestBus_UsageAccumulatesIntoDone(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.AddUsage(100, 20)
	bus.AddUsage(50, 5)
	bus.Done("sess-1")

	recs := sink.records(t)
	require.Len(t, recs, 1)
	usage := recs[0]["usage"].(map[string]any)
	assert.EqualValues(t, 150, usage["inputTokens"])
	assert.EqualValues(t, 25, usage["outputTokens"])
	assert.EqualValues(t, 175, usage["totalTokens"])
}

func TestBus_FileActionSupersedesByID(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	bus.FileAction(models.FileAction{ID: "task-1", Filepath: "src/App.tsx", Status: models.FileActionExecuting})
	bus.FileAction(models.FileAction{ID: "task-1", Filepath: "src/App.tsx", Status: models.FileActionComplete, Content: "export function App() {}"})

	recs := sink.records(t)
	require.Len(t, recs, 2)
	assert.Equal(t, recs[0]["id"], recs[1]["id"])
	assert.Equal(t, "executing", recs[0]["status"])
	assert.Equal(t, "complete", recs[1]["status"])
}

func TestBus_ConcurrentEmitsDoNotInterleave(t *testing.T) {
	sink := &bufferSink{}
	bus := NewBus(sink)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Delta("chunk")
		}()
	}
	wg.Wait()

	recs := sink.records(t)
	assert.Len(t, recs, 50)
	for _, r := range recs {
		assert.Equal(t, "delta", r["type"])
		assert.Equal(t, "chunk", r["text"])
	}
}
