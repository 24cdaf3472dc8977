package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/appforge/forge/pkg/models"
)

// Sink is the outbound byte stream the bus writes framed records to.
// gin.ResponseWriter satisfies it directly.
type Sink interface {
	io.Writer
	Flush()
}

// Bus is the per-request event stream. One bus per chat request; closed
// exactly once. All methods are safe for concurrent use; the execute
// and repair pools emit from multiple goroutines.
//
// Emit methods are silent no-ops once the bus is closed or interrupted
// or the sink is gone; a failed write marks the bus closed so every
// subsequent emit degrades to a no-op (transport errors never propagate
// into the pipeline as exceptions).
type Bus struct {
	mu          sync.Mutex
	sink        Sink
	closed      bool
	interrupted bool
	usage       Usage
}

// NewBus creates a bus writing to sink.
func NewBus(sink Sink) *Bus {
	return &Bus{sink: sink}
}

// IsActive reports whether the bus can still deliver events.
// Phases check this between iterations for cooperative cancellation.
func (b *Bus) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && !b.interrupted && b.sink != nil
}

// Close flushes and ends the stream. Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.sink != nil {
		b.sink.Flush()
	}
}

// Interrupt emits a human-readable delta, a phase-ready record, and a
// done record, then closes the bus. Idempotent.
func (b *Bus) Interrupt(sessionID string) {
	b.mu.Lock()
	if b.closed || b.interrupted {
		b.mu.Unlock()
		return
	}
	b.writeLocked(DeltaPayload{Type: EventTypeDelta, Text: "\n\n_Generation stopped._"})
	b.writeLocked(PhasePayload{Type: EventTypePhase, Phase: PhaseReady})
	b.writeLocked(DonePayload{Type: EventTypeDone, Usage: b.usage, SessionID: sessionID})
	b.interrupted = true
	b.closed = true
	if b.sink != nil {
		b.sink.Flush()
	}
	b.mu.Unlock()
}

// AddUsage accumulates token usage reported by provider calls; the total
// is carried on the final done record.
func (b *Bus) AddUsage(input, output int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage.InputTokens += input
	b.usage.OutputTokens += output
	b.usage.TotalTokens += input + output
}

// emit frames and writes one record. No-op when the bus cannot deliver.
func (b *Bus) emit(payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeLocked(payload)
}

// writeLocked writes one framed record. Caller holds b.mu.
func (b *Bus) writeLocked(payload any) {
	if b.closed || b.interrupted || b.sink == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal event payload", "error", err)
		return
	}
	if _, err := b.sink.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
		// Client is gone. Everything after this is a silent no-op.
		b.closed = true
		return
	}
	b.sink.Flush()
}

// --- Typed emit methods ---

// Session emits the session record carrying the session ID.
func (b *Bus) Session(sessionID string) {
	b.emit(SessionPayload{Type: EventTypeSession, SessionID: sessionID})
}

// Phase emits a phase transition.
func (b *Bus) Phase(phase string) {
	b.emit(PhasePayload{Type: EventTypePhase, Phase: phase})
}

// PhaseDetail emits a phase transition with contextual detail.
func (b *Bus) PhaseDetail(phase, detail string) {
	b.emit(PhasePayload{Type: EventTypePhase, Phase: phase, Detail: detail})
}

// PhaseFull emits a fully-populated phase record.
func (b *Bus) PhaseFull(p PhasePayload) {
	p.Type = EventTypePhase
	b.emit(p)
}

// Delta streams a chunk of prose.
func (b *Bus) Delta(text string) {
	b.emit(DeltaPayload{Type: EventTypeDelta, Text: text})
}

// AgentDelta streams a chunk of prose attributed to a named agent.
func (b *Bus) AgentDelta(agent, text string) {
	b.emit(DeltaPayload{Type: EventTypeDelta, Text: text, Agent: agent})
}

// Transparency re-emits the full task breakdown.
func (b *Bus) Transparency(tasks []models.TransparencyTask) {
	b.emit(TransparencyPayload{Type: EventTypeTransparency, Data: tasks})
}

// FileAction emits a file mutation record (placeholder or final).
func (b *Bus) FileAction(action models.FileAction) {
	b.emit(FileActionPayload{Type: EventTypeFileAction, FileAction: action})
}

// GitResult emits a terminal command result.
func (b *Bus) GitResult(result models.GitResult) {
	b.emit(GitResultPayload{Type: EventTypeGitResult, GitResult: result})
}

// Preview announces the dev-server URL.
func (b *Bus) Preview(url string) {
	b.emit(PreviewPayload{Type: EventTypePreview, URL: url})
}

// Metadata emits a session title update.
func (b *Bus) Metadata(title string) {
	b.emit(MetadataPayload{Type: EventTypeMetadata, Data: MetadataData{Title: title}})
}

// Summary emits the end-of-turn summary text.
func (b *Bus) Summary(text string) {
	b.emit(SummaryPayload{Type: EventTypeSummary, Text: text})
}

// AgentStart marks the start of a named agent's turn.
func (b *Bus) AgentStart(agent, name string) {
	b.emit(AgentStartPayload{Type: EventTypeAgentStart, Agent: agent, Name: name})
}

// AgentEnd closes a named agent's turn.
func (b *Bus) AgentEnd(agent string) {
	b.emit(AgentEndPayload{Type: EventTypeAgentEnd, Agent: agent})
}

// Error emits the terminal error record. The caller closes the bus.
func (b *Bus) Error(message string) {
	b.emit(ErrorPayload{Type: EventTypeError, Message: message})
}

// Done emits the terminal success record. The caller closes the bus.
func (b *Bus) Done(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeLocked(DonePayload{Type: EventTypeDone, Usage: b.usage, SessionID: sessionID})
}
