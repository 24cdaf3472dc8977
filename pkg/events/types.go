// Package events provides the per-request Event Bus: a typed,
// append-only stream of progress records delivered to one client over a
// long-lived HTTP response.
//
// Framing: each record is the literal prefix "data: " followed by a
// single-line compact JSON object, terminated by a blank line. Ordering
// is the strict emit order. Every accepted request terminates with
// exactly one of "done" or "error"; a stream that ends without a
// terminal record must be treated by the consumer as an error.
package events

// Record types (the "type" field of each framed JSON object).
const (
	EventTypeSession      = "session"
	EventTypePhase        = "phase"
	EventTypeDelta        = "delta"
	EventTypeTransparency = "transparency"
	EventTypeFileAction   = "file_action"
	EventTypeGitResult    = "git_result"
	EventTypePreview      = "preview"
	EventTypeMetadata     = "metadata"
	EventTypeSummary      = "summary"
	EventTypeAgentStart   = "agent_start"
	EventTypeAgentEnd     = "agent_end"
	EventTypeError        = "error"
	EventTypeDone         = "done"
)

// Phase values carried by phase events.
const (
	PhaseThinking   = "thinking"
	PhasePlanning   = "planning"
	PhaseInstalling = "installing"
	PhaseExecuting  = "executing"
	PhaseVerifying  = "verifying"
	PhaseRepairing  = "repairing"
	PhaseSummary    = "summary"
	PhaseResponding = "responding"
	PhaseReady      = "ready"
)

// Agent identifiers for the two-agent header.
const (
	AgentPM           = "pm"
	AgentOrchestrator = "orchestrator"
)
