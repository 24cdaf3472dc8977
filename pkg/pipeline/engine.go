// Package pipeline drives one chat request through the fixed phase
// sequence Understand → PMAnalyze → Plan → Confirm → Execute → Verify
// → Repair → Deliver, with Repair looping back to Verify until the
// workspace is clean or the retry budget runs out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Action is a phase's verdict on how the pipeline proceeds.
type Action int

const (
	// ActionContinue advances to the next phase.
	ActionContinue Action = iota
	// ActionSkip advances to the next phase; the phase did no work
	// this turn. Distinct from ActionContinue only for observability.
	ActionSkip
	// ActionLoop re-enters the phase named by Result.Target.
	ActionLoop
	// ActionAbort ends the turn. The phase has already streamed
	// whatever the client needs to see (clarification, refusal).
	ActionAbort
)

// Result is what a phase returns alongside its error.
type Result struct {
	Action Action
	Target string // phase name for ActionLoop
}

// Convenience results for the common verdicts.
var (
	Continue = Result{Action: ActionContinue}
	Skip     = Result{Action: ActionSkip}
	Abort    = Result{Action: ActionAbort}
)

// LoopTo builds a loop verdict targeting a named phase.
func LoopTo(name string) Result {
	return Result{Action: ActionLoop, Target: name}
}

// Phase is one stage of the pipeline.
type Phase interface {
	Name() string
	Execute(ctx context.Context, pc *Context) (Result, error)
}

// Engine runs a fixed phase sequence over a request context.
type Engine struct {
	phases []Phase
	index  map[string]int
}

// NewEngine builds an engine over the given phases in order.
func NewEngine(phases ...Phase) *Engine {
	idx := make(map[string]int, len(phases))
	for i, p := range phases {
		idx[p.Name()] = i
	}
	return &Engine{phases: phases, index: idx}
}

// Run executes the phases in order until one aborts, the sequence
// completes, the client disconnects, or a phase fails. A phase error is
// terminal: the engine emits the error record and returns; the caller
// closes the stream.
func (e *Engine) Run(ctx context.Context, pc *Context) error {
	for i := 0; i < len(e.phases); {
		if ctx.Err() != nil {
			slog.Info("Pipeline canceled", "session_id", pc.SessionID, "phase", e.phases[i].Name())
			return ctx.Err()
		}
		if !pc.Events.IsActive() {
			slog.Info("Client gone, stopping pipeline", "session_id", pc.SessionID, "phase", e.phases[i].Name())
			return nil
		}

		phase := e.phases[i]
		start := time.Now()
		result, err := phase.Execute(ctx, pc)
		elapsed := time.Since(start)

		if err != nil {
			slog.Error("Pipeline phase failed",
				"session_id", pc.SessionID, "phase", phase.Name(), "elapsed", elapsed, "error", err)
			pc.Events.Error(fmt.Sprintf("%s failed: %v", phase.Name(), err))
			return err
		}
		slog.Info("Pipeline phase completed",
			"session_id", pc.SessionID, "phase", phase.Name(), "elapsed", elapsed, "action", result.Action)

		switch result.Action {
		case ActionContinue, ActionSkip:
			i++
		case ActionLoop:
			target, ok := e.index[result.Target]
			if !ok {
				err := fmt.Errorf("phase %s looped to unknown phase %q", phase.Name(), result.Target)
				pc.Events.Error(err.Error())
				return err
			}
			i = target
		case ActionAbort:
			return nil
		default:
			err := fmt.Errorf("phase %s returned unknown action %d", phase.Name(), result.Action)
			pc.Events.Error(err.Error())
			return err
		}
	}
	return nil
}
