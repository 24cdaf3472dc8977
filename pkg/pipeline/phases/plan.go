package phases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// ambientTypesPath declares asset modules so the type-checker accepts
// style and image imports in generated code.
const ambientTypesPath = "src/types/assets.d.ts"

const ambientTypesContent = `declare module "*.css";
declare module "*.scss";
declare module "*.less";
declare module "*.svg" {
  const src: string;
  export default src;
}
declare module "*.png" {
  const src: string;
  export default src;
}
declare module "*.jpg" {
  const src: string;
  export default src;
}
declare module "*.webp" {
  const src: string;
  export default src;
}
`

// Plan produces the execution plan: it prepares the workspace (ambient
// types, dependency install), persists the incoming conversation, and
// runs the orchestrator planning call.
type Plan struct{}

func (Plan) Name() string { return "plan" }

func (Plan) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	pc.Events.Phase(events.PhasePlanning)

	if !pc.Store.Exists(pc.SessionID, ambientTypesPath) {
		if _, err := pc.Store.WriteFile(pc.SessionID, ambientTypesPath, ambientTypesContent); err != nil {
			return pipeline.Abort, fmt.Errorf("failed to write ambient type declarations: %w", err)
		}
	}

	if !proc.Installed(pc.WorkspaceDir) {
		if err := installDependencies(ctx, pc); err != nil {
			return pipeline.Abort, err
		}
	}

	if err := workspace.SaveHistory(pc.WorkspaceDir, toStoredMessages(pc.Messages)); err != nil {
		return pipeline.Abort, fmt.Errorf("failed to persist chat history: %w", err)
	}
	pc.UploadedImages = saveAttachments(pc)

	instruction := agent.BuildPlannerInstruction(agent.PlannerContext{
		ExistingFiles:    pc.ExistingFiles,
		ProjectMemory:    pc.ProjectContext,
		PMSpec:           pc.PMSpec,
		Intent:           pc.Intent,
		CodebaseSummary:  pc.CodebaseSummary,
		ThinkingAnalysis: pc.ThinkingAnalysis,
	})

	resp, err := pc.Provider.Generate(ctx, &llm.Request{
		System:   instruction,
		History:  pc.LLMHistory(),
		Prompt:   pc.RequestText(),
		Images:   pc.UploadedImages,
		JSONMode: true,
	})
	if err != nil {
		return pipeline.Abort, fmt.Errorf("planning call failed: %w", err)
	}
	pc.Events.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var plan models.ExecutionPlan
	if parseErr := llm.ParseJSONLoose(resp.Text, &plan); parseErr != nil || len(plan.Tasks) == 0 {
		// The model answered in prose. Stream it and end the turn
		// gracefully instead of failing the request.
		slog.Warn("Planner returned no parseable plan, streaming raw response",
			"session_id", pc.SessionID)
		pc.Events.Delta(resp.Text)
		pc.AddChatText(resp.Text)
		if err := persistConversation(pc); err != nil {
			return pipeline.Abort, err
		}
		pc.Events.Phase(events.PhaseReady)
		pc.Events.Done(pc.SessionID)
		return pipeline.Abort, nil
	}

	if plan.Title != "" {
		if err := workspace.SaveMetadata(pc.WorkspaceDir, pc.SessionID, plan.Title); err != nil {
			slog.Warn("Failed to save session metadata", "session_id", pc.SessionID, "error", err)
		}
		pc.Events.Metadata(plan.Title)
	}

	pc.Plan = &plan
	slog.Info("Execution plan ready",
		"session_id", pc.SessionID, "tasks", len(plan.Tasks), "mutations", plan.MutationCount())
	return pipeline.Continue, nil
}

// installDependencies runs the package installer, streaming its output
// into the client's terminal view as a live git_result.
func installDependencies(ctx context.Context, pc *pipeline.Context) error {
	pc.Events.Phase(events.PhaseInstalling)

	result := models.GitResult{
		ID:      newID(),
		Command: "npm install",
		Action:  "install",
	}
	pc.Events.GitResult(result)

	// The runner invokes the callback from both capture goroutines.
	var mu sync.Mutex
	err := proc.Install(ctx, pc.Runner, pc.WorkspaceDir, func(line string) {
		mu.Lock()
		result.Output += line + "\n"
		snapshot := result
		mu.Unlock()
		pc.Events.GitResult(snapshot)
	})
	if err != nil {
		result.Error = err.Error()
		pc.Events.GitResult(result)
		return fmt.Errorf("dependency install failed: %w", err)
	}
	return nil
}
