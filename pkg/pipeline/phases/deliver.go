package phases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/workspace"
)

// Deliver closes the turn: preview server, summary, persisted history,
// updated project memory, terminal events.
type Deliver struct{}

func (Deliver) Name() string { return "deliver" }

func (Deliver) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	fileActions := pc.FileActions()

	if len(fileActions) > 0 {
		port, err := pc.DevServers.Start(pc.SessionID, pc.WorkspaceDir)
		if err != nil {
			slog.Warn("Failed to start dev server", "session_id", pc.SessionID, "error", err)
		} else {
			host := pc.Config.DevServer.Host
			if host == "" {
				host = "localhost"
			}
			pc.Events.Preview(fmt.Sprintf("http://%s:%d", host, port))
		}
	}

	pc.Events.Phase(events.PhaseSummary)
	summary := generateSummary(ctx, pc, fileActions)
	if summary != "" {
		pc.Events.Summary(summary)
	}

	if err := persistTurn(pc, fileActions, summary); err != nil {
		return pipeline.Abort, err
	}
	updateMemory(pc, fileActions)

	pc.Events.Phase(events.PhaseReady)
	pc.Events.Done(pc.SessionID)
	return pipeline.Continue, nil
}

// generateSummary asks the model for the end-of-turn summary, falling
// back to a locally assembled one when the call fails.
func generateSummary(ctx context.Context, pc *pipeline.Context, fileActions []models.FileAction) string {
	if len(fileActions) == 0 && len(pc.GitResults()) == 0 && pc.RepairNotes == "" {
		return ""
	}
	resp, err := pc.Provider.Generate(ctx, &llm.Request{
		Prompt: agent.SummaryPrompt(fileActions, pc.GitResults(), pc.RepairNotes),
	})
	if err != nil {
		slog.Warn("Summary call failed, using fallback", "session_id", pc.SessionID, "error", err)
		return fallbackSummary(fileActions)
	}
	pc.Events.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return strings.TrimSpace(resp.Text)
}

func fallbackSummary(fileActions []models.FileAction) string {
	if len(fileActions) == 0 {
		return ""
	}
	names := make([]string, 0, len(fileActions))
	for _, fa := range fileActions {
		names = append(names, fa.Filepath)
	}
	return "Updated " + strings.Join(names, ", ") + "."
}

// persistTurn rewrites chat history with the synthesized assistant turn
// carrying the structured artifacts the client replays on reload.
func persistTurn(pc *pipeline.Context, fileActions []models.FileAction, summary string) error {
	stored := toStoredMessages(pc.Messages)
	stored = append(stored, models.StoredMessage{
		ID:                newID(),
		Role:              models.RoleAssistant,
		Content:           pc.ChatText(),
		Timestamp:         nowMillis(),
		Transparency:      pc.TransparencyTasks(),
		ServerFileActions: fileActions,
		GitActions:        pc.GitResults(),
		Summary:           summary,
	})
	if err := workspace.SaveHistory(pc.WorkspaceDir, stored); err != nil {
		return fmt.Errorf("failed to persist chat history: %w", err)
	}
	return nil
}

// updateMemory refreshes the project-memory sections this turn touched.
func updateMemory(pc *pipeline.Context, fileActions []models.FileAction) {
	if pc.Plan != nil && pc.Plan.Reasoning != "" {
		if err := pc.Memory.UpdateSection(workspace.SectionArchitecture, pc.Plan.Reasoning); err != nil {
			slog.Warn("Failed to update memory architecture", "session_id", pc.SessionID, "error", err)
		}
	}
	if len(fileActions) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "Request: %s\n", pc.RequestText())
		for _, fa := range fileActions {
			fmt.Fprintf(&b, "- %s %s\n", fa.Action, fa.Filepath)
		}
		if err := pc.Memory.UpdateSection(workspace.SectionRecentWork, b.String()); err != nil {
			slog.Warn("Failed to update memory recent work", "session_id", pc.SessionID, "error", err)
		}
	}
	if err := pc.RefreshFiles(); err == nil && len(pc.ExistingFiles) > 0 {
		if err := pc.Memory.UpdateSection(workspace.SectionFileTree, strings.Join(pc.ExistingFiles, "\n")); err != nil {
			slog.Warn("Failed to update memory file tree", "session_id", pc.SessionID, "error", err)
		}
	}
}
