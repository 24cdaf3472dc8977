package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/workspace"
)

// PMAnalyze runs the product-manager planning stage: a JSON-mode LLM
// call producing the PMSpec that primes the execution planner, streamed
// to the client as the PM agent's turn.
type PMAnalyze struct{}

func (PMAnalyze) Name() string { return "pm_analyze" }

// conversationalIntents skip the PM stage unless the message carries
// attachments worth analyzing.
var conversationalIntents = map[string]bool{
	IntentExplain:  true,
	IntentFeedback: true,
}

func (PMAnalyze) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	last := models.LastUserMessage(pc.Messages)
	hasAttachments := last != nil && len(last.Attachments) > 0
	if conversationalIntents[pc.Intent] && !hasAttachments {
		return pipeline.Continue, nil
	}

	pc.Events.AgentStart(events.AgentPM, "Product Manager")
	pc.Events.PhaseFull(events.PhasePayload{Phase: events.PhaseThinking, Agent: events.AgentPM})

	var prompt strings.Builder
	prompt.WriteString(pc.RequestText())
	if pc.ProjectContext != "" {
		prompt.WriteString("\n\nProject memory:\n" + pc.ProjectContext)
	}
	if pc.ThinkingAnalysis != "" {
		prompt.WriteString("\n\nPre-analysis:\n" + pc.ThinkingAnalysis)
	}

	resp, err := pc.Provider.Generate(ctx, &llm.Request{
		System:   agent.PMSystemPrompt,
		History:  pc.LLMHistory(),
		Prompt:   prompt.String(),
		Images:   pc.UploadedImages,
		JSONMode: true,
	})
	if err != nil {
		return pipeline.Abort, fmt.Errorf("product planning call failed: %w", err)
	}
	pc.Events.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var spec models.PMSpec
	if parseErr := llm.ParseJSONLoose(resp.Text, &spec); parseErr != nil {
		// Not a spec. Treat the text as the PM's chat reply and move on.
		pc.Events.AgentDelta(events.AgentPM, resp.Text)
		pc.AddChatText(resp.Text)
		pc.Events.AgentEnd(events.AgentPM)
		return pipeline.Continue, nil
	}
	pc.PMSpec = &spec

	if brief := designBrief(&spec); brief != "" {
		pc.Events.AgentDelta(events.AgentPM, brief)
		pc.AddChatText(brief)
	}
	if spec.Title != "" {
		pc.Events.Metadata(spec.Title)
	}
	pc.Events.AgentEnd(events.AgentPM)

	if spec.IsEmpty() {
		// Conversational-only: nothing to plan or build.
		if err := persistConversation(pc); err != nil {
			return pipeline.Abort, err
		}
		pc.Events.Phase(events.PhaseReady)
		pc.Events.Done(pc.SessionID)
		return pipeline.Abort, nil
	}
	return pipeline.Continue, nil
}

// designBrief renders the PM spec as the streamed design-brief message.
func designBrief(spec *models.PMSpec) string {
	var b strings.Builder
	if spec.ChatMessage != "" {
		b.WriteString(spec.ChatMessage + "\n")
	}
	if spec.Design != nil {
		if spec.Design.Theme != "" {
			fmt.Fprintf(&b, "\n**Theme:** %s\n", spec.Design.Theme)
		}
		if spec.Design.Layout != "" {
			fmt.Fprintf(&b, "**Layout:** %s\n", spec.Design.Layout)
		}
		for _, ki := range spec.Design.KeyInteractions {
			fmt.Fprintf(&b, "- %s\n", ki)
		}
	}
	if spec.Scope != nil && len(spec.Scope.ThisTurn) > 0 {
		b.WriteString("\n**This turn:**\n")
		for _, item := range spec.Scope.ThisTurn {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	if len(spec.Suggestions) > 0 {
		b.WriteString("\n**Ideas for later:**\n")
		for _, s := range spec.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return strings.TrimSpace(b.String())
}

// persistConversation writes the turn to chat history when the pipeline
// ends before Deliver.
func persistConversation(pc *pipeline.Context) error {
	stored := toStoredMessages(pc.Messages)
	if text := pc.ChatText(); text != "" {
		stored = append(stored, models.StoredMessage{
			ID:        newID(),
			Role:      models.RoleAssistant,
			Content:   text,
			Timestamp: nowMillis(),
		})
	}
	if err := workspace.SaveHistory(pc.WorkspaceDir, stored); err != nil {
		return fmt.Errorf("failed to persist chat history: %w", err)
	}
	return nil
}
