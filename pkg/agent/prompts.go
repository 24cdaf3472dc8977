package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/appforge/forge/pkg/models"
)

// ThinkingPrompt builds the extended-thinking analysis call issued for
// generative intents. The four questions are fixed; the model's answers
// prime the planners.
func ThinkingPrompt(request, projectContext, codebaseSummary string) string {
	var b strings.Builder
	b.WriteString("Analyze this development request before any planning happens.\n\n")
	fmt.Fprintf(&b, "Request: %s\n", request)
	if projectContext != "" {
		fmt.Fprintf(&b, "\nProject memory:\n%s\n", projectContext)
	}
	if codebaseSummary != "" {
		fmt.Fprintf(&b, "\nCurrent codebase:\n%s\n", codebaseSummary)
	}
	b.WriteString(`
Answer these four questions concisely:
1. Intent — what does the user actually want built or changed?
2. Architecture — which files and components are involved, and how should they fit together?
3. Risks — what is most likely to go wrong or be misunderstood?
4. Premium touches — which small details would make the result feel polished?`)
	return b.String()
}

// PMSystemPrompt is the product-manager planning instruction.
const PMSystemPrompt = `You are a product manager turning a user request into a build specification.

Respond with a single JSON object:
{
  "title": "short project title",
  "chat_message": "one friendly sentence about what you'll build",
  "requirements": ["concrete requirement", ...],
  "design": {
    "theme": "...", "layout": "...", "typography": "...",
    "key_interactions": ["...", ...]
  },
  "scope": {"this_turn": ["...", ...], "next_turn": ["...", ...]},
  "suggestions": ["follow-up idea", ...]
}

Keep this_turn achievable in one pass. For purely conversational requests
return empty requirements and empty this_turn.`

// OrchestratorSystemPrompt is the execution planner's base instruction.
const OrchestratorSystemPrompt = `You are the build orchestrator. Turn the specification into an ordered
execution plan as a single JSON object:
{
  "title": "...",
  "reasoning": "why the plan is shaped this way",
  "assumptions": ["...", ...],
  "design_decisions": ["...", ...],
  "tasks": [
    {"type": "chat", "content": "prose for the user"},
    {"type": "create_file", "filepath": "src/X.tsx", "prompt": "what to generate"},
    {"type": "edit_file", "filepath": "src/Y.tsx", "prompt": "what to change"},
    {"type": "delete_file", "filepath": "src/Z.tsx"},
    {"type": "generate_image", "filepath": "src/assets/hero.png", "prompt": "image description"},
    {"type": "git_action", "command": "git add -A"}
  ]
}

Rules:
- Every filepath is workspace-relative and exact.
- Create files before the files that import them where possible; use
  depends_on/feeds_into hints for ordering context.
- Start with one chat task telling the user what is being built.
- Never invent packages that are not installed.`

// PlannerContext assembles the orchestrator system instruction from the
// base prompt plus everything the earlier phases learned.
type PlannerContext struct {
	ExistingFiles    []string
	ProjectMemory    string
	PMSpec           *models.PMSpec
	Intent           string
	CodebaseSummary  string
	ThinkingAnalysis string
}

// BuildPlannerInstruction concatenates the planner prompt sections in a
// fixed order.
func BuildPlannerInstruction(pc PlannerContext) string {
	var b strings.Builder
	b.WriteString(OrchestratorSystemPrompt)

	if len(pc.ExistingFiles) > 0 {
		b.WriteString("\n\nExisting files:\n")
		files := append([]string(nil), pc.ExistingFiles...)
		sort.Strings(files)
		for _, f := range files {
			b.WriteString("- " + f + "\n")
		}
	}
	if pc.ProjectMemory != "" {
		b.WriteString("\nProject memory:\n" + pc.ProjectMemory + "\n")
	}
	if pc.PMSpec != nil {
		b.WriteString("\nProduct specification:\n" + FormatPMSpec(pc.PMSpec) + "\n")
	}
	if pc.Intent != "" {
		b.WriteString("\nClassified intent: " + pc.Intent + "\n")
	}
	if pc.CodebaseSummary != "" {
		b.WriteString("\nCodebase summary:\n" + pc.CodebaseSummary + "\n")
	}
	if pc.ThinkingAnalysis != "" {
		b.WriteString("\nPre-analysis:\n" + pc.ThinkingAnalysis + "\n")
	}
	return b.String()
}

// FormatPMSpec renders a PM spec for prompt inclusion.
func FormatPMSpec(spec *models.PMSpec) string {
	var b strings.Builder
	if spec.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", spec.Title)
	}
	for _, r := range spec.Requirements {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	if spec.Design != nil {
		fmt.Fprintf(&b, "Design: theme %s, layout %s, typography %s\n",
			spec.Design.Theme, spec.Design.Layout, spec.Design.Typography)
		for _, ki := range spec.Design.KeyInteractions {
			fmt.Fprintf(&b, "- interaction: %s\n", ki)
		}
	}
	if spec.Scope != nil && len(spec.Scope.ThisTurn) > 0 {
		fmt.Fprintf(&b, "This turn: %s\n", strings.Join(spec.Scope.ThisTurn, "; "))
	}
	return b.String()
}

// SummaryPrompt builds the end-of-turn summary call.
func SummaryPrompt(fileActions []models.FileAction, gitActions []models.GitResult, repairNotes string) string {
	var b strings.Builder
	b.WriteString("Write a short, friendly summary of the work just completed. Cite files by name. Two or three sentences, no headings.\n")

	if len(fileActions) > 0 {
		b.WriteString("\nFile actions:\n")
		for _, fa := range fileActions {
			fmt.Fprintf(&b, "- %s %s (+%d/-%d)\n", fa.Action, fa.Filepath, fa.LinesAdded, fa.LinesRemoved)
		}
	}
	if len(gitActions) > 0 {
		b.WriteString("\nTerminal actions:\n")
		for _, ga := range gitActions {
			fmt.Fprintf(&b, "- %s\n", ga.Command)
		}
	}
	if repairNotes != "" {
		b.WriteString("\nVerification and repair:\n" + repairNotes + "\n")
	}
	return b.String()
}

// Image prompts below a quality bar get fixed enhancement suffixes.
const imagePromptMinWords = 6

const imageQualitySuffix = ", high quality, detailed, professional digital art, clean composition"

// EnhanceImagePrompt pads short or vague image prompts with fixed
// quality suffixes so tiny prompts still produce usable assets.
func EnhanceImagePrompt(prompt string) string {
	if len(strings.Fields(prompt)) >= imagePromptMinWords {
		return prompt
	}
	return strings.TrimSpace(prompt) + imageQualitySuffix
}
