// Package phases implements the pipeline stages in execution order:
// understand, pm_analyze, plan, confirm, execute, verify, repair,
// deliver.
package phases

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/pipeline"
)

// Intent labels.
const (
	IntentFix      = "fix"
	IntentEdit     = "edit"
	IntentCreate   = "create"
	IntentExplain  = "explain"
	IntentFeedback = "feedback"
	IntentRefactor = "refactor"
	IntentDelete   = "delete"
	IntentGit      = "git"
	IntentUnknown  = "unknown"
)

// clarificationTokenThreshold is the request length below which an
// unclassifiable request triggers a clarifying question instead of a
// full pipeline run.
const clarificationTokenThreshold = 6

const clarificationMessage = "I'd love to help! Could you tell me a bit more about what you'd like to build or change? " +
	"For example: \"create a landing page with a hero section\" or \"fix the button alignment in the header\"."

// intentGroups are evaluated in declaration order. Ties on match count
// resolve to the earlier group.
var intentGroups = []struct {
	name     string
	patterns []*regexp.Regexp
}{
	{IntentFix, compileAll(`(?i)\bfix\b`, `(?i)\bbroken\b`, `(?i)\bbug\b`, `(?i)\berror\b`, `(?i)\bnot working\b`, `(?i)\bdoesn'?t work\b`, `(?i)\brepair\b`)},
	{IntentEdit, compileAll(`(?i)\bchange\b`, `(?i)\bupdate\b`, `(?i)\bmodify\b`, `(?i)\badjust\b`, `(?i)\bedit\b`, `(?i)\breplace\b`, `(?i)\bmake (?:it|the)\b.+\b(?:bigger|smaller|darker|lighter|blue|red|green)\b`)},
	{IntentCreate, compileAll(`(?i)\bcreate\b`, `(?i)\bbuild\b`, `(?i)\bmake (?:me )?(?:a|an|some)\b`, `(?i)\badd\b`, `(?i)\bgenerate\b`, `(?i)\bnew\b`, `(?i)\bimplement\b`, `(?i)\bset up\b`)},
	{IntentExplain, compileAll(`(?i)\bexplain\b`, `(?i)\bwhat (?:is|are|does)\b`, `(?i)\bhow (?:does|do|is)\b`, `(?i)\bwhy\b`, `(?i)\btell me about\b`, `(?i)\bdescribe\b`)},
	{IntentFeedback, compileAll(`(?i)\blooks? (?:good|great|nice|bad)\b`, `(?i)\bthanks?\b`, `(?i)\bperfect\b`, `(?i)\bawesome\b`, `(?i)\blove it\b`, `(?i)\bwell done\b`)},
	{IntentRefactor, compileAll(`(?i)\brefactor\b`, `(?i)\bclean ?up\b`, `(?i)\breorganize\b`, `(?i)\bsimplify\b`, `(?i)\bextract\b`, `(?i)\brestructure\b`)},
	{IntentDelete, compileAll(`(?i)\bdelete\b`, `(?i)\bremove\b`, `(?i)\bget rid of\b`, `(?i)\bdrop\b`)},
	{IntentGit, compileAll(`(?i)\bgit\b`, `(?i)\bcommit\b`, `(?i)\bpush\b`, `(?i)\bbranch\b`, `(?i)\brepo(?:sitory)?\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// ClassifyIntent scores the request against the ordered pattern groups.
// Highest match count wins; ties go to the earlier group; zero matches
// everywhere yields IntentUnknown.
func ClassifyIntent(text string) string {
	best := IntentUnknown
	bestCount := 0
	for _, group := range intentGroups {
		count := 0
		for _, re := range group.patterns {
			if re.MatchString(text) {
				count++
			}
		}
		if count > bestCount {
			best = group.name
			bestCount = count
		}
	}
	return best
}

// generativeIntents get the extended-thinking pre-analysis call.
var generativeIntents = map[string]bool{
	IntentCreate:   true,
	IntentEdit:     true,
	IntentFix:      true,
	IntentRefactor: true,
}

// Understand classifies the request, primes the planners with memory
// and a codebase summary, and short-circuits requests too vague to act
// on.
type Understand struct{}

func (Understand) Name() string { return "understand" }

func (Understand) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	request := pc.RequestText()
	pc.Events.Phase(events.PhaseThinking)

	pc.Intent = ClassifyIntent(request)
	slog.Info("Classified intent", "session_id", pc.SessionID, "intent", pc.Intent)

	if pc.Intent == IntentUnknown && len(strings.Fields(request)) < clarificationTokenThreshold {
		pc.Events.Delta(clarificationMessage)
		pc.AddChatText(clarificationMessage)
		pc.Events.Phase(events.PhaseReady)
		pc.Events.Done(pc.SessionID)
		return pipeline.Abort, nil
	}

	pc.ProjectContext = pc.Memory.Serialize()
	if err := pc.RefreshFiles(); err != nil {
		return pipeline.Abort, fmt.Errorf("failed to list workspace files: %w", err)
	}
	pc.CodebaseSummary = summarizeByDirectory(pc.ExistingFiles)

	if generativeIntents[pc.Intent] {
		resp, err := pc.Provider.Generate(ctx, &llm.Request{
			Prompt:   agent.ThinkingPrompt(request, pc.ProjectContext, pc.CodebaseSummary),
			Thinking: true,
		})
		if err != nil {
			// Pre-analysis is an enrichment, not a prerequisite.
			slog.Warn("Pre-analysis call failed, planning without it",
				"session_id", pc.SessionID, "error", err)
		} else {
			pc.ThinkingAnalysis = resp.Text
			pc.Events.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
	}
	return pipeline.Continue, nil
}

// summarizeByDirectory renders the file list grouped by directory for
// prompt inclusion.
func summarizeByDirectory(files []string) string {
	if len(files) == 0 {
		return ""
	}
	groups := make(map[string][]string)
	for _, f := range files {
		dir := path.Dir(f)
		groups[dir] = append(groups[dir], path.Base(f))
	}
	dirs := make([]string, 0, len(groups))
	for d := range groups {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var b strings.Builder
	for _, d := range dirs {
		fmt.Fprintf(&b, "%s/: %s\n", d, strings.Join(groups[d], ", "))
	}
	return b.String()
}
