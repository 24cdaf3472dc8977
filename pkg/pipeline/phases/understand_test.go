package phases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/forge/pkg/pipeline"
)

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"fix the broken button", IntentFix},
		{"the page is not working", IntentFix},
		{"change the header color", IntentEdit},
		{"make it bigger please", IntentEdit},
		{"create a landing page", IntentCreate},
		{"build me a todo app", IntentCreate},
		{"make me a dashboard", IntentCreate},
		{"explain what a React hook is", IntentExplain},
		{"how does this component work", IntentExplain},
		{"looks great, thanks!", IntentFeedback},
		{"refactor the utils module", IntentRefactor},
		{"remove the old footer", IntentDelete},
		{"commit and push the changes", IntentGit},
		{"make it", IntentUnknown},
		{"hello", IntentUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyIntent(tc.text), "text: %q", tc.text)
	}
}

func TestClassifyIntent_TieBreaksByMatchCount(t *testing.T) {
	// "fix" once, "change"+"update" twice: edit wins on count.
	assert.Equal(t, IntentEdit, ClassifyIntent("fix this, change the spacing and update the layout"))
}

func TestSummarizeByDirectory(t *testing.T) {
	out := summarizeByDirectory([]string{
		"src/App.tsx",
		"src/main.tsx",
		"src/components/Card.tsx",
		"index.html",
	})
	assert.Contains(t, out, "src/: App.tsx, main.tsx")
	assert.Contains(t, out, "src/components/: Card.tsx")
	assert.Contains(t, out, "./: index.html")
}

func TestUnderstand_ClarifiesVagueRequests(t *testing.T) {
	provider := &mockProvider{}
	pc, sink := newPhaseContext(t, provider, "make it")

	result, err := Understand{}.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ActionAbort, result.Action)

	out := sink.String()
	assert.Contains(t, out, "I'd love to help!")
	assert.Contains(t, out, `"phase":"ready"`)
	assert.Contains(t, out, `"type":"done"`)
	assert.Empty(t, provider.requests, "no LLM call for a clarification turn")
}

func TestUnderstand_LongUnknownRequestProceeds(t *testing.T) {
	provider := &mockProvider{}
	pc, _ := newPhaseContext(t, provider, "the quick brown fox jumps over the lazy dog")

	result, err := Understand{}.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ActionContinue, result.Action)
	assert.Equal(t, IntentUnknown, pc.Intent)
}

func TestUnderstand_GenerativeIntentGetsPreAnalysis(t *testing.T) {
	provider := &mockProvider{thinkingResp: "the user wants a landing page"}
	pc, _ := newPhaseContext(t, provider, "create a landing page with a hero section")

	result, err := Understand{}.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ActionContinue, result.Action)
	assert.Equal(t, IntentCreate, pc.Intent)
	assert.Equal(t, "the user wants a landing page", pc.ThinkingAnalysis)
	require.Len(t, provider.requests, 1)
	assert.True(t, provider.requests[0].Thinking)
}

func TestUnderstand_ConversationalIntentSkipsPreAnalysis(t *testing.T) {
	provider := &mockProvider{}
	pc, _ := newPhaseContext(t, provider, "explain what a React hook is")

	result, err := Understand{}.Execute(context.Background(), pc)
	require.NoError(t, err)
	assert.Equal(t, pipeline.ActionContinue, result.Action)
	assert.Empty(t, provider.requests)
}
