package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/preflight"
)

// scriptedProvider returns canned responses in order and records the
// requests it saw.
type scriptedProvider struct {
	responses []string
	err       error
	requests  []*llm.Request
}

func (s *scriptedProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &llm.Response{
		Text:  s.responses[idx],
		Usage: llm.Usage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (s *scriptedProvider) GenerateImage(context.Context, string) (*llm.ImageResult, error) {
	return nil, errors.New("not scripted")
}

func (s *scriptedProvider) Close() error { return nil }

func TestGenerate_StripsFences(t *testing.T) {
	p := &scriptedProvider{responses: []string{"```tsx\nexport const App = () => null;\n```"}}
	ex := NewExecutor(p, time.Second)

	code, usage, err := ex.Generate(context.Background(), &GenerateRequest{
		Filepath: "src/App.tsx",
		Prompt:   "make an app",
	})
	require.NoError(t, err)
	assert.Equal(t, "export const App = () => null;", strings.TrimSpace(code))
	assert.Equal(t, 10, usage.InputTokens)
	assert.Equal(t, 20, usage.OutputTokens)
}

func TestGenerate_EmptyOutputIsError(t *testing.T) {
	p := &scriptedProvider{responses: []string{"```\n\n```"}}
	ex := NewExecutor(p, time.Second)

	_, _, err := ex.Generate(context.Background(), &GenerateRequest{Filepath: "src/App.tsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty output")
}

func TestGenerate_ProviderErrorWrapped(t *testing.T) {
	p := &scriptedProvider{err: errors.New("quota exceeded")}
	ex := NewExecutor(p, time.Second)

	_, _, err := ex.Generate(context.Background(), &GenerateRequest{Filepath: "src/App.tsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/App.tsx")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGenerateChecked_RegeneratesOnMissingPackage(t *testing.T) {
	dir := t.TempDir()
	p := &scriptedProvider{responses: []string{
		`import { motion } from "framer-motion";` + "\nexport const App = () => null;",
		`export const App = () => null;`,
	}}
	ex := NewExecutor(p, time.Second)
	checker := &preflight.Checker{
		SessionDir: dir,
		Installed:  map[string]bool{"react": true},
	}

	code, usage, err := ex.GenerateChecked(context.Background(), &GenerateRequest{
		Filepath: "src/App.tsx",
		Prompt:   "make an app",
	}, checker, 2)
	require.NoError(t, err)
	assert.NotContains(t, code, "framer-motion")
	// Both calls accumulate into the usage total.
	assert.Equal(t, 20, usage.InputTokens)

	// The regeneration prompt names the missing package.
	require.Len(t, p.requests, 2)
	assert.Contains(t, p.requests[1].Prompt, "framer-motion")
	assert.Contains(t, p.requests[1].Prompt, "make an app")
}

func TestGenerateChecked_ExhaustedReturnsCodeAndError(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`import missing from "./nowhere";` + "\nexport const App = () => null;",
	}}
	ex := NewExecutor(p, time.Second)
	checker := &preflight.Checker{SessionDir: t.TempDir()}

	code, _, err := ex.GenerateChecked(context.Background(), &GenerateRequest{
		Filepath: "src/App.tsx",
		Prompt:   "make an app",
	}, checker, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight")
	assert.Contains(t, code, "./nowhere")
	assert.Len(t, p.requests, 2)
}

func TestGenerateChecked_PlannedPathSatisfiesImport(t *testing.T) {
	p := &scriptedProvider{responses: []string{
		`import { Card } from "./Card";` + "\nexport const App = () => null;",
	}}
	ex := NewExecutor(p, time.Second)
	checker := &preflight.Checker{
		SessionDir:   t.TempDir(),
		PlannedPaths: map[string]bool{"src/Card.tsx": true},
	}

	_, _, err := ex.GenerateChecked(context.Background(), &GenerateRequest{
		Filepath: "src/App.tsx",
	}, checker, 2)
	require.NoError(t, err)
	assert.Len(t, p.requests, 1)
}

func TestExecutorSystemPrompt_EntrypointException(t *testing.T) {
	entry := executorSystemPrompt(&GenerateRequest{Filepath: AppEntrypoint})
	assert.Contains(t, entry, "default export")

	other := executorSystemPrompt(&GenerateRequest{Filepath: "src/App.tsx"})
	assert.NotContains(t, other, "entrypoint")
	assert.Contains(t, other, "named exports")
}

func TestExecutorSystemPrompt_ManifestSorted(t *testing.T) {
	out := executorSystemPrompt(&GenerateRequest{
		Filepath:     "src/App.tsx",
		FileManifest: []string{"src/z.ts", "src/a.ts"},
	})
	assert.Less(t, strings.Index(out, "src/a.ts"), strings.Index(out, "src/z.ts"))
}

func TestBuildPlannerInstruction_SectionOrder(t *testing.T) {
	out := BuildPlannerInstruction(PlannerContext{
		ExistingFiles:    []string{"src/App.tsx"},
		ProjectMemory:    "memory-marker",
		Intent:           "create",
		ThinkingAnalysis: "analysis-marker",
	})
	assert.Less(t, strings.Index(out, "src/App.tsx"), strings.Index(out, "memory-marker"))
	assert.Less(t, strings.Index(out, "memory-marker"), strings.Index(out, "Classified intent: create"))
	assert.Less(t, strings.Index(out, "Classified intent: create"), strings.Index(out, "analysis-marker"))
}

func TestEnhanceImagePrompt(t *testing.T) {
	short := EnhanceImagePrompt("a cat")
	assert.Contains(t, short, "high quality")

	long := "a detailed watercolor painting of a cat sleeping on a windowsill"
	assert.Equal(t, long, EnhanceImagePrompt(long))
}

func TestThinkingPrompt_IncludesContext(t *testing.T) {
	out := ThinkingPrompt("build a todo app", "memo", "src/App.tsx exists")
	assert.Contains(t, out, "build a todo app")
	assert.Contains(t, out, "memo")
	assert.Contains(t, out, "src/App.tsx exists")
	assert.Contains(t, out, "Premium touches")
}
