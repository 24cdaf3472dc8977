// Package agent holds the single-file code generator and the prompt
// builders that drive the planning and analysis LLM calls.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/preflight"
)

// AppEntrypoint is the only file allowed a default export.
const AppEntrypoint = "src/main.tsx"

// DefaultExecutorTimeout bounds one code-generation call.
const DefaultExecutorTimeout = 60 * time.Second

// Executor is the constrained single-file code generator: one LLM call
// per file, raw source out, hard per-call timeout.
type Executor struct {
	provider llm.Provider
	timeout  time.Duration
}

// NewExecutor creates an executor. A zero timeout selects the default.
func NewExecutor(provider llm.Provider, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultExecutorTimeout
	}
	return &Executor{provider: provider, timeout: timeout}
}

// GenerateRequest is one file-generation call.
type GenerateRequest struct {
	SessionID    string
	Filepath     string
	Prompt       string
	History      []llm.Message     // recent conversation window
	FileManifest []string          // exact import paths available
	PriorContent string            // existing content for edits
	RelatedFiles map[string]string // path → content context
}

// Generate produces the file's complete source. Fences the model leaks
// are stripped; timeouts and empty outputs are errors.
func (e *Executor) Generate(ctx context.Context, req *GenerateRequest) (string, llm.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.provider.Generate(ctx, &llm.Request{
		System:  executorSystemPrompt(req),
		History: req.History,
		Prompt:  executorUserPrompt(req),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", llm.Usage{}, fmt.Errorf("code generation for %s timed out after %s", req.Filepath, e.timeout)
		}
		return "", llm.Usage{}, fmt.Errorf("code generation for %s failed: %w", req.Filepath, err)
	}

	code := llm.StripFences(resp.Text)
	if strings.TrimSpace(code) == "" {
		return "", resp.Usage, fmt.Errorf("code generation for %s returned empty output", req.Filepath)
	}
	return code, resp.Usage, nil
}

// GenerateChecked runs Generate under an import-preflight retry loop:
// failed checks feed a regeneration prompt naming the missing packages
// and paths, up to maxRegen extra attempts. When the last attempt still
// fails preflight, the code is returned alongside the failure so the
// caller can surface it.
func (e *Executor) GenerateChecked(ctx context.Context, req *GenerateRequest, checker *preflight.Checker, maxRegen int) (string, llm.Usage, error) {
	var total llm.Usage
	basePrompt := req.Prompt

	for attempt := 0; ; attempt++ {
		code, usage, err := e.Generate(ctx, req)
		total.InputTokens += usage.InputTokens
		total.OutputTokens += usage.OutputTokens
		if err != nil {
			return "", total, err
		}

		check := checker.Run(req.Filepath, code)
		if check.OK() {
			return code, total, nil
		}
		if attempt >= maxRegen {
			return code, total, fmt.Errorf("import preflight failed for %s: %d missing packages, %d unresolved imports",
				req.Filepath, len(check.MissingPackages), len(check.MissingImports))
		}
		req.Prompt = basePrompt + "\n\n" + preflight.FeedbackPrompt(check)
	}
}

func executorSystemPrompt(req *GenerateRequest) string {
	var b strings.Builder
	b.WriteString(`You are an expert frontend engineer generating one complete source file.

Rules:
- Output ONLY the raw file content. No markdown fences, no commentary.
- Use named exports.`)
	if req.Filepath == AppEntrypoint {
		b.WriteString(" This file is the application entrypoint and may use a default export.")
	}
	b.WriteString(`
- Never reference external image URLs; use local assets or inline SVG.
- Import other project files by their exact paths from the manifest below.
`)
	if len(req.FileManifest) > 0 {
		b.WriteString("\nProject files:\n")
		manifest := append([]string(nil), req.FileManifest...)
		sort.Strings(manifest)
		for _, f := range manifest {
			b.WriteString("- " + f + "\n")
		}
	}
	return b.String()
}

func executorUserPrompt(req *GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate the complete content of `%s`.\n\nTask: %s\n", req.Filepath, req.Prompt)

	if req.PriorContent != "" {
		fmt.Fprintf(&b, "\nCurrent content of %s:\n```\n%s\n```\n", req.Filepath, req.PriorContent)
	}
	if len(req.RelatedFiles) > 0 {
		paths := make([]string, 0, len(req.RelatedFiles))
		for p := range req.RelatedFiles {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		b.WriteString("\nRelated files for context:\n")
		for _, p := range paths {
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", p, req.RelatedFiles[p])
		}
	}
	return b.String()
}
