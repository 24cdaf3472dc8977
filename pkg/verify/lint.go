// Package verify runs the post-execute checks (lint, type-check,
// missing-import scan, design consistency) and normalizes their
// outputs into structured errors plus plain-language translations.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/proc"
)

// eslintFileResult mirrors eslint's --format json output per file.
type eslintFileResult struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	} `json:"messages"`
	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
}

// RunLint lints the workspace and returns per-file results with
// workspace-relative paths. Files with no findings are omitted.
func RunLint(ctx context.Context, runner proc.Runner, sessionDir string, onLine func(string)) ([]models.LintResult, error) {
	result, err := runner.Run(ctx, proc.RunOptions{
		Dir:     sessionDir,
		Timeout: proc.CheckTimeout,
		OnLine:  onLine,
	}, "npx", "eslint", ".", "--format", "json", "--no-error-on-unmatched-pattern")
	if err != nil {
		return nil, err
	}

	// eslint exits 1 when it finds errors; the JSON report is still on
	// stdout. Anything unparseable means the tool itself failed.
	jsonStart := strings.IndexByte(result.Output, '[')
	if jsonStart < 0 {
		if result.ExitCode == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("eslint produced no report (exit %d): %s", result.ExitCode, truncate(result.Output, 400))
	}

	var files []eslintFileResult
	if err := json.Unmarshal([]byte(result.Output[jsonStart:]), &files); err != nil {
		return nil, fmt.Errorf("failed to parse eslint report: %w", err)
	}

	var out []models.LintResult
	for _, f := range files {
		if f.ErrorCount == 0 && f.WarningCount == 0 {
			continue
		}
		rel := f.FilePath
		if r, relErr := filepath.Rel(sessionDir, f.FilePath); relErr == nil {
			rel = filepath.ToSlash(r)
		}
		lr := models.LintResult{
			Filepath:     rel,
			ErrorCount:   f.ErrorCount,
			WarningCount: f.WarningCount,
		}
		for _, m := range f.Messages {
			lr.Messages = append(lr.Messages, models.LintMessage{
				RuleID:   m.RuleID,
				Severity: m.Severity,
				Message:  m.Message,
				Line:     m.Line,
				Column:   m.Column,
			})
		}
		out = append(out, lr)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
