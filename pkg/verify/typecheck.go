package verify

import (
	"context"
	"regexp"
	"strings"

	"github.com/appforge/forge/pkg/proc"
)

// tscErrorLine matches "src/App.tsx(12,5): error TS2307: Cannot find module './B'."
var tscErrorLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): error (TS\d+): (.+)$`)

// RunTypeCheck type-checks the workspace and returns one string per
// diagnostic, in the compiler's own format.
func RunTypeCheck(ctx context.Context, runner proc.Runner, sessionDir string, onLine func(string)) ([]string, error) {
	result, err := runner.Run(ctx, proc.RunOptions{
		Dir:     sessionDir,
		Timeout: proc.CheckTimeout,
		OnLine:  onLine,
	}, "npx", "tsc", "--noEmit", "--pretty", "false")
	if err != nil {
		return nil, err
	}

	var errors []string
	for _, line := range strings.Split(result.Output, "\n") {
		line = strings.TrimSpace(line)
		if tscErrorLine.MatchString(line) {
			errors = append(errors, line)
		}
	}
	return errors, nil
}

// TscErrorFile extracts the file reference from a type-check error
// string, "" when the diagnostic is not file-scoped.
func TscErrorFile(errLine string) string {
	if m := tscErrorLine.FindStringSubmatch(errLine); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// TscErrorCode extracts the TSxxxx code, "" when absent.
func TscErrorCode(errLine string) string {
	if m := tscErrorLine.FindStringSubmatch(errLine); m != nil {
		return m[4]
	}
	return ""
}
