package proc

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Shell metacharacters rejected in git_action commands. Commands run
// without a shell, so these can only ever be injection attempts.
var gitDenylist = []string{";", "|", "$", "<", ">"}

// ValidateGitCommand rejects anything that is not a plain git invocation.
func ValidateGitCommand(command string) error {
	trimmed := strings.TrimSpace(command)
	if trimmed != "git" && !strings.HasPrefix(trimmed, "git ") {
		return fmt.Errorf("Security Error: only git commands are allowed, got %q", firstWord(trimmed))
	}
	for _, ch := range gitDenylist {
		if strings.Contains(trimmed, ch) {
			return fmt.Errorf("Security Error: command contains forbidden character %q", ch)
		}
	}
	return nil
}

// RewritePush expands a bare "git push" so first pushes set the
// upstream without prompting.
func RewritePush(command string) string {
	if strings.TrimSpace(command) == "git push" {
		return "git push -u origin HEAD"
	}
	return command
}

// RunGit validates and executes a git_action command inside the session
// workspace. GIT_CEILING_DIRECTORIES pins repository discovery to the
// workspace's parent so a stray command can never operate on an outer
// repository.
func RunGit(ctx context.Context, runner Runner, workspaceDir, command string) (string, error) {
	if err := ValidateGitCommand(command); err != nil {
		return "", err
	}
	command = RewritePush(command)

	fields := strings.Fields(command)
	result, err := runner.Run(ctx, RunOptions{
		Dir:     workspaceDir,
		Timeout: GitTimeout,
		Env: []string{
			"GIT_CEILING_DIRECTORIES=" + filepath.Dir(workspaceDir),
			"GIT_TERMINAL_PROMPT=0",
		},
	}, fields[0], fields[1:]...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.Output))
	}
	return result.Output, nil
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return s
}
