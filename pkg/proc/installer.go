package proc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Installed reports whether the workspace's dependency tree is present.
func Installed(workspaceDir string) bool {
	info, err := os.Stat(filepath.Join(workspaceDir, "node_modules"))
	return err == nil && info.IsDir()
}

// Install runs the package installer in the workspace, streaming each
// output line through onLine for the client's terminal view.
func Install(ctx context.Context, runner Runner, workspaceDir string, onLine func(string)) error {
	result, err := runner.Run(ctx, RunOptions{
		Dir:     workspaceDir,
		Timeout: InstallTimeout,
		OnLine:  onLine,
	}, "npm", "install", "--no-audit", "--no-fund")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("npm install exited with code %d", result.ExitCode)
	}
	return nil
}
