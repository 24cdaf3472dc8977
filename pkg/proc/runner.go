// Package proc launches external tools (package installer, lint,
// type-check, dev-server, version-control CLI) inside a session
// directory with streaming output capture and hard timeouts.
package proc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Default timeouts per tool family.
const (
	InstallTimeout = 120 * time.Second
	CheckTimeout   = 90 * time.Second
	GitTimeout     = 30 * time.Second
)

// Result is the outcome of one subprocess run. Output is the combined
// stdout+stderr in arrival order; it is scanned line by line rather than
// buffered wholesale so long installs stream to the client.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// RunOptions configures a subprocess invocation.
type RunOptions struct {
	Dir     string        // working directory (the session workspace)
	Timeout time.Duration // hard deadline; 0 means no extra deadline
	Env     []string      // appended to the inherited environment
	OnLine  func(string)  // per output line, possibly from two goroutines at once; may be nil
}

// Runner launches subprocesses. A single zero-value Runner is shared by
// the whole pipeline; it carries no state.
type Runner struct{}

// Run executes name with args under opts and returns the captured
// result. A non-zero exit is not an error (callers inspect ExitCode),
// but start failures and timeouts are.
func (Runner) Run(ctx context.Context, opts RunOptions, name string, args ...string) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	var mu sync.Mutex
	var output strings.Builder
	var scanErr error
	var wg sync.WaitGroup
	capture := func(r io.Reader) {
		defer wg.Done()
		// eslint --format json emits its whole report as one line, so
		// the default 64 KiB token limit is not enough.
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := sc.Text()
			mu.Lock()
			output.WriteString(line)
			output.WriteByte('\n')
			mu.Unlock()
			if opts.OnLine != nil {
				opts.OnLine(line)
			}
		}
		if err := sc.Err(); err != nil {
			mu.Lock()
			if scanErr == nil {
				scanErr = err
			}
			mu.Unlock()
		}
	}
	wg.Add(2)
	go capture(stdout)
	go capture(stderr)
	wg.Wait()

	waitErr := cmd.Wait()
	result := &Result{Output: output.String()}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		slog.Warn("Subprocess timed out", "command", name, "dir", opts.Dir, "timeout", opts.Timeout)
		return result, fmt.Errorf("%s timed out after %s", name, opts.Timeout)
	}
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if waitErr != nil {
		return result, fmt.Errorf("%s failed: %w", name, waitErr)
	}
	if scanErr != nil {
		return result, fmt.Errorf("%s output capture failed: %w", name, scanErr)
	}
	return result, nil
}
