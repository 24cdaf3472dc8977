package phases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/verify"
)

// maxDesignFindingsShown caps the design-consistency delta.
const maxDesignFindingsShown = 3

// Verify runs lint, type-check, and the missing-import scan in
// parallel, streams their output into the client's terminal view, and
// stores whatever it finds for Repair.
type Verify struct{}

func (Verify) Name() string { return "verify" }

func (Verify) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	if pc.Plan == nil || pc.Plan.MutationCount() == 0 {
		pc.VerificationErrors = nil
		return pipeline.Continue, nil
	}
	pc.Events.Phase(events.PhaseVerifying)

	if err := pc.RefreshFiles(); err != nil {
		return pipeline.Abort, fmt.Errorf("failed to list workspace files: %w", err)
	}

	// Synthetic terminal entries so the client shows the running checks.
	lintResult := models.GitResult{ID: newID(), Command: "npx eslint .", Action: "verify"}
	tscResult := models.GitResult{ID: newID(), Command: "npx tsc --noEmit", Action: "verify"}
	pc.Events.GitResult(lintResult)
	pc.Events.GitResult(tscResult)

	var mu sync.Mutex
	streamInto := func(result *models.GitResult) func(string) {
		return func(line string) {
			mu.Lock()
			result.Output += line + "\n"
			snapshot := *result
			mu.Unlock()
			pc.Events.GitResult(snapshot)
		}
	}

	errs := &models.VerificationErrors{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lint, err := verify.RunLint(gctx, pc.Runner, pc.WorkspaceDir, streamInto(&lintResult))
		if err != nil {
			return fmt.Errorf("lint failed to run: %w", err)
		}
		mu.Lock()
		errs.LintResults = lint
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		tsc, err := verify.RunTypeCheck(gctx, pc.Runner, pc.WorkspaceDir, streamInto(&tscResult))
		if err != nil {
			return fmt.Errorf("type-check failed to run: %w", err)
		}
		mu.Lock()
		errs.TscErrors = tsc
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		missing, err := verify.ScanMissingImports(pc.WorkspaceDir, pc.ExistingFiles)
		if err != nil {
			return fmt.Errorf("import scan failed: %w", err)
		}
		mu.Lock()
		errs.MissingImportErrors = missing
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		// A tool that cannot run is a degraded environment, not broken
		// code. Deliver what was built.
		slog.Warn("Verification tooling unavailable", "session_id", pc.SessionID, "error", err)
		pc.VerificationErrors = nil
		return pipeline.Continue, nil
	}

	if findings := verify.ScanDesignConsistency(pc.WorkspaceDir, pc.ExistingFiles); len(findings) > 0 {
		var b strings.Builder
		b.WriteString("A few colors fall outside the theme palette:\n")
		for i, f := range findings {
			if i >= maxDesignFindingsShown {
				fmt.Fprintf(&b, "…and %d more.\n", len(findings)-maxDesignFindingsShown)
				break
			}
			b.WriteString("- " + f.String() + "\n")
		}
		pc.Events.Delta(b.String())
	}

	if errs.IsClean() {
		slog.Info("Verification clean", "session_id", pc.SessionID)
		pc.VerificationErrors = nil
		return pipeline.Continue, nil
	}

	slog.Info("Verification found errors",
		"session_id", pc.SessionID,
		"lint_files", len(errs.LintResults),
		"tsc_errors", len(errs.TscErrors),
		"missing_imports", len(errs.MissingImportErrors))

	if sentences := verify.Translate(errs); len(sentences) > 0 {
		var b strings.Builder
		b.WriteString("I found a few issues to clean up:\n")
		for _, s := range sentences {
			b.WriteString("- " + s + "\n")
		}
		pc.Events.Delta(b.String())
	}

	pc.VerificationErrors = errs
	return pipeline.Continue, nil
}
