package phases

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/preflight"
	"github.com/appforge/forge/pkg/verify"
	"github.com/appforge/forge/pkg/workspace"
)

// moduleSpecifier pulls the quoted module out of a "Cannot find module"
// diagnostic.
var moduleSpecifier = regexp.MustCompile(`Cannot find module '([^']+)'`)

// strategyBlocks are appended to the repair prompt based on the error
// classes present in the file.
var strategyBlocks = map[string]string{
	"syntax": "Fix every syntax error first: balance brackets, close JSX tags, complete any truncated statements.",
	"import": "Fix the import problems: remove imports of files or packages that do not exist, or correct the paths to match real files.",
	"type":   "Align the types: fix mismatched assignments, wrong arguments, and missing properties without changing runtime behavior.",
	"unused": "Remove unused imports, variables, and parameters.",
}

// Repair rewrites the files verification flagged, with regression
// detection and checkpoint revert, then loops back to Verify. The loop
// converges: either the error count shrinks each round or the retry cap
// ends it.
type Repair struct{}

func (Repair) Name() string { return "repair" }

func (Repair) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	errs := pc.VerificationErrors
	if errs == nil {
		return pipeline.Continue, nil
	}

	pc.RepairRetryCount++
	if pc.RepairRetryCount > pc.Config.Pipeline.MaxRepairRetries {
		msg := "I've reached the maximum number of repair attempts. The remaining issues are listed above; tell me to keep going and I'll take another pass."
		pc.Events.Delta(msg)
		pc.RepairNotes += fmt.Sprintf("Gave up after %d repair rounds with %d errors remaining.\n",
			pc.Config.Pipeline.MaxRepairRetries, errs.TotalErrorCount())
		pc.VerificationErrors = nil
		return pipeline.Continue, nil
	}

	pc.Events.PhaseDetail(events.PhaseRepairing,
		fmt.Sprintf("Repair attempt %d of %d", pc.RepairRetryCount, pc.Config.Pipeline.MaxRepairRetries))

	currentCount := errs.TotalErrorCount()
	if pc.RepairRetryCount > 1 && currentCount > pc.PreviousErrorCount {
		slog.Warn("Repair regression detected",
			"session_id", pc.SessionID, "previous", pc.PreviousErrorCount, "current", currentCount)
		pc.Events.Delta("The last fix introduced new problems, so I'm rolling those files back and trying a different approach.")
		pc.RepairNotes += "Detected a regression and reverted to the previous checkpoint.\n"
		revertCheckpoint(pc)
	}
	pc.PreviousErrorCount = currentCount

	synthesizeAssets(pc, errs)

	filesToFix, fileErrors, lintByFile := collectFilesToFix(errs)
	if len(filesToFix) == 0 {
		pc.VerificationErrors = nil
		return pipeline.Continue, nil
	}
	sourceModules := findSourceModules(errs, filesToFix)

	// Checkpoint before any write so a regression next round can revert.
	pc.FileCheckpoint = make(map[string]pipeline.FileSnapshot, len(filesToFix))
	for f := range filesToFix {
		content, found, err := pc.Store.ReadFile(pc.SessionID, f)
		if err != nil {
			slog.Warn("Failed to checkpoint file", "session_id", pc.SessionID, "filepath", f, "error", err)
			continue
		}
		pc.FileCheckpoint[f] = pipeline.FileSnapshot{Content: content, Existed: found}
	}

	installed, err := preflight.InstalledPackages(pc.WorkspaceDir)
	if err != nil {
		slog.Warn("Failed to read installed packages", "session_id", pc.SessionID, "error", err)
	}
	checker := &preflight.Checker{
		SessionDir:   pc.WorkspaceDir,
		Installed:    installed,
		PlannedPaths: pc.Plan.PlannedPaths(),
	}

	// Source modules first so consumers are fixed against fresh exports.
	ordered := [2][]string{}
	for f := range filesToFix {
		if sourceModules[f] {
			ordered[0] = append(ordered[0], f)
		} else {
			ordered[1] = append(ordered[1], f)
		}
	}
	for round := range ordered {
		files := ordered[round]
		sort.Strings(files)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(pc.Config.Pipeline.RepairConcurrency)
		for _, f := range files {
			f := f
			g.Go(func() error {
				_ = pc.Serializer.Enqueue(f, func() error {
					repairFile(gctx, pc, f, fileErrors[f], lintByFile[f], checker)
					return nil
				})
				return nil
			})
		}
		_ = g.Wait()
	}

	pc.RepairNotes += fmt.Sprintf("Repair round %d rewrote %d file(s).\n", pc.RepairRetryCount, len(filesToFix))
	return pipeline.LoopTo("verify"), nil
}

// revertCheckpoint restores every checkpointed file to its snapshot.
func revertCheckpoint(pc *pipeline.Context) {
	for f, snap := range pc.FileCheckpoint {
		var err error
		if snap.Existed {
			_, err = pc.Store.WriteFile(pc.SessionID, f, snap.Content)
		} else {
			err = pc.Store.DeleteFile(pc.SessionID, f)
		}
		if err != nil {
			slog.Warn("Failed to revert file", "session_id", pc.SessionID, "filepath", f, "error", err)
		}
	}
}

// synthesizeAssets creates placeholder files for missing style and svg
// imports; those never need an LLM round-trip.
func synthesizeAssets(pc *pipeline.Context, errs *models.VerificationErrors) {
	for _, line := range errs.MissingImportErrors {
		_, _, expected, ok := verify.ParseMissingImport(line)
		if !ok {
			continue
		}
		var placeholder string
		switch path.Ext(expected) {
		case ".svg":
			placeholder = "<svg xmlns=\"http://www.w3.org/2000/svg\"></svg>\n"
		case ".css", ".scss", ".less":
			placeholder = "/* placeholder */\n"
		default:
			continue
		}
		if pc.Store.Exists(pc.SessionID, expected) {
			continue
		}
		if _, err := pc.Store.WriteFile(pc.SessionID, expected, placeholder); err != nil {
			slog.Warn("Failed to synthesize asset", "session_id", pc.SessionID, "filepath", expected, "error", err)
			continue
		}
		slog.Info("Synthesized placeholder asset", "session_id", pc.SessionID, "filepath", expected)
	}
}

// collectFilesToFix unions lint-flagged files, type-error file
// references, and missing-import source files, and splits the error
// lines per file for prompt building.
func collectFilesToFix(errs *models.VerificationErrors) (map[string]bool, map[string][]string, map[string][]models.LintMessage) {
	files := make(map[string]bool)
	fileErrors := make(map[string][]string)
	lintByFile := make(map[string][]models.LintMessage)

	for _, lr := range errs.LintResults {
		if lr.ErrorCount == 0 {
			continue
		}
		files[lr.Filepath] = true
		lintByFile[lr.Filepath] = lr.Messages
	}

	orphanTscErrors := false
	for _, line := range errs.TscErrors {
		if f := verify.TscErrorFile(line); f != "" {
			files[f] = true
			fileErrors[f] = append(fileErrors[f], line)
		} else {
			orphanTscErrors = true
		}
	}
	if orphanTscErrors && len(files) == 0 {
		files[agent.AppEntrypoint] = true
	}

	for _, line := range errs.MissingImportErrors {
		from, _, expected, ok := verify.ParseMissingImport(line)
		if !ok {
			continue
		}
		switch path.Ext(expected) {
		case ".css", ".scss", ".less", ".svg":
			// Handled by asset synthesis.
			continue
		}
		files[from] = true
		fileErrors[from] = append(fileErrors[from], line)
	}
	return files, fileErrors, lintByFile
}

// findSourceModules identifies files that other files' type errors name
// as the unresolvable module; fixing them first keeps consumer repairs
// from targeting stale exports.
func findSourceModules(errs *models.VerificationErrors, filesToFix map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, line := range errs.TscErrors {
		m := moduleSpecifier.FindStringSubmatch(line)
		if m == nil || !strings.HasPrefix(m[1], ".") {
			continue
		}
		from := verify.TscErrorFile(line)
		if from == "" {
			continue
		}
		resolved := path.Clean(path.Join(path.Dir(from), m[1]))
		for _, candidate := range preflight.Candidates(resolved) {
			if filesToFix[candidate] {
				out[candidate] = true
			}
		}
	}
	return out
}

// repairFile rewrites one flagged file through the executor with the
// error report, cross-file context, and strategy guidance.
func repairFile(ctx context.Context, pc *pipeline.Context, filePath string, errLines []string, lint []models.LintMessage, checker *preflight.Checker) {
	current, found, err := pc.Store.ReadFile(pc.SessionID, filePath)
	if err != nil || !found {
		slog.Warn("Skipping repair of unreadable file", "session_id", pc.SessionID, "filepath", filePath, "error", err)
		return
	}

	related := make(map[string]string)
	collectRelatedFiles(pc, filePath, current, related)

	code, usage, genErr := pc.Executor.GenerateChecked(ctx, &agent.GenerateRequest{
		SessionID:    pc.SessionID,
		Filepath:     filePath,
		Prompt:       buildRepairPrompt(filePath, errLines, lint),
		History:      pc.LLMHistory(),
		FileManifest: pc.ExistingFiles,
		PriorContent: current,
		RelatedFiles: related,
	}, checker, pc.Config.Pipeline.ImportRegenAttempts)
	pc.Events.AddUsage(usage.InputTokens, usage.OutputTokens)

	if genErr != nil && code == "" {
		slog.Warn("Repair generation failed", "session_id", pc.SessionID, "filepath", filePath, "error", genErr)
		return
	}

	prior, writeErr := pc.Store.WriteFile(pc.SessionID, filePath, code)
	if writeErr != nil {
		slog.Warn("Failed to write repaired file", "session_id", pc.SessionID, "filepath", filePath, "error", writeErr)
		return
	}

	diff, stats := workspace.GenerateDiff(filePath, prior, code)
	action := models.FileAction{
		ID:           newID(),
		Filepath:     filePath,
		Filename:     path.Base(filePath),
		Language:     languageFor(filePath),
		Action:       models.ActionEdited,
		Content:      code,
		LinesAdded:   stats.Added,
		LinesRemoved: stats.Removed,
		Diff:         diff,
		Status:       models.FileActionComplete,
	}
	pc.Events.FileAction(action)
	pc.AddFileAction(action)
}

// buildRepairPrompt concatenates the error report and the strategy
// blocks for the error classes present.
func buildRepairPrompt(filePath string, errLines []string, lint []models.LintMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix every error in `%s` while preserving its intended behavior.\n\nErrors:\n", filePath)
	for _, line := range errLines {
		b.WriteString("- " + line + "\n")
	}
	for _, msg := range lint {
		fmt.Fprintf(&b, "- %s:%d:%d %s (%s)\n", filePath, msg.Line, msg.Column, msg.Message, msg.RuleID)
	}

	classes := verify.ClassifyErrorStrategies(errLines, lint)
	if len(classes) > 0 {
		b.WriteString("\nApproach:\n")
		for _, c := range classes {
			b.WriteString("- " + strategyBlocks[c] + "\n")
		}
	}
	return b.String()
}
