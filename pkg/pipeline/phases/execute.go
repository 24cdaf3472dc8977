package phases

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
	"github.com/appforge/forge/pkg/preflight"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// designTokenFiles are probed in order; the first hit is injected as
// related-file context into every generation call so new code follows
// the established palette.
var designTokenFiles = []string{
	"src/theme.ts",
	"src/theme.css",
	"src/index.css",
}

// Execute dispatches the plan's tasks: chat prose first in plan order,
// then the mutating tasks through a bounded worker pool with per-file
// serialization. Task failures become observable events, never phase
// errors.
type Execute struct{}

func (Execute) Name() string { return "execute" }

type executeJob struct {
	index    int
	task     models.Task
	actionID string
}

func (Execute) Execute(ctx context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	if pc.Plan == nil {
		return pipeline.Continue, nil
	}
	pc.Events.Phase(events.PhaseExecuting)

	if len(pc.TransparencyTasks()) == 0 {
		var tasks []models.TransparencyTask
		for i, t := range pc.Plan.Tasks {
			if !t.IsFileTouching() {
				continue
			}
			tasks = append(tasks, models.TransparencyTask{
				ID:          newID(),
				Description: describeTask(t),
				Status:      models.TransparencyPending,
				PlanIndex:   i,
			})
		}
		pc.SetTransparency(tasks)
	}

	// Chat prose streams immediately, before any placeholder.
	for _, t := range pc.Plan.Tasks {
		if t.Type == models.TaskChat && t.Content != "" {
			pc.Events.Delta(t.Content)
			pc.AddChatText(t.Content)
		}
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
	designPath, designContent := loadDesignTokens(pc)

	// Placeholders go out in plan order so the client shows every tile
	// before any worker starts.
	var jobs []executeJob
	genTotal := 0
	for i, t := range pc.Plan.Tasks {
		if t.Type == models.TaskChat {
			continue
		}
		job := executeJob{index: i, task: t, actionID: newID()}
		switch t.Type {
		case models.TaskCreateFile, models.TaskEditFile:
			genTotal++
			pc.Events.FileAction(placeholderAction(job))
		case models.TaskDeleteFile, models.TaskGenerateImage:
			pc.Events.FileAction(placeholderAction(job))
		}
		jobs = append(jobs, job)
	}

	var started atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pc.Config.Pipeline.ExecuteConcurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			runExecuteJob(gctx, pc, job, checker, designPath, designContent, &started, genTotal)
			return nil
		})
	}
	_ = g.Wait()

	return pipeline.Continue, nil
}

func placeholderAction(job executeJob) models.FileAction {
	return models.FileAction{
		ID:       job.actionID,
		Filepath: job.task.Filepath,
		Filename: path.Base(job.task.Filepath),
		Language: languageFor(job.task.Filepath),
		Action:   actionFor(job.task.Type),
		Status:   models.FileActionExecuting,
		Prompt:   job.task.Prompt,
	}
}

func actionFor(taskType string) string {
	switch taskType {
	case models.TaskEditFile:
		return models.ActionEdited
	case models.TaskDeleteFile:
		return models.ActionDeleted
	default:
		return models.ActionCreated
	}
}

func runExecuteJob(ctx context.Context, pc *pipeline.Context, job executeJob, checker *preflight.Checker, designPath, designContent string, started *atomic.Int64, genTotal int) {
	switch job.task.Type {
	case models.TaskCreateFile, models.TaskEditFile:
		_ = pc.Serializer.Enqueue(job.task.Filepath, func() error {
			generateFile(ctx, pc, job, checker, designPath, designContent, started, genTotal)
			return nil
		})
	case models.TaskDeleteFile:
		_ = pc.Serializer.Enqueue(job.task.Filepath, func() error {
			deleteFile(pc, job)
			return nil
		})
	case models.TaskGenerateImage:
		_ = pc.Serializer.Enqueue(job.task.Filepath, func() error {
			generateImage(ctx, pc, job)
			return nil
		})
	case models.TaskGitAction:
		runGitAction(ctx, pc, job)
	}
}

func generateFile(ctx context.Context, pc *pipeline.Context, job executeJob, checker *preflight.Checker, designPath, designContent string, started *atomic.Int64, genTotal int) {
	t := job.task
	pc.MarkTask(job.index, models.TransparencyInProgress)
	k := started.Add(1)
	pc.Events.PhaseDetail(events.PhaseExecuting,
		fmt.Sprintf("Building %s (%d of %d)", t.Filepath, k, genTotal))

	prior, _, err := pc.Store.ReadFile(pc.SessionID, t.Filepath)
	if err != nil {
		slog.Warn("Failed to read prior content", "session_id", pc.SessionID, "filepath", t.Filepath, "error", err)
	}

	related := make(map[string]string)
	if designContent != "" && designPath != t.Filepath {
		related[designPath] = designContent
	}
	if t.Type == models.TaskEditFile && prior != "" {
		collectRelatedFiles(pc, t.Filepath, prior, related)
	}

	code, usage, genErr := pc.Executor.GenerateChecked(ctx, &agent.GenerateRequest{
		SessionID:    pc.SessionID,
		Filepath:     t.Filepath,
		Prompt:       t.Prompt,
		History:      pc.LLMHistory(),
		FileManifest: pc.ExistingFiles,
		PriorContent: prior,
		RelatedFiles: related,
	}, checker, pc.Config.Pipeline.ImportRegenAttempts)
	pc.Events.AddUsage(usage.InputTokens, usage.OutputTokens)

	if genErr != nil && code == "" {
		completeWithFailure(pc, job, fmt.Sprintf("[Execution failed: %v]", genErr))
		return
	}
	if genErr != nil {
		// Unresolved imports after the regen budget: write anyway and let
		// verify/repair take over.
		slog.Warn("Writing file with unresolved imports",
			"session_id", pc.SessionID, "filepath", t.Filepath, "error", genErr)
	}

	priorOnDisk, writeErr := pc.Store.WriteFile(pc.SessionID, t.Filepath, code)
	if writeErr != nil {
		completeWithFailure(pc, job, fmt.Sprintf("[Execution failed: %v]", writeErr))
		return
	}

	diff, stats := workspace.GenerateDiff(t.Filepath, priorOnDisk, code)
	final := placeholderAction(job)
	final.Status = models.FileActionComplete
	final.Content = code
	final.LinesAdded = stats.Added
	final.LinesRemoved = stats.Removed
	final.Diff = diff
	pc.Events.FileAction(final)
	pc.AddFileAction(final)
	pc.MarkTask(job.index, models.TransparencyDone)
}

func deleteFile(pc *pipeline.Context, job executeJob) {
	pc.MarkTask(job.index, models.TransparencyInProgress)
	if err := pc.Store.DeleteFile(pc.SessionID, job.task.Filepath); err != nil {
		completeWithFailure(pc, job, fmt.Sprintf("[Execution failed: %v]", err))
		return
	}
	final := placeholderAction(job)
	final.Status = models.FileActionComplete
	pc.Events.FileAction(final)
	pc.AddFileAction(final)
	pc.MarkTask(job.index, models.TransparencyDone)
}

func generateImage(ctx context.Context, pc *pipeline.Context, job executeJob) {
	t := job.task
	pc.MarkTask(job.index, models.TransparencyInProgress)

	result, err := pc.Provider.GenerateImage(ctx, agent.EnhanceImagePrompt(t.Prompt))
	if err != nil {
		completeWithFailure(pc, job, fmt.Sprintf("[Image generation failed: %v]", err))
		return
	}
	pc.Events.AddUsage(result.Usage.InputTokens, result.Usage.OutputTokens)

	if err := pc.Store.WriteBytes(pc.SessionID, t.Filepath, result.Data); err != nil {
		completeWithFailure(pc, job, fmt.Sprintf("[Image generation failed: %v]", err))
		return
	}
	final := placeholderAction(job)
	final.Status = models.FileActionComplete
	pc.Events.FileAction(final)
	pc.AddFileAction(final)
	pc.MarkTask(job.index, models.TransparencyDone)
}

func runGitAction(ctx context.Context, pc *pipeline.Context, job executeJob) {
	pc.MarkTask(job.index, models.TransparencyInProgress)
	result := models.GitResult{
		ID:      job.actionID,
		Index:   job.index,
		Command: job.task.Command,
	}
	output, err := proc.RunGit(ctx, pc.Runner, pc.WorkspaceDir, job.task.Command)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Output = output
	}
	pc.Events.GitResult(result)
	pc.AddGitResult(result)
	pc.MarkTask(job.index, models.TransparencyDone)
}

// completeWithFailure emits the completed event carrying the failure
// marker so the client shows the failed tile instead of hanging.
func completeWithFailure(pc *pipeline.Context, job executeJob, marker string) {
	final := placeholderAction(job)
	final.Status = models.FileActionComplete
	final.Content = marker
	pc.Events.FileAction(final)
	pc.AddFileAction(final)
	pc.MarkTask(job.index, models.TransparencyDone)
}

// collectRelatedFiles resolves the file's relative imports to existing
// source siblings and loads their content for generation context.
func collectRelatedFiles(pc *pipeline.Context, fromFile, source string, related map[string]string) {
	for _, spec := range preflight.ExtractSpecifiers(source) {
		if spec == "" || spec[0] != '.' {
			continue
		}
		resolved := path.Clean(path.Join(path.Dir(fromFile), spec))
		for _, candidate := range preflight.Candidates(resolved) {
			switch path.Ext(candidate) {
			case ".ts", ".tsx", ".js", ".jsx":
			default:
				continue
			}
			if _, ok := related[candidate]; ok {
				break
			}
			content, found, err := pc.Store.ReadFile(pc.SessionID, candidate)
			if err != nil || !found {
				continue
			}
			related[candidate] = content
			break
		}
	}
}

func loadDesignTokens(pc *pipeline.Context) (string, string) {
	for _, rel := range designTokenFiles {
		content, found, err := pc.Store.ReadFile(pc.SessionID, rel)
		if err == nil && found && content != "" {
			return rel, content
		}
	}
	return "", ""
}
