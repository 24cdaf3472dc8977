package pipeline

import (
	"sync"

	"github.com/appforge/forge/pkg/agent"
	"github.com/appforge/forge/pkg/config"
	"github.com/appforge/forge/pkg/events"
	"github.com/appforge/forge/pkg/llm"
	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/proc"
	"github.com/appforge/forge/pkg/workspace"
)

// historyWindow bounds how many stored turns are replayed into prompts.
const historyWindow = 10

// FileSnapshot is one entry of the pre-repair checkpoint.
type FileSnapshot struct {
	Content string
	Existed bool
}

// Context is the single mutable state threaded through every phase of
// one chat request. Collaborators (store, runner, provider) are set up
// by the handler before Run; accumulators are appended by the phases.
//
// The execute and repair pools write concurrently; all slice appends and
// transparency updates go through the mutex-guarded methods below.
type Context struct {
	SessionID    string
	WorkspaceDir string
	IsNewSession bool

	Messages []models.ClientMessage // the client's conversation
	History  []models.StoredMessage // persisted prior turns

	// Collaborators.
	Events     *events.Bus
	Store      *workspace.Store
	Serializer *workspace.Serializer
	Memory     *workspace.Memory
	Runner     proc.Runner
	DevServers *proc.DevServerManager
	Provider   llm.Provider
	Executor   *agent.Executor
	Config     *config.Config

	// Populated by Understand.
	Intent           string
	ThinkingAnalysis string
	CodebaseSummary  string
	ProjectContext   string
	ExistingFiles    []string
	UploadedImages   []llm.InlineImage

	// Populated by PMAnalyze and Plan.
	PMSpec *models.PMSpec
	Plan   *models.ExecutionPlan

	// Verify ⇆ Repair state.
	VerificationErrors *models.VerificationErrors
	RepairRetryCount   int
	PreviousErrorCount int
	FileCheckpoint     map[string]FileSnapshot
	RepairNotes        string

	mu                   sync.Mutex
	transparencyTasks    []models.TransparencyTask
	completedFileActions []models.FileAction
	completedGitActions  []models.GitResult
	chatText             []string
}

// RequestText is the user's current request.
func (c *Context) RequestText() string {
	return models.LastUserContent(c.Messages)
}

// LLMHistory converts the persisted history tail into provider messages.
func (c *Context) LLMHistory() []llm.Message {
	start := 0
	if len(c.History) > historyWindow {
		start = len(c.History) - historyWindow
	}
	out := make([]llm.Message, 0, len(c.History)-start)
	for _, m := range c.History[start:] {
		role := llm.RoleUser
		if m.Role == models.RoleAssistant {
			role = llm.RoleModel
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// SetTransparency installs the task breakdown and broadcasts it.
func (c *Context) SetTransparency(tasks []models.TransparencyTask) {
	c.mu.Lock()
	c.transparencyTasks = tasks
	snapshot := append([]models.TransparencyTask(nil), tasks...)
	c.mu.Unlock()
	c.Events.Transparency(snapshot)
}

// MarkTask transitions the transparency task owning planIndex and
// re-broadcasts the whole breakdown.
func (c *Context) MarkTask(planIndex int, status string) {
	c.mu.Lock()
	for i := range c.transparencyTasks {
		if c.transparencyTasks[i].PlanIndex == planIndex {
			c.transparencyTasks[i].Status = status
			break
		}
	}
	snapshot := append([]models.TransparencyTask(nil), c.transparencyTasks...)
	c.mu.Unlock()
	c.Events.Transparency(snapshot)
}

// TransparencyTasks returns a copy of the current breakdown.
func (c *Context) TransparencyTasks() []models.TransparencyTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.TransparencyTask(nil), c.transparencyTasks...)
}

// AddFileAction records a completed file mutation.
func (c *Context) AddFileAction(fa models.FileAction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedFileActions = append(c.completedFileActions, fa)
}

// FileActions returns a copy of the completed file mutations.
func (c *Context) FileActions() []models.FileAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.FileAction(nil), c.completedFileActions...)
}

// AddGitResult records a completed terminal action.
func (c *Context) AddGitResult(gr models.GitResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completedGitActions = append(c.completedGitActions, gr)
}

// GitResults returns a copy of the completed terminal actions.
func (c *Context) GitResults() []models.GitResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.GitResult(nil), c.completedGitActions...)
}

// AddChatText appends prose already streamed to the client so Deliver
// can persist the full assistant turn.
func (c *Context) AddChatText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatText = append(c.chatText, text)
}

// ChatText returns the accumulated assistant prose joined by blank lines.
func (c *Context) ChatText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := ""
	for i, t := range c.chatText {
		if i > 0 {
			out += "\n\n"
		}
		out += t
	}
	return out
}

// RefreshFiles re-lists the workspace into ExistingFiles.
func (c *Context) RefreshFiles() error {
	files, err := c.Store.ListFiles(c.SessionID)
	if err != nil {
		return err
	}
	c.ExistingFiles = files
	return nil
}
