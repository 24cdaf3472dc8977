package models

// TransparencyTask statuses. Status is monotonic:
// pending → in_progress → done.
const (
	TransparencyPending    = "pending"
	TransparencyInProgress = "in_progress"
	TransparencyDone       = "done"
)

// TransparencyTask is the display projection of a non-chat plan task.
// PlanIndex maps back to the owning task's position in the plan; the
// mapping is injective.
type TransparencyTask struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	PlanIndex   int    `json:"_planIndex"`
}

// FileAction statuses. A placeholder with status=executing is emitted
// before the generator runs; the complete event supersedes it by ID.
const (
	FileActionExecuting = "executing"
	FileActionComplete  = "complete"
)

// File actions.
const (
	ActionCreated = "created"
	ActionEdited  = "edited"
	ActionDeleted = "deleted"
)

// FileAction describes one file mutation, streamed twice per task:
// once as a placeholder, once with the final content and diff.
type FileAction struct {
	ID           string `json:"id"`
	Filepath     string `json:"filepath"`
	Filename     string `json:"filename"`
	Language     string `json:"language"`
	Action       string `json:"action"`
	Content      string `json:"content"`
	LinesAdded   int    `json:"linesAdded"`
	LinesRemoved int    `json:"linesRemoved"`
	Diff         string `json:"diff,omitempty"`
	Status       string `json:"status"`
	Prompt       string `json:"prompt,omitempty"`
}

// GitResult is the outcome of one terminal command (real or synthetic).
type GitResult struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Command string `json:"command,omitempty"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Action  string `json:"action,omitempty"`
}
