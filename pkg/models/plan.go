package models

// Task types produced by the orchestrator planner. Tasks are tagged
// variants discriminated by Type; unused fields stay empty.
const (
	TaskChat          = "chat"
	TaskCreateFile    = "create_file"
	TaskEditFile      = "edit_file"
	TaskDeleteFile    = "delete_file"
	TaskGenerateImage = "generate_image"
	TaskGitAction     = "git_action"
)

// Task is a single unit of work in an execution plan.
type Task struct {
	Type      string   `json:"type"`
	Content   string   `json:"content,omitempty"`   // chat
	Filepath  string   `json:"filepath,omitempty"`  // file + image tasks
	Prompt    string   `json:"prompt,omitempty"`    // create/edit/image tasks
	Command   string   `json:"command,omitempty"`   // git_action
	DependsOn []string `json:"depends_on,omitempty"`
	FeedsInto []string `json:"feeds_into,omitempty"`
}

// IsMutation reports whether the task mutates the workspace.
func (t Task) IsMutation() bool {
	switch t.Type {
	case TaskCreateFile, TaskEditFile, TaskDeleteFile, TaskGenerateImage:
		return true
	}
	return false
}

// IsFileTouching reports whether the task is shown in the transparency
// breakdown (everything except chat prose).
func (t Task) IsFileTouching() bool {
	return t.Type != TaskChat
}

// ExecutionPlan is the planner's output: a flat ordered task list plus
// the reasoning that produced it. Immutable once Plan succeeds.
type ExecutionPlan struct {
	Title           string   `json:"title,omitempty"`
	Reasoning       string   `json:"reasoning"`
	Assumptions     []string `json:"assumptions,omitempty"`
	DesignDecisions []string `json:"design_decisions,omitempty"`
	Tasks           []Task   `json:"tasks"`
}

// MutationCount returns the number of workspace-mutating tasks.
func (p *ExecutionPlan) MutationCount() int {
	n := 0
	for _, t := range p.Tasks {
		if t.IsMutation() {
			n++
		}
	}
	return n
}

// PlannedPaths returns the set of filepaths the plan will create or edit.
// Import preflight treats these as satisfiable even before they exist.
func (p *ExecutionPlan) PlannedPaths() map[string]bool {
	paths := make(map[string]bool)
	for _, t := range p.Tasks {
		switch t.Type {
		case TaskCreateFile, TaskEditFile, TaskGenerateImage:
			paths[t.Filepath] = true
		}
	}
	return paths
}

// PMSpec is the product-manager planning stage output.
type PMSpec struct {
	Title        string    `json:"title"`
	ChatMessage  string    `json:"chat_message"`
	Requirements []string  `json:"requirements"`
	Design       *PMDesign `json:"design,omitempty"`
	Scope        *PMScope  `json:"scope,omitempty"`
	Suggestions  []string  `json:"suggestions,omitempty"`
}

// PMDesign captures the visual direction chosen by the PM stage.
type PMDesign struct {
	Theme           string   `json:"theme,omitempty"`
	Layout          string   `json:"layout,omitempty"`
	Typography      string   `json:"typography,omitempty"`
	KeyInteractions []string `json:"key_interactions,omitempty"`
}

// PMScope splits requirements into this turn vs deferred work.
type PMScope struct {
	ThisTurn []string `json:"this_turn"`
	NextTurn []string `json:"next_turn,omitempty"`
}

// IsEmpty reports whether the spec carries no actionable content, which
// means the request was conversational-only.
func (s *PMSpec) IsEmpty() bool {
	if s == nil {
		return true
	}
	if len(s.Requirements) > 0 {
		return false
	}
	return s.Scope == nil || len(s.Scope.ThisTurn) == 0
}
