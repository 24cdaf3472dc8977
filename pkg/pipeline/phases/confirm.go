package phases

import (
	"context"

	"github.com/appforge/forge/pkg/models"
	"github.com/appforge/forge/pkg/pipeline"
)

// confirmThreshold is the file-touching task count below which the gate
// stays silent.
const confirmThreshold = 3

// Confirm is the low-friction plan gate. For larger plans it publishes
// the task breakdown so the client can show what is about to happen; it
// never blocks. A true approval round-trip would hang a response
// endpoint off this phase.
type Confirm struct{}

func (Confirm) Name() string { return "confirm" }

func (Confirm) Execute(_ context.Context, pc *pipeline.Context) (pipeline.Result, error) {
	if pc.Plan == nil {
		return pipeline.Continue, nil
	}
	touching := 0
	for _, t := range pc.Plan.Tasks {
		if t.IsFileTouching() {
			touching++
		}
	}
	if touching < confirmThreshold {
		return pipeline.Continue, nil
	}

	tasks := make([]models.TransparencyTask, 0, touching)
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
	return pipeline.Continue, nil
}
