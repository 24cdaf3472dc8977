package phases

import "github.com/appforge/forge/pkg/pipeline"

// All returns the standard phase sequence for one chat request.
func All() []pipeline.Phase {
	return []pipeline.Phase{
		Understand{},
		PMAnalyze{},
		Plan{},
		Confirm{},
		Execute{},
		Verify{},
		Repair{},
		Deliver{},
	}
}
