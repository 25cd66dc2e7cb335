package workflow

import "github.com/richinex/repolens/model"

// MinSteps is the minimum length of each step sequence after padding.
const MinSteps = 4

type cannedStep struct {
	title       string
	description string
}

var systemFallback = []cannedStep{
	{"Load Input", "Read the project files and settings needed for processing"},
	{"Process Data", "Apply the core logic of the project to the loaded input"},
	{"Validate Results", "Check intermediate results and report any failures"},
	{"Produce Output", "Write results to the console, files or downstream services"},
}

var userFallback = []cannedStep{
	{"Install Project", "Install the package and its dependencies"},
	{"Configure Settings", "Provide required settings such as paths or credentials"},
	{"Run Application", "Start the program from its main entry point"},
	{"Review Results", "Inspect the output the program produces"},
}

// Pad extends steps to MinSteps with canned steps for the role.
//
// Existing steps are kept in order. A sequence with n steps receives canned
// steps n through MinSteps-1, numbered from firstID. A firstID below one
// numbers them after the highest ID in steps.
func Pad(steps []model.WorkflowStep, isSystem bool, firstID int) []model.WorkflowStep {
	if len(steps) >= MinSteps {
		return steps
	}

	canned := userFallback
	if isSystem {
		canned = systemFallback
	}

	next := firstID
	if next < 1 {
		next = 1
		for _, s := range steps {
			if s.ID >= next {
				next = s.ID + 1
			}
		}
	}

	padded := make([]model.WorkflowStep, len(steps), MinSteps)
	copy(padded, steps)
	for i := len(steps); i < MinSteps; i++ {
		padded = append(padded, model.WorkflowStep{
			ID:          next,
			Title:       canned[i].title,
			Description: canned[i].description,
			IsSystem:    isSystem,
		})
		next++
	}
	return padded
}
