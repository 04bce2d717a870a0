package hookexecution

// BuildModulesOutcome collects the errors and warnings of every executed hook.
// The full execution trace is included when trace is true.
func BuildModulesOutcome(stageOutcomes []StageOutcome, trace bool) ModulesOutcome {
	var modulesOutcome ModulesOutcome
	if len(stageOutcomes) == 0 {
		return modulesOutcome
	}

	modulesOutcome.Errors = make(Messages)
	modulesOutcome.Warnings = make(Messages)

	for _, stageOutcome := range stageOutcomes {
		for _, groupOutcome := range stageOutcome.Groups {
			for _, hookOutcome := range groupOutcome.InvocationResults {
				modulesOutcome.Errors.add(hookOutcome.HookID, hookOutcome.Errors)
				modulesOutcome.Warnings.add(hookOutcome.HookID, hookOutcome.Warnings)
			}
		}
	}

	if len(modulesOutcome.Errors) == 0 {
		modulesOutcome.Errors = nil
	}
	if len(modulesOutcome.Warnings) == 0 {
		modulesOutcome.Warnings = nil
	}

	if trace {
		modulesOutcome.Trace = prepareTraceOutcome(stageOutcomes)
	}

	return modulesOutcome
}

func (m Messages) add(hookID HookID, messages []string) {
	if len(messages) == 0 {
		return
	}
	if _, ok := m[hookID.ModuleCode]; !ok {
		m[hookID.ModuleCode] = make(map[string][]string)
	}
	m[hookID.ModuleCode][hookID.HookImplCode] = append(m[hookID.ModuleCode][hookID.HookImplCode], messages...)
}

func prepareTraceOutcome(stageOutcomes []StageOutcome) *TraceOutcome {
	trace := &TraceOutcome{Stages: make([]Stage, 0, len(stageOutcomes))}

	stageIndex := make(map[string]int)
	for _, stageOutcome := range stageOutcomes {
		trace.ExecutionTimeMillis += stageOutcome.ExecutionTimeMillis

		i, ok := stageIndex[stageOutcome.Stage]
		if !ok {
			i = len(trace.Stages)
			stageIndex[stageOutcome.Stage] = i
			trace.Stages = append(trace.Stages, Stage{Stage: stageOutcome.Stage})
		}

		stage := &trace.Stages[i]
		stage.Outcomes = append(stage.Outcomes, stageOutcome)
		if stageOutcome.ExecutionTimeMillis > stage.ExecutionTimeMillis {
			stage.ExecutionTimeMillis = stageOutcome.ExecutionTimeMillis
		}
	}

	return trace
}
