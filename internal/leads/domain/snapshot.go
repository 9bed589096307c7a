package domain

// StageLead is the minimal lead projection needed for stage aggregation.
type StageLead struct {
	Status    string
	BudgetMin *int64
	BudgetMax *int64
}

// StageAggregate holds the per-snapshot derived figures for one stage.
// ConversionRate and AverageTimeInStage are configuration, merged in by the
// service layer, not derived here.
type StageAggregate struct {
	Stage      string
	LeadCount  int
	TotalValue int64
}

// ComputeStageSnapshot groups leads by current status and sums their budgets.
// A lead's value is its budget_max when present, otherwise budget_min,
// otherwise zero. Every pipeline stage appears in the result, in funnel order,
// even when empty.
func ComputeStageSnapshot(leads []StageLead) []StageAggregate {
	byStage := make(map[string]*StageAggregate, len(PipelineOrder))
	result := make([]StageAggregate, len(PipelineOrder))
	for i, stage := range PipelineOrder {
		result[i] = StageAggregate{Stage: stage}
		byStage[stage] = &result[i]
	}

	for _, lead := range leads {
		agg, ok := byStage[lead.Status]
		if !ok {
			continue
		}
		agg.LeadCount++
		agg.TotalValue += leadValue(lead)
	}

	return result
}

func leadValue(lead StageLead) int64 {
	if lead.BudgetMax != nil {
		return *lead.BudgetMax
	}
	if lead.BudgetMin != nil {
		return *lead.BudgetMin
	}
	return 0
}
