package domain

import "testing"

func TestCanTransitionForwardSkipAllowed(t *testing.T) {
	cases := []struct {
		from, to string
	}{
		{StatusNew, StatusContacted},
		{StatusNew, StatusQualified},
		{StatusNew, StatusNegotiating},
		{StatusContacted, StatusViewingScheduled},
		{StatusNegotiating, StatusClosedWon},
		{StatusNegotiating, StatusClosedLost},
		{StatusNew, StatusClosedLost},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to, false) {
			t.Errorf("CanTransition(%q, %q, false) = false, want true", tc.from, tc.to)
		}
	}
}

func TestCanTransitionBackwardRequiresCorrection(t *testing.T) {
	cases := []struct {
		from, to string
	}{
		{StatusNegotiating, StatusContacted},
		{StatusQualified, StatusNew},
		{StatusClosedWon, StatusNegotiating},
		{StatusClosedWon, StatusClosedLost},
		{StatusClosedLost, StatusClosedWon},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to, false) {
			t.Errorf("CanTransition(%q, %q, false) = true, want false", tc.from, tc.to)
		}
		if !CanTransition(tc.from, tc.to, true) {
			t.Errorf("CanTransition(%q, %q, true) = false, want true", tc.from, tc.to)
		}
	}
}

func TestCanTransitionRejectsSelfAndUnknown(t *testing.T) {
	if CanTransition(StatusNew, StatusNew, true) {
		t.Error("transition to current status should be rejected even with correction")
	}
	if CanTransition("limbo", StatusNew, true) {
		t.Error("unknown source status should be rejected")
	}
	if CanTransition(StatusNew, "limbo", true) {
		t.Error("unknown target status should be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusClosedWon) || !IsTerminal(StatusClosedLost) {
		t.Error("closed_won and closed_lost must be terminal")
	}
	if IsTerminal(StatusNegotiating) {
		t.Error("negotiating must not be terminal")
	}
}

func TestComputeStageSnapshotGroupsAndSums(t *testing.T) {
	min := int64(1_000_000)
	max := int64(6_000_000)

	leads := []StageLead{
		{Status: StatusNew, BudgetMax: &max},
		{Status: StatusNew, BudgetMin: &min},
		{Status: StatusNegotiating, BudgetMin: &min, BudgetMax: &max},
		{Status: StatusQualified},
		{Status: "limbo", BudgetMax: &max}, // unknown stage is skipped
	}

	snapshot := ComputeStageSnapshot(leads)
	if len(snapshot) != len(PipelineOrder) {
		t.Fatalf("expected %d stages, got %d", len(PipelineOrder), len(snapshot))
	}

	byStage := make(map[string]StageAggregate)
	for _, agg := range snapshot {
		byStage[agg.Stage] = agg
	}

	if got := byStage[StatusNew]; got.LeadCount != 2 || got.TotalValue != 7_000_000 {
		t.Errorf("new stage = %+v, want count=2 value=7000000", got)
	}
	if got := byStage[StatusNegotiating]; got.LeadCount != 1 || got.TotalValue != 6_000_000 {
		t.Errorf("negotiating stage = %+v, want count=1 value=6000000 (budget_max preferred)", got)
	}
	if got := byStage[StatusQualified]; got.LeadCount != 1 || got.TotalValue != 0 {
		t.Errorf("qualified stage = %+v, want count=1 value=0", got)
	}
	if got := byStage[StatusClosedWon]; got.LeadCount != 0 {
		t.Errorf("empty stage should still be present with zero count, got %+v", got)
	}
}
