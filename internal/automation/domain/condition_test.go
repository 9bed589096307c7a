package domain

import "testing"

func TestParseCondition(t *testing.T) {
	cases := []struct {
		expr    string
		want    Condition
		wantErr bool
	}{
		{expr: "budget_max > 5000000", want: Condition{Field: "budget_max", Op: ">", Literal: "5000000"}},
		{expr: "location contains Dubai Marina", want: Condition{Field: "location", Op: "contains", Literal: "Dubai Marina"}},
		{expr: "status == new", want: Condition{Field: "status", Op: "==", Literal: "new"}},
		{expr: "budget_max >", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "budget_max ~ 5", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseCondition(tc.expr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseCondition(%q): want error, got %+v", tc.expr, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCondition(%q): %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseCondition(%q) = %+v, want %+v", tc.expr, got, tc.want)
		}
	}
}

// A big budget matches the threshold condition; a small one does not.
func TestBudgetThresholdCondition(t *testing.T) {
	cond, err := ParseCondition("budget_max > 5000000")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}

	big := map[string]interface{}{"budget_max": int64(6_000_000)}
	if ok, err := cond.Evaluate(big); err != nil || !ok {
		t.Errorf("budget 6M: ok=%v err=%v, want match", ok, err)
	}

	small := map[string]interface{}{"budget_max": int64(1_000_000)}
	if ok, err := cond.Evaluate(small); err != nil || ok {
		t.Errorf("budget 1M: ok=%v err=%v, want no match", ok, err)
	}
}

func TestEvaluateOperators(t *testing.T) {
	fields := map[string]interface{}{
		"score":    75,
		"status":   "qualified",
		"location": "Dubai Marina, Tower 3",
	}

	cases := []struct {
		expr string
		want bool
	}{
		{"score >= 75", true},
		{"score < 75", false},
		{"score <= 80", true},
		{"score == 75", true},
		{"score != 75", false},
		{"status == Qualified", true}, // string equality is case-insensitive
		{"status != new", true},
		{"location contains marina", true},
		{"location contains JVC", false},
	}

	for _, tc := range cases {
		ok, err := EvaluateAll([]string{tc.expr}, fields)
		if err != nil {
			t.Errorf("%q: %v", tc.expr, err)
			continue
		}
		if ok != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, ok, tc.want)
		}
	}
}

func TestMissingFieldNeverMatches(t *testing.T) {
	fields := map[string]interface{}{"budget_max": nil}

	for _, expr := range []string{"budget_max > 100", "budget_min == 5", "budget_min != 5"} {
		ok, err := EvaluateAll([]string{expr}, fields)
		if err != nil {
			t.Errorf("%q: unexpected error %v", expr, err)
		}
		if ok {
			t.Errorf("%q matched against a missing field", expr)
		}
	}
}

func TestNumericOperatorOnTextIsAnError(t *testing.T) {
	fields := map[string]interface{}{"status": "qualified"}
	if _, err := EvaluateAll([]string{"status > 10"}, fields); err == nil {
		t.Error("numeric comparison against text should be an error")
	}
}

func TestEvaluateAllANDsConditions(t *testing.T) {
	fields := map[string]interface{}{"score": 90, "status": "qualified"}

	ok, err := EvaluateAll([]string{"score > 80", "status == qualified"}, fields)
	if err != nil || !ok {
		t.Errorf("both true: ok=%v err=%v", ok, err)
	}

	ok, err = EvaluateAll([]string{"score > 80", "status == new"}, fields)
	if err != nil || ok {
		t.Errorf("one false: ok=%v err=%v, want no match", ok, err)
	}

	ok, err = EvaluateAll(nil, fields)
	if err != nil || !ok {
		t.Errorf("empty condition list must match: ok=%v err=%v", ok, err)
	}
}
