package splittest

import "testing"

func TestSignificance_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name   string
		counts AggregateCounts
	}{
		{
			name:   "empty",
			counts: AggregateCounts{},
		},
		{
			name: "single arm with data",
			counts: AggregateCounts{
				Control:       {Evaluations: 100, Conversions: 10},
				VariantArm(1): {},
			},
		},
		{
			name: "zero conversions",
			counts: AggregateCounts{
				Control:       {Evaluations: 100},
				VariantArm(1): {Evaluations: 100},
			},
		},
		{
			name: "everyone converted",
			counts: AggregateCounts{
				Control:       {Evaluations: 50, Conversions: 50},
				VariantArm(1): {Evaluations: 50, Conversions: 50},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Significance(tc.counts); got != neutralPValue {
				t.Fatalf("Significance() = %v, want neutral %v", got, neutralPValue)
			}
		})
	}
}

func TestSignificance_IdenticalRates(t *testing.T) {
	// Identical conversion rates give a zero chi-squared statistic and
	// therefore the maximal p-value.
	counts := AggregateCounts{
		Control:       {Evaluations: 1000, Conversions: 100},
		VariantArm(1): {Evaluations: 1000, Conversions: 100},
	}

	if got := Significance(counts); got != 1.0 {
		t.Fatalf("Significance() = %v, want 1.0 for identical rates", got)
	}
}

func TestSignificance_ClearDifference(t *testing.T) {
	counts := AggregateCounts{
		Control:       {Evaluations: 1000, Conversions: 100},
		VariantArm(1): {Evaluations: 1000, Conversions: 300},
	}

	got := Significance(counts)
	if got >= 0.05 {
		t.Fatalf("Significance() = %v, want < 0.05 for a 10%% vs 30%% split", got)
	}
	if got < 0 {
		t.Fatalf("Significance() = %v, below valid range", got)
	}
}

func TestSignificance_SmallSampleInconclusive(t *testing.T) {
	counts := AggregateCounts{
		Control:       {Evaluations: 10, Conversions: 2},
		VariantArm(1): {Evaluations: 10, Conversions: 3},
	}

	got := Significance(counts)
	if got < 0.05 {
		t.Fatalf("Significance() = %v, tiny samples should not look significant", got)
	}
}

func TestSignificance_ThreeArms(t *testing.T) {
	counts := AggregateCounts{
		Control:       {Evaluations: 500, Conversions: 50},
		VariantArm(1): {Evaluations: 500, Conversions: 52},
		VariantArm(2): {Evaluations: 500, Conversions: 48},
	}

	got := Significance(counts)
	if got < 0 || got > 1 {
		t.Fatalf("Significance() = %v, outside [0, 1]", got)
	}
	if got < 0.5 {
		t.Fatalf("Significance() = %v, near-identical arms should be inconclusive", got)
	}
}

func TestSignificance_IgnoresEmptyArms(t *testing.T) {
	withEmpty := AggregateCounts{
		Control:       {Evaluations: 1000, Conversions: 100},
		VariantArm(1): {Evaluations: 1000, Conversions: 150},
		VariantArm(2): {},
	}
	without := AggregateCounts{
		Control:       {Evaluations: 1000, Conversions: 100},
		VariantArm(1): {Evaluations: 1000, Conversions: 150},
	}

	if a, b := Significance(withEmpty), Significance(without); a != b {
		t.Fatalf("empty arm changed the p-value: %v != %v", a, b)
	}
}
