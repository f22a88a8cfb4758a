package splittest

import (
	"fmt"
	"testing"

	"flagsplit/domain"
)

func TestAggregate_ZeroInitialisesEveryArm(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 50},
		{ID: 2, PercentageAllocation: 50},
	}

	counts := Aggregate(1, options, nil)

	if len(counts) != 3 {
		t.Fatalf("expected control + 2 variants, got %d arms: %v", len(counts), counts)
	}
	for _, arm := range []Arm{Control, VariantArm(1), VariantArm(2)} {
		c, ok := counts[arm]
		if !ok {
			t.Fatalf("arm %v missing from counts", arm)
		}
		if c.Evaluations != 0 || c.Conversions != 0 {
			t.Fatalf("arm %v not zero-initialised: %+v", arm, c)
		}
	}
}

func TestAggregate_Conservation(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 30},
		{ID: 2, PercentageAllocation: 30},
	}

	exposures := make([]Exposure, 0, 500)
	for i := 0; i < 500; i++ {
		exposures = append(exposures, Exposure{
			HashKey:   fmt.Sprintf("user-%d", i),
			Converted: i%3 == 0,
		})
	}

	counts := Aggregate(11, options, exposures)

	totalEvaluations := 0
	totalConversions := 0
	for arm, c := range counts {
		if c.Conversions > c.Evaluations {
			t.Fatalf("arm %v has more conversions than evaluations: %+v", arm, c)
		}
		totalEvaluations += c.Evaluations
		totalConversions += c.Conversions
	}

	if totalEvaluations != len(exposures) {
		t.Fatalf("evaluations not conserved: %d != %d", totalEvaluations, len(exposures))
	}

	wantConversions := 0
	for _, e := range exposures {
		if e.Converted {
			wantConversions++
		}
	}
	if totalConversions != wantConversions {
		t.Fatalf("conversions not conserved: %d != %d", totalConversions, wantConversions)
	}
}

func TestAggregate_MatchesResolveArm(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 40},
		{ID: 2, PercentageAllocation: 40},
	}

	exposures := make([]Exposure, 0, 200)
	for i := 0; i < 200; i++ {
		exposures = append(exposures, Exposure{
			HashKey:   fmt.Sprintf("user-%d", i),
			Converted: i%5 == 0,
		})
	}

	counts := Aggregate(7, options, exposures)

	want := make(AggregateCounts)
	want[Control] = ArmCounts{}
	want[VariantArm(1)] = ArmCounts{}
	want[VariantArm(2)] = ArmCounts{}
	for _, e := range exposures {
		arm := ResolveArm(7, e.HashKey, options)
		c := want[arm]
		c.Evaluations++
		if e.Converted {
			c.Conversions++
		}
		want[arm] = c
	}

	for arm, w := range want {
		if counts[arm] != w {
			t.Fatalf("arm %v: got %+v, want %+v", arm, counts[arm], w)
		}
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 50},
	}
	exposures := []Exposure{
		{HashKey: "user-a", Converted: true},
		{HashKey: "user-b"},
		{HashKey: "user-c", Converted: true},
	}

	first := Aggregate(2, options, exposures)
	for i := 0; i < 5; i++ {
		again := Aggregate(2, options, exposures)
		for arm, c := range first {
			if again[arm] != c {
				t.Fatalf("run %d: arm %v changed: %+v != %+v", i, arm, again[arm], c)
			}
		}
	}
}
