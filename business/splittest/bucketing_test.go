package splittest

import (
	"fmt"
	"testing"

	"flagsplit/domain"
)

// The values below were computed independently with the reference
// algorithm (md5 of the comma-joined ids, mod 9999, / 9998 * 100). They pin
// the hash contract itself: any change to the hash function or the
// reduction silently re-buckets every identity, so these must never drift.
func TestHashedPercentage_KnownValues(t *testing.T) {
	cases := []struct {
		ids  []string
		want float64
	}{
		{[]string{"12", "user-a"}, 28.575715143028606},
		{[]string{"12", "user-b"}, 98.37967593518704},
		{[]string{"99", "user-a"}, 38.21764352870574},
		{[]string{"100", "env_prod_a-user"}, 66.0632126425285},
		{[]string{"7", "lurker"}, 96.8993798759752},
		{[]string{"1", "env_abc_user-a"}, 56.52130426085217},
	}

	const tolerance = 1e-9
	for _, tc := range cases {
		got := HashedPercentage(tc.ids...)
		if diff := got - tc.want; diff > tolerance || diff < -tolerance {
			t.Fatalf("HashedPercentage(%v) = %v, want %v", tc.ids, got, tc.want)
		}
	}
}

// Pinned arm assignments, one per window: with options (1, 50%) and
// (2, 30%) under feature state 3, the keys below hash to 19.97 (first
// window), 51.35 (second window) and 87.76 (remainder -> control).
func TestResolveArm_KnownAssignments(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 50},
		{ID: 2, PercentageAllocation: 30},
	}

	cases := []struct {
		key  string
		want Arm
	}{
		{"user-1", VariantArm(1)},
		{"user-0", VariantArm(2)},
		{"user-12", Control},
	}

	for _, tc := range cases {
		if got := ResolveArm(3, tc.key, options); got != tc.want {
			t.Fatalf("ResolveArm(3, %q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestHashedPercentage_Deterministic(t *testing.T) {
	cases := [][]string{
		{"12", "user-a"},
		{"12", "user-b"},
		{"99", "user-a"},
		{"1", "env_abc_user-a"},
	}

	for _, ids := range cases {
		first := HashedPercentage(ids...)
		for i := 0; i < 10; i++ {
			if got := HashedPercentage(ids...); got != first {
				t.Fatalf("HashedPercentage(%v) not stable: %v != %v", ids, got, first)
			}
		}
	}
}

func TestHashedPercentage_Range(t *testing.T) {
	for i := 0; i < 5000; i++ {
		ids := []string{"42", fmt.Sprintf("user-%d", i)}
		got := HashedPercentage(ids...)
		if got < 0 || got >= 100 {
			t.Fatalf("HashedPercentage(%v) = %v, want [0, 100)", ids, got)
		}
	}
}

func TestHashedPercentage_InputOrderMatters(t *testing.T) {
	a := HashedPercentage("12", "user-a")
	b := HashedPercentage("user-a", "12")
	if a == b {
		t.Fatalf("expected different values for swapped inputs, both = %v", a)
	}
}

func TestResolveArm_NoOptions(t *testing.T) {
	arm := ResolveArm(1, "user-a", nil)
	if !arm.IsControl() {
		t.Fatalf("expected control for a feature without options, got %v", arm)
	}
}

func TestResolveArm_FullAllocationSingleOption(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 7, PercentageAllocation: 100},
	}

	// 100% allocation leaves no weight space for control.
	for i := 0; i < 1000; i++ {
		arm := ResolveArm(3, fmt.Sprintf("user-%d", i), options)
		optionID, ok := arm.OptionID()
		if !ok || optionID != 7 {
			t.Fatalf("user-%d: expected variant 7, got %v", i, arm)
		}
	}
}

func TestResolveArm_FullAllocationSplit(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 50},
		{ID: 2, PercentageAllocation: 50},
	}

	seen := map[Arm]int{}
	for i := 0; i < 2000; i++ {
		arm := ResolveArm(3, fmt.Sprintf("user-%d", i), options)
		if arm.IsControl() {
			t.Fatalf("user-%d bucketed to control despite 100%% total allocation", i)
		}
		seen[arm]++
	}

	if len(seen) != 2 {
		t.Fatalf("expected both variants to receive traffic, got %v", seen)
	}
	for arm, n := range seen {
		if n < 700 {
			t.Fatalf("variant %v badly under-allocated: %d of 2000", arm, n)
		}
	}
}

func TestResolveArm_PartialAllocationLeavesControl(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 10},
	}

	control := 0
	for i := 0; i < 2000; i++ {
		if ResolveArm(3, fmt.Sprintf("user-%d", i), options).IsControl() {
			control++
		}
	}

	// ~90% of the weight space falls through to control.
	if control < 1500 {
		t.Fatalf("expected most identities in control, got %d of 2000", control)
	}
}

func TestResolveArm_Deterministic(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 30},
		{ID: 2, PercentageAllocation: 30},
		{ID: 3, PercentageAllocation: 30},
	}

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("user-%d", i)
		first := ResolveArm(9, key, options)
		for j := 0; j < 5; j++ {
			if got := ResolveArm(9, key, options); got != first {
				t.Fatalf("ResolveArm(9, %q) not stable: %v != %v", key, got, first)
			}
		}
	}
}

func TestResolveArm_OptionOrderIrrelevant(t *testing.T) {
	ordered := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 40},
		{ID: 2, PercentageAllocation: 40},
	}
	shuffled := []domain.MultivariateOption{
		{ID: 2, PercentageAllocation: 40},
		{ID: 1, PercentageAllocation: 40},
	}

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("user-%d", i)
		a := ResolveArm(5, key, ordered)
		b := ResolveArm(5, key, shuffled)
		if a != b {
			t.Fatalf("ResolveArm(5, %q) depends on slice order: %v != %v", key, a, b)
		}
	}
}

func TestResolveArm_SaltedByFeatureState(t *testing.T) {
	options := []domain.MultivariateOption{
		{ID: 1, PercentageAllocation: 50},
		{ID: 2, PercentageAllocation: 50},
	}

	differs := false
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("user-%d", i)
		if ResolveArm(1, key, options) != ResolveArm(2, key, options) {
			differs = true
			break
		}
	}

	if !differs {
		t.Fatal("bucketing identical across feature states; salt has no effect")
	}
}
