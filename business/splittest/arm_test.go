package splittest

import "testing"

func TestArm_ControlVsVariant(t *testing.T) {
	if !Control.IsControl() {
		t.Fatal("Control.IsControl() = false")
	}
	if _, ok := Control.OptionID(); ok {
		t.Fatal("Control must not expose an option id")
	}

	variant := VariantArm(0)
	if variant.IsControl() {
		t.Fatal("VariantArm(0) reported as control")
	}
	if variant == Control {
		t.Fatal("a variant with option id 0 must still differ from control")
	}

	id, ok := VariantArm(7).OptionID()
	if !ok || id != 7 {
		t.Fatalf("VariantArm(7).OptionID() = (%d, %v)", id, ok)
	}
}

func TestArm_MapKey(t *testing.T) {
	counts := map[Arm]int{}
	counts[Control]++
	counts[VariantArm(1)]++
	counts[VariantArm(1)]++

	if counts[Control] != 1 || counts[VariantArm(1)] != 2 {
		t.Fatalf("arm map keys not stable: %v", counts)
	}
}

func TestArm_String(t *testing.T) {
	if got := Control.String(); got != "control" {
		t.Fatalf("Control.String() = %q", got)
	}
	if got := VariantArm(12).String(); got != "variant:12" {
		t.Fatalf("VariantArm(12).String() = %q", got)
	}
}
