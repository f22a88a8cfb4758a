package splittest

import "strconv"

// Arm identifies the group an exposed identity was bucketed into: either the
// control value of a feature or one of its multivariate options. The zero
// value is not valid; use Control or VariantArm.
type Arm struct {
	optionID uint
	control  bool
}

// Control is the baseline arm backed by the feature's direct value.
var Control = Arm{control: true}

func VariantArm(optionID uint) Arm {
	return Arm{optionID: optionID}
}

func (a Arm) IsControl() bool {
	return a.control
}

// OptionID returns the multivariate option id and true for a variant arm,
// or (0, false) for control.
func (a Arm) OptionID() (uint, bool) {
	if a.control {
		return 0, false
	}
	return a.optionID, true
}

func (a Arm) String() string {
	if a.control {
		return "control"
	}
	return "variant:" + strconv.FormatUint(uint64(a.optionID), 10)
}
