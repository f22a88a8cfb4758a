package splittest

import "flagsplit/domain"

// ArmCounts holds the per-arm tallies for one feature+environment.
type ArmCounts struct {
	Evaluations int
	Conversions int
}

type AggregateCounts map[Arm]ArmCounts

// Exposure is one evaluated identity: its bucketing hash key and whether it
// performed the tracked conversion.
type Exposure struct {
	HashKey   string
	Converted bool
}

// Aggregate resolves every exposure to an arm and tallies evaluation and
// conversion counts. Control and every configured option get an entry even
// with zero observed identities, so the reconciler can always distinguish
// "no data yet" from "row never existed".
func Aggregate(featureStateID uint, options []domain.MultivariateOption, exposures []Exposure) AggregateCounts {
	counts := make(AggregateCounts, len(options)+1)
	counts[Control] = ArmCounts{}
	for _, option := range options {
		counts[VariantArm(option.ID)] = ArmCounts{}
	}

	for _, exposure := range exposures {
		arm := ResolveArm(featureStateID, exposure.HashKey, options)

		c := counts[arm]
		c.Evaluations++
		if exposure.Converted {
			c.Conversions++
		}
		counts[arm] = c
	}

	return counts
}
