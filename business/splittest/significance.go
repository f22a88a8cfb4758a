package splittest

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// neutralPValue is returned whenever the counts carry no usable signal:
// "no evidence of a difference".
const neutralPValue = 1.0

// Significance runs a chi-squared test of independence on the arm x outcome
// contingency table and returns a single p-value for the whole
// feature+environment. Arms with zero evaluations are left out of the table;
// if fewer than two arms have data, or every outcome column is empty, the
// test is undefined and the neutral value is returned instead.
func Significance(counts AggregateCounts) float64 {
	arms := make([]ArmCounts, 0, len(counts))
	totalEvaluations := 0
	totalConversions := 0

	for _, c := range counts {
		if c.Evaluations == 0 {
			continue
		}
		arms = append(arms, c)
		totalEvaluations += c.Evaluations
		totalConversions += c.Conversions
	}

	if len(arms) < 2 {
		return neutralPValue
	}
	if totalConversions == 0 || totalConversions == totalEvaluations {
		return neutralPValue
	}

	conversionRate := float64(totalConversions) / float64(totalEvaluations)

	chi2 := 0.0
	for _, c := range arms {
		expectedConverted := float64(c.Evaluations) * conversionRate
		expectedNot := float64(c.Evaluations) * (1 - conversionRate)

		observedConverted := float64(c.Conversions)
		observedNot := float64(c.Evaluations - c.Conversions)

		chi2 += (observedConverted - expectedConverted) * (observedConverted - expectedConverted) / expectedConverted
		chi2 += (observedNot - expectedNot) * (observedNot - expectedNot) / expectedNot
	}

	dist := distuv.ChiSquared{K: float64(len(arms) - 1)}
	pvalue := dist.Survival(chi2)

	if pvalue < 0 {
		return 0
	}
	if pvalue > 1 {
		return neutralPValue
	}
	return pvalue
}
