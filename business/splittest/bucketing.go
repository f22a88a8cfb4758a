package splittest

import (
	"crypto/md5"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"flagsplit/domain"
)

// The hash-to-bucket algorithm below is a fixed contract shared with the
// live flag evaluation path. The split-test pipeline re-derives historical
// bucketing decisions from it, so any change here silently invalidates every
// stored attribution.

var hashModulus = big.NewInt(9999)

// HashedPercentage maps a tuple of object ids onto [0, 100). Stable across
// processes and runs: md5 of the comma-joined ids, reduced mod 9999 and
// scaled by 1/9998.
func HashedPercentage(objectIDs ...string) float64 {
	return hashedPercentage(objectIDs, 1)
}

func hashedPercentage(objectIDs []string, iterations int) float64 {
	toHash := strings.Repeat(strings.Join(objectIDs, ","), iterations)

	sum := md5.Sum([]byte(toHash))
	hashedInt := new(big.Int).SetBytes(sum[:])

	remainder := new(big.Int).Mod(hashedInt, hashModulus)
	value := float64(remainder.Int64()) / 9998 * 100

	// mod 9999 / 9998 makes exactly 100.0 reachable, which would escape
	// every bucket window; re-hash with the input repeated once more.
	if value == 100 {
		return hashedPercentage(objectIDs, iterations+1)
	}

	return value
}

// ResolveArm deterministically buckets an identity hash key into one of the
// feature's variant arms or control. featureStateID salts the hash so the
// same identity is bucketed independently per feature and environment.
// Options are walked as cumulative percentage windows in option-id order;
// any remainder of the weight space falls through to control.
func ResolveArm(featureStateID uint, identityHashKey string, options []domain.MultivariateOption) Arm {
	if len(options) == 0 {
		return Control
	}

	ordered := make([]domain.MultivariateOption, len(options))
	copy(ordered, options)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	percentage := HashedPercentage(strconv.FormatUint(uint64(featureStateID), 10), identityHashKey)

	start := 0.0
	for _, option := range ordered {
		limit := start + option.PercentageAllocation
		if percentage >= start && percentage < limit {
			return VariantArm(option.ID)
		}
		start = limit
	}

	return Control
}
