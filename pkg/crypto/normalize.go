package crypto

import "strings"

// Enumerate maps each base-17 (or hex) character of hash to a signed digit in
// [-8, 8]: '0' is -8, '8' is 0, 'g' is +8. Matching is case-insensitive and
// characters outside the alphabet are skipped.
func Enumerate(hash string) []int8 {
	values := make([]int8, 0, len(hash))
	for _, c := range strings.ToLower(hash) {
		idx := strings.IndexRune(base17Digits, c)
		if idx < 0 {
			continue
		}
		values = append(values, int8(idx-8))
	}
	return values
}

// Normalize nudges the enumerated digits until they sum to exactly zero,
// never pushing a digit outside [-8, 8]. The direction is fixed by the sign
// of the initial total; each pass scans left to right, adjusting the first
// eligible digits by one unit and stopping the moment the total reaches zero.
// The left-to-right first-eligible tie-break is part of the protocol: other
// implementations produce signatures against exactly this normalization.
func Normalize(values []int8) []int8 {
	normalized := make([]int8, len(values))
	copy(normalized, values)

	total := 0
	for _, v := range normalized {
		total += int(v)
	}
	negative := total < 0

	for total != 0 {
		for i := range normalized {
			if negative {
				if normalized[i] < 8 {
					normalized[i]++
					total++
				}
			} else {
				if normalized[i] > -8 {
					normalized[i]--
					total--
				}
			}
			if total == 0 {
				break
			}
		}
	}
	return normalized
}

// NormalizedHash enumerates and normalizes hash in one step.
func NormalizedHash(hash string) []int8 {
	return Normalize(Enumerate(hash))
}
