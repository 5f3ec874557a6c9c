package plan

import "strings"

// similarityThreshold is the token-set Jaccard score at or above which two
// texts in the same category count as the same planned item.
const similarityThreshold = 0.75

// normalizeText lowercases and strips punctuation, returning the remaining
// word tokens.
func normalizeText(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// similarity computes the Jaccard index over the normalized token sets of
// two texts. Two empty texts score 1.
func similarity(a, b string) float64 {
	ta, tb := normalizeText(a), normalizeText(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}

	set := make(map[string]uint8, len(ta)+len(tb))
	for _, tok := range ta {
		set[tok] |= 1
	}
	for _, tok := range tb {
		set[tok] |= 2
	}

	var inter, union int
	for _, mask := range set {
		union++
		if mask == 3 {
			inter++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// isNearDuplicate reports whether the candidate text is close enough to an
// existing text to be rejected as already planned.
func isNearDuplicate(candidate, existing string) bool {
	return similarity(candidate, existing) >= similarityThreshold
}
