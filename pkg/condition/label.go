package condition

import (
	"fmt"
	"regexp"
	"strconv"
)

// AnyEmotion is the wildcard emotion category; it is compatible with every category.
const AnyEmotion = "*"

var emotionLabel = regexp.MustCompile(`^E(\*|\d+)\(([+-]\d+)\)$`)

// EmotionLabel formats an emotion edge label, e.g. "E1(+3)".
func EmotionLabel(category string, intensity int) string {
	return fmt.Sprintf("E%s(%+d)", category, intensity)
}

// ParseEmotionLabel extracts the category and signed intensity from an
// emotion label. ok is false for tension and generic labels.
func ParseEmotionLabel(label string) (category string, intensity int, ok bool) {
	m := emotionLabel.FindStringSubmatch(label)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// Compatible reports whether a candidate edge label satisfies a pattern
// edge label. Emotions match when categories agree (or either side is the
// wildcard), intensities share a sign, and the candidate is at least as
// intense as the pattern. Every other label must match exactly.
func Compatible(pattern, candidate string) bool {
	pc, pi, pok := ParseEmotionLabel(pattern)
	cc, ci, cok := ParseEmotionLabel(candidate)
	if !pok || !cok {
		return pattern == candidate
	}
	if pc != cc && pc != AnyEmotion && cc != AnyEmotion {
		return false
	}
	if pi == 0 || ci == 0 || (pi > 0) != (ci > 0) {
		return false
	}
	return abs(ci) >= abs(pi)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
