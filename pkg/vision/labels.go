package vision

import "strings"

// DefaultLabelSynonyms maps detector class names onto a canonical label so
// that the same physical object reported under different vocabularies can be
// merged. Callers may pass their own map through Options.
func DefaultLabelSynonyms() map[string]string {
	return map[string]string{
		"road damage":    "pothole",
		"pot hole":       "pothole",
		"surface damage": "pothole",
		"crack":          "pavement crack",
		"pavement_crack": "pavement crack",
		"stop sign":      "traffic sign",
		"street sign":    "traffic sign",
		"signal":         "traffic light",
		"trash":          "litter",
		"garbage":        "litter",
	}
}

func canonicalLabel(label string, synonyms map[string]string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if canonical, ok := synonyms[normalized]; ok {
		return canonical
	}
	return normalized
}

func labelsEquivalent(a, b string, synonyms map[string]string) bool {
	return canonicalLabel(a, synonyms) == canonicalLabel(b, synonyms)
}
