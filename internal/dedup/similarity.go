package dedup

import "github.com/agext/levenshtein"

// DefaultSimilarityThreshold is the acceptance threshold for NamesSimilar.
const DefaultSimilarityThreshold = 0.85

// NameSimilarity returns the edit-distance similarity of two normalized
// company names: 1 - distance/len(longer), in [0, 1]. It is a standalone
// primitive and intentionally not part of the Fuzzy strategy's rules.
func NameSimilarity(a, b string) float64 {
	na := NormalizeCompanyName(a)
	nb := NormalizeCompanyName(b)
	if na == "" && nb == "" {
		return 1
	}
	longer := len([]rune(na))
	if l := len([]rune(nb)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 1
	}
	dist := levenshtein.Distance(na, nb, nil)
	return 1 - float64(dist)/float64(longer)
}

// NamesSimilar reports whether two names clear the default threshold.
func NamesSimilar(a, b string) bool {
	return NameSimilarity(a, b) >= DefaultSimilarityThreshold
}
