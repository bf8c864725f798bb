package vocab

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Closest returns the candidate most similar to word with a similarity ratio
// of at least cutoff. Candidates are scored with difflib's SequenceMatcher
// over characters; ties go to the lexically greatest candidate.
func Closest(word string, candidates []string, cutoff float64) (string, float64, bool) {
	if len(candidates) == 0 {
		return "", 0, false
	}
	seq2 := strings.Split(word, "")
	m := difflib.NewMatcher(nil, seq2)
	best, bestScore, found := "", 0.0, false
	for _, cand := range candidates {
		m.SetSeq1(strings.Split(cand, ""))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if !found || score > bestScore || (score == bestScore && cand > best) {
			best, bestScore, found = cand, score, true
		}
	}
	return best, bestScore, found
}

// Similarity is the SequenceMatcher ratio between two strings.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
