package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
)

const (
	jaroWinklerWeight = 0.7
	levenshteinWeight = 0.3
)

// Similarity compares two descriptions language by language and returns the
// best score in [0, 1] over the languages both carry. Descriptions with no
// language in common score 0.
func Similarity(a, b models.LocalizedText) float64 {
	best := 0.0
	for _, pair := range [][2]string{{a.En, b.En}, {a.Ar, b.Ar}} {
		best = max(best, textSimilarity(pair[0], pair[1]))
	}
	return best
}

// textSimilarity blends Jaro-Winkler with a normalized Levenshtein ratio.
func textSimilarity(a, b string) float64 {
	a, b = normalizeText(a), normalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	lev := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)

	score := jaroWinklerWeight*jw + levenshteinWeight*lev
	return min(max(score, 0), 1)
}

func normalizeText(s string) string {
	// a Caser is stateful, so one per call
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
