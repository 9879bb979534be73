package promote

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// fold case-folds s for comparisons that must ignore case in any script.
func fold(s string) string {
	return folder.String(s)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(fold(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard is |a∩b| / |a∪b| over word sets; two empty sets score 0.
func Jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Dedupe orders candidates by importance and drops every candidate whose
// word set overlaps an already kept one by more than threshold. The input
// slice is not modified.
func Dedupe(cands []Candidate, threshold float64) []Candidate {
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	SortByImportance(sorted)

	var (
		kept []Candidate
		sets []map[string]struct{}
	)
	for _, c := range sorted {
		words := wordSet(c.Text)
		dup := false
		for _, seen := range sets {
			if Jaccard(words, seen) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
			sets = append(sets, words)
		}
	}
	return kept
}
