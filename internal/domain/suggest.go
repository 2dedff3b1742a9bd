package domain

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Suggest returns up to limit candidates within a small edit distance of
// target, nearest first, ties broken lexically. Comparison is
// case-insensitive so "hate" suggests "Hate".
func Suggest(target string, candidates []string, limit int) []string {
	if target == "" || limit <= 0 {
		return nil
	}

	// A Caser carries state and must not be shared across goroutines.
	caser := cases.Fold()
	folded := caser.String(target)
	maxDistance := max(2, len([]rune(folded))/3)

	type match struct {
		name     string
		distance int
	}
	var matches []match
	for _, c := range candidates {
		if c == target {
			continue
		}
		d := levenshtein.ComputeDistance(folded, caser.String(c))
		if d <= maxDistance {
			matches = append(matches, match{name: c, distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
