package cli

import (
	"slices"
	"strings"
)

// Suggest returns the candidates within maxDist edits of name, closest first.
// Comparison ignores case.
func Suggest(name string, candidates []string, maxDist int) []string {
	type scored struct {
		name string
		dist int
	}
	target := strings.ToLower(name)
	var hits []scored
	for _, c := range candidates {
		if d := EditDistance(target, strings.ToLower(c)); d <= maxDist {
			hits = append(hits, scored{c, d})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int { return a.dist - b.dist })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// EditDistance is the Levenshtein distance between a and b in runes.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	// two rows suffice
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
