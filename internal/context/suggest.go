package context

import "github.com/hbollon/go-edlib"

// suggestThreshold is the minimum Jaro-Winkler similarity score a candidate
// must clear to be offered as a "did you mean" suggestion.
const suggestThreshold = 0.75

// Suggest returns the closest match to name among candidates, or "" if none
// clears suggestThreshold. Used to annotate the User Error (spec.md §7) for
// an unresolvable child-name segment with a "did you mean" hint; alias and
// script lookups do not call it. It uses the
// same Jaro-Winkler scoring the teacher uses for identifier similarity
// (internal/semantic.FuzzyMatcher), repurposed here for context resolution.
func Suggest(name string, candidates []string) string {
	best := ""
	var bestScore float32
	for _, c := range candidates {
		score, err := edlib.StringsSimilarity(name, c, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}
