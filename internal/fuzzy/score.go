package fuzzy

import "unicode"

const (
	sequentialBonus   = 15 // adjacent matches
	separatorBonus    = 30 // match right after '_' or ' '
	camelBonus        = 30 // uppercase match after a lowercase rune
	firstLetterBonus  = 15 // match on the first rune of the text
	leadingPenalty    = -5 // per unmatched rune before the first match
	maxLeadingPenalty = -15
	unmatchedPenalty  = -1
)

// SublimeScore is the default ScoreFunc. Scores are additive and only
// comparable for the same pattern.
func SublimeScore(text, pattern []rune, indices []int) int {
	score := 100
	score += max(leadingPenalty*indices[0], maxLeadingPenalty)
	score += unmatchedPenalty * (len(text) - len(pattern))

	for i, idx := range indices {
		if i > 0 && idx == indices[i-1]+1 {
			score += sequentialBonus
		}
		if idx == 0 {
			score += firstLetterBonus
			continue
		}
		prev, cur := text[idx-1], text[idx]
		if unicode.ToUpper(prev) != prev && unicode.ToLower(cur) != cur {
			score += camelBonus
		}
		if prev == '_' || prev == ' ' {
			score += separatorBonus
		}
	}
	return score
}
