// Package fuzzy implements a Sublime-Text-style subsequence matcher. The
// scored variant searches, with bounded backtracking, for the alignment of
// the pattern in the text that maximises a ScoreFunc. All comparisons are
// case-insensitive and all offsets are rune offsets.
package fuzzy

import "unicode"

// DefaultMaxRecursion bounds the backtracking depth of MatchScored.
const DefaultMaxRecursion = 10

// Match is the alignment of a pattern inside a text. Indices holds one
// strictly increasing rune offset per pattern rune.
type Match struct {
	Indices []int
	Score   int
}

// ScoreFunc scores a complete alignment of pattern in text.
type ScoreFunc func(text, pattern []rune, indices []int) int

// MatchBoolean reports whether pattern occurs in text as a case-insensitive,
// order-preserving subsequence. The empty pattern always matches.
func MatchBoolean(text, pattern string) bool {
	if pattern == "" {
		return true
	}
	p := []rune(pattern)
	pos := 0
	want := unicode.ToLower(p[0])
	for _, r := range text {
		if unicode.ToLower(r) != want {
			continue
		}
		pos++
		if pos == len(p) {
			return true
		}
		want = unicode.ToLower(p[pos])
	}
	return false
}

// MatchScored returns the best scoring alignment of pattern in text found
// within maxRecursion levels of backtracking, or false when pattern is not a
// subsequence of text. A nil score uses SublimeScore. The empty pattern
// matches with score 0 and no indices.
func MatchScored(text, pattern string, score ScoreFunc, maxRecursion int) (Match, bool) {
	if pattern == "" {
		return Match{Indices: []int{}, Score: 0}, true
	}
	if score == nil {
		score = SublimeScore
	}
	m := &matcher{
		text:         []rune(text),
		pattern:      []rune(pattern),
		score:        score,
		maxRecursion: maxRecursion,
	}
	m.lowerText = lowerRunes(m.text)
	m.lowerPattern = lowerRunes(m.pattern)
	return m.search(0, nil, 0)
}

type matcher struct {
	text         []rune
	pattern      []rune
	lowerText    []rune
	lowerPattern []rune
	score        ScoreFunc
	maxRecursion int
}

// search extends partial starting at text offset from. At every occurrence
// of the next pattern rune it first recurses with that occurrence skipped,
// then consumes it greedily. The greedy alignment wins ties.
func (m *matcher) search(from int, partial []int, depth int) (Match, bool) {
	if depth > m.maxRecursion || from >= len(m.text) {
		return Match{}, false
	}

	var (
		best    Match
		hasBest bool
		own     []int
	)
	want := m.lowerPattern[len(partial)]

	for i := from; i < len(m.text); i++ {
		if m.lowerText[i] != want {
			continue
		}
		if own == nil {
			own = make([]int, len(partial), len(m.pattern))
			copy(own, partial)
		}

		if rec, ok := m.search(i+1, own, depth+1); ok {
			if !hasBest || rec.Score > best.Score {
				best, hasBest = rec, true
			}
		}

		own = append(own, i)
		if len(own) == len(m.pattern) {
			break
		}
		want = m.lowerPattern[len(own)]
	}

	if len(own) != len(m.pattern) {
		return Match{}, false
	}
	s := m.score(m.text, m.pattern, own)
	if hasBest && best.Score > s {
		return best, true
	}
	return Match{Indices: own, Score: s}, true
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}
