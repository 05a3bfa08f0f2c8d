package fuzzy

import (
	"strings"
	"unicode/utf8"
)

// FilePathFinalSegmentBonus rewards file path matches that hit the file name
// rather than only directories.
const FilePathFinalSegmentBonus = 50

// SegmentOptions controls MatchSegments.
type SegmentOptions struct {
	Score        ScoreFunc
	MaxRecursion int
	// RequireFinalSegment fails the match unless the last source segment
	// matches the last pattern segment.
	RequireFinalSegment bool
	// FinalSegmentBonus is added when the last source segment matched.
	FinalSegmentBonus int
	// SeparatorLength is the rune width of the separator used to express
	// indices against the joined source string.
	SeparatorLength int
}

// DefaultSegmentOptions returns options using SublimeScore and a one rune
// separator.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		Score:           SublimeScore,
		MaxRecursion:    DefaultMaxRecursion,
		SeparatorLength: 1,
	}
}

// MatchSegments matches pattern segments against source segments, both
// walked from the end. A source segment that does not match the current
// pattern segment is skipped; the match succeeds once every pattern segment
// has been consumed. Indices are offsets into the source segments joined by
// SeparatorLength-wide separators.
func MatchSegments(source, pattern []string, opts SegmentOptions) (Match, bool) {
	if len(pattern) == 0 {
		return Match{Indices: []int{}, Score: 0}, true
	}
	if len(pattern) > len(source) {
		return Match{}, false
	}

	perSegment := make([][]int, len(source))
	total := 0
	p := len(pattern) - 1
	for s := len(source) - 1; s >= 0 && p >= 0; s-- {
		m, ok := MatchScored(source[s], pattern[p], opts.Score, opts.MaxRecursion)
		if !ok {
			if s == len(source)-1 && opts.RequireFinalSegment {
				return Match{}, false
			}
			continue
		}
		if s == len(source)-1 {
			total += opts.FinalSegmentBonus
		}
		perSegment[s] = m.Indices
		total += m.Score
		p--
	}
	if p >= 0 {
		return Match{}, false
	}

	indices := make([]int, 0)
	offset := 0
	for s, seg := range source {
		for _, idx := range perSegment[s] {
			indices = append(indices, offset+idx)
		}
		offset += utf8.RuneCountInString(seg) + opts.SeparatorLength
	}
	return Match{Indices: indices, Score: total}, true
}

// MatchFilePath matches a '/' separated pattern against a '/' separated path.
// Backslashes in the pattern are treated as '/'.
func MatchFilePath(path, pattern string) (Match, bool) {
	return MatchPathSegments(strings.Split(path, "/"), SplitPathPattern(pattern))
}

// MatchPathSegments is MatchFilePath over pre-split segments.
func MatchPathSegments(path, pattern []string) (Match, bool) {
	opts := DefaultSegmentOptions()
	opts.FinalSegmentBonus = FilePathFinalSegmentBonus
	return MatchSegments(path, pattern, opts)
}

// SplitPathPattern normalises separators and splits a path pattern.
func SplitPathPattern(pattern string) []string {
	return strings.Split(strings.ReplaceAll(pattern, "\\", "/"), "/")
}
