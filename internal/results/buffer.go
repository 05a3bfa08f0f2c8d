// Package results holds the two-tier result buffer shared by the search
// engines. The kept tier is the visible top-K, sorted by score descending,
// then dataset index ascending, then generation descending. The overflow
// tier retains matches that fell below the kept cutoff so that a narrowing
// query or a larger limit can resurrect them without a rescan.
package results

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/fuzzy"
)

// Entry is one match held by a Buffer.
type Entry[T any] struct {
	Element T
	Index   int
	Score   int
	Matches []int
	// Generation increases with every scoring; it orders equal
	// (Score, Index) entries, newest first.
	Generation uint64
	// Outdated marks an entry kept across a query change that required a
	// rescan. It is dropped once the rescan re-matches the same index.
	Outdated bool
}

// Rescorer scores an entry's element against the current query.
type Rescorer[T any] func(e *Entry[T]) (fuzzy.Match, bool)

// RerankMode reports which strategy Rerank used.
type RerankMode int

const (
	RerankSkipped RerankMode = iota
	RerankOutdated
	RerankIncremental
)

func (m RerankMode) String() string {
	switch m {
	case RerankOutdated:
		return "outdated"
	case RerankIncremental:
		return "incremental"
	default:
		return "skipped"
	}
}

// Buffer is the kept/overflow pair. It is not safe for concurrent use.
type Buffer[T any] struct {
	kept       []*Entry[T]
	overflow   []*Entry[T]
	maxResults int
	nextGen    uint64
}

// NewBuffer creates an empty Buffer holding at most maxResults visible
// entries. maxResults below 1 is raised to 1.
func NewBuffer[T any](maxResults int) *Buffer[T] {
	return &Buffer[T]{maxResults: max(maxResults, 1)}
}

// Kept returns the visible entries. The slice must not be modified.
func (b *Buffer[T]) Kept() []*Entry[T] {
	return b.kept
}

// Overflow returns the held-back entries in no particular order.
func (b *Buffer[T]) Overflow() []*Entry[T] {
	return b.overflow
}

// MaxResults returns the kept capacity.
func (b *Buffer[T]) MaxResults() int {
	return b.maxResults
}

// NewEntry builds an entry stamped with the next generation.
func (b *Buffer[T]) NewEntry(element T, index int, m fuzzy.Match) *Entry[T] {
	return &Entry[T]{
		Element:    element,
		Index:      index,
		Score:      m.Score,
		Matches:    m.Indices,
		Generation: b.generation(),
	}
}

// Clear empties both tiers and restarts generation numbering.
func (b *Buffer[T]) Clear() {
	b.kept = nil
	b.overflow = nil
	b.nextGen = 0
}

// SetMaxResults changes the kept capacity. Shrinking moves the lowest kept
// entries to overflow; growing promotes the best overflow entries.
func (b *Buffer[T]) SetMaxResults(n int) {
	n = max(n, 1)
	b.maxResults = n
	if len(b.kept) > n {
		demoted := append([]*Entry[T](nil), b.kept[n:]...)
		b.kept = b.kept[:n]
		b.overflow = append(demoted, b.overflow...)
		return
	}
	if free := n - len(b.kept); free > 0 && len(b.overflow) > 0 {
		sortEntries(b.overflow)
		take := min(free, len(b.overflow))
		b.kept = append(b.kept, b.overflow[:take]...)
		b.overflow = append([]*Entry[T](nil), b.overflow[take:]...)
		sortEntries(b.kept)
	}
}

// Rerank rescores held entries after the query changed. With outdated set,
// or without overflow to fall back on, only kept entries are rescored, the
// survivors may be flagged outdated, and overflow is discarded. Otherwise
// both tiers are rescored, merged and split again at the kept capacity.
func (b *Buffer[T]) Rerank(outdated bool, rescore Rescorer[T]) RerankMode {
	if len(b.kept) == 0 {
		return RerankSkipped
	}

	if outdated || len(b.overflow) == 0 {
		b.overflow = nil
		n := len(b.kept)
		b.kept = b.rescoreInto(b.kept[:0], b.kept, rescore, outdated)
		clear(b.kept[len(b.kept):n])
		sortEntries(b.kept)
		return RerankOutdated
	}

	merged := make([]*Entry[T], 0, len(b.kept)+len(b.overflow))
	merged = b.rescoreInto(merged, b.kept, rescore, false)
	merged = b.rescoreInto(merged, b.overflow, rescore, false)
	sortEntries(merged)
	if len(merged) > b.maxResults {
		b.overflow = append([]*Entry[T](nil), merged[b.maxResults:]...)
		b.kept = merged[:b.maxResults]
	} else {
		b.overflow = nil
		b.kept = merged
	}
	return RerankIncremental
}

// rescoreInto appends the surviving entries of src to dst. dst may be
// src[:0].
func (b *Buffer[T]) rescoreInto(dst, src []*Entry[T], rescore Rescorer[T], outdated bool) []*Entry[T] {
	for _, e := range src {
		m, ok := rescore(e)
		if !ok {
			continue
		}
		e.Score = m.Score
		e.Matches = m.Indices
		e.Generation = b.generation()
		e.Outdated = e.Outdated || outdated
		dst = append(dst, e)
	}
	return dst
}

// Integrate merges freshly scanned matches and reports whether the visible
// entries changed. When kept is full and no match reaches the current
// cutoff the batch is discarded untouched.
func (b *Buffer[T]) Integrate(matches []*Entry[T]) bool {
	if len(matches) == 0 {
		return false
	}
	if len(b.kept) >= b.maxResults {
		best := matches[0].Score
		for _, m := range matches[1:] {
			best = max(best, m.Score)
		}
		if best < b.kept[len(b.kept)-1].Score {
			return false
		}
	}

	before := append([]*Entry[T](nil), b.kept...)

	b.kept = append(b.kept, matches...)
	sortEntries(b.kept)
	b.kept = pruneOutdated(b.kept)
	b.overflow = pruneSuperseded(b.overflow, matches)

	if len(b.kept) > b.maxResults {
		b.overflow = append(b.overflow, b.kept[b.maxResults:]...)
		clear(b.kept[b.maxResults:])
		b.kept = b.kept[:b.maxResults]
	}

	return !samePointers(before, b.kept)
}

func (b *Buffer[T]) generation() uint64 {
	g := b.nextGen
	b.nextGen++
	return g
}

// pruneOutdated drops every outdated entry that has a newer sibling with the
// same score and index. entries must be sorted.
func pruneOutdated[T any](entries []*Entry[T]) []*Entry[T] {
	out := entries[:0]
	var prev *Entry[T]
	for _, e := range entries {
		shadowed := prev != nil && prev.Score == e.Score && prev.Index == e.Index
		prev = e
		if e.Outdated && shadowed {
			continue
		}
		out = append(out, e)
	}
	clear(entries[len(out):])
	return out
}

// pruneSuperseded drops outdated overflow entries whose index was just
// re-matched.
func pruneSuperseded[T any](overflow, fresh []*Entry[T]) []*Entry[T] {
	if len(overflow) == 0 {
		return overflow
	}
	seen := make(map[int]struct{}, len(fresh))
	for _, f := range fresh {
		seen[f.Index] = struct{}{}
	}
	out := overflow[:0]
	for _, e := range overflow {
		if _, ok := seen[e.Index]; ok && e.Outdated {
			continue
		}
		out = append(out, e)
	}
	clear(overflow[len(out):])
	return out
}

func sortEntries[T any](entries []*Entry[T]) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Generation > b.Generation
	})
}

func samePointers[T any](a, b []*Entry[T]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
