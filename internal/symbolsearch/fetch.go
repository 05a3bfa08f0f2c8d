package symbolsearch

import "slices"

// ProjectInfo identifies the snapshot a symbol engine searches. A nil
// *ProjectInfo selects the default snapshot.
type ProjectInfo struct {
	Name     string
	Revision string
}

func (p *ProjectInfo) String() string {
	if p == nil {
		return "<default>"
	}
	return p.Name + "@" + p.Revision
}

// SameProject reports whether a and b identify the same snapshot. Two nil
// values are the same; a nil and a non-nil value are not.
func SameProject(a, b *ProjectInfo) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name == b.Name && a.Revision == b.Revision
}

// tiers is the order in which kinds are fetched and incorporated. Within a
// tier the order matters: namespaces come first because they enclose
// everything else, and enums precede their constants.
var tiers = [][]Kind{
	{KindNamespace, KindClass, KindStruct, KindUnion},
	{KindFunction, KindMethod, KindStaticMethod, KindClassMethod},
	{KindEnum, KindEnumConstant},
}

// Tiers returns the fetch schedule.
func Tiers() [][]Kind {
	out := make([][]Kind, len(tiers))
	for i, t := range tiers {
		out[i] = slices.Clone(t)
	}
	return out
}

func tierOf(k Kind) (int, bool) {
	for i, t := range tiers {
		if slices.Contains(t, k) {
			return i, true
		}
	}
	return 0, false
}

// TierData is a fetched tier. Project echoes the request so responses for a
// snapshot the engine no longer searches can be discarded.
type TierData struct {
	Project *ProjectInfo
	Batches []KindBatch
}

// Batch returns the batch of kind, or an empty batch when the response
// omitted it.
func (t *TierData) Batch(kind Kind) KindBatch {
	for _, b := range t.Batches {
		if b.Kind == kind {
			return b
		}
	}
	return KindBatch{Kind: kind}
}

// Fetcher loads symbol tiers for an engine. deliver must be called exactly
// once per FetchTier, from the goroutine that drains the engine's
// Scheduler.
type Fetcher interface {
	FetchTier(project *ProjectInfo, kinds []Kind, deliver func(*TierData, error))
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(project *ProjectInfo, kinds []Kind, deliver func(*TierData, error))

func (f FetcherFunc) FetchTier(project *ProjectInfo, kinds []Kind, deliver func(*TierData, error)) {
	f(project, kinds, deliver)
}
