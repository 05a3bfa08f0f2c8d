package symbolsearch

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotFixture is a small C++ style symbol tree:
//
//	ns { detail { Helper }, Widget { paint, resize, create }, paintAll, Color { Red, Green } }
//	Point, main
var snapshotFixture = map[Kind]Columns{
	KindNamespace:    {IDs: []int64{1, 2}, Names: []string{"ns", "detail"}, Parents: []int64{0, 1}},
	KindClass:        {IDs: []int64{10, 11}, Names: []string{"Widget", "Helper"}, Parents: []int64{1, 2}},
	KindStruct:       {IDs: []int64{20}, Names: []string{"Point"}},
	KindFunction:     {IDs: []int64{30, 31}, Names: []string{"main", "paintAll"}, Parents: []int64{0, 1}},
	KindMethod:       {IDs: []int64{40, 41}, Names: []string{"paint", "resize"}, Parents: []int64{10, 10}},
	KindStaticMethod: {IDs: []int64{50}, Names: []string{"create"}, Parents: []int64{10}},
	KindEnum:         {IDs: []int64{60}, Names: []string{"Color"}, Parents: []int64{1}},
	KindEnumConstant: {IDs: []int64{70, 71}, Names: []string{"Red", "Green"}, Parents: []int64{60, 60}},
}

type tierRequest struct {
	project *ProjectInfo
	kinds   []Kind
	deliver func(*TierData, error)
}

type fakeFetcher struct {
	requests []*tierRequest
}

func (f *fakeFetcher) FetchTier(project *ProjectInfo, kinds []Kind, deliver func(*TierData, error)) {
	f.requests = append(f.requests, &tierRequest{project: project, kinds: kinds, deliver: deliver})
}

// serve answers request i from snapshotFixture.
func (f *fakeFetcher) serve(t *testing.T, i int) {
	t.Helper()
	require.Less(t, i, len(f.requests), "tier request %d not issued", i)
	req := f.requests[i]
	req.deliver(fixtureTier(req.project, req.kinds), nil)
}

func fixtureTier(project *ProjectInfo, kinds []Kind) *TierData {
	data := &TierData{Project: project}
	for _, k := range kinds {
		if cols, ok := snapshotFixture[k]; ok {
			data.Batches = append(data.Batches, KindBatch{Kind: k, Columns: cols})
		}
	}
	return data
}

var testProject = &ProjectInfo{Name: "core", Revision: "r1"}

func newTestEngine(t *testing.T) (*Engine, *fakeFetcher, *scheduler.Manual) {
	t.Helper()
	cfg := config.DefaultSearchConfig()
	cfg.StepDuration = 0
	f := &fakeFetcher{}
	sched := &scheduler.Manual{}
	return New(testProject, f, cfg, sched, &scheduler.FakeClock{}), f, sched
}

func serveAll(t *testing.T, f *fakeFetcher, sched *scheduler.Manual) {
	t.Helper()
	for i := range tiers {
		sched.Drain(0)
		f.serve(t, i)
	}
	sched.Drain(0)
}

func resultNames(rs []*Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Element.Name
	}
	return out
}

func TestMissingTierStallsForever(t *testing.T) {
	e, f, sched := newTestEngine(t)
	completions := 0
	e.OnComplete(func() { completions++ })

	e.SetSearchText("p")
	sched.Drain(0)
	f.serve(t, 0)
	for i := 0; i < 10; i++ {
		sched.Drain(0)
	}

	assert.Equal(t, engine.StateRunning, e.State())
	assert.False(t, e.Finished())
	assert.Zero(t, completions)
	assert.Less(t, e.Progress(), 1.0)
	kind, waiting := e.WaitingFor()
	assert.True(t, waiting)
	assert.Equal(t, KindFunction, kind)
	require.Len(t, f.requests, 2)
	assert.Equal(t, tiers[1], f.requests[1].kinds)
}

func TestTiersAreRequestedInOrder(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("a")
	require.Len(t, f.requests, 1)
	serveAll(t, f, sched)

	require.Len(t, f.requests, 3)
	for i, req := range f.requests {
		assert.Equal(t, tiers[i], req.kinds)
		assert.True(t, SameProject(testProject, req.project))
	}
	assert.True(t, e.Finished())
	assert.Equal(t, 1.0, e.Progress())
}

func TestNameQuery(t *testing.T) {
	e, f, sched := newTestEngine(t)
	completions := 0
	e.OnComplete(func() { completions++ })
	e.SetSearchText("paint")
	serveAll(t, f, sched)

	assert.Equal(t, 1, completions)
	require.Len(t, e.Results(), 2)
	assert.Equal(t, []string{"paint", "paintAll"}, resultNames(e.Results()))

	paint := e.Results()[0].Element
	assert.Equal(t, KindMethod, paint.Kind)
	assert.Equal(t, int64(40), paint.ID)
	assert.Equal(t, "ns::Widget::paint", paint.QualifiedName)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, e.Results()[0].Matches)
}

func TestUnscopedSymbolHasNoQualifiedName(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("main")
	serveAll(t, f, sched)
	require.NotEmpty(t, e.Results())
	assert.Equal(t, "main", e.Results()[0].Element.Name)
	assert.Empty(t, e.Results()[0].Element.QualifiedName)
}

func TestQualifiedQueryRequiresFinalSegment(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("Widget::paint")
	serveAll(t, f, sched)

	require.Len(t, e.Results(), 1)
	r := e.Results()[0]
	assert.Equal(t, "ns::Widget::paint", r.Element.QualifiedName)
	// offsets are into "ns::Widget::paint"
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9, 12, 13, 14, 15, 16}, r.Matches)
}

func TestScopeQueryListsMembers(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("ns::")
	serveAll(t, f, sched)

	names := resultNames(e.Results())
	sort.Strings(names)
	assert.Equal(t, []string{"Color", "Green", "Helper", "Red", "Widget", "create", "paint", "paintAll", "resize"}, names)
}

func TestPrefixGrowthAfterFinish(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("pa")
	serveAll(t, f, sched)
	require.True(t, e.Finished())

	completions := 0
	e.OnComplete(func() { completions++ })
	e.SetSearchText("pai")
	assert.True(t, e.Finished())
	assert.Equal(t, 1, completions)
	assert.Zero(t, sched.Pending())
	assert.Len(t, f.requests, 3)
}

func TestNonPrefixEditRescans(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("paint")
	serveAll(t, f, sched)

	e.SetSearchText("pain")
	assert.True(t, e.Running())
	for _, r := range e.Results() {
		assert.True(t, r.Outdated)
	}
	sched.Drain(0)

	assert.True(t, e.Finished())
	assert.Equal(t, []string{"paint", "paintAll"}, resultNames(e.Results()))
	for _, r := range e.Results() {
		assert.False(t, r.Outdated)
	}
	assert.Len(t, f.requests, 3, "dataset is reused")
}

func TestClearQueryIdles(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("p")
	f.serve(t, 0)
	e.SetSearchText("")

	assert.Equal(t, engine.StateIdle, e.State())
	sched.Drain(0)
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Empty(t, e.Results())
	_, waiting := e.WaitingFor()
	assert.False(t, waiting)
}

func TestProgressCountsAvailableRanges(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("x")
	f.serve(t, 0)
	f.serve(t, 1)
	assert.Zero(t, e.Progress())

	// function range (2 of 8 available entries) is scanned by one step
	require.True(t, sched.RunNext())
	assert.InDelta(t, 0.25, e.Progress(), 1e-9)
}

func TestSetFilterRestartsOverNewKinds(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("e")
	serveAll(t, f, sched)
	require.NotEmpty(t, e.Results())

	require.NoError(t, e.SetFilter("c"))
	assert.Equal(t, "c", e.Filter())
	assert.Equal(t, []Kind{KindClass, KindStruct}, e.Kinds())
	assert.True(t, e.Running())
	assert.Empty(t, e.Results())
	sched.Drain(0)

	assert.True(t, e.Finished())
	assert.ElementsMatch(t, []string{"Widget", "Helper"}, resultNames(e.Results()))
	for _, r := range e.Results() {
		assert.Contains(t, []Kind{KindClass, KindStruct}, r.Element.Kind)
	}
}

func TestSetFilterUnknownKeepsState(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("e")
	serveAll(t, f, sched)
	before := resultNames(e.Results())

	err := e.SetFilter("zz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownFilter))
	var cfgErr *apperrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "filter", cfgErr.Field)

	assert.Equal(t, "", e.Filter())
	assert.Equal(t, DefaultKinds(), e.Kinds())
	assert.True(t, e.Finished())
	assert.Equal(t, before, resultNames(e.Results()))
}

func TestSetFilterWhileIdle(t *testing.T) {
	e, f, sched := newTestEngine(t)
	require.NoError(t, e.SetFilter("e"))
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Empty(t, f.requests)
	assert.Zero(t, sched.Pending())

	e.ClearFilter()
	assert.Equal(t, DefaultKinds(), e.Kinds())
}

func TestSetKinds(t *testing.T) {
	e, f, sched := newTestEngine(t)
	assert.True(t, apperrors.IsConfigurationError(e.SetKinds(nil)))
	assert.True(t, apperrors.IsConfigurationError(e.SetKinds([]Kind{KindMacro})))
	assert.Equal(t, DefaultKinds(), e.Kinds())

	require.NoError(t, e.SetKinds([]Kind{KindEnumConstant}))
	e.SetSearchText("re")
	serveAll(t, f, sched)
	assert.ElementsMatch(t, []string{"Red", "Green"}, resultNames(e.Results()))

	require.NoError(t, e.SetFilter(""))
	assert.Equal(t, DefaultKinds(), e.Kinds())
}

func TestStaleProjectResponseIsDiscarded(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("p")
	f.requests[0].deliver(fixtureTier(&ProjectInfo{Name: "core", Revision: "r0"}, tiers[0]), nil)

	assert.Equal(t, 0, e.Dataset().Len())
	assert.Len(t, f.requests, 1)
	sched.Drain(0)
	assert.True(t, e.Running())
}

func TestReconfigure(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("paint")
	serveAll(t, f, sched)

	e.Reconfigure(&ProjectInfo{Name: "core", Revision: "r1"})
	assert.True(t, e.Finished(), "same project is a no-op")
	assert.Len(t, f.requests, 3)

	next := &ProjectInfo{Name: "core", Revision: "r2"}
	e.Reconfigure(next)
	assert.True(t, e.Running())
	assert.Empty(t, e.Results())
	assert.Equal(t, 0, e.Dataset().Len())
	require.Len(t, f.requests, 4)
	assert.Same(t, next, f.requests[3].project)

	for i := 3; i < 6; i++ {
		sched.Drain(0)
		f.serve(t, i)
	}
	sched.Drain(0)
	assert.True(t, e.Finished())
	assert.Len(t, e.Results(), 2)
}

func TestReloadRefetchesSameProject(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("paint")
	serveAll(t, f, sched)
	require.Len(t, f.requests, 3)

	e.Reload()
	assert.True(t, e.Running())
	assert.Empty(t, e.Results())
	assert.Equal(t, 0, e.Dataset().Len())
	require.Len(t, f.requests, 4)
	assert.Equal(t, tiers[0], f.requests[3].kinds)

	for i := 3; i < 6; i++ {
		sched.Drain(0)
		f.serve(t, i)
	}
	sched.Drain(0)
	assert.True(t, e.Finished())
	assert.Len(t, e.Results(), 2)
}

func TestReloadWhileIdleDefersFetch(t *testing.T) {
	e, f, _ := newTestEngine(t)
	e.Reload()
	assert.Empty(t, f.requests)
	e.SetSearchText("p")
	assert.Len(t, f.requests, 1)
}

func TestReconfigureDropsInflightTier(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("p")
	e.Reconfigure(nil)
	require.Len(t, f.requests, 2)

	// the answer to the first request arrives late
	f.serve(t, 0)
	assert.Equal(t, 0, e.Dataset().Len())

	f.serve(t, 1)
	sched.Drain(0)
	assert.True(t, e.Dataset().Has(KindNamespace))
	assert.Len(t, f.requests, 3)
}

func TestFetchErrorRetriesOnNextQuery(t *testing.T) {
	e, f, sched := newTestEngine(t)
	e.SetSearchText("p")
	f.serve(t, 0)
	f.requests[1].deliver(nil, fmt.Errorf("fetch: %w", apperrors.ErrTierUnavailable))
	sched.Drain(0)
	assert.True(t, e.Running())
	require.Len(t, f.requests, 2)

	e.SetSearchText("pa")
	require.Len(t, f.requests, 3)
	assert.Equal(t, tiers[1], f.requests[2].kinds)
	f.serve(t, 2)
	f.serve(t, 3)
	sched.Drain(0)
	assert.True(t, e.Finished())
}

func TestNilTierIsTreatedAsFailure(t *testing.T) {
	e, f, _ := newTestEngine(t)
	e.SetSearchText("p")
	f.requests[0].deliver(nil, nil)
	assert.Equal(t, 0, e.Dataset().Len())
	assert.True(t, e.Running())
}

func TestSynchronousFetcher(t *testing.T) {
	cfg := config.DefaultSearchConfig()
	sched := &scheduler.Manual{}
	calls := 0
	fetcher := FetcherFunc(func(p *ProjectInfo, kinds []Kind, deliver func(*TierData, error)) {
		calls++
		deliver(fixtureTier(p, kinds), nil)
	})
	e := New(nil, fetcher, cfg, sched, &scheduler.FakeClock{})
	e.SetSearchText("Color")
	sched.Drain(0)

	assert.Equal(t, 3, calls)
	assert.True(t, e.Finished())
	require.NotEmpty(t, e.Results())
	assert.Equal(t, KindEnum, e.Results()[0].Element.Kind)
}

func TestSymbolSetters(t *testing.T) {
	e, _, _ := newTestEngine(t)
	assert.True(t, apperrors.IsConfigurationError(e.SetMaxResults(0)))
	assert.True(t, apperrors.IsConfigurationError(e.SetBatchSize(0)))
	assert.True(t, apperrors.IsConfigurationError(e.SetStepDuration(-1)))
	require.NoError(t, e.SetMaxResults(4))
	assert.Equal(t, 4, e.MaxResults())
}

func TestSmallBatchesSpanSteps(t *testing.T) {
	e, f, sched := newTestEngine(t)
	require.NoError(t, e.SetBatchSize(1))
	steps := 0
	e.OnStep(func(bool) { steps++ })
	e.SetSearchText("e")
	serveAll(t, f, sched)

	// one step per entry of the 11 default-kind entries, plus one for each
	// of the two empty ranges
	assert.Equal(t, 13, steps)
	assert.True(t, e.Finished())
}
