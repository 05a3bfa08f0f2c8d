package filesearch

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenario = []string{"abcde", "a.c.e", "ac.e", "a..c..e", "8934", "4657", "ace"}

var tree = []string{
	"cmd/navsearch/main.go",
	"internal/fuzzy/match.go",
	"internal/fuzzy/match_test.go",
	"internal/fuzzy/segments.go",
	"internal/filesearch/engine.go",
	"internal/filesearch/engine_test.go",
	"internal/symbolsearch/dataset.go",
	"internal/symbolsearch/engine.go",
	"pkg/config/config.go",
	"pkg/errors/errors.go",
	"pkg/metrics/metrics.go",
	"README.md",
}

func newTestEngine(t *testing.T, dataset []string, tune func(*config.SearchConfig)) (*Engine, *scheduler.Manual) {
	t.Helper()
	cfg := config.DefaultSearchConfig()
	cfg.StepDuration = 0
	if tune != nil {
		tune(&cfg)
	}
	sched := &scheduler.Manual{}
	return New(dataset, cfg, sched, &scheduler.FakeClock{}), sched
}

func resultIndices(rs []*Result) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.Index
	}
	return out
}

// bruteForce ranks every matching path the way the engine should.
func bruteForce(dataset []string, text string) []int {
	type scored struct{ index, score int }
	var all []scored
	for i, p := range dataset {
		if m, ok := fuzzy.MatchFilePath(p, text); ok {
			all = append(all, scored{i, m.Score})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].index < all[j].index
	})
	out := make([]int, len(all))
	for i, s := range all {
		out[i] = s.index
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	e, sched := newTestEngine(t, scenario, func(c *config.SearchConfig) { c.BatchSize = 2 })

	completions := 0
	steps := 0
	e.OnComplete(func() { completions++ })
	e.OnStep(func(bool) { steps++ })

	e.SetSearchText("ace")
	assert.True(t, e.Running())
	sched.Drain(0)

	assert.Equal(t, 1, completions)
	assert.Equal(t, 4, steps)
	assert.False(t, e.Running())
	assert.True(t, e.Finished())
	assert.Len(t, e.Results(), 5)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 6}, resultIndices(e.Results()))
	assert.Equal(t, 1.0, e.Progress())
	assert.Equal(t, bruteForce(scenario, "ace"), resultIndices(e.Results()))
}

func TestExactMatchRanksFirst(t *testing.T) {
	e, sched := newTestEngine(t, scenario, nil)
	e.SetSearchText("ace")
	sched.Drain(0)
	require.NotEmpty(t, e.Results())
	assert.Equal(t, "ace", e.Results()[0].Element)
	assert.Equal(t, []int{0, 1, 2}, e.Results()[0].Matches)
}

func TestTopKBoundAfterEveryStep(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) {
		c.BatchSize = 1
		c.MaxResults = 2
	})
	e.OnStep(func(bool) {
		assert.LessOrEqual(t, len(e.Results()), 2)
		rs := e.Results()
		for i := 1; i < len(rs); i++ {
			assert.GreaterOrEqual(t, rs[i-1].Score, rs[i].Score)
		}
	})
	e.SetSearchText("go")
	sched.Drain(0)

	assert.True(t, e.Finished())
	assert.Equal(t, bruteForce(tree, "go")[:2], resultIndices(e.Results()))
}

func TestPrefixGrowthNarrowsMonotonically(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.BatchSize = 3 })

	previous := map[int]bool{}
	for i, text := range []string{"f", "fu", "fuz", "fuzz/m"} {
		e.SetSearchText(text)
		sched.Drain(0)
		require.True(t, e.Finished())

		got := resultIndices(e.Results())
		assert.Equal(t, bruteForce(tree, text), got, text)
		if i > 0 {
			for _, idx := range got {
				assert.True(t, previous[idx], "%s re-admitted %d", text, idx)
			}
		}
		previous = map[int]bool{}
		for _, idx := range got {
			previous[idx] = true
		}
	}
}

func TestPrefixGrowthMidScanKeepsCursor(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.BatchSize = 4 })
	e.SetSearchText("e")
	require.True(t, sched.RunNext())
	before := e.Progress()

	e.SetSearchText("en")
	assert.Equal(t, before, e.Progress())
	assert.Equal(t, 1, sched.Pending())

	sched.Drain(0)
	assert.True(t, e.Finished())
	assert.Equal(t, bruteForce(tree, "en"), resultIndices(e.Results()))
}

func TestNonPrefixEditRescansAndDropsOutdated(t *testing.T) {
	e, sched := newTestEngine(t, scenario, func(c *config.SearchConfig) { c.BatchSize = 2 })
	e.SetSearchText("ace")
	sched.Drain(0)

	e.SetSearchText("ac")
	assert.True(t, e.Running())
	assert.Zero(t, e.Progress())
	for _, r := range e.Results() {
		assert.True(t, r.Outdated)
	}

	sched.Drain(0)
	assert.True(t, e.Finished())
	assert.Equal(t, bruteForce(scenario, "ac"), resultIndices(e.Results()))
	for _, r := range e.Results() {
		assert.False(t, r.Outdated, "index %d", r.Index)
	}
}

func TestNonPrefixEditWithSmallLimitHasNoDuplicates(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) {
		c.BatchSize = 2
		c.MaxResults = 3
	})
	e.SetSearchText("engine")
	sched.Drain(0)
	e.SetSearchText("eng")
	sched.Drain(0)
	e.SetSearchText("e")
	sched.Drain(0)

	seen := map[int]bool{}
	for _, r := range e.Results() {
		assert.False(t, seen[r.Index], "duplicate %d", r.Index)
		seen[r.Index] = true
	}
	assert.LessOrEqual(t, len(e.Results()), 3)
}

func TestClearQueryReturnsToIdle(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.BatchSize = 1 })
	completed := false
	e.OnComplete(func() { completed = true })

	e.SetSearchText("go")
	require.True(t, sched.RunNext())
	e.SetSearchText("")

	assert.Equal(t, engine.StateIdle, e.State())
	assert.Empty(t, e.Results())
	assert.Zero(t, e.Progress())

	// the step scheduled before the clear must not resume the scan
	sched.Drain(0)
	assert.Equal(t, engine.StateIdle, e.State())
	assert.False(t, completed)
}

func TestSetSearchTextUnchangedIsNoop(t *testing.T) {
	e, sched := newTestEngine(t, tree, nil)
	e.SetSearchText("go")
	sched.Drain(0)
	completions := 0
	e.OnComplete(func() { completions++ })
	e.SetSearchText("go")
	assert.Zero(t, completions)
	assert.Zero(t, sched.Pending())
}

func TestPrefixGrowthAfterFinishCompletesImmediately(t *testing.T) {
	e, sched := newTestEngine(t, tree, nil)
	e.SetSearchText("go")
	sched.Drain(0)

	completions := 0
	e.OnComplete(func() { completions++ })
	e.SetSearchText("go.")
	assert.True(t, e.Finished())
	assert.Equal(t, 1, completions)
	assert.Zero(t, sched.Pending())
	assert.Equal(t, bruteForce(tree, "go."), resultIndices(e.Results()))
}

func TestEmptyDatasetFinishesImmediately(t *testing.T) {
	e, sched := newTestEngine(t, nil, nil)
	completions := 0
	e.OnComplete(func() { completions++ })
	e.SetSearchText("x")
	assert.True(t, e.Finished())
	assert.Equal(t, 1, completions)
	assert.Zero(t, sched.Pending())
	assert.Zero(t, e.Progress())
}

func TestSchedulingIsSingleFlight(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.BatchSize = 1 })
	e.SetSearchText("g")
	e.SetSearchText("go")
	e.SetSearchText("x")
	assert.Equal(t, 1, sched.Pending())
}

func TestStepChangedFlag(t *testing.T) {
	dataset := []string{"abc", "zzz", "zzz"}
	e, sched := newTestEngine(t, dataset, func(c *config.SearchConfig) { c.BatchSize = 1 })
	var flags []bool
	e.OnStep(func(changed bool) { flags = append(flags, changed) })
	e.SetSearchText("ab")
	sched.Drain(0)
	assert.Equal(t, []bool{true, false, false}, flags)
}

func TestTimeSlicedStep(t *testing.T) {
	dataset := make([]string, 10)
	for i := range dataset {
		dataset[i] = "file.go"
	}
	cfg := config.DefaultSearchConfig()
	cfg.BatchSize = 1
	cfg.StepDuration = 3 * time.Millisecond
	sched := &scheduler.Manual{}
	e := New(dataset, cfg, sched, &scheduler.FakeClock{Step: time.Millisecond})

	e.SetSearchText("go")
	require.True(t, sched.RunNext())
	assert.InDelta(t, 0.3, e.Progress(), 1e-9)
	require.True(t, sched.RunNext())
	assert.InDelta(t, 0.6, e.Progress(), 1e-9)
}

func TestResetSwapsDatasetAndRestarts(t *testing.T) {
	e, sched := newTestEngine(t, scenario, nil)
	e.SetSearchText("ace")
	sched.Drain(0)

	other := []string{"space", "race", "nope"}
	e.Reset(other)
	assert.True(t, e.Running())
	assert.Empty(t, e.Results())
	sched.Drain(0)
	assert.True(t, e.Finished())
	assert.Equal(t, bruteForce(other, "ace"), resultIndices(e.Results()))
}

func TestResetSameDatasetIsNoop(t *testing.T) {
	e, sched := newTestEngine(t, scenario, nil)
	e.SetSearchText("ace")
	sched.Drain(0)
	e.Reset(scenario)
	assert.True(t, e.Finished())
	assert.Len(t, e.Results(), 5)
}

func TestResetWhileIdleStaysIdle(t *testing.T) {
	e, sched := newTestEngine(t, scenario, nil)
	e.Reset(tree)
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Zero(t, sched.Pending())
}

func TestResetWithText(t *testing.T) {
	e, sched := newTestEngine(t, scenario, nil)
	e.SetSearchText("ace")
	sched.Drain(0)

	e.ResetWithText(tree, "main")
	assert.Equal(t, "main", e.SearchText())
	sched.Drain(0)
	assert.Equal(t, bruteForce(tree, "main"), resultIndices(e.Results()))

	// same text against a new dataset still rescans
	trimmed := append([]string(nil), tree[:2]...)
	e.ResetWithText(trimmed, "main")
	sched.Drain(0)
	assert.Equal(t, bruteForce(trimmed, "main"), resultIndices(e.Results()))
}

func TestCallbackMayChangeQuery(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.BatchSize = 1 })
	stepped := 0
	e.OnStep(func(bool) {
		stepped++
		if stepped == 2 {
			e.SetSearchText("")
		}
	})
	e.SetSearchText("go")
	sched.Drain(0)
	assert.Equal(t, 2, stepped)
	assert.Equal(t, engine.StateIdle, e.State())
}

func TestSetMaxResultsResurrectsOverflow(t *testing.T) {
	e, sched := newTestEngine(t, tree, func(c *config.SearchConfig) { c.MaxResults = 2 })
	e.SetSearchText("go")
	sched.Drain(0)
	require.Len(t, e.Results(), 2)

	require.NoError(t, e.SetMaxResults(5))
	assert.Equal(t, bruteForce(tree, "go")[:5], resultIndices(e.Results()))
}

func TestSettersRejectInvalidValues(t *testing.T) {
	e, _ := newTestEngine(t, tree, nil)
	assert.True(t, apperrors.IsConfigurationError(e.SetMaxResults(0)))
	assert.True(t, apperrors.IsConfigurationError(e.SetBatchSize(-1)))
	assert.True(t, apperrors.IsConfigurationError(e.SetStepDuration(-time.Second)))
	assert.Equal(t, 32, e.MaxResults())
	assert.Equal(t, 100, e.BatchSize())

	require.NoError(t, e.SetBatchSize(7))
	require.NoError(t, e.SetStepDuration(time.Millisecond))
	assert.Equal(t, 7, e.BatchSize())
	assert.Equal(t, time.Millisecond, e.StepDuration())
}

func TestParseQuery(t *testing.T) {
	assert.Nil(t, ParseQuery(""))
	q := ParseQuery(`src\lib/fz`)
	require.NotNil(t, q)
	assert.Equal(t, []string{"src", "lib", "fz"}, q.Parts)
	assert.True(t, strings.HasPrefix(q.Text, "src"))
}

type recordingObserver struct {
	engine.NopObserver
	steps     int
	completes int
	reranks   []string
}

func (o *recordingObserver) ObserveStep(string, int, int, bool, time.Duration) { o.steps++ }
func (o *recordingObserver) ObserveComplete(string)                            { o.completes++ }
func (o *recordingObserver) ObserveRerank(_ string, mode string)               { o.reranks = append(o.reranks, mode) }

func TestObserverReceivesLifecycle(t *testing.T) {
	e, sched := newTestEngine(t, scenario, func(c *config.SearchConfig) { c.BatchSize = 2 })
	obs := &recordingObserver{}
	e.SetObserver(obs)
	e.SetSearchText("ace")
	sched.Drain(0)
	e.SetSearchText("ac")
	sched.Drain(0)

	assert.Equal(t, 8, obs.steps)
	assert.Equal(t, 2, obs.completes)
	assert.Equal(t, []string{"skipped", "outdated"}, obs.reranks)
}
