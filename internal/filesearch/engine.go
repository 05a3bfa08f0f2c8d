// Package filesearch implements the incremental, time-sliced file path search
// engine. The engine scans a flat dataset of '/' separated paths in batches,
// yielding to its Scheduler between steps, and keeps a top-K result list that
// is re-ranked rather than recomputed when the query only grows.
package filesearch

import (
	"log/slog"
	"strings"
	"time"
	"unsafe"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/results"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
)

const engineName = "files"

// Result is one matched path. Matches are rune offsets into the path.
type Result = results.Entry[string]

// Engine is the file path search engine. It is not safe for concurrent use:
// all methods must be called from the goroutine draining its Scheduler.
type Engine struct {
	dataset   []string
	inputText string
	query     *Query
	buf       *results.Buffer[string]
	state     engine.State
	cursor    int
	pending   bool

	batchSize    int
	stepDuration time.Duration
	segOpts      fuzzy.SegmentOptions

	sched      scheduler.Scheduler
	clock      scheduler.Clock
	onStep     func(changed bool)
	onComplete func()
	observer   engine.Observer
	logger     *slog.Logger
}

// New creates an idle engine over dataset. Invalid values in cfg fall back
// to the defaults.
func New(dataset []string, cfg config.SearchConfig, sched scheduler.Scheduler, clock scheduler.Clock) *Engine {
	if cfg.Validate() != nil {
		cfg = config.DefaultSearchConfig()
	}
	segOpts := fuzzy.DefaultSegmentOptions()
	segOpts.MaxRecursion = cfg.MaxRecursionDepth
	segOpts.FinalSegmentBonus = fuzzy.FilePathFinalSegmentBonus
	return &Engine{
		dataset:      dataset,
		buf:          results.NewBuffer[string](cfg.MaxResults),
		batchSize:    cfg.BatchSize,
		stepDuration: cfg.StepDuration,
		segOpts:      segOpts,
		sched:        sched,
		clock:        clock,
		observer:     engine.NopObserver{},
		logger:       logger.WithComponent("file-search"),
	}
}

// OnStep registers the callback fired after every step with whether the
// visible results changed.
func (e *Engine) OnStep(fn func(changed bool)) { e.onStep = fn }

// OnComplete registers the callback fired when a scan reaches the end of the
// dataset.
func (e *Engine) OnComplete(fn func()) { e.onComplete = fn }

// SetObserver installs an instrumentation hook. nil restores the no-op.
func (e *Engine) SetObserver(o engine.Observer) {
	if o == nil {
		o = engine.NopObserver{}
	}
	e.observer = o
}

func (e *Engine) Dataset() []string           { return e.dataset }
func (e *Engine) SearchText() string          { return e.inputText }
func (e *Engine) Query() *Query               { return e.query }
func (e *Engine) State() engine.State         { return e.state }
func (e *Engine) Running() bool               { return e.state == engine.StateRunning }
func (e *Engine) Finished() bool              { return e.state == engine.StateFinished }
func (e *Engine) MaxResults() int             { return e.buf.MaxResults() }
func (e *Engine) BatchSize() int              { return e.batchSize }
func (e *Engine) StepDuration() time.Duration { return e.stepDuration }

// Results returns the current top-K, best first. The slice is owned by the
// engine and only valid until the next call into it.
func (e *Engine) Results() []*Result { return e.buf.Kept() }

// Progress returns the scanned fraction of the dataset.
func (e *Engine) Progress() float64 {
	return float64(e.cursor) / float64(max(len(e.dataset), 1))
}

// SetMaxResults changes the result limit, moving entries between the
// visible list and the overflow buffer.
func (e *Engine) SetMaxResults(n int) error {
	if n < 1 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "maxResults", n)
	}
	e.buf.SetMaxResults(n)
	return nil
}

// SetBatchSize changes how many items are matched between clock checks.
func (e *Engine) SetBatchSize(n int) error {
	if n < 1 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "batchSize", n)
	}
	e.batchSize = n
	return nil
}

// SetStepDuration changes the time budget of one step. Zero runs a single
// batch per step.
func (e *Engine) SetStepDuration(d time.Duration) error {
	if d < 0 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "stepDuration", d)
	}
	e.stepDuration = d
	return nil
}

// Reset swaps the dataset and restarts the current query against it. It is
// a no-op when dataset is the slice already in use.
func (e *Engine) Reset(dataset []string) {
	if !e.swapDataset(dataset) {
		return
	}
	if e.state != engine.StateIdle {
		e.resume()
	}
}

// ResetWithText swaps the dataset like Reset, then searches for text.
func (e *Engine) ResetWithText(dataset []string, text string) {
	if !e.swapDataset(dataset) {
		return
	}
	if text == e.inputText {
		if e.state != engine.StateIdle {
			e.resume()
		}
		return
	}
	e.SetSearchText(text)
}

func (e *Engine) swapDataset(dataset []string) bool {
	if sameSlice(e.dataset, dataset) {
		return false
	}
	e.dataset = dataset
	e.buf.Clear()
	e.cursor = 0
	e.logger.Debug("dataset reset", "items", len(dataset))
	return true
}

// SetSearchText changes the query. Appending to the previous text keeps the
// scan position and re-ranks held results; any other edit restarts the scan
// and flags held results as outdated. Empty text returns the engine to idle.
func (e *Engine) SetSearchText(text string) {
	if text == e.inputText {
		return
	}
	previous := e.inputText
	e.inputText = text
	e.query = ParseQuery(text)

	if text == "" {
		e.cursor = 0
		e.buf.Clear()
		e.state = engine.StateIdle
		e.logger.Debug("query cleared")
		return
	}

	// appended characters cannot make earlier non-matches match
	remainValid := strings.HasPrefix(text, previous)
	if !remainValid {
		e.cursor = 0
	}
	mode := e.buf.Rerank(!remainValid, func(r *Result) (fuzzy.Match, bool) {
		return e.match(r.Element)
	})
	e.observer.ObserveRerank(engineName, mode.String())
	e.logger.Debug("query changed",
		"query", text,
		"rerank", mode.String(),
		"kept", len(e.buf.Kept()),
		"cursor", e.cursor,
	)
	e.resume()
}

func (e *Engine) resume() {
	if e.cursor >= len(e.dataset) {
		e.finish()
		return
	}
	e.state = engine.StateRunning
	e.scheduleStep()
}

func (e *Engine) finish() {
	e.state = engine.StateFinished
	e.observer.ObserveComplete(engineName)
	e.logger.Info("file search finished",
		"query", e.inputText,
		"items", len(e.dataset),
		"results", len(e.buf.Kept()),
	)
	if e.onComplete != nil {
		e.onComplete()
	}
}

func (e *Engine) scheduleStep() {
	if e.pending {
		return
	}
	e.pending = true
	e.sched.Schedule(e.step)
}

func (e *Engine) step() {
	e.pending = false
	if e.state != engine.StateRunning {
		return
	}

	start := e.clock.Now()
	stop := start + e.stepDuration
	from := e.cursor
	var matches []*Result
	for {
		end := min(len(e.dataset), e.cursor+e.batchSize)
		for i := e.cursor; i < end; i++ {
			if m, ok := e.match(e.dataset[i]); ok {
				matches = append(matches, e.buf.NewEntry(e.dataset[i], i, m))
			}
		}
		e.cursor = end
		if e.cursor >= len(e.dataset) || e.clock.Now() >= stop {
			break
		}
	}

	changed := e.buf.Integrate(matches)
	e.observer.ObserveStep(engineName, e.cursor-from, len(matches), changed, e.clock.Now()-start)
	e.logger.Debug("step", "scanned", e.cursor-from, "matched", len(matches), "changed", changed)
	if e.onStep != nil {
		e.onStep(changed)
	}

	// the callback may have changed the query
	if e.state != engine.StateRunning {
		return
	}
	if e.cursor >= len(e.dataset) {
		e.finish()
		return
	}
	e.scheduleStep()
}

func (e *Engine) match(path string) (fuzzy.Match, bool) {
	return fuzzy.MatchSegments(strings.Split(path, "/"), e.query.Parts, e.segOpts)
}

func sameSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || unsafe.SliceData(a) == unsafe.SliceData(b)
}
