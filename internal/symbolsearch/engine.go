// Package symbolsearch implements the tiered symbol search engine. Symbols
// arrive from a Fetcher in kind-partitioned tiers and are appended to a
// Dataset; the engine scans the configured kinds range by range, parking
// while a range it needs has not arrived yet.
package symbolsearch

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/results"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
)

const engineName = "symbols"

// Symbol is what a result refers to. QualifiedName is the "::" joined
// scope path, empty for symbols without a parent.
type Symbol struct {
	Kind          Kind
	ID            int64
	Name          string
	QualifiedName string
}

// Result is one matched symbol. Index is the entry index in the Dataset and
// Matches are rune offsets into the name, or into the qualified name for
// scoped queries.
type Result = results.Entry[Symbol]

// Engine is the symbol search engine. It is not safe for concurrent use.
type Engine struct {
	project   *ProjectInfo
	dataset   *Dataset
	fetcher   Fetcher
	inputText string
	query     *Query
	buf       *results.Buffer[Symbol]
	state     engine.State
	pending   bool

	filter   string
	kinds    []Kind
	rangeIdx int
	inRange  int

	// fetching is set once the tier chain has been started for the current
	// project; nextTier is the first tier not yet incorporated.
	fetching   bool
	nextTier   int
	fetchEpoch uint64

	batchSize    int
	stepDuration time.Duration
	maxRecursion int

	sched      scheduler.Scheduler
	clock      scheduler.Clock
	onStep     func(changed bool)
	onComplete func()
	observer   engine.Observer
	logger     *slog.Logger
}

// New creates an idle engine for project. Nothing is fetched until the
// first query.
func New(project *ProjectInfo, fetcher Fetcher, cfg config.SearchConfig, sched scheduler.Scheduler, clock scheduler.Clock) *Engine {
	if cfg.Validate() != nil {
		cfg = config.DefaultSearchConfig()
	}
	return &Engine{
		project:      project,
		dataset:      NewDataset(),
		fetcher:      fetcher,
		buf:          results.NewBuffer[Symbol](cfg.MaxResults),
		kinds:        DefaultKinds(),
		batchSize:    cfg.BatchSize,
		stepDuration: cfg.StepDuration,
		maxRecursion: cfg.MaxRecursionDepth,
		sched:        sched,
		clock:        clock,
		observer:     engine.NopObserver{},
		logger:       logger.WithComponent("symbol-search"),
	}
}

func (e *Engine) OnStep(fn func(changed bool)) { e.onStep = fn }
func (e *Engine) OnComplete(fn func())         { e.onComplete = fn }

// SetObserver installs an instrumentation hook. nil restores the no-op.
func (e *Engine) SetObserver(o engine.Observer) {
	if o == nil {
		o = engine.NopObserver{}
	}
	e.observer = o
}

func (e *Engine) Project() *ProjectInfo       { return e.project }
func (e *Engine) Dataset() *Dataset           { return e.dataset }
func (e *Engine) SearchText() string          { return e.inputText }
func (e *Engine) Query() *Query               { return e.query }
func (e *Engine) State() engine.State         { return e.state }
func (e *Engine) Running() bool               { return e.state == engine.StateRunning }
func (e *Engine) Finished() bool              { return e.state == engine.StateFinished }
func (e *Engine) Filter() string              { return e.filter }
func (e *Engine) Kinds() []Kind               { return slices.Clone(e.kinds) }
func (e *Engine) MaxResults() int             { return e.buf.MaxResults() }
func (e *Engine) BatchSize() int              { return e.batchSize }
func (e *Engine) StepDuration() time.Duration { return e.stepDuration }

// Results returns the current top-K, best first.
func (e *Engine) Results() []*Result { return e.buf.Kept() }

// WaitingFor reports the kind a running scan is parked on.
func (e *Engine) WaitingFor() (Kind, bool) {
	if e.state != engine.StateRunning || e.rangeIdx >= len(e.kinds) {
		return "", false
	}
	k := e.kinds[e.rangeIdx]
	return k, !e.dataset.Has(k)
}

// Progress returns the scanned fraction of the kinds that have arrived.
func (e *Engine) Progress() float64 {
	total, done := 0, 0
	for i, k := range e.kinds {
		r, ok := e.dataset.Range(k)
		if !ok {
			continue
		}
		total += r.Len()
		if i < e.rangeIdx {
			done += r.Len()
		}
	}
	return float64(done+e.inRange) / float64(max(total, 1))
}

func (e *Engine) SetMaxResults(n int) error {
	if n < 1 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "maxResults", n)
	}
	e.buf.SetMaxResults(n)
	return nil
}

func (e *Engine) SetBatchSize(n int) error {
	if n < 1 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "batchSize", n)
	}
	e.batchSize = n
	return nil
}

func (e *Engine) SetStepDuration(d time.Duration) error {
	if d < 0 {
		return apperrors.NewConfigurationError(apperrors.ErrInvalidConfig, "stepDuration", d)
	}
	e.stepDuration = d
	return nil
}

// SetFilter restricts the search to a named filter. The empty name restores
// the default kinds. An unknown name returns a ConfigurationError and keeps
// the current filter.
func (e *Engine) SetFilter(name string) error {
	if name == e.filter && (name != "" || slices.Equal(e.kinds, defaultKinds)) {
		return nil
	}
	kinds := DefaultKinds()
	if name != "" {
		f, err := LookupFilter(name)
		if err != nil {
			return err
		}
		kinds = f.Kinds
	}
	e.applyKinds(name, kinds)
	return nil
}

// ClearFilter restores the default kinds.
func (e *Engine) ClearFilter() {
	_ = e.SetFilter("")
}

// SetKinds restricts the search to an explicit kind list, searched in the
// given order.
func (e *Engine) SetKinds(kinds []Kind) error {
	if err := validateKinds(kinds); err != nil {
		return err
	}
	if e.filter == "" && slices.Equal(e.kinds, kinds) {
		return nil
	}
	e.applyKinds("", slices.Clone(kinds))
	return nil
}

func (e *Engine) applyKinds(name string, kinds []Kind) {
	e.filter = name
	e.kinds = kinds
	e.logger.Debug("filter changed", "filter", name, "kinds", kinds)
	if e.state == engine.StateIdle {
		return
	}
	e.rangeIdx, e.inRange = 0, 0
	e.buf.Clear()
	e.resume()
}

// Reconfigure switches to another snapshot. The dataset and results are
// dropped and, unless idle, the tier chain restarts for the new project.
func (e *Engine) Reconfigure(project *ProjectInfo) {
	if SameProject(e.project, project) {
		return
	}
	e.logger.Info("reconfigured", "from", e.project.String(), "to", project.String())
	e.project = project
	e.restart()
}

// Reload drops everything fetched for the current project, as after the
// snapshot behind it was rebuilt, and refetches unless idle.
func (e *Engine) Reload() {
	e.logger.Info("reloading", "project", e.project.String())
	e.restart()
}

func (e *Engine) restart() {
	e.dataset.Clear()
	e.buf.Clear()
	e.rangeIdx, e.inRange = 0, 0
	e.fetching = false
	e.nextTier = 0
	e.fetchEpoch++
	if e.state != engine.StateIdle {
		e.resume()
	}
}

// SetSearchText changes the query. It follows the same rules as the file
// engine: growth by appending keeps the scan position, anything else
// restarts it with held results flagged outdated.
func (e *Engine) SetSearchText(text string) {
	if text == e.inputText {
		return
	}
	previous := e.inputText
	e.inputText = text
	e.query = ParseQuery(text)

	if text == "" {
		e.rangeIdx, e.inRange = 0, 0
		e.buf.Clear()
		e.state = engine.StateIdle
		e.logger.Debug("query cleared")
		return
	}

	remainValid := strings.HasPrefix(text, previous)
	if !remainValid {
		e.rangeIdx, e.inRange = 0, 0
	}
	mode := e.buf.Rerank(!remainValid, func(r *Result) (fuzzy.Match, bool) {
		return e.match(r.Index)
	})
	e.observer.ObserveRerank(engineName, mode.String())
	e.logger.Debug("query changed",
		"query", text,
		"rerank", mode.String(),
		"kept", len(e.buf.Kept()),
	)
	e.resume()
}

func (e *Engine) resume() {
	if e.rangeIdx >= len(e.kinds) {
		e.finish()
		return
	}
	e.state = engine.StateRunning
	if e.fetching {
		e.scheduleStep()
		return
	}
	e.fetchData()
}

func (e *Engine) finish() {
	e.state = engine.StateFinished
	e.observer.ObserveComplete(engineName)
	e.logger.Info("symbol search finished",
		"query", e.inputText,
		"project", e.project.String(),
		"results", len(e.buf.Kept()),
	)
	if e.onComplete != nil {
		e.onComplete()
	}
}

func (e *Engine) fetchData() {
	e.fetching = true
	e.scheduleStep()
	e.requestTier()
}

func (e *Engine) requestTier() {
	if e.nextTier >= len(tiers) {
		return
	}
	tier, epoch, project := e.nextTier, e.fetchEpoch, e.project
	e.logger.Debug("fetching tier", "tier", tier+1, "project", project.String())
	e.fetcher.FetchTier(project, slices.Clone(tiers[tier]), func(data *TierData, err error) {
		e.deliver(epoch, tier, data, err)
	})
}

func (e *Engine) deliver(epoch uint64, tier int, data *TierData, err error) {
	if epoch != e.fetchEpoch || tier != e.nextTier {
		return
	}
	if err == nil && data == nil {
		err = apperrors.ErrTierUnavailable
	}
	if err != nil {
		// the chain restarts from this tier on the next resume
		e.fetching = false
		e.logger.Warn("tier fetch failed",
			"tier", tier+1,
			"project", e.project.String(),
			"error", err,
		)
		return
	}
	if !SameProject(data.Project, e.project) {
		e.logger.Debug("discarding tier for another project", "project", data.Project.String())
		return
	}

	for _, k := range tiers[tier] {
		e.dataset.Incorporate(data.Batch(k))
	}
	e.nextTier++
	e.logger.Debug("tier incorporated", "tier", tier+1, "entries", e.dataset.Len())

	if e.state == engine.StateRunning {
		e.scheduleStep()
	}
	e.requestTier()
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
	if e.state != engine.StateRunning || e.rangeIdx >= len(e.kinds) {
		return
	}

	kind := e.kinds[e.rangeIdx]
	r, ok := e.dataset.Range(kind)
	if !ok {
		// parked until the tier holding kind arrives
		e.observer.ObserveTierWait(engineName, string(kind))
		e.logger.Debug("waiting for tier", "kind", kind)
		return
	}

	start := e.clock.Now()
	stop := start + e.stepDuration
	from := e.inRange
	var matches []*Result
	for {
		end := min(r.Len(), e.inRange+e.batchSize)
		for i := e.inRange; i < end; i++ {
			idx := r.Begin + i
			if m, ok := e.match(idx); ok {
				matches = append(matches, e.buf.NewEntry(e.symbol(kind, idx), idx, m))
			}
		}
		e.inRange = end
		if e.inRange >= r.Len() || e.clock.Now() >= stop {
			break
		}
	}
	scanned := e.inRange - from
	if e.inRange >= r.Len() {
		e.rangeIdx++
		e.inRange = 0
	}

	changed := e.buf.Integrate(matches)
	e.observer.ObserveStep(engineName, scanned, len(matches), changed, e.clock.Now()-start)
	e.logger.Debug("step", "kind", kind, "scanned", scanned, "matched", len(matches), "changed", changed)
	if e.onStep != nil {
		e.onStep(changed)
	}

	if e.state != engine.StateRunning {
		return
	}
	if e.rangeIdx >= len(e.kinds) {
		e.finish()
		return
	}
	e.scheduleStep()
}

// match scores dataset entry idx against the current query.
func (e *Engine) match(idx int) (fuzzy.Match, bool) {
	entry := e.dataset.At(idx)
	if !e.query.Qualified() {
		return fuzzy.MatchScored(entry.Name, e.query.Name, fuzzy.SublimeScore, e.maxRecursion)
	}
	if entry.Parent == 0 {
		return fuzzy.Match{}, false
	}
	return fuzzy.MatchSegments(e.dataset.QualifiedName(idx, false), e.query.Parts, fuzzy.SegmentOptions{
		Score:               fuzzy.SublimeScore,
		MaxRecursion:        e.maxRecursion,
		RequireFinalSegment: e.query.Name != "",
		SeparatorLength:     len(ScopeSeparator),
	})
}

func (e *Engine) symbol(kind Kind, idx int) Symbol {
	entry := e.dataset.At(idx)
	s := Symbol{Kind: kind, ID: entry.ID, Name: entry.Name}
	if entry.Parent != 0 {
		s.QualifiedName = strings.Join(e.dataset.QualifiedName(idx, false), ScopeSeparator)
	}
	return s
}
