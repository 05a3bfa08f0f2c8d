package snapshot

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/redis/go-redis/v9"
)

var coreR1 = &symbolsearch.ProjectInfo{Name: "core", Revision: "r1"}

// memSource serves fixed snapshots. fail, when set, is consulted before
// every load with the 1-based call number.
type memSource struct {
	mu      sync.Mutex
	files   map[string][]string
	symbols map[string]map[symbolsearch.Kind]symbolsearch.Columns
	fail    func(call int) error
	calls   int
}

func newMemSource() *memSource {
	return &memSource{
		files: map[string][]string{
			coreR1.String(): {"src/main.go", "src/widget/paint.go"},
		},
		symbols: map[string]map[symbolsearch.Kind]symbolsearch.Columns{
			coreR1.String(): {
				symbolsearch.KindNamespace: {IDs: []int64{1}, Names: []string{"ns"}},
				symbolsearch.KindClass:     {IDs: []int64{2}, Names: []string{"Widget"}, Parents: []int64{1}},
				symbolsearch.KindMethod:    {IDs: []int64{3, 4}, Names: []string{"paint", "resize"}, Parents: []int64{2, 2}},
				symbolsearch.KindFunction:  {IDs: []int64{5}, Names: []string{"paintAll"}, Parents: []int64{1}},
			},
		},
	}
}

func (s *memSource) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return s.fail(s.calls)
	}
	return nil
}

func (s *memSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *memSource) LoadFiles(ctx context.Context, project *symbolsearch.ProjectInfo) ([]string, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	return s.files[project.String()], nil
}

func (s *memSource) LoadTier(ctx context.Context, project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) (*symbolsearch.TierData, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	data := &symbolsearch.TierData{Project: cloneProject(project)}
	for _, k := range kinds {
		if cols, ok := s.symbols[project.String()][k]; ok {
			data.Batches = append(data.Batches, symbolsearch.KindBatch{Kind: k, Columns: cols})
		}
	}
	return data, nil
}

// blockingSource never answers before its context ends.
type blockingSource struct{}

func (blockingSource) LoadFiles(ctx context.Context, _ *symbolsearch.ProjectInfo) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingSource) LoadTier(ctx context.Context, _ *symbolsearch.ProjectInfo, _ []symbolsearch.Kind) (*symbolsearch.TierData, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memKV) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

type hitCounter struct {
	mu           sync.Mutex
	hits, misses int
}

func (h *hitCounter) ObserveCache(hit bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hit {
		h.hits++
	} else {
		h.misses++
	}
}

type fetchRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *fetchRecorder) ObserveFetch(err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *fetchRecorder) recorded() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
