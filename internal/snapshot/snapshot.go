// Package snapshot connects the search engines to stored code-navigation
// snapshots: a PostgreSQL store, a Redis tier cache, an asynchronous fetcher
// that posts results back onto the engines' run loop, and the Kafka events
// announcing rebuilt snapshots.
package snapshot

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
)

// Source loads snapshot contents. A nil project selects the default
// snapshot.
type Source interface {
	LoadFiles(ctx context.Context, project *symbolsearch.ProjectInfo) ([]string, error)
	LoadTier(ctx context.Context, project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) (*symbolsearch.TierData, error)
}

// Snapshot is the importable form of one project revision.
type Snapshot struct {
	Project  string      `json:"project"`
	Revision string      `json:"revision"`
	Default  bool        `json:"default"`
	Files    []string    `json:"files"`
	Symbols  []WireBatch `json:"symbols"`
}

// Info returns the identity of s.
func (s *Snapshot) Info() *symbolsearch.ProjectInfo {
	return &symbolsearch.ProjectInfo{Name: s.Project, Revision: s.Revision}
}

// WireBatch is the JSON form of a symbolsearch.KindBatch.
type WireBatch struct {
	Kind    string   `json:"kind"`
	IDs     []int64  `json:"ids"`
	Names   []string `json:"names"`
	Parents []int64  `json:"parents,omitempty"`
}

// Batch converts w, rejecting unknown kinds.
func (w WireBatch) Batch() (symbolsearch.KindBatch, error) {
	kind, err := symbolsearch.ParseKind(w.Kind)
	if err != nil {
		return symbolsearch.KindBatch{}, err
	}
	if len(w.Names) > len(w.IDs) || len(w.Parents) > len(w.IDs) {
		return symbolsearch.KindBatch{}, fmt.Errorf("batch %s: %d ids but %d names and %d parents",
			w.Kind, len(w.IDs), len(w.Names), len(w.Parents))
	}
	return symbolsearch.KindBatch{
		Kind: kind,
		Columns: symbolsearch.Columns{
			IDs:     w.IDs,
			Names:   w.Names,
			Parents: w.Parents,
		},
	}, nil
}

func toWire(b symbolsearch.KindBatch) WireBatch {
	return WireBatch{
		Kind:    string(b.Kind),
		IDs:     b.Columns.IDs,
		Names:   b.Columns.Names,
		Parents: b.Columns.Parents,
	}
}

// wireTier is the JSON form of a tier. The project is implied by the
// request.
type wireTier struct {
	Batches []WireBatch `json:"batches"`
}

func toWireTier(data *symbolsearch.TierData) wireTier {
	w := wireTier{Batches: make([]WireBatch, len(data.Batches))}
	for i, b := range data.Batches {
		w.Batches[i] = toWire(b)
	}
	return w
}

func fromWire(project *symbolsearch.ProjectInfo, w wireTier) (*symbolsearch.TierData, error) {
	data := &symbolsearch.TierData{
		Project: cloneProject(project),
		Batches: make([]symbolsearch.KindBatch, 0, len(w.Batches)),
	}
	for _, wb := range w.Batches {
		b, err := wb.Batch()
		if err != nil {
			return nil, err
		}
		data.Batches = append(data.Batches, b)
	}
	return data, nil
}

func projectKey(project *symbolsearch.ProjectInfo) string {
	return project.String()
}

func cloneProject(project *symbolsearch.ProjectInfo) *symbolsearch.ProjectInfo {
	if project == nil {
		return nil
	}
	p := *project
	return &p
}
