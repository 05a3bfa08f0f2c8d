package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/rpc"
)

const (
	MethodLoadFiles = "Snapshot.LoadFiles"
	MethodLoadTier  = "Snapshot.LoadTier"
	MethodPing      = "Snapshot.Ping"
)

type loadParams struct {
	Project *symbolsearch.ProjectInfo `json:"project,omitempty"`
	Kinds   []string                  `json:"kinds,omitempty"`
}

// RegisterService exposes source on s.
func RegisterService(s *rpc.Server, source Source) {
	s.Register(MethodLoadFiles, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p loadParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		files, err := source.LoadFiles(ctx, p.Project)
		if err != nil {
			return nil, err
		}
		if files == nil {
			files = []string{}
		}
		return files, nil
	})
	s.Register(MethodLoadTier, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p loadParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		kinds := make([]symbolsearch.Kind, len(p.Kinds))
		for i, name := range p.Kinds {
			k, err := symbolsearch.ParseKind(name)
			if err != nil {
				return nil, err
			}
			kinds[i] = k
		}
		data, err := source.LoadTier(ctx, p.Project, kinds)
		if err != nil {
			return nil, err
		}
		return toWireTier(data), nil
	})
	s.Register(MethodPing, func(context.Context, json.RawMessage) (any, error) {
		return "pong", nil
	})
}

func decodeParams(raw json.RawMessage, p *loadParams) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	return nil
}

// Caller is the client side of an rpc connection.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// RemoteSource is a Source served by another process through
// RegisterService.
type RemoteSource struct {
	c Caller
}

func NewRemoteSource(c Caller) *RemoteSource {
	return &RemoteSource{c: c}
}

func (r *RemoteSource) LoadFiles(ctx context.Context, project *symbolsearch.ProjectInfo) ([]string, error) {
	var files []string
	if err := r.c.Call(ctx, MethodLoadFiles, loadParams{Project: project}, &files); err != nil {
		return nil, fmt.Errorf("loading files of %s: %w", project, err)
	}
	return files, nil
}

func (r *RemoteSource) LoadTier(ctx context.Context, project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) (*symbolsearch.TierData, error) {
	p := loadParams{Project: project, Kinds: make([]string, len(kinds))}
	for i, k := range kinds {
		p.Kinds[i] = string(k)
	}
	var w wireTier
	if err := r.c.Call(ctx, MethodLoadTier, p, &w); err != nil {
		return nil, fmt.Errorf("loading tier of %s: %w", project, err)
	}
	return fromWire(project, w)
}

// Ping checks that the remote service answers.
func (r *RemoteSource) Ping(ctx context.Context) error {
	var reply string
	return r.c.Call(ctx, MethodPing, nil, &reply)
}
