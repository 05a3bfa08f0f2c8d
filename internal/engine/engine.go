// Package engine holds the lifecycle state and the instrumentation hook
// shared by the incremental search engines.
package engine

import "time"

// State is the lifecycle phase of a search engine.
type State int

const (
	// StateIdle means there is no query.
	StateIdle State = iota
	// StateRunning means a scan is in progress, or is parked waiting for
	// data that has not arrived yet.
	StateRunning
	// StateFinished means the scan covered the whole dataset.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// Observer receives engine instrumentation. Calls happen on the engine's
// scheduler goroutine and must not block.
type Observer interface {
	ObserveStep(engine string, scanned, matched int, changed bool, elapsed time.Duration)
	ObserveRerank(engine string, mode string)
	ObserveComplete(engine string)
	ObserveTierWait(engine string, kind string)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) ObserveStep(string, int, int, bool, time.Duration) {}
func (NopObserver) ObserveRerank(string, string)                      {}
func (NopObserver) ObserveComplete(string)                            {}
func (NopObserver) ObserveTierWait(string, string)                    {}
