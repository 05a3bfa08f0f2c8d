package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "finished", StateFinished.String())
}

func TestNopObserverSatisfiesObserver(t *testing.T) {
	var o Observer = NopObserver{}
	o.ObserveComplete("files")
}
