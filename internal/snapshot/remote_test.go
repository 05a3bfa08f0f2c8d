package snapshot

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRemote(t *testing.T, source Source) *RemoteSource {
	t.Helper()
	s := rpc.NewServer()
	RegisterService(s, source)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	c, err := rpc.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close()
		cancel()
		assert.NoError(t, <-done)
	})
	return NewRemoteSource(c)
}

func TestRemoteSourceRoundTrip(t *testing.T) {
	remote := startRemote(t, newMemSource())
	ctx := context.Background()

	require.NoError(t, remote.Ping(ctx))

	files, err := remote.LoadFiles(ctx, coreR1)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go", "src/widget/paint.go"}, files)

	data, err := remote.LoadTier(ctx, coreR1, []symbolsearch.Kind{symbolsearch.KindClass, symbolsearch.KindMethod})
	require.NoError(t, err)
	assert.True(t, symbolsearch.SameProject(coreR1, data.Project))
	require.Len(t, data.Batches, 2)
	assert.Equal(t, symbolsearch.KindMethod, data.Batches[1].Kind)
	assert.Equal(t, []string{"paint", "resize"}, data.Batches[1].Columns.Names)
	assert.Equal(t, []int64{2, 2}, data.Batches[1].Columns.Parents)
}

func TestRemoteSourceCarriesSentinels(t *testing.T) {
	src := newMemSource()
	src.fail = func(int) error {
		return fmt.Errorf("%w: core@r9", apperrors.ErrSnapshotNotFound)
	}
	remote := startRemote(t, src)

	_, err := remote.LoadTier(context.Background(), coreR1, []symbolsearch.Kind{symbolsearch.KindClass})
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
	assert.False(t, retryable(err))
}

func TestRemoteServiceRejectsUnknownKind(t *testing.T) {
	remote := startRemote(t, newMemSource())

	_, err := remote.LoadTier(context.Background(), coreR1, []symbolsearch.Kind{"macro"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownKind)
}
