// internal/loop/loop_test.go
package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)
	return l, cancel
}

func TestDo_RunsOnLoop(t *testing.T) {
	l, _ := startLoop(t)

	got := 0
	require.NoError(t, l.Do(context.Background(), func(context.Context) { got = 42 }))
	assert.Equal(t, 42, got)
}

func TestDo_SerialisesJobs(t *testing.T) {
	l, _ := startLoop(t)

	counter := 0
	const n = 50
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- l.Do(context.Background(), func(context.Context) { counter++ })
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	require.NoError(t, l.Do(context.Background(), func(context.Context) {}))
	assert.Equal(t, n, counter)
}

func TestServePending_RunsQueuedJobsInsideLongJob(t *testing.T) {
	l, _ := startLoop(t)

	started := make(chan struct{})
	inner := make(chan struct{})
	served := 0

	long := make(chan error, 1)
	go func() {
		long <- l.Do(context.Background(), func(context.Context) {
			close(started)
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				served += l.ServePending()
				select {
				case <-inner:
					return
				default:
				}
				time.Sleep(time.Millisecond)
			}
		})
	}()

	<-started
	require.NoError(t, l.Post(context.Background(), func(context.Context) { close(inner) }))

	require.NoError(t, <-long)
	assert.Equal(t, 1, served)
}

func TestPost_AfterStop(t *testing.T) {
	l, cancel := startLoop(t)
	cancel()

	require.Eventually(t, func() bool {
		return l.Post(context.Background(), func(context.Context) {}) == ErrStopped
	}, time.Second, time.Millisecond)
}

func TestPost_ContextBoundsEnqueue(t *testing.T) {
	l := New(1) // not running
	require.NoError(t, l.Post(context.Background(), func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Post(ctx, func(context.Context) {}), context.DeadlineExceeded)
}

func TestServePending_EmptyQueue(t *testing.T) {
	l := New(0)
	assert.Equal(t, 0, l.ServePending())
}
