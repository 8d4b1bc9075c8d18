package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunOnce(t *testing.T) {
	t.Parallel()

	var calls int
	RunOnce(context.Background(), func(context.Context) { calls++ })
	assert.Equal(t, 1, calls)
}

func TestNewRejectsBadSpec(t *testing.T) {
	t.Parallel()

	_, err := New("every hour", zap.NewNop())
	assert.ErrorContains(t, err, "parse cron spec")
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := New("0 * * * *", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, func(context.Context) {}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestRunOnStartFiresAndWaitsForJob(t *testing.T) {
	t.Parallel()

	s, err := New("0 0 1 1 *", zap.NewNop(), WithRunOnStart(true))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var finished atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(jobCtx context.Context) {
			close(started)
			<-jobCtx.Done()
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
		})
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	cancel()

	select {
	case <-done:
		assert.True(t, finished.Load(), "Run returned before the job finished")
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
