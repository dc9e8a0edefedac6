package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/queue"
)

func newTestRunner(t *testing.T) *MemoryRunner {
	t.Helper()
	return NewMemoryRunner(queue.NewMemoryQueue(logger.Discard()), logger.Discard())
}

func TestNew(t *testing.T) {
	job := New(KindCompare, 42)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, KindCompare, job.Kind)
	assert.Equal(t, int64(42), job.TargetID)

	other := New(KindCompare, 42)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestMemoryRunner_SubmitAndExecute(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	var ran atomic.Int64
	runner.Register(KindCompare, func(ctx context.Context, job Job) error {
		ran.Store(job.TargetID)
		return nil
	})
	require.NoError(t, runner.Start(ctx))

	job := New(KindCompare, 7)
	require.NoError(t, runner.Submit(ctx, job))

	require.Eventually(t, func() bool {
		status, err := runner.Status(ctx, job.ID)
		return err == nil && status == StatusDone
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(7), ran.Load())
}

func TestMemoryRunner_HandlerFailure(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	runner.Register(KindFileDiff, func(ctx context.Context, job Job) error {
		return errors.New("boom")
	})
	require.NoError(t, runner.Start(ctx))

	job := New(KindFileDiff, 1)
	require.NoError(t, runner.Submit(ctx, job))

	require.Eventually(t, func() bool {
		status, err := runner.Status(ctx, job.ID)
		return err == nil && status == StatusError
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryRunner_SubmitWithoutHandler(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)

	err := runner.Submit(ctx, New(KindCompare, 1))
	require.Error(t, err)

	// Nothing dispatched, so the job has no status either
	status, err := runner.Status(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)
}

func TestMemoryRunner_SubmitFullQueue(t *testing.T) {
	ctx := context.Background()
	runner := newTestRunner(t)
	runner.Register(KindCompare, func(ctx context.Context, job Job) error {
		return nil
	})
	// The runner is never started, so submissions pile up until the
	// queue is full and the next Submit must fail rather than silently
	// drop the job.
	for i := 0; i < queue.TopicBuffer; i++ {
		require.NoError(t, runner.Submit(ctx, New(KindCompare, int64(i))))
	}

	job := New(KindCompare, 9999)
	err := runner.Submit(ctx, job)
	require.ErrorIs(t, err, queue.ErrFull)

	// The dropped job must not be left pending
	status, serr := runner.Status(ctx, job.ID)
	require.NoError(t, serr)
	assert.Equal(t, StatusUnknown, status)
}

func TestMemoryRunner_UnknownJob(t *testing.T) {
	runner := newTestRunner(t)

	status, err := runner.Status(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status)
}
