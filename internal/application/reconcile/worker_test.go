package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_RunsTasksOneAtATime(t *testing.T) {
	var active, maxActive, done int32
	w := NewWorker(4, nil)
	defer w.Close()

	task := func(context.Context) error {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&done, 1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Submit(context.Background(), task))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
}

func TestWorker_ReturnsTaskError(t *testing.T) {
	w := NewWorker(1, nil)
	defer w.Close()

	boom := errors.New("boom")
	err := w.Submit(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWorker_SubmitAfterClose(t *testing.T) {
	w := NewWorker(1, nil)
	w.Close()
	w.Close()

	err := w.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerClosed)
}

func TestWorker_RecoversPanic(t *testing.T) {
	w := NewWorker(1, nil)
	defer w.Close()

	err := w.Submit(context.Background(), func(context.Context) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// the goroutine survives
	assert.NoError(t, w.Submit(context.Background(), func(context.Context) error { return nil }))
}

func TestWorker_ContextBoundsOnlyTheEnqueue(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	blocking := func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return ctx.Err()
	}
	w := NewWorker(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, w.Submit(ctx, blocking), "an accepted task is not cancelled")
	}()
	<-started

	// The second task fills the queue while the first is still running
	go func() {
		defer wg.Done()
		_ = w.Submit(context.Background(), blocking)
	}()
	require.Eventually(t, func() bool { return len(w.queue) == 1 }, time.Second, time.Millisecond)

	cancel()
	err := w.Submit(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-started
	wg.Wait()
	w.Close()
}
