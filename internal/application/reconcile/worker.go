package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultQueueSize is used when NewWorker gets a non-positive size
const DefaultQueueSize = 64

// Task is one unit of work run on the worker goroutine
type Task func(ctx context.Context) error

type job struct {
	ctx    context.Context
	task   Task
	result chan error
}

// Worker runs tasks one at a time on a single goroutine, so that everything
// reading and rewriting a parent bill happens without interleaving.
// Submitters block until their task is done.
type Worker struct {
	queue  chan *job
	logger *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewWorker starts the worker goroutine
func NewWorker(size int, logger *slog.Logger) *Worker {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		queue:  make(chan *job, size),
		logger: logger.With("system", "worker"),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Worker) run() {
	defer w.wg.Done()
	for j := range w.queue {
		j.result <- w.process(j)
	}
}

func (w *Worker) process(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reconcile task panicked", "panic", r)
			err = fmt.Errorf("reconcile task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}

// Submit enqueues task and waits for it to finish. ctx bounds only the wait
// for a queue slot; once accepted the task runs to completion with a context
// that is never cancelled.
func (w *Worker) Submit(ctx context.Context, task Task) error {
	j := &job{
		ctx:    context.WithoutCancel(ctx),
		task:   task,
		result: make(chan error, 1),
	}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrWorkerClosed
	}
	select {
	case w.queue <- j:
		w.mu.RUnlock()
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}

	return <-j.result
}

// Close stops accepting tasks, finishes the queued ones and waits for the
// goroutine to exit. It is safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}
