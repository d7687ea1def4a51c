package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// WorkerPool runs side jobs (cache warms, terminal-transition notifications)
// off the request path. Request handlers never block on it.
type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	logger    *zap.Logger

	// mu makes the closed check and the queue send atomic with respect to
	// Shutdown's close, so a late Submit can never hit a closed channel.
	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(size int, logger *zap.Logger) *WorkerPool {
	wp := &WorkerPool{
		taskQueue: make(chan Task, 1000),
		logger:    logger,
	}

	for i := 0; i < size; i++ {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		ctx := context.Background()
		if err := task(ctx); err != nil {
			wp.logger.Warn("worker task failed", zap.Error(err))
		}
	}
}

func (wp *WorkerPool) Submit(t Task) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		wp.logger.Warn("task submitted during shutdown, dropping")
		return
	}
	select {
	case wp.taskQueue <- t:
	default:
		wp.logger.Warn("task queue full, dropping task")
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
}
