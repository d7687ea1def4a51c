package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerPool_RunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit(func(ctx context.Context) error {
			defer wg.Done()
			ran.Add(1)
			return nil
		})
	}
	wg.Wait()
	pool.Shutdown()

	assert.Equal(t, int64(10), ran.Load())
}

func TestWorkerPool_SubmitAfterShutdownIsDropped(t *testing.T) {
	pool := NewWorkerPool(1, zap.NewNop())
	pool.Shutdown()

	// must drop silently, never panic on the closed queue
	assert.NotPanics(t, func() {
		pool.Submit(func(ctx context.Context) error { return nil })
	})
}

func TestWorkerPool_ConcurrentSubmitDuringShutdown(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func(ctx context.Context) error { return nil })
		}()
	}
	pool.Shutdown()
	wg.Wait()

	// second shutdown is a no-op
	assert.NotPanics(t, pool.Shutdown)
}
