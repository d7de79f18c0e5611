package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Task is the outcome of processing one input. Done is false when the input
// was never handed to a worker (cancellation or an earlier failure).
type Task[T any, R any] struct {
	Index  int
	Input  T
	Result R
	Err    error
	Done   bool
}

// ProcessFunc is the function signature for processing a single task.
type ProcessFunc[T any, R any] func(ctx context.Context, index int, input T) (R, error)

// Pool is a generic worker pool with configurable concurrency.
// With one worker, inputs are processed strictly in order.
type Pool[T any, R any] struct {
	workers     int
	stopOnError bool
	process     ProcessFunc[T, R]
}

// NewPool creates a new worker pool.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{
		workers: workers,
		process: fn,
	}
}

// StopOnError makes Execute stop dispatching new inputs after the first
// failure. Inputs already being processed are allowed to finish.
func (p *Pool[T, R]) StopOnError(enabled bool) *Pool[T, R] {
	p.stopOnError = enabled
	return p
}

// Execute runs all inputs through the worker pool and returns one Task per
// input, indexed like inputs. It returns when every dispatched input is done.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	results := make([]Task[T, R], len(inputs))
	for i := range inputs {
		results[i] = Task[T, R]{Index: i, Input: inputs[i]}
	}

	inputCh := make(chan int)
	var stopped atomic.Bool
	var wg sync.WaitGroup

	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range inputCh {
				if stopped.Load() || ctx.Err() != nil {
					continue
				}
				result, err := p.process(ctx, idx, inputs[idx])
				results[idx].Result = result
				results[idx].Err = err
				results[idx].Done = true
				if err != nil {
					log.Debug().Err(err).Int("worker", workerID).Int("index", idx).Msg("Task failed")
					if p.stopOnError {
						stopped.Store(true)
					}
				}
			}
		}(w)
	}

dispatch:
	for i := range inputs {
		if stopped.Load() {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case inputCh <- i:
		}
	}
	close(inputCh)

	wg.Wait()
	return results
}

// Batch splits items into consecutive chunks of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
