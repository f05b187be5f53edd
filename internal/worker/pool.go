package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MaxWorkers caps the number of concurrent tasks regardless of the
// requested pool size, to keep the storage gateway from being flooded.
const MaxWorkers = 50

// Handler executes a single task and returns its result value
type Handler interface {
	Handle(ctx context.Context, task Task) (string, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, task Task) (string, error)

// Handle calls f(ctx, task)
func (f HandlerFunc) Handle(ctx context.Context, task Task) (string, error) {
	return f(ctx, task)
}

// Pool runs batches of tasks with bounded concurrency
type Pool struct {
	size    int
	handler Handler
	logger  *zap.Logger
}

// NewPool creates a new worker pool. The size is clamped to [1, MaxWorkers].
func NewPool(size int, handler Handler, logger *zap.Logger) *Pool {
	return &Pool{
		size:    ClampWorkers(size),
		handler: handler,
		logger:  logger,
	}
}

// ClampWorkers bounds a requested worker count to [1, MaxWorkers]
func ClampWorkers(n int) int {
	return max(1, min(n, MaxWorkers))
}

// Size returns the effective concurrency ceiling
func (p *Pool) Size() int {
	return p.size
}

// RunBatch executes every task and returns one outcome per task, where
// outcome i belongs to tasks[i]. Workers live only for the duration of the
// call. A failing task never stops the others.
func (p *Pool) RunBatch(ctx context.Context, tasks []Task) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	indexes := make(chan int, len(tasks))
	for i := range tasks {
		indexes <- i
	}
	close(indexes)

	workers := min(p.size, len(tasks))

	var wg sync.WaitGroup
	for id := range workers {
		wg.Add(1)
		go p.worker(ctx, id, tasks, indexes, outcomes, &wg)
	}
	wg.Wait()

	return outcomes
}

func (p *Pool) worker(ctx context.Context, id int, tasks []Task, indexes <-chan int, outcomes []Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	for i := range indexes {
		outcomes[i] = p.run(ctx, tasks[i])
	}

	logger.Debug("Worker finished - no more tasks")
}

// run executes one task, converting a panic into a failed outcome
func (p *Pool) run(ctx context.Context, task Task) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked",
				zap.String("kind", string(task.Kind)),
				zap.Any("panic", r),
			)
			outcome = Failure(fmt.Errorf("task %s panicked: %v", task.Kind, r))
		}
	}()

	value, err := p.handler.Handle(ctx, task)
	if err != nil {
		return Failure(err)
	}
	return Success(value)
}
