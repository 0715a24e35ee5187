package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is one unit of generation work. The result goes to the Done
// channel, which is buffered so an abandoned task never blocks its
// worker.
type Task struct {
	Run  func(ctx context.Context) (string, error)
	Done chan Result
}

// Result carries the outcome of one task.
type Result struct {
	Value string
	Err   error
}

// Pool is a fixed-size worker pool for generation calls. It bounds how
// many model invocations run concurrently; callers that time out simply
// stop waiting on their Done channel and the worker moves on.
type Pool struct {
	tasks      chan Task
	logger     arbor.ILogger
	numWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewPool creates a worker pool. A numWorkers of zero or less selects
// max(2, GOMAXPROCS).
func NewPool(numWorkers int, logger arbor.ILogger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
		if numWorkers < 2 {
			numWorkers = 2
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		tasks:      make(chan Task, numWorkers*2),
		logger:     logger,
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	p.logger.Info().
		Int("num_workers", p.numWorkers).
		Msg("Starting worker pool")

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the worker pool gracefully
func (p *Pool) Stop() {
	p.logger.Info().Msg("Stopping worker pool...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

// Submit queues a task and returns its result channel. The returned
// channel receives exactly one Result unless ctx ends before a worker
// picks the task up, in which case the context error is delivered
// instead.
func (p *Pool) Submit(ctx context.Context, run func(ctx context.Context) (string, error)) <-chan Result {
	task := Task{
		Run:  run,
		Done: make(chan Result, 1),
	}

	select {
	case p.tasks <- task:
	case <-ctx.Done():
		task.Done <- Result{Err: ctx.Err()}
	case <-p.ctx.Done():
		task.Done <- Result{Err: p.ctx.Err()}
	}

	return task.Done
}

// worker is the main worker loop
func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopping")
			return
		case task := <-p.tasks:
			value, err := task.Run(p.ctx)
			task.Done <- Result{Value: value, Err: err}
		}
	}
}
