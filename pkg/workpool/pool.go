package workpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Task is a unit of work run by a Pool.
// Abort is called instead of Run when the task will never run, so the task
// can release whatever it registered at construction.
type Task interface {
	Run(ctx context.Context)
	Abort()
}

/*
Pool Responsibilities
- Run a fixed number of workers over one unbounded FIFO queue
- Never let a failing task kill a worker
- On shutdown, hand every un-started task back through Abort

Submissions never block: pools that submit into each other cannot deadlock
on full queues.
*/
type Pool struct {
	name   string
	size   int
	logger *slog.Logger
	queue  *BlockingQueue[Task]
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

func New(name string, size int, logger *slog.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("workpool %s: size must be positive, got %d", name, size)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		name:   name,
		size:   size,
		logger: logger.With("pool", name),
		queue:  NewBlockingQueue[Task](),
	}, nil
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Size() int {
	return p.size
}

// Start launches the workers. Every task runs with ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.logger.Warn("pool already started")
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

// Submit enqueues task. On a shut-down pool the task is aborted instead.
func (p *Pool) Submit(task Task) {
	if !p.queue.Put(task) {
		p.logger.Debug("submit after shutdown, aborting task")
		task.Abort()
	}
}

// Shutdown stops accepting tasks, aborts queued tasks and lets workers exit
// once their current task returns.
func (p *Pool) Shutdown() {
	drained := p.queue.Close()
	for _, task := range drained {
		task.Abort()
	}
	if len(drained) > 0 {
		p.logger.Info("pool shut down", "aborted", len(drained))
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	return p.queue.Size()
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		task, ok := p.queue.Take()
		if !ok {
			return
		}
		p.run(ctx, id, task)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"worker", id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task.Run(ctx)
}
