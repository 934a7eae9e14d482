package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// task is one metric collection unit. run returns an error when the metric
// could not be produced; the pool reports it as a data gap, never a fatal.
type task struct {
	metric string
	run    func(ctx context.Context) error
}

// workerPool runs collection tasks concurrently with a bounded worker count.
type workerPool struct {
	workers int
	tasks   chan task
	gaps    chan gap
	wg      sync.WaitGroup
}

type gap struct {
	metric string
	reason string
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	return &workerPool{
		workers: workers,
		tasks:   make(chan task, workers*2),
		gaps:    make(chan gap, workers*2),
	}
}

// Run executes all tasks and returns the gaps for tasks that failed. A worker
// panic becomes a gap too; one broken collector must not take down the pass.
func (p *workerPool) Run(ctx context.Context, tasks []task) []gap {
	p.gaps = make(chan gap, len(tasks))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	for _, t := range tasks {
		p.tasks <- t
	}
	close(p.tasks)
	p.wg.Wait()
	close(p.gaps)

	var gaps []gap
	for g := range p.gaps {
		gaps = append(gaps, g)
	}
	return gaps
}

func (p *workerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for t := range p.tasks {
		p.runTask(ctx, id, t)
	}
}

func (p *workerPool) runTask(ctx context.Context, id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("collector panic recovered",
				slog.Int("worker_id", id),
				slog.String("metric", t.metric),
				slog.String("panic", fmt.Sprint(r)),
			)
			p.gaps <- gap{metric: t.metric, reason: fmt.Sprintf("collector panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		p.gaps <- gap{metric: t.metric, reason: err.Error()}
		return
	}

	if err := t.run(ctx); err != nil {
		slog.Debug("collector failed",
			slog.String("metric", t.metric),
			slog.String("error", err.Error()),
		)
		p.gaps <- gap{metric: t.metric, reason: err.Error()}
	}
}
