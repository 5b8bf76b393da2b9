package worker

import (
	"context"
	"sync"
)

// Job is a unit of work producing an R
type Job[R any] interface {
	Execute(ctx context.Context) R
}

// JobFunc adapts a function to Job
type JobFunc[R any] func(ctx context.Context) R

func (f JobFunc[R]) Execute(ctx context.Context) R { return f(ctx) }

// Pool runs submitted jobs on a fixed number of goroutines
type Pool[R any] struct {
	workers   int
	jobs      chan Job[R]
	results   chan R
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool whose jobs are cancelled together with parent
func NewPool[R any](parent context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool[R]{
		workers: workers,
		jobs:    make(chan Job[R], workers*2),
		results: make(chan R, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *Pool[R]) Start() {
	for range p.workers {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			out := job.Execute(p.ctx)
			select {
			case p.results <- out:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job; it returns false once the pool is cancelled
func (p *Pool[R]) Submit(job Job[R]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Results must be drained while submitting; it is closed after Close once
// every worker has exited
func (p *Pool[R]) Results() <-chan R {
	return p.results
}

// Close stops accepting jobs
func (p *Pool[R]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		p.closeResults()
		p.cancel()
	}()
}

// Shutdown cancels in-flight jobs and waits for workers to exit
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[R]) closeResults() {
	p.closeOnce.Do(func() { close(p.results) })
}

type indexed[R any] struct {
	i   int
	out R
}

// Map applies fn to every item on a pool of workers. Outputs keep the input
// order; ok[i] is false for items skipped because ctx was cancelled.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, item T) R) (out []R, ok []bool) {
	out = make([]R, len(items))
	ok = make([]bool, len(items))
	if len(items) == 0 {
		return out, ok
	}

	pool := NewPool[indexed[R]](ctx, workers)
	pool.Start()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for res := range pool.Results() {
			out[res.i] = res.out
			ok[res.i] = true
		}
	}()

	for i, item := range items {
		job := JobFunc[indexed[R]](func(ctx context.Context) indexed[R] {
			return indexed[R]{i: i, out: fn(ctx, item)}
		})
		if !pool.Submit(job) {
			break
		}
	}
	pool.Close()
	<-drained

	return out, ok
}
