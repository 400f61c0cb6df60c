package plagiarism

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/metrics"
)

// Job is one unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) error
}

// WorkerPool runs comparison jobs on a fixed set of goroutines shared by all
// batches of the process
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewWorkerPool sizes the pool from the CPU count, leaving a quarter of the
// cores to the rest of the process
func NewWorkerPool(ctx context.Context) *WorkerPool {
	totalCPU := runtime.NumCPU()
	reserved := max(1, totalCPU/4)
	size := max(1, totalCPU-reserved)
	log.Info().
		Int("totalCPU", totalCPU).
		Int("reserved", reserved).
		Int("workers", size).
		Msg("Comparison worker pool sized from CPU count")
	return NewWorkerPoolWithSize(ctx, size)
}

// NewWorkerPoolWithSize falls back to NewWorkerPool when size <= 0
func NewWorkerPoolWithSize(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		return NewWorkerPool(ctx)
	}
	poolCtx, cancel := context.WithCancel(ctx)

	p := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2),
		ctx:      poolCtx,
		cancel:   cancel,
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobQueue:
			metrics.BusyWorkers.Inc()
			if err := p.execute(job); err != nil {
				log.Error().Err(err).Int("worker", id).Msg("Comparison job failed")
			}
			metrics.BusyWorkers.Dec()
		}
	}
}

// execute keeps the worker alive when a job panics
func (p *WorkerPool) execute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(p.ctx)
}

// Submit blocks until a worker slot frees up in the queue. It fails once the
// pool or its parent context is done.
func (p *WorkerPool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close stops the workers and waits for running jobs. Queued jobs are dropped.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

func (p *WorkerPool) Size() int {
	return p.workers
}
