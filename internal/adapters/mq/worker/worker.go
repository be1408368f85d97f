// Package worker runs queued background jobs on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Handler runs one job.
type Handler interface {
	Handle(ctx context.Context, job model.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job model.Job) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job model.Job) error { return f(ctx, job) }

// Queue is where workers read jobs from.
type Queue interface {
	Dequeue() <-chan model.Job
}

// Pool runs jobs until its context is cancelled or the queue is closed.
// It implements suture.Service.
type Pool struct {
	queue      Queue
	handler    Handler
	workers    int
	jobTimeout time.Duration
	log        logger.Logger
}

// NewPool creates a pool. Without WithWorkers it runs one worker per CPU.
func NewPool(queue Queue, handler Handler, opts ...Option) *Pool {
	p := &Pool{
		queue:      queue,
		handler:    handler,
		workers:    runtime.NumCPU(),
		jobTimeout: time.Minute,
		log:        logger.Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Serve starts the workers and blocks until they stop.
func (p *Pool) Serve(ctx context.Context) error {
	metrics.UpdateWorkerActiveCount(p.workers)
	defer metrics.UpdateWorkerActiveCount(0)
	p.log.Info(ctx, "worker pool started", logger.Int("workers", p.workers))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(ctx, "worker-"+strconv.Itoa(i))
		}()
	}
	wg.Wait()

	p.log.Info(ctx, "worker pool stopped")
	return ctx.Err()
}

func (p *Pool) run(ctx context.Context, name string) {
	log := p.log.Named(name)
	jobs := p.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := p.process(ctx, job); err != nil {
				log.Error(ctx, "job failed",
					logger.String("job_id", job.JobID), logger.String("kind", string(job.Kind)), logger.Error(err))
			}
		}
	}
}

func (p *Pool) process(ctx context.Context, job model.Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", string(job.Kind))
		}
		metrics.RecordWorkerProcessed(float64(time.Since(start).Milliseconds()))
	}()

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()
	return p.handler.Handle(jobCtx, job)
}
