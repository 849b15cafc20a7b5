package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
)

// Job represents a work item to be processed
type Job func(ctx context.Context) error

// Pool runs jobs on a fixed number of workers. A panicking job is recovered and
// reported as its error; the other jobs keep running.
type Pool struct {
	jobs       chan namedJob
	maxWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	errors     []error
	errorsMu   sync.Mutex
	logger     arbor.ILogger
}

type namedJob struct {
	name string
	run  Job
}

// NewPool creates a new worker pool bound to parent
func NewPool(parent context.Context, maxWorkers int, logger arbor.ILogger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		jobs:       make(chan namedJob, maxWorkers*2),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		errors:     make([]error, 0),
		logger:     logger,
	}
}

// Start begins the worker pool
func (p *Pool) Start() {
	p.logger.Debug().
		Int("max_workers", p.maxWorkers).
		Msg("Starting worker pool")

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit adds a job to the pool. It blocks while all workers are busy and the
// queue is full.
func (p *Pool) Submit(name string, job Job) error {
	select {
	case p.jobs <- namedJob{name: name, run: job}:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Wait closes the queue and waits for all submitted jobs to complete
func (p *Pool) Wait() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}

// Shutdown cancels running jobs and waits for the workers to exit
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
	p.logger.Debug().Msg("Worker pool shutdown complete")
}

// Errors returns all collected errors
func (p *Pool) Errors() []error {
	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	return append([]error(nil), p.errors...)
}

// worker processes jobs from the queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.ctx.Err() != nil {
			p.record(fmt.Errorf("%s not started: %w", job.name, p.ctx.Err()))
			continue
		}

		err := common.SafeCall(p.logger, job.name, func() error {
			return job.run(p.ctx)
		})
		if err != nil {
			p.record(err)
			p.logger.Error().
				Err(err).
				Int("worker_id", id).
				Str("job", job.name).
				Msg("Job failed")
		}
	}
}

func (p *Pool) record(err error) {
	p.errorsMu.Lock()
	p.errors = append(p.errors, err)
	p.errorsMu.Unlock()
}
