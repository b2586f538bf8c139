package validate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/scaffold/pkg/logger"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 64
)

// Job is a unit of evaluation work for the pool.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Run performs the work. It must honour ctx.
	Run func(ctx context.Context)
}

// PoolConfig is the configuration options for the worker pool.
type PoolConfig struct {
	// NumWorkers is the number of workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel.
	QueueSize uint

	// Logger is the provided logger
	Logger *slog.Logger
}

// Pool evaluates rules concurrently on a fixed set of workers.
type Pool struct {
	queue  chan poolJob
	wg     sync.WaitGroup
	logger *slog.Logger
}

type poolJob struct {
	ctx  context.Context
	job  Job
	done func()
}

// NewPool creates a pool and starts its worker goroutines.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		queue:  make(chan poolJob, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// RunAll submits jobs and blocks until every submitted job has finished. It
// stops submitting once ctx is done and returns ctx.Err() in that case.
func (p *Pool) RunAll(ctx context.Context, jobs []Job) error {
	var wave sync.WaitGroup

	for _, job := range jobs {
		wave.Add(1)
		select {
		case p.queue <- poolJob{ctx: ctx, job: job, done: wave.Done}:
			p.logger.Debug("job queued", "job", job.Name)
		case <-ctx.Done():
			wave.Done()
			wave.Wait()
			return ctx.Err()
		}
	}

	wave.Wait()
	return ctx.Err()
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for pj := range p.queue {
		if pj.ctx.Err() == nil {
			pj.job.Run(pj.ctx)
		}
		pj.done()
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}
