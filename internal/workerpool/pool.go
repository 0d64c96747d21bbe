// Package workerpool runs opaque work items on a fixed set of worker goroutines
// fed by a bounded queue. Items may ask to be pinned to a CPU.
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxkimambo/taskman/internal/logger"
	"github.com/sourcegraph/conc/panics"
)

// NoCPU submits a work item without CPU pinning.
const NoCPU = -1

var (
	ErrNotStarted  = errors.New("worker pool not started")
	ErrClosed      = errors.New("worker pool is shut down")
	ErrQueueFull   = errors.New("worker pool queue is full")
	ErrNilWorkItem = errors.New("nil work item")
)

// Config sizes a Pool. Zero values select defaults.
type Config struct {
	Workers   int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.QueueSize <= 0 {
		c.QueueSize = c.Workers * 64
	}
	return c
}

type job struct {
	id       uint64
	fn       func()
	cpu      int
	enqueued time.Time
}

// Pool is a fixed-size worker pool.
type Pool struct {
	cfg     Config
	jobs    chan *job
	wg      sync.WaitGroup
	metrics *Metrics
	nextID  atomic.Uint64

	mu      sync.RWMutex
	started bool
	closed  bool

	// outstanding counts queued plus running items; JoinAll waits for zero.
	idleMu      sync.Mutex
	idle        *sync.Cond
	outstanding int
}

// New creates a pool. Call Start before submitting.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:     cfg,
		jobs:    make(chan *job, cfg.QueueSize),
		metrics: &Metrics{},
	}
	p.idle = sync.NewCond(&p.idleMu)
	return p
}

// Start launches the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	logger.Op.WithFields(map[string]interface{}{
		"workers":   p.cfg.Workers,
		"queueSize": p.cfg.QueueSize,
	}).Info("Starting worker pool")

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	p.started = true
	return nil
}

// Submit enqueues fn without blocking. cpu >= 0 asks for the item to run pinned to
// that CPU; pinning is best effort and silently dropped where unsupported.
func (p *Pool) Submit(fn func(), cpu int) error {
	if fn == nil {
		return ErrNilWorkItem
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.rejected.Add(1)
		return ErrClosed
	}
	if !p.started {
		p.metrics.rejected.Add(1)
		return ErrNotStarted
	}

	j := &job{
		id:       p.nextID.Add(1),
		fn:       fn,
		cpu:      cpu,
		enqueued: time.Now(),
	}

	p.track(1)
	select {
	case p.jobs <- j:
		p.metrics.submitted.Add(1)
		return nil
	default:
		p.track(-1)
		p.metrics.rejected.Add(1)
		logger.Op.WithFields(map[string]interface{}{
			"jobID":     j.id,
			"queueSize": p.cfg.QueueSize,
		}).Debug("Work item rejected, queue full")
		return ErrQueueFull
	}
}

// JoinAll blocks until no work item is queued or running. Items submitted by other
// goroutines while waiting extend the wait.
func (p *Pool) JoinAll() {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.outstanding > 0 {
		p.idle.Wait()
	}
}

// Shutdown stops accepting work, lets queued items drain and waits for the workers.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	wasStarted := p.started
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	if !wasStarted {
		return nil
	}

	logger.Op.WithFields(map[string]interface{}{
		"timeout": timeout.String(),
	}).Info("Shutting down worker pool")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Op.Info("All workers stopped gracefully")
		return nil
	case <-time.After(timeout):
		logger.Op.Warn("Worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown timed out after %v", timeout)
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return p.metrics.snapshot(len(p.jobs))
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.execute(id, j)
	}
	logger.Op.WithFields(map[string]interface{}{
		"workerID": id,
	}).Debug("Worker stopped")
}

func (p *Pool) execute(workerID int, j *job) {
	p.metrics.active.Add(1)
	defer func() {
		p.metrics.active.Add(-1)
		p.metrics.completed.Add(1)
		p.track(-1)
	}()

	if j.cpu >= 0 {
		restore, err := pinToCPU(j.cpu)
		if err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"workerID": workerID,
				"cpu":      j.cpu,
				"error":    err.Error(),
			}).Debug("CPU pinning unavailable, running unpinned")
		} else {
			defer restore()
		}
	}

	if rec := panics.Try(j.fn); rec != nil {
		p.metrics.panicked.Add(1)
		logger.Op.WithFields(map[string]interface{}{
			"workerID": workerID,
			"jobID":    j.id,
			"panic":    fmt.Sprint(rec.Value),
		}).Error("Work item panicked")
	}
}

func (p *Pool) track(delta int) {
	p.idleMu.Lock()
	p.outstanding += delta
	if p.outstanding == 0 {
		p.idle.Broadcast()
	}
	p.idleMu.Unlock()
}
