package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/clientengine/errors"
	"github.com/kbukum/clientengine/logger"
)

// Common pool errors.
var (
	ErrPoolFull   = errors.New(errors.ErrCodeConflict, "executor: queue is full")
	ErrPoolClosed = errors.Closed("executor")
)

// Config configures a Pool.
type Config struct {
	// Name identifies this pool for logging.
	Name string
	// MaxConcurrent is the number of worker goroutines.
	MaxConcurrent int
	// QueueSize is the number of tasks buffered while all workers are busy.
	QueueSize int
	// MaxWait bounds how long Execute waits for queue space.
	// 0 waits indefinitely, a negative value fails immediately.
	MaxWait time.Duration
	// OnReject is called when a task is rejected.
	OnReject func(name string)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		MaxConcurrent: 10,
		QueueSize:     100,
	}
}

// Pool is a fixed set of workers draining a FIFO task queue.
type Pool struct {
	config Config
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	tasks  chan func()
	wg     sync.WaitGroup

	// senders counts Execute calls between the closed check and the send, so
	// Shutdown closes tasks only once none of them can still write to it.
	senders sync.WaitGroup

	active atomic.Int64
}

// NewPool starts the workers of a new pool.
func NewPool(config Config) *Pool {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.Name == "" {
		config.Name = "executor"
	}

	p := &Pool{
		config: config,
		log:    logger.Get(config.Name),
		done:   make(chan struct{}),
		tasks:  make(chan func(), config.QueueSize),
	}
	p.wg.Add(config.MaxConcurrent)
	for i := 0; i < config.MaxConcurrent; i++ {
		go p.worker()
	}
	return p
}

// Execute queues task for execution by a worker. A call waiting for queue
// space returns ErrPoolClosed once Shutdown starts.
func (p *Pool) Execute(task func()) error {
	if task == nil {
		return errors.MissingField("task")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.senders.Add(1)
	p.mu.RUnlock()
	defer p.senders.Done()

	if err := p.enqueue(task); err != nil {
		if p.config.OnReject != nil {
			p.config.OnReject(p.config.Name)
		}
		return err
	}
	return nil
}

func (p *Pool) enqueue(task func()) error {
	select {
	case p.tasks <- task:
		return nil
	default:
	}

	switch {
	case p.config.MaxWait < 0:
		return ErrPoolFull
	case p.config.MaxWait == 0:
		select {
		case p.tasks <- task:
			return nil
		case <-p.done:
			return ErrPoolClosed
		}
	}

	timer := time.NewTimer(p.config.MaxWait)
	defer timer.Stop()

	select {
	case p.tasks <- task:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-timer.C:
		return ErrPoolFull
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Task panicked", logger.Fields("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (p *Pool) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx. Tasks already queued still run; callers
// blocked in Execute are released with ErrPoolClosed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	first := !p.closed
	if first {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	if first {
		p.senders.Wait()
		close(p.tasks)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of tasks currently running.
func (p *Pool) InUse() int {
	return int(p.active.Load())
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.tasks)
}

// MaxConcurrent returns the number of workers.
func (p *Pool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.config.Name
}
