package command

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the size of the command pool.
const DefaultWorkers = 5

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("command pool is shut down")

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	tasks chan func()
	g     errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}
	p := &Pool{tasks: make(chan func(), 64)}
	for i := 0; i < size; i++ {
		p.g.Go(func() error {
			for task := range p.tasks {
				p.run(task)
			}
			return nil
		})
	}
	return p
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Command: task panicked", "panic", r)
		}
	}()
	task()
}

// Submit queues task. It blocks while the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Shutdown stops accepting tasks and waits up to grace for queued and
// running ones. It reports whether the workers finished in time.
func (p *Pool) Shutdown(grace time.Duration) bool {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.g.Wait()
		close(done)
	}()

	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		slog.Warn("Command: workers still busy after grace period", "grace", grace)
		return false
	}
}
