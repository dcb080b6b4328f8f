package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// Processor is satisfied by *Worker.
type Processor interface {
	Process(ctx context.Context, c Chunk) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, c Chunk) error

func (f ProcessorFunc) Process(ctx context.Context, c Chunk) error { return f(ctx, c) }

// Stats counts pool outcomes.
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
	InFlight   int64 `json:"in_flight"`
}

// Pool runs chunk transcriptions with at most limit outbound calls at once.
// Dispatch never waits for a slot: each chunk gets its own goroutine that
// queues on the semaphore.
type Pool struct {
	ctx  context.Context
	proc Processor
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool

	dispatched atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	inFlight   atomic.Int64
}

// NewPool creates a pool whose tasks run under ctx.
func NewPool(ctx context.Context, proc Processor, limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{ctx: ctx, proc: proc, sem: make(chan struct{}, limit)}
}

// Dispatch schedules c and returns immediately.
func (p *Pool) Dispatch(c Chunk) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return apperr.Newf(apperr.Internal, "pool closed, chunk %d not dispatched", c.Seq)
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.dispatched.Add(1)
	go p.run(c)
	return nil
}

func (p *Pool) run(c Chunk) {
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		p.failed.Add(1)
		return
	}
	defer func() { <-p.sem }()

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			trace.Logger(p.ctx).Error("chunk worker panicked", "seq", c.Seq, "panic", fmt.Sprint(r))
		}
	}()

	if err := p.proc.Process(p.ctx, c); err != nil {
		p.failed.Add(1)
		return
	}
	p.succeeded.Add(1)
}

// Close rejects further dispatches. Tasks already queued still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Wait blocks until every dispatched task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Dispatched: p.dispatched.Load(),
		Succeeded:  p.succeeded.Load(),
		Failed:     p.failed.Load(),
		InFlight:   p.inFlight.Load(),
	}
}
