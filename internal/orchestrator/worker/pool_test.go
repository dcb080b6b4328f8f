package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// gatedProcessor blocks every call until release is closed and records the
// highest number of concurrent calls.
type gatedProcessor struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	started chan int
	fail    map[int]bool
}

func newGated() *gatedProcessor {
	return &gatedProcessor{release: make(chan struct{}), started: make(chan int, 100)}
}

func (g *gatedProcessor) Process(ctx context.Context, c Chunk) error {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g.started <- c.Seq

	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	if g.fail[c.Seq] {
		return errors.New("boom")
	}
	return nil
}

func TestPoolRespectsLimit(t *testing.T) {
	g := newGated()
	p := NewPool(context.Background(), g, 2)

	for i := 0; i < 6; i++ {
		if err := p.Dispatch(Chunk{Seq: i}); err != nil {
			t.Fatalf("Dispatch(%d) error = %v", i, err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-g.started:
		case <-time.After(time.Second):
			t.Fatal("first two tasks did not start")
		}
	}
	select {
	case seq := <-g.started:
		t.Fatalf("task %d started beyond the limit", seq)
	case <-time.After(20 * time.Millisecond):
	}

	close(g.release)
	p.Close()
	p.Wait()

	if peak := g.peak.Load(); peak != 2 {
		t.Errorf("peak concurrency = %d, want 2", peak)
	}
	st := p.Stats()
	if st.Dispatched != 6 || st.Succeeded != 6 || st.Failed != 0 || st.InFlight != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPoolDispatchDoesNotBlock(t *testing.T) {
	g := newGated()
	p := NewPool(context.Background(), g, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			_ = p.Dispatch(Chunk{Seq: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked while the only slot was busy")
	}

	close(g.release)
	p.Wait()
}

func TestPoolWaitDrainsEverything(t *testing.T) {
	var processed sync.Map
	proc := ProcessorFunc(func(ctx context.Context, c Chunk) error {
		time.Sleep(time.Duration(c.Seq%3) * time.Millisecond)
		processed.Store(c.Seq, true)
		return nil
	})
	p := NewPool(context.Background(), proc, 3)

	for i := 0; i < 30; i++ {
		_ = p.Dispatch(Chunk{Seq: i})
	}
	p.Close()
	p.Wait()

	for i := 0; i < 30; i++ {
		if _, ok := processed.Load(i); !ok {
			t.Errorf("chunk %d not processed before Wait returned", i)
		}
	}
}

func TestPoolCountsFailures(t *testing.T) {
	g := newGated()
	g.fail = map[int]bool{1: true}
	close(g.release)
	p := NewPool(context.Background(), g, 4)

	for i := 0; i < 3; i++ {
		_ = p.Dispatch(Chunk{Seq: i})
	}
	p.Wait()

	st := p.Stats()
	if st.Succeeded != 2 || st.Failed != 1 {
		t.Errorf("Stats() = %+v, want 2 succeeded 1 failed", st)
	}
}

func TestPoolRecoversPanic(t *testing.T) {
	proc := ProcessorFunc(func(ctx context.Context, c Chunk) error {
		if c.Seq == 0 {
			panic("bad chunk")
		}
		return nil
	})
	p := NewPool(context.Background(), proc, 2)
	_ = p.Dispatch(Chunk{Seq: 0})
	_ = p.Dispatch(Chunk{Seq: 1})
	p.Wait()

	if st := p.Stats(); st.Failed != 1 || st.Succeeded != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPoolClosedRejects(t *testing.T) {
	p := NewPool(context.Background(), newGated(), 1)
	p.Close()

	if err := p.Dispatch(Chunk{Seq: 0}); err == nil {
		t.Error("Dispatch after Close should fail")
	}
	p.Wait()
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := newGated()
	p := NewPool(ctx, g, 1)

	_ = p.Dispatch(Chunk{Seq: 0})
	_ = p.Dispatch(Chunk{Seq: 1})
	<-g.started
	cancel()
	p.Wait()

	if st := p.Stats(); st.Failed != 2 {
		t.Errorf("Stats() = %+v, want 2 failed", st)
	}
}
