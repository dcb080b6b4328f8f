package orchestrator

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/recap/internal/artifact"
	apperr "github.com/GriffinCanCode/recap/internal/errors"
	"github.com/GriffinCanCode/recap/internal/orchestrator/scheduler"
	"github.com/GriffinCanCode/recap/internal/orchestrator/stop"
	"github.com/GriffinCanCode/recap/internal/orchestrator/summary"
	"github.com/GriffinCanCode/recap/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/recap/internal/orchestrator/worker"
	"github.com/GriffinCanCode/recap/internal/syncx"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// Deps are the external collaborators of a session.
type Deps struct {
	Capturer    scheduler.Capturer
	Persister   scheduler.Persister
	Transcriber worker.Transcriber
	Summarizer  summary.Summarizer
}

// Options tune one session.
type Options struct {
	ChunkDir          string
	OutputDir         string
	MaxConcurrent     int
	Instruction       string
	Docx              bool
	CaptureRetryDelay time.Duration
	NameTimeout       time.Duration
	Gate              scheduler.Gate
	OnStateChange     func(State)
}

// Result describes a finished session.
type Result struct {
	Session        artifact.Session
	State          State
	Chunks         int
	Fragments      int
	Stats          worker.Stats
	TranscriptPath string
	SummaryPath    string
	DocxPath       string
	Summary        string
	Empty          bool
}

// Manager coordinates capture, transcription, drain and summary.
type Manager struct {
	deps      Deps
	opts      Options
	id        uuid.UUID
	state     *syncx.RWGuard[State]
	transMu   sync.Mutex
	store     *transcript.Store
	sig       *stop.Signal
	pool      *syncx.RWGuard[*worker.Pool]
	startedAt time.Time
}

// New creates a manager for a single session.
func New(deps Deps, opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.NameTimeout <= 0 {
		opts.NameTimeout = DefaultNameTimeout
	}
	return &Manager{
		deps:  deps,
		opts:  opts,
		id:    uuid.New(),
		state: syncx.NewGuard(Idle),
		store: transcript.NewStore(TranscriptEventBuffer),
		sig:   stop.NewSignal(),
		pool:  syncx.NewGuard[*worker.Pool](nil),
	}
}

// ID returns the session run id.
func (m *Manager) ID() uuid.UUID { return m.id }

// State returns the current lifecycle stage.
func (m *Manager) State() State { return m.state.Get() }

// Store exposes the live transcript.
func (m *Manager) Store() *transcript.Store { return m.store }

// Signal is the stop request shared with the console and HTTP server.
func (m *Manager) Signal() *stop.Signal { return m.sig }

// Stats returns transcription counters; zero before Run.
func (m *Manager) Stats() worker.Stats {
	if p := m.pool.Get(); p != nil {
		return p.Stats()
	}
	return worker.Stats{}
}

// ChunkDir is where this session's chunk files go.
func (m *Manager) ChunkDir() string {
	return filepath.Join(m.opts.ChunkDir, m.id.String())
}

// advance moves to the next state if the current one is in from (any state
// when from is empty). Hooks observe transitions in order.
func (m *Manager) advance(to State, from ...State) bool {
	m.transMu.Lock()
	defer m.transMu.Unlock()

	_, ok := m.state.Transition(func(cur State) (State, bool) {
		if cur == to {
			return cur, false
		}
		if len(from) == 0 {
			return to, true
		}
		for _, f := range from {
			if cur == f {
				return to, true
			}
		}
		return cur, false
	})
	if ok && m.opts.OnStateChange != nil {
		m.opts.OnStateChange(to)
	}
	return ok
}

// Run records until stopped and returns after the summary is written or has
// failed. Cancelling ctx before stop ends the session as INTERRUPTED.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	if !m.advance(Recording, Idle) {
		return nil, apperr.New(apperr.Internal, "session already started")
	}
	m.startedAt = time.Now()

	ctx = trace.WithSession(ctx, m.id.String())
	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)
	log.Info("recording started", "chunk_dir", m.ChunkDir(), "max_concurrent", m.opts.MaxConcurrent)

	pool := worker.NewPool(ctx, worker.New(m.deps.Transcriber, m.store), m.opts.MaxConcurrent)
	m.pool.Set(pool)

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-m.sig.Stopped():
			if m.advance(Stopping, Recording) {
				log.Info("stop requested, finishing current chunk")
			}
		case <-watchDone:
		}
	}()

	sched := scheduler.New(m.deps.Capturer, m.deps.Persister, pool, m.sig, scheduler.Config{
		ChunkDir:   m.ChunkDir(),
		RetryDelay: m.opts.CaptureRetryDelay,
		Gate:       m.opts.Gate,
	})
	chunks, err := sched.Run(ctx)
	res := &Result{Chunks: chunks}

	if err != nil {
		pool.Close()
		pool.Wait()
		return m.interrupted(res, err)
	}

	m.advance(Stopping, Recording)
	m.advance(Draining)
	pool.Close()
	pool.Wait()
	m.store.Seal()
	texts := m.store.Texts()
	res.Fragments = len(texts)
	res.Stats = pool.Stats()
	log.Info("transcription drained", "chunks", chunks, "fragments", res.Fragments,
		"failed", res.Stats.Failed)

	nameCtx, cancel := context.WithTimeout(ctx, m.opts.NameTimeout)
	name, err := m.sig.Name(nameCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return m.interrupted(res, ctx.Err())
		}
		log.Warn("no session name given, using default", "waited", m.opts.NameTimeout)
	}
	res.Session = artifact.NewSession(m.id, name, m.opts.OutputDir, m.startedAt)

	m.advance(Summarizing)
	out, err := summary.New(m.deps.Summarizer, summary.Options{
		Instruction: m.opts.Instruction,
		Docx:        m.opts.Docx,
	}).Run(ctx, res.Session, texts)

	if out != nil {
		res.TranscriptPath = out.TranscriptPath
		res.SummaryPath = out.SummaryPath
		res.DocxPath = out.DocxPath
		res.Summary = out.Summary
	}

	switch {
	case stderrors.Is(err, summary.ErrNothingToSummarize):
		res.Empty = true
		m.advance(Done)
	case err != nil && ctx.Err() != nil:
		return m.interrupted(res, ctx.Err())
	case err != nil:
		m.advance(SummarizeFailed)
		res.State = SummarizeFailed
		return res, err
	default:
		m.advance(Done)
	}

	res.State = m.State()
	log.Info("session finished", "state", res.State, "dir", res.Session.Dir, "empty", res.Empty)
	return res, nil
}

func (m *Manager) interrupted(res *Result, cause error) (*Result, error) {
	m.advance(Interrupted)
	res.State = Interrupted
	res.Stats = m.Stats()
	trace.Logger(context.Background()).Warn("session interrupted", "session", m.id.String(), "chunks", res.Chunks)
	return res, apperr.Wrap(cause, apperr.Cancelled, "recording interrupted")
}
