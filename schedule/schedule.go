// Package schedule runs a job on a fixed interval with at most one run in
// flight. Ticks that arrive while a run is in progress are dropped.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the time between scheduled runs.
const DefaultInterval = time.Hour

// Job is the work performed on each run.
type Job func(ctx context.Context) error

// State is the scheduler's run state.
type State int

// State constants.
const (
	StateIdle State = iota
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Status is a snapshot of the scheduler.
type Status struct {
	State        State
	Interval     time.Duration
	Runs         int64
	Dropped      int64
	LastStarted  time.Time
	LastFinished time.Time
	LastErr      error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the time between runs. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRunOnStart makes Start trigger a run immediately instead of waiting
// for the first tick.
func WithRunOnStart() Option {
	return func(s *Scheduler) {
		s.runOnStart = true
	}
}

// WithLogger sets the logger for run lifecycle events. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler triggers a Job periodically. It is safe for concurrent use.
type Scheduler struct {
	job        Job
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger

	running atomic.Bool
	runs    atomic.Int64
	dropped atomic.Int64

	mu           sync.Mutex
	runCtx       context.Context
	runDone      chan struct{}
	cancel       context.CancelFunc
	loopDone     chan struct{}
	lastStarted  time.Time
	lastFinished time.Time
	lastErr      error
}

// New creates a Scheduler for job. The scheduler is idle until Start.
func New(job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:      job,
		interval: DefaultInterval,
		logger:   slog.New(slog.DiscardHandler),
		runCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the ticker. Runs receive a context that carries ctx's values
// but is never canceled, so a run in progress always completes. Canceling
// ctx stops further ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.loopDone != nil {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.runCtx = context.WithoutCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	loopDone := s.loopDone
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", FormatInterval(s.interval))

	if s.runOnStart {
		s.Trigger()
	}

	go s.loop(loopCtx, loopDone)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger()
		}
	}
}

// Trigger starts a run if the scheduler is idle and reports whether it did.
// A trigger while a run is in progress is dropped.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		n := s.dropped.Add(1)
		s.logger.Warn("run skipped, previous run still in progress", "dropped", n)
		return false
	}
	done := make(chan struct{})
	s.runDone = done
	s.lastStarted = time.Now()
	ctx := s.runCtx
	s.mu.Unlock()

	go s.run(ctx, done)
	return true
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	n := s.runs.Add(1)
	begin := time.Now()
	s.logger.Info("run started", "run", n)

	err := s.job(ctx)

	if err != nil {
		s.logger.Error("run failed", "run", n, "duration", time.Since(begin), "err", err)
	} else {
		s.logger.Info("run finished", "run", n, "duration", time.Since(begin))
	}

	s.mu.Lock()
	s.lastFinished = time.Now()
	s.lastErr = err
	s.running.Store(false)
	close(done)
	s.mu.Unlock()
}

// Stop disarms the ticker and blocks until any run in progress finishes.
// Stop on a scheduler that was never started only waits for a run
// started by Trigger.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, loopDone := s.cancel, s.loopDone
	s.cancel, s.loopDone = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-loopDone
	}

	s.mu.Lock()
	runDone := s.runDone
	s.mu.Unlock()

	if runDone != nil {
		<-runDone
	}

	s.logger.Info("scheduler stopped", "runs", s.runs.Load(), "dropped", s.dropped.Load())
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	if s.running.Load() {
		state = StateRunning
	}
	return Status{
		State:        state,
		Interval:     s.interval,
		Runs:         s.runs.Load(),
		Dropped:      s.dropped.Load(),
		LastStarted:  s.lastStarted,
		LastFinished: s.lastFinished,
		LastErr:      s.lastErr,
	}
}
