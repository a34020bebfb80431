package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cbegin/museplay-go/internal/chart"
)

const DefaultPollInterval = time.Millisecond

// TransitionKind identifies scheduler lifecycle transitions.
type TransitionKind int

const (
	TransitionStarted TransitionKind = iota
	TransitionResumed
	TransitionPaused
	TransitionFinished
	TransitionStopped
)

// Transition is reported through Options.OnTransition outside the lock.
type Transition struct {
	Kind      TransitionKind
	SessionID string
	StartMs   int64
	ShiftMs   int64 // pause interval absorbed on resume
}

type Options struct {
	Clock        clock.Clock
	PollInterval time.Duration
	Logger       zerolog.Logger
	OnTransition func(Transition)
	// OnDispatch runs on the worker after each onEvent call.
	OnDispatch func(sessionID string, ev chart.Event)
}

// Scheduler dispatches chart events at wall-clock time from a single
// worker goroutine. onStart runs on the goroutine calling Start; onEvent
// runs on the worker, one event at a time. Handler panics are not
// recovered.
type Scheduler struct {
	chart        *chart.Chart
	clock        clock.Clock
	poll         time.Duration
	log          zerolog.Logger
	onTransition func(Transition)
	onDispatch   func(string, chart.Event)

	mu         sync.Mutex
	st         state
	notes      queue
	others     queue
	workerDone chan struct{} // closed when the latest worker exits
	workerQuit chan struct{} // closed to wake the latest worker early
	closed     bool
}

func New(c *chart.Chart, opts Options) *Scheduler {
	if c == nil {
		c = &chart.Chart{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	s := &Scheduler{
		chart:        c.Clone(),
		clock:        opts.Clock,
		poll:         opts.PollInterval,
		log:          opts.Logger,
		onTransition: opts.OnTransition,
		onDispatch:   opts.OnDispatch,
	}
	s.st.status = StatusNotStarted
	return s
}

func (s *Scheduler) nowMs() int64 { return s.clock.Now().UnixMilli() }

// Start begins a fresh session or resumes a paused one. It returns false
// when a worker is already running or the scheduler is closed.
func (s *Scheduler) Start(hitringMs int64, onStart func(startMs int64), onEvent func(chart.Event)) bool {
	if hitringMs < 0 {
		hitringMs = 0
	}
	s.mu.Lock()
	if s.closed || !s.st.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return false
	}
	now := s.nowMs()
	tr := Transition{Kind: TransitionResumed}
	if s.st.fresh() {
		s.st.begin(now, uuid.NewString())
		s.notes.reset(s.chart.Notes)
		s.others.reset(s.chart.Others)
		tr.Kind = TransitionStarted
	} else {
		tr.ShiftMs = s.st.resume(now)
	}
	s.st.gen++
	gen := s.st.gen
	tr.SessionID = s.st.sessionID
	tr.StartMs = s.st.startMs
	s.quitWorkerLocked()
	prev := s.workerDone
	done, quit := make(chan struct{}), make(chan struct{})
	s.workerDone, s.workerQuit = done, quit
	s.mu.Unlock()

	if tr.Kind == TransitionStarted {
		s.log.Info().Str("session", tr.SessionID).Int64("start_ms", tr.StartMs).
			Int("notes", len(s.chart.Notes)).Int("others", len(s.chart.Others)).Msg("playback started")
	} else {
		s.log.Debug().Str("session", tr.SessionID).Int64("shift_ms", tr.ShiftMs).Msg("playback resumed")
	}
	s.notify(tr)
	if onStart != nil {
		onStart(tr.StartMs)
	}
	go s.run(gen, tr.SessionID, prev, done, quit, hitringMs, onEvent)
	return true
}

// Pause stops the running worker after its current event, keeping the
// remaining queues. It is a no-op when nothing is running.
func (s *Scheduler) Pause() bool {
	s.mu.Lock()
	if !s.st.running.CompareAndSwap(true, false) {
		s.mu.Unlock()
		return false
	}
	s.st.pause(s.nowMs())
	s.quitWorkerLocked()
	tr := Transition{Kind: TransitionPaused, SessionID: s.st.sessionID, StartMs: s.st.startMs}
	s.mu.Unlock()

	s.log.Debug().Str("session", tr.SessionID).Msg("playback paused")
	s.notify(tr)
	return true
}

// Stop ends the session and resets it, so the next Start replays the chart
// from the beginning. Once Stop returns no further event is dequeued; one
// already dequeued may still be delivered.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	tr, sessionDone, ok := s.stopLocked()
	s.mu.Unlock()
	if ok {
		s.log.Info().Str("session", tr.SessionID).Msg("playback stopped")
		s.notify(tr)
		releaseWaiters(sessionDone)
	}
}

// Close stops playback and rejects later Start calls.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	tr, sessionDone, ok := s.stopLocked()
	s.mu.Unlock()
	if ok {
		s.log.Info().Str("session", tr.SessionID).Msg("playback closed")
		s.notify(tr)
		releaseWaiters(sessionDone)
	}
}

func (s *Scheduler) stopLocked() (Transition, chan struct{}, bool) {
	if s.st.fresh() && !s.st.running.Load() {
		return Transition{}, nil, false
	}
	tr := Transition{Kind: TransitionStopped, SessionID: s.st.sessionID}
	s.st.gen++
	sessionDone := s.st.end(StatusStopped)
	s.quitWorkerLocked()
	s.notes.reset(nil)
	s.others.reset(nil)
	return tr, sessionDone, true
}

// Wait blocks until the current session finishes or is stopped, and the
// finishing or stopping transition has been reported. It returns
// immediately when there is no session; pausing does not release it.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.st.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// WorkerDone returns a channel closed when the most recent worker exits.
func (s *Scheduler) WorkerDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workerDone == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.workerDone
}

func (s *Scheduler) Running() bool { return s.st.running.Load() }

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status:        s.st.status,
		Running:       s.st.running.Load(),
		StartMs:       s.st.startMs,
		PauseMs:       s.st.pauseMs,
		SessionID:     s.st.sessionID,
		PendingNotes:  s.notes.len(),
		PendingOthers: s.others.len(),
	}
}

func (s *Scheduler) quitWorkerLocked() {
	if s.workerQuit != nil {
		close(s.workerQuit)
		s.workerQuit = nil
	}
}

func (s *Scheduler) notify(tr Transition) {
	if s.onTransition != nil {
		s.onTransition(tr)
	}
}
