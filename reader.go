package museplay

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/cbegin/museplay-go/internal/chart"
	"github.com/cbegin/museplay-go/internal/scheduler"
)

// DefaultHitringMs is the lead time hosts use for note events.
const DefaultHitringMs int64 = 500

var ErrClosed = errors.New("museplay: closed")

type (
	Event    = chart.Event
	Chart    = chart.Chart
	Status   = scheduler.Status
	Snapshot = scheduler.Snapshot
)

const (
	StatusNotStarted = scheduler.StatusNotStarted
	StatusRunning    = scheduler.StatusRunning
	StatusPaused     = scheduler.StatusPaused
	StatusFinished   = scheduler.StatusFinished
	StatusStopped    = scheduler.StatusStopped
)

// PlaybackEvent carries lifecycle and dispatch notifications from Watch().
type PlaybackEvent struct {
	Kind      int // EventStarted, EventResumed, EventPaused, EventDispatched, EventFinished or EventStopped
	SessionID string // session the event belongs to
	StartMs   int64 // set for EventStarted and EventResumed
	ShiftMs   int64 // pause interval absorbed, set for EventResumed
	Event     Event // set for EventDispatched
}

const (
	EventStarted int = iota
	EventResumed
	EventPaused
	EventDispatched
	EventFinished
	EventStopped
)

type ReaderOption func(*readerConfig)

type readerConfig struct {
	logger       zerolog.Logger
	clock        clock.Clock
	pollInterval time.Duration
	parser       chart.ParserConfig
}

func defaultReaderConfig() readerConfig {
	return readerConfig{
		logger:       zerolog.Nop(),
		clock:        clock.New(),
		pollInterval: scheduler.DefaultPollInterval,
		parser:       chart.DefaultParserConfig(),
	}
}

func WithLogger(logger zerolog.Logger) ReaderOption {
	return func(cfg *readerConfig) {
		cfg.logger = logger
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) ReaderOption {
	return func(cfg *readerConfig) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithPollInterval sets the bounded wait between dispatch iterations.
// Firing latency is at most roughly one interval; keep it to a few ms.
func WithPollInterval(d time.Duration) ReaderOption {
	return func(cfg *readerConfig) {
		if d > 0 {
			cfg.pollInterval = d
		}
	}
}

func WithParserConfig(pc chart.ParserConfig) ReaderOption {
	return func(cfg *readerConfig) {
		cfg.parser = pc
	}
}

// Reader plays one parsed chart. It is safe for concurrent use; at most one
// dispatch goroutine runs per Reader.
type Reader struct {
	path   string
	chart  *chart.Chart
	sched  *scheduler.Scheduler
	logger zerolog.Logger

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

// Compile parses chart text with the default parser configuration.
func Compile(text string) (*Chart, error) {
	return chart.NewParser(chart.DefaultParserConfig()).Parse(text)
}

// NewReader reads and parses the chart at path. Failures are returned
// synchronously and no goroutine is started.
func NewReader(path string, opts ...ReaderOption) (*Reader, error) {
	cfg := defaultReaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := chart.NewParser(cfg.parser).ParseFile(path)
	if err != nil {
		cfg.logger.Warn().Err(err).Str("path", path).Msg("chart rejected")
		return nil, err
	}
	r := newReader(c, cfg)
	r.path = path
	r.logger.Debug().Str("path", path).Int("notes", len(c.Notes)).Int("others", len(c.Others)).Msg("chart loaded")
	return r, nil
}

// NewReaderFromChart builds a Reader over an already parsed chart.
func NewReaderFromChart(c *Chart, opts ...ReaderOption) *Reader {
	cfg := defaultReaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newReader(c, cfg)
}

func newReader(c *chart.Chart, cfg readerConfig) *Reader {
	if c == nil {
		c = &chart.Chart{}
	}
	r := &Reader{chart: c, logger: cfg.logger}
	r.sched = scheduler.New(c, scheduler.Options{
		Clock:        cfg.clock,
		PollInterval: cfg.pollInterval,
		Logger:       cfg.logger,
		OnTransition: r.onTransition,
		OnDispatch:   r.onDispatch,
	})
	return r
}

// Path returns the chart file the Reader was loaded from, if any.
func (r *Reader) Path() string { return r.path }

// Chart returns a copy of the parsed chart.
func (r *Reader) Chart() *Chart { return r.chart.Clone() }

// Play starts a fresh session, or resumes a paused one with the paused
// interval excluded from chart time. It never blocks on dispatch and
// returns false when playback is already running or the Reader is closed.
//
// onStart receives the epoch millisecond treated as chart time zero and
// runs on the calling goroutine. onEvent runs on the Reader's dispatch
// goroutine, one event at a time; a handler that blocks stalls dispatch and
// a handler that panics crashes the process. Note events fire hitringMs
// before their time (immediately if their time is smaller); on a tie notes
// are delivered before other events.
func (r *Reader) Play(hitringMs int64, onStart func(startMs int64), onEvent func(Event)) bool {
	return r.sched.Start(hitringMs, onStart, onEvent)
}

// Pause halts dispatch, keeping unplayed events queued. It reports whether
// a running session was paused.
func (r *Reader) Pause() bool { return r.sched.Pause() }

// Stop ends the session; the next Play starts the chart over. After Stop
// returns no new event is dequeued, though one already dequeued may still
// reach its handler.
func (r *Reader) Stop() { r.sched.Stop() }

// Close stops playback for good. Play on a closed Reader returns false.
func (r *Reader) Close() error {
	r.sched.Close()
	r.eventChMu.Lock()
	r.eventCh = nil
	r.eventChMu.Unlock()
	return nil
}

// Wait blocks until the current session finishes or is stopped. Pausing
// does not release it; it returns immediately when nothing is playing.
// EventFinished or EventStopped is sent to Watch() before Wait returns.
func (r *Reader) Wait() { r.sched.Wait() }

// Running reports whether a dispatch goroutine is permitted to proceed.
func (r *Reader) Running() bool { return r.sched.Running() }

func (r *Reader) Snapshot() Snapshot { return r.sched.Snapshot() }

// Watch returns a channel that receives lifecycle and dispatch events.
// The channel is buffered (cap 64) and events are dropped when it is full,
// so dispatch never blocks on a slow watcher. Only the most recent Watch()
// channel receives events.
func (r *Reader) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 64)
	r.eventChMu.Lock()
	r.eventCh = ch
	r.eventChMu.Unlock()
	return ch
}

func (r *Reader) onTransition(tr scheduler.Transition) {
	ev := PlaybackEvent{SessionID: tr.SessionID, StartMs: tr.StartMs, ShiftMs: tr.ShiftMs}
	switch tr.Kind {
	case scheduler.TransitionStarted:
		ev.Kind = EventStarted
	case scheduler.TransitionResumed:
		ev.Kind = EventResumed
	case scheduler.TransitionPaused:
		ev.Kind = EventPaused
	case scheduler.TransitionFinished:
		ev.Kind = EventFinished
	case scheduler.TransitionStopped:
		ev.Kind = EventStopped
	default:
		return
	}
	r.sendEvent(ev)
}

func (r *Reader) onDispatch(sessionID string, ev chart.Event) {
	r.sendEvent(PlaybackEvent{Kind: EventDispatched, SessionID: sessionID, Event: ev})
}

func (r *Reader) sendEvent(ev PlaybackEvent) {
	r.eventChMu.Lock()
	ch := r.eventCh
	r.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}
