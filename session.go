package museplay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrNoChart = errors.New("museplay: no chart loaded")

type SessionOption func(*Session)

// WithHitring sets the note lead time used by Start and Resume.
func WithHitring(ms int64) SessionOption {
	return func(s *Session) {
		if ms < 0 {
			ms = 0
		}
		s.hitringMs = ms
	}
}

// WithReaderOptions passes options to every Reader the Session loads.
func WithReaderOptions(opts ...ReaderOption) SessionOption {
	return func(s *Session) {
		s.readerOpts = append(s.readerOpts, opts...)
	}
}

// WithStartHandler installs the callback receiving each start/resume instant.
func WithStartHandler(fn func(startMs int64)) SessionOption {
	return func(s *Session) {
		s.onStart = fn
	}
}

func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session owns at most one Reader at a time, the way a game front end owns
// the chart being played. Events are routed to handlers by label.
type Session struct {
	hitringMs  int64
	readerOpts []ReaderOption
	onStart    func(int64)
	logger     zerolog.Logger

	mu       sync.Mutex
	reader   *Reader
	closed   bool
	routesMu sync.RWMutex
	routes   map[string]func(Event)
	fallback func(Event)
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		hitringMs: DefaultHitringMs,
		logger:    zerolog.Nop(),
		routes:    make(map[string]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle routes events with exactly this label to fn. A nil fn removes the
// route.
func (s *Session) Handle(label string, fn func(Event)) {
	s.routesMu.Lock()
	defer s.routesMu.Unlock()
	if fn == nil {
		delete(s.routes, label)
		return
	}
	s.routes[label] = fn
}

// HandleDefault receives events no label route matched.
func (s *Session) HandleDefault(fn func(Event)) {
	s.routesMu.Lock()
	s.fallback = fn
	s.routesMu.Unlock()
}

func (s *Session) dispatch(ev Event) {
	s.routesMu.RLock()
	fn, ok := s.routes[ev.Label]
	if !ok {
		fn = s.fallback
	}
	s.routesMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Start drops the current chart, stopping its playback, then loads and
// plays the chart at path. The previous chart is gone even if loading fails.
func (s *Session) Start(path string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.reader != nil {
		_ = s.reader.Close()
		s.reader = nil
	}
	r, err := NewReader(path, s.readerOpts...)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.reader = r
	s.mu.Unlock()

	// Handlers may call back into the Session, so play outside the lock.
	r.Play(s.hitringMs, s.onStart, s.dispatch)
	s.logger.Info().Str("chart", path).Int64("hitring_ms", s.hitringMs).Msg("chart started")
	return nil
}

func (s *Session) Pause() error {
	r := s.Reader()
	if r == nil {
		return ErrNoChart
	}
	r.Pause()
	return nil
}

// Resume plays the current chart again: a paused chart continues where it
// stopped, a finished one starts over.
func (s *Session) Resume() error {
	r := s.Reader()
	if r == nil {
		return ErrNoChart
	}
	r.Play(s.hitringMs, s.onStart, s.dispatch)
	return nil
}

// Stop drops the current chart.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		_ = s.reader.Close()
		s.reader = nil
		s.logger.Info().Msg("chart stopped")
	}
}

// Reader returns the current Reader, or nil.
func (s *Session) Reader() *Reader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reader
}

func (s *Session) Close() error {
	s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
