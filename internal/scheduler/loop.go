package scheduler

import "github.com/cbegin/museplay-go/internal/chart"

// run is the worker body for generation gen. It waits for the previous
// worker to exit so at most one loop is ever dispatching.
func (s *Scheduler) run(gen uint64, sessionID string, prev <-chan struct{}, done chan struct{}, quit <-chan struct{}, hitringMs int64, onEvent func(chart.Event)) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	ticker := s.clock.Ticker(s.poll)
	defer ticker.Stop()
	for {
		sessionDone, finished, alive := s.step(gen, sessionID, hitringMs, onEvent)
		if !alive {
			return
		}
		if finished {
			s.log.Info().Str("session", sessionID).Msg("all events dispatched")
			s.notify(Transition{Kind: TransitionFinished, SessionID: sessionID})
			releaseWaiters(sessionDone)
			return
		}
		select {
		case <-ticker.C:
		case <-quit:
		}
	}
}

// step runs one dispatch iteration: due notes first, then due others, all
// measured against a single elapsed reading. When the chart is exhausted it
// ends the session and hands back its done channel for the caller to close
// after reporting the transition.
func (s *Scheduler) step(gen uint64, sessionID string, hitringMs int64, onEvent func(chart.Event)) (sessionDone chan struct{}, finished, alive bool) {
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return nil, false, false
	}
	elapsed := s.nowMs() - s.st.startMs
	s.mu.Unlock()

	if !s.drain(gen, sessionID, &s.notes, noteDue, hitringMs, elapsed, onEvent) {
		return nil, false, false
	}
	if !s.drain(gen, sessionID, &s.others, otherDue, hitringMs, elapsed, onEvent) {
		return nil, false, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return nil, false, false
	}
	if s.notes.len() == 0 && s.others.len() == 0 {
		return s.st.end(StatusFinished), true, true
	}
	return nil, false, true
}

// drain pops due events from q one at a time, invoking onEvent outside the
// lock. It returns false as soon as the worker is no longer current.
func (s *Scheduler) drain(gen uint64, sessionID string, q *queue, due func(chart.Event, int64, int64) bool, hitringMs, elapsed int64, onEvent func(chart.Event)) bool {
	for {
		s.mu.Lock()
		if !s.currentLocked(gen) {
			s.mu.Unlock()
			return false
		}
		ev, ok := q.front()
		if !ok || !due(ev, hitringMs, elapsed) {
			s.mu.Unlock()
			return true
		}
		q.pop()
		s.mu.Unlock()

		if onEvent != nil {
			onEvent(ev)
		}
		if s.onDispatch != nil {
			s.onDispatch(sessionID, ev)
		}
	}
}

func (s *Scheduler) currentLocked(gen uint64) bool {
	return s.st.running.Load() && s.st.gen == gen
}

