package scheduler

import "sync/atomic"

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusFinished   Status = "finished"
	StatusStopped    Status = "stopped"
)

// Snapshot is a copy of the playback state taken under the scheduler lock.
type Snapshot struct {
	Status        Status
	Running       bool
	StartMs       int64 // epoch ms treated as chart time zero; 0 = no session
	PauseMs       int64 // epoch ms of the pending pause; 0 = not paused
	SessionID     string
	PendingNotes  int
	PendingOthers int
}

// state is the shared playback record. running is read lock-free by
// observers; every other field, and every transition of running, happens
// with Scheduler.mu held.
type state struct {
	running   atomic.Bool
	startMs   int64
	pauseMs   int64
	gen       uint64
	status    Status
	sessionID string
	done      chan struct{} // closed when the session finishes or is stopped
}

// begin records a fresh session starting at nowMs.
func (st *state) begin(nowMs int64, sessionID string) {
	st.startMs = nowMs
	st.pauseMs = 0
	st.sessionID = sessionID
	st.status = StatusRunning
	st.done = make(chan struct{})
}

// resume shifts startMs past the paused interval and returns the shift.
func (st *state) resume(nowMs int64) int64 {
	var shift int64
	if st.pauseMs != 0 {
		shift = nowMs - st.pauseMs
		if shift < 0 {
			shift = 0
		}
		st.startMs += shift
		st.pauseMs = 0
	}
	st.status = StatusRunning
	return shift
}

func (st *state) pause(nowMs int64) {
	st.pauseMs = nowMs
	st.status = StatusPaused
}

// end clears the session so the next start is fresh. It returns the
// session's done channel; the caller closes it once the ending transition
// has been reported, which releases waiters.
func (st *state) end(status Status) chan struct{} {
	st.running.Store(false)
	st.startMs = 0
	st.pauseMs = 0
	st.status = status
	done := st.done
	st.done = nil
	return done
}

func releaseWaiters(done chan struct{}) {
	if done != nil {
		close(done)
	}
}

func (st *state) fresh() bool { return st.startMs == 0 }
