package scheduler

import "github.com/cbegin/museplay-go/internal/chart"

// queue is a FIFO over a private copy of chart events.
type queue struct {
	events []chart.Event
	head   int
}

func (q *queue) reset(events []chart.Event) {
	q.events = append(q.events[:0], events...)
	q.head = 0
}

func (q *queue) len() int { return len(q.events) - q.head }

func (q *queue) front() (chart.Event, bool) {
	if q.head >= len(q.events) {
		return chart.Event{}, false
	}
	return q.events[q.head], true
}

func (q *queue) pop() chart.Event {
	ev := q.events[q.head]
	q.head++
	return ev
}

// noteDue reports whether a note should fire at elapsed, hitringMs early.
// The lead time is clamped at zero so early notes fire immediately.
func noteDue(ev chart.Event, hitringMs, elapsedMs int64) bool {
	at := ev.TimeMs - hitringMs
	if at < 0 {
		at = 0
	}
	return at <= elapsedMs
}

func otherDue(ev chart.Event, _, elapsedMs int64) bool {
	return ev.TimeMs <= elapsedMs
}
