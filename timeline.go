package museplay

import (
	"bytes"
	"fmt"

	"github.com/cbegin/museplay-go/internal/chart"
)

// ScheduledEvent is an event with the chart-relative millisecond at which an
// ideal dispatch loop delivers it.
type ScheduledEvent struct {
	DispatchMs int64
	Event      Event
}

// RenderTimeline computes the dispatch order and offsets Play would produce
// with zero poll latency: at each due instant notes drain before others.
func RenderTimeline(c *Chart, hitringMs int64) []ScheduledEvent {
	if c == nil {
		return nil
	}
	if hitringMs < 0 {
		hitringMs = 0
	}
	noteAt := func(ev chart.Event) int64 {
		at := ev.TimeMs - hitringMs
		if at < 0 {
			return 0
		}
		return at
	}
	out := make([]ScheduledEvent, 0, c.Len())
	ni, oi := 0, 0
	for ni < len(c.Notes) || oi < len(c.Others) {
		elapsed := int64(-1)
		if ni < len(c.Notes) {
			elapsed = noteAt(c.Notes[ni])
		}
		if oi < len(c.Others) && (elapsed < 0 || c.Others[oi].TimeMs < elapsed) {
			elapsed = c.Others[oi].TimeMs
		}
		for ni < len(c.Notes) && noteAt(c.Notes[ni]) <= elapsed {
			out = append(out, ScheduledEvent{DispatchMs: elapsed, Event: c.Notes[ni]})
			ni++
		}
		for oi < len(c.Others) && c.Others[oi].TimeMs <= elapsed {
			out = append(out, ScheduledEvent{DispatchMs: elapsed, Event: c.Others[oi]})
			oi++
		}
	}
	return out
}

// EncodeTimeline writes one "<dispatch_ms> <time_ms> <label>" line per event.
func EncodeTimeline(events []ScheduledEvent) []byte {
	var buf bytes.Buffer
	for _, se := range events {
		fmt.Fprintf(&buf, "%d %d %s\n", se.DispatchMs, se.Event.TimeMs, se.Event.Label)
	}
	return buf.Bytes()
}
