package chart

// Event is a single timed chart line: TimeMs milliseconds into the chart and
// an opaque label forwarded verbatim to handlers.
type Event struct {
	TimeMs int64
	Label  string
}

// Chart holds the two dispatch queues derived from a chart file. Notes are
// dispatched ahead of time by the hitring duration; Others fire exactly on
// time. Both keep file order.
type Chart struct {
	Notes  []Event
	Others []Event
}

// Len returns the total number of events in the chart.
func (c *Chart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Notes) + len(c.Others)
}

// Clone returns a deep copy so callers can consume the queues without
// touching the parsed chart.
func (c *Chart) Clone() *Chart {
	if c == nil {
		return &Chart{}
	}
	return &Chart{
		Notes:  append([]Event(nil), c.Notes...),
		Others: append([]Event(nil), c.Others...),
	}
}

type ParserConfig struct {
	// NoteDelimiter marks a label as a note event when it appears anywhere in it.
	NoteDelimiter string
	// RequireOrdered rejects charts whose times decrease within a queue.
	RequireOrdered bool
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		NoteDelimiter:  ":",
		RequireOrdered: true,
	}
}
