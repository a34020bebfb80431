package chart

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseError reports the first chart line that could not be parsed.
type ParseError struct {
	Line   int // 1-based, counted after the input is trimmed
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chart line %d %q: %s", e.Line, e.Text, e.Reason)
}

type Parser struct{ cfg ParserConfig }

func NewParser(cfg ParserConfig) *Parser {
	if cfg.NoteDelimiter == "" {
		cfg.NoteDelimiter = DefaultParserConfig().NoteDelimiter
	}
	return &Parser{cfg: cfg}
}

// ParseFile reads and parses a chart file. Read failures are wrapped so
// errors.Is still matches the underlying fs error.
func (p *Parser) ParseFile(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart %q: %w", path, err)
	}
	return p.Parse(string(data))
}

// Parse converts chart text into note and other queues. It is all-or-nothing:
// the first malformed line fails the whole chart.
func (p *Parser) Parse(input string) (*Chart, error) {
	out := &Chart{}
	input = strings.TrimSpace(input)
	if input == "" {
		return out, nil
	}
	lastNote, lastOther := int64(-1), int64(-1)
	for i, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		ev, reason := parseLine(line)
		if reason != "" {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: reason}
		}
		if strings.Contains(ev.Label, p.cfg.NoteDelimiter) {
			if p.cfg.RequireOrdered && ev.TimeMs < lastNote {
				return nil, &ParseError{Line: i + 1, Text: line, Reason: fmt.Sprintf("note time %d is before previous note at %d", ev.TimeMs, lastNote)}
			}
			lastNote = ev.TimeMs
			out.Notes = append(out.Notes, ev)
			continue
		}
		if p.cfg.RequireOrdered && ev.TimeMs < lastOther {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: fmt.Sprintf("event time %d is before previous event at %d", ev.TimeMs, lastOther)}
		}
		lastOther = ev.TimeMs
		out.Others = append(out.Others, ev)
	}
	return out, nil
}

func parseLine(line string) (Event, string) {
	if line == "" {
		return Event{}, "blank line"
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Event{}, fmt.Sprintf("expected \"<time> <label>\", got %d fields", len(fields))
	}
	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Sprintf("invalid time %q", fields[0])
	}
	if ms < 0 {
		return Event{}, fmt.Sprintf("negative time %d", ms)
	}
	return Event{TimeMs: ms, Label: fields[1]}, ""
}
