package chart

import (
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParsePartitionsByDelimiter(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	c, err := p.Parse("0 start\n200 lane1:hit\n200 bpm-change\n500 lane3:hit\n1000 end\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	wantNotes := []Event{{200, "lane1:hit"}, {500, "lane3:hit"}}
	wantOthers := []Event{{0, "start"}, {200, "bpm-change"}, {1000, "end"}}
	if !reflect.DeepEqual(c.Notes, wantNotes) {
		t.Fatalf("notes = %v, want %v", c.Notes, wantNotes)
	}
	if !reflect.DeepEqual(c.Others, wantOthers) {
		t.Fatalf("others = %v, want %v", c.Others, wantOthers)
	}
	if c.Len() != 5 {
		t.Fatalf("len = %d, want 5", c.Len())
	}
}

func TestParseTrimsWhitespaceAndCRLF(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	c, err := p.Parse("\n\n  0   start \r\n\t1200 lane3:hit\r\n\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(c.Others) != 1 || c.Others[0] != (Event{0, "start"}) {
		t.Fatalf("others = %v", c.Others)
	}
	if len(c.Notes) != 1 || c.Notes[0] != (Event{1200, "lane3:hit"}) {
		t.Fatalf("notes = %v", c.Notes)
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	cases := []struct {
		name  string
		input string
		line  int
	}{
		{"non-numeric time", "abc foo", 1},
		{"missing label", "12", 1},
		{"extra token", "0 start\n10 a b", 2},
		{"negative time", "0 start\n-5 x", 2},
		{"blank line in body", "0 start\n\n100 end", 2},
	}
	p := NewParser(DefaultParserConfig())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := p.Parse(tc.input)
			if err == nil {
				t.Fatalf("expected error, got chart %v", c)
			}
			if c != nil {
				t.Fatalf("expected no partial chart, got %v", c)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Line != tc.line {
				t.Fatalf("line = %d, want %d", pe.Line, tc.line)
			}
			bad := strings.Split(strings.TrimSpace(tc.input), "\n")[tc.line-1]
			if !strings.Contains(err.Error(), strings.TrimSpace(bad)) {
				t.Fatalf("error %q does not name offending line %q", err, bad)
			}
		})
	}
}

func TestParseRejectsDecreasingTimes(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	_, err := p.Parse("0 start\n500 a:hit\n400 b:hit")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 3 {
		t.Fatalf("expected parse error on line 3, got %v", err)
	}

	// Queues are checked independently.
	if _, err := p.Parse("500 a:hit\n100 start\n600 b:hit"); err != nil {
		t.Fatalf("interleaved queues should parse: %v", err)
	}
}

func TestParseUnorderedWhenAllowed(t *testing.T) {
	cfg := DefaultParserConfig()
	cfg.RequireOrdered = false
	c, err := NewParser(cfg).Parse("900 b:hit\n100 a:hit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Notes[0].TimeMs != 900 || c.Notes[1].TimeMs != 100 {
		t.Fatalf("file order not kept: %v", c.Notes)
	}
}

func TestParseCustomDelimiter(t *testing.T) {
	c, err := NewParser(ParserConfig{NoteDelimiter: "@"}).Parse("0 lane:one\n10 hit@2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(c.Notes) != 1 || c.Notes[0].Label != "hit@2" {
		t.Fatalf("notes = %v", c.Notes)
	}
	if len(c.Others) != 1 || c.Others[0].Label != "lane:one" {
		t.Fatalf("others = %v", c.Others)
	}
}

func TestParseEmptyInput(t *testing.T) {
	c, err := NewParser(DefaultParserConfig()).Parse("  \n ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty chart, got %v", c)
	}
}

func TestParseFile(t *testing.T) {
	p := NewParser(DefaultParserConfig())
	c, err := p.ParseFile(filepath.Join("testdata", "basic.chart"))
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if len(c.Notes) != 1 || len(c.Others) != 2 {
		t.Fatalf("unexpected partition: %v", c)
	}

	_, err = p.ParseFile(filepath.Join("testdata", "missing.chart"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := &Chart{Notes: []Event{{1, "a:b"}}, Others: []Event{{2, "c"}}}
	cp := c.Clone()
	cp.Notes[0].Label = "changed"
	cp.Others = cp.Others[:0]
	if c.Notes[0].Label != "a:b" || len(c.Others) != 1 {
		t.Fatalf("clone aliased original: %v", c)
	}
}
