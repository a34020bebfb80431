package museplay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGoldenTimeline(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "golden.chart"))
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	c, err := Compile(string(raw))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	got := string(EncodeTimeline(RenderTimeline(c, 100)))
	want, err := os.ReadFile(filepath.Join("testdata", "golden_timeline_hitring100.txt"))
	if err != nil {
		t.Fatalf("read golden timeline: %v", err)
	}
	if got != string(want) {
		t.Fatalf("golden mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestTimelineWithoutHitring(t *testing.T) {
	c, err := Compile("0 start\n500 lane1:hit\n1000 end")
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	tl := RenderTimeline(c, 0)
	if len(tl) != 3 {
		t.Fatalf("timeline has %d events, want 3", len(tl))
	}
	for _, se := range tl {
		if se.DispatchMs != se.Event.TimeMs {
			t.Fatalf("%s dispatched at %d, want %d", se.Event.Label, se.DispatchMs, se.Event.TimeMs)
		}
	}
}

func TestTimelineNilChart(t *testing.T) {
	if tl := RenderTimeline(nil, 100); tl != nil {
		t.Fatalf("expected nil timeline, got %v", tl)
	}
}
