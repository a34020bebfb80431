package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cbegin/museplay-go/internal/config"
)

func writeChart(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.chart")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("write chart: %v", err)
	}
	return path
}

func testOptions(path string, hitringMs int64) playOptions {
	cfg := config.Default()
	cfg.Playback.HitringMs = hitringMs
	return playOptions{chartPath: path, cfg: cfg, pollInterval: time.Millisecond}
}

func TestPlayRequiresFile(t *testing.T) {
	var out bytes.Buffer
	if err := play(context.Background(), testOptions("", 0), &out, zerolog.Nop()); err == nil {
		t.Fatalf("expected an error without -file")
	}
}

func TestPlayMissingChartReturnsError(t *testing.T) {
	var out bytes.Buffer
	err := play(context.Background(), testOptions(filepath.Join(t.TempDir(), "nope.chart"), 0), &out, zerolog.Nop())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestPlayDryRunPrintsTimeline(t *testing.T) {
	opts := testOptions(writeChart(t, "0 start\n500 lane1:hit\n1000 end\n"), 100)
	opts.dryRun = true
	var out bytes.Buffer
	if err := play(context.Background(), opts, &out, zerolog.Nop()); err != nil {
		t.Fatalf("play: %v", err)
	}
	want := "0 0 start\n400 500 lane1:hit\n1000 1000 end\n"
	if got := out.String(); got != want {
		t.Fatalf("dry run output = %q, want %q", got, want)
	}
}

func TestPlayRunsToCompletion(t *testing.T) {
	var out bytes.Buffer
	if err := play(context.Background(), testOptions(writeChart(t, "0 a:b\n20 end\n"), 0), &out, zerolog.Nop()); err != nil {
		t.Fatalf("play: %v", err)
	}
	got := out.String()
	for _, want := range []string{"a:b", "end", "finished: 2 events (1 notes)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlayStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- play(ctx, testOptions(writeChart(t, "0 start\n10000 late\n"), 0), &out, zerolog.Nop())
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("play: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("play did not return after cancellation")
	}
	got := out.String()
	if !strings.Contains(got, "stopped: 1 events") {
		t.Fatalf("expected a stopped summary after one event:\n%s", got)
	}
	if strings.Contains(got, "late") {
		t.Fatalf("event after cancellation was dispatched:\n%s", got)
	}
}
