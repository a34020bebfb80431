package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/museplay-go"
	"github.com/cbegin/museplay-go/internal/audio"
	"github.com/cbegin/museplay-go/internal/chart"
	"github.com/cbegin/museplay-go/internal/config"
)

type playOptions struct {
	chartPath    string
	cfg          config.Config
	pollInterval time.Duration
	pauseAt      time.Duration
	pauseFor     time.Duration
	dryRun       bool
}

func main() {
	var (
		chartPath  = flag.String("file", "", "path to a chart file")
		hitring    = flag.Int64("hitring", 0, "note lead time in ms (overrides config)")
		poll       = flag.Duration("poll", 0, "dispatch poll interval (overrides config)")
		click      = flag.Bool("click", false, "play an audible click on every note event")
		pauseAt    = flag.Int64("pause-at", 0, "pause after this many ms of playback (0 = never)")
		pauseFor   = flag.Duration("pause-for", time.Second, "how long to stay paused when -pause-at is set")
		configPath = flag.String("config", "", "config file (default: user config dir)")
		dryRun     = flag.Bool("dry-run", false, "print the ideal dispatch timeline and exit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["hitring"] {
		cfg.Playback.HitringMs = *hitring
	}
	if set["click"] {
		cfg.Click.Enabled = *click
	}
	opts := playOptions{
		chartPath:    *chartPath,
		cfg:          cfg,
		pollInterval: cfg.Playback.PollInterval(),
		pauseAt:      time.Duration(*pauseAt) * time.Millisecond,
		pauseFor:     *pauseFor,
		dryRun:       *dryRun,
	}
	if set["poll"] {
		opts.pollInterval = *poll
	}

	logger := newLogger(cfg.Log.Level, *verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = play(ctx, opts, os.Stdout, logger)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("play_chart failed")
		os.Exit(1)
	}
}

// play loads and plays one chart, writing a line per event and a summary
// to out. It returns when the chart finishes or ctx is cancelled; every
// resource it opens is closed before it returns.
func play(ctx context.Context, opts playOptions, w io.Writer, logger zerolog.Logger) error {
	out := &syncWriter{w: w}
	if strings.TrimSpace(opts.chartPath) == "" {
		return errors.New("-file is required")
	}
	cfg := opts.cfg
	r, err := museplay.NewReader(opts.chartPath,
		museplay.WithLogger(logger),
		museplay.WithPollInterval(opts.pollInterval),
		museplay.WithParserConfig(chart.ParserConfig{
			NoteDelimiter:  cfg.Playback.NoteDelimiter,
			RequireOrdered: cfg.Playback.RequireOrdered,
		}),
	)
	if err != nil {
		return fmt.Errorf("load chart: %w", err)
	}
	defer r.Close()

	if opts.dryRun {
		_, err := out.Write(museplay.EncodeTimeline(museplay.RenderTimeline(r.Chart(), cfg.Playback.HitringMs)))
		return err
	}

	var clk *audio.Click
	if cfg.Click.Enabled {
		clk = audio.NewClick(cfg.Click.SampleRate, cfg.Click.FreqHz, cfg.Click.Gain, cfg.Click.Duration())
		player, err := audio.NewPlayer(cfg.Click.SampleRate, clk)
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer player.Close()
		player.Play()
	}

	delim := cfg.Playback.NoteDelimiter
	var startMs atomic.Int64
	var dispatched, notes atomic.Int64
	onStart := func(ms int64) { startMs.Store(ms) }
	onEvent := func(ev museplay.Event) {
		offset := time.Now().UnixMilli() - startMs.Load()
		dispatched.Add(1)
		if strings.Contains(ev.Label, delim) {
			notes.Add(1)
			if clk != nil {
				clk.Trigger()
			}
		}
		fmt.Fprintf(out, "%7dms  %-24s chart %dms\n", offset, ev.Label, ev.TimeMs)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	watch := r.Watch()
	began := time.Now()
	if !r.Play(cfg.Playback.HitringMs, onStart, onEvent) {
		return errors.New("playback did not start")
	}

	g.Go(func() error {
		r.Wait()
		cancel()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		r.Stop()
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-watch:
				switch ev.Kind {
				case museplay.EventPaused:
					fmt.Fprintln(out, "-- paused")
				case museplay.EventResumed:
					fmt.Fprintf(out, "-- resumed, %s absorbed\n", time.Duration(ev.ShiftMs)*time.Millisecond)
				case museplay.EventStopped:
					fmt.Fprintln(out, "-- stopped")
				}
			}
		}
	})
	if opts.pauseAt > 0 {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.pauseAt):
			}
			if !r.Pause() {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.pauseFor):
			}
			r.Play(cfg.Playback.HitringMs, onStart, onEvent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s events (%s notes) in %s\n",
		r.Snapshot().Status,
		humanize.Comma(dispatched.Load()),
		humanize.Comma(notes.Load()),
		time.Since(began).Round(time.Millisecond))
	return nil
}

// syncWriter serializes writes from the dispatch and watch goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func newLogger(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
}
