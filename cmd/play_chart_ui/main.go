package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/cbegin/museplay-go"
	"github.com/cbegin/museplay-go/internal/chart"
	"github.com/cbegin/museplay-go/internal/config"
)

const (
	historyLen   = 12
	refreshEvery = 50 * time.Millisecond
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	otherStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 2)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type startMsg struct{ startMs int64 }

type eventMsg struct {
	ev   museplay.Event
	atMs int64
}

type tickMsg time.Time

type firedEvent struct {
	label    string
	timeMs   int64
	offsetMs int64
	note     bool
}

type model struct {
	path    string
	delim   string
	session *museplay.Session
	feed    <-chan tea.Msg

	width   int
	startMs int64
	history []firedEvent
	fired   int
	err     error
}

func main() {
	var (
		configPath = flag.String("config", "", "config file (default: user config dir)")
		hitring    = flag.Int64("hitring", -1, "note lead time in ms (overrides config when >= 0)")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: play_chart_ui [-config path] [-hitring ms] <chart file>")
		os.Exit(2)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
	}
	if *hitring >= 0 {
		cfg.Playback.HitringMs = *hitring
	}

	// The alt screen owns the terminal, so logs go to a file next to the config.
	logger := zerolog.Nop()
	if dir, err := config.Dir(); err == nil {
		if f, err := os.OpenFile(filepath.Join(dir, "play_chart_ui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			defer f.Close()
			logger = zerolog.New(f).With().Timestamp().Logger()
		}
	}

	feed := make(chan tea.Msg, 256)
	send := func(msg tea.Msg) {
		select {
		case feed <- msg:
		default:
		}
	}
	s := museplay.NewSession(
		museplay.WithHitring(cfg.Playback.HitringMs),
		museplay.WithSessionLogger(logger),
		museplay.WithReaderOptions(
			museplay.WithLogger(logger),
			museplay.WithPollInterval(cfg.Playback.PollInterval()),
			museplay.WithParserConfig(chart.ParserConfig{
				NoteDelimiter:  cfg.Playback.NoteDelimiter,
				RequireOrdered: cfg.Playback.RequireOrdered,
			}),
		),
		museplay.WithStartHandler(func(ms int64) { send(startMsg{startMs: ms}) }),
	)
	defer s.Close()
	s.HandleDefault(func(ev museplay.Event) {
		send(eventMsg{ev: ev, atMs: time.Now().UnixMilli()})
	})

	m := model{path: flag.Arg(0), delim: cfg.Playback.NoteDelimiter, session: s, feed: feed}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func waitForFeed(feed <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-feed
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.restart(), waitForFeed(m.feed), tick())
}

func (m model) restart() tea.Cmd {
	return func() tea.Msg {
		return errMsg{m.session.Start(m.path)}
	}
}

type errMsg struct{ err error }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		return m, tick()
	case errMsg:
		m.err = msg.err
		return m, nil
	case startMsg:
		m.startMs = msg.startMs
		return m, waitForFeed(m.feed)
	case eventMsg:
		m.fired++
		m.history = append(m.history, firedEvent{
			label:    msg.ev.Label,
			timeMs:   msg.ev.TimeMs,
			offsetMs: msg.atMs - m.startMs,
			note:     strings.Contains(msg.ev.Label, m.delim),
		})
		if len(m.history) > historyLen {
			m.history = m.history[len(m.history)-historyLen:]
		}
		return m, waitForFeed(m.feed)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.session.Stop()
			return m, tea.Quit
		case " ":
			if m.session.Reader() == nil {
				m.resetView()
				return m, m.restart()
			}
			var err error
			if m.status() == museplay.StatusRunning {
				err = m.session.Pause()
			} else {
				if m.status() != museplay.StatusPaused {
					m.resetView()
				}
				err = m.session.Resume()
			}
			m.err = err
			return m, nil
		case "s":
			m.session.Stop()
			return m, nil
		case "r":
			m.resetView()
			return m, m.restart()
		}
	}
	return m, nil
}

func (m *model) resetView() {
	m.history = nil
	m.fired = 0
	m.err = nil
}

func (m model) status() museplay.Status {
	r := m.session.Reader()
	if r == nil {
		return museplay.StatusStopped
	}
	return r.Snapshot().Status
}

func (m model) elapsedMs() int64 {
	r := m.session.Reader()
	if r == nil {
		return 0
	}
	snap := r.Snapshot()
	switch snap.Status {
	case museplay.StatusRunning:
		return time.Now().UnixMilli() - snap.StartMs
	case museplay.StatusPaused:
		return snap.PauseMs - snap.StartMs
	}
	return 0
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("museplay") + "  " + statusStyle.Render(m.path) + "\n\n")

	var rows []string
	for _, fe := range m.history {
		style := otherStyle
		if fe.note {
			style = noteStyle
		}
		rows = append(rows, fmt.Sprintf("%7dms  %s  %s",
			fe.offsetMs, style.Render(fmt.Sprintf("%-20s", fe.label)), statusStyle.Render(fmt.Sprintf("chart %dms", fe.timeMs))))
	}
	if len(rows) == 0 {
		rows = append(rows, statusStyle.Render("no events yet"))
	}
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")) + "\n")

	if m.err != nil {
		msg := m.err.Error()
		if errors.Is(m.err, museplay.ErrNoChart) {
			msg = "no chart loaded, press r to load"
		}
		b.WriteString(errStyle.Render(msg) + "\n")
	}

	pending := 0
	if r := m.session.Reader(); r != nil {
		snap := r.Snapshot()
		pending = snap.PendingNotes + snap.PendingOthers
	}
	bar := fmt.Sprintf("%s  %s  fired %s  pending %s",
		m.status(),
		(time.Duration(m.elapsedMs()) * time.Millisecond).Round(10*time.Millisecond),
		humanize.Comma(int64(m.fired)),
		humanize.Comma(int64(pending)))
	b.WriteString(statusBarStyle.Render(bar) + "\n")
	b.WriteString(footerStyle.Render("space pause/resume  s stop  r restart  q quit"))
	return b.String()
}
