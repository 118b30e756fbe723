package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-midiplay/midi"
	"go-midiplay/midifile"
	"go-midiplay/player"
	"go-midiplay/tempo"
	"go-midiplay/theme"
)

const (
	recentLines = 12
	barWidth    = 40
	maxNotes    = 16
	clockRate   = 100 * time.Millisecond
)

// Info is the static description of what is playing.
type Info struct {
	Name   string
	Port   string
	Tracks []string // track names, may be empty strings
	PPQ    uint16
	Tempo  tempo.Map
	Length time.Duration
	Total  int
}

type Model struct {
	Info   Info
	Theme  *theme.Theme
	feed   *Feed
	cancel context.CancelFunc

	now   func() time.Time
	start time.Time // wall time of tick 0, set by the first dispatch

	last     player.Dispatch
	seen     bool
	recent   []player.Dispatch
	notes    *player.NoteSet
	done     bool
	err      error
	quitting bool
}

type clockMsg time.Time

// DispatchMsg carries one dispatched event into the UI.
type DispatchMsg player.Dispatch

// DoneMsg reports that playback ended.
type DoneMsg struct {
	Err error
}

// NewModel builds the playback view. cancel stops playback when the user
// quits.
func NewModel(info Info, feed *Feed, th *theme.Theme, cancel context.CancelFunc) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Info:   info,
		Theme:  th,
		feed:   feed,
		cancel: cancel,
		now:    time.Now,
		notes:  &player.NoteSet{},
	}
}

func tickClock() tea.Cmd {
	return tea.Tick(clockRate, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func ListenForDispatch(feed *Feed) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-feed.ch
		if !ok {
			return nil
		}
		return DispatchMsg(d)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForDispatch(m.feed), tickClock())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.done {
			// any key leaves the final screen
			m.quitting = true
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case DispatchMsg:
		d := player.Dispatch(msg)
		if !m.seen {
			m.start = m.now().Add(-d.At)
		}
		m.last = d
		m.seen = true
		m.notes.Apply(d.Event)
		m.recent = append(m.recent, d)
		if len(m.recent) > recentLines {
			m.recent = m.recent[len(m.recent)-recentLines:]
		}
		return m, ListenForDispatch(m.feed)

	case clockMsg:
		if m.done {
			return m, nil
		}
		return m, tickClock()

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

// Quitting reports whether the user asked to stop.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	at := m.position()
	tick := m.Info.Tempo.TickAt(at, m.Info.PPQ)
	played, active := 0, 0
	if m.seen {
		played = m.last.Index + 1
		active = m.last.Active
	}

	state := "PLAY"
	switch {
	case m.done && m.err != nil:
		state = "STOP"
	case m.done:
		state = "DONE"
	}

	header := headerStyle.Render(fmt.Sprintf("midiplay  %s  %s", state, m.Info.Name))
	status := fgStyle.Render(fmt.Sprintf("%6.1fbpm  %s / %s  tick %d  %d/%d events  %d notes on",
		m.Info.Tempo.BPMAt(tick),
		formatClock(at), formatClock(m.Info.Length),
		tick, played, m.Info.Total, active))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	if m.Info.Port != "" {
		out.WriteString(dimStyle.Render(fmt.Sprintf("port: %s  ppq: %d", m.Info.Port, m.Info.PPQ)))
		out.WriteString("\n")
	}
	out.WriteString(status)
	out.WriteString("\n")
	out.WriteString(m.progressBar(at, played))
	out.WriteString("\n")
	out.WriteString(m.noteLine(dimStyle))
	out.WriteString("\n\n")

	for _, d := range m.recent {
		out.WriteString(m.eventLine(d))
		out.WriteString("\n")
	}

	if n := m.feed.Dropped(); n > 0 {
		out.WriteString(warnStyle.Render(fmt.Sprintf("%d events not shown", n)))
		out.WriteString("\n")
	}
	if m.err != nil {
		out.WriteString(warnStyle.Render(m.err.Error()))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	if m.done {
		out.WriteString(dimStyle.Render("any key:exit"))
	} else {
		out.WriteString(dimStyle.Render("q:quit"))
	}

	return out.String()
}

// position is the playback clock: wall time since the first dispatch,
// never behind the last dispatch and never past the end.
func (m Model) position() time.Duration {
	if !m.seen {
		return 0
	}
	if m.done {
		return m.last.At
	}
	at := m.now().Sub(m.start)
	if at < m.last.At {
		at = m.last.At
	}
	if m.Info.Length > 0 && at > m.Info.Length {
		at = m.Info.Length
	}
	return at
}

func (m Model) progressBar(at time.Duration, played int) string {
	filled := 0
	switch {
	case m.done && m.err == nil:
		filled = barWidth
	case m.Info.Length > 0:
		filled = int(int64(at) * barWidth / int64(m.Info.Length))
	case m.Info.Total > 0:
		filled = played * barWidth / m.Info.Total
	}
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		norm := float64(i) / float64(barWidth-1)
		if i < filled {
			b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Color(norm)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("░"))
		}
	}
	return b.String()
}

// noteLine lists sounding notes as channel:name.
func (m Model) noteLine(style lipgloss.Style) string {
	notes := m.notes.Notes()
	if len(notes) == 0 {
		return style.Render("-")
	}
	var parts []string
	for i, n := range notes {
		if i == maxNotes {
			parts = append(parts, fmt.Sprintf("+%d", len(notes)-maxNotes))
			break
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(m.Theme.Channel(n.Channel)).
			Render(fmt.Sprintf("%d:%s", n.Channel+1, midi.NoteName(n.Key))))
	}
	return strings.Join(parts, " ")
}

func (m Model) eventLine(d player.Dispatch) string {
	ev := d.Event
	var color lipgloss.Color
	switch ev.Kind {
	case midifile.KindChannel:
		color = m.Theme.Channel(ev.Channel())
	case midifile.KindMeta:
		color = m.Theme.Meta()
	default:
		color = m.Theme.Sysex()
	}
	st := lipgloss.NewStyle().Foreground(color)
	return fmt.Sprintf("%s %s %s",
		lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render(fmt.Sprintf("%8d", ev.Ticks)),
		st.Render(fmt.Sprintf("%-10s", midi.Label(ev))),
		st.Render(midi.Describe(ev)))
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
