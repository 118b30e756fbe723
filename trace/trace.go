// Package trace prints dispatched events to a terminal, one line each.
package trace

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"go-midiplay/midi"
	"go-midiplay/midifile"
	"go-midiplay/player"
	"go-midiplay/tempo"
	"go-midiplay/theme"
)

// Lag above this is highlighted.
const lateMark = 5 * time.Millisecond

// Printer is a player.Observer writing a colored event trace.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	th     *theme.Theme
	logger *log.Logger

	time    lipgloss.Style
	muted   lipgloss.Style
	meta    lipgloss.Style
	sysex   lipgloss.Style
	late    lipgloss.Style
	channel [16]lipgloss.Style
}

// New returns a printer writing to w. A nil theme uses the built-in palette.
func New(w io.Writer, th *theme.Theme) *Printer {
	if th == nil {
		th = theme.New(nil)
	}
	r := lipgloss.NewRenderer(w)
	p := &Printer{
		w:      w,
		th:     th,
		logger: log.NewWithOptions(w, log.Options{Prefix: "midiplay"}),
		time:   r.NewStyle().Foreground(th.FG()),
		muted:  r.NewStyle().Foreground(th.Muted()),
		meta:   r.NewStyle().Foreground(th.Meta()),
		sysex:  r.NewStyle().Foreground(th.Sysex()),
		late:   r.NewStyle().Foreground(th.Warning()).Bold(true),
	}
	for ch := range p.channel {
		p.channel[ch] = r.NewStyle().Foreground(th.Channel(uint8(ch)))
	}
	return p
}

// Header prints a summary of the file about to play.
func (p *Printer) Header(name string, f *midifile.File, m tempo.Map) {
	p.mu.Lock()
	defer p.mu.Unlock()

	events := f.Events()
	p.logger.Info("playing", "file", name,
		"format", f.Header.Format,
		"tracks", len(f.Tracks),
		"ppq", f.TicksPerQuarter(),
		"bpm", fmt.Sprintf("%.1f", m.BPMAt(0)),
		"length", m.Duration(events, f.TicksPerQuarter()).Round(time.Millisecond))
	for i := range f.Tracks {
		if tn := f.TrackName(i); tn != "" {
			fmt.Fprintf(p.w, "  %s %s\n", p.muted.Render(fmt.Sprintf("track %d", i)), tn)
		}
	}
}

// Observe implements player.Observer.
func (p *Printer) Observe(d player.Dispatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.line(d))
}

func (p *Printer) line(d player.Dispatch) string {
	ev := d.Event
	ts := p.time.Render(fmt.Sprintf("%9.3fs", d.Due.Seconds()))
	tick := p.muted.Render(fmt.Sprintf("%8d", ev.Ticks))

	var src, text string
	switch ev.Kind {
	case midifile.KindChannel:
		st := p.channel[ev.Channel()]
		src = st.Render(fmt.Sprintf("ch%-2d", ev.Channel()+1))
		text = st.Render(midi.Describe(ev))
	case midifile.KindMeta:
		src = p.meta.Render("meta")
		text = p.meta.Render(midi.Describe(ev))
	default:
		src = p.sysex.Render("sysx")
		text = p.sysex.Render(midi.Describe(ev))
	}

	out := fmt.Sprintf("%s %s %s %s %s", ts, tick, src, text, p.muted.Render(fmt.Sprintf("[%d on]", d.Active)))
	if lag := d.Lag(); lag > lateMark {
		out += " " + p.late.Render("+"+lag.Round(100*time.Microsecond).String())
	}
	return out
}

// Summary prints how the session ended.
func (p *Printer) Summary(st player.Stats, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kv := []any{"played", st.Played, "late", st.Late, "maxLag", st.MaxLag.Round(100 * time.Microsecond)}
	if err != nil {
		p.logger.Warn("stopped", append(kv, "err", err)...)
		return
	}
	p.logger.Info("done", kv...)
}
