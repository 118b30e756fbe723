// Package player replays a merged SMF event sequence against the wall
// clock and hands every event to a Sink.
package player

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"go-midiplay/midifile"
	"go-midiplay/tempo"
)

// State of a playback session.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Dispatches later than this count as late in Stats.
const defaultLateThreshold = 5 * time.Millisecond

// Stats summarises a session.
type Stats struct {
	Played int
	Late   int
	MaxLag time.Duration
}

// Player runs one playback session. A Player is single use.
type Player struct {
	events []midifile.RawEvent
	tempo  tempo.Map
	tpq    uint16
	sink   Sink

	observers     []Observer
	logger        *log.Logger
	lateThreshold time.Duration

	state atomic.Int32

	mu    sync.Mutex
	stats Stats
}

// Option configures a Player.
type Option func(*Player)

// WithObserver adds an observer called after every dispatch.
func WithObserver(o Observer) Option {
	return func(p *Player) { p.observers = append(p.observers, o) }
}

// WithLogger sets the logger used for per-event debug output.
func WithLogger(l *log.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// WithLateThreshold sets the lag above which a dispatch counts as late.
func WithLateThreshold(d time.Duration) Option {
	return func(p *Player) { p.lateThreshold = d }
}

// New creates a player for tick ordered events.
func New(events []midifile.RawEvent, m tempo.Map, ticksPerQuarter uint16, sink Sink, opts ...Option) *Player {
	if sink == nil {
		sink = Discard
	}
	p := &Player{
		events:        events,
		tempo:         m,
		tpq:           ticksPerQuarter,
		sink:          sink,
		logger:        log.New(io.Discard),
		lateThreshold: defaultLateThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ForFile merges the file's tracks, builds its tempo map and returns a
// player for the result.
func ForFile(f *midifile.File, sink Sink, opts ...Option) *Player {
	events := f.Events()
	return New(events, tempo.Build(events), f.TicksPerQuarter(), sink, opts...)
}

// Events returns the merged sequence the player dispatches.
func (p *Player) Events() []midifile.RawEvent { return p.events }

// Tempo returns the tempo map in use.
func (p *Player) Tempo() tempo.Map { return p.tempo }

// TicksPerQuarter returns the file resolution.
func (p *Player) TicksPerQuarter() uint16 { return p.tpq }

// State returns the current session state.
func (p *Player) State() State { return State(p.state.Load()) }

// Stats returns a snapshot of the session counters.
func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Play dispatches every event at t0 + elapsed(event tick), where t0 is
// taken once at start. Late events are sent immediately, never skipped.
//
// Play returns nil after the last event, a *CancelledError when ctx is
// done, or a *DispatchError when the sink fails.
func (p *Player) Play(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrStarted
	}

	var notes NoteSet
	total := len(p.events)
	p.logger.Debug("play", "events", total, "ppq", p.tpq, "tempos", len(p.tempo))

	t0 := time.Now()
	for i, ev := range p.events {
		if err := ctx.Err(); err != nil {
			return p.cancel(i, err)
		}

		due := p.tempo.Elapsed(int64(ev.Ticks), p.tpq)
		if wait := due - time.Since(t0); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return p.cancel(i, ctx.Err())
			case <-timer.C:
			}
		}

		at := time.Since(t0)
		if err := p.sink.Send(ev); err != nil {
			p.state.Store(int32(StateFailed))
			p.logger.Error("sink failed", "index", i, "tick", ev.Ticks, "err", err)
			return &DispatchError{Index: i, Played: i, Err: err}
		}
		notes.Apply(ev)
		p.record(at - due)

		p.logger.Debug("dispatch", "index", i, "tick", ev.Ticks, "due", due, "lag", at-due, "data", ev.Data)

		d := Dispatch{
			Index:  i,
			Total:  total,
			Event:  ev,
			Due:    due,
			At:     at,
			Active: notes.Len(),
		}
		for _, o := range p.observers {
			o.Observe(d)
		}
	}

	p.state.Store(int32(StateCompleted))
	p.logger.Debug("completed", "played", total, "elapsed", time.Since(t0))
	return nil
}

func (p *Player) record(lag time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Played++
	if lag > p.lateThreshold {
		p.stats.Late++
	}
	if lag > p.stats.MaxLag {
		p.stats.MaxLag = lag
	}
}

func (p *Player) cancel(played int, cause error) error {
	p.state.Store(int32(StateCancelled))
	p.logger.Debug("cancelled", "played", played)
	return &CancelledError{Played: played, Cause: cause}
}
