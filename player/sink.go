package player

import (
	"time"

	"go-midiplay/midifile"
)

// Sink produces sound for dispatched events. Send must not block
// indefinitely; a stalled sink stalls playback.
type Sink interface {
	Send(ev midifile.RawEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev midifile.RawEvent) error

func (f SinkFunc) Send(ev midifile.RawEvent) error { return f(ev) }

// Discard accepts every event and does nothing.
var Discard Sink = SinkFunc(func(midifile.RawEvent) error { return nil })

// Dispatch describes one event right after the sink accepted it.
type Dispatch struct {
	Index  int               // position in the merged sequence
	Total  int               // length of the merged sequence
	Event  midifile.RawEvent // must not be modified
	Due    time.Duration     // scheduled offset from playback start
	At     time.Duration     // actual offset when sent
	Active int               // sounding notes after this event
}

// Lag is how late the event went out.
func (d Dispatch) Lag() time.Duration {
	return d.At - d.Due
}

// Observer receives a copy of every dispatched event, on the playback
// goroutine. Implementations that do slow work should hand off to their
// own goroutine.
type Observer interface {
	Observe(d Dispatch)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Dispatch)

func (f ObserverFunc) Observe(d Dispatch) { f(d) }
