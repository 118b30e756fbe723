package tui

import (
	"sync/atomic"

	"go-midiplay/player"
)

// Feed hands dispatches from the playback goroutine to the UI without
// ever blocking playback. When the buffer is full the dispatch is dropped
// and counted.
type Feed struct {
	ch      chan player.Dispatch
	dropped atomic.Uint64
}

func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan player.Dispatch, size)}
}

// Observe implements player.Observer.
func (f *Feed) Observe(d player.Dispatch) {
	select {
	case f.ch <- d:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many dispatches the UI never saw.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }
