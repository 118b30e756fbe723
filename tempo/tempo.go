// Package tempo turns Set Tempo meta events into a tempo map and converts
// tick positions to elapsed wall-clock time.
package tempo

import (
	"time"

	"go-midiplay/midifile"
)

// DefaultMicrosPerQuarter is the SMF default tempo, 120 BPM.
const DefaultMicrosPerQuarter = 500000

const microsPerMinute = 60_000_000

// Change is a tempo breakpoint.
type Change struct {
	Tick             uint64
	MicrosPerQuarter uint32
}

// BPM returns the tempo in beats per minute.
func (c Change) BPM() float64 {
	if c.MicrosPerQuarter == 0 {
		return 0
	}
	return microsPerMinute / float64(c.MicrosPerQuarter)
}

// Map is an ordered list of breakpoints. The first entry is always the
// default at tick 0; several entries may share a tick and the last of them
// is the one in effect.
type Map []Change

// Build scans tick ordered events for Set Tempo and appends one breakpoint
// per event after the default. A tempo at tick 0 does not replace the
// default, it follows it.
func Build(events []midifile.RawEvent) Map {
	m := Map{{Tick: 0, MicrosPerQuarter: DefaultMicrosPerQuarter}}
	for _, ev := range events {
		if ev.Status != midifile.StatusMeta {
			continue
		}
		us, ok := ev.Tempo()
		if !ok {
			continue
		}
		m = append(m, Change{Tick: ev.Ticks, MicrosPerQuarter: us})
	}
	return m
}

// TicksToElapsed maps an absolute tick to elapsed time from tick 0.
// Negative and zero ticks map to zero.
func TicksToElapsed(tick int64, m Map, ticksPerQuarter uint16) time.Duration {
	return m.Elapsed(tick, ticksPerQuarter)
}

// Elapsed integrates the map piecewise up to tick.
func (m Map) Elapsed(tick int64, ticksPerQuarter uint16) time.Duration {
	if tick <= 0 || ticksPerQuarter == 0 || len(m) == 0 {
		return 0
	}
	target := uint64(tick)

	// Every segment shares the ticksPerQuarter denominator, so the sum of
	// ticks*us is kept exact and divided once.
	var num, cur uint64
	for i, c := range m {
		if cur >= target {
			break
		}
		end := target
		if i+1 < len(m) && m[i+1].Tick < end {
			end = m[i+1].Tick
		}
		if end <= cur {
			continue
		}
		num += (end - cur) * uint64(c.MicrosPerQuarter)
		cur = end
	}
	return microsToDuration(num, uint64(ticksPerQuarter))
}

// microsToDuration returns num/tpq microseconds with nanosecond resolution.
func microsToDuration(num, tpq uint64) time.Duration {
	whole := num / tpq
	frac := num % tpq
	return time.Duration(whole)*time.Microsecond + time.Duration(frac*1000/tpq)
}

// TickAt is the inverse of Elapsed: the last tick reached after d.
func (m Map) TickAt(d time.Duration, ticksPerQuarter uint16) uint64 {
	if d <= 0 || ticksPerQuarter == 0 || len(m) == 0 {
		return 0
	}
	tpq := uint64(ticksPerQuarter)
	left := uint64(d.Nanoseconds())
	var cur uint64
	for i, c := range m {
		us := uint64(c.MicrosPerQuarter)
		if us == 0 {
			continue
		}
		if i+1 < len(m) {
			next := m[i+1].Tick
			if next <= cur {
				continue
			}
			span := microsToDuration((next-cur)*us, tpq)
			if uint64(span) <= left {
				left -= uint64(span)
				cur = next
				continue
			}
		}
		return cur + left*tpq/(us*1000)
	}
	return cur
}

// At returns the breakpoint in effect at tick.
func (m Map) At(tick uint64) Change {
	if len(m) == 0 {
		return Change{MicrosPerQuarter: DefaultMicrosPerQuarter}
	}
	cur := m[0]
	for _, c := range m[1:] {
		if c.Tick > tick {
			break
		}
		cur = c
	}
	return cur
}

// BPMAt returns the tempo in beats per minute at tick.
func (m Map) BPMAt(tick uint64) float64 {
	return m.At(tick).BPM()
}

// Duration returns the elapsed time of the last event.
func (m Map) Duration(events []midifile.RawEvent, ticksPerQuarter uint16) time.Duration {
	if len(events) == 0 {
		return 0
	}
	return m.Elapsed(int64(events[len(events)-1].Ticks), ticksPerQuarter)
}
