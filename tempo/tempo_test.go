package tempo

import (
	"testing"
	"time"

	"go-midiplay/midifile"
)

func tempoEvent(tick uint64, us uint32) midifile.RawEvent {
	return midifile.NewMetaEvent(tick, midifile.MetaSetTempo, []byte{byte(us >> 16), byte(us >> 8), byte(us)})
}

var threeSegments = Map{{0, 500000}, {480, 600000}, {960, 400000}}

func TestBuildEmpty(t *testing.T) {
	m := Build(nil)
	if len(m) != 1 || m[0] != (Change{0, DefaultMicrosPerQuarter}) {
		t.Errorf("Build(nil) = %v want [{0 500000}]", m)
	}
}

func TestBuildTempoAtTickZero(t *testing.T) {
	m := Build([]midifile.RawEvent{tempoEvent(0, 400000)})
	want := Map{{0, 500000}, {0, 400000}}
	if len(m) != len(want) {
		t.Fatalf("Build = %v want %v", m, want)
	}
	for i := range want {
		if m[i] != want[i] {
			t.Errorf("m[%d] = %v want %v", i, m[i], want[i])
		}
	}
	// the later breakpoint is the one in effect
	if got := m.Elapsed(480, 480); got != 400*time.Millisecond {
		t.Errorf("Elapsed(480) = %v want 400ms", got)
	}
	if got := m.At(0).MicrosPerQuarter; got != 400000 {
		t.Errorf("At(0) = %d want 400000", got)
	}
}

func TestBuildSkipsOtherEvents(t *testing.T) {
	events := []midifile.RawEvent{
		midifile.NewChannelEvent(0, 0x90, 60, 100),
		midifile.NewMetaEvent(0, midifile.MetaTrackName, []byte("x")),
		tempoEvent(480, 600000),
		midifile.NewMetaEvent(500, midifile.MetaSetTempo, []byte{0x01}), // no payload
		tempoEvent(960, 400000),
	}
	m := Build(events)
	if len(m) != 3 || m[1] != (Change{480, 600000}) || m[2] != (Change{960, 400000}) {
		t.Errorf("Build = %v", m)
	}
}

func TestTicksToElapsed(t *testing.T) {
	tests := []struct {
		name string
		tick int64
		m    Map
		tpq  uint16
		want time.Duration
	}{
		{"zero tick", 0, threeSegments, 480, 0},
		{"negative tick", -100, threeSegments, 480, 0},
		{"one quarter", 480, Map{{0, 500000}}, 480, 500 * time.Millisecond},
		{"flat other resolution", 96, Map{{0, 250000}}, 96, 250 * time.Millisecond},
		{"three segments", 1440, threeSegments, 480, 1500 * time.Millisecond},
		{"partial segment", 720, threeSegments, 480, 800 * time.Millisecond},
		{"past last breakpoint", 1920, threeSegments, 480, 1900 * time.Millisecond},
		{"single tick", 1, Map{{0, 500000}}, 480, 1041666 * time.Nanosecond},
		{"zero resolution", 480, threeSegments, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TicksToElapsed(tt.tick, tt.m, tt.tpq); got != tt.want {
				t.Errorf("TicksToElapsed(%d) = %v want %v", tt.tick, got, tt.want)
			}
		})
	}
}

func TestElapsedMatchesDirectComputation(t *testing.T) {
	// a few hundred breakpoints with uneven spacing
	m := Map{{0, DefaultMicrosPerQuarter}}
	tick := uint64(0)
	for i := 0; i < 300; i++ {
		tick += uint64(37 + i%11*13)
		m = append(m, Change{tick, uint32(300000 + i*1717%400000)})
	}
	const tpq = 384
	for _, target := range []uint64{1, 500, 7777, tick, tick + 1000} {
		var micros float64
		for i, c := range m {
			start := c.Tick
			if start >= target {
				break
			}
			end := target
			if i+1 < len(m) && m[i+1].Tick < end {
				end = m[i+1].Tick
			}
			micros += float64(end-start) * float64(c.MicrosPerQuarter) / tpq
		}
		want := time.Duration(micros * 1000)
		got := m.Elapsed(int64(target), tpq)
		if diff := got - want; diff > time.Microsecond || diff < -time.Microsecond {
			t.Errorf("Elapsed(%d) = %v want %v", target, got, want)
		}
	}
}

func TestElapsedMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for tick := int64(0); tick < 2000; tick += 7 {
		got := threeSegments.Elapsed(tick, 480)
		if got < prev {
			t.Fatalf("Elapsed(%d) = %v < previous %v", tick, got, prev)
		}
		prev = got
	}
}

func TestTickAt(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want uint64
	}{
		{0, 0},
		{-time.Second, 0},
		{250 * time.Millisecond, 240},
		{500 * time.Millisecond, 480},
		{800 * time.Millisecond, 720},
		{1500 * time.Millisecond, 1440},
		{1900 * time.Millisecond, 1920},
	}
	for _, tt := range tests {
		if got := threeSegments.TickAt(tt.d, 480); got != tt.want {
			t.Errorf("TickAt(%v) = %d want %d", tt.d, got, tt.want)
		}
	}
}

func TestBPMAt(t *testing.T) {
	if got := threeSegments.BPMAt(0); got != 120 {
		t.Errorf("BPMAt(0) = %v want 120", got)
	}
	if got := threeSegments.BPMAt(500); got != 100 {
		t.Errorf("BPMAt(500) = %v want 100", got)
	}
	if got := threeSegments.BPMAt(5000); got != 150 {
		t.Errorf("BPMAt(5000) = %v want 150", got)
	}
}

func TestDuration(t *testing.T) {
	events := []midifile.RawEvent{
		midifile.NewChannelEvent(0, 0x90, 60, 1),
		midifile.NewChannelEvent(1440, 0x80, 60, 0),
	}
	if got := threeSegments.Duration(events, 480); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v want 1.5s", got)
	}
	if got := threeSegments.Duration(nil, 480); got != 0 {
		t.Errorf("Duration(nil) = %v", got)
	}
}
