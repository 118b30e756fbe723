package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-midiplay/midifile"
	"go-midiplay/tempo"
)

type recordingSink struct {
	mu     sync.Mutex
	events []midifile.RawEvent
	delay  time.Duration
	failAt int // index that fails, -1 for never
	err    error
}

func newRecordingSink() *recordingSink { return &recordingSink{failAt: -1} }

func (s *recordingSink) Send(ev midifile.RawEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == s.failAt {
		return s.err
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) sent() []midifile.RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]midifile.RawEvent(nil), s.events...)
}

func noteOn(tick uint64, key uint8) midifile.RawEvent {
	return midifile.NewChannelEvent(tick, 0x90, key, 100)
}

func noteOff(tick uint64, key uint8) midifile.RawEvent {
	return midifile.NewChannelEvent(tick, 0x80, key, 0)
}

var flat = tempo.Map{{Tick: 0, MicrosPerQuarter: tempo.DefaultMicrosPerQuarter}}

func TestPlayDispatchesOnSchedule(t *testing.T) {
	// 480 ppq at 120 BPM: 48 ticks = 50ms
	events := []midifile.RawEvent{noteOn(0, 60), noteOn(48, 62), noteOff(96, 60), noteOff(96, 62)}
	sink := newRecordingSink()
	var got []Dispatch
	p := New(events, flat, 480, sink, WithObserver(ObserverFunc(func(d Dispatch) {
		got = append(got, d)
	})))

	start := time.Now()
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	elapsed := time.Since(start)

	if p.State() != StateCompleted {
		t.Errorf("State() = %v want completed", p.State())
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("playback took %v, want at least 100ms", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("playback took %v", elapsed)
	}

	sent := sink.sent()
	if len(sent) != len(events) {
		t.Fatalf("sink got %d events want %d", len(sent), len(events))
	}
	wantDue := []time.Duration{0, 50 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}
	for i, d := range got {
		if d.Index != i || d.Total != len(events) {
			t.Errorf("dispatch %d: index %d total %d", i, d.Index, d.Total)
		}
		if d.Due != wantDue[i] {
			t.Errorf("dispatch %d: due %v want %v", i, d.Due, wantDue[i])
		}
		if d.At < d.Due {
			t.Errorf("dispatch %d went out early: at %v due %v", i, d.At, d.Due)
		}
		if sent[i].Ticks != events[i].Ticks || sent[i].Key() != events[i].Key() {
			t.Errorf("sink event %d = %+v want %+v", i, sent[i], events[i])
		}
	}
	if st := p.Stats(); st.Played != 4 {
		t.Errorf("Stats().Played = %d want 4", st.Played)
	}
}

func TestPlayFollowsTempoChange(t *testing.T) {
	events := []midifile.RawEvent{
		midifile.NewMetaEvent(0, midifile.MetaSetTempo, []byte{0x03, 0xD0, 0x90}), // 250000
		noteOn(48, 60),
	}
	m := tempo.Build(events)
	var dues []time.Duration
	p := New(events, m, 96, nil, WithObserver(ObserverFunc(func(d Dispatch) {
		dues = append(dues, d.Due)
	})))
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(dues) != 2 || dues[1] != 125*time.Millisecond {
		t.Errorf("dues = %v want [0 125ms]", dues)
	}
}

func TestPlayActiveNotes(t *testing.T) {
	events := []midifile.RawEvent{
		noteOn(0, 60),
		noteOn(0, 64),
		midifile.NewChannelEvent(0, 0xB0, 7, 100),
		noteOff(0, 60),
		midifile.NewChannelEvent(0, 0x90, 64, 0),
	}
	var active []int
	p := New(events, flat, 96, nil, WithObserver(ObserverFunc(func(d Dispatch) {
		active = append(active, d.Active)
	})))
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	want := []int{1, 2, 2, 1, 0}
	for i := range want {
		if active[i] != want[i] {
			t.Errorf("active = %v want %v", active, want)
			break
		}
	}
}

func TestPlayCancelDuringWait(t *testing.T) {
	// second event is ten seconds out
	events := []midifile.RawEvent{noteOn(0, 60), noteOff(9600, 60)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newRecordingSink()
	p := New(events, flat, 480, sink, WithObserver(ObserverFunc(func(d Dispatch) {
		if d.Index == 0 {
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
		}
	})))

	start := time.Now()
	err := p.Play(ctx)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v want cancelled", err)
	}
	var ce *CancelledError
	if !errors.As(err, &ce) || ce.Played != 1 {
		t.Errorf("CancelledError = %+v want Played 1", ce)
	}
	if p.State() != StateCancelled {
		t.Errorf("State() = %v want cancelled", p.State())
	}
	if n := len(sink.sent()); n != 1 {
		t.Errorf("sink got %d events want 1", n)
	}
}

func TestPlayCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newRecordingSink()
	err := New([]midifile.RawEvent{noteOn(0, 60)}, flat, 96, sink).Play(ctx)
	var ce *CancelledError
	if !errors.As(err, &ce) || ce.Played != 0 {
		t.Fatalf("err = %v want CancelledError with Played 0", err)
	}
	if len(sink.sent()) != 0 {
		t.Errorf("sink received events after cancellation")
	}
}

func TestPlayDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := New([]midifile.RawEvent{noteOn(0, 60), noteOn(4800, 61)}, flat, 480, nil).Play(ctx)
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v want cancelled by deadline", err)
	}
}

func TestPlaySinkError(t *testing.T) {
	errPort := errors.New("port closed")
	sink := newRecordingSink()
	sink.failAt = 1
	sink.err = errPort

	observed := 0
	events := []midifile.RawEvent{noteOn(0, 60), noteOn(0, 61), noteOn(0, 62)}
	p := New(events, flat, 96, sink, WithObserver(ObserverFunc(func(Dispatch) { observed++ })))
	err := p.Play(context.Background())

	if !errors.Is(err, errPort) {
		t.Fatalf("err = %v want %v", err, errPort)
	}
	var de *DispatchError
	if !errors.As(err, &de) || de.Index != 1 || de.Played != 1 {
		t.Errorf("DispatchError = %+v", de)
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("sink failure reported as cancellation")
	}
	if p.State() != StateFailed {
		t.Errorf("State() = %v want failed", p.State())
	}
	if observed != 1 || len(sink.sent()) != 1 {
		t.Errorf("observed %d, sent %d; want 1, 1", observed, len(sink.sent()))
	}
}

func TestPlayLateEventsAreNotSkipped(t *testing.T) {
	sink := newRecordingSink()
	sink.delay = 30 * time.Millisecond
	// 1 tick = ~1ms at 480 ppq; the slow sink puts every later event behind
	events := []midifile.RawEvent{noteOn(0, 60), noteOn(1, 61), noteOn(2, 62), noteOn(3, 63)}
	p := New(events, flat, 480, sink)
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if n := len(sink.sent()); n != 4 {
		t.Errorf("sink got %d events want 4", n)
	}
	st := p.Stats()
	if st.Late < 1 || st.MaxLag < 20*time.Millisecond {
		t.Errorf("Stats() = %+v, want late dispatches recorded", st)
	}
}

func TestPlayOnce(t *testing.T) {
	p := New(nil, flat, 96, nil)
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("first Play: %v", err)
	}
	if p.State() != StateCompleted {
		t.Errorf("empty playback state = %v", p.State())
	}
	if err := p.Play(context.Background()); !errors.Is(err, ErrStarted) {
		t.Errorf("second Play: err = %v want ErrStarted", err)
	}
}

func TestForFile(t *testing.T) {
	f := &midifile.File{
		Header: midifile.Header{Format: 1, Tracks: 2, Division: 96},
		Tracks: [][]midifile.RawEvent{
			{midifile.NewMetaEvent(0, midifile.MetaSetTempo, []byte{0x07, 0xA1, 0x20})},
			{noteOn(0, 60), noteOff(96, 60)},
		},
	}
	p := ForFile(f, nil)
	if len(p.Events()) != 3 || p.TicksPerQuarter() != 96 {
		t.Errorf("ForFile events=%d ppq=%d", len(p.Events()), p.TicksPerQuarter())
	}
	if m := p.Tempo(); len(m) != 2 || m[1].MicrosPerQuarter != 500000 {
		t.Errorf("ForFile tempo = %v", m)
	}
}
