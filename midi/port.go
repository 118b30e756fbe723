package midi

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go-midiplay/debug"
	"go-midiplay/midifile"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const ccAllNotesOff = 123

// PortSink sends channel and sysex events to a MIDI output. Meta events are
// file-only and are dropped.
type PortSink struct {
	name string
	out  drivers.Out
	send func(msg gomidi.Message) error

	mu      sync.Mutex
	touched [16]bool // channels that carried notes
	sent    atomic.Uint64
}

// OpenPort finds an output port (see FindOutPort) and opens it.
func OpenPort(name string) (*PortSink, error) {
	out, err := FindOutPort(name, ScanTimeout)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	debug.Log("port", "opened %s", out.String())
	return &PortSink{name: out.String(), out: out, send: send}, nil
}

// NewSink wraps an arbitrary send function, for backends that are not a
// driver port.
func NewSink(name string, send func(msg gomidi.Message) error) *PortSink {
	return &PortSink{name: name, send: send}
}

// Name returns the port name.
func (s *PortSink) Name() string { return s.name }

// Sent returns how many messages went out.
func (s *PortSink) Sent() uint64 { return s.sent.Load() }

func (s *PortSink) Send(ev midifile.RawEvent) error {
	var msg gomidi.Message
	switch ev.Kind {
	case midifile.KindChannel:
		if ev.IsNoteOn() {
			s.mu.Lock()
			s.touched[ev.Channel()] = true
			s.mu.Unlock()
		}
		msg = gomidi.Message(ev.Data)
	case midifile.KindSysex:
		msg = sysexMessage(ev)
		if len(msg) == 0 {
			return nil
		}
	default:
		return nil
	}

	if err := s.send(msg); err != nil {
		return fmt.Errorf("send to %s: %w", s.name, err)
	}
	n := s.sent.Add(1)
	if n%500 == 0 {
		debug.Log("port", "%s sent=%d", s.name, n)
	}
	return nil
}

// sysexMessage frames a sysex event for the wire. F0 events get their
// closing F7 if the file omitted it (split sysex is sent as is); F7 escape
// events carry raw bytes.
func sysexMessage(ev midifile.RawEvent) gomidi.Message {
	payload := ev.Payload()
	if ev.Status == midifile.StatusSysexEscape {
		return gomidi.Message(payload)
	}
	msg := make([]byte, 0, len(payload)+2)
	msg = append(msg, midifile.StatusSysex)
	msg = append(msg, payload...)
	if msg[len(msg)-1] != midifile.StatusSysexEscape {
		msg = append(msg, midifile.StatusSysexEscape)
	}
	return gomidi.Message(msg)
}

// Silence sends All Notes Off on every channel that played a note.
func (s *PortSink) Silence() error {
	s.mu.Lock()
	touched := s.touched
	s.touched = [16]bool{}
	s.mu.Unlock()

	var firstErr error
	for ch, used := range touched {
		if !used {
			continue
		}
		if err := s.send(gomidi.ControlChange(uint8(ch), ccAllNotesOff, 0)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close silences hanging notes and closes the port.
func (s *PortSink) Close() error {
	err := s.Silence()
	if s.out != nil {
		// give the driver a moment to flush before the port goes away
		time.Sleep(10 * time.Millisecond)
		if cerr := s.out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	debug.Log("port", "closed %s after %d messages", s.name, s.sent.Load())
	return err
}
