package midi

import (
	"bytes"
	"errors"
	"testing"

	"go-midiplay/midifile"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type capture struct {
	msgs [][]byte
	err  error
}

func (c *capture) send(msg gomidi.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, append([]byte(nil), msg...))
	return nil
}

func TestPortSinkSend(t *testing.T) {
	var c capture
	s := NewSink("test", c.send)

	events := []midifile.RawEvent{
		midifile.NewChannelEvent(0, 0x92, 60, 100),
		midifile.NewMetaEvent(0, midifile.MetaSetTempo, []byte{0x07, 0xA1, 0x20}),
		midifile.NewChannelEvent(0, 0xC2, 7, 0),
		midifile.NewSysexEvent(0, 0xF0, []byte{0x7E, 0x7F, 0x09, 0x01, 0xF7}),
		midifile.NewSysexEvent(0, 0xF0, []byte{0x41, 0x10}),
		midifile.NewSysexEvent(0, 0xF7, []byte{0xF8}),
		midifile.NewSysexEvent(0, 0xF7, nil),
	}
	for _, ev := range events {
		if err := s.Send(ev); err != nil {
			t.Fatalf("Send(%+v): %v", ev, err)
		}
	}
	want := [][]byte{
		{0x92, 60, 100},
		{0xC2, 7},
		{0xF0, 0x7E, 0x7F, 0x09, 0x01, 0xF7},
		{0xF0, 0x41, 0x10, 0xF7},
		{0xF8},
	}
	if len(c.msgs) != len(want) {
		t.Fatalf("sent %d messages want %d: % X", len(c.msgs), len(want), c.msgs)
	}
	for i := range want {
		if !bytes.Equal(c.msgs[i], want[i]) {
			t.Errorf("message %d = % X want % X", i, c.msgs[i], want[i])
		}
	}
	if s.Sent() != uint64(len(want)) {
		t.Errorf("Sent() = %d want %d", s.Sent(), len(want))
	}
}

func TestPortSinkError(t *testing.T) {
	errDown := errors.New("device unplugged")
	s := NewSink("test", (&capture{err: errDown}).send)
	err := s.Send(midifile.NewChannelEvent(0, 0x90, 60, 1))
	if !errors.Is(err, errDown) {
		t.Errorf("err = %v want %v", err, errDown)
	}
}

func TestPortSinkCloseSilencesUsedChannels(t *testing.T) {
	var c capture
	s := NewSink("test", c.send)
	s.Send(midifile.NewChannelEvent(0, 0x90, 60, 100))
	s.Send(midifile.NewChannelEvent(0, 0x99, 36, 100))
	s.Send(midifile.NewChannelEvent(0, 0xB4, 7, 100)) // no note on channel 4
	c.msgs = nil

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := [][]byte{{0xB0, 123, 0}, {0xB9, 123, 0}}
	if len(c.msgs) != len(want) {
		t.Fatalf("Close sent % X want % X", c.msgs, want)
	}
	for i := range want {
		if !bytes.Equal(c.msgs[i], want[i]) {
			t.Errorf("message %d = % X want % X", i, c.msgs[i], want[i])
		}
	}
	c.msgs = nil
	if err := s.Silence(); err != nil || len(c.msgs) != 0 {
		t.Errorf("second Silence sent % X, %v", c.msgs, err)
	}
}
