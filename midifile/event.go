package midifile

import "fmt"

// Channel message commands (high nibble of the status byte).
const (
	NoteOff         = 0x80
	NoteOn          = 0x90
	PolyAftertouch  = 0xA0
	ControlChange   = 0xB0
	ProgramChange   = 0xC0
	ChannelPressure = 0xD0
	PitchBend       = 0xE0
)

// System status bytes that may appear in a track.
const (
	StatusSysex       = 0xF0
	StatusSysexEscape = 0xF7
	StatusMeta        = 0xFF
)

// Meta event types.
const (
	MetaSequenceNumber = 0x00
	MetaText           = 0x01
	MetaCopyright      = 0x02
	MetaTrackName      = 0x03
	MetaInstrumentName = 0x04
	MetaLyric          = 0x05
	MetaMarker         = 0x06
	MetaCuePoint       = 0x07
	MetaProgramName    = 0x08
	MetaDeviceName     = 0x09
	MetaChannelPrefix  = 0x20
	MetaPort           = 0x21
	MetaEndOfTrack     = 0x2F
	MetaSetTempo       = 0x51
	MetaSMPTEOffset    = 0x54
	MetaTimeSignature  = 0x58
	MetaKeySignature   = 0x59
	MetaSequencer      = 0x7F
)

// Kind tags the category of a decoded event.
type Kind uint8

const (
	KindChannel Kind = iota + 1
	KindMeta
	KindSysex
)

func (k Kind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindMeta:
		return "meta"
	case KindSysex:
		return "sysex"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// RawEvent is one decoded track event. Data always starts with Status:
//
//	channel: status, data1[, data2]
//	meta:    0xFF, type, payload...
//	sysex:   0xF0|0xF7, payload...
//
// Events are built once by the decoder and treated as immutable afterwards.
type RawEvent struct {
	Ticks  uint64 // absolute tick from file start
	Status byte
	Data   []byte
	Kind   Kind
	Track  int // index of the source track
}

// NewChannelEvent builds a channel voice message. data2 is ignored for
// Program Change and Channel Pressure.
func NewChannelEvent(ticks uint64, status, data1, data2 byte) RawEvent {
	data := []byte{status, data1}
	if ChannelDataLen(status) == 2 {
		data = append(data, data2)
	}
	return RawEvent{Ticks: ticks, Status: status, Data: data, Kind: KindChannel}
}

// NewMetaEvent builds a meta event of the given type.
func NewMetaEvent(ticks uint64, metaType byte, payload []byte) RawEvent {
	data := make([]byte, 0, 2+len(payload))
	data = append(data, StatusMeta, metaType)
	data = append(data, payload...)
	return RawEvent{Ticks: ticks, Status: StatusMeta, Data: data, Kind: KindMeta}
}

// NewSysexEvent builds a sysex (0xF0) or escape (0xF7) event.
func NewSysexEvent(ticks uint64, status byte, payload []byte) RawEvent {
	data := make([]byte, 0, 1+len(payload))
	data = append(data, status)
	data = append(data, payload...)
	return RawEvent{Ticks: ticks, Status: status, Data: data, Kind: KindSysex}
}

// ChannelDataLen returns how many data bytes follow a channel status byte.
func ChannelDataLen(status byte) int {
	switch status & 0xF0 {
	case ProgramChange, ChannelPressure:
		return 1
	default:
		return 2
	}
}

// Command returns the high nibble of a channel message, or 0 for other kinds.
func (e RawEvent) Command() byte {
	if e.Kind != KindChannel {
		return 0
	}
	return e.Status & 0xF0
}

// Channel returns the zero based channel of a channel message.
func (e RawEvent) Channel() uint8 {
	return e.Status & 0x0F
}

// MetaType returns the meta type byte; ok is false for non-meta events.
func (e RawEvent) MetaType() (byte, bool) {
	if e.Kind != KindMeta || len(e.Data) < 2 {
		return 0, false
	}
	return e.Data[1], true
}

// Payload returns the bytes after the framing: the channel data bytes, the
// meta payload or the sysex payload.
func (e RawEvent) Payload() []byte {
	switch e.Kind {
	case KindMeta:
		if len(e.Data) < 2 {
			return nil
		}
		return e.Data[2:]
	default:
		if len(e.Data) < 1 {
			return nil
		}
		return e.Data[1:]
	}
}

// Key and Velocity read the note fields of Note On/Off messages.
func (e RawEvent) Key() uint8 {
	if len(e.Data) < 2 {
		return 0
	}
	return e.Data[1]
}

func (e RawEvent) Velocity() uint8 {
	if len(e.Data) < 3 {
		return 0
	}
	return e.Data[2]
}

// IsNoteOn reports a Note On with non-zero velocity.
func (e RawEvent) IsNoteOn() bool {
	return e.Command() == NoteOn && e.Velocity() > 0
}

// IsNoteOff reports a Note Off, or a Note On with velocity 0.
func (e RawEvent) IsNoteOff() bool {
	switch e.Command() {
	case NoteOff:
		return true
	case NoteOn:
		return e.Velocity() == 0
	}
	return false
}

// Tempo decodes a Set Tempo meta event into microseconds per quarter note.
func (e RawEvent) Tempo() (uint32, bool) {
	if t, ok := e.MetaType(); !ok || t != MetaSetTempo || len(e.Data) < 5 {
		return 0, false
	}
	return uint32(e.Data[2])<<16 | uint32(e.Data[3])<<8 | uint32(e.Data[4]), true
}

// Text returns the payload of text-like meta events (0x01-0x09).
func (e RawEvent) Text() (string, bool) {
	t, ok := e.MetaType()
	if !ok || t < MetaText || t > MetaDeviceName {
		return "", false
	}
	return string(e.Data[2:]), true
}

// IsEndOfTrack reports the End of Track meta event.
func (e RawEvent) IsEndOfTrack() bool {
	t, ok := e.MetaType()
	return ok && t == MetaEndOfTrack
}
