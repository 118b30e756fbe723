package midifile

import (
	"github.com/pkg/errors"
)

const (
	tagHeader = "MThd"
	tagTrack  = "MTrk"

	headerDataLen = 6
	smpteFlag     = 0x8000
)

// Header holds the MThd fields in file order.
type Header struct {
	Length   uint32
	Format   uint16
	Tracks   uint16 // declared track count
	Division uint16
}

// File is a decoded Standard MIDI File. Tracks holds one list per MTrk
// chunk, each sorted by tick by construction.
type File struct {
	Header Header
	Tracks [][]RawEvent
}

// TicksPerQuarter returns the metrical time division.
func (f *File) TicksPerQuarter() uint16 {
	return f.Header.Division
}

// Events returns all tracks merged into one tick ordered sequence.
func (f *File) Events() []RawEvent {
	return Merge(f.Tracks)
}

// TrackName returns the first track name meta event of track i.
func (f *File) TrackName(i int) string {
	if i < 0 || i >= len(f.Tracks) {
		return ""
	}
	for _, ev := range f.Tracks[i] {
		if t, ok := ev.MetaType(); ok && t == MetaTrackName {
			return string(ev.Payload())
		}
	}
	return ""
}

// Decode parses a complete SMF byte buffer. Nothing is returned on error:
// a malformed file is never partially played.
func Decode(buf []byte) (*File, error) {
	r := NewReader(buf)

	hdr, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	f := &File{Header: hdr}
	for i := 0; i < int(hdr.Tracks); i++ {
		if r.Remaining() < len(tagTrack) {
			break
		}
		start := r.Offset()
		tag, _ := r.ReadTag()
		if tag != tagTrack {
			// an unknown chunk where a track should be ends the scan
			r.Seek(start)
			break
		}
		events, err := decodeTrack(r, i)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		f.Tracks = append(f.Tracks, events)
	}
	return f, nil
}

func decodeHeader(r *Reader) (Header, error) {
	var h Header

	tag, err := r.ReadTag()
	if err != nil || tag != tagHeader {
		return h, errors.WithStack(&FormatError{Offset: 0, Msg: "missing MThd header tag"})
	}
	if h.Length, err = r.ReadUint32(); err != nil {
		return h, errors.WithStack(err)
	}
	if h.Length < headerDataLen {
		return h, errors.WithStack(&FormatError{Offset: 4, Msg: "header chunk shorter than 6 bytes"})
	}
	if h.Format, err = r.ReadUint16(); err != nil {
		return h, errors.WithStack(err)
	}
	if h.Tracks, err = r.ReadUint16(); err != nil {
		return h, errors.WithStack(err)
	}
	if h.Division, err = r.ReadUint16(); err != nil {
		return h, errors.WithStack(err)
	}
	if h.Division&smpteFlag != 0 {
		return h, errors.WithStack(&UnsupportedFormatError{Offset: 12, Msg: "SMPTE time division"})
	}
	if h.Division == 0 {
		return h, errors.WithStack(&FormatError{Offset: 12, Msg: "zero ticks per quarter note"})
	}
	if extra := int(h.Length) - headerDataLen; extra > 0 {
		if err := r.Skip(extra); err != nil {
			return h, errors.WithStack(err)
		}
	}
	return h, nil
}

// decodeTrack reads one MTrk body; the cursor sits right after the tag.
func decodeTrack(r *Reader, track int) ([]RawEvent, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	end := r.Offset() + int(length)
	if end > len(r.buf) {
		return nil, &TruncatedDataError{Offset: r.Offset(), Want: int(length), Limit: len(r.buf)}
	}
	prev := r.SetLimit(end)
	defer r.SetLimit(prev)

	var (
		events  []RawEvent
		tick    uint64
		running byte
	)
	for r.Offset() < end {
		delta, err := r.ReadVLQ()
		if err != nil {
			return nil, err
		}
		tick += uint64(delta)

		at := r.Offset()
		status, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if status < 0x80 {
			if running == 0 {
				return nil, &FormatError{Offset: at, Msg: "data byte without running status"}
			}
			r.UnreadByte()
			status = running
		}

		var ev RawEvent
		switch {
		case status < 0xF0:
			running = status
			ev, err = readChannel(r, tick, status)
		case status == StatusMeta:
			// meta and sysex leave the channel running status alone
			ev, err = readMeta(r, tick)
		case status == StatusSysex || status == StatusSysexEscape:
			ev, err = readSysex(r, tick, status)
		default:
			return nil, &UnsupportedFormatError{Offset: at, Msg: "undefined status byte"}
		}
		if err != nil {
			return nil, err
		}
		ev.Track = track
		events = append(events, ev)
	}
	return events, nil
}

func readChannel(r *Reader, tick uint64, status byte) (RawEvent, error) {
	d1, err := r.ReadByte()
	if err != nil {
		return RawEvent{}, err
	}
	var d2 byte
	if ChannelDataLen(status) == 2 {
		if d2, err = r.ReadByte(); err != nil {
			return RawEvent{}, err
		}
	}
	return NewChannelEvent(tick, status, d1, d2), nil
}

func readMeta(r *Reader, tick uint64) (RawEvent, error) {
	metaType, err := r.ReadByte()
	if err != nil {
		return RawEvent{}, err
	}
	n, err := r.ReadVLQ()
	if err != nil {
		return RawEvent{}, err
	}
	payload, err := r.ReadBytes(int(n))
	if err != nil {
		return RawEvent{}, err
	}
	return NewMetaEvent(tick, metaType, payload), nil
}

func readSysex(r *Reader, tick uint64, status byte) (RawEvent, error) {
	n, err := r.ReadVLQ()
	if err != nil {
		return RawEvent{}, err
	}
	payload, err := r.ReadBytes(int(n))
	if err != nil {
		return RawEvent{}, err
	}
	return NewSysexEvent(tick, status, payload), nil
}
