package midi

import (
	"fmt"

	"go-midiplay/midifile"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Describe renders an event as one line of text.
func Describe(ev midifile.RawEvent) string {
	switch ev.Kind {
	case midifile.KindChannel:
		return gomidi.Message(ev.Data).String()
	case midifile.KindMeta:
		return smfMessage(ev).String()
	case midifile.KindSysex:
		if ev.Status == midifile.StatusSysexEscape {
			return fmt.Sprintf("SysExEscape len: %d", len(ev.Payload()))
		}
		return sysexMessage(ev).String()
	}
	return fmt.Sprintf("Unknown % X", ev.Data)
}

// Label returns a short event name for compact views.
func Label(ev midifile.RawEvent) string {
	switch ev.Kind {
	case midifile.KindChannel:
		switch ev.Command() {
		case midifile.NoteOn:
			if ev.Velocity() == 0 {
				return "note-off"
			}
			return "note-on"
		case midifile.NoteOff:
			return "note-off"
		case midifile.PolyAftertouch:
			return "poly-at"
		case midifile.ControlChange:
			return "cc"
		case midifile.ProgramChange:
			return "program"
		case midifile.ChannelPressure:
			return "pressure"
		case midifile.PitchBend:
			return "bend"
		}
	case midifile.KindMeta:
		t, _ := ev.MetaType()
		switch t {
		case midifile.MetaSetTempo:
			return "tempo"
		case midifile.MetaTrackName:
			return "track-name"
		case midifile.MetaEndOfTrack:
			return "end"
		case midifile.MetaTimeSignature:
			return "time-sig"
		case midifile.MetaKeySignature:
			return "key-sig"
		case midifile.MetaLyric:
			return "lyric"
		case midifile.MetaMarker:
			return "marker"
		}
		return "meta"
	case midifile.KindSysex:
		return "sysex"
	}
	return "unknown"
}

// smfMessage rebuilds the file encoding of a meta event (FF type len data).
func smfMessage(ev midifile.RawEvent) smf.Message {
	t, _ := ev.MetaType()
	payload := ev.Payload()
	msg := []byte{midifile.StatusMeta, t}
	msg = append(msg, midifile.EncodeVLQ(uint32(len(payload)))...)
	msg = append(msg, payload...)
	return smf.Message(msg)
}

// NoteName returns the note name with octave, key 60 being C5.
func NoteName(key uint8) string {
	return gomidi.Note(key).String()
}
