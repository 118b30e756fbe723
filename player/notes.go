package player

import "go-midiplay/midifile"

// Note identifies a sounding note.
type Note struct {
	Channel uint8
	Key     uint8
}

// NoteSet tracks sounding notes per channel. It is owned by the playback
// goroutine and only used for reporting.
type NoteSet struct {
	on    [16][128]bool
	count int
}

// Apply updates the set for ev and reports whether it changed.
func (s *NoteSet) Apply(ev midifile.RawEvent) bool {
	var want bool
	switch {
	case ev.IsNoteOn():
		want = true
	case ev.IsNoteOff():
		want = false
	default:
		return false
	}
	ch, key := ev.Channel(), ev.Key()&0x7F
	if s.on[ch][key] == want {
		return false
	}
	s.on[ch][key] = want
	if want {
		s.count++
	} else {
		s.count--
	}
	return true
}

// Len returns the number of sounding notes.
func (s *NoteSet) Len() int { return s.count }

// Notes lists sounding notes ordered by channel then key.
func (s *NoteSet) Notes() []Note {
	out := make([]Note, 0, s.count)
	for ch := range s.on {
		for key, on := range s.on[ch] {
			if on {
				out = append(out, Note{Channel: uint8(ch), Key: uint8(key)})
			}
		}
	}
	return out
}
