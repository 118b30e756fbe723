package midifile

import "encoding/binary"

// Reader is a sequential big-endian cursor over a fixed byte buffer.
// Reads never cross the current limit, which the decoder moves to the end
// of each chunk while it is inside one.
type Reader struct {
	buf   []byte
	pos   int
	limit int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, limit: len(buf)}
}

// Offset returns the absolute position of the next read.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns how many bytes can be read before the limit.
func (r *Reader) Remaining() int { return r.limit - r.pos }

// Limit returns the current read limit.
func (r *Reader) Limit() int { return r.limit }

// SetLimit bounds further reads to end (clamped to the buffer) and returns
// the previous limit so the caller can restore it.
func (r *Reader) SetLimit(end int) int {
	prev := r.limit
	if end > len(r.buf) {
		end = len(r.buf)
	}
	r.limit = end
	return prev
}

// Seek moves the cursor to an absolute offset inside the buffer.
func (r *Reader) Seek(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(r.buf) {
		off = len(r.buf)
	}
	r.pos = off
}

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > r.limit {
		return &TruncatedDataError{Offset: r.pos, Want: n, Limit: r.limit}
	}
	return nil
}

func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// UnreadByte steps back one byte. Used for running status, where the byte
// just read turned out to be data rather than a status byte.
func (r *Reader) UnreadByte() error {
	if r.pos == 0 {
		return &FormatError{Offset: 0, Msg: "unread at start of buffer"}
	}
	r.pos--
	return nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Skip advances n bytes without copying.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadTag reads a four character chunk tag.
func (r *Reader) ReadTag() (string, error) {
	if err := r.need(4); err != nil {
		return "", err
	}
	tag := string(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return tag, nil
}

// ReadVLQ reads a variable-length quantity of at most four bytes.
func (r *Reader) ReadVLQ() (uint32, error) {
	start := r.pos
	v, n, err := DecodeVLQ(r.buf[r.pos:r.limit])
	if err != nil {
		switch e := err.(type) {
		case *TruncatedDataError:
			e.Offset = start
			e.Limit = r.limit
		case *FormatError:
			e.Offset = start
		}
		return 0, err
	}
	r.pos += n
	return v, nil
}
