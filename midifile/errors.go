package midifile

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrFormat      = errors.New("midifile: invalid format")
	ErrUnsupported = errors.New("midifile: unsupported format")
	ErrTruncated   = errors.New("midifile: truncated data")
)

// FormatError reports a missing or invalid chunk tag or a structurally
// broken header or event.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("midifile: format error at offset %d: %s", e.Offset, e.Msg)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// UnsupportedFormatError reports valid-looking input the decoder refuses to
// guess about: SMPTE time division or a status byte with no defined handling.
type UnsupportedFormatError struct {
	Offset int
	Msg    string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("midifile: unsupported at offset %d: %s", e.Offset, e.Msg)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupported }

// TruncatedDataError reports a read past the declared chunk end or past the
// end of the buffer.
type TruncatedDataError struct {
	Offset int // where the read started
	Want   int // bytes requested
	Limit  int // end of the readable region
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("midifile: truncated data at offset %d: need %d byte(s), region ends at %d", e.Offset, e.Want, e.Limit)
}

func (e *TruncatedDataError) Is(target error) bool { return target == ErrTruncated }
