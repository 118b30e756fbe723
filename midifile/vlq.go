package midifile

// MaxVLQ is the largest value an SMF variable-length quantity may hold
// (four bytes of seven bits each).
const MaxVLQ = 0x0FFFFFFF

const (
	vlqMask     = 0x7F
	vlqContinue = 0x80
	vlqMaxBytes = 4
)

// EncodeVLQ encodes n as a variable-length quantity, most significant group
// first. Values above MaxVLQ are truncated to 28 bits.
func EncodeVLQ(n uint32) []byte {
	n &= MaxVLQ
	out := []byte{byte(n & vlqMask)}
	for n >>= 7; n > 0; n >>= 7 {
		out = append([]byte{byte(n&vlqMask) | vlqContinue}, out...)
	}
	return out
}

// DecodeVLQ decodes a variable-length quantity from the front of b and
// returns the value and the number of bytes consumed.
func DecodeVLQ(b []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < vlqMaxBytes; i++ {
		if i >= len(b) {
			return 0, 0, &TruncatedDataError{Want: i + 1, Limit: len(b)}
		}
		c := b[i]
		v = v<<7 | uint32(c&vlqMask)
		if c&vlqContinue == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, &FormatError{Msg: "variable-length quantity longer than 4 bytes"}
}
