package hexdump

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedHex matches every *MalformedHexError through errors.Is.
var ErrMalformedHex = errors.New("malformed hex")

// MalformedHexError is returned when a hex string has an odd length or
// contains a character outside [0-9a-fA-F]. It points at an extraction bug
// upstream, so it is never recovered from silently.
type MalformedHexError struct {
	Reason string
	// Offset of the offending character, -1 for length errors.
	Offset int
}

func (e *MalformedHexError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("malformed hex: %s", e.Reason)
	}
	return fmt.Sprintf("malformed hex: %s at offset %d", e.Reason, e.Offset)
}

func (e *MalformedHexError) Is(target error) bool {
	return target == ErrMalformedHex
}

func fromHexChar(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// DecodeHex converts a contiguous hex string into raw bytes. On error no
// bytes are returned.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, &MalformedHexError{
			Reason: fmt.Sprintf("odd length %d", len(s)),
			Offset: -1,
		}
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		offset := strings.IndexFunc(s, func(r rune) bool {
			return r > 0x7f || fromHexChar(byte(r)) < 0
		})
		return nil, &MalformedHexError{Reason: err.Error(), Offset: offset}
	}
	return out, nil
}

// EncodeHex renders b as lowercase hex without separators.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
