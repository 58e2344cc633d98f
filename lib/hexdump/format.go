package hexdump

import (
	"fmt"
	"strings"
)

const bytesPerLine = 16

// Format renders b in the layout used by console event pages: an address,
// up to eight space separated groups of two bytes and an ASCII column.
// Extract and ExtractLines read this layout back.
func Format(b []byte) string {
	var out strings.Builder
	for offset := 0; offset < len(b); offset += bytesPerLine {
		line := b[offset:min(offset+bytesPerLine, len(b))]

		var groups strings.Builder
		for i := 0; i < len(line); i += 2 {
			if i > 0 {
				groups.WriteByte(' ')
			}
			groups.WriteString(EncodeHex(line[i:min(i+2, len(line))]))
		}

		ascii := make([]byte, len(line))
		for i, c := range line {
			if c >= 0x20 && c < 0x7f {
				ascii[i] = c
			} else {
				ascii[i] = '.'
			}
		}

		fmt.Fprintf(&out, "0x%04x: %-39s  %s\n", offset, groups.String(), ascii)
	}
	return out.String()
}
