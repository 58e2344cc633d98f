package textutil

import (
	"regexp"
	"strings"
)

// isPrintable reports whether b is printable ASCII or one of the ASCII
// whitespace controls (\t \n \v \f \r).
func isPrintable(b byte) bool {
	if b >= 0x20 && b <= 0x7e {
		return true
	}
	return b >= '\t' && b <= '\r'
}

// Printable decodes b as ASCII, dropping undecodable bytes (>= 0x80), and
// keeps only printable characters. Removed bytes are not replaced, so the
// result cannot be mapped back to b.
func Printable(b []byte) string {
	var out strings.Builder
	out.Grow(len(b))
	for _, c := range b {
		if isPrintable(c) {
			out.WriteByte(c)
		}
	}
	return out.String()
}

// PrintableString is Printable for text that is already a string.
func PrintableString(s string) string {
	return Printable([]byte(s))
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims s and folds runs of whitespace into a single space.
func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \t\r\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}
