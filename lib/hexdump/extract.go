// Package hexdump turns the hex dumps rendered on console event pages
// (`0x0000: 4500 0034 ...` lines) back into the bytes they represent.
package hexdump

import (
	"bufio"
	"regexp"
	"strings"
)

var addressRegex = regexp.MustCompile(`0x[0-9a-fA-F]{4}:`)

// Extract concatenates the hex groups of every dump line found between
// startMarker and the first endMarker that follows it. When either marker
// cannot be located the result is empty, callers treat that as a page with
// no capture data.
func Extract(pageText, startMarker, endMarker string) string {
	region, ok := Region(pageText, startMarker, endMarker)
	if !ok {
		return ""
	}
	return ExtractLines(region)
}

// Region returns the text between startMarker (inclusive) and the first
// endMarker after it (exclusive).
func Region(pageText, startMarker, endMarker string) (string, bool) {
	if startMarker == "" || endMarker == "" {
		return "", false
	}
	start := strings.Index(pageText, startMarker)
	if start < 0 {
		return "", false
	}
	end := strings.Index(pageText[start:], endMarker)
	if end < 0 {
		return "", false
	}
	return pageText[start : start+end], true
}

// ExtractLines scans unbounded text line by line and concatenates the hex
// groups of each dump line in order of appearance. Addresses, whitespace and
// the trailing ASCII column are discarded.
func ExtractLines(text string) string {
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for _, loc := range addressRegex.FindAllStringIndex(line, -1) {
			out.WriteString(groupsAfter(line, loc[1]))
		}
	}
	return out.String()
}

// groupsAfter collects the chain of hex groups that begins right after an
// address marker ending at pos. The first group follows the marker after a
// single whitespace character, every later group follows a 4 digit group the
// same way.
func groupsAfter(line string, pos int) string {
	var out strings.Builder
	for {
		if pos >= len(line) || !isSpace(line[pos]) {
			break
		}
		tokenStart := pos + 1
		tokenEnd := tokenStart
		for tokenEnd < len(line) && isWord(line[tokenEnd]) {
			tokenEnd++
		}
		token := line[tokenStart:tokenEnd]
		if len(token) < 2 || len(token) > 4 || !isHexString(token) {
			break
		}
		out.WriteString(token)
		if len(token) != 4 {
			break
		}
		pos = tokenEnd
	}
	return out.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\v', '\f', '\r', '\n':
		return true
	}
	return false
}

func isWord(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

func isHexString(s string) bool {
	for i := 0; i < len(s); i++ {
		if fromHexChar(s[i]) < 0 {
			return false
		}
	}
	return true
}
