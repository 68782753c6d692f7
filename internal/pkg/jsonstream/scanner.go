// Package jsonstream extracts complete JSON objects from a stream of text
// fragments whose boundaries are arbitrary: a fragment may split an object
// anywhere, including mid-token.
package jsonstream

import (
	"encoding/json"
	"strings"
)

// Scanner accumulates fragments and yields each balanced top-level {...} span
// as soon as it is complete. Brace depth is tracked together with string and
// escape state, so braces inside string values (including nested object
// payloads) do not terminate a span early. Markdown code fences the model may
// inject are stripped from the buffer before scanning.
type Scanner struct {
	buf string
}

// Write appends a fragment and returns all objects completed by it, in order.
// Text outside of objects (fence remnants, whitespace, commas) is discarded
// once an object boundary passes it. An unterminated object stays buffered
// until later fragments close it.
func (s *Scanner) Write(fragment string) []json.RawMessage {
	s.buf += fragment
	s.buf = stripFences(s.buf)

	var out []json.RawMessage
	for {
		start := strings.IndexByte(s.buf, '{')
		if start < 0 {
			return out
		}
		end, ok := scanObject(s.buf, start)
		if !ok {
			// Incomplete object: keep everything from its start.
			s.buf = s.buf[start:]
			return out
		}
		span := s.buf[start:end]
		s.buf = s.buf[end:]
		if json.Valid([]byte(span)) {
			out = append(out, json.RawMessage(span))
		}
		// Invalid spans (stray braces in prose) are dropped and scanning
		// continues after them.
	}
}

// Pending reports whether a partial object is still buffered. A stream that
// ends with Pending true never completed its final object.
func (s *Scanner) Pending() bool {
	return strings.IndexByte(s.buf, '{') >= 0
}

// scanObject walks buf from the opening brace at start and returns the index
// one past the matching close brace, or ok=false if the object is not yet
// complete.
func scanObject(buf string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func stripFences(buf string) string {
	buf = strings.ReplaceAll(buf, "```json", "")
	return strings.ReplaceAll(buf, "```", "")
}
