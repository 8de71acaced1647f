package curriculum

import "strings"

type frame struct {
	closer  byte
	wantKey bool
}

// Repair closes a truncated JSON document. It tracks strings and escapes,
// closes an open string, drops a dangling comma, completes a dangling key
// or colon with null, and appends the missing closers in order. The second
// result is false when s needed no closing; Repair never checks that the
// output is valid JSON.
func Repair(s string) (string, bool) {
	var stack []frame
	inString, escaped := false, false
	keyOpen, lastKey := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				lastKey = keyOpen
			}
			continue
		}
		if !isSpace(c) {
			lastKey = false
		}
		switch c {
		case '"':
			inString = true
			n := len(stack)
			keyOpen = n > 0 && stack[n-1].closer == '}' && stack[n-1].wantKey
		case '{':
			stack = append(stack, frame{closer: '}', wantKey: true})
		case '[':
			stack = append(stack, frame{closer: ']'})
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1].closer == c {
				stack = stack[:n-1]
			}
		case ',':
			if n := len(stack); n > 0 && stack[n-1].closer == '}' {
				stack[n-1].wantKey = true
			}
		case ':':
			if n := len(stack); n > 0 {
				stack[n-1].wantKey = false
			}
		}
	}
	if !inString && len(stack) == 0 {
		return s, false
	}

	out := s
	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out += `"`
		lastKey = keyOpen
	}
	out = strings.TrimRight(out, " \t\r\n")
	switch {
	case lastKey:
		out += ":null"
	case strings.HasSuffix(out, ","):
		out = strings.TrimSuffix(out, ",")
	case strings.HasSuffix(out, ":"):
		out += "null"
	}

	var b strings.Builder
	b.Grow(len(out) + len(stack))
	b.WriteString(out)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i].closer)
	}
	return b.String(), true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
