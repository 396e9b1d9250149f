package asm

import "strings"

// Stream is the ordered, mutable sequence of lines for one listing. It is
// built fresh per file and discarded after serialization.
type Stream struct {
	Lines []*Line

	trailingNewline bool
}

// Len returns the number of lines.
func (s *Stream) Len() int { return len(s.Lines) }

// Window returns the n consecutive lines starting at pos, or nil when the
// stream is too short.
func (s *Stream) Window(pos, n int) []*Line {
	if pos < 0 || n < 0 || pos+n > len(s.Lines) {
		return nil
	}
	return s.Lines[pos : pos+n]
}

// Splice replaces the n lines at start with repl, shifting the rest.
func (s *Stream) Splice(start, n int, repl []*Line) {
	tail := s.Lines[start+n:]
	out := make([]*Line, 0, len(s.Lines)-n+len(repl))
	out = append(out, s.Lines[:start]...)
	out = append(out, repl...)
	out = append(out, tail...)
	s.Lines = out
}

// Render serializes the stream. Untouched lines come out verbatim, so a
// stream with no rewrites reproduces its input byte for byte.
func (s *Stream) Render() string {
	var b strings.Builder
	for i, l := range s.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(l.Render())
	}
	if s.trailingNewline {
		b.WriteString("\n")
	}
	return b.String()
}
