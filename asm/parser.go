package asm

import (
	"fmt"
	"strings"
)

// ParseError reports input the parser cannot represent at all. Syntax it
// merely does not understand is not an error; such lines become KindOpaque.
type ParseError struct {
	No     int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.No, e.Reason)
}

// Parse tokenizes a whole listing into a Stream. Every line keeps its
// original text; anything that cannot be confidently decomposed is kept as an
// opaque pass-through line.
func Parse(text string) (*Stream, error) {
	raw := strings.Split(text, "\n")
	s := &Stream{
		Lines:           make([]*Line, 0, len(raw)),
		trailingNewline: strings.HasSuffix(text, "\n"),
	}
	if s.trailingNewline {
		raw = raw[:len(raw)-1]
	}

	for i, r := range raw {
		if strings.ContainsRune(r, 0) {
			return nil, &ParseError{No: i + 1, Reason: "NUL byte in input"}
		}
		l := classify(r)
		l.No = i + 1
		s.Lines = append(s.Lines, l)
	}
	return s, nil
}

func classify(raw string) *Line {
	l := &Line{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		l.Kind = KindBlank
		return l
	}

	// Whole-line comments. "*" and "#" only start a comment in column 0.
	if trimmed[0] == '|' || trimmed[0] == ';' || raw[0] == '*' || raw[0] == '#' {
		l.Kind = KindComment
		l.Comment = trimmed
		return l
	}

	rest := trimmed
	if label, after, ok := splitLabel(rest); ok {
		l.Label = label
		rest = strings.TrimSpace(after)
		if rest == "" {
			l.Kind = KindLabel
			return l
		}
	}

	if rest[0] == '.' {
		l.Kind = KindDirective
		l.Mnemonic = firstToken(rest)
		return l
	}

	mnemonic := firstToken(rest)
	if !validMnemonic(mnemonic) {
		l.Kind = KindOpaque
		return l
	}
	l.Kind = KindInstruction
	l.Mnemonic = strings.ToLower(mnemonic)

	rest = strings.TrimSpace(rest[len(mnemonic):])
	rest, l.Comment = splitComment(rest)
	if rest != "" {
		l.Operands = splitOperands(rest)
	}
	return l
}

// splitLabel peels "name:" off the front of a line. Local numeric labels
// ("1:") are accepted too.
func splitLabel(s string) (label, rest string, ok bool) {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != ':' {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func firstToken(s string) string {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s
	}
	return s[:i]
}

// validMnemonic accepts letters with an optional ".b/.w/.l/.s" suffix.
// Anything else (macro punctuation, equates, assignment syntax) stays opaque.
func validMnemonic(tok string) bool {
	base, _ := SplitMnemonic(tok)
	if base == "" {
		return false
	}
	for i := 0; i < len(base); i++ {
		c := base[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	c := base[0]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// splitComment cuts a trailing "|" or ";" comment off an operand field. The
// delimiter stays in the comment so a re-rendered line reproduces it.
func splitComment(s string) (operands, comment string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '|' || s[i] == ';' {
			return strings.TrimSpace(s[:i]), s[i:]
		}
	}
	return s, ""
}

// splitOperands splits on commas outside parentheses, so that indexed
// addressing modes like "8(a0,d0.w)" stay one operand.
func splitOperands(s string) []string {
	var ops []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				ops = append(ops, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	ops = append(ops, strings.TrimSpace(s[start:]))
	return ops
}
