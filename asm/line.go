// Package asm parses m68k assembly listings into an instruction stream and
// renders them back, byte-identical wherever a line was left untouched.
package asm

import (
	"strconv"
	"strings"
)

// Kind classifies a listing line.
type Kind int

const (
	// KindInstruction is a mnemonic line, optionally labeled.
	KindInstruction Kind = iota
	// KindLabel is a standalone label definition ("loop:").
	KindLabel
	// KindDirective is an assembler directive (".text", ".globl main").
	KindDirective
	// KindComment is a whole-line comment.
	KindComment
	// KindBlank is an empty or whitespace-only line.
	KindBlank
	// KindOpaque is anything the parser could not confidently decompose.
	// Opaque lines are passed through verbatim and never match a pattern.
	KindOpaque
)

// Line is one line of the listing. Raw holds the original text so that
// untouched lines reproduce exactly; lines built by rewriters render in
// canonical form instead.
type Line struct {
	Kind     Kind
	Label    string
	Mnemonic string
	Operands []string
	Comment  string
	Raw      string
	No       int // 1-based source line, 0 for synthesized lines

	dirty bool
}

// NewInstruction builds a synthesized instruction line.
func NewInstruction(label, mnemonic string, operands ...string) *Line {
	return &Line{
		Kind:     KindInstruction,
		Label:    label,
		Mnemonic: mnemonic,
		Operands: operands,
		dirty:    true,
	}
}

// NewLabel builds a synthesized standalone label line.
func NewLabel(name string) *Line {
	return &Line{Kind: KindLabel, Label: name, dirty: true}
}

// Dirty reports whether the line was synthesized or relabeled, i.e. whether
// Render falls back to canonical form instead of the original text.
func (l *Line) Dirty() bool { return l.dirty }

// SetLabel attaches a label to the line. The line is re-rendered in
// canonical form afterwards.
func (l *Line) SetLabel(name string) {
	l.Label = name
	l.dirty = true
}

// Render returns the textual form of the line, without a trailing newline.
func (l *Line) Render() string {
	if !l.dirty {
		return l.Raw
	}

	var b strings.Builder
	if l.Label != "" {
		b.WriteString(l.Label)
		b.WriteString(":")
	}
	if l.Mnemonic != "" {
		b.WriteString("\t")
		b.WriteString(l.Mnemonic)
		if len(l.Operands) > 0 {
			b.WriteString("\t")
			b.WriteString(strings.Join(l.Operands, ","))
		}
	}
	if l.Comment != "" {
		b.WriteString("\t")
		b.WriteString(l.Comment)
	}
	return b.String()
}

// SplitMnemonic splits "move.l" into ("move", "l"). The size is empty when
// the mnemonic carries no suffix.
func SplitMnemonic(mnemonic string) (base, size string) {
	if i := strings.LastIndexByte(mnemonic, '.'); i > 0 {
		suffix := mnemonic[i+1:]
		switch suffix {
		case "b", "w", "l", "s":
			return mnemonic[:i], suffix
		}
	}
	return mnemonic, ""
}

// NormalizeOperand strips the optional "%" register prefix and surrounding
// whitespace, lowercasing the token for comparisons. The raw operand text is
// what rewriters should emit; the normalized form is what predicates compare.
func NormalizeOperand(op string) string {
	op = strings.TrimSpace(op)
	op = strings.TrimPrefix(op, "%")
	return strings.ToLower(op)
}

// IsDataRegister reports whether op names one of d0..d7.
func IsDataRegister(op string) bool {
	n := NormalizeOperand(op)
	return len(n) == 2 && n[0] == 'd' && n[1] >= '0' && n[1] <= '7'
}

// IsAddressRegister reports whether op names one of a0..a7 or sp.
func IsAddressRegister(op string) bool {
	n := NormalizeOperand(op)
	if n == "sp" || n == "fp" {
		return true
	}
	return len(n) == 2 && n[0] == 'a' && n[1] >= '0' && n[1] <= '7'
}

// SameRegister reports whether two operands name the same register,
// ignoring the "%" prefix and case.
func SameRegister(a, b string) bool {
	return NormalizeOperand(a) == NormalizeOperand(b)
}

// ImmediateValue decodes an immediate operand ("#4", "#-3", "#0x1f", "#$1f").
func ImmediateValue(op string) (int64, bool) {
	n := strings.TrimSpace(op)
	if !strings.HasPrefix(n, "#") {
		return 0, false
	}
	n = n[1:]
	neg := false
	if strings.HasPrefix(n, "-") {
		neg = true
		n = n[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(n, "0x") || strings.HasPrefix(n, "0X"):
		base = 16
		n = n[2:]
	case strings.HasPrefix(n, "$"):
		base = 16
		n = n[1:]
	}
	v, err := strconv.ParseInt(n, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
