// Package engine drives the pattern catalog over an instruction stream:
// priority matching at a cursor, label-safe rewriting, and the fixpoint pass
// loop.
package engine

import (
	"github.com/retroforge/peep68k/asm"
	"github.com/retroforge/peep68k/pattern"
)

// Match is one applicable rewrite found at a stream position. The
// replacement is computed eagerly because rewriters are pure, so the engine
// can reject no-op rewrites before committing anything.
type Match struct {
	Pattern     *pattern.Pattern
	Start       int
	Len         int
	Bindings    pattern.Bindings
	Replacement []*asm.Line
}

// Matcher finds the highest-priority enabled pattern at a position.
type Matcher struct {
	patterns []*pattern.Pattern
}

// NewMatcher builds a matcher over the given patterns. The slice must
// already be in priority (ID) order, as Catalog.Enabled returns it.
func NewMatcher(patterns []*pattern.Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// MatchAt returns the match starting exactly at pos, or false. Patterns are
// tried in priority order and window sizes smallest first; the first hit
// wins, with no backtracking to a lower-priority alternative.
func (m *Matcher) MatchAt(s *asm.Stream, pos int) (Match, bool) {
	if pos >= s.Len() || s.Lines[pos].Kind != asm.KindInstruction {
		return Match{}, false
	}

	for _, p := range m.patterns {
		for n := p.MinWindow; n <= p.MaxWindow; n++ {
			win := s.Window(pos, n)
			if win == nil {
				break
			}
			if !windowEligible(win, p) {
				continue
			}
			b, ok := p.Match(win)
			if !ok {
				continue
			}
			repl := p.Rewrite(win, b)
			if rendersSame(win, repl) {
				continue
			}
			return Match{
				Pattern:     p,
				Start:       pos,
				Len:         n,
				Bindings:    b,
				Replacement: repl,
			}, true
		}
	}
	return Match{}, false
}

// windowEligible enforces the locality invariants the patterns rely on:
// past the first line a window may not cross a label or contain anything but
// instructions, unless the pattern declared itself label-aware.
func windowEligible(win []*asm.Line, p *pattern.Pattern) bool {
	if p.LabelAware {
		return true
	}
	for _, l := range win[1:] {
		if l.Kind != asm.KindInstruction || l.Label != "" {
			return false
		}
	}
	return true
}

// rendersSame reports whether a replacement is textually identical to the
// window it replaces. Such rewrites are rejected so that every accepted
// rewrite strictly changes the stream.
func rendersSame(win, repl []*asm.Line) bool {
	if len(win) != len(repl) {
		return false
	}
	for i := range win {
		if win[i].Render() != repl[i].Render() {
			return false
		}
	}
	return true
}
