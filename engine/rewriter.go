package engine

import (
	"errors"
	"fmt"

	"github.com/retroforge/peep68k/asm"
)

// ErrOrphanedLabel means a rewrite would delete the only instruction a label
// precedes, with nothing left for it to attach to. The file is abandoned
// untouched when this happens.
var ErrOrphanedLabel = errors.New("rewrite would orphan a label")

// PassResult accumulates what one pass over the stream did.
type PassResult struct {
	Rewrites int
	Changed  bool
	Hits     map[string]int
}

// Rewriter splices matches into the stream, keeping labels attached.
type Rewriter struct{}

// Apply commits a match: the label of the first consumed line is relocated
// onto the replacement (or the next surviving instruction when the
// replacement is empty), the replacement is spliced in, and the counters are
// bumped.
func (r *Rewriter) Apply(s *asm.Stream, m Match, pr *PassResult) error {
	repl := m.Replacement

	// Label-aware patterns keep interior label lines alive themselves, but a
	// label on the first consumed line is always the engine's to relocate.
	if err := relocateLabel(s, m, &repl); err != nil {
		return fmt.Errorf("pattern %q at line %d: %w",
			m.Pattern.Name, s.Lines[m.Start].No, err)
	}

	s.Splice(m.Start, m.Len, repl)
	pr.Rewrites++
	pr.Changed = true
	if pr.Hits != nil {
		pr.Hits[m.Pattern.Name]++
	}
	return nil
}

func relocateLabel(s *asm.Stream, m Match, repl *[]*asm.Line) error {
	first := s.Lines[m.Start]
	if first.Label == "" {
		return nil
	}

	lines := *repl
	if len(lines) == 0 {
		// The label needs a following instruction to attach to.
		if !hasInstructionAfter(s, m.Start+m.Len) {
			return ErrOrphanedLabel
		}
		*repl = []*asm.Line{asm.NewLabel(first.Label)}
		return nil
	}

	if lines[0] == first {
		return nil // line kept, label still on it
	}
	if lines[0].Dirty() && lines[0].Label == "" {
		lines[0].SetLabel(first.Label)
		return nil
	}
	*repl = append([]*asm.Line{asm.NewLabel(first.Label)}, lines...)
	return nil
}

func hasInstructionAfter(s *asm.Stream, pos int) bool {
	for _, l := range s.Lines[pos:] {
		if l.Kind == asm.KindInstruction || l.Kind == asm.KindDirective || l.Kind == asm.KindOpaque {
			return true
		}
	}
	return false
}
