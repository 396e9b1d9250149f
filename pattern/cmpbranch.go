package pattern

import (
	"strings"

	"github.com/retroforge/peep68k/asm"
)

// tstAfterMove drops the tst of
//
//	move.s X,dN
//	tst.s dN
//
// A move (or moveq) to a data register already sets N and Z from the moved
// value and clears V and C, exactly like tst. The source must be free of
// side effects, and the destination must be a data register: movea sets no
// flags at all.
func tstAfterMove() *Pattern {
	return &Pattern{
		ID:        40,
		Name:      "tst-after-move",
		Category:  CategoryCmpBranch,
		MinWindow: 2,
		MaxWindow: 2,
		Match: func(win []*asm.Line) (Bindings, bool) {
			first, second := win[0], win[1]
			if !isInstr(second, "tst") {
				return nil, false
			}
			moveq := isInstr(first, "moveq")
			if !moveq && !isInstr(first, "move") {
				return nil, false
			}
			size := sizeOf(first)
			// moveq writes the whole register from an 8-bit immediate, so
			// N and Z come out the same at any tst width.
			if !moveq && (size == "" || sizeOf(second) != size) {
				return nil, false
			}
			if len(first.Operands) != 2 || len(second.Operands) != 1 {
				return nil, false
			}
			dN := first.Operands[1]
			if !asm.IsDataRegister(dN) || !asm.SameRegister(second.Operands[0], dN) {
				return nil, false
			}
			if !sideEffectFree(first.Operands[0]) {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{win[0]}
		},
	}
}

// cmpZeroToTst rewrites cmp.s #0,dN (or cmpi.s) into tst.s dN. Subtracting
// zero leaves N and Z reflecting dN with V and C clear, which is the tst
// definition, so this is exact. Saves 4 cycles and the immediate extension
// word.
func cmpZeroToTst() *Pattern {
	return &Pattern{
		ID:        41,
		Name:      "cmp-zero-to-tst",
		Category:  CategoryCmpBranch,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			l := win[0]
			if l.Kind != asm.KindInstruction {
				return nil, false
			}
			base, size := asm.SplitMnemonic(l.Mnemonic)
			if (base != "cmp" && base != "cmpi") || size == "" || len(l.Operands) != 2 {
				return nil, false
			}
			imm, ok := asm.ImmediateValue(l.Operands[0])
			if !ok || imm != 0 || !asm.IsDataRegister(l.Operands[1]) {
				return nil, false
			}
			return Bindings{"dN": l.Operands[1], "size": size}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{
				asm.NewInstruction("", "tst."+b["size"], b["dN"]),
			}
		},
	}
}

// condInverse maps each condition code to its negation.
var condInverse = map[string]string{
	"eq": "ne", "ne": "eq",
	"lt": "ge", "ge": "lt",
	"le": "gt", "gt": "le",
	"cs": "cc", "cc": "cs",
	"mi": "pl", "pl": "mi",
	"vs": "vc", "vc": "vs",
	"hi": "ls", "ls": "hi",
}

// splitBranch decomposes a conditional branch mnemonic ("beq", "jne",
// "beq.s") into its prefix letter and condition code.
func splitBranch(mnemonic string) (prefix, cond string, ok bool) {
	base, _ := asm.SplitMnemonic(mnemonic)
	if len(base) != 3 || (base[0] != 'b' && base[0] != 'j') {
		return "", "", false
	}
	cond = base[1:]
	if _, known := condInverse[cond]; !known {
		return "", "", false
	}
	return base[:1], cond, true
}

func isUnconditionalBranch(l *asm.Line) bool {
	base, _ := asm.SplitMnemonic(l.Mnemonic)
	return base == "bra" || base == "jra" || base == "jmp"
}

// branchOverBranch inverts the idiom
//
//	b<cc>  L1
//	bra    L2
//	L1:
//
// into "b<!cc> L2" followed by the untouched L1 definition. One branch is
// always saved on the taken path and L1 stays defined for any other
// reference. The middle branch must be unlabeled, otherwise some other jump
// could land on it.
func branchOverBranch() *Pattern {
	return &Pattern{
		ID:         42,
		Name:       "branch-over-branch",
		Category:   CategoryCmpBranch,
		MinWindow:  3,
		MaxWindow:  3,
		LabelAware: true,
		Match: func(win []*asm.Line) (Bindings, bool) {
			cond, skip, target := win[0], win[1], win[2]
			if cond.Kind != asm.KindInstruction || skip.Kind != asm.KindInstruction {
				return nil, false
			}
			prefix, cc, ok := splitBranch(cond.Mnemonic)
			if !ok || len(cond.Operands) != 1 {
				return nil, false
			}
			if !isUnconditionalBranch(skip) || len(skip.Operands) != 1 || skip.Label != "" {
				return nil, false
			}
			if target.Kind != asm.KindLabel && target.Kind != asm.KindInstruction {
				return nil, false
			}
			l1 := strings.TrimSpace(cond.Operands[0])
			if target.Label != l1 {
				return nil, false
			}
			return Bindings{
				"branch": prefix + condInverse[cc],
				"L2":     strings.TrimSpace(skip.Operands[0]),
			}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{
				asm.NewInstruction("", b["branch"], b["L2"]),
				win[2],
			}
		},
	}
}
