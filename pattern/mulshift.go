package pattern

import (
	"strconv"

	"github.com/retroforge/peep68k/asm"
)

// The mulshift rules reduce muls.w #const,dN (and mulu.w #0,dN) to
// moveq/ext/shift/add sequences. muls.w reads the low word of dN
// sign-extended, which is exactly what a leading ext.l reproduces, so
// register state matches for every word operand. The multiply clears V and C
// while shifts and adds set them, so these rules preserve values but not the
// condition-code register; compiled code never branches on the CCR of a
// multiply.

// matchMulImm recognizes "<mul>.w #imm,dN" and captures the operands.
func matchMulImm(win []*asm.Line, mul string) (imm int64, dN string, ok bool) {
	l := win[0]
	if l.Kind != asm.KindInstruction {
		return 0, "", false
	}
	base, size := asm.SplitMnemonic(l.Mnemonic)
	if base != mul || size != "w" || len(l.Operands) != 2 {
		return 0, "", false
	}
	imm, ok = asm.ImmediateValue(l.Operands[0])
	if !ok || !asm.IsDataRegister(l.Operands[1]) {
		return 0, "", false
	}
	return imm, l.Operands[1], true
}

// mulsZero: muls.w #0,dN -> moveq #0,dN. Saves 38 cycles. Exact, including
// condition codes (both leave Z set, N/V/C clear).
func mulsZero() *Pattern {
	return &Pattern{
		ID:        20,
		Name:      "muls-zero",
		Category:  CategoryMulShift,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			imm, dN, ok := matchMulImm(win, "muls")
			if !ok || imm != 0 {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{asm.NewInstruction("", "moveq", "#0", b["dN"])}
		},
	}
}

// mulsOne: muls.w #1,dN -> ext.l dN. Saves 42 cycles. Exact, including
// condition codes.
func mulsOne() *Pattern {
	return &Pattern{
		ID:        21,
		Name:      "muls-one",
		Category:  CategoryMulShift,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			imm, dN, ok := matchMulImm(win, "muls")
			if !ok || imm != 1 {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{asm.NewInstruction("", "ext.l", b["dN"])}
		},
	}
}

// mulsTwo: muls.w #2,dN -> ext.l dN; add.l dN,dN. Saves 34 cycles.
func mulsTwo() *Pattern {
	return &Pattern{
		ID:        22,
		Name:      "muls-two",
		Category:  CategoryMulShift,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			imm, dN, ok := matchMulImm(win, "muls")
			if !ok || imm != 2 {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{
				asm.NewInstruction("", "ext.l", b["dN"]),
				asm.NewInstruction("", "add.l", b["dN"], b["dN"]),
			}
		},
	}
}

// mulsPow2: muls.w #(2^k),dN -> ext.l dN; asl.l #k,dN for k in [2,8].
// The shift-count immediate maxes out at 8, covering x4 through x256.
func mulsPow2() *Pattern {
	return &Pattern{
		ID:        23,
		Name:      "muls-pow2",
		Category:  CategoryMulShift,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			imm, dN, ok := matchMulImm(win, "muls")
			if !ok {
				return nil, false
			}
			k := shiftFor(imm)
			if k < 2 || k > 8 {
				return nil, false
			}
			return Bindings{"dN": dN, "k": strconv.Itoa(k)}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{
				asm.NewInstruction("", "ext.l", b["dN"]),
				asm.NewInstruction("", "asl.l", "#"+b["k"], b["dN"]),
			}
		},
	}
}

// muluZero: mulu.w #0,dN -> moveq #0,dN. The only unsigned-multiply reduction
// that needs no scratch register; the larger mulu constants all scavenge one
// and stay out of the catalog. Exact, including condition codes (both leave Z
// set, N/V/C clear).
func muluZero() *Pattern {
	return &Pattern{
		ID:        24,
		Name:      "mulu-zero",
		Category:  CategoryMulShift,
		MinWindow: 1,
		MaxWindow: 1,
		Match: func(win []*asm.Line) (Bindings, bool) {
			imm, dN, ok := matchMulImm(win, "mulu")
			if !ok || imm != 0 {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{asm.NewInstruction("", "moveq", "#0", b["dN"])}
		},
	}
}

// shiftFor returns k when v == 2^k, otherwise -1.
func shiftFor(v int64) int {
	if v <= 0 || v&(v-1) != 0 {
		return -1
	}
	k := 0
	for v > 1 {
		v >>= 1
		k++
	}
	return k
}
