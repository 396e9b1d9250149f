package pattern

import "github.com/retroforge/peep68k/asm"

// deadStore drops the first move of
//
//	move.s A,dN
//	move.s B,dN
//
// when the second move fully overwrites dN without reading it. Either line
// may also be a moveq, which always writes the full register. A must be an
// immediate or a plain register so the dropped instruction has no side
// effect; B must be an immediate or a register other than dN. The overwrite
// is only total when the second move is at least as wide as the first, so the
// sizes must match or the second must be ".l". Exact, including condition
// codes: the final CCR comes from the surviving move either way.
func deadStore() *Pattern {
	return &Pattern{
		ID:        30,
		Name:      "dead-store",
		Category:  CategoryDeadStore,
		MinWindow: 2,
		MaxWindow: 2,
		Match: func(win []*asm.Line) (Bindings, bool) {
			first, second := win[0], win[1]
			size1, ok1 := moveSize(first)
			size2, ok2 := moveSize(second)
			if !ok1 || !ok2 || (size2 != size1 && size2 != "l") {
				return nil, false
			}
			if len(first.Operands) != 2 || len(second.Operands) != 2 {
				return nil, false
			}
			dN := first.Operands[1]
			if !asm.IsDataRegister(dN) || !asm.SameRegister(second.Operands[1], dN) {
				return nil, false
			}
			if !sideEffectFree(first.Operands[0]) {
				return nil, false
			}
			src2 := second.Operands[0]
			if !sideEffectFree(src2) || asm.SameRegister(src2, dN) {
				return nil, false
			}
			return Bindings{"dN": dN}, true
		},
		Rewrite: func(win []*asm.Line, b Bindings) []*asm.Line {
			return []*asm.Line{win[1]}
		},
	}
}

// moveSize reports the destination width of a move or moveq line. moveq
// always writes the full register.
func moveSize(l *asm.Line) (string, bool) {
	if isInstr(l, "moveq") && len(l.Operands) == 2 {
		return "l", true
	}
	if isInstr(l, "move") && sizeOf(l) != "" {
		return sizeOf(l), true
	}
	return "", false
}

// sideEffectFree accepts operands whose evaluation cannot change machine
// state: immediates and plain registers. Memory modes are rejected outright,
// including the side-effect-free ones, since telling (aN) from (aN)+ is not
// worth the risk of misreading an addressing mode.
func sideEffectFree(op string) bool {
	if _, ok := asm.ImmediateValue(op); ok {
		return true
	}
	return asm.IsDataRegister(op) || asm.IsAddressRegister(op)
}
