// Package verify holds a minimal 68000 data-register machine. It exists for
// the test suites: a pattern's window and its replacement are run from
// identical machines and must land in identical states. The optimizer itself
// never executes anything.
package verify

import (
	"fmt"

	"github.com/retroforge/peep68k/asm"
)

// CCR is the condition-code register, minus X which none of the bundled
// patterns promise anything about.
type CCR struct {
	N, Z, V, C bool
}

// Machine is the data-register file plus condition codes. Address registers
// and memory are deliberately absent: bundled patterns only touch d0..d7,
// and an operand the machine cannot model makes Step fail loudly.
type Machine struct {
	D   [8]int32
	CCR CCR
}

// New returns a machine with distinct sentinel values in every register, so
// a rewrite that clobbers an unrelated register cannot go unnoticed.
func New() *Machine {
	m := &Machine{}
	for i := range m.D {
		m.D[i] = int32(0x1000_0000 + i*0x0101)
	}
	return m
}

// Clone copies the machine.
func (m *Machine) Clone() *Machine {
	c := *m
	return &c
}

// SetRegister seeds a data register by name.
func (m *Machine) SetRegister(name string, v int32) error {
	i, err := dataRegIndex(name)
	if err != nil {
		return err
	}
	m.D[i] = v
	return nil
}

// Register reads a data register by name.
func (m *Machine) Register(name string) (int32, error) {
	i, err := dataRegIndex(name)
	if err != nil {
		return 0, err
	}
	return m.D[i], nil
}

// Run executes a straight-line sequence.
func (m *Machine) Run(lines []*asm.Line) error {
	for _, l := range lines {
		if l.Kind != asm.KindInstruction {
			continue
		}
		if err := m.Step(l); err != nil {
			return fmt.Errorf("line %q: %w", l.Render(), err)
		}
	}
	return nil
}

// Step executes one instruction.
func (m *Machine) Step(l *asm.Line) error {
	base, size := asm.SplitMnemonic(l.Mnemonic)

	switch base {
	case "move":
		return m.runMove(l.Operands, size)
	case "moveq":
		return m.runMoveq(l.Operands, size)
	case "muls":
		return m.runMuls(l.Operands, size)
	case "mulu":
		return m.runMulu(l.Operands, size)
	case "ext":
		return m.runExt(l.Operands, size)
	case "add":
		return m.runAdd(l.Operands, size)
	case "sub":
		return m.runSub(l.Operands, size)
	case "asl":
		return m.runAsl(l.Operands, size)
	case "lsl":
		return m.runLsl(l.Operands, size)
	case "tst":
		return m.runTst(l.Operands, size)
	case "cmp", "cmpi":
		return m.runCmp(l.Operands, size)
	case "clr":
		return m.runClr(l.Operands, size)
	}
	return fmt.Errorf("unmodeled instruction %q", l.Mnemonic)
}

func dataRegIndex(op string) (int, error) {
	if !asm.IsDataRegister(op) {
		return 0, fmt.Errorf("not a data register: %q", op)
	}
	return int(asm.NormalizeOperand(op)[1] - '0'), nil
}

// value resolves an immediate or data-register operand.
func (m *Machine) value(op string) (int32, error) {
	if v, ok := asm.ImmediateValue(op); ok {
		return int32(v), nil
	}
	i, err := dataRegIndex(op)
	if err != nil {
		return 0, fmt.Errorf("unmodeled operand %q", op)
	}
	return m.D[i], nil
}

// sized truncates v to the operand size and sign-extends back to 32 bits,
// which is how the 68000 computes N and Z for sized operations.
func sized(v int32, size string) (int32, error) {
	switch size {
	case "b":
		return int32(int8(v)), nil
	case "w":
		return int32(int16(v)), nil
	case "l", "":
		return v, nil
	}
	return 0, fmt.Errorf("unknown size %q", size)
}

// writeSized merges the low size-bits of v into dst, leaving the upper part
// of the register untouched, as sized moves and arithmetic do.
func writeSized(dst, v int32, size string) int32 {
	switch size {
	case "b":
		return dst&^0xff | v&0xff
	case "w":
		return int32(uint32(dst)&0xffff_0000) | v&0xffff
	default:
		return v
	}
}

func (m *Machine) setNZ(v int32, size string) error {
	sv, err := sized(v, size)
	if err != nil {
		return err
	}
	m.CCR.N = sv < 0
	m.CCR.Z = sv == 0
	return nil
}

func (m *Machine) runMove(ops []string, size string) error {
	if len(ops) != 2 {
		return fmt.Errorf("move needs 2 operands")
	}
	src, err := m.value(ops[0])
	if err != nil {
		return err
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	if size == "" {
		size = "w"
	}
	m.D[dst] = writeSized(m.D[dst], src, size)
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(src, size)
}

func (m *Machine) runMoveq(ops []string, _ string) error {
	if len(ops) != 2 {
		return fmt.Errorf("moveq needs 2 operands")
	}
	imm, ok := asm.ImmediateValue(ops[0])
	if !ok || imm < -128 || imm > 127 {
		return fmt.Errorf("moveq immediate out of range: %q", ops[0])
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	m.D[dst] = int32(imm)
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(int32(imm), "l")
}

func (m *Machine) runMuls(ops []string, size string) error {
	if size != "w" || len(ops) != 2 {
		return fmt.Errorf("only muls.w is modeled")
	}
	src, err := m.value(ops[0])
	if err != nil {
		return err
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	// muls.w multiplies the sign-extended low words into a 32-bit result.
	result := int32(int16(src)) * int32(int16(m.D[dst]))
	m.D[dst] = result
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(result, "l")
}

func (m *Machine) runMulu(ops []string, size string) error {
	if size != "w" || len(ops) != 2 {
		return fmt.Errorf("only mulu.w is modeled")
	}
	src, err := m.value(ops[0])
	if err != nil {
		return err
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	// mulu.w multiplies the zero-extended low words into a 32-bit result.
	result := int32(uint32(uint16(src)) * uint32(uint16(m.D[dst])))
	m.D[dst] = result
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(result, "l")
}

func (m *Machine) runExt(ops []string, size string) error {
	if len(ops) != 1 {
		return fmt.Errorf("ext needs 1 operand")
	}
	dst, err := dataRegIndex(ops[0])
	if err != nil {
		return err
	}
	switch size {
	case "w":
		m.D[dst] = writeSized(m.D[dst], int32(int8(m.D[dst])), "w")
	case "l":
		m.D[dst] = int32(int16(m.D[dst]))
	default:
		return fmt.Errorf("unknown ext size %q", size)
	}
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(m.D[dst], size)
}

func (m *Machine) runAdd(ops []string, size string) error {
	return m.addSub(ops, size, false)
}

func (m *Machine) runSub(ops []string, size string) error {
	return m.addSub(ops, size, true)
}

func (m *Machine) addSub(ops []string, size string, subtract bool) error {
	if size != "l" || len(ops) != 2 {
		return fmt.Errorf("only .l add/sub are modeled")
	}
	src, err := m.value(ops[0])
	if err != nil {
		return err
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	a := int64(m.D[dst])
	b := int64(src)
	var r int64
	if subtract {
		r = a - b
	} else {
		r = a + b
	}
	m.D[dst] = int32(r)
	m.CCR.V = r > 0x7fff_ffff || r < -0x8000_0000
	if subtract {
		m.CCR.C = uint32(b) > uint32(a)
	} else {
		m.CCR.C = uint64(uint32(a))+uint64(uint32(b)) > 0xffff_ffff
	}
	return m.setNZ(m.D[dst], "l")
}

func (m *Machine) runAsl(ops []string, size string) error {
	return m.shiftLeft(ops, size, true)
}

func (m *Machine) runLsl(ops []string, size string) error {
	return m.shiftLeft(ops, size, false)
}

func (m *Machine) shiftLeft(ops []string, size string, arithmetic bool) error {
	if size != "l" || len(ops) != 2 {
		return fmt.Errorf("only .l shifts are modeled")
	}
	count, ok := asm.ImmediateValue(ops[0])
	if !ok || count < 1 || count > 8 {
		return fmt.Errorf("shift count out of immediate range: %q", ops[0])
	}
	dst, err := dataRegIndex(ops[1])
	if err != nil {
		return err
	}
	v := m.D[dst]
	overflow := false
	carry := false
	for i := int64(0); i < count; i++ {
		carry = v < 0
		next := v << 1
		if (next < 0) != (v < 0) {
			overflow = true
		}
		v = next
	}
	m.D[dst] = v
	m.CCR.C = carry
	if arithmetic {
		m.CCR.V = overflow
	} else {
		m.CCR.V = false
	}
	return m.setNZ(v, "l")
}

func (m *Machine) runTst(ops []string, size string) error {
	if len(ops) != 1 {
		return fmt.Errorf("tst needs 1 operand")
	}
	v, err := m.value(ops[0])
	if err != nil {
		return err
	}
	if size == "" {
		size = "w"
	}
	m.CCR.V, m.CCR.C = false, false
	return m.setNZ(v, size)
}

func (m *Machine) runCmp(ops []string, size string) error {
	if len(ops) != 2 {
		return fmt.Errorf("cmp needs 2 operands")
	}
	src, err := m.value(ops[0])
	if err != nil {
		return err
	}
	dst, err := m.value(ops[1])
	if err != nil {
		return err
	}
	if size == "" {
		size = "w"
	}
	a, err := sized(dst, size)
	if err != nil {
		return err
	}
	b, err := sized(src, size)
	if err != nil {
		return err
	}
	r := int64(a) - int64(b)
	if size == "l" {
		m.CCR.V = r > 0x7fff_ffff || r < -0x8000_0000
	} else {
		limit := int64(1) << (sizeBits(size) - 1)
		m.CCR.V = r >= limit || r < -limit
	}
	m.CCR.C = uint64(truncU(b, size)) > uint64(truncU(a, size))
	return m.setNZ(int32(r), size)
}

func (m *Machine) runClr(ops []string, size string) error {
	if len(ops) != 1 {
		return fmt.Errorf("clr needs 1 operand")
	}
	dst, err := dataRegIndex(ops[0])
	if err != nil {
		return err
	}
	if size == "" {
		size = "w"
	}
	m.D[dst] = writeSized(m.D[dst], 0, size)
	m.CCR.N, m.CCR.Z, m.CCR.V, m.CCR.C = false, true, false, false
	return nil
}

func sizeBits(size string) uint {
	switch size {
	case "b":
		return 8
	case "w":
		return 16
	default:
		return 32
	}
}

func truncU(v int32, size string) uint32 {
	switch size {
	case "b":
		return uint32(uint8(v))
	case "w":
		return uint32(uint16(v))
	default:
		return uint32(v)
	}
}
