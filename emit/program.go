package emit

import (
	"fmt"
	"strings"
)

// Op is one emitted instruction: (opcode, p1, p2, p3?) per spec §4.3,
// plus an opaque P4 payload for host-resolved values (a function
// binding, a RAISE message token) that don't fit the inline-byte-
// string shape of p3. Grounded on
// _examples/feyeleanor-wendigo/vdbeaux.go's Op{opcode, p1, p2, p3,
// p4type} struct.
type Op struct {
	Code Opcode
	P1   int
	P2   int
	P3   string
	P4   any
}

// Program is the emitted instruction sequence plus its pending label
// table, grounded on _examples/feyeleanor-wendigo/vdbeaux.go's
// Vdbe.Program/aLabel pair.
type Program struct {
	Ops    []Op
	labels []int // labels[i] == -1 means unresolved; a label's external handle is -1-i
}

func NewProgram() *Program {
	return &Program{}
}

// CurrentAddr returns the address of the next instruction to be
// inserted (spec §4.3 "current-address").
func (p *Program) CurrentAddr() int { return len(p.Ops) }

func (p *Program) addOp(op Op) int {
	addr := len(p.Ops)
	p.Ops = append(p.Ops, op)
	return addr
}

func (p *Program) AddOp0(code Opcode) int { return p.addOp(Op{Code: code}) }

func (p *Program) AddOp1(code Opcode, p1 int) int { return p.addOp(Op{Code: code, P1: p1}) }

func (p *Program) AddOp2(code Opcode, p1, p2 int) int {
	return p.addOp(Op{Code: code, P1: p1, P2: p2})
}

func (p *Program) AddOp3(code Opcode, p1, p2 int, p3 string) int {
	return p.addOp(Op{Code: code, P1: p1, P2: p2, P3: p3})
}

func (p *Program) AddOp4(code Opcode, p1, p2 int, p4 any) int {
	return p.addOp(Op{Code: code, P1: p1, P2: p2, P4: p4})
}

// MakeLabel allocates a new symbolic label — a negative handle that
// may be used as a P2 value before the target address is known (spec
// §4.3 "Label management"). Grounded on
// _examples/feyeleanor-wendigo/vdbeaux.go's MakeLabel, re-expressed
// without the teacher's manual power-of-two-growth reallocation since
// Go's append() already amortises it.
func (p *Program) MakeLabel() int {
	i := len(p.labels)
	p.labels = append(p.labels, -1)
	return -1 - i
}

// ResolveLabel fixes label x to the address of the next instruction
// to be inserted (spec §4.3). x must have come from a prior MakeLabel
// call on this Program.
func (p *Program) ResolveLabel(x int) {
	j := -1 - x
	p.labels[j] = len(p.Ops)
}

// ChangeP2 retroactively sets the P2 operand of the instruction at
// addr (spec §4.3 "change-p2").
func (p *Program) ChangeP2(addr, val int) {
	p.Ops[addr].P2 = val
}

// Seal resolves every P2 operand that still holds a pending label
// handle to its recorded target address. All forward references must
// have been resolved via ResolveLabel before this is called;
// unresolved labels are a compile-time contract violation (spec
// §4.3), reported as a panic the same way the teacher treats
// programmer-error contract violations (assert-as-panic in
// vdbeaux.go) rather than a recoverable *arena.Status.
func (p *Program) Seal() {
	for i := range p.Ops {
		if p.Ops[i].P2 < 0 {
			target := p.resolveLabelAddr(p.Ops[i].P2)
			p.Ops[i].P2 = target
		}
	}
}

func (p *Program) resolveLabelAddr(handle int) int {
	j := -1 - handle
	if j < 0 || j >= len(p.labels) {
		panic(fmt.Sprintf("emit: label handle %d out of range", handle))
	}
	addr := p.labels[j]
	if addr < 0 {
		panic(fmt.Sprintf("emit: label %d never resolved", handle))
	}
	return addr
}

// Disassemble renders the program as tab-separated
// "addr\topcode\tp1\tp2\tp3" lines for debug logging and tests.
// Grounded on
// _examples/feyeleanor-wendigo/vdbeaux.go's Comment/NoopComment debug-
// annotation idiom.
func (p *Program) Disassemble() string {
	var b strings.Builder
	for addr, op := range p.Ops {
		fmt.Fprintf(&b, "%d\t%s\t%d\t%d\t%s\n", addr, op.Code, op.P1, op.P2, op.P3)
	}
	return b.String()
}
