package target

import (
	"fmt"

	"keel/internal/sel"
)

// MOperandKind distinguishes machine instruction operand forms.
type MOperandKind uint8

const (
	// MOpReg is a virtual register operand.
	MOpReg MOperandKind = iota
	// MOpImm is an integer immediate.
	MOpImm
	// MOpFloat is a floating immediate.
	MOpFloat
	// MOpSym is a symbol reference.
	MOpSym
	// MOpBlock is a machine-block label.
	MOpBlock
	// MOpFrame is a stack-slot index.
	MOpFrame
	// MOpTable is a jump-table index.
	MOpTable
)

// MOperand is one operand of a machine instruction.
type MOperand struct {
	Kind  MOperandKind
	Reg   sel.Reg
	Imm   int64
	Float float64
	Sym   string
	Block int32
	Index int
}

func (o MOperand) String() string {
	switch o.Kind {
	case MOpReg:
		return fmt.Sprintf("r%d", o.Reg)
	case MOpImm:
		return fmt.Sprintf("#%d", o.Imm)
	case MOpFloat:
		return fmt.Sprintf("#%g", o.Float)
	case MOpSym:
		return "@" + o.Sym
	case MOpBlock:
		return fmt.Sprintf("mb%d", o.Block)
	case MOpFrame:
		return fmt.Sprintf("fi%d", o.Index)
	case MOpTable:
		return fmt.Sprintf("jt%d", o.Index)
	}
	return "?"
}

// MInstr is one linearized machine instruction. Dst is NoReg when the
// instruction defines nothing.
type MInstr struct {
	Op   string
	Dst  sel.Reg
	Args []MOperand
}

func (mi MInstr) String() string {
	out := mi.Op
	if mi.Dst != sel.NoReg {
		out += fmt.Sprintf(" r%d =", mi.Dst)
	}
	for _, a := range mi.Args {
		out += " " + a.String()
	}
	return out
}

// Selector is the pattern-matching surface: given a graph node with
// its operands already resolved to machine operands, return the
// matched instruction or refuse. A refusal is an unsupported-construct
// report, not a fatal error.
type Selector interface {
	Select(n sel.Node, dst sel.Reg, args []MOperand) (MInstr, bool)
}

// GenericSelector matches every node one-to-one onto a pseudo
// instruction named after its opcode. It exists for tests and for the
// CLI's target-independent dump.
type GenericSelector struct{}

// Select implements Selector.
func (GenericSelector) Select(n sel.Node, dst sel.Reg, args []MOperand) (MInstr, bool) {
	op := n.Op.String()
	switch n.Op {
	case sel.OpInvalid:
		return MInstr{}, false
	case sel.OpSetCC:
		op = "setcc." + n.Aux.CC.String()
	case sel.OpCall:
		if n.Aux.Flags&sel.FlagTailCall != 0 {
			op = "tailcall"
		}
	}
	return MInstr{Op: op, Dst: dst, Args: args}, true
}
