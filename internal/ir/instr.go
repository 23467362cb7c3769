package ir

import "keel/internal/source"

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrBin represents a two-operand arithmetic or logical instruction.
	InstrBin InstrKind = iota
	// InstrCmp represents an integer comparison producing an i1.
	InstrCmp
	// InstrCast represents a width or representation change.
	InstrCast
	// InstrLoad represents a memory read.
	InstrLoad
	// InstrStore represents a memory write.
	InstrStore
	// InstrAlloca represents a fixed-size stack slot allocation.
	InstrAlloca
	// InstrCall represents a function call.
	InstrCall
	// InstrIntrinsic represents a named intrinsic call.
	InstrIntrinsic
	// InstrDebugBind binds a value to a source-level variable for debug info.
	InstrDebugBind
	// InstrNop represents a no-op.
	InstrNop
)

// Instr is one instruction of a basic block. Kind selects which of the
// per-kind payloads is meaningful. Whether Result names a defined value
// is decided by HasResult, not by the field alone.
type Instr struct {
	Kind   InstrKind
	Result ValueID
	Type   Type
	Span   source.Span

	Bin       BinInstr
	Cmp       CmpInstr
	Cast      CastInstr
	Load      LoadInstr
	Store     StoreInstr
	Alloca    AllocaInstr
	Call      CallInstr
	Intrinsic IntrinsicInstr
	DebugBind DebugBindInstr
}

// HasResult reports whether the instruction defines a value. The
// Result field alone cannot decide this: its zero value is a legal
// ValueID, so kinds that never produce a value must not be read as
// definitions of v0.
func (in *Instr) HasResult() bool {
	switch in.Kind {
	case InstrStore, InstrDebugBind, InstrNop:
		return false
	case InstrCall, InstrIntrinsic:
		return in.Type != TypeVoid && in.Result != NoValueID
	}
	return in.Result != NoValueID
}

// BinOp enumerates binary operators.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinSDiv
	BinUDiv
	BinSRem
	BinURem
	BinAnd
	BinOr
	BinXor
	BinShl
	BinLShr
	BinAShr
	BinFAdd
	BinFSub
	BinFMul
	BinFDiv
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinSDiv:
		return "sdiv"
	case BinUDiv:
		return "udiv"
	case BinSRem:
		return "srem"
	case BinURem:
		return "urem"
	case BinAnd:
		return "and"
	case BinOr:
		return "or"
	case BinXor:
		return "xor"
	case BinShl:
		return "shl"
	case BinLShr:
		return "lshr"
	case BinAShr:
		return "ashr"
	case BinFAdd:
		return "fadd"
	case BinFSub:
		return "fsub"
	case BinFMul:
		return "fmul"
	case BinFDiv:
		return "fdiv"
	}
	return "bin?"
}

// BinInstr represents a binary instruction.
type BinInstr struct {
	Op    BinOp
	Left  Operand
	Right Operand
}

// CmpPred enumerates comparison predicates.
type CmpPred uint8

const (
	CmpEq CmpPred = iota
	CmpNe
	CmpSLT
	CmpSLE
	CmpSGT
	CmpSGE
	CmpULT
	CmpULE
	CmpUGT
	CmpUGE
)

func (p CmpPred) String() string {
	switch p {
	case CmpEq:
		return "eq"
	case CmpNe:
		return "ne"
	case CmpSLT:
		return "slt"
	case CmpSLE:
		return "sle"
	case CmpSGT:
		return "sgt"
	case CmpSGE:
		return "sge"
	case CmpULT:
		return "ult"
	case CmpULE:
		return "ule"
	case CmpUGT:
		return "ugt"
	case CmpUGE:
		return "uge"
	}
	return "cmp?"
}

// CmpInstr represents a comparison instruction.
type CmpInstr struct {
	Pred  CmpPred
	Left  Operand
	Right Operand
}

// CastKind enumerates cast instruction kinds.
type CastKind uint8

const (
	// CastZExt zero-extends to a wider integer.
	CastZExt CastKind = iota
	// CastSExt sign-extends to a wider integer.
	CastSExt
	// CastTrunc truncates to a narrower integer.
	CastTrunc
	// CastBitcast reinterprets bits at the same width.
	CastBitcast
)

// CastInstr represents a cast instruction. The target type is the
// instruction's Type field.
type CastInstr struct {
	Kind  CastKind
	Value Operand
}

// LoadInstr represents a memory read. The loaded type is the
// instruction's Type field.
type LoadInstr struct {
	Addr     Operand
	Volatile bool
	Atomic   bool
}

// StoreInstr represents a memory write.
type StoreInstr struct {
	Addr     Operand
	Value    Operand
	Volatile bool
}

// AllocaInstr represents a stack slot of Size bytes with the given
// alignment. The result value is the slot's address.
type AllocaInstr struct {
	Size  int64
	Align int64
}

// CalleeKind distinguishes call target forms.
type CalleeKind uint8

const (
	// CalleeSym calls a function by symbol name.
	CalleeSym CalleeKind = iota
	// CalleeValue calls through a computed function address.
	CalleeValue
)

// Callee represents a call target.
type Callee struct {
	Kind  CalleeKind
	Name  string
	Value Operand
}

// CallInstr represents a function call. Result type is the instruction's
// Type field; TypeVoid means no result.
type CallInstr struct {
	Callee Callee
	Args   []Operand
}

// IntrinsicInstr represents a named intrinsic. Intrinsics with no
// lowering rule are reported as unsupported, not fatal.
type IntrinsicInstr struct {
	Name string
	Args []Operand
}

// DebugBindInstr binds the current value of Var to an operand. The
// operand may name a value defined later in the function; such bindings
// stay dangling until the definition is seen.
type DebugBindInstr struct {
	Var   string
	Value Operand
}

// OperandKind distinguishes operand forms.
type OperandKind uint8

const (
	// OperandValue references an SSA value.
	OperandValue OperandKind = iota
	// OperandConst is an immediate constant.
	OperandConst
)

// Operand is a use of an SSA value or an immediate constant.
type Operand struct {
	Kind  OperandKind
	Type  Type
	Value ValueID
	Const Const
}

// Value returns a value operand.
func Value(v ValueID, t Type) Operand {
	return Operand{Kind: OperandValue, Type: t, Value: v}
}

// ConstInt returns an integer constant operand.
func ConstInt(t Type, v int64) Operand {
	return Operand{Kind: OperandConst, Type: t, Const: Const{Int: v}}
}

// ConstFloat returns a floating constant operand.
func ConstFloat(t Type, v float64) Operand {
	return Operand{Kind: OperandConst, Type: t, Const: Const{Float: v, IsFloat: true}}
}

// Const is an immediate constant. Integer constants are stored
// sign-agnostically in Int; the operand type decides interpretation.
type Const struct {
	Int     int64
	Float   float64
	IsFloat bool
}
