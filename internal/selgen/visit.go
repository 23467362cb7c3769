package selgen

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/ir"
	"keel/internal/sel"
)

func (b *builder) visitInstr(in *ir.Instr, idx int) {
	b.fl.order++
	switch in.Kind {
	case ir.InstrBin:
		b.visitBin(in)
	case ir.InstrCmp:
		b.visitCmp(in)
	case ir.InstrCast:
		b.visitCast(in)
	case ir.InstrLoad:
		b.visitLoad(in)
	case ir.InstrStore:
		b.visitStore(in)
	case ir.InstrAlloca:
		b.visitAlloca(in)
	case ir.InstrCall:
		b.visitCall(in, idx)
	case ir.InstrIntrinsic:
		b.visitIntrinsic(in)
	case ir.InstrDebugBind:
		b.visitDebugBind(in)
	case ir.InstrNop:
	default:
		sel.Fatalf("instruction kind %d must have been eliminated before selection", in.Kind)
	}
}

var binOpcodes = map[ir.BinOp]sel.Opcode{
	ir.BinAdd:  sel.OpAdd,
	ir.BinSub:  sel.OpSub,
	ir.BinMul:  sel.OpMul,
	ir.BinSDiv: sel.OpSDiv,
	ir.BinUDiv: sel.OpUDiv,
	ir.BinSRem: sel.OpSRem,
	ir.BinURem: sel.OpURem,
	ir.BinAnd:  sel.OpAnd,
	ir.BinOr:   sel.OpOr,
	ir.BinXor:  sel.OpXor,
	ir.BinShl:  sel.OpShl,
	ir.BinLShr: sel.OpSrl,
	ir.BinAShr: sel.OpSra,
	ir.BinFAdd: sel.OpFAdd,
	ir.BinFSub: sel.OpFSub,
	ir.BinFMul: sel.OpFMul,
	ir.BinFDiv: sel.OpFDiv,
}

func (b *builder) visitBin(in *ir.Instr) {
	op, ok := binOpcodes[in.Bin.Op]
	if !ok {
		sel.Fatalf("binary operator %s has no graph opcode", in.Bin.Op)
	}
	vt := b.fl.td.ValueType(in.Type)
	// There is no legalization pass, so arithmetic wider than the
	// machine word cannot be selected on this target. Pointers are
	// word-sized by definition and stay exempt.
	if in.Type != ir.TypePtr && vt.Bits() > b.fl.td.WordBits {
		b.fl.reporter.Report(diag.LowUnsupportedConstruct, diag.SevError, in.Span,
			fmt.Sprintf("%s on %s exceeds the %d-bit target word", in.Bin.Op, in.Type, b.fl.td.WordBits), nil)
		b.setValue(in.Result, b.g.Undef(vt))
		return
	}
	l := b.Value(in.Bin.Left)
	r := b.Value(in.Bin.Right)
	b.setValue(in.Result, b.g.NewNode(op, vt, l, r))
}

var cmpCodes = map[ir.CmpPred]sel.CondCode{
	ir.CmpEq:  sel.CCEq,
	ir.CmpNe:  sel.CCNe,
	ir.CmpSLT: sel.CCSLT,
	ir.CmpSLE: sel.CCSLE,
	ir.CmpSGT: sel.CCSGT,
	ir.CmpSGE: sel.CCSGE,
	ir.CmpULT: sel.CCULT,
	ir.CmpULE: sel.CCULE,
	ir.CmpUGT: sel.CCUGT,
	ir.CmpUGE: sel.CCUGE,
}

func (b *builder) visitCmp(in *ir.Instr) {
	l := b.Value(in.Cmp.Left)
	r := b.Value(in.Cmp.Right)
	b.setValue(in.Result, b.g.SetCC(cmpCodes[in.Cmp.Pred], l, r))
}

func (b *builder) visitCast(in *ir.Instr) {
	v := b.Value(in.Cast.Value)
	vt := b.fl.td.ValueType(in.Type)
	var op sel.Opcode
	switch in.Cast.Kind {
	case ir.CastZExt:
		op = sel.OpZExt
	case ir.CastSExt:
		op = sel.OpSExt
	case ir.CastTrunc:
		op = sel.OpTrunc
	case ir.CastBitcast:
		op = sel.OpBitcast
	default:
		sel.Fatalf("cast kind %d has no graph opcode", in.Cast.Kind)
	}
	b.setValue(in.Result, b.g.NewNode(op, vt, v))
}

// visitLoad buffers plain loads: the token joins the root lazily, only
// when a store, call, or terminator needs a prior-ordering guarantee,
// so independent loads stay freely reorderable. Volatile and atomic
// loads serialize against the root immediately.
func (b *builder) visitLoad(in *ir.Instr) {
	addr := b.Value(in.Load.Addr)
	vt := b.fl.td.ValueType(in.Type)
	var flags sel.NodeFlags
	if in.Load.Volatile {
		flags |= sel.FlagVolatile
	}
	if in.Load.Atomic {
		flags |= sel.FlagAtomic
	}
	if flags != 0 {
		chain := b.Root()
		n := b.g.Load(chain, vt, addr, flags)
		b.root = n
		b.setValue(in.Result, n)
		return
	}
	n := b.g.Load(b.root, vt, addr, 0)
	b.pendingLoads = append(b.pendingLoads, n)
	b.setValue(in.Result, n)
}

// visitStore flushes the pending-load buffer first: every load that
// precedes the store in source order stays ordered before it.
func (b *builder) visitStore(in *ir.Instr) {
	val := b.Value(in.Store.Value)
	addr := b.Value(in.Store.Addr)
	var flags sel.NodeFlags
	if in.Store.Volatile {
		flags |= sel.FlagVolatile
	}
	chain := b.Root()
	n := b.g.Store(chain, val, addr, flags)
	b.root = n
}

func (b *builder) visitAlloca(in *ir.Instr) {
	slot := b.fl.addFrameSlot(in.Alloca.Size, in.Alloca.Align)
	b.fl.allocaSlot[in.Result] = slot
	b.setValue(in.Result, b.g.FrameIndex(slot))
}

func (b *builder) visitCall(in *ir.Instr, idx int) {
	var flags sel.NodeFlags
	if b.inTailPosition(in, idx) {
		flags |= sel.FlagTailCall
	}
	args := make([]sel.NodeID, 0, len(in.Call.Args)+1)
	sym := ""
	switch in.Call.Callee.Kind {
	case ir.CalleeSym:
		sym = in.Call.Callee.Name
	case ir.CalleeValue:
		// Indirect call: the target address is the first operand.
		args = append(args, b.Value(in.Call.Callee.Value))
	}
	for _, a := range in.Call.Args {
		args = append(args, b.Value(a))
	}
	retVT := sel.VTInvalid
	if in.Type != ir.TypeVoid {
		retVT = b.fl.td.ValueType(in.Type)
	}
	chain := b.Root()
	n := b.g.Call(chain, sym, retVT, flags, args...)
	b.root = n
	if in.HasResult() {
		b.setValue(in.Result, n)
	}
}

// inTailPosition reports whether the call's result flows straight into
// this block's return with nothing but debug binds in between.
func (b *builder) inTailPosition(in *ir.Instr, idx int) bool {
	if b.irBlock == nil {
		return false
	}
	for i := idx + 1; i < len(b.irBlock.Instrs); i++ {
		switch b.irBlock.Instrs[i].Kind {
		case ir.InstrDebugBind, ir.InstrNop:
		default:
			return false
		}
	}
	term := &b.irBlock.Term
	if term.Kind != ir.TermRet {
		return false
	}
	if !in.HasResult() {
		return !term.Ret.HasValue
	}
	if !term.Ret.HasValue || term.Ret.Value.Kind != ir.OperandValue {
		return false
	}
	return term.Ret.Value.Value == in.Result && in.Type == b.fl.fn.Result
}

func (b *builder) visitIntrinsic(in *ir.Instr) {
	switch in.Intrinsic.Name {
	case "trap":
		chain := b.Root()
		b.root = b.g.Trap(chain)
	case "expect":
		// Probability hint; the value passes through untouched.
		if in.HasResult() && len(in.Intrinsic.Args) > 0 {
			b.setValue(in.Result, b.Value(in.Intrinsic.Args[0]))
		}
	case "stackguard":
		chain := b.Root()
		n := b.g.StackGuard(chain)
		b.root = n
		if in.HasResult() {
			b.setValue(in.Result, n)
		}
	default:
		// No lowering rule: report and substitute undef so later uses
		// of the result do not take the graph down with them.
		b.fl.reporter.Report(diag.LowUnsupportedIntrinsic, diag.SevError, in.Span,
			fmt.Sprintf("intrinsic @%s has no lowering rule", in.Intrinsic.Name), nil)
		if in.HasResult() {
			b.setValue(in.Result, b.g.Undef(b.fl.td.ValueType(in.Type)))
		}
	}
}
