package selgen

import (
	"keel/internal/ir"
	"keel/internal/sel"
)

func (b *builder) visitTerm(t *ir.Terminator) {
	b.fl.order++
	b.exportPhiValues()
	switch t.Kind {
	case ir.TermBr:
		chain := b.ControlRoot()
		b.root = b.g.Br(chain, int32(t.Br.Target))
	case ir.TermCondBr:
		b.visitCondBr(&t.CondBr)
	case ir.TermSwitch:
		b.visitSwitch(&t.Switch)
	case ir.TermRet:
		b.visitRet(t)
	case ir.TermUnreachable:
		// Nothing to emit; the block's token stands as-is.
	default:
		sel.Fatalf("terminator kind %d must have been eliminated before selection", t.Kind)
	}
}

func (b *builder) visitRet(t *ir.Terminator) {
	if b.fl.spElig && b.irBlock != nil {
		b.spliceStackProtector(t)
		return
	}
	b.emitRet(t)
}

func (b *builder) emitRet(t *ir.Terminator) {
	chain := b.ControlRoot()
	if t.Ret.HasValue {
		v := b.Value(t.Ret.Value)
		b.root = b.g.Ret(chain, v)
		return
	}
	b.root = b.g.Ret(chain)
}

// spliceStackProtector replaces the block's return with a guard check:
// the original terminator moves to a fresh success block, and the
// parent re-terminates with a guard-load/compare/branch to the shared
// failure block. The failure block is created once per function.
func (b *builder) spliceStackProtector(t *ir.Terminator) {
	fl := b.fl
	if t.Ret.HasValue {
		// The success block re-reads the return operand.
		b.exportOperand(t.Ret.Value)
	}
	success := fl.newMBlock("sp.success")
	failure := fl.sp.Failure()
	if failure == -1 {
		failure = fl.newMBlock("sp.fail")
	}
	fl.sp.Initialize(b.frag.MB, success, failure, fl.guardSlot)
	b.emitGuardCheck(&fl.sp)

	fl.pendingRets = append(fl.pendingRets, pendingRet{mb: fl.sp.Success(), term: *t})
}

// emitGuardCheck re-terminates the descriptor's parent block with the
// guard load, compare, and two-way branch. The descriptor must be
// fully armed for the current block.
func (b *builder) emitGuardCheck(sp *StackProtector) {
	if !sp.ShouldEmit() {
		sel.Fatalf("guard check emitted with an unarmed protector")
	}
	if sp.Parent() != b.frag.MB {
		sel.Fatalf("guard check for mb%d emitted from mb%d", sp.Parent(), b.frag.MB)
	}
	chain := b.Root()
	stored := b.g.Load(chain, b.fl.td.PointerVT(), b.g.FrameIndex(sp.GuardSlot()), 0)
	live := b.g.StackGuard(stored)
	cmp := b.g.SetCC(sel.CCNe, stored, live)
	chain = b.ControlRoot()
	chain = b.g.TokenFactor(chain, live)
	bc := b.g.BrCond(chain, cmp, sp.Failure())
	b.root = b.g.Br(bc, sp.Success())
}

// visitCondBr lowers a two-way branch. A condition that is a
// single-use AND/OR of sub-conditions in this block is split into
// chained compare-and-branch blocks instead of materializing the full
// boolean, so the untaken side never computes the remaining operands.
func (b *builder) visitCondBr(t *ir.CondBrTerm) {
	thenMB := int32(t.Then)
	elseMB := int32(t.Else)
	if op, isSplit := b.splittableCond(t.Cond); isSplit {
		b.fl.findMergedConditions(b, t.Cond, thenMB, elseMB, b.frag.MB, op, t.ThenWeight, t.ElseWeight)
		// The first record belongs to this block; emit it now, leave
		// the rest pending.
		for i := range b.fl.switchCases {
			cb := &b.fl.switchCases[i]
			if !cb.emitted && cb.ThisMB == b.frag.MB {
				b.visitCaseBlock(cb)
				break
			}
		}
		return
	}
	cond := b.Value(t.Cond)
	chain := b.ControlRoot()
	bc := b.g.BrCond(chain, cond, thenMB)
	b.root = b.g.Br(bc, elseMB)
}

// splittableCond reports whether cond is a boolean AND/OR defined in
// the current source block with exactly one use.
func (b *builder) splittableCond(cond ir.Operand) (ir.BinOp, bool) {
	if b.irBlock == nil || cond.Kind != ir.OperandValue || cond.Type != ir.TypeI1 {
		return 0, false
	}
	def, ok := b.fl.use.Def(cond.Value)
	if !ok || def.IsParam || def.IsPhi || def.Block != b.irBlock.ID {
		return 0, false
	}
	if b.fl.use.UseCount(cond.Value) != 1 {
		return 0, false
	}
	in := &b.irBlock.Instrs[def.Instr]
	if in.Kind != ir.InstrBin {
		return 0, false
	}
	switch in.Bin.Op {
	case ir.BinAnd, ir.BinOr:
		return in.Bin.Op, true
	}
	return 0, false
}

// findMergedConditions recursively decomposes an AND/OR condition tree
// into CaseBlock records: AND sends a false left operand straight to
// the false target, OR sends a true left operand straight to the true
// target, and either way the right operand is evaluated in a fresh
// intermediate block.
func (fl *FuncLowering) findMergedConditions(b *builder, cond ir.Operand, tbb, fbb, cur int32, op ir.BinOp, tw, fw uint32) {
	def, _ := fl.use.Def(cond.Value)
	in := &b.irBlock.Instrs[def.Instr]
	lhs, rhs := in.Bin.Left, in.Bin.Right

	tmp := fl.newMBlock("cc")
	if op == ir.BinAnd {
		fl.mergeOrEmit(b, lhs, tmp, fbb, cur, tw, fw)
		fl.mergeOrEmit(b, rhs, tbb, fbb, tmp, tw, fw)
	} else {
		fl.mergeOrEmit(b, lhs, tbb, tmp, cur, tw, fw)
		fl.mergeOrEmit(b, rhs, tbb, fbb, tmp, tw, fw)
	}
}

func (fl *FuncLowering) mergeOrEmit(b *builder, cond ir.Operand, tbb, fbb, cur int32, tw, fw uint32) {
	if op, ok := b.splittableCond(cond); ok {
		fl.findMergedConditions(b, cond, tbb, fbb, cur, op, tw, fw)
		return
	}
	fl.emitBranchForMergedCondition(b, cond, tbb, fbb, cur, tw, fw)
}

// emitBranchForMergedCondition records one leaf comparison. A
// single-use comparison defined in the current block is folded into
// the branch; anything else branches on the boolean value itself.
func (fl *FuncLowering) emitBranchForMergedCondition(b *builder, cond ir.Operand, tbb, fbb, cur int32, tw, fw uint32) {
	if cond.Kind == ir.OperandValue {
		if def, ok := fl.use.Def(cond.Value); ok && !def.IsParam && !def.IsPhi &&
			b.irBlock != nil && def.Block == b.irBlock.ID && fl.use.UseCount(cond.Value) == 1 {
			in := &b.irBlock.Instrs[def.Instr]
			if in.Kind == ir.InstrCmp {
				b.exportOperand(in.Cmp.Left)
				b.exportOperand(in.Cmp.Right)
				fl.switchCases = append(fl.switchCases, CaseBlock{
					CC:          cmpCodes[in.Cmp.Pred],
					Lhs:         in.Cmp.Left,
					Rhs:         in.Cmp.Right,
					TrueMB:      tbb,
					FalseMB:     fbb,
					ThisMB:      cur,
					TrueWeight:  tw,
					FalseWeight: fw,
				})
				return
			}
		}
		b.exportOperand(cond)
	}
	fl.switchCases = append(fl.switchCases, CaseBlock{
		CC:          sel.CCNe,
		Lhs:         cond,
		Rhs:         ir.ConstInt(ir.TypeI1, 0),
		TrueMB:      tbb,
		FalseMB:     fbb,
		ThisMB:      cur,
		TrueWeight:  tw,
		FalseWeight: fw,
	})
}
