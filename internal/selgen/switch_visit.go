package selgen

import (
	"math/bits"

	"keel/internal/ir"
	"keel/internal/sel"
)

// visitCaseBlock emits the compare-and-branch a CaseBlock describes
// into the current block and terminates it.
func (b *builder) visitCaseBlock(cb *CaseBlock) {
	cb.emitted = true
	if cb.Unconditional || cb.TrueMB == cb.FalseMB {
		chain := b.ControlRoot()
		b.root = b.g.Br(chain, cb.TrueMB)
		return
	}

	var cond sel.NodeID
	switch {
	case cb.IsRange:
		// Rebase and test both bounds with one unsigned compare.
		vt := b.fl.td.ValueType(cb.Lhs.Type)
		sub := b.g.NewNode(sel.OpSub, vt, b.Value(cb.Lhs), b.g.Constant(vt, cb.Low))
		cond = b.g.SetCC(sel.CCULE, sub, b.g.Constant(vt, cb.High-cb.Low))
	case cb.CC == sel.CCNe && cb.Lhs.Type == ir.TypeI1 &&
		cb.Rhs.Kind == ir.OperandConst && cb.Rhs.Const.Int == 0:
		// Branching on "bool != false" is branching on the bool.
		cond = b.Value(cb.Lhs)
	default:
		cond = b.g.SetCC(cb.CC, b.Value(cb.Lhs), b.Value(cb.Rhs))
	}

	chain := b.ControlRoot()
	bc := b.g.BrCond(chain, cond, cb.TrueMB)
	b.root = b.g.Br(bc, cb.FalseMB)
}

// visitJumpTableHeader rebases the switch value, copies the index into
// the table register, and range-checks against the default target.
func (b *builder) visitJumpTableHeader(p *JTPair) {
	p.Header.emitted = true
	h := &p.Header
	condVT := b.fl.td.ValueType(h.CondType)
	switchVT := b.fl.td.SwitchVT()

	idx := b.g.NewNode(sel.OpSub, condVT, b.Value(h.Cond), b.g.Constant(condVT, h.First))
	if condVT != switchVT {
		idx = b.g.NewNode(sel.OpZExt, switchVT, idx)
	}
	chain := b.ControlRoot()
	chain = b.g.CopyToReg(chain, p.JT.Reg, idx)

	if h.OmitRangeCheck {
		b.root = b.g.Br(chain, p.JT.MBB)
		return
	}
	limit := b.g.Constant(switchVT, h.Last-h.First)
	over := b.g.SetCC(sel.CCUGT, idx, limit)
	bc := b.g.BrCond(chain, over, p.JT.Default)
	b.root = b.g.Br(bc, p.JT.MBB)
}

// visitJumpTable emits the indirect branch through the table.
func (b *builder) visitJumpTable(p *JTPair) {
	p.JT.emitted = true
	idx := b.g.CopyFromReg(b.g.Entry(), p.JT.Reg, b.fl.td.SwitchVT())
	chain := b.ControlRoot()
	b.root = b.g.BrTable(chain, idx, p.JT.JTI)
}

// visitBitTestHeader rebases the switch value into the shared test
// register and range-checks before entering the first case block.
func (b *builder) visitBitTestHeader(btb *BitTestBlock) {
	btb.headerEmitted = true
	condVT := b.fl.td.ValueType(btb.CondType)

	v := b.g.NewNode(sel.OpSub, condVT, b.Value(btb.Cond), b.g.Constant(condVT, btb.First))
	if condVT != btb.RegVT {
		v = b.g.NewNode(sel.OpZExt, btb.RegVT, v)
	}
	chain := b.ControlRoot()
	chain = b.g.CopyToReg(chain, btb.Reg, v)

	first := btb.Cases[0].ThisMB
	if btb.OmitRangeCheck {
		b.root = b.g.Br(chain, first)
		return
	}
	limit := b.g.Constant(btb.RegVT, int64(btb.Range))
	over := b.g.SetCC(sel.CCUGT, v, limit)
	bc := b.g.BrCond(chain, over, btb.Default)
	b.root = b.g.Br(bc, first)
}

// visitBitTestCase tests one destination's mask. A miss falls through
// to the next case block, or to the default after the last one.
func (b *builder) visitBitTestCase(btb *BitTestBlock, idx int) {
	btc := &btb.Cases[idx]
	btc.emitted = true
	v := b.g.CopyFromReg(b.g.Entry(), btb.Reg, btb.RegVT)

	var hit sel.NodeID
	if bits.OnesCount64(btc.Mask) == 1 {
		// Single-member mask degenerates to an equality test.
		bit := int64(bits.TrailingZeros64(btc.Mask))
		hit = b.g.SetCC(sel.CCEq, v, b.g.Constant(btb.RegVT, bit))
	} else {
		one := b.g.Constant(btb.RegVT, 1)
		shl := b.g.NewNode(sel.OpShl, btb.RegVT, one, v)
		and := b.g.NewNode(sel.OpAnd, btb.RegVT, shl, b.g.Constant(btb.RegVT, int64(btc.Mask)))
		hit = b.g.SetCC(sel.CCNe, and, b.g.Constant(btb.RegVT, 0))
	}

	miss := btb.Default
	if idx+1 < len(btb.Cases) {
		miss = btb.Cases[idx+1].ThisMB
	}
	chain := b.ControlRoot()
	bc := b.g.BrCond(chain, hit, btc.TargetMB)
	b.root = b.g.Br(bc, miss)
}
