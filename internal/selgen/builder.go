package selgen

import (
	"keel/internal/ir"
	"keel/internal/sel"
)

// builder accumulates the selection graph for one machine block. All
// of its state is torn down by FuncLowering between blocks; only the
// lowering records on FuncLowering outlive it.
type builder struct {
	fl      *FuncLowering
	g       *sel.Graph
	frag    *Fragment
	irBlock *ir.Block

	// nodeMap associates source values with the node computing them in
	// this block. Setting a value twice is a contract violation.
	nodeMap map[ir.ValueID]sel.NodeID
	// unusedArgs keeps nodes for arguments with no uses alive solely
	// so debug bindings can attach to them.
	unusedArgs map[ir.ValueID]sel.NodeID

	// root is the current ordering token. pendingLoads buffers tokens
	// of loads not yet required to be ordered; pendingExports buffers
	// register-copy tokens flushed before the terminator.
	root           sel.NodeID
	pendingLoads   []sel.NodeID
	pendingExports []sel.NodeID
}

// Root flushes pending loads into a single ordering token and returns
// it. Callers must obtain this token before emitting any node that has
// to be ordered after prior loads (stores, calls, volatile ops).
func (b *builder) Root() sel.NodeID {
	return b.flushPending(&b.pendingLoads)
}

// ControlRoot flushes pending loads and pending register exports and
// returns the token a terminator must chain from. Root's effect is
// applied first; ControlRoot never runs before a pending load sneaks
// past it.
func (b *builder) ControlRoot() sel.NodeID {
	b.Root()
	return b.flushPending(&b.pendingExports)
}

func (b *builder) flushPending(list *[]sel.NodeID) sel.NodeID {
	pend := *list
	if len(pend) == 0 {
		return b.root
	}
	// Keep the old root reachable unless a pending token already
	// chains from it.
	if b.root != b.g.Entry() {
		covered := false
		for _, t := range pend {
			if b.g.Node(t).Chain == b.root {
				covered = true
				break
			}
		}
		if !covered {
			pend = append(pend, b.root)
		}
	}
	b.root = b.g.TokenFactor(pend...)
	*list = (*list)[:0]
	return b.root
}

// Value returns the node computing op in this block. Constants are
// materialized lazily; values defined in other blocks are imported
// through their virtual register. A reference to a value of this block
// that has not been visited yet is a contract violation: definitions
// precede uses within a block.
func (b *builder) Value(op ir.Operand) sel.NodeID {
	switch op.Kind {
	case ir.OperandConst:
		vt := b.fl.td.ValueType(op.Type)
		if vt == sel.VTInvalid {
			sel.Fatalf("constant of unmappable type %s", op.Type)
		}
		if op.Const.IsFloat {
			return b.g.ConstantFP(vt, op.Const.Float)
		}
		return b.g.Constant(vt, op.Const.Int)
	case ir.OperandValue:
		if n, ok := b.nodeMap[op.Value]; ok {
			return n
		}
		def, ok := b.fl.use.Def(op.Value)
		if !ok {
			sel.Fatalf("use of never-computed value v%d", op.Value)
		}
		if b.irBlock != nil && def.Block == b.irBlock.ID && !def.IsParam && !def.IsPhi {
			sel.Fatalf("forward reference to v%d inside bb%d", op.Value, b.irBlock.ID)
		}
		reg, ok := b.fl.valueRegs[op.Value]
		if !ok {
			sel.Fatalf("v%d used across blocks but never exported from bb%d", op.Value, def.Block)
		}
		n := b.g.CopyFromReg(b.g.Entry(), reg, b.fl.td.ValueType(op.Type))
		b.nodeMap[op.Value] = n
		return n
	}
	sel.Fatalf("operand of unknown kind %d", op.Kind)
	return sel.NoNodeID
}

// setValue records n as the node computing v, resolves any dangling
// debug bindings on v, and queues a register export when v is used
// outside this block.
func (b *builder) setValue(v ir.ValueID, n sel.NodeID) {
	if _, ok := b.nodeMap[v]; ok {
		sel.Fatalf("v%d set twice within one block", v)
	}
	b.nodeMap[v] = n
	b.resolveDangling(v, n)
	if reg, ok := b.fl.valueRegs[v]; ok {
		if def, defOK := b.fl.use.Def(v); defOK && !def.IsParam && !def.IsPhi {
			b.exportToReg(reg, n)
		}
	}
}

// exportToReg queues a copy of n into reg. The copy chains from the
// entry token; ControlRoot folds it into the block's final token.
func (b *builder) exportToReg(reg sel.Reg, n sel.NodeID) {
	b.pendingExports = append(b.pendingExports, b.g.CopyToReg(b.g.Entry(), reg, n))
}

// exportOperand makes op available to other machine blocks. Values
// already carrying a register are left alone; otherwise the value must
// have been computed in this block and gets a fresh register plus a
// queued copy.
func (b *builder) exportOperand(op ir.Operand) {
	if op.Kind != ir.OperandValue {
		return
	}
	v := op.Value
	if _, ok := b.fl.valueRegs[v]; ok {
		return
	}
	n, ok := b.nodeMap[v]
	if !ok {
		sel.Fatalf("cannot export v%d: not computed in the current block", v)
	}
	reg := b.fl.regs.NewVReg()
	b.fl.valueRegs[v] = reg
	b.exportToReg(reg, n)
}

// exportPhiValues copies this block's phi contributions into the phi
// destination registers of every successor. Runs once, immediately
// before the terminator, so ControlRoot flushes the copies.
func (b *builder) exportPhiValues() {
	if b.irBlock == nil {
		return
	}
	done := make(map[sel.Reg]bool)
	for _, succ := range b.irBlock.Term.Succs() {
		sb := b.fl.fn.Block(succ)
		if sb == nil {
			continue
		}
		for pi := range sb.Phis {
			phi := &sb.Phis[pi]
			for _, inc := range phi.Incoming {
				if inc.Pred != b.irBlock.ID {
					continue
				}
				reg, ok := b.fl.valueRegs[phi.Result]
				if !ok {
					sel.Fatalf("phi v%d has no destination register", phi.Result)
				}
				if done[reg] {
					continue
				}
				done[reg] = true
				b.exportToReg(reg, b.Value(inc.Value))
			}
		}
	}
}
