// Package linear flattens lowered fragments into machine blocks: it
// schedules each fragment's live nodes in creation order, which is a
// topological order of both value and chain edges, assigns a virtual
// register to every value-producing node, and hands each node to the
// target's selector. Leaf nodes — constants, registers, labels, frame
// and table indices — fold into operands of their users instead of
// becoming instructions.
package linear

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/sel"
	"keel/internal/selgen"
	"keel/internal/target"
)

// MBlock is one linearized machine block.
type MBlock struct {
	MB     int32
	Label  string
	Succs  []int32
	Instrs []target.MInstr
}

// MFunc is one linearized function.
type MFunc struct {
	Name   string
	Blocks []MBlock

	JumpTables [][]int32
	FrameSlots []selgen.FrameSlot

	// NumRegs counts all virtual registers, including the ones
	// linearization itself assigned to node results.
	NumRegs int
}

// Run linearizes every fragment of res through selector. Nodes the
// selector refuses are reported and skipped; the function still comes
// out, minus the refused instructions.
func Run(res *selgen.Result, selector target.Selector, reporter diag.Reporter) *MFunc {
	ln := &linearizer{
		res:      res,
		selector: selector,
		reporter: reporter,
		nextReg:  sel.Reg(res.Regs),
	}
	mf := &MFunc{
		Name:       res.Fn.Name,
		JumpTables: res.JumpTables,
		FrameSlots: res.FrameSlots,
	}
	for _, frag := range res.Fragments {
		mf.Blocks = append(mf.Blocks, ln.block(frag))
	}
	mf.NumRegs = int(ln.nextReg)
	return mf
}

type linearizer struct {
	res      *selgen.Result
	selector target.Selector
	reporter diag.Reporter
	nextReg  sel.Reg
}

func (ln *linearizer) newReg() sel.Reg {
	r := ln.nextReg
	ln.nextReg++
	return r
}

func (ln *linearizer) block(frag *selgen.Fragment) MBlock {
	mb := MBlock{MB: frag.MB, Label: frag.Label, Succs: frag.Succs}
	g := frag.Graph

	// Debug-value nodes count as roots: an otherwise dead node a
	// binding points at still has to exist as a register.
	live := liveSet(g, frag)
	nodeRegs := make(map[sel.NodeID]sel.Reg)

	for _, id := range g.NodeIDs() {
		if !live[id] {
			continue
		}
		n := g.Node(id)
		if foldable(n.Op) {
			continue
		}

		var dst sel.Reg = sel.NoReg
		args := make([]target.MOperand, 0, len(n.Args)+1)
		switch n.Op {
		case sel.OpCopyToReg:
			// The named register is the destination, the value the
			// sole operand.
			dst = sel.Reg(g.Node(n.Args[0]).Aux.Int)
			args = append(args, ln.operand(g, nodeRegs, n.Args[1]))
		case sel.OpCopyFromReg:
			dst = ln.newReg()
			nodeRegs[id] = dst
			args = append(args, target.MOperand{Kind: target.MOpReg, Reg: sel.Reg(g.Node(n.Args[0]).Aux.Int)})
		default:
			if vt := n.ValueVT(); vt != sel.VTInvalid && vt != sel.VTToken {
				dst = ln.newReg()
				nodeRegs[id] = dst
			}
			if n.Op == sel.OpCall && n.Aux.Sym != "" {
				args = append(args, target.MOperand{Kind: target.MOpSym, Sym: n.Aux.Sym})
			}
			for _, a := range n.Args {
				args = append(args, ln.operand(g, nodeRegs, a))
			}
		}

		mi, ok := ln.selector.Select(n, dst, args)
		if !ok {
			ln.reporter.Report(diag.LowNoPattern, diag.SevError, ln.res.Fn.Span,
				fmt.Sprintf("no instruction pattern for %s in %s", n.Op, frag.Label), nil)
			continue
		}
		mb.Instrs = append(mb.Instrs, mi)
	}

	for _, dv := range frag.DebugValues {
		mb.Instrs = append(mb.Instrs, target.MInstr{
			Op:  "dbg_value",
			Dst: sel.NoReg,
			Args: []target.MOperand{
				{Kind: target.MOpSym, Sym: dv.Var},
				ln.operand(g, nodeRegs, dv.Node),
			},
		})
	}
	return mb
}

// liveSet walks all edges back from the fragment root and the debug
// bindings, marking every node that must be materialized.
func liveSet(g *sel.Graph, frag *selgen.Fragment) map[sel.NodeID]bool {
	live := make(map[sel.NodeID]bool)
	var stack []sel.NodeID
	push := func(id sel.NodeID) {
		if id.Valid() && !live[id] {
			live[id] = true
			stack = append(stack, id)
		}
	}
	push(frag.Root)
	for _, dv := range frag.DebugValues {
		push(dv.Node)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.Node(id)
		for _, a := range n.Args {
			push(a)
		}
		push(n.Chain)
		push(n.Glue)
	}
	return live
}

// foldable reports whether the opcode never becomes an instruction.
func foldable(op sel.Opcode) bool {
	switch op {
	case sel.OpEntryToken, sel.OpTokenFactor, sel.OpConst, sel.OpConstFP,
		sel.OpUndef, sel.OpRegister, sel.OpFrameIndex, sel.OpGlobal,
		sel.OpBasicBlock, sel.OpJumpTable:
		return true
	}
	return false
}

func (ln *linearizer) operand(g *sel.Graph, nodeRegs map[sel.NodeID]sel.Reg, id sel.NodeID) target.MOperand {
	n := g.Node(id)
	switch n.Op {
	case sel.OpConst:
		return target.MOperand{Kind: target.MOpImm, Imm: n.Aux.Int}
	case sel.OpConstFP:
		return target.MOperand{Kind: target.MOpFloat, Float: n.Aux.Float}
	case sel.OpUndef:
		return target.MOperand{Kind: target.MOpImm}
	case sel.OpRegister:
		return target.MOperand{Kind: target.MOpReg, Reg: sel.Reg(n.Aux.Int)}
	case sel.OpFrameIndex:
		return target.MOperand{Kind: target.MOpFrame, Index: int(n.Aux.Int)}
	case sel.OpGlobal:
		return target.MOperand{Kind: target.MOpSym, Sym: n.Aux.Sym}
	case sel.OpBasicBlock:
		return target.MOperand{Kind: target.MOpBlock, Block: int32(n.Aux.Int)}
	case sel.OpJumpTable:
		return target.MOperand{Kind: target.MOpTable, Index: int(n.Aux.Int)}
	}
	r, ok := nodeRegs[id]
	if !ok {
		sel.Fatalf("operand %s scheduled after its user", n.Op)
	}
	return target.MOperand{Kind: target.MOpReg, Reg: r}
}
