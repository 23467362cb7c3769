package selgen

import (
	"fmt"
	"sort"

	"keel/internal/diag"
	"keel/internal/ir"
	"keel/internal/sel"
)

// visitDebugBind lowers a variable-binding intrinsic. A binding whose
// value is already computed attaches immediately; a binding that
// references a value not yet computed is parked in the dangling map
// and resolved when the value's node appears, in this or a later
// block.
func (b *builder) visitDebugBind(in *ir.Instr) {
	bind := &in.DebugBind
	op := bind.Value
	if op.Kind == ir.OperandConst {
		b.emitDebugValue(bind.Var, in, b.Value(op))
		return
	}
	if n, ok := b.nodeMap[op.Value]; ok {
		b.emitDebugValue(bind.Var, in, n)
		return
	}
	if n, ok := b.unusedArgs[op.Value]; ok {
		b.emitDebugValue(bind.Var, in, n)
		return
	}
	// A value that already lives in a register can be read here; a
	// value whose defining block has not been processed yet has no
	// register contents at this program point and must dangle.
	if def, ok := b.fl.use.Def(op.Value); ok {
		defined := def.IsParam
		if b.irBlock != nil {
			if def.Block < b.irBlock.ID {
				defined = true
			}
			if def.IsPhi && def.Block == b.irBlock.ID {
				defined = true
			}
		}
		if _, exported := b.fl.valueRegs[op.Value]; exported && defined {
			b.emitDebugValue(bind.Var, in, b.Value(op))
			return
		}
	}
	b.fl.dangling[op.Value] = append(b.fl.dangling[op.Value], DanglingDebug{
		Var:   bind.Var,
		Span:  in.Span,
		Order: b.fl.order,
	})
}

func (b *builder) emitDebugValue(name string, in *ir.Instr, n sel.NodeID) {
	b.frag.DebugValues = append(b.frag.DebugValues, DebugValue{
		Var:   name,
		Span:  in.Span,
		Node:  n,
		Order: b.fl.order,
	})
}

// resolveDangling attaches every parked binding of v to its freshly
// created node and removes them from the dangling map.
func (b *builder) resolveDangling(v ir.ValueID, n sel.NodeID) {
	pending, ok := b.fl.dangling[v]
	if !ok {
		return
	}
	delete(b.fl.dangling, v)
	for _, d := range pending {
		b.frag.DebugValues = append(b.frag.DebugValues, DebugValue{
			Var:   d.Var,
			Span:  d.Span,
			Node:  n,
			Order: d.Order,
		})
	}
}

// reportDangling turns every binding still unresolved at function end
// into a warning and returns the leftovers for the caller.
func (fl *FuncLowering) reportDangling() []DanglingDebug {
	var out []DanglingDebug
	for v, pending := range fl.dangling {
		for _, d := range pending {
			out = append(out, d)
			fl.reporter.Report(diag.LowDanglingDebugInfo, diag.SevWarning, d.Span,
				fmt.Sprintf("debug binding for %q references v%d, which was never computed", d.Var, v), nil)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
