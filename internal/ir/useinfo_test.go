package ir_test

import (
	"testing"

	"keel/internal/ir"
)

func TestUseInfoDefSites(t *testing.T) {
	f := diamond()
	u := ir.BuildUseInfo(f)

	param, ok := u.Def(0)
	if !ok || !param.IsParam || param.Block != f.Entry || param.Instr != -1 {
		t.Fatalf("param def site = %+v, ok=%v", param, ok)
	}
	phi, ok := u.Def(1)
	if !ok || !phi.IsPhi || phi.Block != 3 || phi.Instr != -1 {
		t.Fatalf("phi def site = %+v, ok=%v", phi, ok)
	}
	if _, ok := u.Def(9); ok {
		t.Fatalf("Def reported a site for an undefined value")
	}
}

func TestUseInfoInstrDefSite(t *testing.T) {
	f := straightLine()
	u := ir.BuildUseInfo(f)
	d, ok := u.Def(1)
	if !ok || d.IsParam || d.IsPhi || d.Block != 0 || d.Instr != 0 {
		t.Fatalf("instr def site = %+v, ok=%v", d, ok)
	}
}

func TestUseInfoIgnoresResultlessInstrs(t *testing.T) {
	// A store carries the zero-value Result but defines nothing; it must
	// not overwrite the parameter's def site with an instruction site.
	f := straightLine()
	f.Params = append(f.Params, ir.Param{Value: 2, Type: ir.TypePtr, Name: "p"})
	f.Blocks[0].Instrs = append(f.Blocks[0].Instrs,
		ir.Instr{Kind: ir.InstrStore, Type: ir.TypeVoid, Store: ir.StoreInstr{Addr: ir.Value(2, ir.TypePtr), Value: i32v(1)}})
	u := ir.BuildUseInfo(f)

	d, ok := u.Def(0)
	if !ok || !d.IsParam {
		t.Fatalf("param def site = %+v, ok=%v", d, ok)
	}
	if got := u.UseCount(1); got != 2 {
		t.Fatalf("UseCount(v1) = %d, want 2", got)
	}
}

func TestUseInfoCounts(t *testing.T) {
	f := straightLine()
	// a second use of the add result
	f.Blocks[0].Instrs = append(f.Blocks[0].Instrs,
		ir.Instr{Kind: ir.InstrBin, Result: 2, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: i32v(1), Right: i32v(1)}})
	f.Blocks[0].Term = ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: i32v(2)}}
	u := ir.BuildUseInfo(f)

	if got := u.UseCount(0); got != 1 {
		t.Fatalf("UseCount(v0) = %d, want 1", got)
	}
	if got := u.UseCount(1); got != 2 {
		t.Fatalf("UseCount(v1) = %d, want 2", got)
	}
	if got := u.UseCount(2); got != 1 {
		t.Fatalf("UseCount(v2) = %d, want 1", got)
	}
	if got := u.UseCount(9); got != 0 {
		t.Fatalf("UseCount(undefined) = %d, want 0", got)
	}
}

func TestUsedOutsideBlock(t *testing.T) {
	f := diamond()
	// feed the parameter through the left arm so it crosses a block
	f.Blocks[3].Phis[0].Incoming[0].Value = ir.Value(0, ir.TypeI1)
	f.Blocks[3].Phis[0].Type = ir.TypeI1
	f.Blocks[3].Term = ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: ir.Value(1, ir.TypeI1)}}
	u := ir.BuildUseInfo(f)

	// The phi incoming counts as a use in bb1, which is not the
	// defining block of the parameter.
	if !u.UsedOutsideBlock(0) {
		t.Fatalf("param fed through a phi edge in bb1 should count as used outside bb0")
	}
	if u.UsedOutsideBlock(1) {
		t.Fatalf("phi result is only used in its own block")
	}
}

func TestPhiUseAttributedToPredecessor(t *testing.T) {
	f := diamond()
	// define a value in the left arm and route it through the phi
	f.Blocks[1].Instrs = []ir.Instr{
		{Kind: ir.InstrBin, Result: 2, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: ir.ConstInt(ir.TypeI32, 1), Right: ir.ConstInt(ir.TypeI32, 2)}},
	}
	f.Blocks[3].Phis[0].Incoming[0].Value = i32v(2)
	u := ir.BuildUseInfo(f)

	if u.UsedOutsideBlock(2) {
		t.Fatalf("phi use of v2 happens in its defining block bb1, not in the join")
	}
	if got := u.UseCount(2); got != 1 {
		t.Fatalf("UseCount(v2) = %d, want 1", got)
	}
}
