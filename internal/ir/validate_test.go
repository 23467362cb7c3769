package ir_test

import (
	"strings"
	"testing"

	"keel/internal/ir"
)

func i32v(v ir.ValueID) ir.Operand { return ir.Value(v, ir.TypeI32) }

func straightLine() *ir.Func {
	return &ir.Func{
		Name:   "f",
		Params: []ir.Param{{Value: 0, Type: ir.TypeI32, Name: "a"}},
		Result: ir.TypeI32,
		Blocks: []ir.Block{
			{
				ID: 0,
				Instrs: []ir.Instr{
					{Kind: ir.InstrBin, Result: 1, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: i32v(0), Right: ir.ConstInt(ir.TypeI32, 1)}},
				},
				Term: ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: i32v(1)}},
			},
		},
	}
}

func TestValidateFuncOK(t *testing.T) {
	if err := ir.ValidateFunc(straightLine()); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
}

func TestValidateFuncRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(f *ir.Func)
		want string
	}{
		{
			name: "missing terminator",
			edit: func(f *ir.Func) { f.Blocks[0].Term = ir.Terminator{} },
			want: "missing terminator",
		},
		{
			name: "entry out of range",
			edit: func(f *ir.Func) { f.Entry = 7 },
			want: "entry block bb7 out of range",
		},
		{
			name: "block ID mismatch",
			edit: func(f *ir.Func) { f.Blocks[0].ID = 3 },
			want: "does not match position",
		},
		{
			name: "branch target out of range",
			edit: func(f *ir.Func) {
				f.Blocks[0].Term = ir.Terminator{Kind: ir.TermBr, Br: ir.BrTerm{Target: 9}}
			},
			want: "branch target bb9 out of range",
		},
		{
			name: "double definition",
			edit: func(f *ir.Func) {
				f.Blocks[0].Instrs = append(f.Blocks[0].Instrs,
					ir.Instr{Kind: ir.InstrBin, Result: 1, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: i32v(0), Right: i32v(0)}})
			},
			want: "defined twice",
		},
		{
			name: "use of undefined value",
			edit: func(f *ir.Func) {
				f.Blocks[0].Instrs[0].Bin.Left = i32v(5)
			},
			want: "uses undefined v5",
		},
		{
			name: "use before definition",
			edit: func(f *ir.Func) {
				f.Blocks[0].Instrs = []ir.Instr{
					{Kind: ir.InstrBin, Result: 2, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: i32v(1), Right: i32v(0)}},
					{Kind: ir.InstrBin, Result: 1, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinAdd, Left: i32v(0), Right: i32v(0)}},
				}
			},
			want: "uses v1 before its definition",
		},
		{
			name: "phi in entry block",
			edit: func(f *ir.Func) {
				f.Blocks[0].Phis = []ir.Phi{{Result: 4, Type: ir.TypeI32}}
			},
			want: "entry bb0 has phi v4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := straightLine()
			tt.edit(f)
			err := ir.ValidateFunc(f)
			if err == nil {
				t.Fatalf("ValidateFunc accepted broken function")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateParamUses(t *testing.T) {
	// Parameters are defined before the entry block runs, so using one
	// in the entry block is not a use before definition, and using one
	// in a later block is not a use of an undefined value.
	f := straightLine()
	f.Blocks[0].Term = ir.Terminator{Kind: ir.TermBr, Br: ir.BrTerm{Target: 1}}
	f.Blocks = append(f.Blocks, ir.Block{
		ID: 1,
		Instrs: []ir.Instr{
			{Kind: ir.InstrBin, Result: 2, Type: ir.TypeI32, Bin: ir.BinInstr{Op: ir.BinMul, Left: i32v(0), Right: i32v(1)}},
		},
		Term: ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: i32v(2)}},
	})
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
}

func TestValidateResultlessInstrs(t *testing.T) {
	// Stores and debug binds leave Result at its zero value, which is
	// the legal v0; they must not be counted as definitions of it.
	f := &ir.Func{
		Name: "w",
		Params: []ir.Param{
			{Value: 0, Type: ir.TypeI32, Name: "x"},
			{Value: 1, Type: ir.TypePtr, Name: "p"},
		},
		Result: ir.TypeVoid,
		Blocks: []ir.Block{{
			ID: 0,
			Instrs: []ir.Instr{
				{Kind: ir.InstrStore, Type: ir.TypeVoid, Store: ir.StoreInstr{Addr: ir.Value(1, ir.TypePtr), Value: i32v(0)}},
				{Kind: ir.InstrDebugBind, Type: ir.TypeVoid, DebugBind: ir.DebugBindInstr{Var: "x", Value: i32v(0)}},
				{Kind: ir.InstrStore, Type: ir.TypeVoid, Store: ir.StoreInstr{Addr: ir.Value(1, ir.TypePtr), Value: i32v(0)}},
			},
			Term: ir.Terminator{Kind: ir.TermRet},
		}},
	}
	if err := ir.ValidateFunc(f); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}
}

// diamond builds entry -> (left | right) -> join with a phi at join.
func diamond() *ir.Func {
	return &ir.Func{
		Name:   "d",
		Params: []ir.Param{{Value: 0, Type: ir.TypeI1, Name: "c"}},
		Result: ir.TypeI32,
		Blocks: []ir.Block{
			{
				ID:   0,
				Term: ir.Terminator{Kind: ir.TermCondBr, CondBr: ir.CondBrTerm{Cond: ir.Value(0, ir.TypeI1), Then: 1, Else: 2}},
			},
			{ID: 1, Term: ir.Terminator{Kind: ir.TermBr, Br: ir.BrTerm{Target: 3}}},
			{ID: 2, Term: ir.Terminator{Kind: ir.TermBr, Br: ir.BrTerm{Target: 3}}},
			{
				ID: 3,
				Phis: []ir.Phi{{
					Result: 1, Type: ir.TypeI32,
					Incoming: []ir.PhiIncoming{
						{Pred: 1, Value: ir.ConstInt(ir.TypeI32, 10)},
						{Pred: 2, Value: ir.ConstInt(ir.TypeI32, 20)},
					},
				}},
				Term: ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: i32v(1)}},
			},
		},
	}
}

func TestValidatePhiEdges(t *testing.T) {
	if err := ir.ValidateFunc(diamond()); err != nil {
		t.Fatalf("ValidateFunc: %v", err)
	}

	t.Run("missing predecessor edge", func(t *testing.T) {
		f := diamond()
		f.Blocks[3].Phis[0].Incoming = f.Blocks[3].Phis[0].Incoming[:1]
		err := ir.ValidateFunc(f)
		if err == nil || !strings.Contains(err.Error(), "missing edge from predecessor bb2") {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("duplicate edge", func(t *testing.T) {
		f := diamond()
		f.Blocks[3].Phis[0].Incoming = append(f.Blocks[3].Phis[0].Incoming,
			ir.PhiIncoming{Pred: 1, Value: ir.ConstInt(ir.TypeI32, 30)})
		err := ir.ValidateFunc(f)
		if err == nil || !strings.Contains(err.Error(), "duplicate edge from bb1") {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("edge from non-predecessor", func(t *testing.T) {
		f := diamond()
		f.Blocks[3].Phis[0].Incoming = append(f.Blocks[3].Phis[0].Incoming,
			ir.PhiIncoming{Pred: 3, Value: ir.ConstInt(ir.TypeI32, 30)})
		err := ir.ValidateFunc(f)
		if err == nil || !strings.Contains(err.Error(), "edge from non-predecessor bb3") {
			t.Fatalf("got %v", err)
		}
	})
}

func TestValidateModuleJoinsFunctions(t *testing.T) {
	good := straightLine()
	bad := straightLine()
	bad.Name = "g"
	bad.Blocks[0].Term = ir.Terminator{}
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{good, nil, bad}}
	err := ir.Validate(m)
	if err == nil {
		t.Fatalf("Validate accepted broken module")
	}
	if !strings.Contains(err.Error(), "function g") {
		t.Fatalf("error %q does not name the broken function", err)
	}
	if err := ir.Validate(nil); err != nil {
		t.Fatalf("Validate(nil): %v", err)
	}
}
