package sel_test

import (
	"testing"

	"keel/internal/sel"
)

func TestInternDeduplicates(t *testing.T) {
	g := sel.NewGraph()
	before := g.NumNodes()

	a := g.Constant(sel.VTi32, 42)
	b := g.Constant(sel.VTi32, 42)
	if a != b {
		t.Fatalf("equal constants interned twice: %v vs %v", a, b)
	}
	if got := g.NumNodes(); got != before+1 {
		t.Fatalf("NumNodes = %d, want %d", got, before+1)
	}

	x := g.NewNode(sel.OpAdd, sel.VTi32, a, b)
	y := g.NewNode(sel.OpAdd, sel.VTi32, a, b)
	if x != y {
		t.Fatalf("equal add nodes interned twice: %v vs %v", x, y)
	}
	if z := g.NewNode(sel.OpAdd, sel.VTi32, a, g.Constant(sel.VTi32, 7)); z == x {
		t.Fatalf("different operands interned to the same node")
	}
}

func TestConstantTruncation(t *testing.T) {
	g := sel.NewGraph()
	tests := []struct {
		vt   sel.VT
		in   int64
		want int64
	}{
		{sel.VTi8, 0x1ff, 0xff},
		{sel.VTi8, -1, 0xff},
		{sel.VTi16, 0x12345, 0x2345},
		{sel.VTi32, -1, 0xffffffff},
		{sel.VTi64, -1, -1},
		{sel.VTi1, 3, 1},
	}
	for _, tt := range tests {
		id := g.Constant(tt.vt, tt.in)
		if got := g.Node(id).Aux.Int; got != tt.want {
			t.Errorf("Constant(%s, %#x) = %#x, want %#x", tt.vt, tt.in, got, tt.want)
		}
	}
	// Truncation is what lets differently-written equal values unify.
	if g.Constant(sel.VTi8, 0x100) != g.Constant(sel.VTi8, 0) {
		t.Errorf("0x100 and 0 did not unify at i8")
	}
}

func TestForeignOperandPanics(t *testing.T) {
	g1 := sel.NewGraph()
	g2 := sel.NewGraph()
	c := g1.Constant(sel.VTi32, 1)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("foreign operand did not panic")
		}
		if _, ok := r.(*sel.ContractError); !ok {
			t.Fatalf("panic payload is %T, want *sel.ContractError", r)
		}
	}()
	g2.NewNode(sel.OpAdd, sel.VTi32, c, c)
}

func TestTokenFactorCollapse(t *testing.T) {
	g := sel.NewGraph()
	if got := g.TokenFactor(); got != g.Entry() {
		t.Fatalf("empty TokenFactor = %v, want entry", got)
	}
	ld := g.Load(g.Entry(), sel.VTi64, g.FrameIndex(0), 0)
	if got := g.TokenFactor(ld); got != ld {
		t.Fatalf("single TokenFactor = %v, want %v", got, ld)
	}
	joined := g.TokenFactor(ld, g.Entry())
	if joined == ld || joined == g.Entry() {
		t.Fatalf("two-way TokenFactor did not create a join node")
	}
}

func TestChainReaches(t *testing.T) {
	g := sel.NewGraph()
	fi := g.FrameIndex(0)
	ld := g.Load(g.Entry(), sel.VTi64, fi, 0)
	st := g.Store(g.TokenFactor(ld), ld, fi, 0)

	if !g.ChainReaches(st, ld) {
		t.Errorf("store does not reach the load it is ordered after")
	}
	if !g.ChainReaches(st, g.Entry()) {
		t.Errorf("store does not reach the entry token")
	}
	if g.ChainReaches(ld, st) {
		t.Errorf("load reaches a store created after it")
	}
}

func TestEntryTokenHasNoChain(t *testing.T) {
	g := sel.NewGraph()
	n := g.Node(g.Entry())
	if n.Op != sel.OpEntryToken {
		t.Fatalf("entry op = %v, want %v", n.Op, sel.OpEntryToken)
	}
	// The entry token starts every chain, so it must not carry chain or
	// glue operands itself; a zero NodeID there would point at node 0 of
	// some graph, not at nothing.
	if n.Chain.Valid() {
		t.Errorf("entry token has chain operand %v", n.Chain)
	}
	if n.Glue.Valid() {
		t.Errorf("entry token has glue operand %v", n.Glue)
	}
}

func TestNodeIDValidity(t *testing.T) {
	if sel.NoNodeID.Valid() {
		t.Errorf("NoNodeID reports valid")
	}
	g := sel.NewGraph()
	if !g.Entry().Valid() {
		t.Errorf("entry token reports invalid")
	}
}
