package driver_test

import (
	"context"
	"strings"
	"testing"

	"keel/internal/driver"
	"keel/internal/ir"
	"keel/internal/irpack"
	"keel/internal/observ"
)

func retConst(name string, v int64) *ir.Func {
	return &ir.Func{
		Name:   name,
		Result: ir.TypeI32,
		Blocks: []ir.Block{{
			ID:   0,
			Term: ir.Terminator{Kind: ir.TermRet, Ret: ir.RetTerm{HasValue: true, Value: ir.ConstInt(ir.TypeI32, v)}},
		}},
	}
}

func unterminated(name string) *ir.Func {
	return &ir.Func{Name: name, Blocks: []ir.Block{{ID: 0}}}
}

func TestLowerModule(t *testing.T) {
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{
		retConst("a", 1),
		retConst("b", 2),
		retConst("c", 3),
	}}
	res, err := driver.LowerModule(context.Background(), m, driver.Options{Jobs: 2})
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	if len(res.Funcs) != 3 {
		t.Fatalf("results = %d, want 3", len(res.Funcs))
	}
	for i, fr := range res.Funcs {
		if fr.Func != m.Funcs[i] {
			t.Fatalf("result %d is out of order: %s", i, fr.Func.Name)
		}
		if fr.Invalid || fr.Err != nil || fr.Machine == nil {
			t.Fatalf("function %s failed: invalid=%v err=%v", m.Funcs[i].Name, fr.Invalid, fr.Err)
		}
		if len(fr.Machine.Blocks) == 0 {
			t.Fatalf("function %s has no machine blocks", m.Funcs[i].Name)
		}
		if fr.Digest == (irpack.Digest{}) {
			t.Fatalf("function %s has no digest", m.Funcs[i].Name)
		}
	}
	if res.HasErrors() {
		t.Fatalf("HasErrors on a clean module")
	}
}

func TestLowerModuleValidationGate(t *testing.T) {
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{
		retConst("good", 1),
		unterminated("bad"),
		nil,
	}}
	res, err := driver.LowerModule(context.Background(), m, driver.Options{})
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}

	good := res.Funcs[0]
	if good.Invalid || good.Machine == nil {
		t.Fatalf("valid function blocked by its neighbors")
	}

	bad := res.Funcs[1]
	if !bad.Invalid || bad.Machine != nil {
		t.Fatalf("invalid function lowered anyway")
	}
	if bad.Bag.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1", bad.Bag.Len())
	}
	if msg := bad.Bag.Items()[0].Message; !strings.Contains(msg, "bad rejected") {
		t.Fatalf("diagnostic %q does not name the function", msg)
	}

	if !res.Funcs[2].Invalid {
		t.Fatalf("nil function not marked invalid")
	}
	if !res.HasErrors() {
		t.Fatalf("HasErrors missed the broken functions")
	}
}

func TestLowerModuleContractViolation(t *testing.T) {
	// Duplicate switch cases pass the validation gate but break the
	// lowering's case-clustering invariant. The failure must stay
	// contained in one FuncResult.
	f := &ir.Func{
		Name:   "broken",
		Params: []ir.Param{{Value: 0, Type: ir.TypeI32, Name: "x"}},
		Blocks: []ir.Block{
			{ID: 0, Term: ir.Terminator{Kind: ir.TermSwitch, Switch: ir.SwitchTerm{
				Value: ir.Value(0, ir.TypeI32),
				Cases: []ir.SwitchCase{
					{Value: 1, Target: 1},
					{Value: 1, Target: 2},
				},
				Default: 1,
			}}},
			{ID: 1, Term: ir.Terminator{Kind: ir.TermRet}},
			{ID: 2, Term: ir.Terminator{Kind: ir.TermRet}},
		},
	}
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{retConst("fine", 1), f}}
	res, err := driver.LowerModule(context.Background(), m, driver.Options{})
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	if res.Funcs[0].Err != nil || res.Funcs[0].Machine == nil {
		t.Fatalf("healthy function caught the neighbor's failure: %v", res.Funcs[0].Err)
	}
	fr := res.Funcs[1]
	if fr.Err == nil || fr.Machine != nil {
		t.Fatalf("contract violation not surfaced: err=%v", fr.Err)
	}
	if !strings.Contains(fr.Err.Error(), "broken") {
		t.Fatalf("error %q does not name the function", fr.Err)
	}
	if !res.HasErrors() {
		t.Fatalf("HasErrors missed the failed function")
	}
}

func TestLowerModuleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{retConst("a", 1)}}
	_, err := driver.LowerModule(ctx, m, driver.Options{})
	if err == nil {
		t.Fatalf("LowerModule ignored a canceled context")
	}
}

func TestLowerModuleTimer(t *testing.T) {
	timer := observ.NewTimer()
	m := &ir.Module{Name: "m", Funcs: []*ir.Func{retConst("a", 1)}}
	if _, err := driver.LowerModule(context.Background(), m, driver.Options{Timer: timer}); err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	sum := timer.Summary()
	if !strings.Contains(sum, "lower") || !strings.Contains(sum, "1 funcs") {
		t.Fatalf("timer summary %q", sum)
	}
}

func TestLowerModuleEmpty(t *testing.T) {
	res, err := driver.LowerModule(context.Background(), &ir.Module{Name: "empty"}, driver.Options{})
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	if len(res.Funcs) != 0 || res.HasErrors() {
		t.Fatalf("results = %+v", res.Funcs)
	}
}
