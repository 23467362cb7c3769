package target_test

import (
	"testing"

	"keel/internal/ir"
	"keel/internal/sel"
	"keel/internal/target"
)

func TestValueTypeMapping(t *testing.T) {
	d := target.Generic64()
	tests := []struct {
		in   ir.Type
		want sel.VT
	}{
		{ir.TypeI1, sel.VTi1},
		{ir.TypeI8, sel.VTi8},
		{ir.TypeI16, sel.VTi16},
		{ir.TypeI32, sel.VTi32},
		{ir.TypeI64, sel.VTi64},
		{ir.TypeF32, sel.VTf32},
		{ir.TypeF64, sel.VTf64},
		{ir.TypePtr, sel.VTPtr},
		{ir.TypeVoid, sel.VTInvalid},
	}
	for _, tt := range tests {
		if got := d.ValueType(tt.in); got != tt.want {
			t.Errorf("ValueType(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSwitchVT(t *testing.T) {
	d := target.Generic64()
	if got := d.SwitchVT(); got != sel.VTi64 {
		t.Fatalf("SwitchVT on generic64 = %s", got)
	}
	d.WordBits = 32
	if got := d.SwitchVT(); got != sel.VTi32 {
		t.Fatalf("SwitchVT on 32-bit target = %s", got)
	}
}

func TestRegAlloc(t *testing.T) {
	var a target.RegAlloc
	r1 := a.NewVReg()
	r2 := a.NewVReg()
	if r1 == sel.NoReg || r2 == sel.NoReg {
		t.Fatalf("allocator handed out the reserved register")
	}
	if r1 == r2 {
		t.Fatalf("allocator repeated r%d", r1)
	}
	if a.Count() != 2 {
		t.Fatalf("Count = %d, want 2", a.Count())
	}
}
