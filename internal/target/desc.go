// Package target holds the target description records consumed by
// lowering: value-type mapping, calling-convention and stack-guard
// symbols, tunable lowering thresholds, and the instruction-selection
// callback surface. Everything here is read-only during lowering.
package target

import (
	"keel/internal/ir"
	"keel/internal/sel"
)

// Desc describes one lowering target. Fields are fixed after
// construction; lowering treats the record as a pure query interface.
type Desc struct {
	Name     string
	WordBits int

	// StackGuardSym is the symbol holding the stack-guard value.
	StackGuardSym string
	// StackFailSym is called when a stack-guard check fails.
	StackFailSym string

	Opts LoweringOpts
}

// Generic64 returns the built-in 64-bit pseudo target.
func Generic64() *Desc {
	return &Desc{
		Name:          "generic64",
		WordBits:      64,
		StackGuardSym: "__stack_chk_guard",
		StackFailSym:  "__stack_chk_fail",
		Opts:          DefaultOpts(),
	}
}

// ValueType maps an IR type to the machine value type computing it.
func (d *Desc) ValueType(t ir.Type) sel.VT {
	switch t {
	case ir.TypeI1:
		return sel.VTi1
	case ir.TypeI8:
		return sel.VTi8
	case ir.TypeI16:
		return sel.VTi16
	case ir.TypeI32:
		return sel.VTi32
	case ir.TypeI64:
		return sel.VTi64
	case ir.TypeF32:
		return sel.VTf32
	case ir.TypeF64:
		return sel.VTf64
	case ir.TypePtr:
		return sel.VTPtr
	}
	return sel.VTInvalid
}

// PointerVT returns the value type of addresses on this target.
func (d *Desc) PointerVT() sel.VT {
	return sel.VTPtr
}

// SwitchVT returns the value type switch comparisons are widened to.
func (d *Desc) SwitchVT() sel.VT {
	if d.WordBits <= 32 {
		return sel.VTi32
	}
	return sel.VTi64
}

// RegAlloc hands out virtual register numbers for one function.
type RegAlloc struct {
	next sel.Reg
}

// NewVReg returns a fresh virtual register.
func (a *RegAlloc) NewVReg() sel.Reg {
	a.next++
	return a.next
}

// Count returns the number of registers allocated so far.
func (a *RegAlloc) Count() int {
	return int(a.next)
}
