package ir

// FuncID identifies a function within a module.
type FuncID int32

// BlockID identifies a basic block within a function.
type BlockID int32

// ValueID names an SSA value: a parameter, a phi result, or an
// instruction result. IDs are unique within one function.
type ValueID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoValueID ValueID = -1
)

// Type is a machine-level scalar type.
type Type uint8

const (
	// TypeVoid marks instructions that produce no value.
	TypeVoid Type = iota
	// TypeI1 is a one-bit boolean.
	TypeI1
	// TypeI8 is an 8-bit integer.
	TypeI8
	// TypeI16 is a 16-bit integer.
	TypeI16
	// TypeI32 is a 32-bit integer.
	TypeI32
	// TypeI64 is a 64-bit integer.
	TypeI64
	// TypeF32 is a 32-bit float.
	TypeF32
	// TypeF64 is a 64-bit float.
	TypeF64
	// TypePtr is a pointer-sized integer address.
	TypePtr
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeI1:
		return "i1"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypePtr:
		return "ptr"
	}
	return "unknown"
}

// IsInteger reports whether t is an integer type (including i1 and ptr).
func (t Type) IsInteger() bool {
	switch t {
	case TypeI1, TypeI8, TypeI16, TypeI32, TypeI64, TypePtr:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating-point type.
func (t Type) IsFloat() bool {
	return t == TypeF32 || t == TypeF64
}

// Bits returns the width of t in bits, 0 for void.
func (t Type) Bits() int {
	switch t {
	case TypeI1:
		return 1
	case TypeI8:
		return 8
	case TypeI16:
		return 16
	case TypeI32:
		return 32
	case TypeI64, TypeF64, TypePtr:
		return 64
	case TypeF32:
		return 32
	}
	return 0
}
