package sel

// VT is a machine value type carried by a graph node result.
type VT uint8

const (
	// VTInvalid marks an absent type.
	VTInvalid VT = iota
	// VTi1 is a one-bit integer.
	VTi1
	// VTi8 is an 8-bit integer.
	VTi8
	// VTi16 is a 16-bit integer.
	VTi16
	// VTi32 is a 32-bit integer.
	VTi32
	// VTi64 is a 64-bit integer.
	VTi64
	// VTf32 is a 32-bit float.
	VTf32
	// VTf64 is a 64-bit float.
	VTf64
	// VTPtr is a pointer-width integer.
	VTPtr
	// VTToken is the chain/ordering token type. Token edges encode
	// "happens after" among side-effecting nodes.
	VTToken
	// VTGlue forces the producing and consuming nodes to stay
	// adjacent through scheduling.
	VTGlue
)

func (vt VT) String() string {
	switch vt {
	case VTi1:
		return "i1"
	case VTi8:
		return "i8"
	case VTi16:
		return "i16"
	case VTi32:
		return "i32"
	case VTi64:
		return "i64"
	case VTf32:
		return "f32"
	case VTf64:
		return "f64"
	case VTPtr:
		return "ptr"
	case VTToken:
		return "token"
	case VTGlue:
		return "glue"
	}
	return "invalid"
}

// IsInteger reports whether vt is an integer value type.
func (vt VT) IsInteger() bool {
	switch vt {
	case VTi1, VTi8, VTi16, VTi32, VTi64, VTPtr:
		return true
	}
	return false
}

// Bits returns the width of vt in bits, 0 for non-value types.
func (vt VT) Bits() int {
	switch vt {
	case VTi1:
		return 1
	case VTi8:
		return 8
	case VTi16:
		return 16
	case VTi32, VTf32:
		return 32
	case VTi64, VTf64, VTPtr:
		return 64
	}
	return 0
}
