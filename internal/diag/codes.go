package diag

import "fmt"

// Code is a stable numeric diagnostic identifier.
type Code uint16

const (
	// UnknownCode is the fallback for uncoded diagnostics.
	UnknownCode Code = 0

	// IR-level findings.
	IRInfo            Code = 1000
	IRInvalidFunction Code = 1001

	// Lowering findings.
	LowInfo                Code = 2000
	LowUnsupportedConstruct Code = 2001
	LowUnsupportedIntrinsic Code = 2002
	LowNoPattern            Code = 2003
	LowDanglingDebugInfo    Code = 2004
)

var codeNames = map[Code]string{
	UnknownCode:             "unknown",
	IRInfo:                  "ir-info",
	IRInvalidFunction:       "ir-invalid-function",
	LowInfo:                 "lower-info",
	LowUnsupportedConstruct: "lower-unsupported-construct",
	LowUnsupportedIntrinsic: "lower-unsupported-intrinsic",
	LowNoPattern:            "lower-no-pattern",
	LowDanglingDebugInfo:    "lower-dangling-debug",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return fmt.Sprintf("K%04d(%s)", uint16(c), name)
	}
	return fmt.Sprintf("K%04d", uint16(c))
}
