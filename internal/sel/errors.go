package sel

import "fmt"

// ContractError is the payload of panics raised on broken lowering
// invariants: querying a value never computed, interning a node whose
// operand belongs to a different graph, double-initializing a state
// machine. These are unrecoverable for the current translation unit;
// the function driver converts them into an error for that unit and
// discards all partial state.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return "lowering contract violation: " + e.Msg
}

// Fatalf panics with a ContractError.
func Fatalf(format string, args ...any) {
	panic(&ContractError{Msg: fmt.Sprintf(format, args...)})
}
