package selgen

import "keel/internal/sel"

// StackProtector tracks the state of guard-check insertion. Parent and
// success are per-block state, cleared after each block is finished;
// the failure block and guard slot are per-function, created on first
// use and cleared only at the function boundary. The failure block is
// shared: every guarded return branches to the same abort call.
type StackProtector struct {
	parent    int32
	success   int32
	failure   int32
	guardSlot int
}

func newStackProtector() StackProtector {
	return StackProtector{parent: -1, success: -1, failure: -1, guardSlot: -1}
}

// Initialize arms the descriptor for the block being finished. Calling
// it while already initialized is a contract violation.
func (sp *StackProtector) Initialize(parent, success, failure int32, guardSlot int) {
	if sp.parent != -1 {
		sel.Fatalf("stack protector initialized twice for mb%d", sp.parent)
	}
	if parent < 0 || success < 0 || failure < 0 || guardSlot < 0 {
		sel.Fatalf("stack protector initialized with incomplete state")
	}
	sp.parent = parent
	sp.success = success
	sp.failure = failure
	sp.guardSlot = guardSlot
}

// ShouldEmit reports whether all four fields are populated.
func (sp *StackProtector) ShouldEmit() bool {
	return sp.parent != -1 && sp.success != -1 && sp.failure != -1 && sp.guardSlot != -1
}

// Parent returns the block receiving the guard check.
func (sp *StackProtector) Parent() int32 { return sp.parent }

// Success returns the block receiving the spliced terminator.
func (sp *StackProtector) Success() int32 { return sp.success }

// Failure returns the shared per-function failure block, or -1.
func (sp *StackProtector) Failure() int32 { return sp.failure }

// GuardSlot returns the frame slot holding the stored guard, or -1.
func (sp *StackProtector) GuardSlot() int { return sp.guardSlot }

// ResetPerBlock clears the per-block fields, keeping the failure block
// and guard slot for the next return in the same function.
func (sp *StackProtector) ResetPerBlock() {
	sp.parent = -1
	sp.success = -1
}

// ResetPerFunc clears the per-function fields.
func (sp *StackProtector) ResetPerFunc() {
	sp.parent = -1
	sp.success = -1
	sp.failure = -1
	sp.guardSlot = -1
}
