// Package selgen builds per-block selection graphs from IR functions
// and lowers control flow: switch decomposition into bit-test,
// jump-table, and binary-tree strategies, short-circuit branch
// splitting, and stack-protector insertion. One FuncLowering processes
// one function, one block at a time, in source order.
package selgen

import (
	"keel/internal/ir"
	"keel/internal/sel"
	"keel/internal/source"
)

// CaseCluster is a closed value range [Low, High] routed to one
// machine block. Clusters produced by Clusterify are disjoint and
// sorted by Low.
type CaseCluster struct {
	Low    int64
	High   int64
	Target int32
	Weight uint32
}

// Span returns the number of values the cluster covers.
func (c CaseCluster) Span() uint64 {
	return uint64(c.High-c.Low) + 1
}

// CaseBlock is a pending compare-and-branch: emitted into ThisMB, it
// routes to TrueMB when the comparison holds and to FalseMB otherwise.
// With Unconditional set, no comparison is emitted. With IsRange set,
// the test is Lhs-Low <= High-Low unsigned.
type CaseBlock struct {
	CC     sel.CondCode
	Lhs    ir.Operand
	Rhs    ir.Operand
	Low    int64
	High   int64
	IsRange bool
	Unconditional bool

	TrueMB  int32
	FalseMB int32
	ThisMB  int32

	TrueWeight  uint32
	FalseWeight uint32

	emitted bool
}

// JumpTable names the indirect-branch half of a jump-table lowering.
type JumpTable struct {
	// Reg holds the table index, copied in by the header block.
	Reg sel.Reg
	// JTI indexes Result.JumpTables.
	JTI int
	// MBB is the block holding the indirect branch.
	MBB int32
	// Default is the block for out-of-range values.
	Default int32

	emitted bool
}

// JumpTableHeader is the bounds-check half: emitted into HeaderMB, it
// rebases the switch value against First and branches to the table
// block or, when the value exceeds Last-First, to the default.
type JumpTableHeader struct {
	First int64
	Last  int64
	Cond  ir.Operand
	CondType ir.Type
	HeaderMB int32
	// OmitRangeCheck is set when bounds established by ancestor
	// comparisons already confine the value to [First, Last].
	OmitRangeCheck bool
	DefaultWeight  uint32

	emitted bool
}

// JTPair couples a jump table with its header. Clusters snapshots the
// input ranges so per-case weights survive the table encoding.
type JTPair struct {
	JT       JumpTable
	Header   JumpTableHeader
	Clusters []CaseCluster
}

// BitTestCase tests membership in Mask: emitted into ThisMB, it
// branches to TargetMB on a hit and falls through to the next case
// block (or the default) otherwise.
type BitTestCase struct {
	Mask     uint64
	ThisMB   int32
	TargetMB int32
	Weight   uint32

	emitted bool
}

// BitTestBlock is a pending bit-test lowering: a header performing the
// range check plus one BitTestCase per distinct destination.
type BitTestBlock struct {
	// First is subtracted from the switch value before testing.
	First int64
	// Range is the largest rebased value covered by the masks.
	Range    uint64
	Cond     ir.Operand
	CondType ir.Type
	// Reg carries the rebased value from the header to the case blocks.
	Reg   sel.Reg
	RegVT sel.VT

	Parent  int32
	Default int32
	DefaultWeight uint32
	// OmitRangeCheck is set when ancestor bounds confine the value.
	OmitRangeCheck bool

	Cases []BitTestCase

	headerEmitted bool
}

// DebugValue binds a source variable to the graph node computing its
// value at a given point of the instruction stream.
type DebugValue struct {
	Var   string
	Span  source.Span
	Node  sel.NodeID
	Order uint32
}

// DanglingDebug is a variable binding whose value had not been
// computed yet when the binding was seen. It is resolved, and removed,
// the moment the value's node is created.
type DanglingDebug struct {
	Var   string
	Span  source.Span
	Order uint32
}

// Fragment is the output for one machine block: a selection graph
// rooted at the block's final ordering token.
type Fragment struct {
	// MB is the machine block number. Source blocks keep their IR
	// block number; synthetic blocks are numbered after them.
	MB    int32
	Label string
	// IRBlock is the source block, or NoBlockID for synthetic blocks.
	IRBlock ir.BlockID

	Graph *sel.Graph
	// Root is the final ordering token; every side effect of the block
	// is chain-reachable from it.
	Root sel.NodeID

	Succs       []int32
	DebugValues []DebugValue
}

// FrameSlot describes one stack slot of the lowered function.
type FrameSlot struct {
	Size  int64
	Align int64
}
