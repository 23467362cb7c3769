package sel

// NodeID is a stable handle to a node. The high half carries the
// owning graph's epoch so that a handle from one graph is rejected,
// not silently reinterpreted, when passed to another.
type NodeID int64

// NoNodeID marks the absence of a node.
const NoNodeID NodeID = -1

func makeNodeID(epoch uint32, idx int) NodeID {
	return NodeID(uint64(epoch)<<32 | uint64(uint32(idx)))
}

func (id NodeID) index() int {
	return int(uint32(uint64(id)))
}

func (id NodeID) epoch() uint32 {
	return uint32(uint64(id) >> 32)
}

// Valid reports whether id refers to some node.
func (id NodeID) Valid() bool {
	return id != NoNodeID
}

// Reg is a virtual register number. Zero is not a register.
type Reg uint32

// NoReg marks the absence of a register.
const NoReg Reg = 0

// CondCode is the comparison predicate of an OpSetCC node.
type CondCode uint8

const (
	CCEq CondCode = iota
	CCNe
	CCSLT
	CCSLE
	CCSGT
	CCSGE
	CCULT
	CCULE
	CCUGT
	CCUGE
)

func (cc CondCode) String() string {
	switch cc {
	case CCEq:
		return "eq"
	case CCNe:
		return "ne"
	case CCSLT:
		return "slt"
	case CCSLE:
		return "sle"
	case CCSGT:
		return "sgt"
	case CCSGE:
		return "sge"
	case CCULT:
		return "ult"
	case CCULE:
		return "ule"
	case CCUGT:
		return "ugt"
	case CCUGE:
		return "uge"
	}
	return "cc?"
}

// NodeFlags carry per-node attributes that participate in node
// identity.
type NodeFlags uint8

const (
	// FlagVolatile marks a load or store that must not be reordered
	// with other memory operations.
	FlagVolatile NodeFlags = 1 << iota
	// FlagAtomic marks an atomic memory operation.
	FlagAtomic
	// FlagTailCall marks a call in tail position.
	FlagTailCall
)

// Aux is the out-of-band payload of a node. Which fields are
// meaningful depends on the opcode: Int holds constants, register
// numbers, frame-slot and jump-table indices, and block numbers;
// Sym holds symbol names; CC holds the OpSetCC predicate.
type Aux struct {
	Int   int64
	Float float64
	Sym   string
	CC    CondCode
	Flags NodeFlags
}

// Node is one operation of the selection graph. Nodes are immutable
// once interned; Graph.Node returns copies.
//
// Args are data operands and always refer to the producer's value
// result. Chain, when set, refers to the producer's ordering token;
// Glue pins this node immediately after the glue producer during
// scheduling.
type Node struct {
	Op      Opcode
	Results []VT
	Args    []NodeID
	Chain   NodeID
	Glue    NodeID
	Aux     Aux

	// Order is the creation index within the owning graph. It breaks
	// scheduling ties deterministically when no edge orders two nodes.
	Order uint32
}

// ValueVT returns the node's first value result type, or VTInvalid
// when the node produces only a token.
func (n *Node) ValueVT() VT {
	if len(n.Results) == 0 || n.Results[0] == VTToken || n.Results[0] == VTGlue {
		return VTInvalid
	}
	return n.Results[0]
}

// HasChain reports whether one of the node's results is an ordering
// token.
func (n *Node) HasChain() bool {
	for _, vt := range n.Results {
		if vt == VTToken {
			return true
		}
	}
	return false
}
