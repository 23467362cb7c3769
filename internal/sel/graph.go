package sel

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var graphEpochs atomic.Uint32

// Graph is an arena of hash-consed selection nodes. Interning a node
// structurally identical to an existing one (same opcode, result
// types, operands, and aux payload) returns the existing NodeID, so a
// value is never represented twice.
//
// A Graph is not safe for concurrent use; one builder owns one graph
// at a time.
type Graph struct {
	epoch  uint32
	nodes  []Node
	lookup map[string]NodeID
	entry  NodeID
}

// NewGraph returns an empty graph holding only the entry token.
func NewGraph() *Graph {
	g := &Graph{
		epoch:  graphEpochs.Add(1),
		lookup: make(map[string]NodeID, 64),
	}
	g.entry = g.Intern(Node{Op: OpEntryToken, Results: []VT{VTToken}, Chain: NoNodeID, Glue: NoNodeID})
	return g
}

// Entry returns the graph's entry ordering token.
func (g *Graph) Entry() NodeID {
	return g.entry
}

// NumNodes returns the number of distinct nodes interned.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// check validates that id names a node of this graph.
func (g *Graph) check(id NodeID) int {
	if !id.Valid() {
		Fatalf("use of invalid node id")
	}
	if id.epoch() != g.epoch {
		Fatalf("node %d belongs to a different graph", id.index())
	}
	idx := id.index()
	if idx < 0 || idx >= len(g.nodes) {
		Fatalf("node index %d out of range", idx)
	}
	return idx
}

// Node returns a copy of the node named by id.
func (g *Graph) Node(id NodeID) Node {
	n := g.nodes[g.check(id)]
	out := n
	out.Results = append([]VT(nil), n.Results...)
	out.Args = append([]NodeID(nil), n.Args...)
	return out
}

// OrderOf returns the creation index of id.
func (g *Graph) OrderOf(id NodeID) uint32 {
	return g.nodes[g.check(id)].Order
}

// ValueVT returns the first value result type of id.
func (g *Graph) ValueVT(id NodeID) VT {
	n := &g.nodes[g.check(id)]
	return n.ValueVT()
}

// NodeIDs returns every node of the graph in creation order.
func (g *Graph) NodeIDs() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		out[i] = makeNodeID(g.epoch, i)
	}
	return out
}

// Intern adds n to the graph, or returns the existing identical node.
// Every operand must already be interned in this graph; a forward or
// foreign reference is fatal. The Order field of n is ignored and
// assigned by the graph.
func (g *Graph) Intern(n Node) NodeID {
	if n.Op == OpInvalid || n.Op >= opCount {
		Fatalf("intern of invalid opcode %d", n.Op)
	}
	for _, arg := range n.Args {
		g.check(arg)
	}
	if n.Chain.Valid() {
		idx := g.check(n.Chain)
		if !g.nodes[idx].HasChain() {
			Fatalf("chain operand %s produces no token", g.nodes[idx].Op)
		}
	}
	if n.Glue.Valid() {
		g.check(n.Glue)
	}
	key := internKey(&n)
	if id, ok := g.lookup[key]; ok {
		return id
	}
	n.Order = uint32(len(g.nodes))
	n.Results = append([]VT(nil), n.Results...)
	n.Args = append([]NodeID(nil), n.Args...)
	id := makeNodeID(g.epoch, len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.lookup[key] = id
	return id
}

func internKey(n *Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|", n.Op)
	for _, vt := range n.Results {
		fmt.Fprintf(&sb, "%d,", vt)
	}
	sb.WriteByte('|')
	for _, a := range n.Args {
		fmt.Fprintf(&sb, "%d,", a)
	}
	fmt.Fprintf(&sb, "|%d|%d|", n.Chain, n.Glue)
	fmt.Fprintf(&sb, "%d|%b|%q|%d|%d", n.Aux.Int, n.Aux.Float, n.Aux.Sym, n.Aux.CC, n.Aux.Flags)
	return sb.String()
}

// NewNode interns a plain data node with a single value result.
func (g *Graph) NewNode(op Opcode, vt VT, args ...NodeID) NodeID {
	return g.Intern(Node{Op: op, Results: []VT{vt}, Args: args, Chain: NoNodeID, Glue: NoNodeID})
}

// Constant interns an integer constant of the given type. The value
// is truncated to the type's width so equal constants unify.
func (g *Graph) Constant(vt VT, v int64) NodeID {
	if !vt.IsInteger() {
		Fatalf("integer constant of non-integer type %s", vt)
	}
	if bits := vt.Bits(); bits < 64 {
		v &= (1 << bits) - 1
	}
	return g.Intern(Node{Op: OpConst, Results: []VT{vt}, Aux: Aux{Int: v}, Chain: NoNodeID, Glue: NoNodeID})
}

// ConstantFP interns a floating constant.
func (g *Graph) ConstantFP(vt VT, v float64) NodeID {
	return g.Intern(Node{Op: OpConstFP, Results: []VT{vt}, Aux: Aux{Float: v}, Chain: NoNodeID, Glue: NoNodeID})
}

// Undef interns an undefined value of the given type.
func (g *Graph) Undef(vt VT) NodeID {
	return g.Intern(Node{Op: OpUndef, Results: []VT{vt}, Chain: NoNodeID, Glue: NoNodeID})
}

// Register interns a virtual register reference.
func (g *Graph) Register(r Reg, vt VT) NodeID {
	if r == NoReg {
		Fatalf("reference to the null register")
	}
	return g.Intern(Node{Op: OpRegister, Results: []VT{vt}, Aux: Aux{Int: int64(r)}, Chain: NoNodeID, Glue: NoNodeID})
}

// FrameIndex interns the address of stack slot idx.
func (g *Graph) FrameIndex(idx int) NodeID {
	return g.Intern(Node{Op: OpFrameIndex, Results: []VT{VTPtr}, Aux: Aux{Int: int64(idx)}, Chain: NoNodeID, Glue: NoNodeID})
}

// Global interns the address of the named symbol.
func (g *Graph) Global(sym string) NodeID {
	return g.Intern(Node{Op: OpGlobal, Results: []VT{VTPtr}, Aux: Aux{Sym: sym}, Chain: NoNodeID, Glue: NoNodeID})
}

// BlockRef interns a machine-block label operand.
func (g *Graph) BlockRef(block int32) NodeID {
	return g.Intern(Node{Op: OpBasicBlock, Results: []VT{VTInvalid}, Aux: Aux{Int: int64(block)}, Chain: NoNodeID, Glue: NoNodeID})
}

// JumpTableRef interns a jump-table operand.
func (g *Graph) JumpTableRef(idx int) NodeID {
	return g.Intern(Node{Op: OpJumpTable, Results: []VT{VTPtr}, Aux: Aux{Int: int64(idx)}, Chain: NoNodeID, Glue: NoNodeID})
}

// TokenFactor joins ordering tokens. Zero tokens yield the entry
// token; one token is returned unchanged.
func (g *Graph) TokenFactor(chains ...NodeID) NodeID {
	switch len(chains) {
	case 0:
		return g.entry
	case 1:
		g.check(chains[0])
		return chains[0]
	}
	return g.Intern(Node{Op: OpTokenFactor, Results: []VT{VTToken}, Args: chains, Chain: NoNodeID, Glue: NoNodeID})
}

// CopyToReg copies val into register r, ordered after chain.
func (g *Graph) CopyToReg(chain NodeID, r Reg, val NodeID) NodeID {
	reg := g.Register(r, g.ValueVT(val))
	return g.Intern(Node{Op: OpCopyToReg, Results: []VT{VTToken}, Args: []NodeID{reg, val}, Chain: chain, Glue: NoNodeID})
}

// CopyFromReg reads register r as a vt value, ordered after chain.
func (g *Graph) CopyFromReg(chain NodeID, r Reg, vt VT) NodeID {
	reg := g.Register(r, vt)
	return g.Intern(Node{Op: OpCopyFromReg, Results: []VT{vt, VTToken}, Args: []NodeID{reg}, Chain: chain, Glue: NoNodeID})
}

// Load reads a vt value from addr, ordered after chain.
func (g *Graph) Load(chain NodeID, vt VT, addr NodeID, flags NodeFlags) NodeID {
	return g.Intern(Node{Op: OpLoad, Results: []VT{vt, VTToken}, Args: []NodeID{addr}, Chain: chain, Aux: Aux{Flags: flags}, Glue: NoNodeID})
}

// Store writes val to addr, ordered after chain.
func (g *Graph) Store(chain NodeID, val, addr NodeID, flags NodeFlags) NodeID {
	return g.Intern(Node{Op: OpStore, Results: []VT{VTToken}, Args: []NodeID{val, addr}, Chain: chain, Aux: Aux{Flags: flags}, Glue: NoNodeID})
}

// SetCC compares a and b under cc, yielding an i1.
func (g *Graph) SetCC(cc CondCode, a, b NodeID) NodeID {
	return g.Intern(Node{Op: OpSetCC, Results: []VT{VTi1}, Args: []NodeID{a, b}, Aux: Aux{CC: cc}, Chain: NoNodeID, Glue: NoNodeID})
}

// Br branches unconditionally to block.
func (g *Graph) Br(chain NodeID, block int32) NodeID {
	return g.Intern(Node{Op: OpBr, Results: []VT{VTToken}, Args: []NodeID{g.BlockRef(block)}, Chain: chain, Glue: NoNodeID})
}

// BrCond branches to block when cond is true and falls through
// otherwise.
func (g *Graph) BrCond(chain NodeID, cond NodeID, block int32) NodeID {
	return g.Intern(Node{Op: OpBrCond, Results: []VT{VTToken}, Args: []NodeID{cond, g.BlockRef(block)}, Chain: chain, Glue: NoNodeID})
}

// BrTable branches through jump table jt indexed by index.
func (g *Graph) BrTable(chain NodeID, index NodeID, jt int) NodeID {
	return g.Intern(Node{Op: OpBrTable, Results: []VT{VTToken}, Args: []NodeID{index, g.JumpTableRef(jt)}, Chain: chain, Glue: NoNodeID})
}

// Ret returns from the function with optional values.
func (g *Graph) Ret(chain NodeID, vals ...NodeID) NodeID {
	return g.Intern(Node{Op: OpRet, Results: []VT{VTToken}, Args: vals, Chain: chain, Glue: NoNodeID})
}

// Call calls sym. retVT is VTInvalid for void calls; flags may mark a
// tail call. Results are the optional value followed by the chain.
func (g *Graph) Call(chain NodeID, sym string, retVT VT, flags NodeFlags, args ...NodeID) NodeID {
	results := []VT{VTToken}
	if retVT != VTInvalid {
		results = []VT{retVT, VTToken}
	}
	return g.Intern(Node{Op: OpCall, Results: results, Args: args, Chain: chain, Aux: Aux{Sym: sym, Flags: flags}, Glue: NoNodeID})
}

// StackGuard produces the live stack-guard value.
func (g *Graph) StackGuard(chain NodeID) NodeID {
	return g.Intern(Node{Op: OpStackGuard, Results: []VT{VTPtr, VTToken}, Chain: chain, Glue: NoNodeID})
}

// Trap aborts execution.
func (g *Graph) Trap(chain NodeID) NodeID {
	return g.Intern(Node{Op: OpTrap, Results: []VT{VTToken}, Chain: chain, Glue: NoNodeID})
}

// ChainReaches reports whether token from is reachable from token to
// by walking chain and token-factor edges backwards. Used to assert
// "happens after" relations.
func (g *Graph) ChainReaches(to, from NodeID) bool {
	if !to.Valid() || !from.Valid() {
		return false
	}
	g.check(to)
	g.check(from)
	seen := make(map[NodeID]bool)
	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		if id == from {
			return true
		}
		if !id.Valid() || seen[id] {
			return false
		}
		seen[id] = true
		n := &g.nodes[id.index()]
		if n.Chain.Valid() && walk(n.Chain) {
			return true
		}
		if n.Op == OpTokenFactor {
			for _, a := range n.Args {
				if walk(a) {
					return true
				}
			}
		}
		// A token result of a value node (load, call) orders after the
		// node itself; its data operands do not carry tokens.
		return false
	}
	return walk(to)
}
