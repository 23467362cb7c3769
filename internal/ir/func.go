package ir

import "keel/internal/source"

// Block is one basic block: phi bindings at entry, instructions in
// order, and a terminator. Within a block every definition precedes
// its uses.
type Block struct {
	ID     BlockID
	Phis   []Phi
	Instrs []Instr
	Term   Terminator
}

// Terminated reports whether the block has a real terminator.
func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// Phi merges one value per predecessor at block entry.
type Phi struct {
	Result   ValueID
	Type     Type
	Incoming []PhiIncoming
}

// PhiIncoming is one phi edge: the value flowing in from Pred.
type PhiIncoming struct {
	Pred  BlockID
	Value Operand
}

// Param is one formal parameter of a function.
type Param struct {
	Value ValueID
	Type  Type
	Name  string
}

// Func is one function in CFG form. Blocks are indexed by BlockID.
type Func struct {
	ID   FuncID
	Name string
	Span source.Span

	Params []Param
	Result Type

	Blocks []Block
	Entry  BlockID

	// StackProtect requests a stack-guard check before every return.
	StackProtect bool
}

// Block returns the block with the given ID, or nil if out of range.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}
