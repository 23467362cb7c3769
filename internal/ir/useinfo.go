package ir

// DefSite locates the definition of a value within a function.
type DefSite struct {
	Block BlockID
	// Instr is the index into Block.Instrs, or -1 for parameters and
	// phi results.
	Instr   int
	IsParam bool
	IsPhi   bool
}

// UseInfo is a per-function index of value definitions and uses,
// computed once before lowering.
type UseInfo struct {
	defs    map[ValueID]DefSite
	uses    map[ValueID]int
	outside map[ValueID]bool
}

// BuildUseInfo scans f and indexes every definition and use.
func BuildUseInfo(f *Func) *UseInfo {
	u := &UseInfo{
		defs:    make(map[ValueID]DefSite),
		uses:    make(map[ValueID]int),
		outside: make(map[ValueID]bool),
	}
	if f == nil {
		return u
	}
	for i := range f.Params {
		u.defs[f.Params[i].Value] = DefSite{Block: f.Entry, Instr: -1, IsParam: true}
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for pi := range bb.Phis {
			u.defs[bb.Phis[pi].Result] = DefSite{Block: bb.ID, Instr: -1, IsPhi: true}
		}
		for ii := range bb.Instrs {
			in := &bb.Instrs[ii]
			if in.HasResult() {
				u.defs[in.Result] = DefSite{Block: bb.ID, Instr: ii}
			}
		}
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for pi := range bb.Phis {
			for _, inc := range bb.Phis[pi].Incoming {
				// A phi use happens in the predecessor, not here.
				u.noteUse(inc.Value, inc.Pred)
			}
		}
		for ii := range bb.Instrs {
			in := &bb.Instrs[ii]
			for _, op := range in.Operands() {
				u.noteUse(op, bb.ID)
			}
		}
		for _, op := range bb.Term.Operands() {
			u.noteUse(op, bb.ID)
		}
	}
	return u
}

func (u *UseInfo) noteUse(op Operand, useBlock BlockID) {
	if op.Kind != OperandValue {
		return
	}
	u.uses[op.Value]++
	if def, ok := u.defs[op.Value]; ok && def.Block != useBlock {
		u.outside[op.Value] = true
	}
}

// Def returns the definition site of v.
func (u *UseInfo) Def(v ValueID) (DefSite, bool) {
	d, ok := u.defs[v]
	return d, ok
}

// UseCount returns the number of uses of v across the function.
func (u *UseInfo) UseCount(v ValueID) int {
	return u.uses[v]
}

// UsedOutsideBlock reports whether v has a use in a block other than
// the one defining it. Phi incoming operands count as uses in the
// predecessor block.
func (u *UseInfo) UsedOutsideBlock(v ValueID) bool {
	return u.outside[v]
}

// Operands returns every operand read by the instruction. The returned
// slice is freshly allocated.
func (in *Instr) Operands() []Operand {
	switch in.Kind {
	case InstrBin:
		return []Operand{in.Bin.Left, in.Bin.Right}
	case InstrCmp:
		return []Operand{in.Cmp.Left, in.Cmp.Right}
	case InstrCast:
		return []Operand{in.Cast.Value}
	case InstrLoad:
		return []Operand{in.Load.Addr}
	case InstrStore:
		return []Operand{in.Store.Addr, in.Store.Value}
	case InstrCall:
		ops := make([]Operand, 0, len(in.Call.Args)+1)
		if in.Call.Callee.Kind == CalleeValue {
			ops = append(ops, in.Call.Callee.Value)
		}
		return append(ops, in.Call.Args...)
	case InstrIntrinsic:
		return append([]Operand(nil), in.Intrinsic.Args...)
	case InstrDebugBind:
		return []Operand{in.DebugBind.Value}
	}
	return nil
}

// Operands returns every operand read by the terminator.
func (t *Terminator) Operands() []Operand {
	switch t.Kind {
	case TermCondBr:
		return []Operand{t.CondBr.Cond}
	case TermSwitch:
		return []Operand{t.Switch.Value}
	case TermRet:
		if t.Ret.HasValue {
			return []Operand{t.Ret.Value}
		}
	}
	return nil
}
