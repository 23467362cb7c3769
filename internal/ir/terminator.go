package ir

// TermKind enumerates terminator kinds.
type TermKind uint8

const (
	TermNone TermKind = iota
	TermBr
	TermCondBr
	TermSwitch
	TermRet
	TermUnreachable
)

// Terminator ends a basic block. Kind selects the meaningful payload.
type Terminator struct {
	Kind TermKind

	Br          BrTerm
	CondBr      CondBrTerm
	Switch      SwitchTerm
	Ret         RetTerm
	Unreachable struct{}
}

// BrTerm is an unconditional branch.
type BrTerm struct {
	Target BlockID
}

// CondBrTerm is a two-way conditional branch. Weights are optional
// profile-derived hints; zero on both sides means unknown.
type CondBrTerm struct {
	Cond       Operand
	Then       BlockID
	Else       BlockID
	ThenWeight uint32
	ElseWeight uint32
}

// SwitchCase is one labeled value of a switch terminator. Values must
// be distinct across the cases of one switch.
type SwitchCase struct {
	Value  int64
	Target BlockID
	Weight uint32
}

// SwitchTerm is a multi-way branch on an integer value.
type SwitchTerm struct {
	Value         Operand
	Cases         []SwitchCase
	Default       BlockID
	DefaultWeight uint32
}

// RetTerm returns from the function.
type RetTerm struct {
	HasValue bool
	Value    Operand
}

// Succs returns the successor block IDs of t in a deterministic order.
func (t *Terminator) Succs() []BlockID {
	switch t.Kind {
	case TermBr:
		return []BlockID{t.Br.Target}
	case TermCondBr:
		return []BlockID{t.CondBr.Then, t.CondBr.Else}
	case TermSwitch:
		out := make([]BlockID, 0, len(t.Switch.Cases)+1)
		out = append(out, t.Switch.Default)
		for i := range t.Switch.Cases {
			out = append(out, t.Switch.Cases[i].Target)
		}
		return out
	}
	return nil
}
