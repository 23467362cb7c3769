package ir

import (
	"errors"
	"fmt"
)

// Validate checks module invariants that lowering depends on. A
// failure here means the producer of the IR is broken; lowering a
// module that fails validation is a contract violation.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function.
func ValidateFunc(f *Func) error {
	if f == nil {
		return nil
	}
	var errs []error
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateDefs(f); err != nil {
		errs = append(errs, err)
	}
	if err := validatePhis(f); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	if f.Entry < 0 || int(f.Entry) >= len(f.Blocks) {
		errs = append(errs, fmt.Errorf("entry block bb%d out of range", f.Entry))
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if bb.ID != BlockID(i) {
			errs = append(errs, fmt.Errorf("bb%d: stored ID %d does not match position", i, bb.ID))
		}
		if !bb.Terminated() {
			errs = append(errs, fmt.Errorf("bb%d: missing terminator", bb.ID))
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for _, succ := range bb.Term.Succs() {
			if succ < 0 || int(succ) >= len(f.Blocks) {
				errs = append(errs, fmt.Errorf("bb%d: branch target bb%d out of range", bb.ID, succ))
			}
		}
	}
	return errors.Join(errs...)
}

// validateDefs checks that every value has exactly one definition and
// that intra-block uses come after the definition.
func validateDefs(f *Func) error {
	var errs []error
	defined := make(map[ValueID]BlockID)
	note := func(v ValueID, bb BlockID) {
		if prev, ok := defined[v]; ok {
			errs = append(errs, fmt.Errorf("v%d defined twice (bb%d and bb%d)", v, prev, bb))
			return
		}
		defined[v] = bb
	}
	for i := range f.Params {
		note(f.Params[i].Value, f.Entry)
	}
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for pi := range bb.Phis {
			note(bb.Phis[pi].Result, bb.ID)
		}
		for ii := range bb.Instrs {
			if in := &bb.Instrs[ii]; in.HasResult() {
				note(in.Result, bb.ID)
			}
		}
	}
	// Intra-block order: def precedes use.
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		seen := make(map[ValueID]bool)
		if bb.ID == f.Entry {
			for pi := range f.Params {
				seen[f.Params[pi].Value] = true
			}
		}
		for pi := range bb.Phis {
			seen[bb.Phis[pi].Result] = true
		}
		check := func(ops []Operand, what string) {
			for _, op := range ops {
				if op.Kind != OperandValue {
					continue
				}
				def, ok := defined[op.Value]
				if !ok {
					errs = append(errs, fmt.Errorf("bb%d: %s uses undefined v%d", bb.ID, what, op.Value))
					continue
				}
				if def == bb.ID && !seen[op.Value] {
					errs = append(errs, fmt.Errorf("bb%d: %s uses v%d before its definition", bb.ID, what, op.Value))
				}
			}
		}
		for ii := range bb.Instrs {
			in := &bb.Instrs[ii]
			check(in.Operands(), "instruction")
			if in.HasResult() {
				seen[in.Result] = true
			}
		}
		check(bb.Term.Operands(), "terminator")
	}
	if f.Entry >= 0 && int(f.Entry) < len(f.Blocks) {
		for pi := range f.Blocks[f.Entry].Phis {
			errs = append(errs, fmt.Errorf("entry bb%d has phi v%d", f.Entry, f.Blocks[f.Entry].Phis[pi].Result))
		}
	}
	return errors.Join(errs...)
}

// validatePhis checks that every phi has exactly one incoming edge per
// actual predecessor.
func validatePhis(f *Func) error {
	preds := make(map[BlockID][]BlockID)
	for i := range f.Blocks {
		for _, succ := range f.Blocks[i].Term.Succs() {
			preds[succ] = append(preds[succ], f.Blocks[i].ID)
		}
	}
	var errs []error
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for pi := range bb.Phis {
			phi := &bb.Phis[pi]
			got := make(map[BlockID]bool, len(phi.Incoming))
			for _, inc := range phi.Incoming {
				if got[inc.Pred] {
					errs = append(errs, fmt.Errorf("bb%d: phi v%d has duplicate edge from bb%d", bb.ID, phi.Result, inc.Pred))
				}
				got[inc.Pred] = true
			}
			for _, p := range preds[bb.ID] {
				if !got[p] {
					errs = append(errs, fmt.Errorf("bb%d: phi v%d missing edge from predecessor bb%d", bb.ID, phi.Result, p))
				}
			}
			for pred := range got {
				if !contains(preds[bb.ID], pred) {
					errs = append(errs, fmt.Errorf("bb%d: phi v%d has edge from non-predecessor bb%d", bb.ID, phi.Result, pred))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func contains(ids []BlockID, id BlockID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
