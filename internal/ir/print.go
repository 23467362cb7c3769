package ir

import (
	"fmt"
	"io"
	"strings"
)

// DumpModule writes a human-readable representation of m.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	for i, f := range m.Funcs {
		if f == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := DumpFunc(w, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes a human-readable representation of f.
func DumpFunc(w io.Writer, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("v%d", p.Value)
		}
		params[i] = fmt.Sprintf("%s: %s", name, p.Type)
	}
	attrs := ""
	if f.StackProtect {
		attrs = " sspreq"
	}
	fmt.Fprintf(w, "fn %s(%s) -> %s%s {\n", f.Name, strings.Join(params, ", "), f.Result, attrs)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(w, "bb%d:\n", bb.ID)
		for pi := range bb.Phis {
			phi := &bb.Phis[pi]
			incs := make([]string, len(phi.Incoming))
			for j, inc := range phi.Incoming {
				incs[j] = fmt.Sprintf("bb%d: %s", inc.Pred, operandStr(inc.Value))
			}
			fmt.Fprintf(w, "  v%d = phi %s [%s]\n", phi.Result, phi.Type, strings.Join(incs, ", "))
		}
		for ii := range bb.Instrs {
			fmt.Fprintf(w, "  %s\n", instrStr(&bb.Instrs[ii]))
		}
		fmt.Fprintf(w, "  %s\n", termStr(&bb.Term))
	}
	fmt.Fprintln(w, "}")
	return nil
}

func operandStr(op Operand) string {
	switch op.Kind {
	case OperandValue:
		return fmt.Sprintf("v%d", op.Value)
	case OperandConst:
		if op.Const.IsFloat {
			return fmt.Sprintf("%s %g", op.Type, op.Const.Float)
		}
		return fmt.Sprintf("%s %d", op.Type, op.Const.Int)
	}
	return "?"
}

func instrStr(in *Instr) string {
	dst := ""
	if in.HasResult() {
		dst = fmt.Sprintf("v%d = ", in.Result)
	}
	switch in.Kind {
	case InstrBin:
		return fmt.Sprintf("%s%s %s %s, %s", dst, in.Bin.Op, in.Type, operandStr(in.Bin.Left), operandStr(in.Bin.Right))
	case InstrCmp:
		return fmt.Sprintf("%scmp %s %s, %s", dst, in.Cmp.Pred, operandStr(in.Cmp.Left), operandStr(in.Cmp.Right))
	case InstrCast:
		kinds := [...]string{"zext", "sext", "trunc", "bitcast"}
		return fmt.Sprintf("%s%s %s to %s", dst, kinds[in.Cast.Kind], operandStr(in.Cast.Value), in.Type)
	case InstrLoad:
		mods := ""
		if in.Load.Volatile {
			mods = " volatile"
		}
		if in.Load.Atomic {
			mods += " atomic"
		}
		return fmt.Sprintf("%sload%s %s, %s", dst, mods, in.Type, operandStr(in.Load.Addr))
	case InstrStore:
		mods := ""
		if in.Store.Volatile {
			mods = " volatile"
		}
		return fmt.Sprintf("store%s %s, %s", mods, operandStr(in.Store.Value), operandStr(in.Store.Addr))
	case InstrAlloca:
		return fmt.Sprintf("%salloca %d align %d", dst, in.Alloca.Size, in.Alloca.Align)
	case InstrCall:
		args := make([]string, len(in.Call.Args))
		for i, a := range in.Call.Args {
			args[i] = operandStr(a)
		}
		callee := in.Call.Callee.Name
		if in.Call.Callee.Kind == CalleeValue {
			callee = operandStr(in.Call.Callee.Value)
		}
		return fmt.Sprintf("%scall %s(%s)", dst, callee, strings.Join(args, ", "))
	case InstrIntrinsic:
		args := make([]string, len(in.Intrinsic.Args))
		for i, a := range in.Intrinsic.Args {
			args[i] = operandStr(a)
		}
		return fmt.Sprintf("%sintrinsic @%s(%s)", dst, in.Intrinsic.Name, strings.Join(args, ", "))
	case InstrDebugBind:
		return fmt.Sprintf("dbg.bind %q, %s", in.DebugBind.Var, operandStr(in.DebugBind.Value))
	case InstrNop:
		return "nop"
	}
	return "instr?"
}

func termStr(t *Terminator) string {
	switch t.Kind {
	case TermBr:
		return fmt.Sprintf("br bb%d", t.Br.Target)
	case TermCondBr:
		return fmt.Sprintf("if %s then bb%d else bb%d", operandStr(t.CondBr.Cond), t.CondBr.Then, t.CondBr.Else)
	case TermSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "switch %s {", operandStr(t.Switch.Value))
		for _, c := range t.Switch.Cases {
			fmt.Fprintf(&sb, " %d -> bb%d;", c.Value, c.Target)
		}
		fmt.Fprintf(&sb, " default -> bb%d }", t.Switch.Default)
		return sb.String()
	case TermRet:
		if t.Ret.HasValue {
			return fmt.Sprintf("ret %s", operandStr(t.Ret.Value))
		}
		return "ret"
	case TermUnreachable:
		return "unreachable"
	case TermNone:
		return "<unterminated>"
	}
	return "term?"
}
