package linear

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of mf.
func Dump(w io.Writer, mf *MFunc) error {
	if w == nil || mf == nil {
		return nil
	}
	fmt.Fprintf(w, "mfn %s (%d blocks, %d regs) {\n", mf.Name, len(mf.Blocks), mf.NumRegs)
	for bi := range mf.Blocks {
		mb := &mf.Blocks[bi]
		succ := ""
		if len(mb.Succs) > 0 {
			parts := make([]string, len(mb.Succs))
			for i, s := range mb.Succs {
				parts[i] = fmt.Sprintf("mb%d", s)
			}
			succ = " -> " + strings.Join(parts, ", ")
		}
		fmt.Fprintf(w, "%s:%s\n", mb.Label, succ)
		for _, mi := range mb.Instrs {
			fmt.Fprintf(w, "  %s\n", mi)
		}
	}
	for jti, table := range mf.JumpTables {
		parts := make([]string, len(table))
		for i, mb := range table {
			parts[i] = fmt.Sprintf("mb%d", mb)
		}
		fmt.Fprintf(w, "jt%d: [%s]\n", jti, strings.Join(parts, " "))
	}
	fmt.Fprintln(w, "}")
	return nil
}
