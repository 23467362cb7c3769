package sel

import (
	"fmt"
	"io"
	"strings"
)

// DumpGraph writes every node of g in creation order. The layout is
// stable and intended for golden tests and the CLI dump command.
func DumpGraph(w io.Writer, g *Graph) error {
	if w == nil || g == nil {
		return nil
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		if _, err := fmt.Fprintf(w, "  n%d: %s\n", i, formatNode(n)); err != nil {
			return err
		}
	}
	return nil
}

func formatNode(n *Node) string {
	var sb strings.Builder
	sb.WriteString(n.Op.String())
	if n.Op == OpSetCC {
		sb.WriteByte('.')
		sb.WriteString(n.Aux.CC.String())
	}
	results := make([]string, 0, len(n.Results))
	for _, vt := range n.Results {
		results = append(results, vt.String())
	}
	if len(results) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(results, ", "))
		sb.WriteByte(']')
	}
	for _, a := range n.Args {
		fmt.Fprintf(&sb, " n%d", a.index())
	}
	if n.Chain.Valid() {
		fmt.Fprintf(&sb, " ch:n%d", n.Chain.index())
	}
	if n.Glue.Valid() {
		fmt.Fprintf(&sb, " glue:n%d", n.Glue.index())
	}
	switch n.Op {
	case OpConst, OpRegister, OpFrameIndex, OpBasicBlock, OpJumpTable:
		fmt.Fprintf(&sb, " %d", n.Aux.Int)
	case OpConstFP:
		fmt.Fprintf(&sb, " %g", n.Aux.Float)
	case OpGlobal, OpCall:
		if n.Aux.Sym != "" {
			fmt.Fprintf(&sb, " @%s", n.Aux.Sym)
		}
	}
	if n.Aux.Flags&FlagVolatile != 0 {
		sb.WriteString(" volatile")
	}
	if n.Aux.Flags&FlagAtomic != 0 {
		sb.WriteString(" atomic")
	}
	if n.Aux.Flags&FlagTailCall != 0 {
		sb.WriteString(" tail")
	}
	return sb.String()
}
