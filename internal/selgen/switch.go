package selgen

import (
	"sort"

	"fortio.org/safecast"

	"keel/internal/ir"
	"keel/internal/sel"
)

// Clusterify sorts case values by lower bound and merges adjacent
// values with the same destination into ranges, adding their weights.
// The result is minimal, disjoint, and sorted; running it again on its
// own output changes nothing. Overlapping input cases are a contract
// violation, not an input error.
func Clusterify(cases []ir.SwitchCase) []CaseCluster {
	if len(cases) == 0 {
		return nil
	}
	clusters := make([]CaseCluster, 0, len(cases))
	for _, c := range cases {
		clusters = append(clusters, CaseCluster{
			Low:    c.Value,
			High:   c.Value,
			Target: int32(c.Target),
			Weight: c.Weight,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Low != clusters[j].Low {
			return clusters[i].Low < clusters[j].Low
		}
		return clusters[i].High < clusters[j].High
	})
	out := clusters[:1]
	for _, c := range clusters[1:] {
		last := &out[len(out)-1]
		if c.Low <= last.High {
			sel.Fatalf("switch cases overlap at %d", c.Low)
		}
		if c.Low == last.High+1 && c.Target == last.Target {
			last.High = c.High
			last.Weight += c.Weight
			continue
		}
		out = append(out, c)
	}
	return out
}

// ClusterifyClusters re-merges an already-clustered list; used when a
// caller works with ranges rather than single values.
func ClusterifyClusters(clusters []CaseCluster) []CaseCluster {
	if len(clusters) == 0 {
		return nil
	}
	sorted := append([]CaseCluster(nil), clusters...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Low != sorted[j].Low {
			return sorted[i].Low < sorted[j].Low
		}
		return sorted[i].High < sorted[j].High
	})
	out := sorted[:1]
	for _, c := range sorted[1:] {
		last := &out[len(out)-1]
		if c.Low <= last.High {
			sel.Fatalf("switch case ranges overlap at %d", c.Low)
		}
		if c.Low == last.High+1 && c.Target == last.Target {
			last.High = c.High
			last.Weight += c.Weight
			continue
		}
		out = append(out, c)
	}
	return out
}

// caseRec is one work-list item of the recursive decomposition: the
// block to emit into, the bounds already established by ancestor
// comparisons, and the clusters still to place.
type caseRec struct {
	mbb      int32
	lo, hi   *int64
	clusters []CaseCluster
}

// visitSwitch decomposes a multi-way branch. The chosen strategy for
// the root work item is emitted into the current block immediately;
// strategies for split-off sub-ranges become pending records consumed
// after this block is finished.
func (b *builder) visitSwitch(t *ir.SwitchTerm) {
	fl := b.fl
	defaultMB := int32(t.Default)
	clusters := Clusterify(t.Cases)
	if len(clusters) == 0 {
		chain := b.ControlRoot()
		b.root = b.g.Br(chain, defaultMB)
		return
	}
	// Sub-range records re-read the switch value in their own blocks.
	b.exportOperand(t.Value)

	worklist := []caseRec{{mbb: b.frag.MB, clusters: clusters}}
	for len(worklist) > 0 {
		rec := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		worklist = append(worklist, fl.processCaseRec(rec, t)...)
	}

	// Emit whatever landed in this block: exactly one of a compare, a
	// jump-table header, or a bit-test header.
	for i := range fl.btCases {
		btb := &fl.btCases[i]
		if !btb.headerEmitted && btb.Parent == b.frag.MB {
			b.visitBitTestHeader(btb)
			return
		}
	}
	for i := range fl.jtCases {
		p := &fl.jtCases[i]
		if !p.Header.emitted && p.Header.HeaderMB == b.frag.MB {
			b.visitJumpTableHeader(p)
			return
		}
	}
	for i := range fl.switchCases {
		cb := &fl.switchCases[i]
		if !cb.emitted && cb.ThisMB == b.frag.MB {
			b.visitCaseBlock(cb)
			return
		}
	}
	sel.Fatalf("switch decomposition emitted nothing into bb%d", b.frag.MB)
}

// processCaseRec places one work item, trying bit-test, then jump
// table, then a binary split. Returns the work items a split pushes.
func (fl *FuncLowering) processCaseRec(rec caseRec, t *ir.SwitchTerm) []caseRec {
	defaultMB := int32(t.Default)
	cl := rec.clusters
	if len(cl) == 0 {
		sel.Fatalf("empty case record for mb%d", rec.mbb)
	}
	if len(cl) == 1 {
		fl.emitSingleCluster(rec, t, defaultMB)
		return nil
	}
	if fl.tryBitTest(rec, t, defaultMB) {
		return nil
	}
	if fl.tryJumpTable(rec, t, defaultMB) {
		return nil
	}
	return fl.splitCaseRange(rec, t, defaultMB)
}

// emitSingleCluster records the compare for a lone cluster, eliding
// whichever bound checks the ancestors already established.
func (fl *FuncLowering) emitSingleCluster(rec caseRec, t *ir.SwitchTerm, defaultMB int32) {
	c := rec.clusters[0]
	lowCovered := rec.lo != nil && *rec.lo >= c.Low
	highCovered := rec.hi != nil && *rec.hi <= c.High
	cb := CaseBlock{
		Lhs:         t.Value,
		TrueMB:      c.Target,
		FalseMB:     defaultMB,
		ThisMB:      rec.mbb,
		TrueWeight:  c.Weight,
		FalseWeight: t.DefaultWeight,
	}
	switch {
	case lowCovered && highCovered:
		cb.Unconditional = true
	case c.Low == c.High:
		cb.CC = sel.CCEq
		cb.Rhs = ir.ConstInt(t.Value.Type, c.Low)
	case lowCovered:
		cb.CC = sel.CCSLE
		cb.Rhs = ir.ConstInt(t.Value.Type, c.High)
	case highCovered:
		cb.CC = sel.CCSGE
		cb.Rhs = ir.ConstInt(t.Value.Type, c.Low)
	default:
		cb.IsRange = true
		cb.Low = c.Low
		cb.High = c.High
	}
	fl.switchCases = append(fl.switchCases, cb)
}

// tryBitTest lowers a narrow sub-range as one range check plus a
// bitmask test per destination, when enough cases fit in a word.
func (fl *FuncLowering) tryBitTest(rec caseRec, t *ir.SwitchTerm, defaultMB int32) bool {
	cl := rec.clusters
	opts := &fl.td.Opts
	if len(cl) < opts.MinBitTestCases {
		return false
	}
	dests := make(map[int32]bool, maxBitTestDests+1)
	for _, c := range cl {
		dests[c.Target] = true
		if len(dests) > maxBitTestDests {
			return false
		}
	}
	first := cl[0].Low
	last := cl[len(cl)-1].High
	span := uint64(last-first) + 1
	if span > uint64(opts.BitTestSpan(fl.td.WordBits)) {
		return false
	}

	// One mask per destination, first-appearance order.
	type group struct {
		target int32
		mask   uint64
		weight uint32
	}
	var groups []group
	index := make(map[int32]int)
	for _, c := range cl {
		gi, ok := index[c.Target]
		if !ok {
			gi = len(groups)
			index[c.Target] = gi
			groups = append(groups, group{target: c.Target})
		}
		for v := c.Low; v <= c.High; v++ {
			groups[gi].mask |= 1 << uint(v-first)
		}
		groups[gi].weight += c.Weight
	}

	btb := BitTestBlock{
		First:          first,
		Range:          span - 1,
		Cond:           t.Value,
		CondType:       t.Value.Type,
		Reg:            fl.regs.NewVReg(),
		RegVT:          fl.td.SwitchVT(),
		Parent:         rec.mbb,
		Default:        defaultMB,
		DefaultWeight:  t.DefaultWeight,
		OmitRangeCheck: rec.lo != nil && rec.hi != nil && *rec.lo >= first && *rec.hi <= last,
	}
	for _, grp := range groups {
		btb.Cases = append(btb.Cases, BitTestCase{
			Mask:     grp.mask,
			ThisMB:   fl.newMBlock("bt"),
			TargetMB: grp.target,
			Weight:   grp.weight,
		})
	}
	fl.btCases = append(fl.btCases, btb)
	return true
}

// tryJumpTable lowers a dense sub-range as a bounds check plus an
// indexed indirect branch through a table of block labels.
func (fl *FuncLowering) tryJumpTable(rec caseRec, t *ir.SwitchTerm, defaultMB int32) bool {
	cl := rec.clusters
	opts := &fl.td.Opts
	if len(cl) < opts.MinJumpTableEntries {
		return false
	}
	first := cl[0].Low
	last := cl[len(cl)-1].High
	span := uint64(last-first) + 1
	if span > maxJumpTableSpan {
		return false
	}
	var populated uint64
	for _, c := range cl {
		populated += c.Span()
	}
	if float64(populated)/float64(span) < opts.JumpTableDensity {
		return false
	}

	size, err := safecast.Conv[int](span)
	if err != nil {
		return false
	}
	table := make([]int32, size)
	for i := range table {
		table[i] = defaultMB
	}
	for _, c := range cl {
		for v := c.Low; v <= c.High; v++ {
			table[v-first] = c.Target
		}
	}
	jti := len(fl.jumpTables)
	fl.jumpTables = append(fl.jumpTables, table)

	fl.jtCases = append(fl.jtCases, JTPair{
		JT: JumpTable{
			Reg:     fl.regs.NewVReg(),
			JTI:     jti,
			MBB:     fl.newMBlock("jt"),
			Default: defaultMB,
		},
		Header: JumpTableHeader{
			First:          first,
			Last:           last,
			Cond:           t.Value,
			CondType:       t.Value.Type,
			HeaderMB:       rec.mbb,
			OmitRangeCheck: rec.lo != nil && rec.hi != nil && *rec.lo >= first && *rec.hi <= last,
			DefaultWeight:  t.DefaultWeight,
		},
		Clusters: append([]CaseCluster(nil), cl...),
	})
	return true
}

// maxJumpTableSpan bounds table size; sparser ranges fail the density
// check long before this.
const maxJumpTableSpan = 1 << 16

// maxBitTestDests caps the destinations of one bit-test block: each
// destination costs a mask test, so past a few the strategy loses to a
// table.
const maxBitTestDests = 3

// splitCaseRange emits a pivot comparison and pushes the two halves,
// each inheriting the tightened bound its side of the comparison
// proves.
func (fl *FuncLowering) splitCaseRange(rec caseRec, t *ir.SwitchTerm, defaultMB int32) []caseRec {
	cl := rec.clusters
	pivotIdx := len(cl) / 2
	pivot := cl[pivotIdx].Low

	var leftWeight, rightWeight uint32
	for i, c := range cl {
		if i < pivotIdx {
			leftWeight += c.Weight
		} else {
			rightWeight += c.Weight
		}
	}

	leftMB := fl.newMBlock("sw")
	rightMB := fl.newMBlock("sw")
	fl.switchCases = append(fl.switchCases, CaseBlock{
		CC:          sel.CCSLT,
		Lhs:         t.Value,
		Rhs:         ir.ConstInt(t.Value.Type, pivot),
		TrueMB:      leftMB,
		FalseMB:     rightMB,
		ThisMB:      rec.mbb,
		TrueWeight:  leftWeight,
		FalseWeight: rightWeight,
	})

	leftHi := pivot - 1
	left := caseRec{mbb: leftMB, lo: rec.lo, hi: &leftHi, clusters: cl[:pivotIdx]}
	right := caseRec{mbb: rightMB, lo: &pivot, hi: rec.hi, clusters: cl[pivotIdx:]}
	return []caseRec{left, right}
}
