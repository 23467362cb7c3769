package selgen

import (
	"fmt"

	"keel/internal/diag"
	"keel/internal/ir"
	"keel/internal/sel"
	"keel/internal/target"
)

// FuncLowering lowers one function. Source blocks are processed in
// order; after each one, the synthetic blocks its control lowering
// spawned are materialized before the next source block starts.
type FuncLowering struct {
	fn       *ir.Func
	td       *target.Desc
	use      *ir.UseInfo
	reporter diag.Reporter

	regs *target.RegAlloc
	// valueRegs maps every value that crosses a machine block boundary
	// to its virtual register. Pre-assigned for parameters, phi
	// results, and values with out-of-block uses; grown by control
	// lowering for values it forces across a split.
	valueRegs map[ir.ValueID]sel.Reg

	fragments []*Fragment
	labels    []string
	nextMB    int32

	// order is the running position in the function's instruction
	// stream; debug bindings use it to keep source order after
	// resolution reshuffles them.
	order uint32

	frameSlots []FrameSlot
	allocaSlot map[ir.ValueID]int

	sp        StackProtector
	spElig    bool
	guardSlot int

	switchCases []CaseBlock
	jtCases     []JTPair
	btCases     []BitTestBlock
	jumpTables  [][]int32
	pendingRets []pendingRet

	dangling map[ir.ValueID][]DanglingDebug
}

// pendingRet is a return displaced into a fresh block by the
// stack-protector splice.
type pendingRet struct {
	mb   int32
	term ir.Terminator
}

// Result is the lowering output for one function: a fragment per
// machine block, in creation order, plus the jump tables and frame
// layout the fragments reference.
type Result struct {
	Fn     *ir.Func
	Target *target.Desc

	Fragments  []*Fragment
	JumpTables [][]int32
	FrameSlots []FrameSlot

	// NumBlocks counts machine blocks, source and synthetic.
	NumBlocks int
	// Regs counts virtual registers allocated during lowering.
	Regs int
	// ValueRegs maps cross-block values to their registers.
	ValueRegs map[ir.ValueID]sel.Reg

	// The control-lowering records, kept for inspection.
	SwitchCases  []CaseBlock
	JTCases      []JTPair
	BitTestCases []BitTestBlock

	// Dangling lists debug bindings never resolved to a node.
	Dangling []DanglingDebug
}

// LowerFunc lowers f for td, reporting non-fatal problems through
// reporter. Malformed input surfaces as an error; callers are expected
// to have run ir.ValidateFunc first, so an error here means the
// validator and the lowerer disagree.
func LowerFunc(f *ir.Func, td *target.Desc, reporter diag.Reporter) (res *Result, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ce, ok := r.(*sel.ContractError)
		if !ok {
			panic(r)
		}
		res = nil
		err = fmt.Errorf("lowering %s: %w", f.Name, ce)
	}()

	fl := &FuncLowering{
		fn:         f,
		td:         td,
		use:        ir.BuildUseInfo(f),
		reporter:   reporter,
		regs:       &target.RegAlloc{},
		valueRegs:  make(map[ir.ValueID]sel.Reg),
		nextMB:     int32(len(f.Blocks)),
		allocaSlot: make(map[ir.ValueID]int),
		sp:         newStackProtector(),
		guardSlot:  -1,
		dangling:   make(map[ir.ValueID][]DanglingDebug),
	}
	fl.labels = make([]string, len(f.Blocks))
	for i := range fl.labels {
		fl.labels[i] = fmt.Sprintf("bb%d", i)
	}
	fl.assignValueRegs()

	fl.spElig = f.StackProtect || td.Opts.ForceStackProtect
	if fl.spElig {
		slot := int64(td.WordBits / 8)
		fl.guardSlot = fl.addFrameSlot(slot, slot)
	}

	for i := range f.Blocks {
		fl.lowerBlock(&f.Blocks[i])
		fl.drainPending()
		fl.sp.ResetPerBlock()
	}
	if fb := fl.sp.Failure(); fb != -1 {
		fl.emitFailureBlock(fb)
	}
	fl.sp.ResetPerFunc()

	return &Result{
		Fn:           f,
		Target:       td,
		Fragments:    fl.fragments,
		JumpTables:   fl.jumpTables,
		FrameSlots:   fl.frameSlots,
		NumBlocks:    int(fl.nextMB),
		Regs:         fl.regs.Count(),
		ValueRegs:    fl.valueRegs,
		SwitchCases:  fl.switchCases,
		JTCases:      fl.jtCases,
		BitTestCases: fl.btCases,
		Dangling:     fl.reportDangling(),
	}, nil
}

// assignValueRegs gives a register to every value visible outside its
// defining machine block: parameters, phi results, and values with a
// use in another source block. Control lowering adds more as it splits
// blocks.
func (fl *FuncLowering) assignValueRegs() {
	for _, p := range fl.fn.Params {
		fl.valueRegs[p.Value] = fl.regs.NewVReg()
	}
	for bi := range fl.fn.Blocks {
		for pi := range fl.fn.Blocks[bi].Phis {
			fl.valueRegs[fl.fn.Blocks[bi].Phis[pi].Result] = fl.regs.NewVReg()
		}
	}
	for bi := range fl.fn.Blocks {
		for ii := range fl.fn.Blocks[bi].Instrs {
			v := fl.fn.Blocks[bi].Instrs[ii].Result
			if v == ir.NoValueID {
				continue
			}
			if _, ok := fl.valueRegs[v]; ok {
				continue
			}
			if fl.use.UsedOutsideBlock(v) {
				fl.valueRegs[v] = fl.regs.NewVReg()
			}
		}
	}
}

func (fl *FuncLowering) lowerBlock(bb *ir.Block) {
	b := fl.startBlock(int32(bb.ID), bb)
	if bb.ID == fl.fn.Entry {
		fl.setupEntry(b)
	}
	for i := range bb.Instrs {
		b.visitInstr(&bb.Instrs[i], i)
	}
	b.visitTerm(&bb.Term)
	fl.finishBlock(b)
}

// setupEntry pins nodes for unused parameters so debug bindings can
// attach to them, and stores the stack guard into its slot when the
// function is protected.
func (fl *FuncLowering) setupEntry(b *builder) {
	for _, p := range fl.fn.Params {
		if fl.use.UseCount(p.Value) > 0 {
			continue
		}
		vt := fl.td.ValueType(p.Type)
		b.unusedArgs[p.Value] = b.g.CopyFromReg(b.g.Entry(), fl.valueRegs[p.Value], vt)
	}
	if fl.spElig {
		chain := b.Root()
		guard := b.g.StackGuard(chain)
		b.root = b.g.Store(guard, guard, b.g.FrameIndex(fl.guardSlot), 0)
	}
}

func (fl *FuncLowering) startBlock(mb int32, bb *ir.Block) *builder {
	g := sel.NewGraph()
	frag := &Fragment{
		MB:      mb,
		Label:   fl.labels[mb],
		IRBlock: ir.NoBlockID,
		Graph:   g,
	}
	if bb != nil {
		frag.IRBlock = bb.ID
	}
	fl.fragments = append(fl.fragments, frag)
	return &builder{
		fl:         fl,
		g:          g,
		frag:       frag,
		irBlock:    bb,
		nodeMap:    make(map[ir.ValueID]sel.NodeID),
		unusedArgs: make(map[ir.ValueID]sel.NodeID),
		root:       g.Entry(),
	}
}

func (fl *FuncLowering) finishBlock(b *builder) {
	b.frag.Root = b.root
	b.frag.Succs = fl.collectSuccs(b.g)
}

// collectSuccs reads successor blocks off the fragment's branch nodes,
// in node creation order, deduplicated. Jump-table branches contribute
// every distinct block the table names.
func (fl *FuncLowering) collectSuccs(g *sel.Graph) []int32 {
	var succs []int32
	seen := make(map[int32]bool)
	add := func(mb int32) {
		if !seen[mb] {
			seen[mb] = true
			succs = append(succs, mb)
		}
	}
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		switch n.Op {
		case sel.OpBr:
			add(int32(g.Node(n.Args[0]).Aux.Int))
		case sel.OpBrCond:
			add(int32(g.Node(n.Args[1]).Aux.Int))
		case sel.OpBrTable:
			jti := int(g.Node(n.Args[1]).Aux.Int)
			for _, mb := range fl.jumpTables[jti] {
				add(mb)
			}
		}
	}
	return succs
}

// drainPending materializes every control-lowering record still
// targeting a block without a fragment. All such records point at
// synthetic blocks; records for source blocks were emitted inline.
func (fl *FuncLowering) drainPending() {
	for i := range fl.btCases {
		btb := &fl.btCases[i]
		if !btb.headerEmitted {
			fl.emitSynth(btb.Parent, func(b *builder) { b.visitBitTestHeader(btb) })
		}
		for j := range btb.Cases {
			if btb.Cases[j].emitted {
				continue
			}
			fl.emitSynth(btb.Cases[j].ThisMB, func(b *builder) { b.visitBitTestCase(btb, j) })
		}
	}
	for i := range fl.jtCases {
		p := &fl.jtCases[i]
		if !p.Header.emitted {
			fl.emitSynth(p.Header.HeaderMB, func(b *builder) { b.visitJumpTableHeader(p) })
		}
		if !p.JT.emitted {
			fl.emitSynth(p.JT.MBB, func(b *builder) { b.visitJumpTable(p) })
		}
	}
	for i := range fl.switchCases {
		cb := &fl.switchCases[i]
		if !cb.emitted {
			fl.emitSynth(cb.ThisMB, func(b *builder) { b.visitCaseBlock(cb) })
		}
	}
	for i := range fl.pendingRets {
		pr := &fl.pendingRets[i]
		fl.emitSynth(pr.mb, func(b *builder) { b.emitRet(&pr.term) })
	}
	fl.pendingRets = fl.pendingRets[:0]
}

func (fl *FuncLowering) emitSynth(mb int32, emit func(*builder)) {
	b := fl.startBlock(mb, nil)
	emit(b)
	fl.finishBlock(b)
}

// emitFailureBlock fills the shared stack-protector failure block: a
// call to the target's failure hook, then a trap. The call never
// returns; the trap keeps the block terminated if it somehow does.
func (fl *FuncLowering) emitFailureBlock(mb int32) {
	b := fl.startBlock(mb, nil)
	chain := b.Root()
	call := b.g.Call(chain, fl.td.StackFailSym, sel.VTInvalid, 0)
	b.root = b.g.Trap(call)
	fl.finishBlock(b)
}

// newMBlock allocates a synthetic machine block.
func (fl *FuncLowering) newMBlock(prefix string) int32 {
	mb := fl.nextMB
	fl.nextMB++
	fl.labels = append(fl.labels, fmt.Sprintf("%s.%d", prefix, mb))
	return mb
}

// addFrameSlot reserves a stack slot and returns its index.
func (fl *FuncLowering) addFrameSlot(size, align int64) int {
	fl.frameSlots = append(fl.frameSlots, FrameSlot{Size: size, Align: align})
	return len(fl.frameSlots) - 1
}
