package sel

// Opcode enumerates abstract machine operations of the selection graph.
type Opcode uint16

const (
	// OpInvalid is the zero opcode; never interned.
	OpInvalid Opcode = iota

	// OpEntryToken is the initial ordering token of a block fragment.
	OpEntryToken
	// OpTokenFactor joins several ordering tokens into one. The join
	// orders nothing among its operands.
	OpTokenFactor

	// OpConst is an integer constant.
	OpConst
	// OpConstFP is a floating constant.
	OpConstFP
	// OpUndef is an unspecified value of some type.
	OpUndef
	// OpRegister names a virtual register; used as an operand of
	// OpCopyToReg and OpCopyFromReg.
	OpRegister
	// OpFrameIndex is the address of a stack slot.
	OpFrameIndex
	// OpGlobal is the address of a named symbol.
	OpGlobal
	// OpBasicBlock is a block label operand of branch nodes.
	OpBasicBlock
	// OpJumpTable names an emitted jump table.
	OpJumpTable

	// OpCopyToReg copies a value into a virtual register. Operands:
	// register, value. Results: chain.
	OpCopyToReg
	// OpCopyFromReg reads a virtual register. Operands: register.
	// Results: value, chain.
	OpCopyFromReg

	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpSrl
	OpSra
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	// OpSetCC compares two values under the condition code in Aux and
	// yields an i1.
	OpSetCC
	OpZExt
	OpSExt
	OpTrunc
	OpBitcast

	// OpLoad reads memory. Operands: address. Results: value, chain.
	OpLoad
	// OpStore writes memory. Operands: value, address. Results: chain.
	OpStore

	// OpCall calls the callee in Aux (or an operand address when Aux
	// names no symbol). Results: optional value, then chain.
	OpCall
	// OpStackGuard produces the current stack guard value.
	// Results: value, chain.
	OpStackGuard

	// OpBr branches unconditionally to a block operand. Results: chain.
	OpBr
	// OpBrCond branches to a block operand when its i1 operand is
	// true. Operands: condition, block. Results: chain.
	OpBrCond
	// OpBrTable branches indirectly through a jump table. Operands:
	// index, jump table. Results: chain.
	OpBrTable
	// OpRet returns with optional value operands. Results: chain.
	OpRet
	// OpTrap aborts execution. Results: chain.
	OpTrap

	opCount
)

var opcodeNames = [...]string{
	OpInvalid:     "invalid",
	OpEntryToken:  "entry",
	OpTokenFactor: "token_factor",
	OpConst:       "const",
	OpConstFP:     "const_fp",
	OpUndef:       "undef",
	OpRegister:    "register",
	OpFrameIndex:  "frame_index",
	OpGlobal:      "global",
	OpBasicBlock:  "basic_block",
	OpJumpTable:   "jump_table",
	OpCopyToReg:   "copy_to_reg",
	OpCopyFromReg: "copy_from_reg",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpSDiv:        "sdiv",
	OpUDiv:        "udiv",
	OpSRem:        "srem",
	OpURem:        "urem",
	OpAnd:         "and",
	OpOr:          "or",
	OpXor:         "xor",
	OpShl:         "shl",
	OpSrl:         "srl",
	OpSra:         "sra",
	OpFAdd:        "fadd",
	OpFSub:        "fsub",
	OpFMul:        "fmul",
	OpFDiv:        "fdiv",
	OpSetCC:       "setcc",
	OpZExt:        "zext",
	OpSExt:        "sext",
	OpTrunc:       "trunc",
	OpBitcast:     "bitcast",
	OpLoad:        "load",
	OpStore:       "store",
	OpCall:        "call",
	OpStackGuard:  "stack_guard",
	OpBr:          "br",
	OpBrCond:      "brcond",
	OpBrTable:     "brtable",
	OpRet:         "ret",
	OpTrap:        "trap",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "op?"
}

// HasChainResult reports whether nodes with this opcode produce an
// ordering token.
func (op Opcode) HasChainResult() bool {
	switch op {
	case OpEntryToken, OpTokenFactor, OpCopyToReg, OpCopyFromReg,
		OpLoad, OpStore, OpCall, OpStackGuard,
		OpBr, OpBrCond, OpBrTable, OpRet, OpTrap:
		return true
	}
	return false
}
