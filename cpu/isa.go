package cpu

import (
	"fmt"
)

// Format is an instruction encoding class.
type Format int

const (
	FORMAT_R      = Format(0) // opcode 0, selected by funct
	FORMAT_REGIMM = Format(1) // opcode 1, selected by rt
	FORMAT_I      = Format(2)
	FORMAT_J      = Format(3)
)

// Syntax is the operand signature of a native instruction.
// It determines which fields are used, which must be zero,
// and how operands are written in assembly source.
type Syntax int

const (
	SYNTAX_NONE         = Syntax(iota) // (no operands)
	SYNTAX_CODE                        // [code]
	SYNTAX_RD_RT_SHAMT                 // rd, rt, shamt
	SYNTAX_RD_RT_RS                    // rd, rt, rs
	SYNTAX_RS                          // rs
	SYNTAX_RD_RS                       // rd, rs
	SYNTAX_RD                          // rd
	SYNTAX_RS_RT                       // rs, rt
	SYNTAX_RD_RS_RT                    // rd, rs, rt
	SYNTAX_RS_OFFSET                   // rs, label
	SYNTAX_RS_RT_OFFSET                // rs, rt, label
	SYNTAX_RT_RS_SIMM                  // rt, rs, simm16
	SYNTAX_RT_RS_UIMM                  // rt, rs, uimm16
	SYNTAX_RT_UIMM                     // rt, uimm16
	SYNTAX_RT_MEM                      // rt, simm16(rs)
	SYNTAX_TARGET                      // label
)

// Op identifies a native instruction.
type Op int

const (
	OP_INVALID = Op(iota)

	OP_SLL
	OP_SRL
	OP_SRA
	OP_SLLV
	OP_SRLV
	OP_SRAV
	OP_JR
	OP_JALR
	OP_SYSCALL
	OP_BREAK
	OP_MFHI
	OP_MTHI
	OP_MFLO
	OP_MTLO
	OP_MULT
	OP_MULTU
	OP_DIV
	OP_DIVU
	OP_ADD
	OP_ADDU
	OP_SUB
	OP_SUBU
	OP_AND
	OP_OR
	OP_XOR
	OP_NOR
	OP_SLT
	OP_SLTU

	OP_BLTZ
	OP_BGEZ
	OP_BLTZAL
	OP_BGEZAL

	OP_J
	OP_JAL

	OP_BEQ
	OP_BNE
	OP_BLEZ
	OP_BGTZ
	OP_ADDI
	OP_ADDIU
	OP_SLTI
	OP_SLTIU
	OP_ANDI
	OP_ORI
	OP_XORI
	OP_LUI
	OP_LB
	OP_LH
	OP_LWL
	OP_LW
	OP_LBU
	OP_LHU
	OP_LWR
	OP_SB
	OP_SH
	OP_SWL
	OP_SW
	OP_SWR

	OP_COUNT
)

// OpDef is one row of the instruction table.
type OpDef struct {
	Name   string
	Format Format
	Opcode uint32 // Primary opcode, bits 31..26
	Funct  uint32 // funct (FORMAT_R) or rt (FORMAT_REGIMM)
	Syntax Syntax
}

// opTable is the single encoding table shared by the encoder and decoder.
var opTable = [OP_COUNT]OpDef{
	OP_SLL:     {"sll", FORMAT_R, 0x00, 0x00, SYNTAX_RD_RT_SHAMT},
	OP_SRL:     {"srl", FORMAT_R, 0x00, 0x02, SYNTAX_RD_RT_SHAMT},
	OP_SRA:     {"sra", FORMAT_R, 0x00, 0x03, SYNTAX_RD_RT_SHAMT},
	OP_SLLV:    {"sllv", FORMAT_R, 0x00, 0x04, SYNTAX_RD_RT_RS},
	OP_SRLV:    {"srlv", FORMAT_R, 0x00, 0x06, SYNTAX_RD_RT_RS},
	OP_SRAV:    {"srav", FORMAT_R, 0x00, 0x07, SYNTAX_RD_RT_RS},
	OP_JR:      {"jr", FORMAT_R, 0x00, 0x08, SYNTAX_RS},
	OP_JALR:    {"jalr", FORMAT_R, 0x00, 0x09, SYNTAX_RD_RS},
	OP_SYSCALL: {"syscall", FORMAT_R, 0x00, 0x0c, SYNTAX_CODE},
	OP_BREAK:   {"break", FORMAT_R, 0x00, 0x0d, SYNTAX_CODE},
	OP_MFHI:    {"mfhi", FORMAT_R, 0x00, 0x10, SYNTAX_RD},
	OP_MTHI:    {"mthi", FORMAT_R, 0x00, 0x11, SYNTAX_RS},
	OP_MFLO:    {"mflo", FORMAT_R, 0x00, 0x12, SYNTAX_RD},
	OP_MTLO:    {"mtlo", FORMAT_R, 0x00, 0x13, SYNTAX_RS},
	OP_MULT:    {"mult", FORMAT_R, 0x00, 0x18, SYNTAX_RS_RT},
	OP_MULTU:   {"multu", FORMAT_R, 0x00, 0x19, SYNTAX_RS_RT},
	OP_DIV:     {"div", FORMAT_R, 0x00, 0x1a, SYNTAX_RS_RT},
	OP_DIVU:    {"divu", FORMAT_R, 0x00, 0x1b, SYNTAX_RS_RT},
	OP_ADD:     {"add", FORMAT_R, 0x00, 0x20, SYNTAX_RD_RS_RT},
	OP_ADDU:    {"addu", FORMAT_R, 0x00, 0x21, SYNTAX_RD_RS_RT},
	OP_SUB:     {"sub", FORMAT_R, 0x00, 0x22, SYNTAX_RD_RS_RT},
	OP_SUBU:    {"subu", FORMAT_R, 0x00, 0x23, SYNTAX_RD_RS_RT},
	OP_AND:     {"and", FORMAT_R, 0x00, 0x24, SYNTAX_RD_RS_RT},
	OP_OR:      {"or", FORMAT_R, 0x00, 0x25, SYNTAX_RD_RS_RT},
	OP_XOR:     {"xor", FORMAT_R, 0x00, 0x26, SYNTAX_RD_RS_RT},
	OP_NOR:     {"nor", FORMAT_R, 0x00, 0x27, SYNTAX_RD_RS_RT},
	OP_SLT:     {"slt", FORMAT_R, 0x00, 0x2a, SYNTAX_RD_RS_RT},
	OP_SLTU:    {"sltu", FORMAT_R, 0x00, 0x2b, SYNTAX_RD_RS_RT},

	OP_BLTZ:   {"bltz", FORMAT_REGIMM, 0x01, 0x00, SYNTAX_RS_OFFSET},
	OP_BGEZ:   {"bgez", FORMAT_REGIMM, 0x01, 0x01, SYNTAX_RS_OFFSET},
	OP_BLTZAL: {"bltzal", FORMAT_REGIMM, 0x01, 0x10, SYNTAX_RS_OFFSET},
	OP_BGEZAL: {"bgezal", FORMAT_REGIMM, 0x01, 0x11, SYNTAX_RS_OFFSET},

	OP_J:   {"j", FORMAT_J, 0x02, 0, SYNTAX_TARGET},
	OP_JAL: {"jal", FORMAT_J, 0x03, 0, SYNTAX_TARGET},

	OP_BEQ:   {"beq", FORMAT_I, 0x04, 0, SYNTAX_RS_RT_OFFSET},
	OP_BNE:   {"bne", FORMAT_I, 0x05, 0, SYNTAX_RS_RT_OFFSET},
	OP_BLEZ:  {"blez", FORMAT_I, 0x06, 0, SYNTAX_RS_OFFSET},
	OP_BGTZ:  {"bgtz", FORMAT_I, 0x07, 0, SYNTAX_RS_OFFSET},
	OP_ADDI:  {"addi", FORMAT_I, 0x08, 0, SYNTAX_RT_RS_SIMM},
	OP_ADDIU: {"addiu", FORMAT_I, 0x09, 0, SYNTAX_RT_RS_SIMM},
	OP_SLTI:  {"slti", FORMAT_I, 0x0a, 0, SYNTAX_RT_RS_SIMM},
	OP_SLTIU: {"sltiu", FORMAT_I, 0x0b, 0, SYNTAX_RT_RS_SIMM},
	OP_ANDI:  {"andi", FORMAT_I, 0x0c, 0, SYNTAX_RT_RS_UIMM},
	OP_ORI:   {"ori", FORMAT_I, 0x0d, 0, SYNTAX_RT_RS_UIMM},
	OP_XORI:  {"xori", FORMAT_I, 0x0e, 0, SYNTAX_RT_RS_UIMM},
	OP_LUI:   {"lui", FORMAT_I, 0x0f, 0, SYNTAX_RT_UIMM},
	OP_LB:    {"lb", FORMAT_I, 0x20, 0, SYNTAX_RT_MEM},
	OP_LH:    {"lh", FORMAT_I, 0x21, 0, SYNTAX_RT_MEM},
	OP_LWL:   {"lwl", FORMAT_I, 0x22, 0, SYNTAX_RT_MEM},
	OP_LW:    {"lw", FORMAT_I, 0x23, 0, SYNTAX_RT_MEM},
	OP_LBU:   {"lbu", FORMAT_I, 0x24, 0, SYNTAX_RT_MEM},
	OP_LHU:   {"lhu", FORMAT_I, 0x25, 0, SYNTAX_RT_MEM},
	OP_LWR:   {"lwr", FORMAT_I, 0x26, 0, SYNTAX_RT_MEM},
	OP_SB:    {"sb", FORMAT_I, 0x28, 0, SYNTAX_RT_MEM},
	OP_SH:    {"sh", FORMAT_I, 0x29, 0, SYNTAX_RT_MEM},
	OP_SWL:   {"swl", FORMAT_I, 0x2a, 0, SYNTAX_RT_MEM},
	OP_SW:    {"sw", FORMAT_I, 0x2b, 0, SYNTAX_RT_MEM},
	OP_SWR:   {"swr", FORMAT_I, 0x2e, 0, SYNTAX_RT_MEM},
}

var (
	opByName   map[string]Op
	opByFunct  map[uint32]Op
	opByRegimm map[uint32]Op
	opByOpcode map[uint32]Op
)

func init() {
	opByName = make(map[string]Op, OP_COUNT)
	opByFunct = make(map[uint32]Op)
	opByRegimm = make(map[uint32]Op)
	opByOpcode = make(map[uint32]Op)

	for n := OP_INVALID + 1; n < OP_COUNT; n++ {
		def := &opTable[n]
		opByName[def.Name] = n
		switch def.Format {
		case FORMAT_R:
			opByFunct[def.Funct] = n
		case FORMAT_REGIMM:
			opByRegimm[def.Funct] = n
		default:
			opByOpcode[def.Opcode] = n
		}
	}
}

// Def returns the table entry for the instruction.
func (op Op) Def() *OpDef {
	if op <= OP_INVALID || op >= OP_COUNT {
		return &OpDef{Name: "invalid"}
	}
	return &opTable[op]
}

func (op Op) String() string {
	if op <= OP_INVALID || op >= OP_COUNT {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opTable[op].Name
}

// LookupOp finds a native instruction by mnemonic.
func LookupOp(name string) (op Op, ok bool) {
	op, ok = opByName[name]
	return
}

// Ops returns all native instructions, in table order.
func Ops() (ops []Op) {
	for n := OP_INVALID + 1; n < OP_COUNT; n++ {
		ops = append(ops, n)
	}
	return
}

// IsBranch is true for instructions that have a delay slot.
func (op Op) IsBranch() bool {
	switch op {
	case OP_JR, OP_JALR, OP_J, OP_JAL,
		OP_BEQ, OP_BNE, OP_BLEZ, OP_BGTZ,
		OP_BLTZ, OP_BGEZ, OP_BLTZAL, OP_BGEZAL:
		return true
	}
	return false
}
