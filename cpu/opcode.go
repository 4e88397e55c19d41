package cpu

import (
	"fmt"
)

// Code is a single 32-bit instruction word.
type Code uint32

// Opcode returns the primary opcode, bits 31..26.
func (code Code) Opcode() uint32 { return uint32(code) >> 26 }

// Rs returns bits 25..21.
func (code Code) Rs() Reg { return Reg((code >> 21) & 0x1f) }

// Rt returns bits 20..16.
func (code Code) Rt() Reg { return Reg((code >> 16) & 0x1f) }

// Rd returns bits 15..11.
func (code Code) Rd() Reg { return Reg((code >> 11) & 0x1f) }

// Shamt returns bits 10..6.
func (code Code) Shamt() uint8 { return uint8((code >> 6) & 0x1f) }

// Funct returns bits 5..0.
func (code Code) Funct() uint32 { return uint32(code) & 0x3f }

// Imm returns bits 15..0.
func (code Code) Imm() uint16 { return uint16(code) }

// Target returns the jump index, bits 25..0.
func (code Code) Target() uint32 { return uint32(code) & 0x03ff_ffff }

// Inst is a decoded native instruction.
// It is one of RType, IType or JType.
type Inst interface {
	Operation() Op
	Encode() Code
	String() string
	isInst()
}

// RType is a register format instruction.
// For syscall and break, the four register fields hold the code.
type RType struct {
	Op    Op
	Rs    Reg
	Rt    Reg
	Rd    Reg
	Shamt uint8
}

// IType is an immediate format instruction, including the REGIMM branches.
type IType struct {
	Op  Op
	Rs  Reg
	Rt  Reg
	Imm uint16
}

// JType is a jump format instruction.
type JType struct {
	Op     Op
	Target uint32
}

func (RType) isInst() {}
func (IType) isInst() {}
func (JType) isInst() {}

func (inst RType) Operation() Op { return inst.Op }
func (inst IType) Operation() Op { return inst.Op }
func (inst JType) Operation() Op { return inst.Op }

// Code returns the 20-bit code field of syscall and break.
func (inst RType) Code() uint32 {
	return uint32(inst.Rs)<<15 | uint32(inst.Rt)<<10 | uint32(inst.Rd)<<5 | uint32(inst.Shamt)
}

// MakeCodeR builds a syscall or break with a code field.
func MakeCodeR(op Op, code uint32) RType {
	return RType{
		Op:    op,
		Rs:    Reg((code >> 15) & 0x1f),
		Rt:    Reg((code >> 10) & 0x1f),
		Rd:    Reg((code >> 5) & 0x1f),
		Shamt: uint8(code & 0x1f),
	}
}

// Encode returns the machine word.
func (inst RType) Encode() Code {
	def := inst.Op.Def()
	return Code(def.Opcode<<26 |
		uint32(inst.Rs&0x1f)<<21 |
		uint32(inst.Rt&0x1f)<<16 |
		uint32(inst.Rd&0x1f)<<11 |
		uint32(inst.Shamt&0x1f)<<6 |
		def.Funct)
}

// Encode returns the machine word.
func (inst IType) Encode() Code {
	def := inst.Op.Def()
	rt := uint32(inst.Rt & 0x1f)
	if def.Format == FORMAT_REGIMM {
		rt = def.Funct
	}
	return Code(def.Opcode<<26 |
		uint32(inst.Rs&0x1f)<<21 |
		rt<<16 |
		uint32(inst.Imm))
}

// Encode returns the machine word.
func (inst JType) Encode() Code {
	def := inst.Op.Def()
	return Code(def.Opcode<<26 | (inst.Target & 0x03ff_ffff))
}

// Decode a machine word into an instruction.
// Words with no defined mapping, or with non-zero reserved fields, are ErrDecode.
func Decode(code Code) (inst Inst, err error) {
	var op Op
	var ok bool

	switch code.Opcode() {
	case 0x00:
		op, ok = opByFunct[code.Funct()]
	case 0x01:
		op, ok = opByRegimm[uint32(code.Rt())]
	default:
		op, ok = opByOpcode[code.Opcode()]
	}
	if !ok || !reservedClear(opTable[op].Syntax, code) {
		err = ErrDecode(code)
		return
	}

	switch opTable[op].Format {
	case FORMAT_R:
		inst = RType{Op: op, Rs: code.Rs(), Rt: code.Rt(), Rd: code.Rd(), Shamt: code.Shamt()}
	case FORMAT_REGIMM:
		inst = IType{Op: op, Rs: code.Rs(), Imm: code.Imm()}
	case FORMAT_I:
		inst = IType{Op: op, Rs: code.Rs(), Rt: code.Rt(), Imm: code.Imm()}
	case FORMAT_J:
		inst = JType{Op: op, Target: code.Target()}
	}

	return
}

// reservedClear checks that the fields unused by a syntax are zero.
func reservedClear(syntax Syntax, code Code) bool {
	rs := code.Rs() == 0
	rt := code.Rt() == 0
	rd := code.Rd() == 0
	shamt := code.Shamt() == 0

	switch syntax {
	case SYNTAX_RD_RT_SHAMT:
		return rs
	case SYNTAX_RD_RT_RS, SYNTAX_RD_RS_RT:
		return shamt
	case SYNTAX_RS:
		return rt && rd && shamt
	case SYNTAX_RD_RS:
		return rt && shamt
	case SYNTAX_RD:
		return rs && rt && shamt
	case SYNTAX_RS_RT:
		return rd && shamt
	case SYNTAX_RS_OFFSET:
		// REGIMM uses rt as the selector; blez and bgtz need it clear.
		return code.Opcode() == 0x01 || rt
	case SYNTAX_RT_UIMM:
		return rs
	}

	return true
}

// BranchTarget computes the destination of a branch at addr.
func BranchTarget(addr uint32, imm uint16) uint32 {
	return addr + 4 + uint32(int32(int16(imm))<<2)
}

// JumpTarget computes the destination of a jump at addr.
func JumpTarget(addr uint32, index uint32) uint32 {
	return ((addr + 4) & 0xf000_0000) | (index << 2)
}

// Operands renders the operand list of an instruction.
// target renders branch and jump destinations; if nil,
// the raw offset or index is shown.
func Operands(inst Inst, addr uint32, target func(dest uint32) string) (text string) {
	if target == nil {
		target = func(dest uint32) string { return fmt.Sprintf("0x%08x", dest) }
	}

	switch inst := inst.(type) {
	case RType:
		switch inst.Op.Def().Syntax {
		case SYNTAX_CODE:
			if code := inst.Code(); code != 0 {
				text = fmt.Sprintf("%d", code)
			}
		case SYNTAX_RD_RT_SHAMT:
			text = fmt.Sprintf("%v, %v, %d", inst.Rd, inst.Rt, inst.Shamt)
		case SYNTAX_RD_RT_RS:
			text = fmt.Sprintf("%v, %v, %v", inst.Rd, inst.Rt, inst.Rs)
		case SYNTAX_RS:
			text = inst.Rs.String()
		case SYNTAX_RD_RS:
			text = fmt.Sprintf("%v, %v", inst.Rd, inst.Rs)
		case SYNTAX_RD:
			text = inst.Rd.String()
		case SYNTAX_RS_RT:
			text = fmt.Sprintf("%v, %v", inst.Rs, inst.Rt)
		case SYNTAX_RD_RS_RT:
			text = fmt.Sprintf("%v, %v, %v", inst.Rd, inst.Rs, inst.Rt)
		}
	case IType:
		simm := int16(inst.Imm)
		switch inst.Op.Def().Syntax {
		case SYNTAX_RS_OFFSET:
			text = fmt.Sprintf("%v, %v", inst.Rs, target(BranchTarget(addr, inst.Imm)))
		case SYNTAX_RS_RT_OFFSET:
			text = fmt.Sprintf("%v, %v, %v", inst.Rs, inst.Rt, target(BranchTarget(addr, inst.Imm)))
		case SYNTAX_RT_RS_SIMM:
			text = fmt.Sprintf("%v, %v, %d", inst.Rt, inst.Rs, simm)
		case SYNTAX_RT_RS_UIMM:
			text = fmt.Sprintf("%v, %v, %d", inst.Rt, inst.Rs, inst.Imm)
		case SYNTAX_RT_UIMM:
			text = fmt.Sprintf("%v, %d", inst.Rt, inst.Imm)
		case SYNTAX_RT_MEM:
			text = fmt.Sprintf("%v, %d(%v)", inst.Rt, simm, inst.Rs)
		}
	case JType:
		text = target(JumpTarget(addr, inst.Target))
	}

	return
}

func (inst RType) String() string { return render(inst) }
func (inst IType) String() string { return render(inst) }
func (inst JType) String() string { return render(inst) }

// render formats an instruction as if it resided at TEXT_BOT.
func render(inst Inst) string {
	ops := Operands(inst, TEXT_BOT, nil)
	if len(ops) == 0 {
		return inst.Operation().String()
	}
	return inst.Operation().String() + " " + ops
}
