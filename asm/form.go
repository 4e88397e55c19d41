package asm

import (
	"strings"

	"github.com/ezrec/mipsy/cpu"
)

// OperandType is the operand class accepted by an instruction form.
type OperandType string

const (
	TYPE_REG    = OperandType("reg")    // Register.
	TYPE_I16    = OperandType("i16")    // Signed 16-bit immediate.
	TYPE_U16    = OperandType("u16")    // Unsigned 16-bit immediate.
	TYPE_I32    = OperandType("i32")    // Signed or unsigned 32-bit immediate.
	TYPE_SHAMT  = OperandType("shamt")  // Shift amount, 0 to 31.
	TYPE_CODE   = OperandType("code")   // 20-bit syscall or break code.
	TYPE_TARGET = OperandType("target") // Branch or jump destination.
	TYPE_ADDR   = OperandType("addr")   // Label or absolute address.
	TYPE_MEM    = OperandType("mem")    // offset($reg), with a signed 16-bit offset.
	TYPE_XMEM   = OperandType("xmem")   // label($reg), or a 32-bit offset($reg).
)

// Valid is true for a known operand type.
func (ot OperandType) Valid() bool {
	switch ot {
	case TYPE_REG, TYPE_I16, TYPE_U16, TYPE_I32, TYPE_SHAMT, TYPE_CODE,
		TYPE_TARGET, TYPE_ADDR, TYPE_MEM, TYPE_XMEM:
		return true
	}
	return false
}

func within(value int64, lo int64, hi int64) bool {
	return value >= lo && value <= hi
}

// Accepts reports whether an operand has the right form for the type,
// and whether its value fits.
func (ot OperandType) Accepts(op Operand) (kind bool, fits bool) {
	imm := op.Kind == OPERAND_IMMEDIATE
	mem := op.Kind == OPERAND_MEMORY

	switch ot {
	case TYPE_REG:
		return op.Kind == OPERAND_REGISTER, true
	case TYPE_I16:
		return imm, within(op.Value, -0x8000, 0x7fff)
	case TYPE_U16:
		return imm, within(op.Value, 0, 0xffff)
	case TYPE_I32:
		return imm, within(op.Value, -0x8000_0000, 0xffff_ffff)
	case TYPE_SHAMT:
		return imm, within(op.Value, 0, 31)
	case TYPE_CODE:
		return imm, within(op.Value, 0, 0xf_ffff)
	case TYPE_TARGET, TYPE_ADDR:
		if op.Kind == OPERAND_LABEL {
			return true, true
		}
		return imm, within(op.Value, -0x8000_0000, 0xffff_ffff)
	case TYPE_MEM:
		return mem && len(op.Label) == 0, within(op.Value, -0x8000, 0x7fff)
	case TYPE_XMEM:
		if mem && len(op.Label) != 0 {
			return true, true
		}
		return mem, !within(op.Value, -0x8000, 0x7fff) && within(op.Value, -0x8000_0000, 0xffff_ffff)
	}

	return false, false
}

// Form is one accepted operand signature of a mnemonic.
type Form struct {
	Name     string
	Operands []OperandType
	Op       cpu.Op  // Native instruction, if Pseudo is nil.
	Pseudo   *Pseudo // Pseudo-instruction expansion.
}

// Size returns the number of machine words the form assembles to.
func (form *Form) Size() int {
	if form.Pseudo != nil {
		return len(form.Pseudo.Expand)
	}
	return 1
}

func (form *Form) String() string {
	if len(form.Operands) == 0 {
		return form.Name
	}

	types := make([]string, len(form.Operands))
	for n, ot := range form.Operands {
		types[n] = string(ot)
	}

	return form.Name + " " + strings.Join(types, ", ")
}

// syntaxOperands are the operand types of each native syntax.
var syntaxOperands = map[cpu.Syntax][][]OperandType{
	cpu.SYNTAX_NONE:         {{}},
	cpu.SYNTAX_CODE:         {{}, {TYPE_CODE}},
	cpu.SYNTAX_RD_RT_SHAMT:  {{TYPE_REG, TYPE_REG, TYPE_SHAMT}},
	cpu.SYNTAX_RD_RT_RS:     {{TYPE_REG, TYPE_REG, TYPE_REG}},
	cpu.SYNTAX_RS:           {{TYPE_REG}},
	cpu.SYNTAX_RD_RS:        {{TYPE_REG, TYPE_REG}},
	cpu.SYNTAX_RD:           {{TYPE_REG}},
	cpu.SYNTAX_RS_RT:        {{TYPE_REG, TYPE_REG}},
	cpu.SYNTAX_RD_RS_RT:     {{TYPE_REG, TYPE_REG, TYPE_REG}},
	cpu.SYNTAX_RS_OFFSET:    {{TYPE_REG, TYPE_TARGET}},
	cpu.SYNTAX_RS_RT_OFFSET: {{TYPE_REG, TYPE_REG, TYPE_TARGET}},
	cpu.SYNTAX_RT_RS_SIMM:   {{TYPE_REG, TYPE_REG, TYPE_I16}},
	cpu.SYNTAX_RT_RS_UIMM:   {{TYPE_REG, TYPE_REG, TYPE_U16}},
	cpu.SYNTAX_RT_UIMM:      {{TYPE_REG, TYPE_U16}},
	cpu.SYNTAX_RT_MEM:       {{TYPE_REG, TYPE_MEM}},
	cpu.SYNTAX_TARGET:       {{TYPE_TARGET}},
}

// Forms returns every form of a mnemonic, native forms first.
func Forms(name string) (forms []Form) {
	if op, ok := cpu.LookupOp(name); ok {
		for _, types := range syntaxOperands[op.Def().Syntax] {
			forms = append(forms, Form{Name: name, Operands: types, Op: op})
		}
	}

	for _, ps := range pseudoByName[name] {
		forms = append(forms, Form{Name: name, Operands: ps.Operands, Pseudo: ps})
	}

	return
}

// Match selects the first form of a mnemonic that accepts the operands.
func Match(name string, ops []Operand) (form Form, err error) {
	forms := Forms(name)
	if len(forms) == 0 {
		err = ErrInstructionUnknown
		return
	}

	shaped := false
	for _, candidate := range forms {
		if len(candidate.Operands) != len(ops) {
			continue
		}
		kinds, fits := true, true
		for n, ot := range candidate.Operands {
			kind, fit := ot.Accepts(ops[n])
			kinds = kinds && kind
			fits = fits && fit
		}
		if kinds && fits {
			form = candidate
			return
		}
		shaped = shaped || kinds
	}

	if shaped {
		err = ErrImmediateRange
		return
	}

	formats := make([]string, len(forms))
	for n := range forms {
		formats[n] = forms[n].String()
	}
	err = &ErrInstructionFormat{Mnemonic: name, Formats: formats}

	return
}
