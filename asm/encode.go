package asm

import (
	"errors"

	"github.com/ezrec/mipsy/cpu"
)

// branchOffset computes the 16-bit word offset from a branch at addr.
func branchOffset(addr uint32, dest int64) (imm uint16, err error) {
	if dest%4 != 0 {
		err = ErrTargetAlign
		return
	}

	diff := (dest - int64(addr) - 4) / 4
	if !within(diff, -0x8000, 0x7fff) {
		err = ErrBranchRange
		return
	}

	imm = uint16(int16(diff))
	return
}

// jumpIndex computes the 26-bit word index of a jump at addr.
func jumpIndex(addr uint32, dest int64) (index uint32, err error) {
	if dest%4 != 0 {
		err = ErrTargetAlign
		return
	}

	target := uint32(dest)
	if int64(target) != dest || target&0xf000_0000 != (addr+4)&0xf000_0000 {
		err = ErrJumpRange
		return
	}

	index = (target >> 2) & 0x03ff_ffff
	return
}

// encodeNative encodes a native instruction at addr.
func encodeNative(op cpu.Op, ops []resolved, addr uint32) (code cpu.Code, err error) {
	reg := func(n int) cpu.Reg { return ops[n].Reg }
	imm := func(n int) uint16 { return uint16(ops[n].Addr) }

	var inst cpu.Inst
	switch op.Def().Syntax {
	case cpu.SYNTAX_NONE:
		inst = cpu.RType{Op: op}
	case cpu.SYNTAX_CODE:
		var value uint32
		if len(ops) > 0 {
			value = uint32(ops[0].Addr)
		}
		inst = cpu.MakeCodeR(op, value)
	case cpu.SYNTAX_RD_RT_SHAMT:
		inst = cpu.RType{Op: op, Rd: reg(0), Rt: reg(1), Shamt: uint8(ops[2].Addr)}
	case cpu.SYNTAX_RD_RT_RS:
		inst = cpu.RType{Op: op, Rd: reg(0), Rt: reg(1), Rs: reg(2)}
	case cpu.SYNTAX_RS:
		inst = cpu.RType{Op: op, Rs: reg(0)}
	case cpu.SYNTAX_RD_RS:
		inst = cpu.RType{Op: op, Rd: reg(0), Rs: reg(1)}
	case cpu.SYNTAX_RD:
		inst = cpu.RType{Op: op, Rd: reg(0)}
	case cpu.SYNTAX_RS_RT:
		inst = cpu.RType{Op: op, Rs: reg(0), Rt: reg(1)}
	case cpu.SYNTAX_RD_RS_RT:
		inst = cpu.RType{Op: op, Rd: reg(0), Rs: reg(1), Rt: reg(2)}
	case cpu.SYNTAX_RS_OFFSET:
		var offset uint16
		offset, err = branchOffset(addr, ops[1].Addr)
		inst = cpu.IType{Op: op, Rs: reg(0), Imm: offset}
	case cpu.SYNTAX_RS_RT_OFFSET:
		var offset uint16
		offset, err = branchOffset(addr, ops[2].Addr)
		inst = cpu.IType{Op: op, Rs: reg(0), Rt: reg(1), Imm: offset}
	case cpu.SYNTAX_RT_RS_SIMM, cpu.SYNTAX_RT_RS_UIMM:
		inst = cpu.IType{Op: op, Rt: reg(0), Rs: reg(1), Imm: imm(2)}
	case cpu.SYNTAX_RT_UIMM:
		inst = cpu.IType{Op: op, Rt: reg(0), Imm: imm(1)}
	case cpu.SYNTAX_RT_MEM:
		inst = cpu.IType{Op: op, Rt: reg(0), Rs: reg(1), Imm: imm(1)}
	case cpu.SYNTAX_TARGET:
		var index uint32
		index, err = jumpIndex(addr, ops[0].Addr)
		inst = cpu.JType{Op: op, Target: index}
	default:
		err = ErrInstructionUnknown
	}
	if err != nil {
		return
	}

	code = inst.Encode()
	return
}

// encode assembles the machine words of a text statement.
func (lay *layout) encode(stmt *statement) (codes []cpu.Code, err error) {
	defer func() {
		if err != nil {
			var encErr *ErrEncoding
			if !errors.As(err, &encErr) {
				err = &ErrEncoding{Pos: stmt.Item.Pos, Err: err}
			}
		}
	}()

	if stmt.Words != nil {
		for _, op := range stmt.Words {
			var rv resolved
			rv, err = lay.resolve(op)
			if err != nil {
				return
			}
			codes = append(codes, cpu.Code(uint32(rv.Addr)))
		}
		return
	}

	ops := make([]resolved, len(stmt.Item.Operands))
	for n, op := range stmt.Item.Operands {
		ops[n], err = lay.resolve(op)
		if err != nil {
			return
		}
	}

	if stmt.Form.Pseudo == nil {
		var code cpu.Code
		code, err = encodeNative(stmt.Form.Op, ops, stmt.Addr)
		if err != nil {
			return
		}
		codes = append(codes, code)
		return
	}

	lines, err := stmt.Form.Pseudo.expand(ops)
	if err != nil {
		return
	}

	ps := &parser{File: stmt.Item.Pos.File, TabSize: 1}
	for n, line := range lines {
		var code cpu.Code
		code, err = encodeLine(ps, line, stmt.Addr+4*uint32(n))
		if err != nil {
			return
		}
		codes = append(codes, code)
	}

	return
}

// encodeLine encodes one expanded native instruction.
func encodeLine(ps *parser, line string, addr uint32) (code cpu.Code, err error) {
	items, err := ps.ParseLine(0, line)
	if err != nil {
		return
	}
	if len(items) != 1 || items[0].Kind != ITEM_INSTRUCTION {
		err = ErrExpansionInvalid
		return
	}

	item := items[0]
	form, err := Match(item.Name, item.Operands)
	if err != nil {
		return
	}
	if form.Pseudo != nil {
		err = ErrExpansionInvalid
		return
	}

	ops := make([]resolved, len(item.Operands))
	for n, op := range item.Operands {
		ops[n] = resolved{Operand: op, Addr: op.Value}
	}

	return encodeNative(form.Op, ops, addr)
}
