package asm

import (
	"encoding/binary"
	"maps"
	"math"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/internal"
)

// statement is a text segment item placed at an address.
type statement struct {
	Item  Item
	Addr  uint32
	Form  Form
	Words []Operand // Raw '.word' values in the text segment.
}

// Size returns the number of machine words of the statement.
func (stmt *statement) Size() int {
	if stmt.Words != nil {
		return len(stmt.Words)
	}
	return stmt.Form.Size()
}

// fixup is a data word that holds the address of a label.
type fixup struct {
	Offset  int
	Pos     Pos
	Operand Operand
}

// layout assigns addresses to every statement and label.
type layout struct {
	Predefine map[string]int64 // Constants visible to every unit.

	Symbols map[string]cpu.Symbol
	Text    []statement
	Data    []byte

	fixups    []fixup
	textAddr  uint32
	segment   cpu.Segment
	pending   []Item
	constants map[string]int64
}

func newLayout(predefine map[string]int64) (lay *layout) {
	lay = &layout{
		Predefine: predefine,
		Symbols:   map[string]cpu.Symbol{},
		Data:      []byte{},
		textAddr:  cpu.TEXT_BOT,
	}

	return
}

// dataAddr is the address of the next data byte.
func (lay *layout) dataAddr() uint32 {
	return cpu.DATA_BOT + uint32(len(lay.Data))
}

// define adds a label to the symbol table.
func (lay *layout) define(item Item, addr uint32, seg cpu.Segment) (err error) {
	_, dup := lay.Symbols[item.Name]
	_, isConst := lay.constants[item.Name]
	if dup || isConst {
		return &ErrAssembly{Pos: item.Pos, Err: ErrLabelDuplicate}
	}

	lay.Symbols[item.Name] = cpu.Symbol{Name: item.Name, Addr: addr, Segment: seg}
	return
}

// flush binds labels waiting for the next data item.
func (lay *layout) flush() (err error) {
	for _, item := range lay.pending {
		err = lay.define(item, lay.dataAddr(), cpu.SEGMENT_DATA)
		if err != nil {
			return
		}
	}
	lay.pending = lay.pending[:0]

	return
}

// align pads the data segment to a multiple of size, then binds pending labels.
func (lay *layout) align(size int) (err error) {
	for len(lay.Data)%size != 0 {
		lay.Data = append(lay.Data, 0)
	}

	return lay.flush()
}

// Unit lays out the items of one source unit. Units share labels,
// but constants are local to each unit.
func (lay *layout) Unit(items []Item) (err error) {
	lay.segment = cpu.SEGMENT_TEXT
	lay.constants = maps.Clone(lay.Predefine)
	if lay.constants == nil {
		lay.constants = map[string]int64{}
	}
	defined := map[string]bool{}

	for _, item := range items {
		switch item.Kind {
		case ITEM_CONSTANT:
			_, label := lay.Symbols[item.Name]
			if defined[item.Name] || label {
				return &ErrAssembly{Pos: item.Pos, Err: ErrConstantDuplicate}
			}
			lineNo := map[string]int64{"LINENO": int64(item.Pos.Line)}
			var value int64
			value, err = Eval(item.Expr, internal.IterSeq2Concat(maps.All(lay.constants), maps.All(lineNo)))
			if err != nil {
				return &ErrAssembly{Pos: item.Pos, Err: err}
			}
			lay.constants[item.Name] = value
			defined[item.Name] = true
		case ITEM_LABEL:
			if lay.segment == cpu.SEGMENT_TEXT {
				err = lay.define(item, lay.textAddr, cpu.SEGMENT_TEXT)
			} else {
				lay.pending = append(lay.pending, item)
			}
		case ITEM_DIRECTIVE:
			err = lay.directive(lay.substitute(item))
		case ITEM_INSTRUCTION:
			err = lay.instruction(lay.substitute(item))
		}
		if err != nil {
			return
		}
	}

	return lay.flush()
}

// substitute replaces constant names in operands by their values.
func (lay *layout) substitute(item Item) Item {
	ops := make([]Operand, len(item.Operands))
	for n, op := range item.Operands {
		if value, ok := lay.constants[op.Label]; ok && len(op.Label) != 0 {
			switch op.Kind {
			case OPERAND_LABEL:
				op = Operand{Kind: OPERAND_IMMEDIATE, Value: value + op.Value}
			case OPERAND_MEMORY:
				op = Operand{Kind: OPERAND_MEMORY, Reg: op.Reg, Value: value + op.Value}
			}
		}
		ops[n] = op
	}

	item.Operands = ops
	return item
}

// instruction places a text segment instruction.
func (lay *layout) instruction(item Item) (err error) {
	if lay.segment != cpu.SEGMENT_TEXT {
		return &ErrAssembly{Pos: item.Pos, Err: ErrInstructionSegment}
	}

	form, err := Match(item.Name, item.Operands)
	if err != nil {
		if err == ErrImmediateRange {
			return &ErrEncoding{Pos: item.Pos, Err: err}
		}
		return &ErrAssembly{Pos: item.Pos, Err: err}
	}

	return lay.place(statement{Item: item, Addr: lay.textAddr, Form: form})
}

// place appends a statement to the text segment.
func (lay *layout) place(stmt statement) (err error) {
	end := uint64(stmt.Addr) + 4*uint64(stmt.Size())
	if end > uint64(cpu.TEXT_TOP)+1 {
		return &ErrAssembly{Pos: stmt.Item.Pos, Err: ErrSegmentFull}
	}

	lay.Text = append(lay.Text, stmt)
	lay.textAddr = uint32(end)

	return
}

// directive processes an assembler directive.
func (lay *layout) directive(item Item) (err error) {
	fail := func(e error) error {
		return &ErrAssembly{Pos: item.Pos, Err: e}
	}

	ops := item.Operands

	switch item.Name {
	case ".text", ".data":
		if len(ops) != 0 {
			return fail(ErrDirectiveOperands)
		}
		err = lay.flush()
		if err != nil {
			return
		}
		lay.segment = cpu.SEGMENT_TEXT
		if item.Name == ".data" {
			lay.segment = cpu.SEGMENT_DATA
		}
		return
	case ".globl":
		if len(ops) == 0 {
			return fail(ErrDirectiveOperands)
		}
		for _, op := range ops {
			if op.Kind != OPERAND_LABEL || op.Value != 0 {
				return fail(ErrDirectiveOperands)
			}
		}
		return
	case ".align":
		if len(ops) != 1 || ops[0].Kind != OPERAND_IMMEDIATE {
			return fail(ErrDirectiveOperands)
		}
		if !within(ops[0].Value, 0, 16) {
			return fail(ErrAlignInvalid)
		}
		if lay.segment == cpu.SEGMENT_TEXT {
			if ops[0].Value > 2 {
				return fail(ErrDirectiveSegment)
			}
			return
		}
		return lay.align(1 << ops[0].Value)
	}

	if len(ops) == 0 {
		return fail(ErrDirectiveOperands)
	}

	if lay.segment == cpu.SEGMENT_TEXT {
		if item.Name != ".word" {
			return fail(ErrDirectiveSegment)
		}
		for _, op := range ops {
			kind, fits := TYPE_ADDR.Accepts(op)
			if !kind {
				return fail(ErrDirectiveOperands)
			}
			if !fits {
				return fail(ErrDataValueRange)
			}
		}
		return lay.place(statement{Item: item, Addr: lay.textAddr, Words: ops})
	}

	switch item.Name {
	case ".byte":
		err = lay.integers(item, 1, -0x80, 0xff)
	case ".half":
		err = lay.integers(item, 2, -0x8000, 0xffff)
	case ".word":
		err = lay.integers(item, 4, -0x8000_0000, 0xffff_ffff)
	case ".float":
		err = lay.floats(item, 4)
	case ".double":
		err = lay.floats(item, 8)
	case ".ascii", ".asciiz":
		for _, op := range ops {
			if op.Kind != OPERAND_STRING {
				return fail(ErrDirectiveOperands)
			}
		}
		err = lay.flush()
		if err != nil {
			return
		}
		for _, op := range ops {
			lay.Data = append(lay.Data, op.Text...)
			if item.Name == ".asciiz" {
				lay.Data = append(lay.Data, 0)
			}
		}
	case ".space":
		if len(ops) != 1 || ops[0].Kind != OPERAND_IMMEDIATE {
			return fail(ErrDirectiveOperands)
		}
		if !within(ops[0].Value, 0, cpu.HEAP_BOT-cpu.DATA_BOT) {
			return fail(ErrSpaceInvalid)
		}
		err = lay.flush()
		if err != nil {
			return
		}
		lay.Data = append(lay.Data, make([]byte, ops[0].Value)...)
	}
	if err != nil {
		return
	}

	if lay.dataAddr() > cpu.HEAP_BOT || len(lay.Data) > cpu.HEAP_BOT-cpu.DATA_BOT {
		return fail(ErrSegmentFull)
	}

	return
}

// integers appends aligned integers of size bytes.
func (lay *layout) integers(item Item, size int, lo int64, hi int64) (err error) {
	err = lay.align(size)
	if err != nil {
		return
	}

	var buff [8]byte
	for _, op := range item.Operands {
		switch {
		case op.Kind == OPERAND_LABEL && size == 4:
			lay.fixups = append(lay.fixups, fixup{Offset: len(lay.Data), Pos: item.Pos, Operand: op})
			binary.LittleEndian.PutUint32(buff[:], 0)
		case op.Kind == OPERAND_IMMEDIATE:
			if !within(op.Value, lo, hi) {
				return &ErrAssembly{Pos: item.Pos, Err: ErrDataValueRange}
			}
			binary.LittleEndian.PutUint64(buff[:], uint64(op.Value))
		default:
			return &ErrAssembly{Pos: item.Pos, Err: ErrDirectiveOperands}
		}
		lay.Data = append(lay.Data, buff[:size]...)
	}

	return
}

// floats appends aligned IEEE-754 values of size bytes.
func (lay *layout) floats(item Item, size int) (err error) {
	err = lay.align(size)
	if err != nil {
		return
	}

	for _, op := range item.Operands {
		var value float64
		switch op.Kind {
		case OPERAND_FLOAT:
			value = op.Float
		case OPERAND_IMMEDIATE:
			value = float64(op.Value)
		default:
			return &ErrAssembly{Pos: item.Pos, Err: ErrDirectiveOperands}
		}
		if size == 4 {
			lay.Data = binary.LittleEndian.AppendUint32(lay.Data, math.Float32bits(float32(value)))
		} else {
			lay.Data = binary.LittleEndian.AppendUint64(lay.Data, math.Float64bits(value))
		}
	}

	return
}

// Link checks every label reference and patches data words holding addresses.
func (lay *layout) Link() (err error) {
	for _, stmt := range lay.Text {
		ops := stmt.Item.Operands
		for _, op := range ops {
			if len(op.Label) == 0 {
				continue
			}
			if _, ok := lay.Symbols[op.Label]; !ok {
				return &ErrAssembly{Pos: stmt.Item.Pos, Err: ErrLabelMissing(op.Label)}
			}
		}
	}

	for _, fix := range lay.fixups {
		sym, ok := lay.Symbols[fix.Operand.Label]
		if !ok {
			return &ErrAssembly{Pos: fix.Pos, Err: ErrLabelMissing(fix.Operand.Label)}
		}
		binary.LittleEndian.PutUint32(lay.Data[fix.Offset:], sym.Addr+uint32(fix.Operand.Value))
	}

	return
}

// resolve replaces any label in an operand by its address.
func (lay *layout) resolve(op Operand) (rv resolved, err error) {
	rv = resolved{Operand: op, Addr: op.Value}
	if len(op.Label) == 0 {
		return
	}

	sym, ok := lay.Symbols[op.Label]
	if !ok {
		err = ErrLabelMissing(op.Label)
		return
	}
	rv.Addr = int64(sym.Addr) + op.Value

	return
}
