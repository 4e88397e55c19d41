package cpu

import (
	"cmp"
	"encoding/binary"
	"iter"
	"maps"
	"slices"
)

// Opcode is one assembled source statement and the words it produced.
type Opcode struct {
	File     string // Source unit name.
	LineNo   int    // Line number within the unit, 1 based.
	Column   int    // Column of the mnemonic, 1 based.
	Addr     uint32 // Address of the first word.
	Source   string // Source text of the statement.
	Mnemonic string // Mnemonic as written; may be a pseudo-instruction.
	Codes    []Code // Machine words.
}

// Pseudo is true if the statement was expanded from a pseudo-instruction.
func (op *Opcode) Pseudo() bool {
	_, native := LookupOp(op.Mnemonic)
	return !native || len(op.Codes) != 1
}

// Symbol is a resolved label.
type Symbol struct {
	Name    string
	Addr    uint32
	Segment Segment
}

// Program is an assembled binary image. It is never modified once built.
type Program struct {
	Opcodes []Opcode          // Text, in address order.
	Data    []byte            // Data segment image, loaded at DATA_BOT.
	Symbols map[string]Symbol // Label table.
	Entry   uint32            // Initial program counter.
}

// Debug locates the statement that produced a text address.
type Debug struct {
	*Opcode
	Index int // Word index within the statement.
}

// Debug returns the statement covering addr, or a zero Debug.
func (prog *Program) Debug(addr uint32) (dbg Debug) {
	n, found := slices.BinarySearchFunc(prog.Opcodes, addr, func(op Opcode, addr uint32) int {
		end := op.Addr + 4*uint32(len(op.Codes))
		switch {
		case addr < op.Addr:
			return 1
		case addr >= end:
			return -1
		}
		return 0
	})
	if !found || addr%4 != 0 {
		return
	}

	op := &prog.Opcodes[n]
	dbg = Debug{
		Opcode: op,
		Index:  int(addr-op.Addr) / 4,
	}

	return
}

// Codes iterates over every text word and its address.
func (prog *Program) Codes() iter.Seq2[uint32, Code] {
	return func(yield func(addr uint32, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Addr+4*uint32(n), code) {
					return
				}
			}
		}
	}
}

// Binary returns the little-endian text segment image.
func (prog *Program) Binary() (bins []byte) {
	for _, code := range prog.Codes() {
		bins = binary.LittleEndian.AppendUint32(bins, uint32(code))
	}

	return
}

// TextEnd returns one past the last text address.
func (prog *Program) TextEnd() uint32 {
	if len(prog.Opcodes) == 0 {
		return TEXT_BOT
	}
	last := prog.Opcodes[len(prog.Opcodes)-1]
	return last.Addr + 4*uint32(len(last.Codes))
}

// Labels returns the sorted names of the labels at addr.
func (prog *Program) Labels(addr uint32) (names []string) {
	for name, sym := range prog.Symbols {
		if sym.Addr == addr {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return
}

// Sorted iterates over the symbol table by address, then name.
func (prog *Program) Sorted() iter.Seq[Symbol] {
	syms := slices.SortedFunc(maps.Values(prog.Symbols), func(a, b Symbol) int {
		return cmp.Or(cmp.Compare(a.Addr, b.Addr), cmp.Compare(a.Name, b.Name))
	})
	return slices.Values(syms)
}
