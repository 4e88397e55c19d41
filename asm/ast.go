package asm

import (
	"fmt"

	"github.com/ezrec/mipsy/cpu"
)

// Pos is a source position.
type Pos struct {
	File   string // Unit name; may be empty.
	Line   int    // Line number, 1 based.
	Column int    // Column, 1 based, with tabs expanded.
}

func (pos Pos) String() string {
	if len(pos.File) == 0 {
		return fmt.Sprintf("%d:%d", pos.Line, pos.Column)
	}
	return fmt.Sprintf("%s:%d:%d", pos.File, pos.Line, pos.Column)
}

// ItemKind is the kind of a parsed statement.
type ItemKind int

const (
	ITEM_LABEL       = ItemKind(iota) // 'name:'
	ITEM_DIRECTIVE                    // '.name operands...'
	ITEM_INSTRUCTION                  // 'mnemonic operands...'
	ITEM_CONSTANT                     // 'NAME = expr' or '.eqv NAME expr'
)

var itemKindNames = [...]string{
	ITEM_LABEL:       "label",
	ITEM_DIRECTIVE:   "directive",
	ITEM_INSTRUCTION: "instruction",
	ITEM_CONSTANT:    "constant",
}

func (kind ItemKind) String() string {
	if int(kind) < len(itemKindNames) {
		return itemKindNames[kind]
	}
	return fmt.Sprintf("ItemKind(%d)", int(kind))
}

// OperandKind is the syntactic form of an operand.
type OperandKind int

const (
	OPERAND_REGISTER  = OperandKind(iota) // $reg
	OPERAND_IMMEDIATE                     // integer or character literal
	OPERAND_LABEL                         // name, name+n, name-n
	OPERAND_MEMORY                        // offset($reg), name($reg), name+n($reg)
	OPERAND_STRING                        // "text"
	OPERAND_FLOAT                         // floating point literal
)

var operandKindNames = [...]string{
	OPERAND_REGISTER:  "register",
	OPERAND_IMMEDIATE: "immediate",
	OPERAND_LABEL:     "label",
	OPERAND_MEMORY:    "memory",
	OPERAND_STRING:    "string",
	OPERAND_FLOAT:     "float",
}

func (kind OperandKind) String() string {
	if int(kind) < len(operandKindNames) {
		return operandKindNames[kind]
	}
	return fmt.Sprintf("OperandKind(%d)", int(kind))
}

// Operand is a single parsed operand.
type Operand struct {
	Kind  OperandKind
	Reg   cpu.Reg // Register, or base register of a memory operand.
	Value int64   // Immediate value, label addend, or memory offset.
	Label string  // Label name, if any.
	Text  []byte  // Decoded string literal.
	Float float64 // Floating point literal.
}

// String renders the operand as assembly text.
func (op Operand) String() string {
	switch op.Kind {
	case OPERAND_REGISTER:
		return op.Reg.String()
	case OPERAND_IMMEDIATE:
		return fmt.Sprintf("%d", op.Value)
	case OPERAND_LABEL:
		return op.Label + addend(op.Value)
	case OPERAND_MEMORY:
		if len(op.Label) != 0 {
			return fmt.Sprintf("%s%s(%v)", op.Label, addend(op.Value), op.Reg)
		}
		return fmt.Sprintf("%d(%v)", op.Value, op.Reg)
	case OPERAND_STRING:
		return fmt.Sprintf("%q", op.Text)
	case OPERAND_FLOAT:
		return fmt.Sprintf("%g", op.Float)
	}
	return "?"
}

func addend(value int64) string {
	switch {
	case value > 0:
		return fmt.Sprintf("+%d", value)
	case value < 0:
		return fmt.Sprintf("%d", value)
	}
	return ""
}

// Item is one parsed statement. Items are never modified after parsing.
type Item struct {
	Kind     ItemKind
	Pos      Pos       // Position of the label, directive, mnemonic or constant name.
	Name     string    // Label, directive, mnemonic or constant name.
	Operands []Operand // Directive or instruction operands.
	Expr     string    // Constant expression.
	Source   string    // Statement text, without comments or leading labels.
}
