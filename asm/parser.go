package asm

import (
	"regexp"
	"strings"

	"github.com/ezrec/mipsy/cpu"
)

var (
	constantRe = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_]*)\s*=(.*)$`)
	eqvRe      = regexp.MustCompile(`^(\s*)\.eqv\s+([A-Za-z_][A-Za-z0-9_]*)\s*,?(.*)$`)
)

// directives are the known assembler directives.
var directives = map[string]bool{
	".text":   true,
	".data":   true,
	".globl":  true,
	".align":  true,
	".space":  true,
	".byte":   true,
	".half":   true,
	".word":   true,
	".float":  true,
	".double": true,
	".ascii":  true,
	".asciiz": true,
}

// Mnemonic is true if name is a native or pseudo-instruction.
func Mnemonic(name string) bool {
	if _, ok := cpu.LookupOp(name); ok {
		return true
	}
	_, ok := pseudoByName[name]
	return ok
}

// parser converts source lines into items.
type parser struct {
	File    string
	TabSize int
}

// stripComment removes a trailing comment from an expression.
func stripComment(text string) string {
	if n := strings.IndexAny(text, "#;"); n >= 0 {
		text = text[:n]
	}
	return strings.TrimSpace(text)
}

// ParseLine parses a single source line into items.
func (ps *parser) ParseLine(lineNo int, line string) (items []Item, err error) {
	pos := func(offset int) Pos {
		return Pos{File: ps.File, Line: lineNo, Column: Column(line, offset, ps.TabSize)}
	}

	for _, re := range []*regexp.Regexp{constantRe, eqvRe} {
		match := re.FindStringSubmatchIndex(line)
		if match == nil {
			continue
		}
		name := line[match[4]:match[5]]
		expr := stripComment(line[match[6]:match[7]])
		if len(expr) == 0 {
			err = &ErrSyntax{Pos: pos(match[6]), Err: ErrExpressionInvalid}
			return
		}
		if _, ok := cpu.ParseReg(name); ok || Mnemonic(strings.ToLower(name)) {
			err = &ErrSyntax{Pos: pos(match[4]), Err: ErrConstantName}
			return
		}
		items = append(items, Item{
			Kind:   ITEM_CONSTANT,
			Pos:    pos(match[4]),
			Name:   name,
			Expr:   expr,
			Source: stripComment(line[match[3]:]),
		})
		return
	}

	toks, end, err := Lex(line)
	if err != nil {
		lerr := err.(*lexError)
		err = &ErrSyntax{Pos: pos(lerr.Offset), Err: lerr.Err}
		return
	}

	for len(toks) >= 2 && toks[0].Kind == TOKEN_IDENT && toks[1].Kind == TOKEN_COLON {
		items = append(items, Item{
			Kind:   ITEM_LABEL,
			Pos:    pos(toks[0].Offset),
			Name:   toks[0].Text,
			Source: toks[0].Text + ":",
		})
		toks = toks[2:]
	}

	if len(toks) == 0 {
		return
	}

	head := toks[0]
	if head.Kind != TOKEN_IDENT {
		err = &ErrSyntax{Pos: pos(head.Offset), Err: ErrStatementInvalid}
		return
	}

	item := Item{
		Pos:    pos(head.Offset),
		Source: strings.TrimSpace(line[head.Offset:end]),
	}

	if strings.HasPrefix(head.Text, ".") {
		item.Kind = ITEM_DIRECTIVE
		item.Name = strings.ToLower(head.Text)
		if !directives[item.Name] {
			err = &ErrSyntax{Pos: item.Pos, Err: ErrDirectiveInvalid}
			return
		}
	} else {
		item.Kind = ITEM_INSTRUCTION
		item.Name = strings.ToLower(head.Text)
		if !Mnemonic(item.Name) {
			err = &ErrSyntax{Pos: item.Pos, Err: ErrInstructionUnknown}
			return
		}
	}

	item.Operands, err = parseOperands(toks[1:], end)
	if err != nil {
		lerr := err.(*lexError)
		err = &ErrSyntax{Pos: pos(lerr.Offset), Err: lerr.Err}
		return
	}

	items = append(items, item)
	return
}

// parseOperands parses a comma separated operand list.
func parseOperands(toks []Token, end int) (ops []Operand, err error) {
	for len(toks) > 0 {
		var op Operand
		op, toks, err = parseOperand(toks, end)
		if err != nil {
			return
		}
		ops = append(ops, op)

		if len(toks) == 0 {
			break
		}
		if toks[0].Kind != TOKEN_COMMA {
			err = &lexError{Offset: toks[0].Offset, Err: ErrOperandInvalid}
			return
		}
		toks = toks[1:]
		if len(toks) == 0 {
			err = &lexError{Offset: end, Err: ErrOperandMissing}
			return
		}
	}

	return
}

// parseBase parses a '($reg)' suffix.
func parseBase(toks []Token, end int) (reg cpu.Reg, rest []Token, err error) {
	if len(toks) < 3 || toks[1].Kind != TOKEN_REGISTER || toks[2].Kind != TOKEN_RPAREN {
		offset := end
		if len(toks) > 1 {
			offset = toks[1].Offset
		}
		err = &lexError{Offset: offset, Err: ErrOperandInvalid}
		return
	}

	return toks[1].Reg, toks[3:], nil
}

// parseOperand parses one operand from the head of toks.
func parseOperand(toks []Token, end int) (op Operand, rest []Token, err error) {
	tok := toks[0]
	rest = toks[1:]

	switch tok.Kind {
	case TOKEN_REGISTER:
		op = Operand{Kind: OPERAND_REGISTER, Reg: tok.Reg}
	case TOKEN_LPAREN:
		op = Operand{Kind: OPERAND_MEMORY}
		op.Reg, rest, err = parseBase(toks, end)
	case TOKEN_PLUS, TOKEN_MINUS:
		if len(rest) == 0 || (rest[0].Kind != TOKEN_INT && rest[0].Kind != TOKEN_FLOAT) {
			err = &lexError{Offset: tok.Offset, Err: ErrOperandInvalid}
			return
		}
		op, rest, err = parseOperand(rest, end)
		if err == nil && tok.Kind == TOKEN_MINUS {
			switch op.Kind {
			case OPERAND_FLOAT:
				op.Float = -op.Float
			default:
				op.Value = -op.Value
			}
		}
	case TOKEN_INT:
		op = Operand{Kind: OPERAND_IMMEDIATE, Value: tok.Value}
		if len(rest) > 0 && rest[0].Kind == TOKEN_LPAREN {
			op.Kind = OPERAND_MEMORY
			op.Reg, rest, err = parseBase(rest, end)
		}
	case TOKEN_FLOAT:
		op = Operand{Kind: OPERAND_FLOAT, Float: tok.Float}
	case TOKEN_STRING:
		op = Operand{Kind: OPERAND_STRING, Text: tok.Str}
	case TOKEN_IDENT:
		op = Operand{Kind: OPERAND_LABEL, Label: tok.Text}
		if len(rest) >= 2 && (rest[0].Kind == TOKEN_PLUS || rest[0].Kind == TOKEN_MINUS) && rest[1].Kind == TOKEN_INT {
			op.Value = rest[1].Value
			if rest[0].Kind == TOKEN_MINUS {
				op.Value = -op.Value
			}
			rest = rest[2:]
		}
		if len(rest) > 0 && rest[0].Kind == TOKEN_LPAREN {
			op.Kind = OPERAND_MEMORY
			op.Reg, rest, err = parseBase(rest, end)
		}
	default:
		err = &lexError{Offset: tok.Offset, Err: ErrOperandInvalid}
	}

	return
}
