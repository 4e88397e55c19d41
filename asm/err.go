package asm

import (
	"errors"
	"strings"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	// Syntax errors
	ErrCharacterInvalid   = errors.New(f("invalid character"))
	ErrStringUnterminated = errors.New(f("unterminated string"))
	ErrCharacterLiteral   = errors.New(f("invalid character literal"))
	ErrEscapeInvalid      = errors.New(f("invalid escape sequence"))
	ErrNumberInvalid      = errors.New(f("invalid number"))
	ErrRegisterInvalid    = errors.New(f("invalid register"))
	ErrOperandInvalid     = errors.New(f("invalid operand"))
	ErrOperandMissing     = errors.New(f("missing operand"))
	ErrStatementInvalid   = errors.New(f("invalid statement"))
	ErrExpressionInvalid  = errors.New(f("invalid constant expression"))
	ErrConstantName       = errors.New(f("invalid constant name"))
	ErrDirectiveInvalid   = errors.New(f("unknown directive"))
	ErrInstructionUnknown = errors.New(f("unknown instruction"))

	// Assembly errors
	ErrConstantDuplicate  = errors.New(f("duplicate constant"))
	ErrLabelDuplicate     = errors.New(f("duplicate label"))
	ErrDirectiveOperands  = errors.New(f("invalid directive operands"))
	ErrDirectiveSegment   = errors.New(f("directive not permitted in this segment"))
	ErrInstructionSegment = errors.New(f("instruction outside of the text segment"))
	ErrSegmentFull        = errors.New(f("segment full"))
	ErrDataValueRange     = errors.New(f("data value out of range"))
	ErrAlignInvalid       = errors.New(f("invalid alignment"))
	ErrSpaceInvalid       = errors.New(f("invalid space size"))

	// Encoding errors
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrBranchRange        = errors.New(f("branch target out of range"))
	ErrJumpRange          = errors.New(f("jump target out of range"))
	ErrTargetAlign        = errors.New(f("target not word aligned"))
	ErrExpansionInvalid   = errors.New(f("invalid pseudo-instruction expansion"))
	ErrPseudoTableInvalid = errors.New(f("invalid pseudo-instruction table"))
)

// ErrLabelMissing is a reference to an undefined label.
type ErrLabelMissing string

func (err ErrLabelMissing) Error() string {
	return f("undefined label '%v'", string(err))
}

// ErrInstructionFormat is a known mnemonic used with operands that
// match none of its formats.
type ErrInstructionFormat struct {
	Mnemonic string
	Formats  []string // Accepted operand formats.
}

func (err *ErrInstructionFormat) Error() string {
	return f("invalid operands for '%v', expected one of: %v", err.Mnemonic, strings.Join(err.Formats, "; "))
}

// ErrSyntax is an error in the form of a source line.
type ErrSyntax struct {
	Pos Pos
	Err error
}

func (err *ErrSyntax) Error() string {
	return f("%v: syntax error: %v", err.Pos, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrAssembly is a structural error found while laying out the program.
type ErrAssembly struct {
	Pos Pos
	Err error
}

func (err *ErrAssembly) Error() string {
	return f("%v: %v", err.Pos, err.Err)
}

func (err *ErrAssembly) Unwrap() error {
	return err.Err
}

// ErrEncoding is an operand that cannot be represented in the machine word.
type ErrEncoding struct {
	Pos Pos
	Err error
}

func (err *ErrEncoding) Error() string {
	return f("%v: encoding error: %v", err.Pos, err.Err)
}

func (err *ErrEncoding) Unwrap() error {
	return err.Err
}
