package asm

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Diagnostic is a single positioned assembly message.
type Diagnostic struct {
	File    string
	Line    int
	Column  int
	Message string
}

// String returns the message prefixed by its position, in the
// 'file:line:column: message' form editors recognise.
func (diag Diagnostic) String() string {
	if diag.Line == 0 {
		return diag.Message
	}
	pos := Pos{File: diag.File, Line: diag.Line, Column: diag.Column}
	return fmt.Sprintf("%v: %v", pos, diag.Message)
}

func diagnostic(pos Pos, err error) Diagnostic {
	return Diagnostic{
		File:    pos.File,
		Line:    pos.Line,
		Column:  pos.Column,
		Message: err.Error(),
	}
}

// Diagnostics flattens an assembly error into positioned messages,
// in the order they were reported.
func Diagnostics(err error) (diags []Diagnostic) {
	if err == nil {
		return
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, each := range merr.Errors {
			diags = append(diags, Diagnostics(each)...)
		}
		return
	}

	var synErr *ErrSyntax
	var asmErr *ErrAssembly
	var encErr *ErrEncoding
	switch {
	case errors.As(err, &synErr):
		diags = append(diags, diagnostic(synErr.Pos, synErr.Err))
	case errors.As(err, &asmErr):
		diags = append(diags, diagnostic(asmErr.Pos, asmErr.Err))
	case errors.As(err, &encErr):
		diags = append(diags, diagnostic(encErr.Pos, encErr.Err))
	default:
		diags = append(diags, Diagnostic{Message: err.Error()})
	}

	return
}
