package asm

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
)

func TestDiagnostics(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(Diagnostics(nil))

	var merr *multierror.Error
	merr = multierror.Append(merr,
		&ErrSyntax{Pos: Pos{"a.s", 1, 5}, Err: ErrRegisterInvalid},
		&ErrAssembly{Pos: Pos{"", 2, 1}, Err: ErrLabelMissing("x")},
	)

	diags := Diagnostics(merr)
	assert.Equal([]Diagnostic{
		{File: "a.s", Line: 1, Column: 5, Message: ErrRegisterInvalid.Error()},
		{Line: 2, Column: 1, Message: ErrLabelMissing("x").Error()},
	}, diags)

	assert.Equal("a.s:1:5: "+ErrRegisterInvalid.Error(), diags[0].String())
	assert.Equal("2:1: "+ErrLabelMissing("x").Error(), diags[1].String())

	other := Diagnostics(errors.New("read failed"))
	assert.Equal([]Diagnostic{{Message: "read failed"}}, other)
	assert.Equal("read failed", other[0].String())
}
