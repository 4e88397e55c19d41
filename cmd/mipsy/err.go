package main

import (
	"errors"
	"fmt"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	ErrAssemblyFailed  = errors.New(f("assembly failed"))
	ErrCommandUnknown  = errors.New(f("unknown command, try 'help'"))
	ErrCommandUsage    = errors.New(f("wrong arguments"))
	ErrLocationInvalid = errors.New(f("not a label or address"))
	ErrCountInvalid    = errors.New(f("not a positive count"))
	ErrRegisterInvalid = errors.New(f("not a register"))
)

// exitCode is the exit status requested by the emulated program.
type exitCode int32

func (err exitCode) Error() string {
	return fmt.Sprintf("exit %d", int32(err))
}
