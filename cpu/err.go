package cpu

import (
	"errors"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrDelaySlot      = errors.New(f("branch in delay slot"))
	ErrReserved       = errors.New(f("reserved instruction"))
	ErrOverflow       = errors.New(f("arithmetic overflow"))
	ErrDivideByZero   = errors.New(f("division by zero"))
	ErrInputRequired  = errors.New(f("input required"))
	ErrInputExhausted = errors.New(f("input exhausted"))
	ErrNoConsole      = errors.New(f("no console attached"))
	ErrMisaligned     = errors.New(f("misaligned access"))
	ErrUnmapped       = errors.New(f("unmapped address"))
	ErrPermission     = errors.New(f("access not permitted"))
	ErrHeapExhausted  = errors.New(f("heap exhausted"))
	ErrHeapNegative   = errors.New(f("negative sbrk"))
	ErrSyscallUnknown = errors.New(f("unknown syscall"))
	ErrSyscallLength  = errors.New(f("invalid buffer length"))
	ErrSyscallInput   = errors.New(f("invalid input"))
)

// ErrDecode is a word with no defined instruction encoding.
type ErrDecode Code

func (err ErrDecode) Error() string {
	return f("undefined instruction 0x%08x", uint32(err))
}

func (err ErrDecode) Is(target error) (ok bool) {
	_, ok = target.(ErrDecode)
	return
}

// ErrMemoryFault is an access outside of a mapped region, or with the wrong mode.
type ErrMemoryFault struct {
	Addr   uint32
	Access Access
	Err    error
}

func (err *ErrMemoryFault) Error() string {
	return f("memory fault: %v at 0x%08x: %v", err.Access, err.Addr, err.Err)
}

func (err *ErrMemoryFault) Unwrap() error {
	return err.Err
}

// ErrIllegalInstruction is an instruction that cannot execute.
type ErrIllegalInstruction struct {
	Addr uint32
	Code Code
	Err  error
}

func (err *ErrIllegalInstruction) Error() string {
	return f("illegal instruction 0x%08x at 0x%08x: %v", uint32(err.Code), err.Addr, err.Err)
}

func (err *ErrIllegalInstruction) Unwrap() error {
	return err.Err
}

// ErrArithmeticTrap is a trapping arithmetic condition.
type ErrArithmeticTrap struct {
	Addr uint32
	Err  error
}

func (err *ErrArithmeticTrap) Error() string {
	return f("arithmetic trap at 0x%08x: %v", err.Addr, err.Err)
}

func (err *ErrArithmeticTrap) Unwrap() error {
	return err.Err
}

// ErrSyscall is a syscall invoked with an invalid service or arguments.
type ErrSyscall struct {
	Service uint32
	Err     error
}

func (err *ErrSyscall) Error() string {
	return f("syscall %d: %v", err.Service, err.Err)
}

func (err *ErrSyscall) Unwrap() error {
	return err.Err
}
