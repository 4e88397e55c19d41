package cpu

import (
	"bytes"
	"strconv"
)

// Syscall services, selected by $v0.
const (
	SYSCALL_PRINT_INT    = 1
	SYSCALL_PRINT_STRING = 4
	SYSCALL_READ_INT     = 5
	SYSCALL_READ_STRING  = 8
	SYSCALL_SBRK         = 9
	SYSCALL_EXIT         = 10
	SYSCALL_PRINT_CHAR   = 11
	SYSCALL_READ_CHAR    = 12
	SYSCALL_EXIT2        = 17
)

// SyscallNames maps services to their conventional names.
var SyscallNames = map[uint32]string{
	SYSCALL_PRINT_INT:    "print_int",
	SYSCALL_PRINT_STRING: "print_string",
	SYSCALL_READ_INT:     "read_int",
	SYSCALL_READ_STRING:  "read_string",
	SYSCALL_SBRK:         "sbrk",
	SYSCALL_EXIT:         "exit",
	SYSCALL_PRINT_CHAR:   "print_char",
	SYSCALL_READ_CHAR:    "read_char",
	SYSCALL_EXIT2:        "exit2",
}

// Console is the program I/O buffer used by syscalls.
type Console interface {
	// Write appends program output.
	Write(p []byte) (n int, err error)
	// PeekLine returns pending input up to and including the next
	// newline, or all pending input if there is no newline.
	PeekLine() []byte
	// Consume advances the input cursor.
	Consume(n int)
}

// syscall dispatches on $v0. Only $v0 and memory are ever modified.
func (cpu *Cpu) syscall(next *Regs) (trap Trap, err error) {
	service := cpu.Register[REG_V0]
	a0 := cpu.Register[REG_A0]
	a1 := cpu.Register[REG_A1]

	fail := func(e error) (Trap, error) {
		return TRAP_NONE, &ErrSyscall{Service: service, Err: e}
	}

	con := cpu.Console
	if con == nil {
		switch service {
		case SYSCALL_SBRK, SYSCALL_EXIT, SYSCALL_EXIT2:
		default:
			return fail(ErrNoConsole)
		}
	}

	switch service {
	case SYSCALL_PRINT_INT:
		con.Write(strconv.AppendInt(nil, int64(int32(a0)), 10))
	case SYSCALL_PRINT_STRING:
		var text []byte
		text, err = cpu.Memory.ReadString(a0)
		if err != nil {
			return fail(err)
		}
		con.Write(text)
	case SYSCALL_PRINT_CHAR:
		con.Write([]byte{byte(a0)})
	case SYSCALL_READ_INT:
		line := con.PeekLine()
		if len(line) == 0 {
			return cpu.needInput(service)
		}
		var value int64
		value, err = strconv.ParseInt(string(bytes.TrimSpace(line)), 10, 32)
		if err != nil {
			return fail(ErrSyscallInput)
		}
		con.Consume(len(line))
		next.set(REG_V0, uint32(int32(value)))
	case SYSCALL_READ_CHAR:
		line := con.PeekLine()
		if len(line) == 0 {
			return cpu.needInput(service)
		}
		con.Consume(1)
		next.set(REG_V0, uint32(line[0]))
	case SYSCALL_READ_STRING:
		size := int32(a1)
		if size < 1 {
			return fail(ErrSyscallLength)
		}
		err = cpu.Memory.Check(a0, int(size), ACCESS_WRITE)
		if err != nil {
			return fail(err)
		}
		var line []byte
		if size > 1 {
			line = con.PeekLine()
			if len(line) == 0 {
				return cpu.needInput(service)
			}
			line = line[:min(len(line), int(size-1))]
		}
		err = cpu.Memory.StoreBytes(a0, append(append([]byte(nil), line...), 0))
		if err != nil {
			return fail(err)
		}
		con.Consume(len(line))
	case SYSCALL_SBRK:
		var brk uint32
		brk, err = cpu.Memory.Sbrk(int32(a0))
		if err != nil {
			return fail(err)
		}
		next.set(REG_V0, brk)
	case SYSCALL_EXIT:
		cpu.ExitCode = 0
		trap = TRAP_EXIT
	case SYSCALL_EXIT2:
		cpu.ExitCode = int32(a0)
		trap = TRAP_EXIT
	default:
		return fail(ErrSyscallUnknown)
	}

	return
}

// needInput reports an empty console.
func (cpu *Cpu) needInput(service uint32) (trap Trap, err error) {
	if cpu.Interactive {
		err = ErrInputRequired
		return
	}

	err = &ErrSyscall{Service: service, Err: ErrInputExhausted}
	return
}
