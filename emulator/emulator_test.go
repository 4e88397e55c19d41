package emulator

import (
	"encoding/binary"
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/mipsy/asm"
	"github.com/ezrec/mipsy/cpu"
)

func doLoad(t *testing.T, emu *Emulator, program ...string) (prog *cpu.Program) {
	t.Helper()

	as := &asm.Assembler{}
	prog, err := as.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)
	require.NoError(t, emu.Load(prog))

	return
}

func doRun(t *testing.T, emu *Emulator) (steps []Step) {
	t.Helper()

	for range 1000 {
		step, err := emu.Tick()
		steps = append(steps, step)
		if err != nil || step.State != STATE_RUNNING {
			return
		}
	}

	t.Fatal("program did not stop")
	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.Equal(uint32(DEFAULT_STACK_SIZE), emu.StackSize)
	assert.Equal(uint32(DEFAULT_HEAP_LIMIT), emu.HeapLimit)

	_, err := emu.Tick()
	assert.ErrorIs(err, ErrNoProgram)
	assert.ErrorIs(emu.Reset(), ErrNoProgram)
	_, err = emu.ReadMemory(cpu.DATA_BOT, 1)
	assert.ErrorIs(err, ErrNoProgram)
	assert.Equal(cpu.Regs{}, emu.Registers())
	assert.Equal(0, emu.LineNo())

	defs := maps.Collect(emu.Defines())
	assert.Equal(int64(0x7fff0000), defs["STACK_BOT"])
	assert.Equal(int64(cpu.HEAP_BOT+DEFAULT_HEAP_LIMIT), defs["HEAP_TOP"])
	assert.Equal(int64(cpu.TEXT_BOT), defs["TEXT_BOT"])
}

func TestEmulatorAddi(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"main:\taddi $t0, $zero, 5",
		"\taddi $t1, $t0, 3",
	)
	assert.Equal(STATE_LOADED, emu.State)
	assert.Equal(1, emu.LineNo())

	dc, err := emu.Next()
	assert.NoError(err)
	assert.Equal("addi $t0, $zero, 5", dc.Text())

	step, err := emu.Tick()
	assert.NoError(err)
	assert.Equal(Step{
		Addr:  cpu.TEXT_BOT,
		Code:  0x20080005,
		Text:  "addi $t0, $zero, 5",
		State: STATE_RUNNING,
	}, step)
	assert.Equal(2, emu.LineNo())

	_, err = emu.Tick()
	assert.NoError(err)

	regs := emu.Registers()
	assert.Equal(uint32(5), regs.Register[cpu.REG_T0])
	assert.Equal(uint32(8), regs.Register[cpu.REG_T1])
	assert.Equal(uint32(cpu.TEXT_BOT+8), regs.Pc)
	assert.Equal(2, emu.Ticks)

	// Running off the end of the text faults.
	step, err = emu.Tick()
	assert.Equal(STATE_FAULTED, step.State)
	assert.Equal(EVENT_FAULT, step.Event)
	assert.ErrorIs(err, cpu.ErrUnmapped)
}

func TestEmulatorPrintInt(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"main:\tli $a0, 42",
		"\tli $v0, 1",
		"\tsyscall",
		"\tli $v0, 10",
		"\tsyscall",
	)

	emu.Tick()
	emu.Tick()
	before := emu.Registers()

	step, err := emu.Tick()
	assert.NoError(err)
	assert.Equal("syscall", step.Text)
	assert.Equal([]byte("42"), step.Output)
	assert.Equal("42", string(emu.Console.Output))

	after := emu.Registers()
	assert.Equal(before.Register, after.Register)
	assert.Equal(before.Hi, after.Hi)
	assert.Equal(before.Lo, after.Lo)
	assert.Equal(before.NextPc, after.Pc)

	emu.Tick()
	step, err = emu.Tick()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, step.State)
	assert.Equal(EVENT_EXIT, step.Event)
	assert.Empty(step.Output)
	assert.Equal(int32(0), emu.ExitCode)

	_, err = emu.Tick()
	assert.ErrorIs(err, ErrHalted)
}

func TestEmulatorFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"\t.data",
		"v:\t.word 1",
		"\t.text",
		"main:\tla $t0, v",
		"\tlw $t1, 4($t0)",
	)

	steps := doRun(t, emu)
	assert.Len(steps, 3)
	assert.Equal(STATE_FAULTED, emu.State)

	var rtErr *ErrRuntime
	if assert.ErrorAs(emu.Fault, &rtErr) {
		assert.Equal(5, rtErr.LineNo)
		assert.Equal(uint32(cpu.TEXT_BOT+8), rtErr.Addr)
	}

	var memErr *cpu.ErrMemoryFault
	if assert.ErrorAs(emu.Fault, &memErr) {
		assert.Equal(uint32(cpu.DATA_BOT+4), memErr.Addr)
		assert.Equal(cpu.ACCESS_READ, memErr.Access)
		assert.ErrorIs(memErr, cpu.ErrUnmapped)
	}

	assert.Equal(uint32(cpu.TEXT_BOT+8), emu.Pc)
	assert.Equal(uint32(0), emu.Register[cpu.REG_T1])

	_, err := emu.Tick()
	assert.ErrorIs(err, ErrFaulted)

	assert.NoError(emu.Reset())
	assert.Equal(STATE_LOADED, emu.State)
	assert.Nil(emu.Fault)
	assert.Equal(uint32(cpu.TEXT_BOT), emu.Pc)
}

var delayProgram = []string{
	"main:\tli $t0, 1",
	"\tb skip",
	"\tli $t1, 2",
	"\tli $t2, 3",
	"skip:\tli $v0, 10",
	"\tsyscall",
}

func TestEmulatorDelaySlot(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := doLoad(t, emu, delayProgram...)
	skip := prog.Symbols["skip"].Addr

	emu.Tick()
	emu.Tick()
	assert.Equal(uint32(cpu.TEXT_BOT+8), emu.Pc)
	assert.Equal(skip, emu.NextPc)
	assert.True(emu.Delay)

	emu.Tick()
	assert.Equal(skip, emu.Pc)
	assert.Equal(uint32(2), emu.Register[cpu.REG_T1])

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)
	assert.Equal(uint32(0), emu.Register[cpu.REG_T2])
	assert.Equal(uint32(0), emu.Register[cpu.REG_ZERO])
}

func TestEmulatorBreakpoint(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	prog := doLoad(t, emu, delayProgram...)
	skip := prog.Symbols["skip"].Addr

	assert.ErrorIs(emu.SetBreakpoint(cpu.DATA_BOT), ErrBreakpointInvalid)
	assert.ErrorIs(emu.SetBreakpoint(skip+2), ErrBreakpointInvalid)
	assert.ErrorIs(emu.ClearBreakpoint(skip), ErrBreakpointMissing)

	assert.NoError(emu.SetBreakpoint(skip))
	assert.Equal([]uint32{skip}, emu.Breakpoints())

	steps := doRun(t, emu)
	assert.Len(steps, 3)
	last := steps[len(steps)-1]
	assert.Equal(STATE_PAUSED, last.State)
	assert.Equal(EVENT_BREAKPOINT, last.Event)
	assert.Equal(skip, emu.Pc)

	steps = doRun(t, emu)
	assert.Len(steps, 2)
	assert.Equal(STATE_HALTED, emu.State)

	// Breakpoints survive a reset.
	assert.NoError(emu.Reset())
	doRun(t, emu)
	assert.Equal(STATE_PAUSED, emu.State)

	assert.NoError(emu.ClearBreakpoint(skip))
	assert.Empty(emu.Breakpoints())
}

func TestEmulatorBreakpointEntry(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"main:\tli $t0, 1",
		"\tli $v0, 10",
		"\tsyscall",
	)
	assert.NoError(emu.SetBreakpoint(cpu.TEXT_BOT))

	step, err := emu.Tick()
	assert.NoError(err)
	assert.Equal(Step{Addr: cpu.TEXT_BOT, State: STATE_PAUSED, Event: EVENT_BREAKPOINT}, step)
	assert.Equal(0, emu.Ticks)
	assert.Equal(uint32(cpu.TEXT_BOT), emu.Pc)
	assert.Equal(uint32(0), emu.Register[cpu.REG_T0])

	step, err = emu.Tick()
	assert.NoError(err)
	assert.Equal("addiu $t0, $zero, 1", step.Text)
	assert.Equal(STATE_RUNNING, step.State)
	assert.Equal(uint32(1), emu.Register[cpu.REG_T0])

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)

	assert.NoError(emu.Reset())
	step, err = emu.Tick()
	assert.NoError(err)
	assert.Equal(EVENT_BREAKPOINT, step.Event)
	assert.Equal(0, emu.Ticks)
}

func TestEmulatorBreak(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"main:\tli $t0, 1",
		"\tbreak",
		"\tli $t0, 2",
		"\tli $v0, 17",
		"\tli $a0, 3",
		"\tsyscall",
	)

	steps := doRun(t, emu)
	assert.Len(steps, 2)
	assert.Equal(EVENT_BREAK, steps[1].Event)
	assert.Equal(STATE_PAUSED, emu.State)
	assert.Equal(uint32(1), emu.Register[cpu.REG_T0])

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)
	assert.Equal(uint32(2), emu.Register[cpu.REG_T0])
	assert.Equal(int32(3), emu.ExitCode)
}

func TestEmulatorWatch(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"\t.data",
		"v:\t.word 0",
		"\t.text",
		"main:\tla $t0, v",
		"\tli $t1, 5",
		"\tsw $t1, 0($t0)",
		"\tli $v0, 10",
		"\tsyscall",
	)

	assert.ErrorIs(emu.WatchRegister(cpu.REG_ZERO), ErrWatchpointInvalid)
	assert.ErrorIs(emu.WatchMemory(cpu.TEXT_BOT), ErrWatchpointInvalid)
	assert.ErrorIs(emu.UnwatchRegister(cpu.REG_T2), ErrWatchpointMissing)
	assert.ErrorIs(emu.UnwatchMemory(cpu.DATA_BOT), ErrWatchpointMissing)
	assert.NoError(emu.WatchMemory(cpu.HEAP_BOT))
	assert.NoError(emu.UnwatchMemory(cpu.HEAP_BOT))

	assert.NoError(emu.WatchRegister(cpu.REG_T1))
	assert.NoError(emu.WatchMemory(cpu.DATA_BOT))

	regs, addrs := emu.Watches()
	assert.Equal([]cpu.Reg{cpu.REG_T1}, regs)
	assert.Equal([]uint32{cpu.DATA_BOT}, addrs)

	steps := doRun(t, emu)
	assert.Len(steps, 3)
	assert.Equal(EVENT_WATCH, steps[2].Event)
	assert.Equal(uint32(5), emu.Register[cpu.REG_T1])

	steps = doRun(t, emu)
	assert.Len(steps, 1)
	assert.Equal(EVENT_WATCH, steps[0].Event)
	assert.Equal("sw $t1, 0($t0)", steps[0].Text)

	steps = doRun(t, emu)
	assert.Len(steps, 2)
	assert.Equal(STATE_HALTED, emu.State)

	// Journal is not retained without History.
	assert.Equal(0, emu.Journal().Len())
}

var readIntProgram = []string{
	"main:\tli $v0, 5",
	"\tsyscall",
	"\tmove $t0, $v0",
	"\tli $v0, 10",
	"\tsyscall",
}

func TestEmulatorInput(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Interactive = true
	doLoad(t, emu, readIntProgram...)

	emu.Tick()
	regs := emu.Registers()

	step, err := emu.Tick()
	assert.ErrorIs(err, cpu.ErrInputRequired)
	assert.Equal(STATE_RUNNING, step.State)
	assert.Equal(regs, emu.Registers())
	assert.Equal(STATE_RUNNING, emu.State)

	emu.Console.Feed([]byte("-7\n"))
	_, err = emu.Tick()
	assert.NoError(err)

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)
	assert.Equal(uint32(0xfffffff9), emu.Register[cpu.REG_T0])
	assert.Empty(emu.Console.Pending())
}

func TestEmulatorInputExhausted(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu, readIntProgram...)

	doRun(t, emu)
	assert.Equal(STATE_FAULTED, emu.State)
	assert.ErrorIs(emu.Fault, cpu.ErrInputExhausted)

	var sysErr *cpu.ErrSyscall
	if assert.True(errors.As(emu.Fault, &sysErr)) {
		assert.Equal(uint32(cpu.SYSCALL_READ_INT), sysErr.Service)
	}
}

func TestEmulatorArgs(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Args = []string{"prog", "hi"}
	doLoad(t, emu, "main:\tnop")

	regs := emu.Registers()
	assert.Equal(uint32(2), regs.Register[cpu.REG_A0])
	assert.Equal(uint32(0x7fffffec), regs.Register[cpu.REG_A1])
	assert.Equal(uint32(0x7fffffe8), regs.Register[cpu.REG_SP])

	argv, err := emu.ReadMemory(0x7fffffec, 12)
	assert.NoError(err)
	assert.Equal(uint32(0x7ffffff8), binary.LittleEndian.Uint32(argv[0:]))
	assert.Equal(uint32(0x7ffffffd), binary.LittleEndian.Uint32(argv[4:]))
	assert.Equal(uint32(0), binary.LittleEndian.Uint32(argv[8:]))

	text, err := emu.Memory.ReadString(0x7ffffffd)
	assert.NoError(err)
	assert.Equal("hi", string(text))

	emu.StackSize = 16
	assert.ErrorIs(emu.Reset(), ErrArgsTooLarge)
}

func TestEmulatorReadMemory(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	doLoad(t, emu,
		"\t.data",
		"v:\t.byte 1, 2, 3",
		"\t.text",
		"main:\tnop",
	)

	data, err := emu.ReadMemory(cpu.DATA_BOT, 3)
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3}, data)

	data[0] = 9
	data, _ = emu.ReadMemory(cpu.DATA_BOT, 1)
	assert.Equal([]byte{1}, data)

	_, err = emu.ReadMemory(cpu.DATA_BOT+2, 2)
	assert.ErrorIs(err, cpu.ErrUnmapped)
}

func TestEmulatorCheckpoint(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.History = true
	doLoad(t, emu,
		"\t.data",
		"v:\t.word 7",
		"\t.text",
		"main:\tla $t0, v",
		"\tli $t1, 9",
		"\tsw $t1, 0($t0)",
		"\tli $a0, 65",
		"\tli $v0, 11",
		"\tsyscall",
		"\tli $a0, 64",
		"\tli $v0, 9",
		"\tsyscall",
		"\tsw $t1, 0($v0)",
		"\tli $v0, 10",
		"\tsyscall",
	)

	start := emu.Checkpoint()
	assert.Equal(uint32(cpu.HEAP_BOT), start.Break)

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)
	assert.Equal("A", string(emu.Console.Output))
	assert.Equal(uint32(cpu.HEAP_BOT+64), emu.Memory.Break())

	data, _ := emu.ReadMemory(cpu.DATA_BOT, 4)
	assert.Equal([]byte{9, 0, 0, 0}, data)
	data, _ = emu.ReadMemory(cpu.HEAP_BOT, 4)
	assert.Equal([]byte{9, 0, 0, 0}, data)
	assert.Equal(8, emu.Journal().Len())

	assert.NoError(emu.Restore(start))
	assert.Equal(start.Regs, emu.Registers())
	assert.Equal(STATE_LOADED, emu.State)
	assert.Equal(0, emu.Ticks)
	assert.Empty(emu.Console.Output)
	assert.Equal(uint32(cpu.HEAP_BOT), emu.Memory.Break())
	data, _ = emu.ReadMemory(cpu.DATA_BOT, 4)
	assert.Equal([]byte{7, 0, 0, 0}, data)
	_, err := emu.ReadMemory(cpu.HEAP_BOT, 4)
	assert.Error(err)

	doRun(t, emu)
	assert.Equal(STATE_HALTED, emu.State)
	assert.Equal("A", string(emu.Console.Output))

	bad := start
	bad.Mark = 1000
	assert.ErrorIs(emu.Restore(bad), ErrCheckpointInvalid)

	// Checkpoints older than the compacted journal cannot be restored.
	emu.Journal().Compact(4)
	assert.Equal(4, emu.Journal().Len())
	assert.ErrorIs(emu.Restore(start), ErrCheckpointInvalid)
}
