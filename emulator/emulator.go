// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/internal"
	"github.com/ezrec/mipsy/io"
)

const (
	DEFAULT_STACK_SIZE = 0x0001_0000 // Stack bytes below STACK_TOP.
	DEFAULT_HEAP_LIMIT = 0x0100_0000 // Maximum heap bytes above HEAP_BOT.
)

// State of the machine.
type State int

const (
	STATE_LOADED  = State(iota) // Program loaded, nothing executed.
	STATE_RUNNING               // Executing.
	STATE_PAUSED                // Stopped at a breakpoint, watchpoint or break.
	STATE_HALTED                // Program exited.
	STATE_FAULTED               // Program faulted; see Emulator.Fault.
)

var stateNames = [...]string{
	STATE_LOADED:  "loaded",
	STATE_RUNNING: "running",
	STATE_PAUSED:  "paused",
	STATE_HALTED:  "halted",
	STATE_FAULTED: "faulted",
}

func (st State) String() string {
	if int(st) < len(stateNames) {
		return stateNames[st]
	}
	return fmt.Sprintf("State(%d)", int(st))
}

// Event is the reason a step stopped the machine.
type Event int

const (
	EVENT_NONE       = Event(iota)
	EVENT_BREAKPOINT // Next instruction is a breakpoint.
	EVENT_BREAK      // A break instruction executed.
	EVENT_WATCH      // A watched location was written.
	EVENT_EXIT       // An exit syscall executed.
	EVENT_FAULT      // The instruction faulted.
)

// Step is the outcome of one executed instruction.
type Step struct {
	Addr   uint32   // Address of the instruction.
	Code   cpu.Code // Instruction word.
	Text   string   // Decompiled instruction.
	State  State    // State after the instruction.
	Event  Event    // Why the machine stopped, if it did.
	Output []byte   // Console output produced by the instruction.
}

// Emulator state. CPU + memory + console.
type Emulator struct {
	Verbose  bool               // If set, enables verbose logging.
	Logger   logrus.FieldLogger // Verbose log sink, the standard logger if nil.
	*cpu.Cpu                    // Reference to the CPU simulation.
	Program  *cpu.Program       // Reference to the currently loaded program.

	Console     io.Console // Program I/O buffer.
	Interactive bool       // If set, empty console input pauses instead of faulting.
	StackSize   uint32     // Stack size in bytes.
	HeapLimit   uint32     // Maximum heap size in bytes.
	Args        []string   // Program arguments, passed as argc/argv.
	History     bool       // If set, the memory journal is retained for Restore.

	State State // Current state.
	Fault error // Fault that stopped the program, if any.

	journal     cpu.Journal
	breakpoints map[uint32]bool
	watchRegs   map[cpu.Reg]bool
	watchAddrs  map[uint32]bool
}

// NewEmulator creates a new emulator, with default memory sizes.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		StackSize: DEFAULT_STACK_SIZE,
		HeapLimit: DEFAULT_HEAP_LIMIT,
	}

	return
}

func (emu *Emulator) log() logrus.FieldLogger {
	if emu.Logger == nil {
		return logrus.StandardLogger()
	}
	return emu.Logger
}

// Defines returns the memory map constants that depend on the emulator
// configuration, followed by the fixed memory map.
func (emu *Emulator) Defines() iter.Seq2[string, int64] {
	return internal.IterSeq2Concat(maps.All(map[string]int64{
		"STACK_BOT": int64(cpu.STACK_TOP) + 1 - int64(emu.StackSize),
		"HEAP_TOP":  int64(cpu.HEAP_BOT) + int64(emu.HeapLimit),
	}), cpu.Defines())
}

// Load a program and reset to its entry point.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	emu.Program = prog
	return emu.Reset()
}

// Reset the machine to the freshly loaded program state.
// Console input and output are cleared. Breakpoints and watchpoints are kept.
func (emu *Emulator) Reset() (err error) {
	prog := emu.Program
	if prog == nil {
		err = ErrNoProgram
		return
	}

	mem := cpu.NewMemory(prog.Binary(), prog.Data, emu.StackSize, emu.HeapLimit)
	emu.Cpu = cpu.NewCpu(mem)
	emu.Cpu.Console = &emu.Console
	emu.Cpu.Reset(prog.Entry)

	emu.Console.Reset()

	err = emu.includeArgs()
	if err != nil {
		return
	}

	emu.journal = cpu.Journal{}
	mem.Journal = &emu.journal

	emu.State = STATE_LOADED
	emu.Fault = nil

	if emu.Verbose {
		emu.log().WithFields(logrus.Fields{
			"entry": fmt.Sprintf("0x%08x", prog.Entry),
			"args":  len(emu.Args),
		}).Info("emulator: reset")
	}

	return
}

// includeArgs places the argument strings and a NULL terminated argv
// array at the top of the stack, with $sp below them.
func (emu *Emulator) includeArgs() (err error) {
	if len(emu.Args) == 0 {
		return
	}

	var strs []byte
	for _, arg := range emu.Args {
		strs = append(strs, arg...)
		strs = append(strs, 0)
	}

	size := uint64(len(strs)+3)&^3 + 4*uint64(len(emu.Args)+1) + 4
	if size > uint64(emu.StackSize) {
		err = ErrArgsTooLarge
		return
	}

	mem := emu.Memory
	strAddr := (uint32(cpu.STACK_TOP) + 1 - uint32(len(strs))) &^ 3
	argv := strAddr - 4*uint32(len(emu.Args)+1)

	err = mem.StoreBytes(strAddr, strs)
	if err != nil {
		return
	}

	addr := strAddr
	for n, arg := range emu.Args {
		err = mem.Store(argv+4*uint32(n), 4, addr)
		if err != nil {
			return
		}
		addr += uint32(len(arg)) + 1
	}

	emu.Register[cpu.REG_A0] = uint32(len(emu.Args))
	emu.Register[cpu.REG_A1] = argv
	emu.Register[cpu.REG_SP] = argv - 4

	return
}

// LineNo returns the source line of the instruction at the program counter.
func (emu *Emulator) LineNo() int {
	if emu.Cpu == nil {
		return 0
	}
	return emu.lineNo(emu.Pc)
}

func (emu *Emulator) lineNo(addr uint32) int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(addr)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// Registers returns a copy of the register file.
func (emu *Emulator) Registers() (regs cpu.Regs) {
	if emu.Cpu != nil {
		regs = emu.Cpu.Regs
	}
	return
}

// ReadMemory returns a copy of size bytes at addr.
func (emu *Emulator) ReadMemory(addr uint32, size int) (data []byte, err error) {
	if emu.Cpu == nil {
		err = ErrNoProgram
		return
	}

	return emu.Memory.ReadBytes(addr, size)
}

// Next decompiles the instruction at the program counter.
func (emu *Emulator) Next() (dc cpu.Decompiled, err error) {
	if emu.Cpu == nil {
		err = ErrNoProgram
		return
	}

	code, err := emu.Fetch()
	if err != nil {
		return
	}

	dc = emu.Program.Decompile(emu.Pc, code)
	return
}

// Tick executes a single instruction.
//
// In interactive mode a read from an empty console returns
// cpu.ErrInputRequired and leaves the machine unchanged; feed the
// console and Tick again.
//
// A breakpoint on the entry instruction pauses a freshly loaded machine
// without executing anything.
func (emu *Emulator) Tick() (step Step, err error) {
	switch {
	case emu.Cpu == nil:
		err = ErrNoProgram
		return
	case emu.State == STATE_HALTED:
		err = ErrHalted
		return
	case emu.State == STATE_FAULTED:
		err = ErrFaulted
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Logger = emu.Logger
	emu.Cpu.Interactive = emu.Interactive

	pc := emu.Pc
	if emu.State == STATE_LOADED && emu.breakpoints[pc] {
		emu.setState(STATE_PAUSED)
		step = Step{Addr: pc, State: emu.State, Event: EVENT_BREAKPOINT}
		return
	}

	before := emu.Cpu.Regs
	mark := emu.journal.Mark()
	out, _ := emu.Console.Cursor()

	step.Addr = pc
	if code, ferr := emu.Fetch(); ferr == nil {
		step.Code = code
		dc := emu.Program.Decompile(pc, code)
		step.Text = dc.Text()
	}

	trap, err := emu.Cpu.Step()
	if errors.Is(err, cpu.ErrInputRequired) {
		step.State = emu.State
		return
	}

	defer func() {
		if !emu.History {
			emu.journal.Truncate(mark)
		}
	}()

	step.Output = slices.Clone(emu.Console.Output[out:])

	if err != nil {
		err = &ErrRuntime{Addr: pc, LineNo: emu.lineNo(pc), Err: err}
		emu.Fault = err
		emu.setState(STATE_FAULTED)
		step.Event = EVENT_FAULT
		step.State = emu.State
		return
	}

	emu.setState(STATE_RUNNING)

	switch {
	case trap == cpu.TRAP_EXIT:
		emu.setState(STATE_HALTED)
		step.Event = EVENT_EXIT
	case trap == cpu.TRAP_BREAK:
		emu.setState(STATE_PAUSED)
		step.Event = EVENT_BREAK
	case emu.watched(&before, mark):
		emu.setState(STATE_PAUSED)
		step.Event = EVENT_WATCH
	case emu.breakpoints[emu.Pc]:
		emu.setState(STATE_PAUSED)
		step.Event = EVENT_BREAKPOINT
	}
	step.State = emu.State

	return
}

func (emu *Emulator) setState(state State) {
	if emu.Verbose && state != emu.State {
		emu.log().WithFields(logrus.Fields{
			"pc":    fmt.Sprintf("0x%08x", emu.Pc),
			"from":  emu.State.String(),
			"state": state.String(),
		}).Info("emulator: state")
	}
	emu.State = state
}

// Checkpoint is the machine state at one point in execution.
// Memory is captured as a mark into the store journal.
type Checkpoint struct {
	Regs     cpu.Regs
	Break    uint32 // Heap break.
	Mark     int    // Journal mark.
	Output   int    // Console output length.
	Input    int    // Console input cursor.
	State    State
	Fault    error
	Ticks    int
	ExitCode int32
}

// Checkpoint captures the current machine state.
func (emu *Emulator) Checkpoint() (cp Checkpoint) {
	cp = Checkpoint{
		Regs:     emu.Cpu.Regs,
		Break:    emu.Memory.Break(),
		Mark:     emu.journal.Mark(),
		State:    emu.State,
		Fault:    emu.Fault,
		Ticks:    emu.Cpu.Ticks,
		ExitCode: emu.Cpu.ExitCode,
	}
	cp.Output, cp.Input = emu.Console.Cursor()

	return
}

// Restore returns the machine to a checkpoint taken since the last Reset,
// reverting every journaled store made after it.
func (emu *Emulator) Restore(cp Checkpoint) (err error) {
	if emu.Cpu == nil {
		err = ErrNoProgram
		return
	}
	if cp.Mark > emu.journal.Mark() || cp.Mark < emu.journal.Base {
		err = ErrCheckpointInvalid
		return
	}

	err = emu.Console.Rewind(cp.Output, cp.Input)
	if err != nil {
		err = errors.Join(ErrCheckpointInvalid, err)
		return
	}

	emu.Memory.Rollback(cp.Mark)
	emu.Memory.SetBreak(cp.Break)

	emu.Cpu.Regs = cp.Regs
	emu.Cpu.Ticks = cp.Ticks
	emu.Cpu.ExitCode = cp.ExitCode
	emu.State = cp.State
	emu.Fault = cp.Fault

	return
}

// Journal returns the store journal, for history compaction.
func (emu *Emulator) Journal() *cpu.Journal {
	return &emu.journal
}

// SetBreakpoint pauses the machine before executing the instruction at addr.
func (emu *Emulator) SetBreakpoint(addr uint32) (err error) {
	if emu.Cpu == nil {
		err = ErrNoProgram
		return
	}
	if addr%4 != 0 || emu.Memory.Check(addr, 4, cpu.ACCESS_EXECUTE) != nil {
		err = ErrBreakpointInvalid
		return
	}

	if emu.breakpoints == nil {
		emu.breakpoints = map[uint32]bool{}
	}
	emu.breakpoints[addr] = true

	return
}

// ClearBreakpoint removes the breakpoint at addr.
func (emu *Emulator) ClearBreakpoint(addr uint32) (err error) {
	if !emu.breakpoints[addr] {
		err = ErrBreakpointMissing
		return
	}

	delete(emu.breakpoints, addr)
	return
}

// Breakpoints returns the breakpoint addresses, in order.
func (emu *Emulator) Breakpoints() []uint32 {
	return slices.Sorted(maps.Keys(emu.breakpoints))
}

// WatchRegister pauses the machine after an instruction changes reg.
func (emu *Emulator) WatchRegister(reg cpu.Reg) (err error) {
	if reg == cpu.REG_ZERO || int(reg) >= len(cpu.RegisterNames) {
		err = ErrWatchpointInvalid
		return
	}

	if emu.watchRegs == nil {
		emu.watchRegs = map[cpu.Reg]bool{}
	}
	emu.watchRegs[reg] = true

	return
}

// WatchMemory pauses the machine after an instruction stores to addr.
func (emu *Emulator) WatchMemory(addr uint32) (err error) {
	if emu.Cpu == nil {
		err = ErrNoProgram
		return
	}
	writable := emu.Memory.Check(addr, 1, cpu.ACCESS_WRITE) == nil
	heap := addr >= cpu.HEAP_BOT && uint64(addr) < uint64(cpu.HEAP_BOT)+uint64(emu.HeapLimit)
	if !writable && !heap {
		err = ErrWatchpointInvalid
		return
	}

	if emu.watchAddrs == nil {
		emu.watchAddrs = map[uint32]bool{}
	}
	emu.watchAddrs[addr] = true

	return
}

// UnwatchRegister removes a register watchpoint.
func (emu *Emulator) UnwatchRegister(reg cpu.Reg) (err error) {
	if !emu.watchRegs[reg] {
		err = ErrWatchpointMissing
		return
	}

	delete(emu.watchRegs, reg)
	return
}

// UnwatchMemory removes a memory watchpoint.
func (emu *Emulator) UnwatchMemory(addr uint32) (err error) {
	if !emu.watchAddrs[addr] {
		err = ErrWatchpointMissing
		return
	}

	delete(emu.watchAddrs, addr)
	return
}

// Watches returns the watched registers and memory addresses, in order.
func (emu *Emulator) Watches() (regs []cpu.Reg, addrs []uint32) {
	regs = slices.Sorted(maps.Keys(emu.watchRegs))
	addrs = slices.Sorted(maps.Keys(emu.watchAddrs))
	return
}

// watched is true if the last instruction wrote a watched location.
func (emu *Emulator) watched(before *cpu.Regs, mark int) bool {
	for reg := range emu.watchRegs {
		if before.Register[reg] != emu.Register[reg] {
			return true
		}
	}

	for _, diff := range emu.journal.Since(mark) {
		if emu.watchAddrs[diff.Addr] {
			return true
		}
	}

	return false
}
