package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/debugger"
	"github.com/ezrec/mipsy/emulator"
)

const DEFAULT_DUMP_SIZE = 64

// session executes debugger command lines.
type session struct {
	dbg *debugger.Debugger
	out io.Writer
	ctx context.Context
}

type sessionCommand struct {
	usage string
	help  string
	exec  func(s *session, args []string) (err error)
}

var sessionCommands map[string]*sessionCommand

var sessionAliases = map[string]string{
	"s":    "step",
	"b":    "break",
	"c":    "run",
	"r":    "regs",
	"q":    "quit",
	"exit": "quit",
}

func init() {
	sessionCommands = map[string]*sessionCommand{
		"step":    {"step [n]", "execute n instructions", (*session).step},
		"back":    {"back [n]", "undo n instructions", (*session).back},
		"run":     {"run", "run until a breakpoint, watchpoint, exit or fault", (*session).run},
		"syscall": {"syscall", "run until the next syscall", (*session).syscall},
		"break":   {"break [loc]", "set a breakpoint, or list them", (*session).setBreak},
		"delete":  {"delete loc", "remove a breakpoint", (*session).deleteBreak},
		"watch":   {"watch [reg|loc]", "watch a register or memory byte, or list them", (*session).watch},
		"unwatch": {"unwatch reg|loc", "remove a watchpoint", (*session).unwatch},
		"regs":    {"regs", "show the registers", (*session).regs},
		"mem":     {"mem loc [n]", "dump n bytes of memory", (*session).mem},
		"dis":     {"dis", "show the program listing", (*session).dis},
		"labels":  {"labels", "show the symbol table", (*session).labels},
		"input":   {"input text...", "append a line to the console input", (*session).input},
		"output":  {"output", "show the console output so far", (*session).output},
		"reset":   {"reset", "restart the program", (*session).reset},
		"help":    {"help", "show this help", (*session).help},
		"quit":    {"quit", "leave the debugger", nil},
	}
}

// Exec runs one command line.
func (s *session) Exec(line string) (quit bool, err error) {
	words, err := shlex.Split(line)
	if err != nil {
		return
	}
	if len(words) == 0 {
		return
	}

	name := words[0]
	if alias, ok := sessionAliases[name]; ok {
		name = alias
	}

	cmd, ok := sessionCommands[name]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrCommandUnknown, words[0])
		return
	}

	if cmd.exec == nil {
		quit = true
		return
	}

	err = cmd.exec(s, words[1:])
	return
}

// location resolves a label or a numeric address.
func (s *session) location(text string) (addr uint32, err error) {
	if prog := s.dbg.Program; prog != nil {
		if sym, ok := prog.Symbols[text]; ok {
			addr = sym.Addr
			return
		}
	}

	value, err := strconv.ParseUint(text, 0, 32)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrLocationInvalid, text)
		return
	}

	addr = uint32(value)
	return
}

func count(args []string) (n int, err error) {
	switch len(args) {
	case 0:
		n = 1
	case 1:
		n, err = strconv.Atoi(args[0])
		if err != nil || n < 1 {
			err = fmt.Errorf("%w: %s", ErrCountInvalid, args[0])
		}
	default:
		err = ErrCommandUsage
	}

	return
}

// where prints the next instruction, or why there is none.
func (s *session) where() {
	emu := s.dbg.Emulator

	switch emu.State {
	case emulator.STATE_HALTED:
		fmt.Fprintf(s.out, "exited with code %d\n", emu.ExitCode)
		return
	case emulator.STATE_FAULTED:
		fmt.Fprintf(s.out, "faulted: %v\n", emu.Fault)
		return
	}

	dc, err := emu.Next()
	if err != nil {
		fmt.Fprintf(s.out, "0x%08x: %v\n", emu.Pc, err)
		return
	}
	dc.Labels = nil
	fmt.Fprintf(s.out, "=> %s\n", dc.String())
}

// report summarizes a run of steps.
func (s *session) report(steps int, last emulator.Step, err error) error {
	var rtErr *emulator.ErrRuntime

	switch {
	case errors.Is(err, cpu.ErrInputRequired):
		fmt.Fprintln(s.out, "waiting for console input, use 'input'")
		return nil
	case errors.As(err, &rtErr):
		// Reported by where().
		err = nil
	case err != nil:
		if steps == 0 {
			return err
		}
	}

	switch last.Event {
	case emulator.EVENT_BREAKPOINT:
		fmt.Fprintf(s.out, "breakpoint at 0x%08x\n", s.dbg.Pc)
	case emulator.EVENT_BREAK:
		fmt.Fprintf(s.out, "break at 0x%08x\n", last.Addr)
	case emulator.EVENT_WATCH:
		fmt.Fprintf(s.out, "watchpoint hit by 0x%08x: %s\n", last.Addr, last.Text)
	}

	fmt.Fprintf(s.out, "%d steps\n", steps)
	s.where()

	return err
}

func (s *session) step(args []string) (err error) {
	n, err := count(args)
	if err != nil {
		return
	}
	if s.dbg.Cpu == nil {
		return emulator.ErrNoProgram
	}

	var steps int
	var last emulator.Step
	for range n {
		ticks := s.dbg.Ticks
		last, err = s.dbg.StepForward()
		var rtErr *emulator.ErrRuntime
		if s.dbg.Ticks != ticks || errors.As(err, &rtErr) {
			steps++
		}
		if err != nil || last.State != emulator.STATE_RUNNING {
			break
		}
	}

	return s.report(steps, last, err)
}

func (s *session) back(args []string) (err error) {
	n, err := count(args)
	if err != nil {
		return
	}

	for range n {
		_, err = s.dbg.StepBackward()
		if err != nil {
			return
		}
	}

	s.where()
	return
}

func (s *session) run(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}

	return s.report(s.dbg.Run(s.ctx))
}

func (s *session) syscall(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}

	return s.report(s.dbg.RunToSyscall(s.ctx))
}

func (s *session) setBreak(args []string) (err error) {
	switch len(args) {
	case 0:
		for _, addr := range s.dbg.Breakpoints() {
			fmt.Fprintf(s.out, "0x%08x %s\n", addr, s.labelsAt(addr))
		}
		return
	case 1:
	default:
		return ErrCommandUsage
	}

	addr, err := s.location(args[0])
	if err != nil {
		return
	}

	return s.dbg.SetBreakpoint(addr)
}

func (s *session) deleteBreak(args []string) (err error) {
	if len(args) != 1 {
		return ErrCommandUsage
	}

	addr, err := s.location(args[0])
	if err != nil {
		return
	}

	return s.dbg.ClearBreakpoint(addr)
}

func (s *session) watch(args []string) (err error) {
	switch len(args) {
	case 0:
		regs, addrs := s.dbg.Watches()
		for _, reg := range regs {
			fmt.Fprintln(s.out, reg)
		}
		for _, addr := range addrs {
			fmt.Fprintf(s.out, "0x%08x %s\n", addr, s.labelsAt(addr))
		}
		return
	case 1:
	default:
		return ErrCommandUsage
	}

	if strings.HasPrefix(args[0], "$") {
		reg, ok := cpu.ParseReg(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", ErrRegisterInvalid, args[0])
		}
		return s.dbg.WatchRegister(reg)
	}

	addr, err := s.location(args[0])
	if err != nil {
		return
	}

	return s.dbg.WatchMemory(addr)
}

func (s *session) unwatch(args []string) (err error) {
	if len(args) != 1 {
		return ErrCommandUsage
	}

	if strings.HasPrefix(args[0], "$") {
		reg, ok := cpu.ParseReg(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", ErrRegisterInvalid, args[0])
		}
		return s.dbg.UnwatchRegister(reg)
	}

	addr, err := s.location(args[0])
	if err != nil {
		return
	}

	return s.dbg.UnwatchMemory(addr)
}

func (s *session) labelsAt(addr uint32) string {
	if s.dbg.Program == nil {
		return ""
	}
	return strings.Join(s.dbg.Program.Labels(addr), " ")
}

func (s *session) regs(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}
	if s.dbg.Cpu == nil {
		return emulator.ErrNoProgram
	}

	registerTable(s.out, s.dbg.Registers())
	return
}

func (s *session) mem(args []string) (err error) {
	size := DEFAULT_DUMP_SIZE

	switch len(args) {
	case 2:
		size, err = count(args[1:])
		if err != nil {
			return
		}
	case 1:
	default:
		return ErrCommandUsage
	}

	addr, err := s.location(args[0])
	if err != nil {
		return
	}

	data, err := s.dbg.ReadMemory(addr, size)
	if err != nil {
		return
	}

	dumpMemory(s.out, addr, data)
	return
}

func (s *session) dis(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}
	if s.dbg.Cpu == nil {
		return emulator.ErrNoProgram
	}

	breakpoints := s.dbg.Breakpoints()
	writeListing(s.out, s.dbg.Program, func(addr uint32) string {
		switch {
		case addr == s.dbg.Pc:
			return "=>"
		case slices.Contains(breakpoints, addr):
			return "*"
		}
		return ""
	})

	return
}

func (s *session) labels(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}
	if s.dbg.Program == nil {
		return emulator.ErrNoProgram
	}

	fmt.Fprint(s.out, symbolTree(s.dbg.Program).String())
	return
}

func (s *session) input(args []string) (err error) {
	s.dbg.Console.Feed([]byte(strings.Join(args, " ") + "\n"))
	return
}

func (s *session) output(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}

	fmt.Fprintf(s.out, "%s\n", s.dbg.Console.Output)
	return
}

func (s *session) reset(args []string) (err error) {
	if len(args) != 0 {
		return ErrCommandUsage
	}

	err = s.dbg.Reset()
	if err != nil {
		return
	}

	s.where()
	return
}

func (s *session) help(args []string) (err error) {
	for _, name := range slices.Sorted(maps.Keys(sessionCommands)) {
		cmd := sessionCommands[name]
		fmt.Fprintf(s.out, "  %-18s %s\n", cmd.usage, cmd.help)
	}

	return
}
