package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/mipsy/asm"
	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/debugger"
	"github.com/ezrec/mipsy/emulator"
)

func newSession(t *testing.T, program ...string) (s *session, out *bytes.Buffer) {
	t.Helper()

	as := &asm.Assembler{}
	prog, err := as.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)

	emu := emulator.NewEmulator()
	emu.Interactive = true

	dbg := debugger.NewDebugger(emu)
	require.NoError(t, dbg.Load(prog))

	out = &bytes.Buffer{}
	s = &session{
		dbg: dbg,
		out: out,
		ctx: context.Background(),
	}

	return
}

var sessionProgram = []string{
	"\t.data",
	"msg:\t.asciiz \"hi\"",
	"\t.text",
	"main:\tli $t0, 1",
	"\tb skip",
	"\tli $t1, 2",
	"\tli $t2, 3",
	"skip:\tli $v0, 10",
	"\tsyscall",
}

func TestSessionStep(t *testing.T) {
	assert := assert.New(t)

	s, out := newSession(t, sessionProgram...)

	quit, err := s.Exec("step 2")
	assert.NoError(err)
	assert.False(quit)
	assert.Equal(uint32(cpu.TEXT_BOT+8), s.dbg.Pc)
	assert.Contains(out.String(), "2 steps\n")
	assert.Contains(out.String(), "=> 0x00400008")

	out.Reset()
	_, err = s.Exec("back")
	assert.NoError(err)
	assert.Equal(uint32(cpu.TEXT_BOT+4), s.dbg.Pc)
	assert.Contains(out.String(), "=> 0x00400004")

	out.Reset()
	_, err = s.Exec("run")
	assert.NoError(err)
	assert.Contains(out.String(), "exited with code 0")

	_, err = s.Exec("back 100")
	assert.ErrorIs(err, debugger.ErrNoHistory)
	assert.Equal(uint32(cpu.TEXT_BOT), s.dbg.Pc)

	out.Reset()
	_, err = s.Exec("s")
	assert.NoError(err)
	assert.Contains(out.String(), "1 steps\n")

	out.Reset()
	_, err = s.Exec("reset")
	assert.NoError(err)
	assert.Equal(emulator.STATE_LOADED, s.dbg.State)
	assert.Contains(out.String(), "=> 0x00400000")
}

func TestSessionErrors(t *testing.T) {
	s, _ := newSession(t, sessionProgram...)

	table := [](struct {
		line string
		err  error
	}){
		{"frobnicate", ErrCommandUnknown},
		{"step 0", ErrCountInvalid},
		{"step x", ErrCountInvalid},
		{"step 1 2", ErrCommandUsage},
		{"back", debugger.ErrNoHistory},
		{"run now", ErrCommandUsage},
		{"break nowhere", ErrLocationInvalid},
		{"break 0x10010000", emulator.ErrBreakpointInvalid},
		{"delete main", emulator.ErrBreakpointMissing},
		{"delete", ErrCommandUsage},
		{"watch $xx", ErrRegisterInvalid},
		{"watch $zero", emulator.ErrWatchpointInvalid},
		{"watch main", emulator.ErrWatchpointInvalid},
		{"unwatch $t0", emulator.ErrWatchpointMissing},
		{"mem msg 0", ErrCountInvalid},
		{"mem 0", cpu.ErrUnmapped},
	}

	for _, entry := range table {
		t.Run(entry.line, func(t *testing.T) {
			quit, err := s.Exec(entry.line)
			assert.ErrorIs(t, err, entry.err)
			assert.False(t, quit)
		})
	}

	_, err := s.Exec(`input "open`)
	assert.Error(t, err)
}

func TestSessionQuit(t *testing.T) {
	assert := assert.New(t)

	s, _ := newSession(t, sessionProgram...)

	for _, line := range []string{"quit", "exit", "q"} {
		quit, err := s.Exec(line)
		assert.NoError(err)
		assert.True(quit, line)
	}

	quit, err := s.Exec("   ")
	assert.NoError(err)
	assert.False(quit)
}

func TestSessionBreak(t *testing.T) {
	assert := assert.New(t)

	s, out := newSession(t, sessionProgram...)

	_, err := s.Exec("break skip")
	assert.NoError(err)

	out.Reset()
	_, err = s.Exec("break")
	assert.NoError(err)
	assert.Equal("0x00400010 skip\n", out.String())

	out.Reset()
	_, err = s.Exec("run")
	assert.NoError(err)
	assert.Contains(out.String(), "breakpoint at 0x00400010\n")
	assert.Equal(emulator.STATE_PAUSED, s.dbg.State)

	out.Reset()
	_, err = s.Exec("dis")
	assert.NoError(err)
	assert.Contains(out.String(), "skip:\n=> 0x00400010")

	_, err = s.Exec("delete skip")
	assert.NoError(err)
	assert.Empty(s.dbg.Breakpoints())
}

func TestSessionWatch(t *testing.T) {
	assert := assert.New(t)

	s, out := newSession(t,
		"main:\tli $t0, 1",
		"\tli $t1, 2",
		"\tli $v0, 10",
		"\tsyscall",
	)

	_, err := s.Exec("watch $t1")
	assert.NoError(err)

	out.Reset()
	_, err = s.Exec("watch")
	assert.NoError(err)
	assert.Equal("$t1\n", out.String())

	out.Reset()
	_, err = s.Exec("run")
	assert.NoError(err)
	assert.Contains(out.String(), "watchpoint hit by 0x00400004: addiu $t1, $zero, 2\n")
	assert.Contains(out.String(), "2 steps\n")

	_, err = s.Exec("unwatch $t1")
	assert.NoError(err)

	out.Reset()
	_, err = s.Exec("c")
	assert.NoError(err)
	assert.Contains(out.String(), "exited with code 0")
}

func TestSessionInput(t *testing.T) {
	assert := assert.New(t)

	s, out := newSession(t,
		"main:\tli $v0, 12",
		"\tsyscall",
		"\tmove $a0, $v0",
		"\tli $v0, 11",
		"\tsyscall",
		"\tli $v0, 10",
		"\tsyscall",
	)

	_, err := s.Exec("run")
	assert.NoError(err)
	assert.Contains(out.String(), "waiting for console input")

	_, err = s.Exec("input x")
	assert.NoError(err)

	out.Reset()
	_, err = s.Exec("run")
	assert.NoError(err)
	assert.Contains(out.String(), "exited with code 0")

	out.Reset()
	_, err = s.Exec("output")
	assert.NoError(err)
	assert.Equal("x\n", out.String())
}

func TestSessionDisplay(t *testing.T) {
	assert := assert.New(t)

	s, out := newSession(t, sessionProgram...)

	_, err := s.Exec("mem msg 3")
	assert.NoError(err)
	assert.Contains(out.String(), "0x10010000: 68 69 00 ")
	assert.Contains(out.String(), "|hi.|")

	out.Reset()
	_, err = s.Exec("r")
	assert.NoError(err)
	assert.Contains(out.String(), "$t0")
	assert.Contains(out.String(), "0x00400000")

	out.Reset()
	_, err = s.Exec("labels")
	assert.NoError(err)
	assert.Contains(out.String(), "main")
	assert.Contains(out.String(), "msg")

	out.Reset()
	_, err = s.Exec("help")
	assert.NoError(err)
	for name := range sessionCommands {
		assert.Contains(out.String(), name)
	}
}
