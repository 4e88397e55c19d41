// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package debugger

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/emulator"
)

const (
	DEFAULT_STEP_LIMIT    = 10_000_000 // Instructions per Run.
	DEFAULT_HISTORY_LIMIT = 1_000_000  // Retained snapshots.
)

// Debugger drives an emulator forwards and backwards.
type Debugger struct {
	Verbose            bool               // If set, enables verbose logging.
	Logger             logrus.FieldLogger // Verbose log sink, the standard logger if nil.
	*emulator.Emulator                    // Machine under control.

	StepLimit int     // Maximum instructions per Run; 0 for no limit.
	History   History // Undo list.
}

// NewDebugger wraps an emulator, with default limits.
// The emulator retains its store journal from now on.
func NewDebugger(emu *emulator.Emulator) (dbg *Debugger) {
	emu.History = true

	dbg = &Debugger{
		Emulator:  emu,
		StepLimit: DEFAULT_STEP_LIMIT,
		History:   History{Limit: DEFAULT_HISTORY_LIMIT},
	}

	return
}

func (dbg *Debugger) log() logrus.FieldLogger {
	if dbg.Logger == nil {
		return logrus.StandardLogger()
	}
	return dbg.Logger
}

// Load a program, forgetting all history.
func (dbg *Debugger) Load(prog *cpu.Program) (err error) {
	dbg.History.Clear()
	dbg.Emulator.History = true
	return dbg.Emulator.Load(prog)
}

// Reset the program, forgetting all history.
func (dbg *Debugger) Reset() (err error) {
	dbg.History.Clear()
	dbg.Emulator.History = true
	return dbg.Emulator.Reset()
}

// StepForward executes one instruction, recording a snapshot to undo it.
// A faulting instruction is recorded too, so the fault can be stepped back over.
func (dbg *Debugger) StepForward() (step emulator.Step, err error) {
	emu := dbg.Emulator
	if emu.Cpu == nil {
		err = emulator.ErrNoProgram
		return
	}

	cp := emu.Checkpoint()

	step, err = emu.Tick()
	var rtErr *emulator.ErrRuntime
	if err != nil && !errors.As(err, &rtErr) {
		return
	}

	dropped := dbg.History.Push(Snapshot{Checkpoint: cp, Step: step}, emu.Journal())
	if dbg.Verbose && dropped > 0 {
		dbg.log().WithField("dropped", dropped).Debug("debugger: history compacted")
	}

	return
}

// StepBackward undoes the most recent step.
func (dbg *Debugger) StepBackward() (snap Snapshot, err error) {
	snap, ok := dbg.History.Pop()
	if !ok {
		err = ErrNoHistory
		return
	}

	err = dbg.Emulator.Restore(snap.Checkpoint)
	if err != nil {
		return
	}

	if dbg.Verbose {
		dbg.log().WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%08x", snap.Regs.Pc),
			"text": snap.Step.Text,
		}).Info("debugger: step back")
	}

	return
}

// Run steps forward until the machine pauses, halts or faults.
// The returned count excludes a pause at an entry breakpoint, which
// executes nothing.
// Exceeding StepLimit returns ErrStepLimitExceeded; the machine is left
// at the last executed instruction and can be run again.
func (dbg *Debugger) Run(ctx context.Context) (steps int, last emulator.Step, err error) {
	return dbg.run(ctx, func() bool { return false })
}

// RunToSyscall steps forward until the next instruction is a syscall,
// or the machine stops for any reason Run would stop.
func (dbg *Debugger) RunToSyscall(ctx context.Context) (steps int, last emulator.Step, err error) {
	return dbg.run(ctx, func() bool {
		dc, err := dbg.Next()
		if err != nil || dc.Inst == nil {
			return false
		}
		return dc.Inst.Operation() == cpu.OP_SYSCALL
	})
}

func (dbg *Debugger) run(ctx context.Context, stop func() bool) (steps int, last emulator.Step, err error) {
	if dbg.Cpu == nil {
		err = emulator.ErrNoProgram
		return
	}

	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		if dbg.StepLimit > 0 && steps >= dbg.StepLimit {
			err = ErrStepLimitExceeded
			return
		}

		ticks := dbg.Ticks
		last, err = dbg.StepForward()
		var rtErr *emulator.ErrRuntime
		if dbg.Ticks != ticks || errors.As(err, &rtErr) {
			steps++
		}
		if err != nil {
			return
		}

		if last.State != emulator.STATE_RUNNING || stop() {
			return
		}
	}
}

