// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Trap is a non-fault event raised by an instruction.
type Trap int

const (
	TRAP_NONE  = Trap(0) // Normal completion.
	TRAP_EXIT  = Trap(1) // Program requested exit.
	TRAP_BREAK = Trap(2) // A break instruction executed.
)

// Regs is the register file, including the program counter pair.
type Regs struct {
	Register [32]uint32 // General purpose registers. Register[0] is always zero.
	Pc       uint32     // Address of the instruction to execute.
	NextPc   uint32     // Address of the instruction after it.
	Hi       uint32     // Multiply high word, or divide remainder.
	Lo       uint32     // Multiply low word, or divide quotient.
	Delay    bool       // Pc is in the delay slot of a branch or jump.
}

// Cpu is the simulation context for one MIPS processor and its memory.
type Cpu struct {
	Verbose bool               // Set to enable verbose logging.
	Logger  logrus.FieldLogger // Verbose log sink, the standard logger if nil.

	Regs

	Memory      *Memory // Address space.
	Console     Console // Syscall console.
	Interactive bool    // If set, reads from an empty console return ErrInputRequired.
	ExitCode    int32   // Exit code from the last exit syscall.
	Ticks       int     // Instructions retired since reset.
}

// NewCpu creates a CPU attached to a memory.
func NewCpu(mem *Memory) (cpu *Cpu) {
	cpu = &Cpu{
		Memory: mem,
	}

	return
}

func (cpu *Cpu) log() logrus.FieldLogger {
	if cpu.Logger == nil {
		return logrus.StandardLogger()
	}
	return cpu.Logger
}

// Reset clears the register file and starts execution at entry.
func (cpu *Cpu) Reset(entry uint32) {
	if cpu.Verbose {
		cpu.log().WithField("entry", fmt.Sprintf("0x%08x", entry)).Info("cpu: reset")
	}

	cpu.Regs = Regs{}
	cpu.Register[REG_GP] = GLOBAL_PTR
	cpu.Register[REG_SP] = STACK_PTR
	cpu.Pc = entry
	cpu.NextPc = entry + 4
	cpu.ExitCode = 0
	cpu.Ticks = 0
}

// String returns the register file as text.
func (cpu *Cpu) String() string {
	var text strings.Builder

	for n, name := range RegisterNames {
		fmt.Fprintf(&text, "%5s: 0x%08x", "$"+name, cpu.Register[n])
		if n%4 == 3 {
			text.WriteString("\n")
		} else {
			text.WriteString("  ")
		}
	}
	fmt.Fprintf(&text, "%5s: 0x%08x  %5s: 0x%08x  %5s: 0x%08x\n", "pc", cpu.Pc, "hi", cpu.Hi, "lo", cpu.Lo)

	return text.String()
}

// Fetch the instruction word at the program counter.
func (cpu *Cpu) Fetch() (code Code, err error) {
	return cpu.Memory.Fetch(cpu.Pc)
}

// Step executes a single instruction.
// On error, no architectural state has changed.
func (cpu *Cpu) Step() (trap Trap, err error) {
	pc := cpu.Pc

	code, err := cpu.Fetch()
	if err != nil {
		return
	}

	inst, err := Decode(code)
	if err != nil {
		err = &ErrIllegalInstruction{Addr: pc, Code: code, Err: err}
		return
	}

	if cpu.Verbose {
		cpu.log().WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%08x", pc),
			"code": fmt.Sprintf("0x%08x", uint32(code)),
		}).Info(inst.String())
	}

	return cpu.Execute(inst)
}

// Execute a decoded instruction at the program counter.
// Register changes are staged and only committed on success.
func (cpu *Cpu) Execute(inst Inst) (trap Trap, err error) {
	pc := cpu.Pc

	next := cpu.Regs
	next.Pc = cpu.NextPc
	next.NextPc = cpu.NextPc + 4
	next.Delay = false

	if inst.Operation().IsBranch() {
		if cpu.Delay {
			err = &ErrIllegalInstruction{Addr: pc, Code: inst.Encode(), Err: ErrDelaySlot}
			return
		}
		next.Delay = true
	}

	switch inst := inst.(type) {
	case RType:
		trap, err = cpu.executeR(&next, inst)
	case IType:
		err = cpu.executeI(&next, inst)
	case JType:
		err = cpu.executeJ(&next, inst)
	default:
		err = &ErrIllegalInstruction{Addr: pc, Err: ErrReserved}
	}
	if err != nil {
		return
	}

	next.Register[REG_ZERO] = 0
	cpu.Regs = next
	cpu.Ticks++

	return
}

// set writes a register; writes to $zero are discarded.
func (next *Regs) set(reg Reg, value uint32) {
	if reg != REG_ZERO {
		next.Register[reg] = value
	}
}

func (cpu *Cpu) executeR(next *Regs, inst RType) (trap Trap, err error) {
	rs := cpu.Register[inst.Rs]
	rt := cpu.Register[inst.Rt]

	switch inst.Op {
	case OP_SLL:
		next.set(inst.Rd, rt<<inst.Shamt)
	case OP_SRL:
		next.set(inst.Rd, rt>>inst.Shamt)
	case OP_SRA:
		next.set(inst.Rd, uint32(int32(rt)>>inst.Shamt))
	case OP_SLLV:
		next.set(inst.Rd, rt<<(rs&0x1f))
	case OP_SRLV:
		next.set(inst.Rd, rt>>(rs&0x1f))
	case OP_SRAV:
		next.set(inst.Rd, uint32(int32(rt)>>(rs&0x1f)))
	case OP_JR:
		next.NextPc = rs
	case OP_JALR:
		next.NextPc = rs
		next.set(inst.Rd, cpu.Pc+8)
	case OP_SYSCALL:
		trap, err = cpu.syscall(next)
	case OP_BREAK:
		trap = TRAP_BREAK
	case OP_MFHI:
		next.set(inst.Rd, cpu.Hi)
	case OP_MTHI:
		next.Hi = rs
	case OP_MFLO:
		next.set(inst.Rd, cpu.Lo)
	case OP_MTLO:
		next.Lo = rs
	case OP_MULT:
		prod := uint64(int64(int32(rs)) * int64(int32(rt)))
		next.Hi, next.Lo = uint32(prod>>32), uint32(prod)
	case OP_MULTU:
		prod := uint64(rs) * uint64(rt)
		next.Hi, next.Lo = uint32(prod>>32), uint32(prod)
	case OP_DIV:
		if rt == 0 {
			err = &ErrArithmeticTrap{Addr: cpu.Pc, Err: ErrDivideByZero}
			return
		}
		next.Lo = uint32(int32(rs) / int32(rt))
		next.Hi = uint32(int32(rs) % int32(rt))
	case OP_DIVU:
		if rt == 0 {
			err = &ErrArithmeticTrap{Addr: cpu.Pc, Err: ErrDivideByZero}
			return
		}
		next.Lo = rs / rt
		next.Hi = rs % rt
	case OP_ADD:
		var sum uint32
		sum, err = cpu.addTrap(rs, rt)
		if err != nil {
			return
		}
		next.set(inst.Rd, sum)
	case OP_ADDU:
		next.set(inst.Rd, rs+rt)
	case OP_SUB:
		var diff uint32
		diff, err = cpu.subTrap(rs, rt)
		if err != nil {
			return
		}
		next.set(inst.Rd, diff)
	case OP_SUBU:
		next.set(inst.Rd, rs-rt)
	case OP_AND:
		next.set(inst.Rd, rs&rt)
	case OP_OR:
		next.set(inst.Rd, rs|rt)
	case OP_XOR:
		next.set(inst.Rd, rs^rt)
	case OP_NOR:
		next.set(inst.Rd, ^(rs | rt))
	case OP_SLT:
		next.set(inst.Rd, bit(int32(rs) < int32(rt)))
	case OP_SLTU:
		next.set(inst.Rd, bit(rs < rt))
	default:
		err = &ErrIllegalInstruction{Addr: cpu.Pc, Code: inst.Encode(), Err: ErrReserved}
	}

	return
}

func (cpu *Cpu) executeI(next *Regs, inst IType) (err error) {
	rs := cpu.Register[inst.Rs]
	rt := cpu.Register[inst.Rt]
	simm := uint32(int32(int16(inst.Imm)))
	uimm := uint32(inst.Imm)
	target := BranchTarget(cpu.Pc, inst.Imm)

	branch := func(taken bool) {
		if taken {
			next.NextPc = target
		}
	}

	switch inst.Op {
	case OP_BLTZ:
		branch(int32(rs) < 0)
	case OP_BGEZ:
		branch(int32(rs) >= 0)
	case OP_BLTZAL:
		next.set(REG_RA, cpu.Pc+8)
		branch(int32(rs) < 0)
	case OP_BGEZAL:
		next.set(REG_RA, cpu.Pc+8)
		branch(int32(rs) >= 0)
	case OP_BEQ:
		branch(rs == rt)
	case OP_BNE:
		branch(rs != rt)
	case OP_BLEZ:
		branch(int32(rs) <= 0)
	case OP_BGTZ:
		branch(int32(rs) > 0)
	case OP_ADDI:
		var sum uint32
		sum, err = cpu.addTrap(rs, simm)
		if err != nil {
			return
		}
		next.set(inst.Rt, sum)
	case OP_ADDIU:
		next.set(inst.Rt, rs+simm)
	case OP_SLTI:
		next.set(inst.Rt, bit(int32(rs) < int32(simm)))
	case OP_SLTIU:
		next.set(inst.Rt, bit(rs < simm))
	case OP_ANDI:
		next.set(inst.Rt, rs&uimm)
	case OP_ORI:
		next.set(inst.Rt, rs|uimm)
	case OP_XORI:
		next.set(inst.Rt, rs^uimm)
	case OP_LUI:
		next.set(inst.Rt, uimm<<16)
	default:
		err = cpu.executeMemory(next, inst, rs+simm, rt)
	}

	return
}

func (cpu *Cpu) executeMemory(next *Regs, inst IType, addr uint32, rt uint32) (err error) {
	mem := cpu.Memory
	shift := (addr & 3) * 8

	var value uint32
	switch inst.Op {
	case OP_LB:
		value, err = mem.Load(addr, 1)
		value = uint32(int32(int8(value)))
	case OP_LBU:
		value, err = mem.Load(addr, 1)
	case OP_LH:
		value, err = mem.Load(addr, 2)
		value = uint32(int32(int16(value)))
	case OP_LHU:
		value, err = mem.Load(addr, 2)
	case OP_LW:
		value, err = mem.Load(addr, 4)
	case OP_LWL:
		value, err = mem.Load(addr&^3, 4)
		value = value<<(24-shift) | rt&(0x00ff_ffff>>shift)
	case OP_LWR:
		value, err = mem.Load(addr&^3, 4)
		value = value>>shift | rt&^(0xffff_ffff>>shift)
	case OP_SB:
		return mem.Store(addr, 1, rt)
	case OP_SH:
		return mem.Store(addr, 2, rt)
	case OP_SW:
		return mem.Store(addr, 4, rt)
	case OP_SWL:
		value, err = mem.Load(addr&^3, 4)
		if err != nil {
			return
		}
		value = value&^(0xffff_ffff>>(24-shift)) | rt>>(24-shift)
		return mem.Store(addr&^3, 4, value)
	case OP_SWR:
		value, err = mem.Load(addr&^3, 4)
		if err != nil {
			return
		}
		value = value&^(0xffff_ffff<<shift) | rt<<shift
		return mem.Store(addr&^3, 4, value)
	default:
		return &ErrIllegalInstruction{Addr: cpu.Pc, Code: inst.Encode(), Err: ErrReserved}
	}
	if err != nil {
		return
	}

	next.set(inst.Rt, value)
	return
}

func (cpu *Cpu) executeJ(next *Regs, inst JType) (err error) {
	switch inst.Op {
	case OP_JAL:
		next.set(REG_RA, cpu.Pc+8)
		fallthrough
	case OP_J:
		next.NextPc = JumpTarget(cpu.Pc, inst.Target)
	default:
		err = &ErrIllegalInstruction{Addr: cpu.Pc, Code: inst.Encode(), Err: ErrReserved}
	}

	return
}

// addTrap is a 32-bit signed add that traps on overflow.
func (cpu *Cpu) addTrap(a, b uint32) (sum uint32, err error) {
	sum = a + b
	if (a^sum)&(b^sum)&0x8000_0000 != 0 {
		err = &ErrArithmeticTrap{Addr: cpu.Pc, Err: ErrOverflow}
	}
	return
}

// subTrap is a 32-bit signed subtract that traps on overflow.
func (cpu *Cpu) subTrap(a, b uint32) (diff uint32, err error) {
	diff = a - b
	if (a^b)&(a^diff)&0x8000_0000 != 0 {
		err = &ErrArithmeticTrap{Addr: cpu.Pc, Err: ErrOverflow}
	}
	return
}

func bit(cond bool) uint32 {
	if cond {
		return 1
	}
	return 0
}
