package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

// Reg is a general purpose register index.
type Reg uint8

// Registers with a fixed role in the calling convention.
const (
	REG_ZERO = Reg(0)
	REG_AT   = Reg(1)
	REG_V0   = Reg(2)
	REG_V1   = Reg(3)
	REG_A0   = Reg(4)
	REG_A1   = Reg(5)
	REG_A2   = Reg(6)
	REG_A3   = Reg(7)
	REG_T0   = Reg(8)
	REG_T1   = Reg(9)
	REG_T2   = Reg(10)
	REG_S0   = Reg(16)
	REG_K0   = Reg(26)
	REG_K1   = Reg(27)
	REG_GP   = Reg(28)
	REG_SP   = Reg(29)
	REG_FP   = Reg(30)
	REG_RA   = Reg(31)
)

// RegisterNames are the conventional names, indexed by register number.
var RegisterNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var regByName map[string]Reg

func init() {
	regByName = make(map[string]Reg, len(RegisterNames)+1)
	for n, name := range RegisterNames {
		regByName[name] = Reg(n)
	}
	regByName["s8"] = REG_FP
}

// String returns the register in '$name' form.
func (reg Reg) String() string {
	if int(reg) < len(RegisterNames) {
		return "$" + RegisterNames[reg]
	}
	return fmt.Sprintf("$?%d", int(reg))
}

// ParseReg parses '$name', '$n', 'name' or 'n'.
func ParseReg(text string) (reg Reg, ok bool) {
	text = strings.TrimPrefix(text, "$")
	if reg, ok = regByName[text]; ok {
		return
	}

	n, err := strconv.ParseUint(text, 10, 8)
	if err != nil || n >= 32 {
		return 0, false
	}

	return Reg(n), true
}
