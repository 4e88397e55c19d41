// Package cpu implements the MIPS-I integer processor, its memory map,
// and the instruction table shared by the assembler and the decompiler.
//
// The CPU consists of 32 general-purpose registers ($zero is hard-wired to
// zero), the HI and LO multiply/divide registers, and a program counter
// pair (Pc, NextPc) that models the branch delay slot: a taken branch or
// jump only updates NextPc, so the instruction after it always executes.
//
// Memory is little-endian and divided into text, data, heap and stack
// regions. Every store may be recorded in a Journal of byte diffs so that
// execution can be reversed one instruction at a time.
package cpu
