// Package asm assembles MIPS-I source into a cpu.Program.
//
// Assembly runs in two passes. The first parses every line of every unit,
// collecting all syntax errors, and then lays out the text and data
// segments, evaluating constants and sizing pseudo-instructions. The second
// resolves labels and encodes each statement into machine words.
//
// Pseudo-instructions are described by an embedded table (pseudo.yaml)
// shared by the layout and encoding passes, so that the size of an
// expansion is known before any label is resolved.
//
// Source syntax:
//
//	label:                      # labels end in ':'
//	NAME = expr                 # constants, evaluated at assembly time
//	.eqv NAME, expr
//	.data
//	msg:    .asciiz "hello\n"
//	.text
//	main:   li   $v0, 4
//	        la   $a0, msg
//	        syscall
//
// Comments start with '#' or ';'.
package asm
