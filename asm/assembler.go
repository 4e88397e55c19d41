// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ezrec/mipsy/cpu"
)

// DEFAULT_TAB_SIZE is the tab stop used for column numbers.
const DEFAULT_TAB_SIZE = 8

// Unit is a named source unit.
type Unit struct {
	Name string
	Text string
}

// Assembler is a two pass assembler for MIPS-I assembly source.
type Assembler struct {
	Verbose bool               // If set, verbosely logs the assembler actions.
	Logger  logrus.FieldLogger // Verbose log sink, the standard logger if nil.
	TabSize int                // Tab stop for column numbers; DEFAULT_TAB_SIZE if zero.

	predefine map[string]int64 // Predefines
}

func (asm *Assembler) log() logrus.FieldLogger {
	if asm.Logger == nil {
		return logrus.StandardLogger()
	}
	return asm.Logger
}

// Predefine defines a new constant, or redefines an existing one,
// visible to every unit.
func (asm *Assembler) Predefine(name string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Parse assembles a single unnamed source unit.
func (asm *Assembler) Parse(input io.Reader) (prog *cpu.Program, err error) {
	text, err := io.ReadAll(input)
	if err != nil {
		return
	}

	return asm.ParseUnits(Unit{Text: string(text)})
}

// parseUnit parses the lines of a unit into items.
// Syntax errors are collected, not returned at the first one.
func (asm *Assembler) parseUnit(unit Unit) (items []Item, errs *multierror.Error) {
	tabSize := asm.TabSize
	if tabSize == 0 {
		tabSize = DEFAULT_TAB_SIZE
	}
	ps := &parser{File: unit.Name, TabSize: tabSize}

	scanner := bufio.NewScanner(strings.NewReader(unit.Text))

	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if asm.Verbose {
			asm.log().WithFields(logrus.Fields{
				"file": unit.Name,
				"line": lineNo,
			}).Info(line)
		}

		parsed, err := ps.ParseLine(lineNo, line)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		items = append(items, parsed...)
	}

	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, &ErrSyntax{Pos: Pos{File: unit.Name, Line: lineNo + 1, Column: 1}, Err: err})
	}

	return
}

// ParseUnits assembles one or more source units into a program.
// Units are laid out in order and share a single label namespace.
//
// All syntax errors of every unit are returned together as a
// *multierror.Error of *ErrSyntax. Otherwise assembly halts at the first
// *ErrAssembly or *ErrEncoding.
func (asm *Assembler) ParseUnits(units ...Unit) (prog *cpu.Program, err error) {
	var errs *multierror.Error

	parsed := make([][]Item, len(units))
	for n, unit := range units {
		var unitErrs *multierror.Error
		parsed[n], unitErrs = asm.parseUnit(unit)
		if unitErrs != nil {
			errs = multierror.Append(errs, unitErrs.Errors...)
		}
	}
	if errs != nil {
		err = errs
		return
	}

	predefine := map[string]int64{}
	maps.Insert(predefine, cpu.Defines())
	maps.Copy(predefine, asm.predefine)

	lay := newLayout(predefine)
	for _, items := range parsed {
		err = lay.Unit(items)
		if err != nil {
			return
		}
	}

	err = lay.Link()
	if err != nil {
		return
	}

	prog = &cpu.Program{
		Data:    lay.Data,
		Symbols: lay.Symbols,
		Entry:   cpu.TEXT_BOT,
	}

	for n := range lay.Text {
		stmt := &lay.Text[n]

		var codes []cpu.Code
		codes, err = lay.encode(stmt)
		if err != nil {
			prog = nil
			return
		}

		if asm.Verbose {
			asm.log().WithFields(logrus.Fields{
				"file": stmt.Item.Pos.File,
				"line": stmt.Item.Pos.Line,
				"addr": fmt.Sprintf("0x%08x", stmt.Addr),
			}).Info(fmt.Sprintf("%s => %08x", stmt.Item.Source, codes))
		}

		prog.Opcodes = append(prog.Opcodes, cpu.Opcode{
			File:     stmt.Item.Pos.File,
			LineNo:   stmt.Item.Pos.Line,
			Column:   stmt.Item.Pos.Column,
			Addr:     stmt.Addr,
			Source:   stmt.Item.Source,
			Mnemonic: stmt.Item.Name,
			Codes:    codes,
		})
	}

	if sym, ok := prog.Symbols["main"]; ok && sym.Segment == cpu.SEGMENT_TEXT {
		prog.Entry = sym.Addr
	}

	return
}
