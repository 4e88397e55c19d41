package asm

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ezrec/mipsy/cpu"
)

//go:embed pseudo.yaml
var pseudoYaml []byte

// Pseudo is a pseudo-instruction form and its native expansion.
type Pseudo struct {
	Name     string        // Mnemonic.
	Op       string        // Text substituted for '%op'.
	Operands []OperandType // Operand types, in order.
	Expand   []string      // Native instruction templates.
}

// pseudoEntry is one record of pseudo.yaml.
type pseudoEntry struct {
	Name     string            `yaml:"name"`
	Ops      map[string]string `yaml:"ops"`
	Operands []OperandType     `yaml:"operands"`
	Expand   []string          `yaml:"expand"`
}

// pseudoByName holds the pseudo-instruction forms, in table order.
var pseudoByName map[string][]*Pseudo

var placeholderRe = regexp.MustCompile(`%(op|[0-9])(?:\.(hi|lo|ahi|slo|off|base))?`)

func init() {
	var err error
	pseudoByName, err = loadPseudos(pseudoYaml)
	if err != nil {
		panic(err)
	}
}

// loadPseudos decodes and validates a pseudo-instruction table.
func loadPseudos(data []byte) (table map[string][]*Pseudo, err error) {
	var entries []pseudoEntry
	err = yaml.Unmarshal(data, &entries)
	if err != nil {
		err = errors.Join(ErrPseudoTableInvalid, err)
		return
	}

	table = make(map[string][]*Pseudo)
	for _, entry := range entries {
		ops := entry.Ops
		if len(ops) == 0 {
			ops = map[string]string{entry.Name: entry.Name}
		}
		for name, op := range ops {
			ps := &Pseudo{
				Name:     name,
				Op:       op,
				Operands: entry.Operands,
				Expand:   entry.Expand,
			}
			err = ps.validate()
			if err != nil {
				return
			}
			table[name] = append(table[name], ps)
		}
	}

	return
}

// validate checks that every operand type is known, and that every
// expansion line names a native instruction.
func (ps *Pseudo) validate() (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrPseudoTableInvalid, fmt.Errorf("%s: %w", ps.Name, err))
		}
	}()

	if len(ps.Name) == 0 || len(ps.Expand) == 0 {
		return ErrExpansionInvalid
	}

	for _, ot := range ps.Operands {
		if !ot.Valid() {
			return fmt.Errorf("%w: operand type %q", ErrExpansionInvalid, string(ot))
		}
	}

	for _, line := range ps.Expand {
		mnemonic, _, _ := strings.Cut(strings.ReplaceAll(line, "%op", ps.Op), " ")
		if _, ok := cpu.LookupOp(mnemonic); !ok {
			return fmt.Errorf("%w: %q", ErrExpansionInvalid, line)
		}
	}

	return
}

// resolved is an operand with any label replaced by its address.
type resolved struct {
	Operand
	Addr int64 // Immediate value, label address plus addend, or memory address offset.
}

// render formats a resolved operand for an expansion placeholder.
func (rv resolved) render(suffix string) string {
	value := uint32(rv.Addr)
	switch suffix {
	case "hi":
		return strconv.FormatUint(uint64(value>>16), 10)
	case "lo":
		return strconv.FormatUint(uint64(value&0xffff), 10)
	case "ahi":
		return strconv.FormatUint(uint64(((value+0x8000)>>16)&0xffff), 10)
	case "slo":
		return strconv.FormatInt(int64(int16(value)), 10)
	case "off":
		return strconv.FormatInt(rv.Addr, 10)
	case "base":
		return rv.Reg.String()
	}

	switch rv.Kind {
	case OPERAND_REGISTER:
		return rv.Reg.String()
	case OPERAND_MEMORY:
		return fmt.Sprintf("%d(%v)", rv.Addr, rv.Reg)
	}
	return strconv.FormatInt(rv.Addr, 10)
}

// expand renders the native instruction lines for resolved operands.
func (ps *Pseudo) expand(ops []resolved) (lines []string, err error) {
	for _, tmpl := range ps.Expand {
		line := placeholderRe.ReplaceAllStringFunc(tmpl, func(text string) string {
			match := placeholderRe.FindStringSubmatch(text)
			if match[1] == "op" {
				return ps.Op
			}
			n := int(match[1][0] - '0')
			if n >= len(ops) {
				err = ErrExpansionInvalid
				return text
			}
			return ops[n].render(match[2])
		})
		if err != nil {
			return
		}
		lines = append(lines, line)
	}

	return
}
