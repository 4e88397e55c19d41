package cpu

import (
	"fmt"
	"strings"
)

// Decompiled is one listing entry of a text word.
type Decompiled struct {
	Addr     uint32
	Code     Code
	Inst     Inst     // Nil if the word does not decode.
	Mnemonic string   // Native mnemonic, or 'nop'.
	Operands string   // Operands, with labels substituted for targets.
	Target   string   // Label substituted for a branch or jump target.
	Labels   []string // Labels defined at this address.
	Source   string   // Originating source statement.
	LineNo   int      // Originating source line.
	Group    int      // Word index within a pseudo-instruction expansion.
	GroupLen int      // Words in the expansion; 0 if not expanded.
	Err      error    // ErrDecode for undefined words.
}

// Text returns the mnemonic and operands.
func (dc *Decompiled) Text() string {
	if dc.Err != nil {
		return ""
	}
	if len(dc.Operands) == 0 {
		return dc.Mnemonic
	}
	return dc.Mnemonic + " " + dc.Operands
}

// String renders the entry as a listing line, preceded by any label lines.
func (dc *Decompiled) String() string {
	var text strings.Builder

	for _, label := range dc.Labels {
		fmt.Fprintf(&text, "%s:\n", label)
	}

	if dc.Err != nil {
		fmt.Fprintf(&text, "0x%08x [0x%08x]    # %v", dc.Addr, uint32(dc.Code), dc.Err)
		return text.String()
	}

	line := fmt.Sprintf("0x%08x [0x%08x]    %-6s %s", dc.Addr, uint32(dc.Code), dc.Mnemonic, dc.Operands)
	text.WriteString(line)

	if len(dc.Source) != 0 {
		pad := max(0, 50-len(line))
		text.WriteString(strings.Repeat(" ", pad))
		fmt.Fprintf(&text, " # %v", dc.Source)
		if dc.GroupLen > 1 {
			fmt.Fprintf(&text, " [%d/%d]", dc.Group+1, dc.GroupLen)
		}
	}

	return strings.TrimRight(text.String(), " ")
}

// DecompileCode renders a word at addr without program context.
func DecompileCode(addr uint32, code Code) (dc Decompiled) {
	return decompile(addr, code, nil)
}

// Decompile renders a word at addr, annotated from the program.
func (prog *Program) Decompile(addr uint32, code Code) (dc Decompiled) {
	dc = decompile(addr, code, prog)
	dc.Labels = prog.Labels(addr)

	dbg := prog.Debug(addr)
	if dbg.Opcode != nil {
		dc.Source = dbg.Source
		dc.LineNo = dbg.LineNo
		dc.Group = dbg.Index
		if dbg.Pseudo() {
			dc.GroupLen = len(dbg.Codes)
		}
	}

	return
}

// Listing decompiles the whole text segment.
// Undefined words carry an error but do not stop the listing.
func (prog *Program) Listing() (list []Decompiled) {
	for addr, code := range prog.Codes() {
		list = append(list, prog.Decompile(addr, code))
	}

	return
}

func decompile(addr uint32, code Code, prog *Program) (dc Decompiled) {
	dc = Decompiled{Addr: addr, Code: code}

	inst, err := Decode(code)
	if err != nil {
		dc.Err = err
		return
	}
	dc.Inst = inst

	if code == 0 {
		dc.Mnemonic = "nop"
		return
	}

	dc.Mnemonic = inst.Operation().String()
	dc.Operands = Operands(inst, addr, func(dest uint32) string {
		if prog != nil {
			if labels := prog.Labels(dest); len(labels) > 0 {
				dc.Target = labels[0]
				return dc.Target
			}
		}
		return fmt.Sprintf("0x%08x", dest)
	})

	return
}
