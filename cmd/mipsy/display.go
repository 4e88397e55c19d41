package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"

	"github.com/ezrec/mipsy/cpu"
)

// symbolTree groups the symbol table by segment, in address order.
func symbolTree(prog *cpu.Program) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue("symbols")

	branches := map[cpu.Segment]treeprint.Tree{}
	for sym := range prog.Sorted() {
		branch, ok := branches[sym.Segment]
		if !ok {
			branch = tree.AddBranch(sym.Segment.String())
			branches[sym.Segment] = branch
		}
		branch.AddMetaNode(fmt.Sprintf("0x%08x", sym.Addr), sym.Name)
	}

	return tree
}

// registerTable renders the register file, four registers to a row.
func registerTable(w io.Writer, regs cpu.Regs) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"reg", "value", "reg", "value", "reg", "value", "reg", "value"})

	hex := func(value uint32) string {
		return fmt.Sprintf("0x%08x", value)
	}

	for row := range 8 {
		var cells []string
		for col := range 4 {
			n := col*8 + row
			cells = append(cells, cpu.Reg(n).String(), hex(regs.Register[n]))
		}
		table.Append(cells)
	}
	table.Append([]string{"pc", hex(regs.Pc), "hi", hex(regs.Hi), "lo", hex(regs.Lo), "", ""})

	table.Render()
}

// dumpMemory writes data as hex and ASCII, 16 bytes to a line.
func dumpMemory(w io.Writer, addr uint32, data []byte) {
	for len(data) > 0 {
		line := data[:min(16, len(data))]
		data = data[len(line):]

		var hex, text strings.Builder
		for n := range 16 {
			if n < len(line) {
				fmt.Fprintf(&hex, "%02x ", line[n])
				if line[n] >= 0x20 && line[n] < 0x7f {
					text.WriteByte(line[n])
				} else {
					text.WriteByte('.')
				}
			} else {
				hex.WriteString("   ")
			}
		}

		fmt.Fprintf(w, "0x%08x: %s|%s|\n", addr, hex.String(), text.String())
		addr += uint32(len(line))
	}
}

// writeListing writes the decompiled text segment. Entries for which
// mark returns a non-blank prefix are flagged in the left margin.
func writeListing(w io.Writer, prog *cpu.Program, mark func(addr uint32) string) {
	for _, dc := range prog.Listing() {
		for _, label := range dc.Labels {
			fmt.Fprintf(w, "%s:\n", label)
		}
		dc.Labels = nil
		fmt.Fprintf(w, "%-2s %s\n", mark(dc.Addr), dc.String())
	}
}
