package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezrec/mipsy/cpu"
)

func newAsmCommand(a *app) *cobra.Command {
	var symbols bool

	cmd := &cobra.Command{
		Use:   "asm file...",
		Short: "Assemble source files and dump the text and data segments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, _, err := a.assemble(cmd, args)
			if err != nil {
				return
			}

			out := cmd.OutOrStdout()

			fmt.Fprintln(out, ".text")
			for addr, code := range prog.Codes() {
				fmt.Fprintf(out, "0x%08x: 0x%08x\n", addr, uint32(code))
			}

			if len(prog.Data) != 0 {
				fmt.Fprintln(out, ".data")
				dumpMemory(out, cpu.DATA_BOT, prog.Data)
			}

			if symbols {
				fmt.Fprint(out, symbolTree(prog).String())
			}

			return
		},
	}

	cmd.Flags().BoolVarP(&symbols, "symbols", "s", false, "also print the symbol table")

	return cmd
}

func newDisCommand(a *app) *cobra.Command {
	var symbols bool

	cmd := &cobra.Command{
		Use:   "dis file...",
		Short: "Assemble source files and print the decompiled listing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, _, err := a.assemble(cmd, args)
			if err != nil {
				return
			}

			out := cmd.OutOrStdout()
			writeListing(out, prog, func(uint32) string { return "" })

			if symbols {
				fmt.Fprint(out, symbolTree(prog).String())
			}

			return
		},
	}

	cmd.Flags().BoolVarP(&symbols, "symbols", "s", false, "also print the symbol table")

	return cmd
}
