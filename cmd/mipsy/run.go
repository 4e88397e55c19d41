package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/emulator"
)

func newRunCommand(a *app) *cobra.Command {
	var registers bool
	var inputPath string

	cmd := &cobra.Command{
		Use:   "run file... [-- args...]",
		Short: "Assemble and execute, with standard input and output as the console",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			files := args
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				files = args[:dash]
				a.cfg.Args = args[dash:]
			}

			prog, emu, err := a.assemble(cmd, files)
			if err != nil {
				return
			}

			stdin := cmd.InOrStdin()
			interactive := a.cfg.Interactive
			if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
				interactive = true
			}
			emu.Interactive = interactive && len(inputPath) == 0

			dbg := a.cfg.Debugger(a.logger, emu)
			dbg.History.Limit = 1

			err = dbg.Load(prog)
			if err != nil {
				return
			}
			emu.Console.Mirror = cmd.OutOrStdout()

			switch {
			case len(inputPath) != 0:
				var data []byte
				data, err = os.ReadFile(inputPath)
				if err != nil {
					return
				}
				emu.Console.Feed(data)
			case !emu.Interactive:
				_, err = emu.Console.ReadFrom(stdin)
				if err != nil {
					return
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			reader := bufio.NewReader(stdin)
			for {
				var last emulator.Step
				_, last, err = dbg.Run(ctx)
				if errors.Is(err, cpu.ErrInputRequired) {
					line, rerr := reader.ReadBytes('\n')
					emu.Console.Feed(line)
					if rerr != nil {
						emu.Interactive = false
					}
					continue
				}
				if err != nil || last.State != emulator.STATE_PAUSED {
					break
				}

				a.logger.WithFields(logrus.Fields{
					"pc":   fmt.Sprintf("0x%08x", emu.Pc),
					"line": emu.LineNo(),
				}).Info("break")
			}

			if registers {
				registerTable(cmd.ErrOrStderr(), emu.Registers())
			}

			if err != nil {
				return
			}

			if emu.ExitCode != 0 {
				err = exitCode(emu.ExitCode)
			}

			return
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&registers, "registers", "r", false, "print the registers when the program stops")
	flags.StringVarP(&inputPath, "input", "i", "", "console input file, instead of standard input")

	return cmd
}
