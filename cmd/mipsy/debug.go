package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const HISTORY_FILE = ".mipsy_history"

func newDebugCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug file... [-- args...]",
		Short: "Assemble and debug interactively",
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
			emu.Interactive = true

			rlConfig := &readline.Config{
				Prompt:          "(mipsy) ",
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
				Stdin:           io.NopCloser(cmd.InOrStdin()),
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			}
			if home, err := os.UserHomeDir(); err == nil {
				rlConfig.HistoryFile = filepath.Join(home, HISTORY_FILE)
			}

			rl, err := readline.NewEx(rlConfig)
			if err != nil {
				return
			}
			defer rl.Close()

			dbg := a.cfg.Debugger(a.logger, emu)
			err = dbg.Load(prog)
			if err != nil {
				return
			}

			s := &session{
				dbg: dbg,
				out: rl.Stdout(),
			}
			emu.Console.Mirror = s.out

			fmt.Fprintf(s.out, "%d words of text, %d bytes of data; 'help' lists commands\n",
				len(prog.Binary())/4, len(prog.Data))
			s.where()

			var last string
			for {
				line, rerr := rl.Readline()
				if errors.Is(rerr, readline.ErrInterrupt) {
					if len(line) == 0 {
						break
					}
					continue
				}
				if rerr != nil {
					break
				}

				// An empty line repeats the previous command.
				if len(line) == 0 {
					line = last
				}
				last = line

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				s.ctx = ctx
				quit, xerr := s.Exec(line)
				stop()

				if xerr != nil {
					fmt.Fprintf(rl.Stderr(), "error: %v\n", xerr)
				}
				if quit {
					break
				}
			}

			return
		},
	}

	return cmd
}
