// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ezrec/mipsy/asm"
	"github.com/ezrec/mipsy/config"
	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/emulator"
)

// app is the state shared by all subcommands.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCommand() *cobra.Command {
	var configPath string
	var logLevel string
	var verbose bool

	a := &app{}

	root := &cobra.Command{
		Use:           "mipsy",
		Short:         "MIPS-I assembler, disassembler and emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg := config.Default()
			if len(configPath) != 0 {
				cfg, err = config.Load(configPath)
				if err != nil {
					return
				}
			}

			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}
			if len(logLevel) != 0 {
				cfg.LogLevel = logLevel
				err = cfg.Validate()
				if err != nil {
					return
				}
			}

			a.cfg = cfg
			a.logger = logrus.New()
			a.logger.SetOutput(cmd.ErrOrStderr())
			a.logger.SetLevel(cfg.Level())

			return
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "trace assembly and execution")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	root.AddCommand(
		newAsmCommand(a),
		newDisCommand(a),
		newRunCommand(a),
		newDebugCommand(a),
	)

	return root
}

// assemble the named source files, '-' being standard input.
// The returned emulator is configured, and its memory map is predefined
// for the assembly source.
func (a *app) assemble(cmd *cobra.Command, paths []string) (prog *cpu.Program, emu *emulator.Emulator, err error) {
	var units []asm.Unit
	for _, path := range paths {
		var data []byte
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return
		}
		units = append(units, asm.Unit{Name: path, Text: string(data)})
	}

	as := a.cfg.Assembler(a.logger)
	emu = a.cfg.Emulator(a.logger, as)

	prog, err = as.ParseUnits(units...)
	if err != nil {
		for _, diag := range asm.Diagnostics(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), diag.String())
		}
		err = ErrAssemblyFailed
		return
	}

	return
}

func main() {
	err := newRootCommand().Execute()

	var code exitCode
	switch {
	case errors.As(err, &code):
		os.Exit(int(code))
	case err != nil:
		fmt.Fprintf(os.Stderr, "mipsy: %v\n", err)
		os.Exit(1)
	}
}
