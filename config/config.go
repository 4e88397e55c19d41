// Package config loads the tool settings from TOML.
package config

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/ezrec/mipsy/asm"
	"github.com/ezrec/mipsy/cpu"
	"github.com/ezrec/mipsy/debugger"
	"github.com/ezrec/mipsy/emulator"
	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	ErrConfigKeyUnknown = errors.New(f("unknown configuration key"))
	ErrConfigInvalid    = errors.New(f("invalid configuration value"))
)

// Config holds the assembler, emulator and debugger settings.
type Config struct {
	TabSize      int      `toml:"tab_size"`      // Columns per tab in diagnostics.
	StackSize    uint32   `toml:"stack_size"`    // Stack bytes.
	HeapLimit    uint32   `toml:"heap_limit"`    // Maximum heap bytes.
	StepLimit    int      `toml:"step_limit"`    // Instructions per run; 0 for no limit.
	HistoryLimit int      `toml:"history_limit"` // Undo steps retained; 0 for no limit.
	Interactive  bool     `toml:"interactive"`   // Wait for input instead of faulting.
	Verbose      bool     `toml:"verbose"`       // Trace parsing and execution.
	LogLevel     string   `toml:"log_level"`     // logrus level name.
	Args         []string `toml:"args"`          // Program arguments.
}

// Default returns the built-in settings.
func Default() (cfg *Config) {
	cfg = &Config{
		TabSize:      asm.DEFAULT_TAB_SIZE,
		StackSize:    emulator.DEFAULT_STACK_SIZE,
		HeapLimit:    emulator.DEFAULT_HEAP_LIMIT,
		StepLimit:    debugger.DEFAULT_STEP_LIMIT,
		HistoryLimit: debugger.DEFAULT_HISTORY_LIMIT,
		LogLevel:     logrus.InfoLevel.String(),
	}

	return
}

// Load overlays a TOML file on the defaults.
func Load(path string) (cfg *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	return Parse(file)
}

// Parse overlays TOML text on the defaults.
func Parse(r io.Reader) (cfg *Config, err error) {
	cfg = Default()

	meta, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		cfg = nil
		return
	}

	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		err = errors.Join(ErrConfigKeyUnknown, errors.New(strings.Join(keys, ", ")))
		cfg = nil
		return
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
		return
	}

	return
}

// Validate checks every setting.
func (cfg *Config) Validate() (err error) {
	var errs []error
	invalid := func(key string, reason string) {
		errs = append(errs, errors.Join(ErrConfigInvalid, errors.New(f("%v: %v", key, reason))))
	}

	if cfg.TabSize < 1 {
		invalid("tab_size", f("must be positive"))
	}
	if cfg.StackSize < 16 || cfg.StackSize%4 != 0 {
		invalid("stack_size", f("must be a multiple of 4, at least 16"))
	}
	if uint64(cpu.HEAP_BOT)+uint64(cfg.HeapLimit)+uint64(cfg.StackSize) > uint64(cpu.STACK_TOP)+1 {
		invalid("heap_limit", f("heap and stack overlap"))
	}
	if cfg.StepLimit < 0 {
		invalid("step_limit", f("must not be negative"))
	}
	if cfg.HistoryLimit < 0 {
		invalid("history_limit", f("must not be negative"))
	}
	if _, lerr := logrus.ParseLevel(cfg.LogLevel); lerr != nil {
		invalid("log_level", lerr.Error())
	}

	return errors.Join(errs...)
}

// Level returns the configured log level; Verbose raises it to at least Info.
func (cfg *Config) Level() (level logrus.Level) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Verbose && level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}

	return
}

// Assembler returns an assembler with these settings.
func (cfg *Config) Assembler(logger logrus.FieldLogger) (as *asm.Assembler) {
	as = &asm.Assembler{
		Verbose: cfg.Verbose,
		Logger:  logger,
		TabSize: cfg.TabSize,
	}

	return
}

// Emulator returns an emulator with these settings. The memory map
// constants it depends on are predefined in as, if given.
func (cfg *Config) Emulator(logger logrus.FieldLogger, as *asm.Assembler) (emu *emulator.Emulator) {
	emu = emulator.NewEmulator()
	emu.Verbose = cfg.Verbose
	emu.Logger = logger
	emu.Interactive = cfg.Interactive
	emu.StackSize = cfg.StackSize
	emu.HeapLimit = cfg.HeapLimit
	emu.Args = cfg.Args

	if as != nil {
		for name, value := range emu.Defines() {
			as.Predefine(name, value)
		}
	}

	return
}

// Debugger returns a debugger driving emu with these settings.
func (cfg *Config) Debugger(logger logrus.FieldLogger, emu *emulator.Emulator) (dbg *debugger.Debugger) {
	dbg = debugger.NewDebugger(emu)
	dbg.Verbose = cfg.Verbose
	dbg.Logger = logger
	dbg.StepLimit = cfg.StepLimit
	dbg.History.Limit = cfg.HistoryLimit

	return
}
