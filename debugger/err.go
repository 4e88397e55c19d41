package debugger

import (
	"errors"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	ErrNoHistory         = errors.New(f("no history to step back through"))
	ErrStepLimitExceeded = errors.New(f("step limit exceeded"))
)
