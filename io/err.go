package io

import (
	"errors"

	"github.com/ezrec/mipsy/translate"
)

var f = translate.From

var (
	// Console errors
	ErrCursorInvalid = errors.New(f("console cursor out of range"))
)
