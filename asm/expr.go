package asm

import (
	"errors"
	"iter"
	"regexp"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Integer division, as in assembly source, rather than starlark floats.
var divideRe = regexp.MustCompile(`/+`)

// Eval evaluates a compile-time constant expression, with names bound
// as predeclared integers.
func Eval(expr string, names iter.Seq2[string, int64]) (value int64, err error) {
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, val := range names {
		pred[key] = starlark.MakeInt64(val)
	}

	prog := "rc=" + divideRe.ReplaceAllString(expr, "//") + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrExpressionInvalid, err)
		return
	}

	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrExpressionInvalid
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrExpressionInvalid
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrExpressionInvalid
		return
	}

	return
}
