package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mipsy/cpu"
)

var _ cpu.Console = (*Console)(nil)

func TestConsole_Write(t *testing.T) {
	assert := assert.New(t)

	var mirror bytes.Buffer
	con := &Console{Mirror: &mirror}

	n, err := con.Write([]byte("hello"))
	assert.NoError(err)
	assert.Equal(5, n)
	con.Write([]byte(", world"))

	assert.Equal("hello, world", string(con.Output))
	assert.Equal("hello, world", mirror.String())
}

func TestConsole_PeekLine(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}
	assert.Empty(con.PeekLine())

	con.Feed([]byte("12\nabc"))
	assert.Equal("12\n", string(con.PeekLine()))

	con.Consume(1)
	assert.Equal("2\n", string(con.PeekLine()))

	con.Consume(2)
	assert.Equal("abc", string(con.PeekLine()))
	assert.Equal("abc", string(con.Pending()))

	con.Consume(100)
	assert.Empty(con.PeekLine())

	n, err := con.ReadFrom(strings.NewReader("more\n"))
	assert.NoError(err)
	assert.Equal(int64(5), n)
	assert.Equal("more\n", string(con.PeekLine()))
}

func TestConsole_Rewind(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}
	con.Feed([]byte("a\nb\n"))
	con.Write([]byte("x"))

	out, in := con.Cursor()
	assert.Equal(1, out)
	assert.Equal(0, in)

	con.Consume(2)
	con.Write([]byte("yz"))
	assert.Equal("xyz", string(con.Output))

	assert.NoError(con.Rewind(out, in))
	assert.Equal("x", string(con.Output))
	assert.Equal("a\n", string(con.PeekLine()))

	assert.ErrorIs(con.Rewind(2, 0), ErrCursorInvalid)
	assert.ErrorIs(con.Rewind(0, 5), ErrCursorInvalid)
	assert.ErrorIs(con.Rewind(-1, 0), ErrCursorInvalid)

	con.Reset()
	assert.Empty(con.Output)
	assert.Empty(con.Pending())
	out, in = con.Cursor()
	assert.Equal(0, out)
	assert.Equal(0, in)
}
