package io

import (
	"bytes"
	"io"
)

// Console is the program I/O buffer. Output is append-only; input is
// pre-loaded and consumed through a read cursor.
type Console struct {
	Output []byte    // Bytes written by the program.
	Input  []byte    // Bytes supplied to the program.
	Mirror io.Writer // If set, output is also written here as it is produced.

	readIndex int
}

// Write appends program output.
func (con *Console) Write(p []byte) (n int, err error) {
	con.Output = append(con.Output, p...)
	n = len(p)

	if con.Mirror != nil {
		_, err = con.Mirror.Write(p)
	}

	return
}

// Feed appends bytes to the pending input.
func (con *Console) Feed(p []byte) {
	con.Input = append(con.Input, p...)
}

// ReadFrom feeds all input from a reader.
func (con *Console) ReadFrom(r io.Reader) (n int64, err error) {
	data, err := io.ReadAll(r)
	con.Feed(data)
	n = int64(len(data))

	return
}

// Pending returns the unread input.
func (con *Console) Pending() []byte {
	return con.Input[con.readIndex:]
}

// PeekLine returns pending input up to and including the next newline,
// or all pending input if there is no newline.
func (con *Console) PeekLine() []byte {
	pending := con.Pending()
	if n := bytes.IndexByte(pending, '\n'); n >= 0 {
		pending = pending[:n+1]
	}
	return pending
}

// Consume advances the read cursor by n bytes.
func (con *Console) Consume(n int) {
	con.readIndex = min(con.readIndex+n, len(con.Input))
}

// Cursor returns the output length and the input read index.
func (con *Console) Cursor() (out int, in int) {
	return len(con.Output), con.readIndex
}

// Rewind restores a previous Cursor, discarding later output.
// Output already copied to Mirror is not recalled.
func (con *Console) Rewind(out int, in int) (err error) {
	if out < 0 || out > len(con.Output) || in < 0 || in > len(con.Input) {
		err = ErrCursorInvalid
		return
	}

	con.Output = con.Output[:out]
	con.readIndex = in

	return
}

// Reset clears all output and input.
func (con *Console) Reset() {
	con.Output = nil
	con.Input = nil
	con.readIndex = 0
}
