package store

import (
	"encoding/binary"
	"io"
)

// CountingOutput adapts an io.Writer into an Output by tracking the number
// of bytes written. Wrap the writer in a bufio.Writer first if the target
// does not batch small writes itself.
type CountingOutput struct {
	w       io.Writer
	n       uint64
	scratch [binary.MaxVarintLen64]byte
}

// NewCountingOutput creates an Output writing to w.
func NewCountingOutput(w io.Writer) *CountingOutput {
	return &CountingOutput{w: w}
}

var _ Output = (*CountingOutput)(nil)

// Write implements io.Writer.
func (o *CountingOutput) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.n += uint64(n)
	return n, err
}

// WriteByte implements io.ByteWriter.
func (o *CountingOutput) WriteByte(c byte) error {
	o.scratch[0] = c
	_, err := o.Write(o.scratch[:1])
	return err
}

// WriteUvarint writes v in unsigned varint encoding.
func (o *CountingOutput) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(o.scratch[:], v)
	_, err := o.Write(o.scratch[:n])
	return err
}

// Position returns the number of bytes written so far.
func (o *CountingOutput) Position() uint64 {
	return o.n
}
