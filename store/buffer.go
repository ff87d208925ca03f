package store

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Buffer is a growable in-memory Output.
//
// It is the sink behind one skip-list writer level: checkpoints accumulate in
// memory and are copied out verbatim at flush time. Reset keeps the backing
// array, so a Buffer can be reused across many postings lists without
// reallocating.
type Buffer struct {
	buf []byte
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

var _ Output = (*Buffer)(nil)

// Write appends p.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteUvarint appends v in unsigned varint encoding.
func (b *Buffer) WriteUvarint(v uint64) error {
	b.buf = binary.AppendUvarint(b.buf, v)
	return nil
}

// Position returns the number of bytes written.
func (b *Buffer) Position() uint64 {
	return uint64(len(b.buf))
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Bytes returns the written bytes. The slice is valid until the next write
// or Reset.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Reset discards the contents but keeps the allocation.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Input returns a fresh cursor over the current contents.
func (b *Buffer) Input() *BytesInput {
	return NewBytesInput(b.buf)
}

// BytesInput is an Input over an immutable byte slice.
//
// Duplicates share the slice and carry their own position, so they are safe
// for concurrent use as long as nobody mutates the underlying bytes.
type BytesInput struct {
	data []byte
	pos  uint64
}

// NewBytesInput creates an Input reading from data. The caller must not
// mutate data afterwards.
func NewBytesInput(data []byte) *BytesInput {
	return &BytesInput{data: data}
}

var _ Input = (*BytesInput)(nil)

// Read implements io.Reader.
func (in *BytesInput) Read(p []byte) (int, error) {
	if in.pos >= uint64(len(in.data)) {
		return 0, io.EOF
	}
	n := copy(p, in.data[in.pos:])
	in.pos += uint64(n)
	return n, nil
}

// ReadByte implements io.ByteReader.
func (in *BytesInput) ReadByte() (byte, error) {
	if in.pos >= uint64(len(in.data)) {
		return 0, io.EOF
	}
	c := in.data[in.pos]
	in.pos++
	return c, nil
}

// ReadUvarint reads one unsigned varint.
func (in *BytesInput) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(in)
}

// Position returns the current cursor position.
func (in *BytesInput) Position() uint64 {
	return in.pos
}

// Length returns the slice length.
func (in *BytesInput) Length() uint64 {
	return uint64(len(in.data))
}

// Seek repositions the cursor. Seeking to Length() is valid and leaves the
// cursor at end of input.
func (in *BytesInput) Seek(pos uint64) error {
	if pos > uint64(len(in.data)) {
		return fmt.Errorf("store: seek out of bounds (%d, len=%d)", pos, len(in.data))
	}
	in.pos = pos
	return nil
}

// Dup returns an independently positioned cursor over the same bytes.
func (in *BytesInput) Dup() Input {
	dup := *in
	return &dup
}

// Reopen returns a fresh cursor over the same bytes at the current position.
func (in *BytesInput) Reopen() (Input, error) {
	return &BytesInput{data: in.data, pos: in.pos}, nil
}
