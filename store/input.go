package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// blobReadBuffer is the read-ahead size for non-mappable blobs. Remote
// backends pay one ranged GET per fill, so this trades request count against
// over-read.
const blobReadBuffer = 64 * 1024

// BlobInput adapts a Blob into an Input.
//
// Mappable blobs are read zero-copy; everything else goes through an internal
// read-ahead buffer over ReadAt. Dup shares the open blob, Reopen fetches a
// fresh handle from the originating store. Close releases the blob; a Dup
// must not outlive the input it was duplicated from.
type BlobInput struct {
	store BlobStore
	name  string
	blob  Blob
	size  uint64
	pos   uint64

	// Zero-copy fast path for mappable blobs.
	data []byte

	// Read-ahead state for the ReadAt path.
	buf    []byte
	bufOff uint64
}

// OpenInput opens the named blob in s and returns a cursor over it.
func OpenInput(ctx context.Context, s BlobStore, name string) (*BlobInput, error) {
	blob, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewBlobInput(s, name, blob), nil
}

// NewBlobInput wraps an already-open blob. store and name are retained for
// Reopen; pass a nil store if reopening is not needed.
func NewBlobInput(s BlobStore, name string, blob Blob) *BlobInput {
	in := &BlobInput{
		store: s,
		name:  name,
		blob:  blob,
		size:  uint64(blob.Size()),
	}
	if m, ok := blob.(Mappable); ok {
		if data, err := m.Bytes(); err == nil {
			in.data = data
		}
	}
	return in
}

var _ Input = (*BlobInput)(nil)

// Read implements io.Reader.
func (in *BlobInput) Read(p []byte) (int, error) {
	if in.pos >= in.size {
		return 0, io.EOF
	}

	if in.data != nil {
		n := copy(p, in.data[in.pos:])
		in.pos += uint64(n)
		return n, nil
	}

	// Large reads bypass the read-ahead buffer.
	if !in.buffered() && len(p) >= blobReadBuffer {
		n, err := in.blob.ReadAt(p, int64(in.pos))
		in.pos += uint64(n)
		if n > 0 && err == io.EOF {
			err = nil
		}
		return n, err
	}

	if !in.buffered() {
		if err := in.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, in.buf[in.pos-in.bufOff:])
	in.pos += uint64(n)
	return n, nil
}

// ReadByte implements io.ByteReader.
func (in *BlobInput) ReadByte() (byte, error) {
	if in.pos >= in.size {
		return 0, io.EOF
	}

	if in.data != nil {
		c := in.data[in.pos]
		in.pos++
		return c, nil
	}

	if !in.buffered() {
		if err := in.fill(); err != nil {
			return 0, err
		}
	}
	c := in.buf[in.pos-in.bufOff]
	in.pos++
	return c, nil
}

// ReadUvarint reads one unsigned varint.
func (in *BlobInput) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(in)
}

// Position returns the current cursor position.
func (in *BlobInput) Position() uint64 {
	return in.pos
}

// Length returns the blob size in bytes.
func (in *BlobInput) Length() uint64 {
	return in.size
}

// Seek repositions the cursor. The read-ahead buffer is kept; a position
// inside it stays warm.
func (in *BlobInput) Seek(pos uint64) error {
	if pos > in.size {
		return fmt.Errorf("store: seek out of bounds (%d, size=%d)", pos, in.size)
	}
	in.pos = pos
	return nil
}

// Dup returns an independently positioned cursor sharing the open blob.
func (in *BlobInput) Dup() Input {
	dup := *in
	// Fresh read-ahead state; the original keeps its warm buffer.
	dup.buf = nil
	dup.bufOff = 0
	return &dup
}

// Reopen fetches a fresh handle from the originating store, positioned at the
// current cursor.
func (in *BlobInput) Reopen() (Input, error) {
	if in.store == nil {
		return nil, fmt.Errorf("store: blob input for %q has no store to reopen from", in.name)
	}
	reopened, err := OpenInput(context.Background(), in.store, in.name)
	if err != nil {
		return nil, err
	}
	if err := reopened.Seek(in.pos); err != nil {
		return nil, err
	}
	return reopened, nil
}

// Close releases the underlying blob. Duplicates share the blob and become
// invalid once the owner closes it.
func (in *BlobInput) Close() error {
	return in.blob.Close()
}

func (in *BlobInput) buffered() bool {
	return in.pos >= in.bufOff && in.pos < in.bufOff+uint64(len(in.buf))
}

func (in *BlobInput) fill() error {
	if in.buf == nil {
		in.buf = make([]byte, 0, blobReadBuffer)
	}
	n, err := in.blob.ReadAt(in.buf[:cap(in.buf)], int64(in.pos))
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return err
	}
	in.buf = in.buf[:n]
	in.bufOff = in.pos
	return nil
}
