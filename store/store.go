package store

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Output is an append-only, position-tracking byte sink.
// All multi-byte integers written through it use unsigned varint encoding.
type Output interface {
	io.Writer
	io.ByteWriter

	// WriteUvarint appends v in unsigned varint encoding.
	WriteUvarint(v uint64) error

	// Position returns the number of bytes written so far.
	Position() uint64
}

// Input is a positioned cursor over immutable bytes.
//
// Positions are absolute within the input's own coordinate space; a bounded
// view (such as one skip-list level) presents its window as the whole space.
// Duplicates and reopened handles never share cursor state, so independent
// Inputs over the same storage can be read concurrently.
type Input interface {
	io.Reader
	io.ByteReader

	// ReadUvarint reads one unsigned varint.
	ReadUvarint() (uint64, error)

	// Position returns the current cursor position.
	Position() uint64

	// Length returns the total number of addressable bytes.
	Length() uint64

	// Seek repositions the cursor to pos.
	Seek(pos uint64) error

	// Dup returns an independently positioned cursor sharing the already-open
	// underlying storage. Cheap; intended for per-iterator cloning.
	Dup() Input

	// Reopen returns a cursor backed by a fresh handle to the same storage,
	// positioned where this one is, for reopen-after-eviction scenarios.
	// More expensive than Dup.
	Reopen() (Input, error)
}

// BlobStore is an abstraction for accessing immutable data blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a new writable blob.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that support zero-copy access.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// WritableBlob is a write-only handle to a blob under construction.
// The blob becomes visible when Close returns nil.
type WritableBlob interface {
	io.Writer
	io.Closer

	// Sync flushes buffered data to stable storage where the backend
	// supports it.
	Sync() error
}
