package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlobInput(t *testing.T, data []byte) *BlobInput {
	t.Helper()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "blob", data))

	in, err := OpenInput(ctx, s, "blob")
	require.NoError(t, err)
	t.Cleanup(func() { in.Close() })

	return in
}

func TestBlobInputRead(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 1024)
	in := newTestBlobInput(t, data)

	assert.Equal(t, uint64(len(data)), in.Length())

	got := make([]byte, len(data))
	_, err := io.ReadFull(in, got)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, uint64(len(data)), in.Position())

	_, err = in.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBlobInputUvarint(t *testing.T) {
	var data []byte
	for v := uint64(1); v < 1<<40; v <<= 7 {
		data = binary.AppendUvarint(data, v)
	}
	in := newTestBlobInput(t, data)

	for v := uint64(1); v < 1<<40; v <<= 7 {
		got, err := in.ReadUvarint()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBlobInputSeek(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	in := newTestBlobInput(t, data)

	require.NoError(t, in.Seek(200))
	b, err := in.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(200), b)

	// Backward seeks work too.
	require.NoError(t, in.Seek(10))
	b, err = in.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(10), b)

	assert.Error(t, in.Seek(uint64(len(data))+1))
}

func TestBlobInputDup(t *testing.T) {
	in := newTestBlobInput(t, []byte{10, 20, 30, 40})
	require.NoError(t, in.Seek(1))

	dup := in.Dup()
	assert.Equal(t, uint64(1), dup.Position())

	b, err := dup.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(20), b)

	// The original cursor is unaffected.
	b, err = in.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(20), b)
}

func TestBlobInputReopen(t *testing.T) {
	in := newTestBlobInput(t, []byte{10, 20, 30, 40})
	require.NoError(t, in.Seek(2))

	fresh, err := in.Reopen()
	require.NoError(t, err)
	defer fresh.(io.Closer).Close()

	assert.Equal(t, uint64(2), fresh.Position())

	b, err := fresh.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(30), b)
}

func TestCountingOutput(t *testing.T) {
	var sink bytes.Buffer
	out := NewCountingOutput(&sink)

	require.NoError(t, out.WriteUvarint(300))
	require.NoError(t, out.WriteByte(9))
	_, err := out.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, uint64(sink.Len()), out.Position())
}

// opaqueBlob hides Bytes so BlobInput has to go through its read-ahead
// buffer instead of the zero-copy path.
type opaqueBlob struct {
	Blob
}

type opaqueStore struct {
	BlobStore
}

func (s opaqueStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return opaqueBlob{Blob: b}, nil
}

func TestBlobInputBufferedPath(t *testing.T) {
	ctx := context.Background()

	// Larger than the read-ahead buffer so reads cross fill boundaries.
	data := make([]byte, 3*blobReadBuffer+17)
	for i := range data {
		data[i] = byte(i * 31)
	}

	s := opaqueStore{BlobStore: NewMemoryStore()}
	require.NoError(t, s.Put(ctx, "blob", data))

	in, err := OpenInput(ctx, s, "blob")
	require.NoError(t, err)
	defer in.Close()

	// Byte-at-a-time across the first refill.
	for i := 0; i < blobReadBuffer+10; i++ {
		b, err := in.ReadByte()
		require.NoError(t, err)
		require.Equal(t, data[i], b)
	}

	// A read larger than the buffer takes the bypass path.
	big := make([]byte, 2*blobReadBuffer)
	_, err = io.ReadFull(in, big)
	require.NoError(t, err)
	assert.Equal(t, data[blobReadBuffer+10:3*blobReadBuffer+10], big)

	rest := make([]byte, 7)
	_, err = io.ReadFull(in, rest)
	require.NoError(t, err)
	assert.Equal(t, data[len(data)-7:], rest)

	_, err = in.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}
