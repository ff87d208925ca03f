package postings

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/skipgo"
	"github.com/hupe1980/skipgo/store"
)

// ListWriter serializes one postings list: delta-encoded document blocks
// followed by a multi-level skip region over them. A ListWriter is reused
// across lists through Reset; buffers keep their allocations.
//
// Documents must be added in strictly ascending order and must be greater
// than zero.
type ListWriter struct {
	blockSize   int
	skipFactor  int
	maxLevels   int
	compression CompressionType

	skip *skipgo.Writer
	docs *store.Buffer

	block   []skipgo.DocID
	scratch []byte

	count uint64
	total uint64
	last  skipgo.DocID

	// blockLast is the last document of the most recently flushed block;
	// checkpoints record it together with the docs offset at flush time.
	blockLast skipgo.DocID
}

// NewListWriter creates a ListWriter with the given options. Reset must be
// called before the first Add.
func NewListWriter(opts ...Option) *ListWriter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return newListWriter(o)
}

func newListWriter(o options) *ListWriter {
	w := &ListWriter{
		blockSize:   o.blockSize,
		skipFactor:  o.skipFactor,
		maxLevels:   o.maxSkipLevels,
		compression: o.compression,
		skip:        skipgo.NewWriter(o.blockSize, o.skipFactor),
		docs:        store.NewBuffer(),
	}
	w.block = make([]skipgo.DocID, 0, o.blockSize)

	return w
}

// Reset prepares the writer for a list of totalCount documents. The total
// determines how many skip levels the list gets; Finish fails when the
// number of added documents does not match.
func (w *ListWriter) Reset(totalCount uint64) {
	w.skip.Prepare(w.maxLevels, totalCount, w.writeCheckpoint)
	w.docs.Reset()
	w.block = w.block[:0]
	w.count = 0
	w.total = totalCount
	w.last = 0
	w.blockLast = 0
}

// Add appends one document to the list.
func (w *ListWriter) Add(doc skipgo.DocID) error {
	if doc <= w.last {
		return fmt.Errorf("postings: document %d out of order after %d", doc, w.last)
	}

	w.block = append(w.block, doc)
	w.last = doc
	w.count++

	if len(w.block) < w.blockSize {
		return nil
	}

	if err := w.flushBlock(); err != nil {
		return err
	}

	// Checkpoints describe fully flushed blocks only, so the skip writer
	// runs after the block hits the docs buffer.
	if w.skip.NumLevels() > 0 {
		return w.skip.Skip(w.count)
	}

	return nil
}

// Finish flushes the trailing partial block and serializes the list to out:
// document count, block size, skip factor, compression type, the length and
// bytes of the docs section, then the skip region.
func (w *ListWriter) Finish(out store.Output) error {
	if w.count != w.total {
		return fmt.Errorf("postings: list declared %d documents, got %d", w.total, w.count)
	}

	if len(w.block) > 0 {
		if err := w.flushBlock(); err != nil {
			return err
		}
	}

	if err := out.WriteUvarint(w.count); err != nil {
		return err
	}
	if err := out.WriteUvarint(uint64(w.blockSize)); err != nil {
		return err
	}
	if err := out.WriteUvarint(uint64(w.skipFactor)); err != nil {
		return err
	}
	if err := out.WriteByte(byte(w.compression)); err != nil {
		return err
	}

	if err := out.WriteUvarint(w.docs.Position()); err != nil {
		return err
	}
	if _, err := out.Write(w.docs.Bytes()); err != nil {
		return err
	}

	return w.skip.Flush(out)
}

// Count returns the number of documents added since the last Reset.
func (w *ListWriter) Count() uint64 {
	return w.count
}

func (w *ListWriter) flushBlock() error {
	w.scratch = w.scratch[:0]

	prev := w.blockLast
	for _, doc := range w.block {
		w.scratch = binary.AppendUvarint(w.scratch, uint64(doc-prev))
		prev = doc
	}

	if err := writeBlock(w.docs, w.scratch, w.compression); err != nil {
		return err
	}

	w.blockLast = w.block[len(w.block)-1]
	w.block = w.block[:0]

	return nil
}

// writeCheckpoint records the state after the blocks flushed so far: the
// last document they contain and the docs offset where the next block
// begins. The payload is identical at every level, so coarse checkpoints
// can reposition a reader without replaying finer ones.
func (w *ListWriter) writeCheckpoint(_ int, out store.Output) error {
	if err := out.WriteUvarint(uint64(w.blockLast)); err != nil {
		return err
	}
	return out.WriteUvarint(w.docs.Position())
}
