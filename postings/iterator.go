package postings

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/skipgo"
	"github.com/hupe1980/skipgo/store"
)

// checkpoint mirrors what ListWriter records per skip entry: the last
// document of the blocks it covers and the docs offset right after them.
type checkpoint struct {
	doc    skipgo.DocID
	endOff uint64
	valid  bool
}

// Iterator walks one serialized postings list. Next yields documents in
// ascending order; Advance uses the skip region to jump over whole blocks.
// Doc returns zero before the first Next and Exhausted past the end.
//
// An Iterator is not safe for concurrent use.
type Iterator struct {
	origin store.Input

	count       uint64
	blockSize   int
	skipFactor  int
	compression CompressionType

	in      store.Input
	docBase uint64

	skip *skipgo.Reader

	block    []skipgo.DocID
	blockIdx int
	raw      []byte

	// consumed counts documents emitted so far; prev is the delta baseline
	// for the next block.
	consumed uint64
	prev     skipgo.DocID
	doc      skipgo.DocID

	// Advance bookkeeping: below is the deepest checkpoint seen with a
	// document before the current target, finPrev/finCur the last two
	// level-0 checkpoints read. Between them lies the exact resume point
	// for whatever count the skip reader reports.
	target  skipgo.DocID
	below   checkpoint
	finPrev checkpoint
	finCur  checkpoint
}

// NewIterator opens a postings list at the current position of in. The
// input is consumed through duplicated cursors, so the caller may keep
// using it afterwards.
func NewIterator(in store.Input) (*Iterator, error) {
	origin := in.Dup()

	count, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("postings: read document count: %w", err)
	}
	blockSize, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("postings: read block size: %w", err)
	}
	skipFactor, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("postings: read skip factor: %w", err)
	}
	comp, err := in.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("postings: read compression type: %w", err)
	}
	docLen, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("postings: read docs length: %w", err)
	}

	if blockSize < 1 || skipFactor < 2 || comp > byte(CompressionZSTD) {
		return nil, fmt.Errorf("postings: implausible list header: %w", ErrCorruptedList)
	}

	docBase := in.Position()

	it := &Iterator{
		origin:      origin,
		count:       count,
		blockSize:   int(blockSize),
		skipFactor:  int(skipFactor),
		compression: CompressionType(comp),
		in:          in.Dup(),
		docBase:     docBase,
		skip:        skipgo.NewReader(int(blockSize), int(skipFactor)),
	}

	skipIn := in.Dup()
	if err := skipIn.Seek(docBase + docLen); err != nil {
		return nil, fmt.Errorf("postings: seek to skip region: %w", err)
	}
	if err := it.skip.Prepare(skipIn, it.readCheckpoint); err != nil {
		return nil, fmt.Errorf("postings: load skip region: %w", err)
	}

	return it, nil
}

// Doc returns the current document.
func (it *Iterator) Doc() skipgo.DocID {
	return it.doc
}

// Count returns the total number of documents in the list.
func (it *Iterator) Count() uint64 {
	return it.count
}

// Next moves to the next document and returns it, or Exhausted past the
// end of the list.
func (it *Iterator) Next() (skipgo.DocID, error) {
	if it.blockIdx >= len(it.block) {
		if it.consumed >= it.count {
			it.doc = skipgo.Exhausted
			return it.doc, nil
		}
		if err := it.fill(); err != nil {
			return 0, err
		}
	}

	it.doc = it.block[it.blockIdx]
	it.blockIdx++
	it.consumed++

	return it.doc, nil
}

// Advance moves to the first document >= target and returns it, or
// Exhausted when no such document exists. Targets behind the current
// document leave the iterator where it is.
func (it *Iterator) Advance(target skipgo.DocID) (skipgo.DocID, error) {
	if it.doc >= target {
		return it.doc, nil
	}

	if it.skip.NumLevels() > 0 {
		it.target = target

		skippable, err := it.skip.Seek(target)
		if err != nil {
			return 0, err
		}

		if skippable > it.consumed {
			// The skip reader reports how many documents are safely
			// behind the target; the matching resume offset is the
			// farthest checkpoint we saw on the way down.
			cp := it.below
			if it.finPrev.valid && (!cp.valid || it.finPrev.endOff > cp.endOff) {
				cp = it.finPrev
			}
			if cp.valid {
				if err := it.in.Seek(it.docBase + cp.endOff); err != nil {
					return 0, err
				}
				it.prev = cp.doc
				it.consumed = skippable
				it.block = it.block[:0]
				it.blockIdx = 0
			}
		}
	}

	for {
		doc, err := it.Next()
		if err != nil {
			return 0, err
		}
		if doc >= target {
			return doc, nil
		}
	}
}

// Clone returns a fresh iterator over the same list, positioned before the
// first document.
func (it *Iterator) Clone() (*Iterator, error) {
	return NewIterator(it.origin.Dup())
}

// readCheckpoint decodes one checkpoint for the skip reader and tracks the
// candidates Advance needs to reposition the block cursor.
func (it *Iterator) readCheckpoint(level int, in store.Input) (skipgo.DocID, error) {
	if in.Position() >= in.Length() {
		if level == 0 {
			it.finPrev, it.finCur = it.finCur, checkpoint{doc: skipgo.Exhausted}
		}
		return skipgo.Exhausted, nil
	}

	doc, err := in.ReadUvarint()
	if err != nil {
		return 0, fmt.Errorf("postings: read checkpoint document: %w", err)
	}
	endOff, err := in.ReadUvarint()
	if err != nil {
		return 0, fmt.Errorf("postings: read checkpoint offset: %w", err)
	}

	cp := checkpoint{doc: skipgo.DocID(doc), endOff: endOff, valid: true}
	if level == 0 {
		it.finPrev, it.finCur = it.finCur, cp
	}
	if cp.doc < it.target && (!it.below.valid || cp.endOff > it.below.endOff) {
		it.below = cp
	}

	return cp.doc, nil
}

// fill decodes the next block of documents from the docs section.
func (it *Iterator) fill() error {
	n := it.blockSize
	if remaining := it.count - it.consumed; remaining < uint64(n) {
		n = int(remaining)
	}

	raw, err := readBlock(it.in, it.compression, it.raw)
	if err != nil {
		return fmt.Errorf("postings: read block: %w", err)
	}
	it.raw = raw

	it.block = it.block[:0]
	prev := it.prev
	off := 0

	for i := 0; i < n; i++ {
		delta, size := binary.Uvarint(raw[off:])
		if size <= 0 || delta == 0 {
			return fmt.Errorf("postings: bad document delta: %w", ErrCorruptedList)
		}
		off += size
		prev += skipgo.DocID(delta)
		it.block = append(it.block, prev)
	}

	if off != len(raw) {
		return fmt.Errorf("postings: %d trailing block bytes: %w", len(raw)-off, ErrCorruptedList)
	}

	it.prev = prev
	it.blockIdx = 0

	return nil
}
