package postings

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/hupe1980/skipgo/store"
)

const (
	segmentMagic   uint32 = 0x534b5031 // "SKP1"
	segmentVersion byte   = 1
)

func writeSegmentHeader(out store.Output, termCount uint64) error {
	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], segmentMagic)

	if _, err := out.Write(magic[:]); err != nil {
		return err
	}
	if err := out.WriteByte(segmentVersion); err != nil {
		return err
	}

	return out.WriteUvarint(termCount)
}

// termEntry locates one term's serialized list inside the segment.
type termEntry struct {
	term   string
	offset uint64
	length uint64
}

func lessTermEntry(a, b *termEntry) bool {
	return a.term < b.term
}

// Segment is an immutable, flushed index. Lookups hand out independent
// iterators over a shared input, so a Segment is safe for concurrent reads.
type Segment struct {
	in     store.Input
	terms  *btree.BTreeG[*termEntry]
	closed atomic.Bool
}

// OpenSegment opens the named segment blob from s.
func OpenSegment(ctx context.Context, s store.BlobStore, name string) (*Segment, error) {
	in, err := store.OpenInput(ctx, s, name)
	if err != nil {
		return nil, err
	}

	seg, err := NewSegment(in)
	if err != nil {
		in.Close()
		return nil, err
	}

	return seg, nil
}

// NewSegment parses a segment from the current position of in. The input
// is retained; do not reuse it elsewhere.
func NewSegment(in store.Input) (*Segment, error) {
	var magic [4]byte
	if _, err := io.ReadFull(in, magic[:]); err != nil {
		return nil, fmt.Errorf("postings: read segment magic: %w", err)
	}
	if binary.BigEndian.Uint32(magic[:]) != segmentMagic {
		return nil, fmt.Errorf("postings: bad segment magic: %w", ErrCorruptedList)
	}

	version, err := in.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("postings: read segment version: %w", err)
	}
	if version != segmentVersion {
		return nil, fmt.Errorf("postings: unsupported segment version %d", version)
	}

	termCount, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("postings: read term count: %w", err)
	}

	terms := btree.NewG(btreeDegree, lessTermEntry)
	var prev string

	for i := uint64(0); i < termCount; i++ {
		termLen, err := in.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("postings: read term length: %w", err)
		}

		term := make([]byte, termLen)
		if _, err := io.ReadFull(in, term); err != nil {
			return nil, fmt.Errorf("postings: read term: %w", err)
		}

		listLen, err := in.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("postings: read list length: %w", err)
		}

		entry := &termEntry{
			term:   string(term),
			offset: in.Position(),
			length: listLen,
		}
		if entry.term <= prev && i > 0 {
			return nil, fmt.Errorf("postings: term table out of order at %q: %w", entry.term, ErrCorruptedList)
		}
		prev = entry.term

		terms.ReplaceOrInsert(entry)

		if err := in.Seek(entry.offset + listLen); err != nil {
			return nil, fmt.Errorf("postings: skip list of %q: %w", entry.term, err)
		}
	}

	return &Segment{in: in, terms: terms}, nil
}

// Iterator returns an iterator over term's postings list, or
// ErrTermNotFound.
func (s *Segment) Iterator(term string) (*Iterator, error) {
	if s.closed.Load() {
		return nil, ErrSegmentClosed
	}

	entry, ok := s.terms.Get(&termEntry{term: term})
	if !ok {
		return nil, fmt.Errorf("postings: %q: %w", term, ErrTermNotFound)
	}

	in := s.in.Dup()
	if err := in.Seek(entry.offset); err != nil {
		return nil, err
	}

	return NewIterator(in)
}

// Contains reports whether term is present.
func (s *Segment) Contains(term string) bool {
	if s.closed.Load() {
		return false
	}
	_, ok := s.terms.Get(&termEntry{term: term})
	return ok
}

// Terms returns all terms in ascending order.
func (s *Segment) Terms() []string {
	terms := make([]string, 0, s.terms.Len())
	s.terms.Ascend(func(e *termEntry) bool {
		terms = append(terms, e.term)
		return true
	})
	return terms
}

// NumTerms returns the number of terms in the segment.
func (s *Segment) NumTerms() int {
	return s.terms.Len()
}

// Close releases the underlying input. Iterators handed out earlier must
// not be used afterwards.
func (s *Segment) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if closer, ok := s.in.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
