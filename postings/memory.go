package postings

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/btree"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/skipgo"
	"github.com/hupe1980/skipgo/store"
)

const btreeDegree = 32

// termDocs is one term's document set while the index is mutable.
type termDocs struct {
	term string
	docs *roaring64.Bitmap
}

func lessTermDocs(a, b *termDocs) bool {
	return a.term < b.term
}

// MemoryIndex accumulates term -> document mappings in memory and flushes
// them as an immutable segment. Safe for concurrent use.
type MemoryIndex struct {
	mu       sync.RWMutex
	opts     options
	analyzer *Analyzer
	logger   *skipgo.Logger

	terms *btree.BTreeG[*termDocs]
	docs  *roaring64.Bitmap
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex(opts ...Option) *MemoryIndex {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.analyzer == nil {
		o.analyzer = NewAnalyzer()
	}

	return &MemoryIndex{
		opts:     o,
		analyzer: o.analyzer,
		logger:   o.logger,
		terms:    btree.NewG(btreeDegree, lessTermDocs),
		docs:     roaring64.New(),
	}
}

// Add analyzes text and records doc under every resulting term.
func (idx *MemoryIndex) Add(doc skipgo.DocID, text string) error {
	if doc == 0 || doc == skipgo.Exhausted {
		return fmt.Errorf("postings: invalid document id %d", doc)
	}

	terms := idx.analyzer.Analyze(text)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, term := range terms {
		idx.addTerm(term, doc)
	}
	idx.docs.Add(uint64(doc))

	return nil
}

// AddTerm records doc under a single pre-analyzed term.
func (idx *MemoryIndex) AddTerm(term string, doc skipgo.DocID) error {
	if doc == 0 || doc == skipgo.Exhausted {
		return fmt.Errorf("postings: invalid document id %d", doc)
	}
	if term == "" {
		return fmt.Errorf("postings: empty term")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.addTerm(term, doc)
	idx.docs.Add(uint64(doc))

	return nil
}

func (idx *MemoryIndex) addTerm(term string, doc skipgo.DocID) {
	key := &termDocs{term: term}
	if td, ok := idx.terms.Get(key); ok {
		td.docs.Add(uint64(doc))
		return
	}

	key.docs = roaring64.New()
	key.docs.Add(uint64(doc))
	idx.terms.ReplaceOrInsert(key)
}

// Terms returns all indexed terms in ascending order.
func (idx *MemoryIndex) Terms() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	terms := make([]string, 0, idx.terms.Len())
	idx.terms.Ascend(func(td *termDocs) bool {
		terms = append(terms, td.term)
		return true
	})

	return terms
}

// NumTerms returns the number of distinct terms.
func (idx *MemoryIndex) NumTerms() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.terms.Len()
}

// NumDocs returns the number of distinct documents.
func (idx *MemoryIndex) NumDocs() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.docs.GetCardinality()
}

// Cardinality returns the document count of one term, zero if absent.
func (idx *MemoryIndex) Cardinality(term string) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if td, ok := idx.terms.Get(&termDocs{term: term}); ok {
		return td.docs.GetCardinality()
	}

	return 0
}

// Flush serializes the index as a segment to out. Term lists are encoded
// in parallel, then concatenated in term order. The index stays usable
// afterwards; Flush sees a snapshot of the terms present when it starts.
func (idx *MemoryIndex) Flush(ctx context.Context, out store.Output) error {
	idx.mu.RLock()
	entries := make([]*termDocs, 0, idx.terms.Len())
	idx.terms.Ascend(func(td *termDocs) bool {
		entries = append(entries, &termDocs{term: td.term, docs: td.docs.Clone()})
		return true
	})
	numDocs := idx.docs.GetCardinality()
	idx.mu.RUnlock()

	encoded := make([][]byte, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, td := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			lw := newListWriter(idx.opts)
			lw.Reset(td.docs.GetCardinality())

			it := td.docs.Iterator()
			for it.HasNext() {
				if err := lw.Add(skipgo.DocID(it.Next())); err != nil {
					return fmt.Errorf("postings: encode term %q: %w", td.term, err)
				}
			}

			buf := store.NewBuffer()
			if err := lw.Finish(buf); err != nil {
				return fmt.Errorf("postings: finish term %q: %w", td.term, err)
			}
			encoded[i] = buf.Bytes()

			idx.logger.WithTerm(td.term).Debug("encoded postings list",
				"docs", td.docs.GetCardinality(),
				"bytes", buf.Len())

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeSegmentHeader(out, uint64(len(entries))); err != nil {
		return err
	}

	for i, td := range entries {
		if err := out.WriteUvarint(uint64(len(td.term))); err != nil {
			return err
		}
		if _, err := out.Write([]byte(td.term)); err != nil {
			return err
		}
		if err := out.WriteUvarint(uint64(len(encoded[i]))); err != nil {
			return err
		}
		if _, err := out.Write(encoded[i]); err != nil {
			return err
		}
	}

	idx.logger.WithCount(len(entries)).Info("flushed segment",
		"docs", numDocs,
		"bytes", out.Position())

	return nil
}

// Save flushes the index into a named blob.
func (idx *MemoryIndex) Save(ctx context.Context, s store.BlobStore, name string) error {
	blob, err := s.Create(ctx, name)
	if err != nil {
		return err
	}

	out := store.NewCountingOutput(blob)
	if err := idx.Flush(ctx, out); err != nil {
		blob.Close()
		return err
	}

	return blob.Close()
}
