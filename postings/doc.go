// Package postings provides a block-compressed postings-list codec built on
// the skipgo skip list.
//
// One postings list is an ascending sequence of document identifiers,
// delta-encoded in fixed-size blocks with optional LZ4 or ZSTD block
// compression. Every block boundary records a skip checkpoint, so
// Iterator.Advance can jump close to a target document and decode only the
// block that contains it.
//
// MemoryIndex accumulates term → document postings in memory (analyzed text
// or raw terms) and flushes them as one immutable segment blob; Segment
// reopens a flushed blob and hands out per-term Iterators.
//
//	idx := postings.NewMemoryIndex()
//	_ = idx.Add(1, "the quick brown fox")
//	_ = idx.Add(2, "quick brown dogs")
//	_ = idx.Save(ctx, store.NewLocalStore(dir), "postings.seg")
//
//	seg, _ := postings.OpenSegment(ctx, store.NewLocalStore(dir), "postings.seg")
//	it, _ := seg.Iterator("quick")
//	doc, _ := it.Advance(2)
package postings
