// Package skipgo implements a two-sided multi-level skip list for postings
// lists: ascending sequences of document identifiers as stored by an
// inverted index.
//
// A Writer observes entries as they are appended and records checkpoints at
// exponentially growing intervals — every skip0 entries at level 0, every
// skip0*skipN^i entries at level i. Each checkpoint above level 0 carries a
// byte offset into the next finer level, so a reader can descend directly
// instead of scanning. A Reader loads the flushed levels and answers
// Seek(target) with the number of entries that may be skipped without
// decoding; the caller then decodes linearly from that position to confirm
// the target.
//
// What a checkpoint contains is owned by the caller: the Writer invokes a
// WriteCheckpoint callback per level, the Reader a ReadCheckpoint callback.
// The postings subpackage provides a block postings codec built on these
// hooks; the store subpackage provides the byte-level inputs and outputs.
//
// # Usage
//
//	w := skipgo.NewWriter(16, 8)
//	w.Prepare(10, total, writeCheckpoint)
//	for i := uint64(1); i <= total; i++ {
//	    // append entry i to the postings stream, then:
//	    if err := w.Skip(i); err != nil { ... }
//	}
//	var buf store.Buffer
//	w.Flush(&buf)
//
//	r := skipgo.NewReader(16, 8)
//	if err := r.Prepare(buf.Input(), readCheckpoint); err != nil { ... }
//	skipped, err := r.Seek(target)
//	// decode entries skipped+1..target linearly
//
// # Format
//
// All integers are unsigned varints:
//
//	skip_region := levelCount level{levelCount}
//	level       := length payload(length bytes)
//
// levelCount counts only levels holding at least one checkpoint, stored
// coarsest first. Level payloads are opaque to this package apart from the
// child back-pointers interleaved by the Writer.
//
// # Concurrency
//
// Writers and Readers are single-threaded. Concurrency comes from instances:
// every reader level reads through its own duplicated cursor over shared
// immutable bytes, so any number of Readers can serve the same region in
// parallel.
package skipgo
