package skipgo

import (
	"github.com/hupe1980/skipgo/store"
)

// WriteCheckpoint encodes one checkpoint for the given level into out.
// Typical implementations write the current document identifier plus an
// auxiliary pointer into the primary postings stream. level 0 is the finest.
type WriteCheckpoint func(level int, out store.Output) error

// Writer accumulates skip-list checkpoints across levels while a postings
// list is written sequentially.
//
// A Writer is used single-threaded and is reused across many postings lists
// through Reset; level buffers keep their allocations between lists.
type Writer struct {
	skip0 uint64
	skipN uint64

	// levels holds the active level buffers, index 0 = finest. pool keeps
	// every buffer ever allocated so Prepare can resize without reallocating.
	levels []*store.Buffer
	pool   []*store.Buffer

	write WriteCheckpoint
}

// NewWriter creates a Writer recording a checkpoint every skip0 entries at
// level 0 and every skip0*skipN^i entries at level i. The same parameters
// must be passed to the Reader that loads the flushed region.
func NewWriter(skip0, skipN int) *Writer {
	if skip0 < 1 {
		panic("skipgo: level-0 skip interval must be positive")
	}
	if skipN < 2 {
		panic("skipgo: skip factor must be at least 2")
	}
	return &Writer{
		skip0: uint64(skip0),
		skipN: uint64(skipN),
	}
}

// Prepare configures the Writer for a postings list of totalCount entries.
// The level count is the computed maximum for totalCount, capped at
// maxLevels (treated as at least 1). Any previous configuration is
// discarded; buffers are reused.
func (w *Writer) Prepare(maxLevels int, totalCount uint64, write WriteCheckpoint) {
	if maxLevels < 1 {
		maxLevels = 1
	}
	n := maxLevelCount(w.skip0, w.skipN, totalCount)
	if n > maxLevels {
		n = maxLevels
	}

	for len(w.pool) < n {
		w.pool = append(w.pool, store.NewBuffer())
	}
	w.levels = w.pool[:n]
	for _, l := range w.levels {
		l.Reset()
	}
	w.write = write
}

// Skip is called once per appended entry with the running entry count. It is
// a no-op unless count is a multiple of skip0; otherwise it records a
// checkpoint at level 0 and promotes through coarser levels while the
// divided count remains a multiple of skipN. Each checkpoint above level 0
// is followed by a back-pointer into the level beneath it.
//
// Calling Skip on an unprepared Writer, or one prepared with zero levels, is
// a caller bug and panics.
func (w *Writer) Skip(count uint64) error {
	if len(w.levels) == 0 {
		panic("skipgo: Skip called on an unprepared writer")
	}

	if count%w.skip0 != 0 {
		return nil
	}

	// Level 0.
	l0 := w.levels[0]
	if err := w.write(0, l0); err != nil {
		return err
	}
	count /= w.skip0
	child := l0.Position()

	// Promote through levels 1..n while divisibility holds.
	for i := 1; i < len(w.levels) && count%w.skipN == 0; i++ {
		buf := w.levels[i]
		if err := w.write(i, buf); err != nil {
			return err
		}

		// The back-pointer targets the finer level's offset as of this
		// checkpoint; capture our own offset first so the next level up
		// points past the pointer we are about to append.
		next := buf.Position()
		if err := buf.WriteUvarint(child); err != nil {
			return err
		}
		child = next

		count /= w.skipN
	}

	return nil
}

// Flush serializes all non-empty levels to out, coarsest first: the count of
// non-empty levels, then each level's byte length and payload. Levels that
// never received a checkpoint are omitted entirely.
func (w *Writer) Flush(out store.Output) error {
	// A checkpoint at level i implies one at every finer level, so the first
	// non-empty level scanning coarsest-down bounds the whole region.
	top := -1
	for i := len(w.levels) - 1; i >= 0; i-- {
		if w.levels[i].Position() > 0 {
			top = i
			break
		}
	}

	if err := out.WriteUvarint(uint64(top + 1)); err != nil {
		return err
	}

	for i := top; i >= 0; i-- {
		buf := w.levels[i]
		if err := out.WriteUvarint(buf.Position()); err != nil {
			return err
		}
		if _, err := out.Write(buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// Reset clears every level's contents while preserving configuration and
// allocations, ready for the next postings list.
func (w *Writer) Reset() {
	for _, l := range w.levels {
		l.Reset()
	}
}

// NumLevels returns the configured level count.
func (w *Writer) NumLevels() int {
	return len(w.levels)
}
