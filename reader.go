package skipgo

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/skipgo/store"
)

// maxStoredLevels bounds the level count a region may declare. With a skip
// factor of at least 2 even a full 64-bit entry count never produces more
// levels than this; a larger count is corruption, not data.
const maxStoredLevels = 64

// ReadCheckpoint decodes the next checkpoint at the given level from in and
// returns the document identifier it implies, or Exhausted once the level's
// window holds no further checkpoints. level 0 is the finest. in is bounded
// to the level's window; its Position and Length are window-relative.
type ReadCheckpoint func(level int, in store.Input) (DocID, error)

// Reader loads a serialized skip region and answers seek-to-document
// queries.
//
// A Reader is used single-threaded; run one Reader per query thread against
// the same region. Every level reads through an independently positioned
// duplicate of the input passed to Prepare, so concurrent Readers never
// interfere with each other's cursors.
type Reader struct {
	skip0 uint64
	skipN uint64

	// levels is ordered coarsest first; the last entry is level 0.
	levels []level

	read ReadCheckpoint
}

// NewReader creates a Reader for regions flushed with the same skip0 and
// skipN parameters.
func NewReader(skip0, skipN int) *Reader {
	if skip0 < 1 {
		panic("skipgo: level-0 skip interval must be positive")
	}
	if skipN < 2 {
		panic("skipgo: skip factor must be at least 2")
	}
	return &Reader{
		skip0: uint64(skip0),
		skipN: uint64(skipN),
	}
}

// Prepare loads the skip region at in's current position. A stored level
// count of zero leaves the Reader empty: Seek reports nothing skippable and
// the caller scans linearly. A stored level count beyond any writable height,
// or a stored level declaring zero length, fails with ErrCorrupted, leaving
// the Reader untouched.
//
// Levels above 0 receive duplicated cursors; level 0 keeps reading through
// in itself.
func (r *Reader) Prepare(in store.Input, read ReadCheckpoint) error {
	stored, err := in.ReadUvarint()
	if err != nil {
		return err
	}
	if stored > maxStoredLevels {
		return fmt.Errorf("%w: stored level count %d exceeds maximum %d", ErrCorrupted, stored, maxStoredLevels)
	}

	if stored > 0 {
		n := int(stored)
		levels := make([]level, 0, n)

		// Step of the coarsest stored level.
		step := r.skip0 * pow(r.skipN, n-1)

		// Load levels coarsest down to the second-finest, hopping the shared
		// cursor over each window.
		for ; n > 1; n-- {
			lvl, err := loadLevel(in.Dup(), step, true)
			if err != nil {
				return err
			}
			levels = append(levels, lvl)

			if err := in.Seek(lvl.end); err != nil {
				return err
			}
			step /= r.skipN
		}

		// Level 0 owns the original cursor and has no child.
		lvl, err := loadLevel(in, r.skip0, false)
		if err != nil {
			return err
		}
		levels = append(levels, lvl)

		r.levels = levels
	}

	r.read = read
	return nil
}

// Seek positions the levels at the last checkpoint before target and
// returns the number of entries the caller may skip without decoding. The
// next entry the caller decodes itself is never before an already-confirmed
// position; entries from the returned count up to target still need linear
// confirmation.
func (r *Reader) Seek(target DocID) (uint64, error) {
	if len(r.levels) == 0 {
		return 0, nil
	}

	i := r.findLevel(target)

	var (
		child   uint64 // pointer into the next finer level, carried down
		skipped uint64 // entries skipped as of the carried pointer
	)

	for ; i < len(r.levels); i++ {
		l := &r.levels[i]
		if l.doc >= target {
			// Already at or past target; descend without touching it.
			continue
		}

		// Jump forward to where the coarser level left off.
		if err := r.seekSkip(l, child, skipped); err != nil {
			return 0, err
		}

		// Advance until this level reaches target, remembering the child
		// pointer of the last checkpoint still before it.
		child = l.child
		if err := r.readSkip(i, l); err != nil {
			return 0, err
		}
		for l.doc < target {
			child = l.child
			if err := r.readSkip(i, l); err != nil {
				return 0, err
			}
		}

		skipped = l.skipped - l.step
	}

	// Level 0's counter includes the step that crossed target, which the
	// caller has not confirmed yet.
	finest := &r.levels[len(r.levels)-1]
	if finest.skipped == 0 {
		return 0, nil
	}
	return finest.skipped - finest.step, nil
}

// Reset rewinds every level to its window start so the Reader can serve a
// fresh sequence of non-decreasing seeks.
func (r *Reader) Reset() error {
	for i := range r.levels {
		l := &r.levels[i]
		if err := l.in.Seek(l.begin); err != nil {
			return err
		}
		if l.hasChild {
			l.child = 0
		}
		l.skipped = 0
		l.doc = invalidDoc
	}
	return nil
}

// NumLevels returns the number of loaded levels.
func (r *Reader) NumLevels() int {
	return len(r.levels)
}

// findLevel returns the index of the coarsest level whose last-read document
// has not passed target. Levels that already advanced beyond target are
// never chosen; with no level started yet this is the coarsest one.
func (r *Reader) findLevel(target DocID) int {
	for i := range r.levels {
		if r.levels[i].doc <= target {
			return i
		}
	}
	return len(r.levels) - 1
}

// readSkip advances one checkpoint at the level with slice index i.
func (r *Reader) readSkip(i int, l *level) error {
	// The callback sees conceptual level numbers: the count of finer levels
	// below, not the coarsest-first slice index.
	doc, err := r.read(len(r.levels)-1-i, l)
	if err != nil {
		return err
	}

	// The child pointer trails the checkpoint payload on levels above 0.
	if doc != Exhausted && l.hasChild {
		child, err := l.ReadUvarint()
		if err != nil {
			return err
		}
		l.child = child
	}

	l.doc = doc
	l.skipped += l.step
	return nil
}

// seekSkip jumps l forward to the carried child offset, never backward, and
// re-reads its own child pointer at the new position.
func (r *Reader) seekSkip(l *level, ptr uint64, skipped uint64) error {
	absolute := l.begin + ptr
	if absolute > l.in.Position() {
		if err := l.in.Seek(absolute); err != nil {
			return err
		}
		l.skipped = skipped
		if l.hasChild {
			child, err := l.ReadUvarint()
			if err != nil {
				return err
			}
			l.child = child
		}
	}
	return nil
}

// levelsSorted reports whether per-level doc values are non-increasing from
// the coarsest level to the finest: the invariant findLevel relies on.
// Test aid only; correct Writer output guarantees it by construction.
func (r *Reader) levelsSorted() bool {
	for i := 1; i < len(r.levels); i++ {
		if r.levels[i-1].doc < r.levels[i].doc {
			return false
		}
	}
	return true
}

// level is one loaded skip level: an exclusive cursor over the window
// [begin,end), the document interval one checkpoint advances by, and the
// running seek state.
type level struct {
	in    store.Input
	begin uint64
	end   uint64
	step  uint64

	// hasChild is false only for level 0; child is meaningful only while a
	// seek descends.
	hasChild bool
	child    uint64

	skipped uint64
	doc     DocID
}

// loadLevel reads one level's length at in's current position and records
// its window. in becomes the level's exclusive cursor.
func loadLevel(in store.Input, step uint64, hasChild bool) (level, error) {
	length, err := in.ReadUvarint()
	if err != nil {
		return level{}, err
	}
	if length == 0 {
		return level{}, fmt.Errorf("%w: stored level declares zero length", ErrCorrupted)
	}

	begin := in.Position()
	return level{
		in:       in,
		begin:    begin,
		end:      begin + length,
		step:     step,
		hasChild: hasChild,
		doc:      invalidDoc,
	}, nil
}

// level presents its window as a whole store.Input to the checkpoint codec:
// positions are window-relative and reads stop at the window end.
var _ store.Input = (*level)(nil)

// Read implements io.Reader, clamped to the window.
func (l *level) Read(p []byte) (int, error) {
	pos := l.in.Position()
	if pos >= l.end {
		return 0, io.EOF
	}
	if remaining := l.end - pos; uint64(len(p)) > remaining {
		p = p[:remaining]
	}
	return l.in.Read(p)
}

// ReadByte implements io.ByteReader, clamped to the window.
func (l *level) ReadByte() (byte, error) {
	if l.in.Position() >= l.end {
		return 0, io.EOF
	}
	return l.in.ReadByte()
}

// ReadUvarint reads one unsigned varint from the window.
func (l *level) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(l)
}

// Position returns the cursor position relative to the window start.
func (l *level) Position() uint64 {
	return l.in.Position() - l.begin
}

// Length returns the window size.
func (l *level) Length() uint64 {
	return l.end - l.begin
}

// Seek repositions the cursor relative to the window start.
func (l *level) Seek(pos uint64) error {
	if pos > l.end-l.begin {
		return fmt.Errorf("skipgo: seek beyond level window (%d, len=%d)", pos, l.end-l.begin)
	}
	return l.in.Seek(l.begin + pos)
}

// Dup clones the level: scalar state is copied and the underlying stream is
// duplicated from the already-open handle. Cheap; for per-iterator cloning.
func (l *level) Dup() store.Input {
	dup := *l
	dup.in = l.in.Dup()
	return &dup
}

// Reopen clones the level from a cold handle: scalar state is copied and the
// underlying storage is reopened, then positioned where this cursor stands.
// For reopen-after-eviction scenarios.
func (l *level) Reopen() (store.Input, error) {
	reopened, err := l.in.Reopen()
	if err != nil {
		return nil, err
	}
	if err := reopened.Seek(l.in.Position()); err != nil {
		return nil, err
	}
	dup := *l
	dup.in = reopened
	return &dup, nil
}
