package postings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/skipgo"
	"github.com/hupe1980/skipgo/store"
)

func TestMemoryIndexAdd(t *testing.T) {
	idx := NewMemoryIndex()

	require.NoError(t, idx.Add(1, "the quick brown fox"))
	require.NoError(t, idx.Add(2, "quick red pandas"))

	assert.Equal(t, uint64(2), idx.NumDocs())
	assert.Equal(t, uint64(2), idx.Cardinality("quick"))
	assert.Equal(t, uint64(1), idx.Cardinality("fox"))
	assert.Zero(t, idx.Cardinality("the")) // stopword

	terms := idx.Terms()
	assert.IsIncreasing(t, terms)
	assert.Contains(t, terms, "panda")
}

func TestMemoryIndexAddTerm(t *testing.T) {
	idx := NewMemoryIndex()

	require.NoError(t, idx.AddTerm("alpha", 7))
	require.NoError(t, idx.AddTerm("alpha", 3))
	require.NoError(t, idx.AddTerm("alpha", 7)) // duplicate is fine

	assert.Equal(t, uint64(2), idx.Cardinality("alpha"))
	assert.Equal(t, 1, idx.NumTerms())

	assert.Error(t, idx.AddTerm("", 1))
	assert.Error(t, idx.AddTerm("x", 0))
	assert.Error(t, idx.AddTerm("x", skipgo.Exhausted))
}

func TestMemoryIndexFlushRoundTrip(t *testing.T) {
	idx := NewMemoryIndex(WithBlockSize(4), WithSkipFactor(2))

	// Enough documents per term to build real skip levels.
	for doc := skipgo.DocID(1); doc <= 200; doc++ {
		require.NoError(t, idx.AddTerm("even", doc*2))
		if doc%3 == 0 {
			require.NoError(t, idx.AddTerm("third", doc))
		}
	}

	buf := store.NewBuffer()
	require.NoError(t, idx.Flush(context.Background(), buf))

	seg, err := NewSegment(buf.Input())
	require.NoError(t, err)
	defer seg.Close()

	assert.Equal(t, []string{"even", "third"}, seg.Terms())
	assert.True(t, seg.Contains("even"))
	assert.False(t, seg.Contains("odd"))

	it, err := seg.Iterator("even")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), it.Count())

	got, err := it.Advance(100)
	require.NoError(t, err)
	assert.Equal(t, skipgo.DocID(100), got)

	got, err = it.Advance(101)
	require.NoError(t, err)
	assert.Equal(t, skipgo.DocID(102), got)

	it, err = seg.Iterator("third")
	require.NoError(t, err)
	docs := make([]skipgo.DocID, 0, it.Count())
	for {
		doc, err := it.Next()
		require.NoError(t, err)
		if doc == skipgo.Exhausted {
			break
		}
		docs = append(docs, doc)
	}
	require.Len(t, docs, 66)
	assert.Equal(t, skipgo.DocID(3), docs[0])
	assert.Equal(t, skipgo.DocID(198), docs[65])
}

func TestMemoryIndexSaveAndOpenSegment(t *testing.T) {
	ctx := context.Background()

	idx := NewMemoryIndex(WithBlockSize(8), WithSkipFactor(2))
	require.NoError(t, idx.Add(1, "storage engines love postings lists"))
	require.NoError(t, idx.Add(2, "postings lists love skip lists"))

	s := store.NewMemoryStore()
	require.NoError(t, idx.Save(ctx, s, "segments/0001"))

	seg, err := OpenSegment(ctx, s, "segments/0001")
	require.NoError(t, err)
	defer seg.Close()

	it, err := seg.Iterator("post")
	require.NoError(t, err)

	got, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, skipgo.DocID(1), got)

	got, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, skipgo.DocID(2), got)
}

func TestSegmentTermNotFound(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.AddTerm("present", 1))

	buf := store.NewBuffer()
	require.NoError(t, idx.Flush(context.Background(), buf))

	seg, err := NewSegment(buf.Input())
	require.NoError(t, err)
	defer seg.Close()

	_, err = seg.Iterator("absent")
	assert.ErrorIs(t, err, ErrTermNotFound)
}

func TestSegmentClosed(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.AddTerm("x", 1))

	buf := store.NewBuffer()
	require.NoError(t, idx.Flush(context.Background(), buf))

	seg, err := NewSegment(buf.Input())
	require.NoError(t, err)
	require.NoError(t, seg.Close())
	require.NoError(t, seg.Close()) // idempotent

	_, err = seg.Iterator("x")
	assert.ErrorIs(t, err, ErrSegmentClosed)
	assert.False(t, seg.Contains("x"))
}

func TestSegmentBadMagic(t *testing.T) {
	_, err := NewSegment(store.NewBytesInput([]byte{'n', 'o', 'p', 'e', 1, 0}))
	assert.ErrorIs(t, err, ErrCorruptedList)
}

func TestMemoryIndexFlushIsRepeatable(t *testing.T) {
	ctx := context.Background()

	idx := NewMemoryIndex(WithBlockSize(4), WithSkipFactor(2))
	for doc := skipgo.DocID(1); doc <= 50; doc++ {
		require.NoError(t, idx.AddTerm("t", doc))
	}

	first := store.NewBuffer()
	require.NoError(t, idx.Flush(ctx, first))

	second := store.NewBuffer()
	require.NoError(t, idx.Flush(ctx, second))

	assert.Equal(t, first.Bytes(), second.Bytes())
}
