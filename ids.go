package skipgo

// DocID identifies one entry in an ascending postings sequence.
// Valid identifiers start at 1; zero is reserved for "nothing read yet".
type DocID uint64

const (
	// invalidDoc marks a level cursor that has not produced a document yet.
	invalidDoc DocID = 0

	// Exhausted is the sentinel a ReadCheckpoint implementation returns once
	// a level's window holds no further checkpoints. It compares greater
	// than every valid DocID, which is what terminates seek advance loops.
	Exhausted DocID = ^DocID(0)
)

// maxLevelCount returns the number of skip levels needed to index count
// entries with step skip0 at the finest level and factor skipN above it.
// Fewer than skip0 entries need no skip data at all.
func maxLevelCount(skip0, skipN, count uint64) int {
	if count <= skip0 {
		return 0
	}
	levels := 1
	for c := count / skip0; c >= skipN; c /= skipN {
		levels++
	}
	return levels
}

// pow returns base**exp for small exponents.
func pow(base uint64, exp int) uint64 {
	v := uint64(1)
	for ; exp > 0; exp-- {
		v *= base
	}
	return v
}
