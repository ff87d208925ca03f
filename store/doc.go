// Package store provides the byte-level storage primitives consumed by the
// skip-list codec: positioned inputs and outputs, in-memory level buffers,
// and blob stores over local files, memory, and object storage.
//
// # Inputs and Outputs
//
// Output is an append-only sink with a position; Buffer is its in-memory
// implementation and CountingOutput adapts any io.Writer. Input is a
// positioned cursor over immutable bytes with two cloning modes: Dup shares
// the already-open storage handle, Reopen acquires a fresh one. Both yield
// independently seekable cursors, which is what makes concurrent readers of
// one serialized region safe without locking.
//
// # Blob stores
//
// BlobStore mirrors the segment-storage contract of larger engines: blobs are
// written once, then opened for random-access reads. LocalStore memory-maps
// files for zero-copy reads, MemoryStore backs tests, and the minio and s3
// subpackages read remote objects through ranged GETs. OpenInput adapts any
// Blob into an Input.
package store
