package postings

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/skipgo/store"
)

// CompressionType defines the block compression algorithm.
type CompressionType uint8

const (
	// CompressionNone stores blocks uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD block compression (better ratio, good for cold data).
	CompressionZSTD CompressionType = 2
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// writeBlock frames and writes one block:
// [uncompressedLen:uvarint][compressedLen:uvarint][payload]
// compressedLen == 0 means the payload is stored raw.
func writeBlock(out store.Output, data []byte, typ CompressionType) error {
	var compressed []byte

	switch typ {
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return err
		}
		compressed = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	// Store raw when compression does not pay for itself.
	if len(compressed) == 0 || len(compressed) > len(data)*9/10 {
		if err := out.WriteUvarint(uint64(len(data))); err != nil {
			return err
		}
		if err := out.WriteUvarint(0); err != nil {
			return err
		}
		_, err := out.Write(data)
		return err
	}

	if err := out.WriteUvarint(uint64(len(data))); err != nil {
		return err
	}
	if err := out.WriteUvarint(uint64(len(compressed))); err != nil {
		return err
	}
	_, err := out.Write(compressed)
	return err
}

// readBlock reads one framed block and returns the uncompressed payload,
// reusing scratch when it is large enough.
func readBlock(in store.Input, typ CompressionType, scratch []byte) ([]byte, error) {
	uncompressedLen, err := in.ReadUvarint()
	if err != nil {
		return nil, err
	}
	compressedLen, err := in.ReadUvarint()
	if err != nil {
		return nil, err
	}

	if compressedLen == 0 {
		dst := grow(scratch, int(uncompressedLen))
		if _, err := io.ReadFull(in, dst); err != nil {
			return nil, err
		}
		return dst, nil
	}

	src := make([]byte, compressedLen)
	if _, err := io.ReadFull(in, src); err != nil {
		return nil, err
	}

	switch typ {
	case CompressionLZ4:
		dst := grow(scratch, int(uncompressedLen))
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n != int(uncompressedLen) {
			return nil, fmt.Errorf("postings: block declares %d bytes, decompressed %d", uncompressedLen, n)
		}
		return dst, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		dst, err := dec.DecodeAll(src, scratch[:0])
		putZstdDecoder(dec)
		return dst, err
	default:
		return nil, fmt.Errorf("postings: compressed block in uncompressed list")
	}
}

func grow(scratch []byte, n int) []byte {
	if cap(scratch) >= n {
		return scratch[:n]
	}
	return make([]byte, n)
}
