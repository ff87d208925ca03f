package postings

import (
	"github.com/hupe1980/skipgo"
)

const (
	// DefaultBlockSize is the number of documents per encoded block, and the
	// level-0 skip interval.
	DefaultBlockSize = 128

	// DefaultSkipFactor is the multiplicative step between skip levels.
	DefaultSkipFactor = 8

	// DefaultMaxSkipLevels caps the skip-list height regardless of list size.
	DefaultMaxSkipLevels = 10
)

type options struct {
	blockSize     int
	skipFactor    int
	maxSkipLevels int
	compression   CompressionType
	analyzer      *Analyzer
	logger        *skipgo.Logger
}

func defaultOptions() options {
	return options{
		blockSize:     DefaultBlockSize,
		skipFactor:    DefaultSkipFactor,
		maxSkipLevels: DefaultMaxSkipLevels,
		compression:   CompressionNone,
		logger:        skipgo.NoopLogger(),
	}
}

// Option configures list writers and memory indexes. Readers recover the
// effective parameters from the serialized header, so no options are needed
// when opening.
type Option func(*options)

// WithBlockSize sets the number of documents per block. Smaller blocks seek
// more precisely; larger blocks compress better.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithSkipFactor sets the step factor between skip levels.
func WithSkipFactor(n int) Option {
	return func(o *options) {
		if n >= 2 {
			o.skipFactor = n
		}
	}
}

// WithMaxSkipLevels caps the skip-list height.
func WithMaxSkipLevels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSkipLevels = n
		}
	}
}

// WithCompression selects the block compression algorithm.
func WithCompression(t CompressionType) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithAnalyzer sets the analyzer a MemoryIndex uses for Add. Defaults to
// NewAnalyzer().
func WithAnalyzer(a *Analyzer) Option {
	return func(o *options) {
		if a != nil {
			o.analyzer = a
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *skipgo.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
