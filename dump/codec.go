package dump

import (
	"compress/bzip2"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec identifies how a dump's bytes are compressed.
type Codec int

const (
	CodecPlain Codec = iota
	CodecBzip2
	CodecGzip
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecBzip2:
		return "bzip2"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	default:
		return "plain"
	}
}

// CodecFor picks a codec from a file name or URI by its extension.
func CodecFor(name string) Codec {
	switch strings.ToLower(path.Ext(name)) {
	case ".bz2":
		return CodecBzip2
	case ".gz":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	default:
		return CodecPlain
	}
}

// Decompress wraps r in a reader for codec c. Every codec accepts
// concatenated members, which is how multistream dumps are laid out.
// Closing the returned reader does not close r.
func Decompress(r io.Reader, c Codec) (io.ReadCloser, error) {
	switch c {
	case CodecBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case CodecGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case CodecZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
