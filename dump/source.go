package dump

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source gives ranged access to the raw (still compressed) bytes of a dump.
type Source interface {
	// Name identifies the dump. Its extension selects the codec.
	Name() string

	// OpenRange opens bytes start..end inclusive. An end of -1 reads to end of file.
	OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error)
}

// Open returns an S3Source for s3:// URIs and a FileSource otherwise.
func Open(ctx context.Context, location string, opts ...S3Option) (Source, error) {
	if strings.HasPrefix(location, s3Scheme) {
		return NewS3Source(ctx, location, opts...)
	}
	return NewFileSource(location)
}

// OpenStream opens a byte range of src and decompresses it with the codec
// implied by the source name. Closing the result closes the underlying range.
func OpenStream(ctx context.Context, src Source, start, end int64) (io.ReadCloser, error) {
	raw, err := src.OpenRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	dec, err := Decompress(raw, CodecFor(src.Name()))
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("open %s codec at offset %d: %w", CodecFor(src.Name()), start, err)
	}
	return &stackedReadCloser{Reader: dec, closers: []io.Closer{dec, raw}}, nil
}

// FileSource reads a dump from the local filesystem.
type FileSource struct {
	path string
}

var _ Source = (*FileSource)(nil)

// NewFileSource checks that path names a regular file.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidLocation)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidLocation, path)
	}
	return &FileSource{path: path}, nil
}

func (f *FileSource) Name() string {
	return f.path
}

func (f *FileSource) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	if end < 0 {
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
		return file, nil
	}
	section := io.NewSectionReader(file, start, end-start+1)
	return &stackedReadCloser{Reader: section, closers: []io.Closer{file}}, nil
}

func checkRange(start, end int64) error {
	if start < 0 || (end >= 0 && end < start) {
		return fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, end)
	}
	return nil
}

// stackedReadCloser reads from Reader and closes closers in order.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedReadCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
