package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/wikistream/core"
)

const (
	// DefaultChunkSize is how much is read from the input per scan.
	DefaultChunkSize = 1 << 20

	// DefaultMaxBuffer is the retained-buffer ceiling past which a scan
	// that found no complete page is treated as a framing error.
	// With the default chunk size this bounds a single page to about 10 MiB;
	// larger pages need WithMaxBuffer, or a chunk size that delivers the whole
	// page in one read.
	DefaultMaxBuffer = 10 << 20
)

var (
	pageOpen  = []byte("<page>")
	pageClose = []byte("</page>")
)

// StreamerOption configures a Streamer.
type StreamerOption func(*Streamer)

// WithChunkSize sets the read size per scan.
func WithChunkSize(n int) StreamerOption {
	return func(s *Streamer) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithMaxBuffer sets the framing ceiling.
func WithMaxBuffer(n int) StreamerOption {
	return func(s *Streamer) {
		if n > 0 {
			s.maxBuffer = n
		}
	}
}

// WithStreamLogger sets the logger used for skipped-page warnings.
func WithStreamLogger(logger *slog.Logger) StreamerOption {
	return func(s *Streamer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Streamer turns a decompressed byte stream into pages.
// It is single-use and not safe for concurrent use.
type Streamer struct {
	r         io.Reader
	chunkSize int
	maxBuffer int
	logger    *slog.Logger

	chunk   []byte
	buf     []byte
	pending []core.Page
	eof     bool
	skipped int
}

// NewStreamer creates a Streamer reading from r.
func NewStreamer(r io.Reader, opts ...StreamerOption) *Streamer {
	s := &Streamer{
		r:         r,
		chunkSize: DefaultChunkSize,
		maxBuffer: DefaultMaxBuffer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Skipped returns how many malformed page elements were dropped so far.
func (s *Streamer) Skipped() int {
	return s.skipped
}

// Next returns the next page, or io.EOF once the input is exhausted.
func (s *Streamer) Next() (core.Page, error) {
	for len(s.pending) == 0 {
		if s.eof {
			return core.Page{}, io.EOF
		}
		if err := s.fill(); err != nil {
			return core.Page{}, err
		}
	}
	p := s.pending[0]
	s.pending[0] = core.Page{}
	s.pending = s.pending[1:]
	return p, nil
}

// ForEach calls fn for every page until the input ends, fn fails or ctx is done.
func (s *Streamer) ForEach(ctx context.Context, fn func(core.Page) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}

// fill reads one chunk and scans the buffer for complete elements.
func (s *Streamer) fill() error {
	if s.chunk == nil {
		s.chunk = make([]byte, s.chunkSize)
	}
	n, err := io.ReadFull(s.r, s.chunk)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
	case err != nil:
		return err
	}
	s.buf = append(s.buf, s.chunk[:n]...)

	found := s.scan()

	if s.eof {
		if rest := bytes.TrimSpace(s.buf); bytes.Contains(rest, pageOpen) {
			s.logger.Warn("discarding incomplete page at end of stream", "bytes", len(rest))
		}
		s.buf = nil
		return nil
	}
	if found == 0 && len(s.buf) > s.maxBuffer {
		return fmt.Errorf("%w: %d bytes buffered without a complete page (limit %d)",
			core.ErrStreamFraming, len(s.buf), s.maxBuffer)
	}
	return nil
}

// scan extracts every complete element in the buffer, retaining only the
// unconsumed tail. It returns the number of elements found.
func (s *Streamer) scan() int {
	found := 0
	pos := 0
	for {
		start := bytes.Index(s.buf[pos:], pageOpen)
		if start < 0 {
			// Keep enough bytes to complete a tag split across chunks.
			keep := len(pageOpen) - 1
			if len(s.buf)-pos > keep {
				pos = len(s.buf) - keep
			}
			break
		}
		start += pos
		end := bytes.Index(s.buf[start+len(pageOpen):], pageClose)
		if end < 0 {
			pos = start
			break
		}
		end += start + len(pageOpen) + len(pageClose)

		found++
		page, err := parsePage(s.buf[start:end])
		if err != nil {
			s.skipped++
			s.logger.Warn("skipping malformed page", "offset_in_buffer", start, "err", err)
		} else {
			s.pending = append(s.pending, page)
		}
		pos = end
	}
	s.buf = append(s.buf[:0], s.buf[pos:]...)
	return found
}
