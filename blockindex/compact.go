package blockindex

import (
	"context"
	"fmt"
	"io"

	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/dump"
)

// DefaultProgressEvery is how many scanned lines separate progress callbacks.
const DefaultProgressEvery = 250_000

// Stats summarizes a compaction pass.
type Stats struct {
	Lines    int // non-blank lines scanned
	Blocks   int
	Articles int
}

// Option configures a Compactor.
type Option func(*Compactor)

// WithProgress calls fn every `every` scanned lines.
func WithProgress(every int, fn func(Stats)) Option {
	return func(c *Compactor) {
		if every > 0 {
			c.progressEvery = every
		}
		c.progress = fn
	}
}

// WithArticleIDs controls whether blocks carry their article IDs.
// Dropping them keeps memory flat on indexes with tens of millions of lines.
func WithArticleIDs(keep bool) Option {
	return func(c *Compactor) {
		c.keepIDs = keep
	}
}

// Compactor groups a sorted index into blocks while reading it, holding only
// the block currently being built.
type Compactor struct {
	progressEvery int
	progress      func(Stats)
	keepIDs       bool
}

// NewCompactor creates a Compactor. Article IDs are kept by default.
func NewCompactor(opts ...Option) *Compactor {
	c := &Compactor{
		progressEvery: DefaultProgressEvery,
		keepIDs:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForEach emits each block as soon as the next distinct offset proves it complete.
// A decreasing offset fails with core.ErrUnsortedIndex.
func (c *Compactor) ForEach(ctx context.Context, r io.Reader, fn func(core.Block) error) (Stats, error) {
	var (
		stats   Stats
		current *core.Block
	)

	err := scanLines(r, func(lineNo int, line string) error {
		stats.Lines++
		if stats.Lines%c.progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.progress != nil {
				c.progress(stats)
			}
		}

		e, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		stats.Articles++

		switch {
		case current == nil:
			current = c.newBlock(e)
		case e.ByteOffset == current.ByteOffset:
			current.ArticleCount++
			if c.keepIDs {
				current.ArticleIDs = append(current.ArticleIDs, e.ArticleID)
			}
		case e.ByteOffset < current.ByteOffset:
			return fmt.Errorf("%w: line %d offset %d after %d",
				core.ErrUnsortedIndex, lineNo, e.ByteOffset, current.ByteOffset)
		default:
			current.EndOffset = e.ByteOffset - 1
			stats.Blocks++
			if err := fn(*current); err != nil {
				return err
			}
			current = c.newBlock(e)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if current != nil {
		current.EndOffset = -1
		stats.Blocks++
		if err := fn(*current); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Compact collects every block of the index.
func (c *Compactor) Compact(ctx context.Context, r io.Reader) ([]core.Block, Stats, error) {
	var blocks []core.Block
	stats, err := c.ForEach(ctx, r, func(b core.Block) error {
		blocks = append(blocks, b)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return blocks, stats, nil
}

// Load opens an index source, decompressing it by extension, and compacts it.
func (c *Compactor) Load(ctx context.Context, src dump.Source) ([]core.Block, Stats, error) {
	rc, err := dump.OpenStream(ctx, src, 0, -1)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open index %s: %w", src.Name(), err)
	}
	defer rc.Close()
	return c.Compact(ctx, rc)
}

func (c *Compactor) newBlock(e core.IndexEntry) *core.Block {
	b := &core.Block{ByteOffset: e.ByteOffset, ArticleCount: 1}
	if c.keepIDs {
		b.ArticleIDs = []string{e.ArticleID}
	}
	return b
}
