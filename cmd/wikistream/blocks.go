package main

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/wikistream/blockindex"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/dump"
	"github.com/urfave/cli/v2"
)

func blocksCommand(c *cli.Context) error {
	ctx := c.Context
	logger := slog.Default()

	src, err := dump.Open(ctx, c.String("index"), s3Options(c)...)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}

	opts := []blockindex.Option{blockindex.WithArticleIDs(false)}
	if every := c.Int("report-interval"); every > 0 {
		opts = append(opts, blockindex.WithProgress(every, func(s blockindex.Stats) {
			logger.Info("compacting index", "lines", s.Lines, "blocks", s.Blocks, "articles", s.Articles)
		}))
	}

	blocks, stats, err := blockindex.NewCompactor(opts...).Load(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to compact index: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Index: %s\n", src.Name())
	fmt.Fprintf(c.App.Writer, "Lines: %d\n", stats.Lines)
	fmt.Fprintf(c.App.Writer, "Blocks: %d\n", stats.Blocks)
	fmt.Fprintf(c.App.Writer, "Articles: %d\n", stats.Articles)
	if len(blocks) > 0 {
		fmt.Fprintf(c.App.Writer, "Largest block: %d articles\n", largestBlock(blocks))
	}
	return nil
}

func largestBlock(blocks []core.Block) int {
	largest := 0
	for _, b := range blocks {
		largest = max(largest, b.ArticleCount)
	}
	return largest
}
