// Package blockindex reads the side-car index of a multistream dump and
// derives the byte ranges of its independently compressed blocks.
package blockindex

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/wikistream/core"
)

const maxLineBytes = 1 << 20

// ParseLine parses "byteOffset:articleId:articleTitle". Titles may contain
// colons; only the first two are structural.
func ParseLine(line string) (core.IndexEntry, error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) != 3 {
		return core.IndexEntry{}, fmt.Errorf("%w: %q", core.ErrMalformedIndex, line)
	}
	offset, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || offset < 0 {
		return core.IndexEntry{}, fmt.Errorf("%w: bad offset in %q", core.ErrMalformedIndex, line)
	}
	if parts[1] == "" {
		return core.IndexEntry{}, fmt.Errorf("%w: empty article id in %q", core.ErrMalformedIndex, line)
	}
	return core.IndexEntry{
		ByteOffset:   offset,
		ArticleID:    parts[1],
		ArticleTitle: parts[2],
	}, nil
}

// scanLines calls fn for every non-blank line with its 1-based line number.
func scanLines(r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ParseEntries reads every entry of an index into memory.
func ParseEntries(r io.Reader) ([]core.IndexEntry, error) {
	var entries []core.IndexEntry
	err := scanLines(r, func(lineNo int, line string) error {
		e, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ComputeBlocks sorts entries by offset and groups them into blocks.
// Each block ends one byte before the next distinct offset; the last runs to end of file.
func ComputeBlocks(entries []core.IndexEntry) []core.Block {
	if len(entries) == 0 {
		return nil
	}
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b core.IndexEntry) int {
		switch {
		case a.ByteOffset < b.ByteOffset:
			return -1
		case a.ByteOffset > b.ByteOffset:
			return 1
		}
		return 0
	})

	var blocks []core.Block
	for _, e := range sorted {
		if n := len(blocks); n > 0 && blocks[n-1].ByteOffset == e.ByteOffset {
			blocks[n-1].ArticleIDs = append(blocks[n-1].ArticleIDs, e.ArticleID)
			blocks[n-1].ArticleCount++
			continue
		}
		blocks = append(blocks, core.Block{
			ByteOffset:   e.ByteOffset,
			ArticleIDs:   []string{e.ArticleID},
			ArticleCount: 1,
		})
	}
	for i := range blocks {
		if i == len(blocks)-1 {
			blocks[i].EndOffset = -1
		} else {
			blocks[i].EndOffset = blocks[i+1].ByteOffset - 1
		}
	}
	return blocks
}
