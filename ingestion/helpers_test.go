package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/dump"
	"github.com/stretchr/testify/require"
)

type testPage struct {
	id       string
	ns       int
	redirect bool
	text     string
}

func article(id string) testPage {
	return testPage{
		id:   id,
		text: fmt.Sprintf("Article %s opens here.\n\n== History ==\nArticle %s history.", id, id),
	}
}

func (p testPage) xml() string {
	redirect := ""
	if p.redirect {
		redirect = "    <redirect title=\"Elsewhere\" />\n"
	}
	return fmt.Sprintf("  <page>\n    <title>Title %s</title>\n    <ns>%d</ns>\n    <id>%s</id>\n%s    <revision>\n      <text xml:space=\"preserve\">%s</text>\n    </revision>\n  </page>\n",
		p.id, p.ns, p.id, redirect, p.text)
}

type testDump struct {
	dumpPath  string
	indexPath string
	offsets   []int64
}

// writeDump writes a plain multistream-style dump where each group of pages
// starts a new block, along with its index.
func writeDump(t *testing.T, groups ...[]testPage) testDump {
	t.Helper()
	dir := t.TempDir()

	var body, index strings.Builder
	body.WriteString("<mediawiki>\n  <siteinfo><sitename>Test</sitename></siteinfo>\n")
	var offsets []int64
	for _, group := range groups {
		offset := int64(body.Len())
		offsets = append(offsets, offset)
		for _, p := range group {
			body.WriteString(p.xml())
			fmt.Fprintf(&index, "%d:%s:Title %s\n", offset, p.id, p.id)
		}
	}
	body.WriteString("</mediawiki>\n")

	td := testDump{
		dumpPath:  filepath.Join(dir, "enwiki-test-pages-articles-multistream.xml"),
		indexPath: filepath.Join(dir, "enwiki-test-pages-articles-multistream-index.txt"),
		offsets:   offsets,
	}
	require.NoError(t, os.WriteFile(td.dumpPath, []byte(body.String()), 0o644))
	require.NoError(t, os.WriteFile(td.indexPath, []byte(index.String()), 0o644))
	return td
}

func (td testDump) source(t *testing.T) dump.Source {
	t.Helper()
	src, err := dump.NewFileSource(td.dumpPath)
	require.NoError(t, err)
	return src
}

func (td testDump) index(t *testing.T) dump.Source {
	t.Helper()
	src, err := dump.NewFileSource(td.indexPath)
	require.NoError(t, err)
	return src
}

type recordingSink struct {
	mu        sync.Mutex
	units     []core.TextUnit
	onConsume func(batch []core.TextUnit) error
}

func (s *recordingSink) Consume(ctx context.Context, batch []core.TextUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onConsume != nil {
		if err := s.onConsume(batch); err != nil {
			return err
		}
	}
	s.units = append(s.units, batch...)
	return nil
}

func (s *recordingSink) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.units))
	for i, u := range s.units {
		keys[i] = fmt.Sprintf("%s/%s/%d", u.ArticleID, u.SectionName, u.Position)
	}
	return keys
}

func unitKeys(ids ...string) []string {
	var keys []string
	for _, id := range ids {
		keys = append(keys, id+"//0", id+"/History/0")
	}
	return keys
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.DumpDate = "20250101"
	cfg.EmbeddingModel = "mock-embedding"
	cfg.CollectionName = "test"
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoints", "default_checkpoint.json")
	cfg.MinParagraphLength = 1
	cfg.BatchSize = 1
	cfg.CheckpointInterval = 1
	return cfg
}
