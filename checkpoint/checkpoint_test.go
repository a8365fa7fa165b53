package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/wikistream/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{
	Strategy:       "paragraph",
	DumpFile:       "enwiki-20240601-pages-articles-multistream.xml.bz2",
	DumpDate:       "20240601",
	EmbeddingModel: "nomic-embed-text",
	CollectionName: "wiki",
}

func sampleCheckpoint() *core.Checkpoint {
	return &core.Checkpoint{
		LastArticleID:     "4821",
		ArticlesProcessed: 1200,
		TotalArticles:     6_800_000,
		Strategy:          testParams.Strategy,
		DumpFile:          testParams.DumpFile,
		DumpDate:          testParams.DumpDate,
		EmbeddingModel:    testParams.EmbeddingModel,
		CollectionName:    testParams.CollectionName,
		Timestamp:         time.Date(2024, 6, 2, 10, 30, 0, 0, time.UTC),
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		offsets []int64
	}{
		{"never ran multi-block", nil},
		{"ran multi-block, nothing completed", []int64{}},
		{"completed blocks", []int64{616, 550_219, 1_203_446}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", "cp.json")
			cp := sampleCheckpoint()
			cp.CompletedBlockOffsets = tt.offsets

			require.NoError(t, Save(cp, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cp, loaded)
			if tt.offsets == nil {
				assert.Nil(t, loaded.CompletedBlockOffsets)
			} else {
				assert.NotNil(t, loaded.CompletedBlockOffsets)
			}
		})
	}
}

func TestSave_OffsetsEncoding(t *testing.T) {
	dir := t.TempDir()

	cp := sampleCheckpoint()
	path := filepath.Join(dir, "absent.json")
	require.NoError(t, Save(cp, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "completed_block_offsets")

	cp.CompletedBlockOffsets = []int64{}
	path = filepath.Join(dir, "empty.json")
	require.NoError(t, Save(cp, path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completed_block_offsets": []`)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cp.json")

	for range 3 {
		require.NoError(t, Save(sampleCheckpoint(), path))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cp.json", entries[0].Name())
}

func TestLoad_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{
  "last_article_id": "12",
  "articles_processed": 3,
  "total_articles": 0,
  "strategy": "paragraph",
  "dump_file": "dump.xml.bz2",
  "dump_date": "20240601",
  "embedding_model": "m",
  "collection_name": "c",
  "timestamp": "2024-06-01T00:00:00Z"
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	cp, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, cp.CompletedBlockOffsets)
	assert.Equal(t, "12", cp.LastArticleID)
	assert.Equal(t, 3, cp.ArticlesProcessed)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("not found", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.json"))
		assert.ErrorIs(t, err, core.ErrCheckpointNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"missing field", `{"last_article_id": "1", "strategy": "paragraph"}`},
		{"wrong type", strings.Replace(validJSON(t), `"articles_processed": 1200`, `"articles_processed": "many"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.ErrorIs(t, err, core.ErrMalformedCheckpoint)
		})
	}
}

func validJSON(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "valid.json")
	require.NoError(t, Save(sampleCheckpoint(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"articles_processed": 1200`)
	return string(data)
}

func TestValidate(t *testing.T) {
	cp := sampleCheckpoint()

	assert.True(t, Validate(cp, testParams))

	other := testParams
	other.EmbeddingModel = "different-model"
	other.CollectionName = "different"
	assert.True(t, Validate(cp, other), "model and collection do not identify a run")

	for _, mutate := range []func(*Params){
		func(p *Params) { p.Strategy = "sentence" },
		func(p *Params) { p.DumpFile = "other.xml.bz2" },
		func(p *Params) { p.DumpDate = "20240701" },
	} {
		p := testParams
		mutate(&p)
		assert.False(t, Validate(cp, p))
	}
	assert.False(t, Validate(nil, testParams))
}

func TestCreateInitial(t *testing.T) {
	cp := CreateInitial(testParams)

	assert.Equal(t, core.StartOfDump, cp.LastArticleID)
	assert.Zero(t, cp.ArticlesProcessed)
	assert.Zero(t, cp.TotalArticles)
	assert.Nil(t, cp.CompletedBlockOffsets)
	assert.Equal(t, testParams.Strategy, cp.Strategy)
	assert.Equal(t, testParams.CollectionName, cp.CollectionName)
	assert.False(t, cp.Timestamp.IsZero())
	assert.True(t, Validate(cp, testParams))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("checkpoints", "paragraph_checkpoint.json"), DefaultPath("", "paragraph"))
	assert.Equal(t, filepath.Join("/var/run", "sentence_checkpoint.json"), DefaultPath("/var/run", "sentence"))
}

func TestLoadOrCreate(t *testing.T) {
	t.Run("fresh when missing", func(t *testing.T) {
		cp, resumed, err := LoadOrCreate(filepath.Join(t.TempDir(), "cp.json"), testParams, nil)
		require.NoError(t, err)
		assert.False(t, resumed)
		assert.Equal(t, core.StartOfDump, cp.LastArticleID)
	})

	t.Run("resumes matching run", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		require.NoError(t, Save(sampleCheckpoint(), path))

		cp, resumed, err := LoadOrCreate(path, testParams, nil)
		require.NoError(t, err)
		assert.True(t, resumed)
		assert.Equal(t, "4821", cp.LastArticleID)
	})

	t.Run("fresh on mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		require.NoError(t, Save(sampleCheckpoint(), path))

		p := testParams
		p.DumpDate = "20250101"
		cp, resumed, err := LoadOrCreate(path, p, nil)
		require.NoError(t, err)
		assert.False(t, resumed)
		assert.Equal(t, core.StartOfDump, cp.LastArticleID)
		assert.Equal(t, "20250101", cp.DumpDate)
	})

	t.Run("malformed is surfaced", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

		_, _, err := LoadOrCreate(path, testParams, nil)
		assert.ErrorIs(t, err, core.ErrMalformedCheckpoint)
	})
}
