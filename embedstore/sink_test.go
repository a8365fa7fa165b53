package embedstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/wikistream/ai/mock"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSink(t *testing.T, embedder *mock.MockEmbedder) (*Sink, *badger.UnitRepository) {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	cfg := DefaultConfig()
	cfg.Collection = "test"
	cfg.RetryDelay = time.Millisecond
	sink, err := NewSink(repo, embedder, cfg)
	require.NoError(t, err)
	return sink, repo
}

func units(articleID string, contents ...string) []core.TextUnit {
	out := make([]core.TextUnit, len(contents))
	for i, c := range contents {
		out[i] = core.TextUnit{
			ArticleID:    articleID,
			ArticleTitle: "Article " + articleID,
			SectionName:  "History",
			Position:     i,
			Content:      c,
		}
	}
	return out
}

func TestNewSink_RequiresCollaborators(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewSink(nil, mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewSink(repo, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewSink(repo, mock.NewMockEmbedder(), &Config{Collection: "x"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSink_Consume(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	sink, repo := setupSink(t, embedder)
	ctx := context.Background()

	batch := units("12", "First paragraph.", "Second paragraph.")
	require.NoError(t, sink.Consume(ctx, batch))

	count, err := repo.CountUnits(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(2), sink.Stored())

	stored, err := repo.GetUnit(ctx, "test", core.UnitID(batch[0]))
	require.NoError(t, err)
	assert.Equal(t, batch[0], stored.Unit())
	require.Len(t, stored.Vector, 2)
	assert.InDelta(t, 0.6, stored.Vector[0], 1e-6)
	assert.InDelta(t, 0.8, stored.Vector[1], 1e-6)
}

func TestSink_RedeliveryIsIdempotent(t *testing.T) {
	sink, repo := setupSink(t, mock.NewMockEmbedder())
	ctx := context.Background()

	batch := units("7", "Alpha.", "Beta.", "Gamma.")
	require.NoError(t, sink.Consume(ctx, batch))
	require.NoError(t, sink.Consume(ctx, batch[1:]))

	count, err := repo.CountUnits(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSink_SkipsInvalidUnits(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	sink, repo := setupSink(t, embedder)
	ctx := context.Background()

	batch := units("9", "Valid.", "   ")
	require.NoError(t, sink.Consume(ctx, batch))

	count, err := repo.CountUnits(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(1), sink.Skipped())

	embedder.Reset()
	require.NoError(t, sink.Consume(ctx, units("9", " ")))
	assert.Equal(t, 0, embedder.CallCount(), "empty batch should not reach the embedder")
}

func TestSink_RetriesEmbedding(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("service unavailable")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.GenerateVector(text, 8)
		}
		return out, nil
	}
	sink, _ := setupSink(t, embedder)

	require.NoError(t, sink.Consume(context.Background(), units("1", "Retried.")))
	assert.Equal(t, 3, calls)
}

func TestSink_EmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	boom := errors.New("service unavailable")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}
	sink, repo := setupSink(t, embedder)

	err := sink.Consume(context.Background(), units("1", "Lost."))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, embedder.CallCount())

	count, err := repo.CountUnits(context.Background(), "test")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSink_EmbeddingMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	sink, _ := setupSink(t, embedder)

	err := sink.Consume(context.Background(), units("1", "One.", "Two."))
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestSink_StoredVectorsAreUnitLength(t *testing.T) {
	sink, repo := setupSink(t, mock.NewMockEmbedder())
	ctx := context.Background()

	batch := units("3", "Some paragraph text.")
	require.NoError(t, sink.Consume(ctx, batch))

	stored, err := repo.GetUnitsByArticle(ctx, "test", "3")
	require.NoError(t, err)
	require.Len(t, stored, 1)

	var sum float64
	for _, v := range stored[0].Vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}
